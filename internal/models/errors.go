// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import (
	"errors"
	"fmt"
)

// ValidationError rejects input before it is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CapabilityError means a channel cannot be used for a user right now
// (push unsupported or denied, SMS unverified). It skips the channel only.
type CapabilityError struct {
	Channel Channel
	Reason  string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s channel unavailable: %s", e.Channel, e.Reason)
}

// TransportError is a failed or timed out provider call.
type TransportError struct {
	Channel   Channel
	Code      string
	Message   string
	Transient bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s transport failed (%s): %v", e.Channel, e.Code, e.Err)
	}
	return fmt.Sprintf("%s transport failed (%s): %s", e.Channel, e.Code, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError is returned when a required record does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError is returned when a conditional write loses to a concurrent one.
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ErrNotImplemented marks features that are deliberately unsupported.
var ErrNotImplemented = errors.New("not implemented")
