// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lumaskin/internal/auth"
	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/validation"
)

const (
	maxRequestBody  = 64 * 1024
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateSessionRequest exchanges the service key for a user token.
type CreateSessionRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Role   string `json:"role" validate:"omitempty,oneof=client professional admin"`
}

// SessionResponse is a freshly issued token.
type SessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// PhoneVerificationRequest starts SMS opt-in.
type PhoneVerificationRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
}

// PhoneConfirmRequest completes SMS opt-in.
type PhoneConfirmRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

// CompletionRequest records a finished routine.
type CompletionRequest struct {
	RoutineType models.RoutineType `json:"routine_type" validate:"required,oneof=morning evening"`
}

// PushActionRequest resolves a clicked notification action.
type PushActionRequest struct {
	Category models.Category `json:"category" validate:"required,category"`
	Action   string          `json:"action" validate:"required,max=64"`
}

// PushActionResponse is where the client should navigate.
type PushActionResponse struct {
	URL string `json:"url"`
}

// decodeJSON reads a size-limited JSON body, rejecting unknown fields and
// trailing data, then validates dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return models.NewValidationError("", "request body is empty")
		case errors.As(err, &maxErr):
			return models.NewValidationError("", fmt.Sprintf("request body exceeds %d bytes", maxRequestBody))
		default:
			return models.NewValidationError("", "malformed JSON: "+err.Error())
		}
	}
	if dec.More() {
		return models.NewValidationError("", "request body must contain a single JSON object")
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr.ToModelError()
	}
	return nil
}

// subjectID returns the authenticated user. The auth middleware guarantees
// a subject on every route that calls it.
func subjectID(r *http.Request) string {
	s, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		return ""
	}
	return s.ID
}

// pagination parses limit and offset query parameters.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, models.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", maxPageSize))
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, models.NewValidationError("offset", "must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// parseIfMatch reads a preference version from If-Match. Weak and quoted
// forms are accepted. An absent header returns nil.
func parseIfMatch(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return nil, models.NewValidationError("If-Match", "must be a preference version")
	}
	return &v, nil
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}
