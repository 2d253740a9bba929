// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import "time"

// PushPermission mirrors the browser Notification.permission values.
type PushPermission string

const (
	PermissionGranted PushPermission = "granted"
	PermissionDenied  PushPermission = "denied"
	PermissionDefault PushPermission = "default"
)

// IsValid reports whether p is a known permission state.
func (p PushPermission) IsValid() bool {
	return p == PermissionGranted || p == PermissionDenied || p == PermissionDefault
}

// ClientCapabilityReport is the latest push capability the client reported.
// Permission can be revoked outside the app, so the client re-reports it and
// the server re-reads it before every push attempt.
type ClientCapabilityReport struct {
	UserID            string         `json:"user_id"`
	PushSupported     bool           `json:"push_supported"`
	Permission        PushPermission `json:"permission" validate:"required,oneof=granted denied default"`
	RegistrationReady bool           `json:"registration_ready"`
	UserAgent         string         `json:"user_agent,omitempty" validate:"max=512"`
	ReportedAt        time.Time      `json:"reported_at"`
}

// PushSubscription is a Web Push endpoint registered by a service worker.
type PushSubscription struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Endpoint   string     `json:"endpoint" validate:"required,url,max=2048"`
	P256dhKey  string     `json:"p256dh" validate:"required,max=256"`
	AuthKey    string     `json:"auth" validate:"required,max=128"`
	DeviceName string     `json:"device_name,omitempty" validate:"max=128"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// SMSVerification is a pending SMS opt-in challenge.
type SMSVerification struct {
	UserID      string    `json:"user_id"`
	PhoneNumber string    `json:"phone_number"`
	CodeHash    string    `json:"-"`
	Attempts    int       `json:"attempts"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}
