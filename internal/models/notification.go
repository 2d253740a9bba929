// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import "time"

// NotificationType drives the styling of a notification-center row.
type NotificationType string

const (
	NotificationInfo     NotificationType = "info"
	NotificationSuccess  NotificationType = "success"
	NotificationWarning  NotificationType = "warning"
	NotificationError    NotificationType = "error"
	NotificationReminder NotificationType = "reminder"
	NotificationMessage  NotificationType = "message"
)

// IsValid reports whether t is a known notification type.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning,
		NotificationError, NotificationReminder, NotificationMessage:
		return true
	default:
		return false
	}
}

// InAppNotification is a durable notification-center row. It is written for
// every dispatched category regardless of how push or SMS fared.
type InAppNotification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      NotificationType  `json:"type"`
	Category  Category          `json:"category,omitempty"`
	Read      bool              `json:"read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	ActionURL string            `json:"action_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`

	// DedupKey makes a reminder row unique per user. Empty means no limit.
	DedupKey string `json:"-"`
}

// NotificationFilter narrows inbox listings.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
