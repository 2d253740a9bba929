// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import "time"

// DomainEvent triggers an event-driven category for one user: a new comment
// from a professional, a product recommendation, a challenge milestone.
type DomainEvent struct {
	EventID    string            `json:"event_id"`
	UserID     string            `json:"user_id" validate:"required,max=128"`
	Category   Category          `json:"category" validate:"required,category"`
	EntityID   string            `json:"entity_id" validate:"required,max=128"`
	Title      string            `json:"title,omitempty" validate:"max=120"`
	Body       string            `json:"body,omitempty" validate:"max=1000"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
