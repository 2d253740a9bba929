// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import (
	"fmt"
	"time"
)

// Outcome is the result of a delivery attempt on one channel.
type Outcome string

const (
	// OutcomePending marks a claimed key whose dispatch has not reported yet.
	OutcomePending Outcome = "pending"
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// IsFinal reports whether no further attempt may be made for the key.
func (o Outcome) IsFinal() bool {
	return o == OutcomeSent
}

// DeliveryKey identifies one dedup slot. At most one successful send exists
// per key.
type DeliveryKey struct {
	UserID    string   `json:"user_id"`
	Category  Category `json:"category"`
	Channel   Channel  `json:"channel"`
	PeriodKey string   `json:"period_key"`
}

func (k DeliveryKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.UserID, k.Category, k.Channel, k.PeriodKey)
}

// DeliveryRecord is the persisted state of a DeliveryKey.
type DeliveryRecord struct {
	DeliveryKey
	Outcome      Outcome    `json:"outcome"`
	Attempts     int        `json:"attempts"`
	LastSentAt   *time.Time `json:"last_sent_at,omitempty"`
	ClaimedAt    time.Time  `json:"claimed_at"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ExternalID   string     `json:"external_id,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DeliveryResult is what the reconciler records for a finished attempt.
type DeliveryResult struct {
	Key          DeliveryKey
	Outcome      Outcome
	ErrorCode    string
	ErrorMessage string
	ExternalID   string
	At           time.Time
}
