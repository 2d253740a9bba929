// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import "time"

// DateLayout is the calendar date format used for completion dates and
// period keys.
const DateLayout = "2006-01-02"

// RoutineCompletion records one routine done on one local calendar day.
// Unique per (user, date, routine type).
type RoutineCompletion struct {
	UserID         string      `json:"user_id"`
	CompletionDate string      `json:"completion_date"`
	RoutineType    RoutineType `json:"routine_type"`
	CompletedAt    time.Time   `json:"completed_at"`
}

// GamificationState is the per-user streak and points record.
type GamificationState struct {
	UserID             string    `json:"user_id"`
	Points             int       `json:"points"`
	CurrentStreak      int       `json:"current_streak"`
	LongestStreak      int       `json:"longest_streak"`
	Level              int       `json:"level"`
	LevelName          string    `json:"level_name"`
	LastCompletionDate string    `json:"last_completion_date,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CompletionOutcome describes what recording a completion changed.
type CompletionOutcome struct {
	State *GamificationState `json:"state"`

	// Recorded is false when the completion already existed.
	Recorded bool `json:"recorded"`

	// DayCompleted is true when this completion finished the day's routines.
	DayCompleted bool `json:"day_completed"`

	PointsAwarded int  `json:"points_awarded"`
	LeveledUp     bool `json:"leveled_up"`
}
