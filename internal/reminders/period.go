// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package reminders

import (
	"fmt"
	"time"

	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/validation"
)

// Period key suffixes for date-scoped categories.
const (
	suffixAM     = "am"
	suffixPM     = "pm"
	suffixStreak = "streak"
)

// DailyPeriodKey is the period key of a date-scoped category on the local
// calendar day of t.
func DailyPeriodKey(c models.Category, t time.Time) string {
	var suffix string
	switch c {
	case models.CategoryAMReminder:
		suffix = suffixAM
	case models.CategoryPMReminder:
		suffix = suffixPM
	case models.CategoryStreakWarning:
		suffix = suffixStreak
	default:
		suffix = string(c)
	}
	return t.Format(models.DateLayout) + ":" + suffix
}

// AppointmentPeriodKey is the period key of one appointment reminder.
func AppointmentPeriodKey(appointmentID string, threshold time.Duration) string {
	return fmt.Sprintf("appointment:%s:%s", appointmentID, formatThreshold(threshold))
}

// EventPeriodKey is the period key of an event-driven notification.
func EventPeriodKey(c models.Category, entityID string) string {
	return string(c) + ":" + entityID
}

func formatThreshold(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dm", int(d/time.Minute))
}

// dueOccurrence returns the occurrence of the HH:MM time of day whose window
// [occurrence, occurrence+tolerance) contains local. Yesterday's occurrence
// is considered so a window crossing midnight still fires.
func dueOccurrence(hhmm string, local time.Time, tolerance time.Duration) (time.Time, bool, error) {
	hour, minute, err := validation.ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, false, err
	}
	y, m, d := local.Date()
	for _, offset := range []int{0, -1} {
		at := time.Date(y, m, d+offset, hour, minute, 0, 0, local.Location())
		if !local.Before(at) && local.Before(at.Add(tolerance)) {
			return at, true, nil
		}
	}
	return time.Time{}, false, nil
}

// untilMidnight returns the time left in local's calendar day.
func untilMidnight(local time.Time) time.Duration {
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, local.Location()).Sub(local)
}

// appointmentThreshold picks the tightest threshold the appointment is
// already inside of. Thresholds must be sorted ascending.
func appointmentThreshold(startsAt, now time.Time, thresholds []time.Duration) (time.Duration, bool) {
	until := startsAt.Sub(now)
	if until <= 0 {
		return 0, false
	}
	for _, th := range thresholds {
		if until <= th {
			return th, true
		}
	}
	return 0, false
}
