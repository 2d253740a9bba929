// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import (
	"fmt"
	"time"
)

// Streak warning bounds, in hours before local midnight.
const (
	MinStreakWarningHours     = 1
	MaxStreakWarningHours     = 4
	DefaultStreakWarningHours = 2
)

// NotificationPreference is the per-user notification configuration.
// It is created with defaults at signup and never hard-deleted.
type NotificationPreference struct {
	UserID string `json:"user_id"`

	PushEnabled  bool `json:"push_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	EmailEnabled bool `json:"email_enabled"`

	// PhoneNumber is set only after SMS opt-in verification completes.
	PhoneNumber     *string    `json:"phone_number,omitempty"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at,omitempty"`
	Email           *string    `json:"email,omitempty"`

	Timezone       string `json:"timezone"`
	AMReminderTime string `json:"am_reminder_time"`
	PMReminderTime string `json:"pm_reminder_time"`

	AMReminderEnabled             bool `json:"am_reminder_enabled"`
	PMReminderEnabled             bool `json:"pm_reminder_enabled"`
	StreakWarningEnabled          bool `json:"streak_warning_enabled"`
	FeedbackNotificationsEnabled  bool `json:"feedback_notifications_enabled"`
	ProductRecommendationsEnabled bool `json:"product_recommendations_enabled"`
	ChallengeNotificationsEnabled bool `json:"challenge_notifications_enabled"`
	AppointmentRemindersEnabled   bool `json:"appointment_reminders_enabled"`
	StreakWarningHours            int  `json:"streak_warning_hours"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPreference returns the record created for a new user.
func DefaultPreference(userID string) *NotificationPreference {
	return &NotificationPreference{
		UserID:                        userID,
		EmailEnabled:                  false,
		Timezone:                      "UTC",
		AMReminderTime:                "07:00",
		PMReminderTime:                "21:00",
		AMReminderEnabled:             true,
		PMReminderEnabled:             true,
		StreakWarningEnabled:          true,
		FeedbackNotificationsEnabled:  true,
		ProductRecommendationsEnabled: true,
		ChallengeNotificationsEnabled: true,
		AppointmentRemindersEnabled:   true,
		StreakWarningHours:            DefaultStreakWarningHours,
	}
}

// CategoryEnabled reports the per-category toggle.
func (p *NotificationPreference) CategoryEnabled(c Category) bool {
	switch c {
	case CategoryAMReminder:
		return p.AMReminderEnabled
	case CategoryPMReminder:
		return p.PMReminderEnabled
	case CategoryStreakWarning:
		return p.StreakWarningEnabled
	case CategoryFeedback:
		return p.FeedbackNotificationsEnabled
	case CategoryProductRecommendation:
		return p.ProductRecommendationsEnabled
	case CategoryChallenge:
		return p.ChallengeNotificationsEnabled
	case CategoryAppointmentReminder:
		return p.AppointmentRemindersEnabled
	default:
		return false
	}
}

// HasVerifiedPhone reports whether SMS opt-in has completed.
func (p *NotificationPreference) HasVerifiedPhone() bool {
	return p.PhoneNumber != nil && *p.PhoneNumber != "" && p.PhoneVerifiedAt != nil
}

// HasEmail reports whether an email address is on file.
func (p *NotificationPreference) HasEmail() bool {
	return p.Email != nil && *p.Email != ""
}

// EnrolledRoutines returns the routine types that count toward a streak day.
// A user with both reminders off is treated as enrolled in both.
func (p *NotificationPreference) EnrolledRoutines() []RoutineType {
	var out []RoutineType
	if p.AMReminderEnabled {
		out = append(out, RoutineMorning)
	}
	if p.PMReminderEnabled {
		out = append(out, RoutineEvening)
	}
	if len(out) == 0 {
		out = []RoutineType{RoutineMorning, RoutineEvening}
	}
	return out
}

// Location loads the preference timezone, falling back to UTC.
func (p *NotificationPreference) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReminderTime returns the configured HH:MM for a routine reminder category.
func (p *NotificationPreference) ReminderTime(c Category) (string, error) {
	switch c {
	case CategoryAMReminder:
		return p.AMReminderTime, nil
	case CategoryPMReminder:
		return p.PMReminderTime, nil
	default:
		return "", fmt.Errorf("category %s has no reminder time", c)
	}
}

// PreferenceUpdate is a partial update. Nil fields are left unchanged.
// Phone number and verification are managed by the opt-in flow, not here.
type PreferenceUpdate struct {
	PushEnabled  *bool   `json:"push_enabled,omitempty"`
	SMSEnabled   *bool   `json:"sms_enabled,omitempty"`
	EmailEnabled *bool   `json:"email_enabled,omitempty"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`

	Timezone       *string `json:"timezone,omitempty" validate:"omitempty,timezone"`
	AMReminderTime *string `json:"am_reminder_time,omitempty" validate:"omitempty,hhmm"`
	PMReminderTime *string `json:"pm_reminder_time,omitempty" validate:"omitempty,hhmm"`

	AMReminderEnabled             *bool `json:"am_reminder_enabled,omitempty"`
	PMReminderEnabled             *bool `json:"pm_reminder_enabled,omitempty"`
	StreakWarningEnabled          *bool `json:"streak_warning_enabled,omitempty"`
	FeedbackNotificationsEnabled  *bool `json:"feedback_notifications_enabled,omitempty"`
	ProductRecommendationsEnabled *bool `json:"product_recommendations_enabled,omitempty"`
	ChallengeNotificationsEnabled *bool `json:"challenge_notifications_enabled,omitempty"`
	AppointmentRemindersEnabled   *bool `json:"appointment_reminders_enabled,omitempty"`
	StreakWarningHours            *int  `json:"streak_warning_hours,omitempty"`

	// IfVersion, when set, makes the update conditional on the stored version.
	IfVersion *int64 `json:"-"`
}

// IsEmpty reports whether the update changes nothing.
func (u *PreferenceUpdate) IsEmpty() bool {
	return u.PushEnabled == nil && u.SMSEnabled == nil && u.EmailEnabled == nil &&
		u.Email == nil && u.Timezone == nil && u.AMReminderTime == nil &&
		u.PMReminderTime == nil && u.AMReminderEnabled == nil && u.PMReminderEnabled == nil &&
		u.StreakWarningEnabled == nil && u.FeedbackNotificationsEnabled == nil &&
		u.ProductRecommendationsEnabled == nil && u.ChallengeNotificationsEnabled == nil &&
		u.AppointmentRemindersEnabled == nil && u.StreakWarningHours == nil
}

// ApplyTo returns a copy of p with the non-nil fields of u applied.
func (u *PreferenceUpdate) ApplyTo(p *NotificationPreference) *NotificationPreference {
	out := *p
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setBool(&out.PushEnabled, u.PushEnabled)
	setBool(&out.SMSEnabled, u.SMSEnabled)
	setBool(&out.EmailEnabled, u.EmailEnabled)
	if u.Email != nil {
		email := *u.Email
		out.Email = &email
	}
	setString(&out.Timezone, u.Timezone)
	setString(&out.AMReminderTime, u.AMReminderTime)
	setString(&out.PMReminderTime, u.PMReminderTime)
	setBool(&out.AMReminderEnabled, u.AMReminderEnabled)
	setBool(&out.PMReminderEnabled, u.PMReminderEnabled)
	setBool(&out.StreakWarningEnabled, u.StreakWarningEnabled)
	setBool(&out.FeedbackNotificationsEnabled, u.FeedbackNotificationsEnabled)
	setBool(&out.ProductRecommendationsEnabled, u.ProductRecommendationsEnabled)
	setBool(&out.ChallengeNotificationsEnabled, u.ChallengeNotificationsEnabled)
	setBool(&out.AppointmentRemindersEnabled, u.AppointmentRemindersEnabled)
	if u.StreakWarningHours != nil {
		out.StreakWarningHours = *u.StreakWarningHours
	}
	return &out
}
