// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCategoryPriority(t *testing.T) {
	order := []Category{
		CategoryAppointmentReminder,
		CategoryStreakWarning,
		CategoryAMReminder,
		CategoryFeedback,
		CategoryProductRecommendation,
		CategoryChallenge,
	}
	for i := 1; i < len(order); i++ {
		if order[i-1].Priority() >= order[i].Priority() {
			t.Errorf("%s should outrank %s", order[i-1], order[i])
		}
	}

	if Category("bogus").IsValid() {
		t.Error("unknown category reported valid")
	}
	if got := Category("bogus").Priority(); got != len(CategoriesByPriority) {
		t.Errorf("unknown priority = %d, want %d", got, len(CategoriesByPriority))
	}
}

func TestCategoryIsEventDriven(t *testing.T) {
	tests := []struct {
		cat  Category
		want bool
	}{
		{CategoryFeedback, true},
		{CategoryProductRecommendation, true},
		{CategoryChallenge, true},
		{CategoryAMReminder, false},
		{CategoryStreakWarning, false},
		{CategoryAppointmentReminder, false},
	}
	for _, tt := range tests {
		if got := tt.cat.IsEventDriven(); got != tt.want {
			t.Errorf("%s.IsEventDriven() = %v, want %v", tt.cat, got, tt.want)
		}
	}
}

func TestPreferenceUpdateApplyTo(t *testing.T) {
	base := DefaultPreference("u1")
	hours := 3
	tz := "Europe/Paris"
	off := false

	upd := &PreferenceUpdate{
		StreakWarningHours: &hours,
		Timezone:           &tz,
		AMReminderEnabled:  &off,
	}
	got := upd.ApplyTo(base)

	if got.StreakWarningHours != 3 || got.Timezone != tz || got.AMReminderEnabled {
		t.Errorf("update not applied: %+v", got)
	}
	if !base.AMReminderEnabled || base.Timezone != "UTC" {
		t.Error("ApplyTo mutated the original")
	}
	if !got.PMReminderEnabled {
		t.Error("untouched field changed")
	}
	if upd.IsEmpty() {
		t.Error("IsEmpty() = true for non-empty update")
	}
	if !(&PreferenceUpdate{}).IsEmpty() {
		t.Error("IsEmpty() = false for empty update")
	}
}

func TestEnrolledRoutines(t *testing.T) {
	p := DefaultPreference("u1")
	if got := p.EnrolledRoutines(); len(got) != 2 {
		t.Errorf("default enrolled = %v", got)
	}

	p.PMReminderEnabled = false
	if got := p.EnrolledRoutines(); len(got) != 1 || got[0] != RoutineMorning {
		t.Errorf("am-only enrolled = %v", got)
	}

	p.AMReminderEnabled = false
	if got := p.EnrolledRoutines(); len(got) != 2 {
		t.Errorf("none enabled should enroll both, got %v", got)
	}
}

func TestHasVerifiedPhone(t *testing.T) {
	p := DefaultPreference("u1")
	if p.HasVerifiedPhone() {
		t.Error("no phone reported verified")
	}
	phone := "+15551234567"
	p.PhoneNumber = &phone
	if p.HasVerifiedPhone() {
		t.Error("unverified phone reported verified")
	}
	now := time.Now()
	p.PhoneVerifiedAt = &now
	if !p.HasVerifiedPhone() {
		t.Error("verified phone not reported")
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", NewNotFoundError("preference", "u1"))
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound() = false for wrapped NotFoundError")
	}
	if IsValidation(wrapped) {
		t.Error("IsValidation() = true for NotFoundError")
	}

	te := &TransportError{Channel: ChannelSMS, Code: "TIMEOUT", Err: errors.New("deadline")}
	if !errors.Is(te, te.Err) {
		t.Error("TransportError does not unwrap")
	}
}
