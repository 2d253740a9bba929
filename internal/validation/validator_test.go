// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/lumaskin/internal/models"
)

func TestParseHHMM(t *testing.T) {
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{"07:00", 7, 0, false},
		{"21:30", 21, 30, false},
		{"23:59:00", 23, 59, false},
		{"7:00", 0, 0, true},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noon", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		h, m, err := ParseHHMM(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHHMM(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (h != tt.h || m != tt.m) {
			t.Errorf("ParseHHMM(%q) = %d:%d, want %d:%d", tt.in, h, m, tt.h, tt.m)
		}
	}
}

func TestValidTimezone(t *testing.T) {
	if !ValidTimezone("America/New_York") {
		t.Error("America/New_York should be valid")
	}
	if ValidTimezone("Mars/Olympus") {
		t.Error("Mars/Olympus should be invalid")
	}
	if ValidTimezone("Local") {
		t.Error("Local must not be accepted")
	}
}

func TestValidateStruct_PreferenceUpdate(t *testing.T) {
	bad := "7am"
	tz := "Nowhere/Land"
	upd := models.PreferenceUpdate{AMReminderTime: &bad, Timezone: &tz}

	err := ValidateStruct(&upd)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if len(err.Fields) != 2 {
		t.Fatalf("got %d field errors, want 2: %v", len(err.Fields), err)
	}

	fields := map[string]string{}
	for _, f := range err.Fields {
		fields[f.Field] = f.Tag
	}
	if fields["am_reminder_time"] != "hhmm" {
		t.Errorf("am_reminder_time tag = %q, want hhmm", fields["am_reminder_time"])
	}
	if fields["timezone"] != "timezone" {
		t.Errorf("timezone tag = %q, want timezone", fields["timezone"])
	}

	me := err.ToModelError()
	if !models.IsValidation(me) {
		t.Error("ToModelError() should be a models.ValidationError")
	}
}

func TestValidateStruct_DomainEvent(t *testing.T) {
	ev := models.DomainEvent{UserID: "u1", Category: "am_reminder", EntityID: "c1"}
	if err := ValidateStruct(&ev); err != nil {
		t.Fatalf("am_reminder is a known category, got %v", err)
	}

	ev.Category = "weather"
	err := ValidateStruct(&ev)
	if err == nil {
		t.Fatal("expected category error")
	}
	if !strings.Contains(err.Error(), "category") {
		t.Errorf("message %q does not mention category", err.Error())
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	ok := "07:15"
	tz := "Europe/London"
	if err := ValidateStruct(&models.PreferenceUpdate{AMReminderTime: &ok, Timezone: &tz}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
