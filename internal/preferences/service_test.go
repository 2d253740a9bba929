// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package preferences

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/models"
)

type mockStore struct {
	mu            sync.Mutex
	prefs         map[string]*models.NotificationPreference
	verifications map[string]*models.SMSVerification
	failUpdates   int
}

func newMockStore() *mockStore {
	return &mockStore{
		prefs:         make(map[string]*models.NotificationPreference),
		verifications: make(map[string]*models.SMSVerification),
	}
}

func (m *mockStore) GetPreference(_ context.Context, userID string) (*models.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) InsertPreference(_ context.Context, p *models.NotificationPreference) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prefs[p.UserID]; ok {
		return false, nil
	}
	cp := *p
	cp.Version = 1
	m.prefs[p.UserID] = &cp
	return true, nil
}

func (m *mockStore) UpdatePreference(_ context.Context, p *models.NotificationPreference) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdates > 0 {
		m.failUpdates--
		m.prefs[p.UserID].Version++
		return false, nil
	}
	cur := m.prefs[p.UserID]
	if cur == nil || cur.Version != p.Version {
		return false, nil
	}
	p.Version++
	cp := *p
	m.prefs[p.UserID] = &cp
	return true, nil
}

func (m *mockStore) ClearPhone(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prefs[userID]
	p.PhoneNumber, p.PhoneVerifiedAt, p.SMSEnabled = nil, nil, false
	p.Version++
	return nil
}

func (m *mockStore) DisableSMS(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok || !p.SMSEnabled {
		return nil
	}
	p.SMSEnabled = false
	p.Version++
	return nil
}

func (m *mockStore) SetVerifiedPhone(_ context.Context, userID, phone string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prefs[userID]
	p.PhoneNumber, p.PhoneVerifiedAt = &phone, &at
	p.Version++
	return nil
}

func (m *mockStore) SaveSMSVerification(_ context.Context, v *models.SMSVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.verifications[v.UserID] = &cp
	return nil
}

func (m *mockStore) GetSMSVerification(_ context.Context, userID string) (*models.SMSVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.verifications[userID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *mockStore) IncrementSMSVerificationAttempts(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications[userID].Attempts++
	return nil
}

func (m *mockStore) DeleteSMSVerification(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.verifications, userID)
	return nil
}

type mockPush struct {
	report *models.ClientCapabilityReport
}

func (m *mockPush) LatestReport(context.Context, string) (*models.ClientCapabilityReport, error) {
	return m.report, nil
}

func newTestService(t *testing.T) (*Service, *mockStore, *mockPush) {
	t.Helper()
	store := newMockStore()
	push := &mockPush{}
	logger := zerolog.Nop()
	svc := NewService(store, push, &logger)
	if _, _, err := svc.EnsureDefaults(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	return svc, store, push
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }
func int64Ptr(i int64) *int64 { return &i }

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "nobody")
	if !models.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestEnsureDefaults_Idempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, created, err := svc.EnsureDefaults(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second EnsureDefaults should not create")
	}
	if p.AMReminderTime != "07:00" || p.StreakWarningHours != models.DefaultStreakWarningHours {
		t.Errorf("defaults = %+v", p)
	}
}

func TestUpdate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		upd   models.PreferenceUpdate
		field string
	}{
		{"sms without phone", models.PreferenceUpdate{SMSEnabled: boolPtr(true)}, "sms_enabled"},
		{"email without address", models.PreferenceUpdate{EmailEnabled: boolPtr(true)}, "email_enabled"},
		{"streak hours too high", models.PreferenceUpdate{StreakWarningHours: intPtr(5)}, "streak_warning_hours"},
		{"streak hours zero", models.PreferenceUpdate{StreakWarningHours: intPtr(0)}, "streak_warning_hours"},
		{"bad timezone", models.PreferenceUpdate{Timezone: strPtr("Mars/Base")}, "timezone"},
		{"bad time", models.PreferenceUpdate{AMReminderTime: strPtr("7am")}, "am_reminder_time"},
		{"push without permission", models.PreferenceUpdate{PushEnabled: boolPtr(true)}, "push_enabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			_, err := svc.Update(context.Background(), "u1", tt.upd)
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestUpdate_Applies(t *testing.T) {
	svc, _, push := newTestService(t)
	push.report = &models.ClientCapabilityReport{Permission: models.PermissionGranted}

	got, err := svc.Update(context.Background(), "u1", models.PreferenceUpdate{
		PushEnabled:        boolPtr(true),
		Timezone:           strPtr("America/New_York"),
		PMReminderTime:     strPtr("22:15"),
		StreakWarningHours: intPtr(3),
		Email:              strPtr("me@example.com"),
		EmailEnabled:       boolPtr(true),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !got.PushEnabled || got.Timezone != "America/New_York" || got.PMReminderTime != "22:15" || got.StreakWarningHours != 3 {
		t.Errorf("updated = %+v", got)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}
	if got.AMReminderTime != "07:00" {
		t.Error("untouched fields must be preserved")
	}
}

func TestUpdate_IfVersion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, "u1", models.PreferenceUpdate{AMReminderEnabled: boolPtr(false), IfVersion: int64Ptr(7)})
	if !models.IsConflict(err) {
		t.Fatalf("err = %v, want ConflictError", err)
	}

	got, err := svc.Update(ctx, "u1", models.PreferenceUpdate{AMReminderEnabled: boolPtr(false), IfVersion: int64Ptr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if got.AMReminderEnabled {
		t.Error("AMReminderEnabled should be false")
	}
}

func TestUpdate_RetriesUnconditionalRace(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.failUpdates = 1

	got, err := svc.Update(context.Background(), "u1", models.PreferenceUpdate{ChallengeNotificationsEnabled: boolPtr(false)})
	if err != nil {
		t.Fatal(err)
	}
	if got.ChallengeNotificationsEnabled {
		t.Error("update should land after one retry")
	}
}

func TestUpdate_SMSAfterVerification(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	if err := store.SetVerifiedPhone(ctx, "u1", "+16502530000", time.Now()); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Update(ctx, "u1", models.PreferenceUpdate{SMSEnabled: boolPtr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if !got.SMSEnabled {
		t.Error("SMS should be enabled")
	}

	got, err = svc.RemovePhone(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.SMSEnabled || got.PhoneNumber != nil {
		t.Errorf("after RemovePhone: %+v", got)
	}
}

func TestDisableSMS_KeepsPhone(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	if err := store.SetVerifiedPhone(ctx, "u1", "+16502530000", time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(ctx, "u1", models.PreferenceUpdate{SMSEnabled: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}

	if err := svc.DisableSMS(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.SMSEnabled {
		t.Error("SMS should be disabled")
	}
	if !got.HasVerifiedPhone() {
		t.Error("verified phone should be kept")
	}
}

type mockSender struct {
	mu   sync.Mutex
	to   []string
	body []string
	err  error
}

func (m *mockSender) SendText(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.body = append(m.body, body)
	return m.err
}

func newTestVerifier(t *testing.T) (*Verifier, *mockStore, *mockSender) {
	t.Helper()
	svc, store, _ := newTestService(t)
	sender := &mockSender{}
	logger := zerolog.Nop()
	v := NewVerifier(svc, store, sender, VerificationConfig{Region: "US", TTL: 10 * time.Minute, MaxAttempts: 2}, &logger)
	v.generateCode = func() (string, error) { return "123456", nil }
	return v, store, sender
}

func TestVerifier_StartAndConfirm(t *testing.T) {
	v, store, sender := newTestVerifier(t)
	ctx := context.Background()

	pending, err := v.Start(ctx, "u1", "(650) 253-0000")
	if err != nil {
		t.Fatal(err)
	}
	if pending.PhoneNumber != "+16502530000" {
		t.Errorf("PhoneNumber = %q", pending.PhoneNumber)
	}
	if pending.CodeHash == "123456" || pending.CodeHash == "" {
		t.Error("code must be stored hashed")
	}
	if len(sender.body) != 1 || !strings.Contains(sender.body[0], "123456") || sender.to[0] != "+16502530000" {
		t.Errorf("sent %v to %v", sender.body, sender.to)
	}

	if _, err := v.Confirm(ctx, "u1", "000000"); !models.IsValidation(err) {
		t.Fatalf("wrong code: err = %v", err)
	}
	if store.verifications["u1"].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", store.verifications["u1"].Attempts)
	}

	p, err := v.Confirm(ctx, "u1", "123456")
	if err != nil {
		t.Fatal(err)
	}
	if !p.HasVerifiedPhone() || *p.PhoneNumber != "+16502530000" {
		t.Errorf("preference after confirm = %+v", p)
	}
	if p.SMSEnabled {
		t.Error("confirming must not enable SMS by itself")
	}
	if _, ok := store.verifications["u1"]; ok {
		t.Error("verification should be deleted after confirm")
	}
}

func TestVerifier_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid phone", func(t *testing.T) {
		v, _, _ := newTestVerifier(t)
		if _, err := v.Start(ctx, "u1", "12345"); !models.IsValidation(err) {
			t.Errorf("err = %v, want ValidationError", err)
		}
	})

	t.Run("send failure discards pending", func(t *testing.T) {
		v, store, sender := newTestVerifier(t)
		sender.err = errors.New("provider down")
		_, err := v.Start(ctx, "u1", "+16502530000")
		var te *models.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("err = %v, want TransportError", err)
		}
		if _, ok := store.verifications["u1"]; ok {
			t.Error("pending verification should be discarded")
		}
	})

	t.Run("no pending", func(t *testing.T) {
		v, _, _ := newTestVerifier(t)
		if _, err := v.Confirm(ctx, "u1", "123456"); !models.IsNotFound(err) {
			t.Errorf("err = %v, want NotFoundError", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		v, _, _ := newTestVerifier(t)
		if _, err := v.Start(ctx, "u1", "+16502530000"); err != nil {
			t.Fatal(err)
		}
		v.now = func() time.Time { return time.Now().Add(time.Hour) }
		if _, err := v.Confirm(ctx, "u1", "123456"); !models.IsValidation(err) {
			t.Errorf("err = %v, want ValidationError", err)
		}
	})

	t.Run("too many attempts", func(t *testing.T) {
		v, _, _ := newTestVerifier(t)
		if _, err := v.Start(ctx, "u1", "+16502530000"); err != nil {
			t.Fatal(err)
		}
		_, _ = v.Confirm(ctx, "u1", "111111")
		_, _ = v.Confirm(ctx, "u1", "222222")
		if _, err := v.Confirm(ctx, "u1", "123456"); !models.IsValidation(err) {
			t.Errorf("err = %v, want ValidationError after max attempts", err)
		}
	})
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != codeDigits {
			t.Fatalf("code %q has %d digits", code, len(code))
		}
	}
}
