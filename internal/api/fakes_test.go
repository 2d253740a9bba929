// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/lumaskin/internal/capability"
	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/scheduler"
)

type fakePreferences struct {
	mu    sync.Mutex
	prefs map[string]*models.NotificationPreference
}

func newFakePreferences() *fakePreferences {
	return &fakePreferences{prefs: make(map[string]*models.NotificationPreference)}
}

func (f *fakePreferences) Get(_ context.Context, userID string) (*models.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prefs[userID]
	if !ok {
		return nil, models.NewNotFoundError("preference", userID)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePreferences) EnsureDefaults(ctx context.Context, userID string) (*models.NotificationPreference, bool, error) {
	f.mu.Lock()
	_, exists := f.prefs[userID]
	if !exists {
		p := models.DefaultPreference(userID)
		p.Version = 1
		f.prefs[userID] = p
	}
	f.mu.Unlock()
	p, err := f.Get(ctx, userID)
	return p, !exists, err
}

func (f *fakePreferences) Update(_ context.Context, userID string, upd models.PreferenceUpdate) (*models.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prefs[userID]
	if !ok {
		return nil, models.NewNotFoundError("preference", userID)
	}
	if upd.IfVersion != nil && *upd.IfVersion != p.Version {
		return nil, &models.ConflictError{Resource: "preference", Message: "version mismatch"}
	}
	merged := upd.ApplyTo(p)
	f.prefs[userID] = merged
	cp := *merged
	return &cp, nil
}

func (f *fakePreferences) RemovePhone(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	return f.Get(ctx, userID)
}

type fakePhone struct {
	startErr error
}

func (f *fakePhone) Start(_ context.Context, userID, phone string) (*models.SMSVerification, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &models.SMSVerification{UserID: userID, PhoneNumber: phone, ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (f *fakePhone) Confirm(_ context.Context, userID, _ string) (*models.NotificationPreference, error) {
	return nil, models.NewNotFoundError("phone verification", userID)
}

type fakeCapabilities struct {
	reports map[string]models.ClientCapabilityReport
}

func (f *fakeCapabilities) RecordClientReport(_ context.Context, userID string, report models.ClientCapabilityReport) error {
	if f.reports == nil {
		f.reports = make(map[string]models.ClientCapabilityReport)
	}
	report.UserID = userID
	f.reports[userID] = report
	return nil
}

func (f *fakeCapabilities) LatestReport(_ context.Context, userID string) (*models.ClientCapabilityReport, error) {
	r, ok := f.reports[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeCapabilities) ProbePush(_ context.Context, userID string) (capability.PushCapability, error) {
	r, ok := f.reports[userID]
	if !ok {
		return capability.PushCapability{Permission: models.PermissionDefault}, nil
	}
	return capability.PushCapability{
		Supported:         r.PushSupported,
		Permission:        r.Permission,
		RegistrationReady: r.RegistrationReady,
	}, nil
}

type fakeGamification struct {
	mu   sync.Mutex
	done map[string]bool
}

func (f *fakeGamification) Complete(_ context.Context, userID string, routine models.RoutineType) (*models.CompletionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == nil {
		f.done = make(map[string]bool)
	}
	key := userID + "/" + string(routine)
	st := &models.GamificationState{UserID: userID, Points: 10, CurrentStreak: 1}
	if f.done[key] {
		return &models.CompletionOutcome{State: st}, nil
	}
	f.done[key] = true
	return &models.CompletionOutcome{State: st, Recorded: true, PointsAwarded: 10}, nil
}

func (f *fakeGamification) State(_ context.Context, userID string) (*models.GamificationState, error) {
	return &models.GamificationState{UserID: userID}, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	published []models.DomainEvent
}

func (f *fakeEvents) Publish(_ context.Context, ev models.DomainEvent) error {
	if !ev.Category.IsEventDriven() {
		return models.NewValidationError("category", "not event driven")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ev)
	return nil
}

type fakeTicks struct {
	last *scheduler.TickReport
}

func (f *fakeTicks) Tick(_ context.Context) (*scheduler.TickReport, error) {
	f.last = &scheduler.TickReport{StartedAt: time.Now(), Users: 2, Processed: 2, Sent: 3}
	return f.last, nil
}

func (f *fakeTicks) LastReport() *scheduler.TickReport {
	return f.last
}

type fakeStore struct {
	mu            sync.Mutex
	pingErr       error
	subs          []models.PushSubscription
	notifications []models.InAppNotification
	appointments  map[string]*models.Appointment
}

func (f *fakeStore) Ping(_ context.Context) error { return f.pingErr }

func (f *fakeStore) SavePushSubscription(_ context.Context, s *models.PushSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = fmt.Sprintf("sub-%d", len(f.subs)+1)
	f.subs = append(f.subs, *s)
	return nil
}

func (f *fakeStore) ListPushSubscriptions(_ context.Context, userID string) ([]models.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PushSubscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) DeletePushSubscription(_ context.Context, userID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.UserID == userID && s.ID == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListNotifications(_ context.Context, userID string, filter models.NotificationFilter) ([]models.InAppNotification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.InAppNotification
	for _, n := range f.notifications {
		if n.UserID == userID && (!filter.UnreadOnly || !n.Read) {
			matched = append(matched, n)
		}
	}
	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (f *fakeStore) UnreadCount(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.notifications {
		if x.UserID == userID && !x.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) MarkNotificationRead(_ context.Context, userID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].UserID == userID && f.notifications[i].ID == id {
			f.notifications[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.notifications {
		if f.notifications[i].UserID == userID && !f.notifications[i].Read {
			f.notifications[i].Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListDeliveries(_ context.Context, _ string, _, _ int) ([]models.DeliveryRecord, error) {
	return nil, nil
}

func (f *fakeStore) UpsertAppointment(_ context.Context, a *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appointments == nil {
		f.appointments = make(map[string]*models.Appointment)
	}
	f.appointments[a.ID] = a
	return nil
}

func (f *fakeStore) CancelAppointment(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return false, nil
	}
	a.Status = models.AppointmentCancelled
	return true, nil
}

var errDatabaseDown = errors.New("database is down")
