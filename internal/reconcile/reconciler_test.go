// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/dispatch"
	"github.com/tomtom215/lumaskin/internal/models"
)

type mockStore struct {
	mu       sync.Mutex
	claimed  map[models.DeliveryKey]bool
	results  []models.DeliveryResult
	inbox    []*models.InAppNotification
	lease    time.Duration
	failNext error
}

func newMockStore() *mockStore {
	return &mockStore{claimed: make(map[models.DeliveryKey]bool)}
}

func (m *mockStore) ClaimDelivery(_ context.Context, key models.DeliveryKey, _ time.Time, lease time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lease = lease
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *mockStore) RecordDelivery(_ context.Context, r models.DeliveryResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.results = append(m.results, r)
	return nil
}

func (m *mockStore) InsertNotification(_ context.Context, n *models.InAppNotification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.DedupKey != "" {
		for _, row := range m.inbox {
			if row.UserID == n.UserID && row.DedupKey == n.DedupKey {
				return false, nil
			}
		}
	}
	n.ID = fmt.Sprintf("n%d", len(m.inbox)+1)
	m.inbox = append(m.inbox, n)
	return true, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	rows []*models.InAppNotification
}

func (r *recordingNotifier) NotifyInbox(n *models.InAppNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, n)
}

func newTestReconciler(store Store) *Reconciler {
	logger := zerolog.Nop()
	return New(store, 0, &logger)
}

func TestClaim(t *testing.T) {
	store := newMockStore()
	r := newTestReconciler(store)
	key := models.DeliveryKey{UserID: "u1", Category: models.CategoryAMReminder, Channel: models.ChannelPush, PeriodKey: "2026-03-01:am"}

	ok, err := r.Claim(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("first Claim() = %v, %v", ok, err)
	}
	ok, err = r.Claim(context.Background(), key)
	if err != nil || ok {
		t.Errorf("second Claim() = %v, %v, want false", ok, err)
	}
	if store.lease != DefaultClaimLease {
		t.Errorf("lease = %v, want %v", store.lease, DefaultClaimLease)
	}
}

func TestClaim_Concurrent(t *testing.T) {
	store := newMockStore()
	r := newTestReconciler(store)
	key := models.DeliveryKey{UserID: "u1", Category: models.CategoryStreakWarning, Channel: models.ChannelSMS, PeriodKey: "2026-03-01:streak"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.Claim(context.Background(), key)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestRecord(t *testing.T) {
	store := newMockStore()
	r := newTestReconciler(store)
	key := models.DeliveryKey{UserID: "u1", Category: models.CategoryPMReminder, Channel: models.ChannelSMS, PeriodKey: "2026-03-01:pm"}

	err := r.Record(context.Background(), key, models.OutcomeFailed, &dispatch.Result{
		ErrorCode:    dispatch.ErrorCodeTimeout,
		ErrorMessage: "send did not finish",
		Duration:     5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.results) != 1 {
		t.Fatalf("results = %d", len(store.results))
	}
	got := store.results[0]
	if got.Key != key || got.Outcome != models.OutcomeFailed || got.ErrorCode != dispatch.ErrorCodeTimeout || got.At.IsZero() {
		t.Errorf("recorded = %+v", got)
	}

	if err := r.Record(context.Background(), key, models.OutcomeSkipped, nil); err != nil {
		t.Fatal(err)
	}

	store.failNext = errors.New("database is locked")
	if err := r.Record(context.Background(), key, models.OutcomeSent, &dispatch.Result{Success: true}); err == nil {
		t.Error("expected store error")
	}
}

func TestAppendInbox(t *testing.T) {
	store := newMockStore()
	r := newTestReconciler(store)
	notifier := &recordingNotifier{}
	r.SetNotifier(notifier)

	n := &models.InAppNotification{UserID: "u1", Title: "Morning routine", Message: "Time to glow"}
	if err := r.AppendInbox(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	if n.ID != "n1" || n.CreatedAt.IsZero() {
		t.Errorf("notification = %+v", n)
	}
	if len(notifier.rows) != 1 || notifier.rows[0] != n {
		t.Errorf("notifier rows = %v", notifier.rows)
	}
}

func TestAppendInbox_SameKeyOnce(t *testing.T) {
	store := newMockStore()
	r := newTestReconciler(store)
	notifier := &recordingNotifier{}
	r.SetNotifier(notifier)

	key := "u1/am_reminder/in_app/2026-03-10:am"
	for i := 0; i < 2; i++ {
		n := &models.InAppNotification{UserID: "u1", Title: "Morning routine", Message: "Time to glow", DedupKey: key}
		if err := r.AppendInbox(context.Background(), n); err != nil {
			t.Fatal(err)
		}
	}
	if len(store.inbox) != 1 {
		t.Errorf("inbox rows = %d, want 1", len(store.inbox))
	}
	if len(notifier.rows) != 1 {
		t.Errorf("live notifications = %d, want 1", len(notifier.rows))
	}
}
