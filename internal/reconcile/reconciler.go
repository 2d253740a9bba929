// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package reconcile owns the delivery records that make reminder dispatch
// idempotent.
//
// Before a channel is dispatched its dedup key is claimed. The claim is an
// upsert guarded by the store's unique key, not a lock: of two overlapping
// ticks exactly one claims the key and the other skips the channel. After
// dispatch the outcome is recorded on the same key. A sent key is final for
// its period; failed and skipped keys are claimable again by a later tick.
//
// The reconciler also appends notification-center rows and forwards them to
// connected clients.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/dispatch"
	"github.com/tomtom215/lumaskin/internal/metrics"
	"github.com/tomtom215/lumaskin/internal/models"
)

// DefaultClaimLease is how long a pending claim blocks other ticks.
const DefaultClaimLease = 10 * time.Minute

// Store is the persistence the reconciler needs.
type Store interface {
	ClaimDelivery(ctx context.Context, key models.DeliveryKey, now time.Time, lease time.Duration) (bool, error)
	RecordDelivery(ctx context.Context, r models.DeliveryResult) error
	InsertNotification(ctx context.Context, n *models.InAppNotification) (bool, error)
}

// InboxNotifier pushes new notification-center rows to live clients.
type InboxNotifier interface {
	NotifyInbox(n *models.InAppNotification)
}

// Reconciler claims dedup keys and records outcomes.
type Reconciler struct {
	store    Store
	notifier InboxNotifier
	lease    time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a reconciler. lease <= 0 uses DefaultClaimLease.
func New(store Store, lease time.Duration, logger *zerolog.Logger) *Reconciler {
	if lease <= 0 {
		lease = DefaultClaimLease
	}
	return &Reconciler{
		store:  store,
		lease:  lease,
		logger: logger.With().Str("component", "reconciler").Logger(),
		now:    time.Now,
	}
}

// SetNotifier sets where appended inbox rows are forwarded.
func (r *Reconciler) SetNotifier(n InboxNotifier) {
	r.notifier = n
}

// Claim takes key for one send attempt. It returns false when another tick
// holds the key or the key was already sent for its period.
func (r *Reconciler) Claim(ctx context.Context, key models.DeliveryKey) (bool, error) {
	ok, err := r.store.ClaimDelivery(ctx, key, r.now().UTC(), r.lease)
	if err != nil {
		return false, err
	}
	if !ok {
		metrics.ClaimsLost.WithLabelValues(string(key.Channel)).Inc()
		r.logger.Debug().Str("key", key.String()).Msg("delivery key already held")
	}
	return ok, nil
}

// Record stores the outcome of one (category, channel) attempt.
func (r *Reconciler) Record(ctx context.Context, key models.DeliveryKey, outcome models.Outcome, res *dispatch.Result) error {
	result := models.DeliveryResult{
		Key:     key,
		Outcome: outcome,
		At:      r.now().UTC(),
	}
	var took time.Duration
	if res != nil {
		result.ErrorCode = res.ErrorCode
		result.ErrorMessage = res.ErrorMessage
		result.ExternalID = res.ExternalID
		took = res.Duration
	}

	if err := r.store.RecordDelivery(ctx, result); err != nil {
		return fmt.Errorf("failed to reconcile %s: %w", key, err)
	}
	metrics.RecordDelivery(string(key.Channel), string(outcome), took)

	event := r.logger.Debug()
	if outcome == models.OutcomeFailed {
		event = r.logger.Warn()
	}
	event.
		Str("key", key.String()).
		Str("outcome", string(outcome)).
		Str("error_code", result.ErrorCode).
		Msg("delivery reconciled")
	return nil
}

// AppendInbox writes a notification-center row and forwards it to live
// clients. A row already stored under the same dedup key counts as written.
// It implements dispatch.InboxAppender.
func (r *Reconciler) AppendInbox(ctx context.Context, n *models.InAppNotification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now().UTC()
	}
	inserted, err := r.store.InsertNotification(ctx, n)
	if err != nil {
		return err
	}
	if !inserted {
		r.logger.Debug().Str("user_id", n.UserID).Str("dedup_key", n.DedupKey).Msg("inbox row already stored")
		return nil
	}
	if r.notifier != nil {
		r.notifier.NotifyInbox(n)
	}
	return nil
}
