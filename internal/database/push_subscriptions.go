// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/lumaskin/internal/models"
)

// SavePushSubscription registers a browser push endpoint. Re-registering a
// known endpoint refreshes its keys and moves it to the given user.
func (db *DB) SavePushSubscription(ctx context.Context, s *models.PushSubscription) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	err := db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (endpoint) DO UPDATE SET
				user_id = EXCLUDED.user_id,
				p256dh_key = EXCLUDED.p256dh_key,
				auth_key = EXCLUDED.auth_key,
				device_name = EXCLUDED.device_name`,
			s.ID, s.UserID, s.Endpoint, s.P256dhKey, s.AuthKey, emptyToNull(s.DeviceName), s.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}

	// The endpoint may have existed under another ID.
	return db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM push_subscriptions WHERE endpoint = ?`, s.Endpoint).
		Scan(&s.ID, &s.CreatedAt)
}

// ListPushSubscriptions returns the user's registered endpoints.
func (db *DB) ListPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at, last_used_at
		FROM push_subscriptions WHERE user_id = ?
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.PushSubscription
	for rows.Next() {
		var s models.PushSubscription
		var device sql.NullString
		var lastUsed sql.NullTime
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dhKey, &s.AuthKey,
			&device, &s.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan push subscription: %w", err)
		}
		s.DeviceName = device.String
		s.LastUsedAt = timePtr(lastUsed)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountPushSubscriptions returns how many endpoints the user has registered.
func (db *DB) CountPushSubscriptions(ctx context.Context, userID string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM push_subscriptions WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count push subscriptions: %w", err)
	}
	return n, nil
}

// DeletePushSubscription removes one of the user's subscriptions. It reports
// false when nothing matched.
func (db *DB) DeletePushSubscription(ctx context.Context, userID, id string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete push subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// DeletePushSubscriptionByEndpoint prunes an endpoint the push service
// reported as gone.
func (db *DB) DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint); err != nil {
		return fmt.Errorf("failed to prune push subscription: %w", err)
	}
	return nil
}

// TouchPushSubscription records a successful send to id.
func (db *DB) TouchPushSubscription(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`UPDATE push_subscriptions SET last_used_at = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("failed to touch push subscription: %w", err)
	}
	return nil
}
