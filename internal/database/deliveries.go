// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/lumaskin/internal/models"
)

// ClaimDelivery takes the dedup key for one send attempt.
//
// A new key is inserted as pending. An existing key is taken over only when
// its last attempt failed or was skipped, or when it is a pending claim older
// than lease (the claimant died mid-send). Sent keys are never reclaimed.
// Losing a write-write race to another tick counts as not claimed.
func (db *DB) ClaimDelivery(ctx context.Context, key models.DeliveryKey, now time.Time, lease time.Duration) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO delivery_records (
			user_id, category, channel, period_key, outcome, attempts, claimed_at, updated_at
		) VALUES (?, ?, ?, ?, 'pending', 1, ?, ?)
		ON CONFLICT (user_id, category, channel, period_key) DO UPDATE SET
			outcome = 'pending',
			attempts = attempts + 1,
			claimed_at = EXCLUDED.claimed_at,
			updated_at = EXCLUDED.updated_at,
			error_code = NULL,
			error_message = NULL
		WHERE outcome IN ('failed', 'skipped')
			OR (outcome = 'pending' AND claimed_at < ?)`,
		key.UserID, string(key.Category), string(key.Channel), key.PeriodKey,
		now, now, now.Add(-lease),
	)
	if err != nil {
		if isTransactionConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim delivery %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// RecordDelivery stores the outcome of a send. A key that already reached
// sent is left untouched.
func (db *DB) RecordDelivery(ctx context.Context, r models.DeliveryResult) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	at := r.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var sentAt sql.NullTime
	if r.Outcome == models.OutcomeSent {
		sentAt = sql.NullTime{Time: at, Valid: true}
	}

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO delivery_records (
				user_id, category, channel, period_key, outcome, attempts,
				last_sent_at, claimed_at, error_code, error_message, external_id, updated_at
			) VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, category, channel, period_key) DO UPDATE SET
				outcome = EXCLUDED.outcome,
				last_sent_at = COALESCE(EXCLUDED.last_sent_at, last_sent_at),
				error_code = EXCLUDED.error_code,
				error_message = EXCLUDED.error_message,
				external_id = COALESCE(EXCLUDED.external_id, external_id),
				updated_at = EXCLUDED.updated_at
			WHERE outcome <> 'sent'`,
			r.Key.UserID, string(r.Key.Category), string(r.Key.Channel), r.Key.PeriodKey,
			string(r.Outcome), sentAt, at,
			emptyToNull(r.ErrorCode), emptyToNull(r.ErrorMessage), emptyToNull(r.ExternalID), at,
		)
		if err != nil {
			return fmt.Errorf("failed to record delivery %s: %w", r.Key, err)
		}
		return nil
	})
}

const deliveryColumns = `user_id, category, channel, period_key, outcome, attempts,
	last_sent_at, claimed_at, error_code, error_message, external_id, updated_at`

// GetDelivery returns the record for key, or nil.
func (db *DB) GetDelivery(ctx context.Context, key models.DeliveryKey) (*models.DeliveryRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT `+deliveryColumns+` FROM delivery_records
		WHERE user_id = ? AND category = ? AND channel = ? AND period_key = ?`,
		key.UserID, string(key.Category), string(key.Channel), key.PeriodKey)

	rec, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return rec, nil
}

// ListDeliveries returns the user's most recent delivery records.
func (db *DB) ListDeliveries(ctx context.Context, userID string, limit, offset int) ([]models.DeliveryRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+deliveryColumns+` FROM delivery_records
		WHERE user_id = ?
		ORDER BY updated_at DESC, category, channel
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.DeliveryRecord
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*models.DeliveryRecord, error) {
	var rec models.DeliveryRecord
	var category, channel, outcome string
	var sentAt sql.NullTime
	var code, msg, ext sql.NullString
	err := row.Scan(
		&rec.UserID, &category, &channel, &rec.PeriodKey, &outcome, &rec.Attempts,
		&sentAt, &rec.ClaimedAt, &code, &msg, &ext, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Category = models.Category(category)
	rec.Channel = models.Channel(channel)
	rec.Outcome = models.Outcome(outcome)
	rec.LastSentAt = timePtr(sentAt)
	rec.ErrorCode = code.String
	rec.ErrorMessage = msg.String
	rec.ExternalID = ext.String
	return &rec, nil
}
