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

	"github.com/tomtom215/lumaskin/internal/models"
)

// SaveSMSVerification starts (or restarts) a phone verification for the user.
func (db *DB) SaveSMSVerification(ctx context.Context, v *models.SMSVerification) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO sms_verifications (user_id, phone_number, code_hash, attempts, expires_at, created_at)
			VALUES (?, ?, ?, 0, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				phone_number = EXCLUDED.phone_number,
				code_hash = EXCLUDED.code_hash,
				attempts = 0,
				expires_at = EXCLUDED.expires_at,
				created_at = EXCLUDED.created_at`,
			v.UserID, v.PhoneNumber, v.CodeHash, v.ExpiresAt, v.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save sms verification: %w", err)
		}
		return nil
	})
}

// GetSMSVerification returns the pending verification for userID, or nil.
func (db *DB) GetSMSVerification(ctx context.Context, userID string) (*models.SMSVerification, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var v models.SMSVerification
	err := db.conn.QueryRowContext(ctx, `
		SELECT user_id, phone_number, code_hash, attempts, expires_at, created_at
		FROM sms_verifications WHERE user_id = ?`, userID).Scan(
		&v.UserID, &v.PhoneNumber, &v.CodeHash, &v.Attempts, &v.ExpiresAt, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sms verification: %w", err)
	}
	return &v, nil
}

// IncrementSMSVerificationAttempts counts a wrong code.
func (db *DB) IncrementSMSVerificationAttempts(ctx context.Context, userID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`UPDATE sms_verifications SET attempts = attempts + 1 WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to count verification attempt: %w", err)
	}
	return nil
}

// DeleteSMSVerification discards the pending verification.
func (db *DB) DeleteSMSVerification(ctx context.Context, userID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM sms_verifications WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete sms verification: %w", err)
	}
	return nil
}
