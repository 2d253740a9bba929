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

const preferenceColumns = `user_id, push_enabled, sms_enabled, email_enabled,
	phone_number, phone_verified_at, email, timezone,
	am_reminder_time, pm_reminder_time,
	am_reminder_enabled, pm_reminder_enabled, streak_warning_enabled,
	feedback_notifications_enabled, product_recommendations_enabled,
	challenge_notifications_enabled, appointment_reminders_enabled,
	streak_warning_hours, version, created_at, updated_at`

// GetPreference returns the stored preference for userID, or nil if none exists.
func (db *DB) GetPreference(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = ?`, userID)

	var p models.NotificationPreference
	var phone, email sql.NullString
	var verifiedAt sql.NullTime
	err := row.Scan(
		&p.UserID, &p.PushEnabled, &p.SMSEnabled, &p.EmailEnabled,
		&phone, &verifiedAt, &email, &p.Timezone,
		&p.AMReminderTime, &p.PMReminderTime,
		&p.AMReminderEnabled, &p.PMReminderEnabled, &p.StreakWarningEnabled,
		&p.FeedbackNotificationsEnabled, &p.ProductRecommendationsEnabled,
		&p.ChallengeNotificationsEnabled, &p.AppointmentRemindersEnabled,
		&p.StreakWarningHours, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}

	p.PhoneNumber = stringPtr(phone)
	p.PhoneVerifiedAt = timePtr(verifiedAt)
	p.Email = stringPtr(email)
	return &p, nil
}

// InsertPreference stores p if the user has no preference yet.
// It reports whether a row was inserted.
func (db *DB) InsertPreference(ctx context.Context, p *models.NotificationPreference) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Version == 0 {
		p.Version = 1
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO notification_preferences (`+preferenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		p.UserID, p.PushEnabled, p.SMSEnabled, p.EmailEnabled,
		nullString(p.PhoneNumber), nullTime(p.PhoneVerifiedAt), nullString(p.Email), p.Timezone,
		p.AMReminderTime, p.PMReminderTime,
		p.AMReminderEnabled, p.PMReminderEnabled, p.StreakWarningEnabled,
		p.FeedbackNotificationsEnabled, p.ProductRecommendationsEnabled,
		p.ChallengeNotificationsEnabled, p.AppointmentRemindersEnabled,
		p.StreakWarningHours, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert preference: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// UpdatePreference writes every mutable field of p when the stored version
// still equals p.Version, then bumps the version. It reports false when the
// row changed underneath the caller.
func (db *DB) UpdatePreference(ctx context.Context, p *models.NotificationPreference) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	var n int64
	err := db.withConflictRetry(ctx, func(ctx context.Context) error {
		res, err := db.conn.ExecContext(ctx, `
			UPDATE notification_preferences SET
				push_enabled = ?, sms_enabled = ?, email_enabled = ?,
				phone_number = ?, phone_verified_at = ?, email = ?, timezone = ?,
				am_reminder_time = ?, pm_reminder_time = ?,
				am_reminder_enabled = ?, pm_reminder_enabled = ?, streak_warning_enabled = ?,
				feedback_notifications_enabled = ?, product_recommendations_enabled = ?,
				challenge_notifications_enabled = ?, appointment_reminders_enabled = ?,
				streak_warning_hours = ?, version = version + 1, updated_at = ?
			WHERE user_id = ? AND version = ?`,
			p.PushEnabled, p.SMSEnabled, p.EmailEnabled,
			nullString(p.PhoneNumber), nullTime(p.PhoneVerifiedAt), nullString(p.Email), p.Timezone,
			p.AMReminderTime, p.PMReminderTime,
			p.AMReminderEnabled, p.PMReminderEnabled, p.StreakWarningEnabled,
			p.FeedbackNotificationsEnabled, p.ProductRecommendationsEnabled,
			p.ChallengeNotificationsEnabled, p.AppointmentRemindersEnabled,
			p.StreakWarningHours, now,
			p.UserID, p.Version,
		)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to update preference: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	p.Version++
	p.UpdatedAt = now
	return true, nil
}

// DisablePush turns push off for userID. Used when the client reports that
// permission was denied.
func (db *DB) DisablePush(ctx context.Context, userID string) error {
	return db.execPreferencePatch(ctx, userID,
		`UPDATE notification_preferences
		SET push_enabled = false, version = version + 1, updated_at = ?
		WHERE user_id = ? AND push_enabled`)
}

// DisableSMS turns SMS off but keeps the verified phone, so the user can
// opt back in without verifying again.
func (db *DB) DisableSMS(ctx context.Context, userID string) error {
	return db.execPreferencePatch(ctx, userID,
		`UPDATE notification_preferences
		SET sms_enabled = false, version = version + 1, updated_at = ?
		WHERE user_id = ? AND sms_enabled`)
}

// ClearPhone removes the verified phone and turns SMS off.
func (db *DB) ClearPhone(ctx context.Context, userID string) error {
	return db.execPreferencePatch(ctx, userID,
		`UPDATE notification_preferences
		SET phone_number = NULL, phone_verified_at = NULL, sms_enabled = false,
			version = version + 1, updated_at = ?
		WHERE user_id = ?`)
}

// SetVerifiedPhone stores a phone number that passed opt-in verification.
func (db *DB) SetVerifiedPhone(ctx context.Context, userID, phone string, verifiedAt time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `
			UPDATE notification_preferences
			SET phone_number = ?, phone_verified_at = ?, version = version + 1, updated_at = ?
			WHERE user_id = ?`,
			phone, verifiedAt, time.Now().UTC(), userID)
		if err != nil {
			return fmt.Errorf("failed to set verified phone: %w", err)
		}
		return nil
	})
}

func (db *DB) execPreferencePatch(ctx context.Context, userID, query string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		if _, err := db.conn.ExecContext(ctx, query, time.Now().UTC(), userID); err != nil {
			return fmt.Errorf("failed to patch preference: %w", err)
		}
		return nil
	})
}

// ListUserIDs returns every user with a stored preference, ordered for
// stable tick iteration.
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT user_id FROM notification_preferences ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer closeQuietly(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
