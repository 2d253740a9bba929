// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package database

import (
	"context"
	"fmt"
)

func (db *DB) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS notification_preferences (
			user_id TEXT PRIMARY KEY,
			push_enabled BOOLEAN NOT NULL DEFAULT false,
			sms_enabled BOOLEAN NOT NULL DEFAULT false,
			email_enabled BOOLEAN NOT NULL DEFAULT false,
			phone_number TEXT,
			phone_verified_at TIMESTAMPTZ,
			email TEXT,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			am_reminder_time TEXT NOT NULL DEFAULT '07:00',
			pm_reminder_time TEXT NOT NULL DEFAULT '21:00',
			am_reminder_enabled BOOLEAN NOT NULL DEFAULT true,
			pm_reminder_enabled BOOLEAN NOT NULL DEFAULT true,
			streak_warning_enabled BOOLEAN NOT NULL DEFAULT true,
			feedback_notifications_enabled BOOLEAN NOT NULL DEFAULT true,
			product_recommendations_enabled BOOLEAN NOT NULL DEFAULT true,
			challenge_notifications_enabled BOOLEAN NOT NULL DEFAULT true,
			appointment_reminders_enabled BOOLEAN NOT NULL DEFAULT true,
			streak_warning_hours INTEGER NOT NULL DEFAULT 2,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		// One row per dedup key. A pending row is a claim.
		`CREATE TABLE IF NOT EXISTS delivery_records (
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			channel TEXT NOT NULL,
			period_key TEXT NOT NULL,
			outcome TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_sent_at TIMESTAMPTZ,
			claimed_at TIMESTAMPTZ NOT NULL,
			error_code TEXT,
			error_message TEXT,
			external_id TEXT,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, category, channel, period_key)
		);`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			type TEXT NOT NULL,
			category TEXT,
			read BOOLEAN NOT NULL DEFAULT false,
			read_at TIMESTAMPTZ,
			action_url TEXT,
			metadata JSON,
			dedup_key TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, dedup_key)
		);`,

		`CREATE TABLE IF NOT EXISTS routine_completions (
			user_id TEXT NOT NULL,
			completion_date TEXT NOT NULL,
			routine_type TEXT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, completion_date, routine_type)
		);`,

		`CREATE TABLE IF NOT EXISTS gamification_state (
			user_id TEXT PRIMARY KEY,
			points INTEGER NOT NULL DEFAULT 0,
			current_streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			last_completion_date TEXT,
			updated_at TIMESTAMPTZ NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			professional_id TEXT,
			title TEXT NOT NULL,
			location TEXT,
			starts_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS push_subscriptions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			endpoint TEXT NOT NULL UNIQUE,
			p256dh_key TEXT NOT NULL,
			auth_key TEXT NOT NULL,
			device_name TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			last_used_at TIMESTAMPTZ
		);`,

		`CREATE TABLE IF NOT EXISTS client_capabilities (
			user_id TEXT PRIMARY KEY,
			push_supported BOOLEAN NOT NULL,
			permission TEXT NOT NULL,
			registration_ready BOOLEAN NOT NULL,
			user_agent TEXT,
			reported_at TIMESTAMPTZ NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS sms_verifications (
			user_id TEXT PRIMARY KEY,
			phone_number TEXT NOT NULL,
			code_hash TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,

		// Upserted tables carry no secondary indexes: DuckDB rejects
		// ON CONFLICT DO UPDATE on indexed columns.
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);`,
	}

	for _, q := range queries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
