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

// SaveClientCapability replaces the user's latest capability report.
func (db *DB) SaveClientCapability(ctx context.Context, r *models.ClientCapabilityReport) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO client_capabilities (
				user_id, push_supported, permission, registration_ready, user_agent, reported_at
			) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				push_supported = EXCLUDED.push_supported,
				permission = EXCLUDED.permission,
				registration_ready = EXCLUDED.registration_ready,
				user_agent = EXCLUDED.user_agent,
				reported_at = EXCLUDED.reported_at`,
			r.UserID, r.PushSupported, string(r.Permission), r.RegistrationReady,
			emptyToNull(r.UserAgent), r.ReportedAt)
		if err != nil {
			return fmt.Errorf("failed to save capability report: %w", err)
		}
		return nil
	})
}

// GetClientCapability returns the latest report for userID, or nil.
func (db *DB) GetClientCapability(ctx context.Context, userID string) (*models.ClientCapabilityReport, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var r models.ClientCapabilityReport
	var permission string
	var ua sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT user_id, push_supported, permission, registration_ready, user_agent, reported_at
		FROM client_capabilities WHERE user_id = ?`, userID).Scan(
		&r.UserID, &r.PushSupported, &permission, &r.RegistrationReady, &ua, &r.ReportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capability report: %w", err)
	}
	r.Permission = models.PushPermission(permission)
	r.UserAgent = ua.String
	return &r, nil
}
