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

const appointmentColumns = `id, user_id, professional_id, title, location, starts_at, status, updated_at`

// UpsertAppointment creates or replaces an appointment by ID.
func (db *DB) UpsertAppointment(ctx context.Context, a *models.Appointment) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if a.Status == "" {
		a.Status = models.AppointmentScheduled
	}
	a.UpdatedAt = time.Now().UTC()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO appointments (`+appointmentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				user_id = EXCLUDED.user_id,
				professional_id = EXCLUDED.professional_id,
				title = EXCLUDED.title,
				location = EXCLUDED.location,
				starts_at = EXCLUDED.starts_at,
				status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at`,
			a.ID, a.UserID, emptyToNull(a.ProfessionalID), a.Title, emptyToNull(a.Location),
			a.StartsAt.UTC(), string(a.Status), a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert appointment: %w", err)
		}
		return nil
	})
}

// CancelAppointment marks an appointment cancelled. It reports false when the
// appointment does not exist.
func (db *DB) CancelAppointment(ctx context.Context, id string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		string(models.AppointmentCancelled), time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// GetAppointment returns the appointment with id, or nil.
func (db *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	a, err := scanAppointment(db.conn.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// UpcomingAppointments returns the user's scheduled appointments starting in
// (from, to], soonest first.
func (db *DB) UpcomingAppointments(ctx context.Context, userID string, from, to time.Time) ([]models.Appointment, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE user_id = ? AND status = ? AND starts_at > ? AND starts_at <= ?
		ORDER BY starts_at`,
		userID, string(models.AppointmentScheduled), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	var professional, location sql.NullString
	var status string
	if err := row.Scan(&a.ID, &a.UserID, &professional, &a.Title, &location,
		&a.StartsAt, &status, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ProfessionalID = professional.String
	a.Location = location.String
	a.Status = models.AppointmentStatus(status)
	return &a, nil
}
