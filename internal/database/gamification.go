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

// CompletionTx is the unit of work handed to RecordCompletion callbacks. All
// reads and writes go through the same transaction.
type CompletionTx struct {
	tx *sql.Tx
}

// RecordCompletion inserts c and, inside the same transaction, lets apply
// fold it into the user's gamification state. inserted is false when the
// completion already existed; apply still runs so callers can evaluate the
// current state.
func (db *DB) RecordCompletion(ctx context.Context, c models.RoutineCompletion, apply func(tx *CompletionTx, inserted bool) error) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO routine_completions (user_id, completion_date, routine_type, completed_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (user_id, completion_date, routine_type) DO NOTHING`,
				c.UserID, c.CompletionDate, string(c.RoutineType), c.CompletedAt)
			if err != nil {
				return fmt.Errorf("failed to insert completion: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			return apply(&CompletionTx{tx: tx}, n == 1)
		})
	})
}

// CompletedRoutines lists the routine types completed on date.
func (t *CompletionTx) CompletedRoutines(ctx context.Context, userID, date string) ([]models.RoutineType, error) {
	return completedRoutines(ctx, t.tx, userID, date)
}

// State returns the stored gamification state, or nil.
func (t *CompletionTx) State(ctx context.Context, userID string) (*models.GamificationState, error) {
	return getGamificationState(ctx, t.tx, userID)
}

// SaveState upserts s.
func (t *CompletionTx) SaveState(ctx context.Context, s *models.GamificationState) error {
	return saveGamificationState(ctx, t.tx, s)
}

// CompletedRoutines lists the routine types the user completed on date.
func (db *DB) CompletedRoutines(ctx context.Context, userID, date string) ([]models.RoutineType, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return completedRoutines(ctx, db.conn, userID, date)
}

// GetGamificationState returns the stored state for userID, or nil.
func (db *DB) GetGamificationState(ctx context.Context, userID string) (*models.GamificationState, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return getGamificationState(ctx, db.conn, userID)
}

// SaveGamificationState upserts s outside a completion transaction.
func (db *DB) SaveGamificationState(ctx context.Context, s *models.GamificationState) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		return saveGamificationState(ctx, db.conn, s)
	})
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func completedRoutines(ctx context.Context, q querier, userID, date string) ([]models.RoutineType, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT routine_type FROM routine_completions
		WHERE user_id = ? AND completion_date = ?
		ORDER BY routine_type`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.RoutineType
	for rows.Next() {
		var rt string
		if err := rows.Scan(&rt); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		out = append(out, models.RoutineType(rt))
	}
	return out, rows.Err()
}

func getGamificationState(ctx context.Context, q querier, userID string) (*models.GamificationState, error) {
	var s models.GamificationState
	var last sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT user_id, points, current_streak, longest_streak, level, last_completion_date, updated_at
		FROM gamification_state WHERE user_id = ?`, userID).Scan(
		&s.UserID, &s.Points, &s.CurrentStreak, &s.LongestStreak, &s.Level, &last, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gamification state: %w", err)
	}
	s.LastCompletionDate = last.String
	return &s, nil
}

func saveGamificationState(ctx context.Context, q querier, s *models.GamificationState) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO gamification_state (
			user_id, points, current_streak, longest_streak, level, last_completion_date, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			points = EXCLUDED.points,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			level = EXCLUDED.level,
			last_completion_date = EXCLUDED.last_completion_date,
			updated_at = EXCLUDED.updated_at`,
		s.UserID, s.Points, s.CurrentStreak, s.LongestStreak, s.Level,
		emptyToNull(s.LastCompletionDate), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save gamification state: %w", err)
	}
	return nil
}
