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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/lumaskin/internal/models"
)

// InsertNotification appends a notification-center row, assigning an ID and
// creation time when missing. A row whose DedupKey the user already has is
// not inserted and inserted is false.
func (db *DB) InsertNotification(ctx context.Context, n *models.InAppNotification) (inserted bool, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}

	var metadata sql.NullString
	if len(n.Metadata) > 0 {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return false, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO notifications (
			id, user_id, title, message, type, category, read, read_at, action_url, metadata, dedup_key, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, dedup_key) DO NOTHING`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), emptyToNull(string(n.Category)),
		n.Read, nullTime(n.ReadAt), emptyToNull(n.ActionURL), metadata, emptyToNull(n.DedupKey), n.CreatedAt,
	)
	if err != nil {
		if n.DedupKey != "" && isTransactionConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows == 1, nil
}

// ListNotifications returns a page of the user's notifications, newest first,
// and the total matching the filter.
func (db *DB) ListNotifications(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.InAppNotification, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where := " WHERE user_id = ?"
	if filter.UnreadOnly {
		where += " AND NOT read"
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications"+where, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, category, read, read_at, action_url,
			metadata::VARCHAR, created_at
		FROM notifications`+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer closeQuietly(rows)

	out := make([]models.InAppNotification, 0, limit)
	for rows.Next() {
		var n models.InAppNotification
		var typ string
		var category, actionURL, metadata sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &category,
			&n.Read, &readAt, &actionURL, &metadata, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = models.NotificationType(typ)
		n.Category = models.Category(category.String)
		n.ReadAt = timePtr(readAt)
		n.ActionURL = actionURL.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &n.Metadata); err != nil {
				return nil, 0, fmt.Errorf("failed to parse notification metadata: %w", err)
			}
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// UnreadCount returns how many of the user's notifications are unread.
func (db *DB) UnreadCount(ctx context.Context, userID string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND NOT read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks one notification read. It reports false when the
// notification does not exist or belongs to another user.
func (db *DB) MarkNotificationRead(ctx context.Context, userID, id string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up notification: %w", err)
	}
	if exists == 0 {
		return false, nil
	}

	_, err = db.conn.ExecContext(ctx, `
		UPDATE notifications SET read = true, read_at = ?
		WHERE id = ? AND user_id = ? AND NOT read`, time.Now().UTC(), id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return true, nil
}

// MarkAllNotificationsRead marks every unread notification read and returns
// how many changed.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE notifications SET read = true, read_at = ?
		WHERE user_id = ? AND NOT read`, time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}
