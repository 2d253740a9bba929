// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package quota caps how many reminder texts a user can receive per UTC day.
//
// Counters live either in process memory (single instance) or in Redis, so
// several workers share one budget. A counter key expires one day after its
// first increment.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/metrics"
)

const keyPrefix = "lumaskin:sms:"

// Counter increments a key and reports the new value. The key expires ttl
// after it was created. Decr never takes a live key below zero and ignores
// keys that do not exist.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decr(ctx context.Context, key string) error
	Close() error
}

// MemoryCounter is an in-process Counter.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryCounter creates an empty in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Incr implements Counter.
func (m *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &memoryEntry{expiresAt: now.Add(ttl)}
		m.entries[key] = e
		m.sweep(now)
	}
	e.count++
	return e.count, nil
}

// Decr implements Counter.
func (m *MemoryCounter) Decr(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil
	}
	if e.count > 0 {
		e.count--
	}
	return nil
}

// sweep drops expired keys. Called with mu held.
func (m *MemoryCounter) sweep(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// Close implements Counter.
func (m *MemoryCounter) Close() error { return nil }

// NewCounter builds the counter selected by cfg.Backend.
func NewCounter(ctx context.Context, cfg config.QuotaConfig) (Counter, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCounter(), nil
	case "redis":
		return NewRedisCounter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown quota backend %q", cfg.Backend)
	}
}

// SMSQuota enforces the per-user daily SMS cap.
type SMSQuota struct {
	counter Counter
	limit   int
	logger  zerolog.Logger
}

// NewSMSQuota creates a quota. A limit of zero or less disables the cap.
func NewSMSQuota(counter Counter, limit int, logger *zerolog.Logger) *SMSQuota {
	return &SMSQuota{
		counter: counter,
		limit:   limit,
		logger:  logger.With().Str("component", "sms-quota").Logger(),
	}
}

// Allow reserves one unit of userID's budget for the UTC day containing now
// and reports whether the send may go ahead. A rejected reservation is
// returned at once. A caller whose send does not succeed hands the unit
// back with Release, so only delivered texts count.
func (q *SMSQuota) Allow(ctx context.Context, userID string, now time.Time) (bool, error) {
	if q == nil || q.limit <= 0 {
		return true, nil
	}
	key := Key(userID, now)
	n, err := q.counter.Incr(ctx, key, 24*time.Hour)
	if err != nil {
		return false, fmt.Errorf("sms quota: %w", err)
	}
	if n > int64(q.limit) {
		if err := q.counter.Decr(ctx, key); err != nil {
			q.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to return rejected sms quota unit")
		}
		metrics.SMSQuotaRejections.Inc()
		q.logger.Info().Str("user_id", userID).Int64("count", n-1).Int("limit", q.limit).Msg("daily sms quota reached")
		return false, nil
	}
	return true, nil
}

// Release returns a unit reserved by Allow for a send that did not go out.
func (q *SMSQuota) Release(ctx context.Context, userID string, now time.Time) error {
	if q == nil || q.limit <= 0 {
		return nil
	}
	if err := q.counter.Decr(ctx, Key(userID, now)); err != nil {
		return fmt.Errorf("sms quota: %w", err)
	}
	return nil
}

// Key is the counter key for userID on the UTC day of t.
func Key(userID string, t time.Time) string {
	return keyPrefix + userID + ":" + t.UTC().Format("2006-01-02")
}
