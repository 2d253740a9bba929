// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/lumaskin/internal/config"
)

// RedisCounter is a Counter shared across processes.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter connects to cfg.RedisAddr and verifies the connection.
func NewRedisCounter(ctx context.Context, cfg config.QuotaConfig) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return &RedisCounter{client: client}, nil
}

// Incr implements Counter. The expiry is set only when the key is new, so
// the window is anchored to the first send of the day.
func (r *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// decrScript decrements only a live, positive key so a late refund can not
// recreate an expired counter or push it negative.
var decrScript = redis.NewScript(`
local v = tonumber(redis.call("GET", KEYS[1]) or "0")
if v > 0 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

// Decr implements Counter.
func (r *RedisCounter) Decr(ctx context.Context, key string) error {
	return decrScript.Run(ctx, r.client, []string{key}).Err()
}

// Close implements Counter.
func (r *RedisCounter) Close() error {
	return r.client.Close()
}
