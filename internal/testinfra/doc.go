// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests.
// Files are built only with the integration tag:
//
//	go test -tags integration ./internal/quota/...
//
// # Redis Container
//
// RedisContainer starts a throwaway Redis used by the SMS quota counter:
//
//	func TestRedisCounter(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, rc)
//
//	    counter, err := quota.NewRedisCounter(ctx, config.QuotaConfig{RedisAddr: rc.Addr})
//	    // ...
//	}
//
// # CI Considerations
//
// These tests require Docker and network access. Tests are skipped gracefully
// if Docker is unavailable.
package testinfra
