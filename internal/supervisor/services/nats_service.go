// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package services

import (
	"context"
	"fmt"
	"time"
)

// EmbeddedServer is satisfied by *events.EmbeddedServer.
type EmbeddedServer interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// NATSServerService owns the shutdown of an embedded NATS server that was
// started before the tree so clients could connect during wiring.
type NATSServerService struct {
	server          EmbeddedServer
	shutdownTimeout time.Duration
	name            string
}

// NewNATSServerService wraps server.
func NewNATSServerService(server EmbeddedServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-server",
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if !s.server.IsRunning() {
		return fmt.Errorf("embedded NATS server is not running")
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("embedded NATS shutdown failed: %w", err)
	}
	return ctx.Err()
}

func (s *NATSServerService) String() string {
	return s.name
}
