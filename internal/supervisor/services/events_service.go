// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// EventRouter is satisfied by *events.Bus.
type EventRouter interface {
	Run(ctx context.Context) error
}

// EventRouterService supervises the event consumer router.
type EventRouterService struct {
	router EventRouter
	name   string
}

// NewEventRouterService wraps router.
func NewEventRouterService(router EventRouter) *EventRouterService {
	return &EventRouterService{
		router: router,
		name:   "event-router",
	}
}

// Serve implements suture.Service. A router that stopped on its own cannot
// be run again, so it is not restarted.
func (s *EventRouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event router stopped: %w: %w", err, suture.ErrDoNotRestart)
	}
	return suture.ErrDoNotRestart
}

func (s *EventRouterService) String() string {
	return s.name
}
