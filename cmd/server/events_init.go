// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/events"
	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/reminders"
	"github.com/tomtom215/lumaskin/internal/supervisor"
	"github.com/tomtom215/lumaskin/internal/supervisor/services"
)

// EventEvaluator delivers the notification of one domain event.
// *reminders.Engine satisfies it.
type EventEvaluator interface {
	HandleEvent(ctx context.Context, ev models.DomainEvent) (*reminders.Evaluation, error)
}

// EventComponents holds the bus and, for the embedded backend, the NATS
// server behind it.
type EventComponents struct {
	bus    *events.Bus
	server *events.EmbeddedServer
	logger zerolog.Logger
}

// InitEvents starts the embedded NATS server when configured, connects the
// bus and subscribes evaluator to every event-driven category.
func InitEvents(cfg *config.Config, evaluator EventEvaluator, logger *zerolog.Logger) (*EventComponents, error) {
	c := &EventComponents{logger: logger.With().Str("component", "events-init").Logger()}

	var natsURL string
	if cfg.Events.Backend == events.BackendEmbedded {
		srv, err := events.NewEmbeddedServer(cfg.Events.EmbeddedHost, cfg.Events.EmbeddedPort)
		if err != nil {
			return nil, err
		}
		c.server = srv
		natsURL = srv.ClientURL()
		c.logger.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	}

	bus, err := events.New(cfg.Events, natsURL, logger)
	if err != nil {
		c.shutdownServer()
		return nil, err
	}
	c.bus = bus
	bus.Handle("reminders", eventHandler(evaluator, c.logger))
	return c, nil
}

// AddEventsToSupervisor adds the NATS server and the event router to the
// messaging layer.
func AddEventsToSupervisor(tree *supervisor.SupervisorTree, c *EventComponents, shutdownTimeout time.Duration) {
	if c == nil {
		return
	}
	if c.server != nil {
		tree.AddMessagingService(services.NewNATSServerService(c.server, shutdownTimeout))
	}
	tree.AddMessagingService(services.NewEventRouterService(c.bus))
}

// Close closes the bus, then the embedded server.
func (c *EventComponents) Close() {
	if c == nil {
		return
	}
	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Error closing event bus")
		}
	}
	c.shutdownServer()
}

func (c *EventComponents) shutdownServer() {
	if c.server == nil || !c.server.IsRunning() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.server.Shutdown(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Error stopping embedded NATS server")
	}
}

func eventHandler(evaluator EventEvaluator, logger zerolog.Logger) events.HandlerFunc {
	return func(ctx context.Context, ev models.DomainEvent) error {
		eval, err := evaluator.HandleEvent(ctx, ev)
		if err != nil {
			return err
		}
		logger.Debug().
			Str("event_id", ev.EventID).
			Str("category", string(ev.Category)).
			Int("sent", eval.Count(models.OutcomeSent)).
			Int("failed", eval.Count(models.OutcomeFailed)).
			Msg("Event delivered")
		return nil
	}
}
