// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package events carries domain events (new feedback, product
// recommendations, challenge milestones) from their producers to the
// reminder engine.
//
// Backends:
//   - gochannel: in-process, for single-instance deployments and tests
//   - nats: an external NATS server, with a queue group so each event is
//     handled by one instance
//   - embedded: a NATS server started inside the process
//
// Each event-driven category has its own topic, lumaskin.events.<category>.
// Delivery is at-least-once from the router's point of view; handlers are
// idempotent because the engine deduplicates on the event's entity id.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/logging"
	"github.com/tomtom215/lumaskin/internal/metrics"
	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/validation"
)

// TopicPrefix prefixes every event topic.
const TopicPrefix = "lumaskin.events."

// Backends.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
	BackendEmbedded  = "embedded"
)

// Topic returns the topic of a category.
func Topic(c models.Category) string {
	return TopicPrefix + string(c)
}

// HandlerFunc processes one event. Returning an error retries the event.
type HandlerFunc func(ctx context.Context, ev models.DomainEvent) error

// Bus publishes and consumes domain events.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	wmLogger   watermill.LoggerAdapter
	logger     zerolog.Logger
	now        func() time.Time

	mu     sync.RWMutex
	closed bool
}

// New connects the configured backend. natsURL overrides cfg.NATSURL and is
// used for the embedded backend.
func New(cfg config.EventsConfig, natsURL string, logger *zerolog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger())
	b := &Bus{
		wmLogger: wmLogger,
		logger:   logger.With().Str("component", "events").Logger(),
		now:      time.Now,
	}

	switch cfg.Backend {
	case "", BackendGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)
		b.publisher, b.subscriber = ch, ch
	case BackendNATS, BackendEmbedded:
		if natsURL == "" {
			natsURL = cfg.NATSURL
		}
		pub, sub, err := newNATS(cfg, natsURL, wmLogger)
		if err != nil {
			return nil, err
		}
		b.publisher, b.subscriber = pub, sub
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 15 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		Logger:          wmLogger,
	}
	router.AddMiddleware(middleware.Recoverer, retry.Middleware)
	b.router = router

	b.logger.Info().Str("backend", cfg.Backend).Msg("event bus ready")
	return b, nil
}

func newNATS(cfg config.EventsConfig, url string, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.Name("lumaskin"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	subscribers := cfg.Subscribers
	if subscribers < 1 {
		subscribers = 1
	}
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: subscribers,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		pub.Close() //nolint:errcheck
		return nil, nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return pub, sub, nil
}

// Publish validates ev, fills its id and timestamp, and publishes it on its
// category topic. It implements gamification.EventPublisher.
func (b *Bus) Publish(ctx context.Context, ev models.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	if verr := validation.ValidateStruct(&ev); verr != nil {
		return verr.ToModelError()
	}
	if !ev.Category.IsEventDriven() {
		return models.NewValidationError("category", fmt.Sprintf("%s is not an event-driven category", ev.Category))
	}
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = b.now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(ev.EventID, payload)
	msg.Metadata.Set("category", string(ev.Category))
	msg.Metadata.Set("user_id", ev.UserID)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}
	msg.SetContext(ctx)

	topic := Topic(ev.Category)
	if err := b.publisher.Publish(topic, msg); err != nil {
		metrics.Events.WithLabelValues(topic, "failed").Inc()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.Events.WithLabelValues(topic, "published").Inc()
	return nil
}

// Handle registers fn for every event-driven category. Call before Run.
func (b *Bus) Handle(name string, fn HandlerFunc) {
	for _, c := range models.CategoriesByPriority {
		if !c.IsEventDriven() {
			continue
		}
		topic := Topic(c)
		b.router.AddConsumerHandler(name+"."+string(c), topic, b.subscriber, b.consume(topic, fn))
	}
}

func (b *Bus) consume(topic string, fn HandlerFunc) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var ev models.DomainEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			// A malformed payload never parses on retry either.
			metrics.Events.WithLabelValues(topic, "failed").Inc()
			b.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed event")
			return nil
		}

		ctx := msg.Context()
		if id := msg.Metadata.Get("correlation_id"); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		}

		if err := fn(ctx, ev); err != nil {
			if models.IsValidation(err) || models.IsNotFound(err) {
				metrics.Events.WithLabelValues(topic, "failed").Inc()
				b.logger.Warn().Err(err).Str("event_id", ev.EventID).Msg("dropping event")
				return nil
			}
			return err
		}
		metrics.Events.WithLabelValues(topic, "consumed").Inc()
		return nil
	}
}

// Run processes events until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close stops the router and the backend.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	if err := b.router.Close(); err != nil {
		firstErr = err
	}
	if err := b.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if any(b.subscriber) != any(b.publisher) {
		if err := b.subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
