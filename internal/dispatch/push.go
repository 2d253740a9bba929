// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/models"
)

// maxPushPayload is the largest plaintext a push service is required to accept.
const maxPushPayload = 3993

// PushSubscriptionStore is the subscription persistence the push channel needs.
type PushSubscriptionStore interface {
	ListPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error
	TouchPushSubscription(ctx context.Context, id string, at time.Time) error
}

// PushChannel sends Web Push messages signed with the server's VAPID keys.
type PushChannel struct {
	store   PushSubscriptionStore
	options webpush.Options
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewPushChannel creates a push channel. client may be nil.
func NewPushChannel(store PushSubscriptionStore, cfg config.PushConfig, client *http.Client, logger *zerolog.Logger) *PushChannel {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PushChannel{
		store: store,
		options: webpush.Options{
			HTTPClient:      client,
			Subscriber:      strings.TrimPrefix(cfg.Subscriber, "mailto:"),
			TTL:             int(ttl.Seconds()),
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "push-channel").Logger(),
	}
}

// Name returns the channel identifier.
func (c *PushChannel) Name() models.Channel {
	return models.ChannelPush
}

// Pace waits for the channel's next send slot.
func (c *PushChannel) Pace(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Send delivers the intent to every subscription of the user. It succeeds if
// at least one push service accepted the message. Subscriptions the push
// service reports as gone are deleted.
func (c *PushChannel) Send(ctx context.Context, intent *Intent) (*Result, error) {
	if c.options.VAPIDPrivateKey == "" || c.options.VAPIDPublicKey == "" {
		return nil, fmt.Errorf("push channel has no VAPID keys")
	}

	message, err := json.Marshal(BuildPushPayload(intent))
	if err != nil {
		return nil, fmt.Errorf("failed to encode push payload: %w", err)
	}
	if len(message) > maxPushPayload {
		return Failure(ErrorCodeContentTooLarge, fmt.Sprintf("push payload is %d bytes", len(message))), nil
	}

	subs, err := c.store.ListPushSubscriptions(ctx, intent.UserID)
	if err != nil {
		return Failure(ErrorCodeServerError, "failed to load push subscriptions: "+err.Error()), nil
	}
	if len(subs) == 0 {
		return Failure(ErrorCodeChannelUnavailable, "no push subscriptions"), nil
	}

	opts := c.options
	if intent.Category == models.CategoryStreakWarning || intent.Category == models.CategoryAppointmentReminder {
		opts.Urgency = webpush.UrgencyHigh
	} else {
		opts.Urgency = webpush.UrgencyNormal
	}

	var (
		delivered int
		gone      int
		last      *Result
	)
	for i := range subs {
		sub := &subs[i]
		// The first slot comes from Pace.
		if i > 0 {
			if err := c.limiter.Wait(ctx); err != nil {
				last = Failure(ErrorCodeThrottled, err.Error())
				break
			}
		}

		res := c.sendOne(ctx, message, sub, &opts)
		switch {
		case res.Success:
			delivered++
			if err := c.store.TouchPushSubscription(ctx, sub.ID, time.Now().UTC()); err != nil {
				c.logger.Debug().Err(err).Str("subscription_id", sub.ID).Msg("failed to touch push subscription")
			}
		case res.ErrorCode == ErrorCodeRecipientNotFound:
			gone++
			if err := c.store.DeletePushSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
				c.logger.Warn().Err(err).Str("subscription_id", sub.ID).Msg("failed to prune gone push subscription")
			} else {
				c.logger.Info().Str("user_id", intent.UserID).Str("subscription_id", sub.ID).Msg("pruned gone push subscription")
			}
			last = res
		default:
			last = res
		}
	}

	if delivered > 0 {
		return &Result{Success: true}, nil
	}
	if gone == len(subs) {
		return Failure(ErrorCodeRecipientNotFound, "all push subscriptions are gone"), nil
	}
	return last, nil
}

func (c *PushChannel) sendOne(ctx context.Context, message []byte, sub *models.PushSubscription, opts *webpush.Options) *Result {
	resp, err := webpush.SendNotificationWithContext(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, opts)
	if err != nil {
		return Failure(classifyHTTPError(err), err.Error())
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // Best effort cleanup
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Result{Success: true}
	}
	return Failure(classifyHTTPStatusCode(resp.StatusCode), fmt.Sprintf("push service returned status %d", resp.StatusCode))
}
