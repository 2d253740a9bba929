// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/database"
	"github.com/tomtom215/lumaskin/internal/dispatch"
	"github.com/tomtom215/lumaskin/internal/quota"
	"github.com/tomtom215/lumaskin/internal/reconcile"
)

// deliveryComponents are the channel adapters and the SMS budget.
type deliveryComponents struct {
	manager *dispatch.Manager
	sms     *dispatch.SMSChannel
	quota   *quota.SMSQuota
	counter quota.Counter
}

// Close releases the quota counter.
func (d *deliveryComponents) Close() error {
	if d == nil || d.counter == nil {
		return nil
	}
	return d.counter.Close()
}

// initDelivery registers every enabled channel with a dispatch manager.
// In-app is always registered. The SMS channel is built even when SMS
// reminders are off because phone verification texts go through it.
func initDelivery(ctx context.Context, cfg *config.Config, db *database.DB, inbox *reconcile.Reconciler, logger *zerolog.Logger) (*deliveryComponents, error) {
	if err := dispatch.ValidateStyles(); err != nil {
		return nil, err
	}

	manager := dispatch.NewManager(logger, dispatch.ManagerConfig{
		SendTimeout: cfg.Reminders.SendTimeout,
		Breaker:     cfg.Breaker,
	})
	client := &http.Client{Timeout: 15 * time.Second}

	manager.Register(dispatch.NewInAppChannel(inbox))

	if cfg.Push.Enabled {
		manager.Register(dispatch.NewPushChannel(db, cfg.Push, client, logger))
	}

	provider, err := newSMSProvider(cfg.SMS, client, logger)
	if err != nil {
		return nil, err
	}
	sms := dispatch.NewSMSChannel(provider, cfg.SMS.RatePerSecond, logger)
	if cfg.SMS.Enabled {
		manager.Register(sms)
	}

	if cfg.Email.Enabled {
		email := dispatch.NewEmailChannel(cfg.Email, cfg.Reminders.AppBaseURL)
		if err := email.Validate(); err != nil {
			return nil, fmt.Errorf("email channel: %w", err)
		}
		manager.Register(email)
	}

	counter, err := quota.NewCounter(ctx, cfg.Quota)
	if err != nil {
		return nil, err
	}

	return &deliveryComponents{
		manager: manager,
		sms:     sms,
		quota:   quota.NewSMSQuota(counter, cfg.Quota.SMSPerDay, logger),
		counter: counter,
	}, nil
}

func newSMSProvider(cfg config.SMSConfig, client *http.Client, logger *zerolog.Logger) (dispatch.SMSProvider, error) {
	switch cfg.Provider {
	case "", "log":
		return dispatch.NewLogProvider(logger), nil
	case "twilio":
		p, err := dispatch.NewTwilioProvider(cfg, client)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
	}
}
