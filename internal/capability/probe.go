// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package capability answers whether a user can currently be reached on the
// push and SMS channels.
//
// Push readiness comes from the latest report the client sent about its
// browser (support, permission, service worker registration) combined with
// at least one stored push subscription. It is read fresh on every call.
//
// SMS capability is a syntactic check: the number parses and is valid for
// its region. Deliverability is only learned when a send is attempted.
package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/models"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "US"

// PushCapability is the push readiness of one user.
type PushCapability struct {
	Supported         bool                  `json:"supported"`
	Permission        models.PushPermission `json:"permission"`
	RegistrationReady bool                  `json:"registration_ready"`
	Subscriptions     int                   `json:"subscriptions"`
}

// Deliverable reports whether a push can be attempted right now.
func (c PushCapability) Deliverable() bool {
	return c.Err() == nil
}

// Err returns a *models.CapabilityError naming why push can not be attempted,
// or nil when it can.
func (c PushCapability) Err() error {
	var reason string
	switch {
	case !c.Supported:
		reason = "client does not support push"
	case c.Permission != models.PermissionGranted:
		reason = fmt.Sprintf("notification permission is %q", c.Permission)
	case !c.RegistrationReady:
		reason = "no active push subscription"
	default:
		return nil
	}
	return &models.CapabilityError{Channel: models.ChannelPush, Reason: reason}
}

// SMSCapability is the outcome of checking a phone number.
type SMSCapability struct {
	Valid     bool   `json:"valid"`
	Formatted string `json:"formatted,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Store is the persistence the probe needs.
type Store interface {
	GetClientCapability(ctx context.Context, userID string) (*models.ClientCapabilityReport, error)
	SaveClientCapability(ctx context.Context, r *models.ClientCapabilityReport) error
	CountPushSubscriptions(ctx context.Context, userID string) (int, error)
	DisablePush(ctx context.Context, userID string) error
}

// Probe checks channel capability.
type Probe struct {
	store  Store
	region string
	logger zerolog.Logger
	now    func() time.Time
}

// NewProbe creates a probe. region is the default phone region for numbers
// written without a country code.
func NewProbe(store Store, region string, logger *zerolog.Logger) *Probe {
	if region == "" {
		region = DefaultRegion
	}
	return &Probe{
		store:  store,
		region: strings.ToUpper(region),
		logger: logger.With().Str("component", "capability").Logger(),
		now:    time.Now,
	}
}

// ProbePush reads the latest client report and subscription count for userID.
// A user who never reported is treated as unsupported with default permission.
func (p *Probe) ProbePush(ctx context.Context, userID string) (PushCapability, error) {
	report, err := p.store.GetClientCapability(ctx, userID)
	if err != nil {
		return PushCapability{}, fmt.Errorf("failed to load capability report: %w", err)
	}
	if report == nil {
		return PushCapability{Permission: models.PermissionDefault}, nil
	}

	subs, err := p.store.CountPushSubscriptions(ctx, userID)
	if err != nil {
		return PushCapability{}, fmt.Errorf("failed to count push subscriptions: %w", err)
	}

	return PushCapability{
		Supported:         report.PushSupported,
		Permission:        report.Permission,
		RegistrationReady: report.RegistrationReady && subs > 0,
		Subscriptions:     subs,
	}, nil
}

// ProbeSMS validates phone against the probe's default region.
func (p *Probe) ProbeSMS(phone string) SMSCapability {
	return ProbeSMS(phone, p.region)
}

// ProbeSMS validates phone and returns its E.164 form. region applies to
// numbers without a leading country code.
func ProbeSMS(phone, region string) SMSCapability {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return SMSCapability{Error: "phone number is empty"}
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return SMSCapability{Error: err.Error()}
	}
	if !phonenumbers.IsValidNumber(num) {
		return SMSCapability{Error: "phone number is not valid for its region"}
	}
	return SMSCapability{Valid: true, Formatted: phonenumbers.Format(num, phonenumbers.E164)}
}

// RecordClientReport stores report as the user's latest capability. A denied
// permission turns push off in the user's preferences.
func (p *Probe) RecordClientReport(ctx context.Context, userID string, report models.ClientCapabilityReport) error {
	if !report.Permission.IsValid() {
		return models.NewValidationError("permission", "must be one of granted, denied, default")
	}
	report.UserID = userID
	if report.ReportedAt.IsZero() {
		report.ReportedAt = p.now().UTC()
	}

	if err := p.store.SaveClientCapability(ctx, &report); err != nil {
		return err
	}

	if report.Permission == models.PermissionDenied {
		if err := p.store.DisablePush(ctx, userID); err != nil {
			return fmt.Errorf("failed to disable push after denial: %w", err)
		}
		p.logger.Info().Str("user_id", userID).Msg("push permission denied, push disabled")
	}
	return nil
}

// LatestReport returns the stored report, or nil if the client never reported.
func (p *Probe) LatestReport(ctx context.Context, userID string) (*models.ClientCapabilityReport, error) {
	return p.store.GetClientCapability(ctx, userID)
}
