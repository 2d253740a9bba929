// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package preferences owns the per-user notification preference record.
//
// Updates are partial and validated against the merged record, so a patch
// can never leave a user with SMS enabled and no verified phone, or push
// enabled without a granted browser permission. Every write bumps the
// record's version; callers may pass the version they read to make the
// update conditional.
package preferences

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/validation"
)

const maxUpdateAttempts = 3

// Store is the persistence the service needs.
type Store interface {
	GetPreference(ctx context.Context, userID string) (*models.NotificationPreference, error)
	InsertPreference(ctx context.Context, p *models.NotificationPreference) (bool, error)
	UpdatePreference(ctx context.Context, p *models.NotificationPreference) (bool, error)
	ClearPhone(ctx context.Context, userID string) error
	DisableSMS(ctx context.Context, userID string) error
}

// PushChecker reports the latest client permission for a user.
type PushChecker interface {
	LatestReport(ctx context.Context, userID string) (*models.ClientCapabilityReport, error)
}

// Service reads and writes preferences.
type Service struct {
	store  Store
	push   PushChecker
	logger zerolog.Logger
}

// NewService creates a preference service.
func NewService(store Store, push PushChecker, logger *zerolog.Logger) *Service {
	return &Service{
		store:  store,
		push:   push,
		logger: logger.With().Str("component", "preferences").Logger(),
	}
}

// Get returns the user's preference or a NotFoundError.
func (s *Service) Get(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	p, err := s.store.GetPreference(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, models.NewNotFoundError("preference", userID)
	}
	return p, nil
}

// EnsureDefaults creates the default preference for a new user. It returns
// the stored record and whether it was created by this call.
func (s *Service) EnsureDefaults(ctx context.Context, userID string) (*models.NotificationPreference, bool, error) {
	if userID == "" {
		return nil, false, models.NewValidationError("user_id", "is required")
	}
	created, err := s.store.InsertPreference(ctx, models.DefaultPreference(userID))
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info().Str("user_id", userID).Msg("default preferences created")
	}
	p, err := s.Get(ctx, userID)
	return p, created, err
}

// Update applies a partial update and returns the stored result.
//
// Errors: NotFoundError when the user has no preference, ValidationError when
// the merged record breaks a rule, ConflictError when upd.IfVersion does not
// match the stored version.
func (s *Service) Update(ctx context.Context, userID string, upd models.PreferenceUpdate) (*models.NotificationPreference, error) {
	if verr := validation.ValidateStruct(&upd); verr != nil {
		return nil, verr.ToModelError()
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if upd.IfVersion != nil && *upd.IfVersion != current.Version {
			return nil, &models.ConflictError{
				Resource: "preference",
				Message:  fmt.Sprintf("version %d does not match current version %d", *upd.IfVersion, current.Version),
			}
		}
		if upd.IsEmpty() {
			return current, nil
		}

		merged := upd.ApplyTo(current)
		if err := s.validateMerged(ctx, merged, &upd); err != nil {
			return nil, err
		}

		ok, err := s.store.UpdatePreference(ctx, merged)
		if err != nil {
			return nil, err
		}
		if ok {
			s.logger.Debug().Str("user_id", userID).Int64("version", merged.Version).Msg("preferences updated")
			return merged, nil
		}
		if upd.IfVersion != nil {
			return nil, &models.ConflictError{Resource: "preference", Message: "preference changed concurrently"}
		}
	}
	return nil, &models.ConflictError{Resource: "preference", Message: "too many concurrent updates"}
}

func (s *Service) validateMerged(ctx context.Context, p *models.NotificationPreference, upd *models.PreferenceUpdate) error {
	if p.SMSEnabled && !p.HasVerifiedPhone() {
		return models.NewValidationError("sms_enabled", "a verified phone number is required before enabling SMS")
	}
	if p.EmailEnabled && !p.HasEmail() {
		return models.NewValidationError("email_enabled", "an email address is required before enabling email")
	}
	if p.StreakWarningHours < models.MinStreakWarningHours || p.StreakWarningHours > models.MaxStreakWarningHours {
		return models.NewValidationError("streak_warning_hours",
			fmt.Sprintf("must be between %d and %d", models.MinStreakWarningHours, models.MaxStreakWarningHours))
	}
	if !validation.ValidTimezone(p.Timezone) {
		return models.NewValidationError("timezone", "must be an IANA timezone")
	}
	for field, v := range map[string]string{"am_reminder_time": p.AMReminderTime, "pm_reminder_time": p.PMReminderTime} {
		if _, _, err := validation.ParseHHMM(v); err != nil {
			return models.NewValidationError(field, "must be a time of day in HH:MM format")
		}
	}

	// Only a request that turns push on needs a fresh permission check;
	// revocation is handled when the client reports it.
	if upd.PushEnabled != nil && *upd.PushEnabled {
		report, err := s.push.LatestReport(ctx, p.UserID)
		if err != nil {
			return err
		}
		if report == nil || report.Permission != models.PermissionGranted {
			return models.NewValidationError("push_enabled", "push permission has not been granted on any device")
		}
	}
	return nil
}

// RemovePhone forgets the verified phone and turns SMS off.
func (s *Service) RemovePhone(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.ClearPhone(ctx, userID); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Msg("phone removed, sms disabled")
	return s.Get(ctx, userID)
}

// DisableSMS turns SMS off after the carrier reports the number as
// unsubscribed. The phone stays verified.
func (s *Service) DisableSMS(ctx context.Context, userID string) error {
	if err := s.store.DisableSMS(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("sms disabled after carrier opt-out")
	return nil
}
