// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package preferences

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/lumaskin/internal/capability"
	"github.com/tomtom215/lumaskin/internal/models"
)

const codeDigits = 6

// VerificationStore persists pending phone verifications.
type VerificationStore interface {
	SaveSMSVerification(ctx context.Context, v *models.SMSVerification) error
	GetSMSVerification(ctx context.Context, userID string) (*models.SMSVerification, error)
	IncrementSMSVerificationAttempts(ctx context.Context, userID string) error
	DeleteSMSVerification(ctx context.Context, userID string) error
	SetVerifiedPhone(ctx context.Context, userID, phone string, verifiedAt time.Time) error
}

// TextSender delivers a plain SMS outside the reminder pipeline.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// VerificationConfig bounds the opt-in flow.
type VerificationConfig struct {
	Region      string
	TTL         time.Duration
	MaxAttempts int
}

// Verifier runs SMS opt-in: a one-time code is texted to the number and the
// number is stored on the preference only after the code is confirmed.
type Verifier struct {
	prefs  *Service
	store  VerificationStore
	sender TextSender
	cfg    VerificationConfig
	logger zerolog.Logger
	now    func() time.Time

	// generateCode is swapped in tests.
	generateCode func() (string, error)
}

// NewVerifier creates a phone verifier.
func NewVerifier(prefs *Service, store VerificationStore, sender TextSender, cfg VerificationConfig, logger *zerolog.Logger) *Verifier {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Verifier{
		prefs:        prefs,
		store:        store,
		sender:       sender,
		cfg:          cfg,
		logger:       logger.With().Str("component", "phone-verification").Logger(),
		now:          time.Now,
		generateCode: randomCode,
	}
}

// Start validates phone, stores a hashed code and texts the code to the
// number. It returns the pending verification (without the code).
func (v *Verifier) Start(ctx context.Context, userID, phone string) (*models.SMSVerification, error) {
	if _, err := v.prefs.Get(ctx, userID); err != nil {
		return nil, err
	}

	probe := capability.ProbeSMS(phone, v.cfg.Region)
	if !probe.Valid {
		return nil, models.NewValidationError("phone_number", probe.Error)
	}

	code, err := v.generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash verification code: %w", err)
	}

	now := v.now().UTC()
	pending := &models.SMSVerification{
		UserID:      userID,
		PhoneNumber: probe.Formatted,
		CodeHash:    string(hash),
		ExpiresAt:   now.Add(v.cfg.TTL),
		CreatedAt:   now,
	}
	if err := v.store.SaveSMSVerification(ctx, pending); err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Your Lumaskin verification code is %s. It expires in %d minutes.", code, int(v.cfg.TTL.Minutes()))
	if err := v.sender.SendText(ctx, probe.Formatted, body); err != nil {
		if delErr := v.store.DeleteSMSVerification(ctx, userID); delErr != nil {
			v.logger.Warn().Err(delErr).Str("user_id", userID).Msg("failed to discard verification after send failure")
		}
		return nil, &models.TransportError{Channel: models.ChannelSMS, Code: "SEND_FAILED", Message: "verification code could not be sent", Transient: true, Err: err}
	}

	v.logger.Info().Str("user_id", userID).Msg("phone verification started")
	return pending, nil
}

// Confirm checks code and, on success, stores the verified phone. SMS stays
// off until the user enables it.
func (v *Verifier) Confirm(ctx context.Context, userID, code string) (*models.NotificationPreference, error) {
	pending, err := v.store.GetSMSVerification(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, models.NewNotFoundError("phone verification", userID)
	}

	now := v.now().UTC()
	if now.After(pending.ExpiresAt) {
		return nil, models.NewValidationError("code", "verification code has expired")
	}
	if pending.Attempts >= v.cfg.MaxAttempts {
		return nil, models.NewValidationError("code", "too many attempts, request a new code")
	}
	if bcrypt.CompareHashAndPassword([]byte(pending.CodeHash), []byte(code)) != nil {
		if err := v.store.IncrementSMSVerificationAttempts(ctx, userID); err != nil {
			return nil, err
		}
		return nil, models.NewValidationError("code", "verification code is incorrect")
	}

	if err := v.store.SetVerifiedPhone(ctx, userID, pending.PhoneNumber, now); err != nil {
		return nil, err
	}
	if err := v.store.DeleteSMSVerification(ctx, userID); err != nil {
		v.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to delete confirmed verification")
	}

	v.logger.Info().Str("user_id", userID).Msg("phone verified")
	return v.prefs.Get(ctx, userID)
}

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
