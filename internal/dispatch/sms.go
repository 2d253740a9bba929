// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/lumaskin/internal/models"
)

// SMS text limits.
const (
	MaxSMSLength = 160
	smsPrefix    = "Lumaskin: "
	smsOptOut    = " Reply STOP to opt out."
)

// SMSReceipt is the provider's acknowledgement of a message.
type SMSReceipt struct {
	MessageID string
	Status    string
}

// SMSProvider submits a text message to a carrier gateway.
type SMSProvider interface {
	Name() string
	SendSMS(ctx context.Context, to, body string) (*SMSReceipt, error)
}

// ProviderError is a rejection returned by the SMS provider API.
type ProviderError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("sms provider returned status %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Twilio error codes that map to a recipient problem.
const (
	twilioInvalidTo     = 21211
	twilioNotMobile     = 21614
	twilioUnsubscribed  = 21610
	twilioUnreachableTo = 30003
)

// FormatSMS renders content as a single SMS segment. The opt-out notice is
// appended only when it fits; otherwise the text is truncated.
func FormatSMS(c Content) string {
	text := smsPrefix + strings.TrimSpace(c.Title)
	if body := strings.TrimSpace(c.Body); body != "" {
		if c.Title != "" {
			text += " - "
		}
		text += body
	}
	if utf8.RuneCountInString(text)+utf8.RuneCountInString(smsOptOut) <= MaxSMSLength {
		return text + smsOptOut
	}
	return TruncateContent(text, MaxSMSLength)
}

// SMSChannel sends reminder texts through an SMSProvider.
type SMSChannel struct {
	provider SMSProvider
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewSMSChannel creates an SMS channel. ratePerSecond <= 0 disables pacing.
func NewSMSChannel(provider SMSProvider, ratePerSecond float64, logger *zerolog.Logger) *SMSChannel {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &SMSChannel{
		provider: provider,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With().Str("component", "sms-channel").Str("provider", provider.Name()).Logger(),
	}
}

// Name returns the channel identifier.
func (c *SMSChannel) Name() models.Channel {
	return models.ChannelSMS
}

// Pace waits for the channel's next send slot.
func (c *SMSChannel) Pace(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Send texts the intent to the recipient's verified phone. Pacing is left to
// the caller through Pace.
func (c *SMSChannel) Send(ctx context.Context, intent *Intent) (*Result, error) {
	to := intent.Recipient.Phone
	if to == "" {
		return Failure(ErrorCodeChannelUnavailable, "no verified phone number"), nil
	}

	receipt, err := c.provider.SendSMS(ctx, to, FormatSMS(intent.Content))
	if err != nil {
		res := classifySMSError(err)
		c.logger.Debug().
			Str("to", maskPhone(to)).
			Str("error_code", res.ErrorCode).
			Msg("sms send failed")
		return res, nil
	}
	return &Result{Success: true, ExternalID: receipt.MessageID}, nil
}

// SendText sends a message outside the reminder pipeline, such as an opt-in
// verification code. Opt-out and quota do not apply.
func (c *SMSChannel) SendText(ctx context.Context, to, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.provider.SendSMS(ctx, to, TruncateContent(body, MaxSMSLength))
	return err
}

func classifySMSError(err error) *Result {
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case twilioUnsubscribed:
			return Failure(ErrorCodeRecipientOptedOut, pe.Message)
		case twilioInvalidTo, twilioNotMobile:
			return Failure(ErrorCodeInvalidRecipient, pe.Message)
		case twilioUnreachableTo:
			return Failure(ErrorCodeRecipientNotFound, pe.Message)
		}
		code := classifyHTTPStatusCode(pe.StatusCode)
		if pe.StatusCode == 400 {
			code = ErrorCodeInvalidRecipient
		}
		return Failure(code, pe.Message)
	}
	return Failure(classifyHTTPError(err), err.Error())
}

// LogProvider records messages in the log instead of sending them.
type LogProvider struct {
	logger zerolog.Logger
}

// NewLogProvider creates a log-only SMS provider for development.
func NewLogProvider(logger *zerolog.Logger) *LogProvider {
	return &LogProvider{logger: logger.With().Str("component", "sms-log-provider").Logger()}
}

// Name returns the provider name.
func (p *LogProvider) Name() string { return "log" }

// SendSMS logs the message and reports it as queued.
func (p *LogProvider) SendSMS(_ context.Context, to, body string) (*SMSReceipt, error) {
	id := "log-" + uuid.NewString()
	p.logger.Info().Str("to", maskPhone(to)).Str("message_id", id).Int("length", utf8.RuneCountInString(body)).Msg("sms (not sent)")
	return &SMSReceipt{MessageID: id, Status: "queued"}, nil
}
