// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package dispatch implements the reminder delivery channels.
//
// Channels:
//   - Push: Web Push (VAPID) to every registered subscription of the user
//   - SMS: Twilio Messages API, or a log-only provider for development
//   - Email: SMTP delivery with plaintext body
//   - InApp: notification-center row
//
// Every channel shapes the payload for its transport and reports a Result.
// Delivery failures are never returned as errors: they are classified into an
// error code and a transient flag so the reconciler can record them. The
// Manager runs the channels of one intent set in parallel with a per-send
// timeout, panic recovery and a circuit breaker per channel.
//
// Security:
//   - Credentials and phone numbers are never logged in full
//   - SMTP uses STARTTLS with TLS 1.2 minimum when enabled
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/tomtom215/lumaskin/internal/models"
)

// Channel delivers an intent over one transport.
type Channel interface {
	// Name returns the channel identifier.
	Name() models.Channel

	// Send delivers the intent. Delivery failures are reported in the
	// Result; a returned error means the channel itself is misconfigured.
	Send(ctx context.Context, intent *Intent) (*Result, error)
}

// Content is the channel-independent message of an intent.
type Content struct {
	Title    string
	Body     string
	URL      string
	Type     models.NotificationType
	Metadata map[string]string
}

// Recipient carries the addresses a channel may need.
type Recipient struct {
	Phone string
	Email string
}

// Pacer is implemented by channels that keep a local send rate. The manager
// waits on Pace before the send timeout starts and outside the breaker, so
// queueing for a slot is never mistaken for a slow provider.
type Pacer interface {
	Pace(ctx context.Context) error
}

// Intent is one (category, channel) delivery for one user and period.
type Intent struct {
	UserID    string
	Category  models.Category
	Channel   models.Channel
	PeriodKey string
	Content   Content
	Recipient Recipient
}

// Key returns the dedup key of the intent.
func (i *Intent) Key() models.DeliveryKey {
	return models.DeliveryKey{
		UserID:    i.UserID,
		Category:  i.Category,
		Channel:   i.Channel,
		PeriodKey: i.PeriodKey,
	}
}

// Result is the outcome of one send.
type Result struct {
	// Success indicates the provider accepted the message.
	Success bool

	// ErrorCode is a machine-readable error code.
	ErrorCode string

	// ErrorMessage contains error details if failed.
	ErrorMessage string

	// Transient marks errors a later tick may succeed on.
	Transient bool

	// ExternalID is the provider message ID, when one is returned.
	ExternalID string

	// Duration is the time spent inside the channel.
	Duration time.Duration
}

// Outcome maps the result to the outcome stored on the delivery record.
// A channel that had nothing to deliver to is skipped, not failed.
func (r *Result) Outcome() models.Outcome {
	if r.Success {
		return models.OutcomeSent
	}
	switch r.ErrorCode {
	case ErrorCodeChannelUnavailable, ErrorCodeRecipientOptedOut, ErrorCodeQuotaExceeded:
		return models.OutcomeSkipped
	default:
		return models.OutcomeFailed
	}
}

// Error codes for delivery failures.
const (
	ErrorCodeInvalidConfig      = "INVALID_CONFIG"
	ErrorCodeInvalidRecipient   = "INVALID_RECIPIENT"
	ErrorCodeConnectionFailed   = "CONNECTION_FAILED"
	ErrorCodeAuthFailed         = "AUTH_FAILED"
	ErrorCodeRateLimited        = "RATE_LIMITED"
	ErrorCodeContentTooLarge    = "CONTENT_TOO_LARGE"
	ErrorCodeRecipientNotFound  = "RECIPIENT_NOT_FOUND"
	ErrorCodeRecipientOptedOut  = "RECIPIENT_OPTED_OUT"
	ErrorCodeServerError        = "SERVER_ERROR"
	ErrorCodeTimeout            = "TIMEOUT"
	ErrorCodeCircuitOpen        = "CIRCUIT_OPEN"
	ErrorCodePanic              = "PANIC"
	ErrorCodeChannelUnavailable = "CHANNEL_UNAVAILABLE"
	ErrorCodeQuotaExceeded      = "QUOTA_EXCEEDED"
	ErrorCodeThrottled          = "THROTTLED"
	ErrorCodeUnknown            = "UNKNOWN"
)

// Failure builds a failed Result for code.
func Failure(code, message string) *Result {
	return &Result{ErrorCode: code, ErrorMessage: message, Transient: isTransientCode(code)}
}

// isTransientCode returns true if the error is transient and can be retried.
func isTransientCode(code string) bool {
	switch code {
	case ErrorCodeConnectionFailed, ErrorCodeTimeout, ErrorCodeRateLimited,
		ErrorCodeServerError, ErrorCodeCircuitOpen, ErrorCodeThrottled:
		return true
	default:
		return false
	}
}

// classifyHTTPStatusCode classifies an HTTP status code into an error code.
func classifyHTTPStatusCode(code int) string {
	switch {
	case code == 401 || code == 403:
		return ErrorCodeAuthFailed
	case code == 404 || code == 410:
		return ErrorCodeRecipientNotFound
	case code == 429:
		return ErrorCodeRateLimited
	case code == 413:
		return ErrorCodeContentTooLarge
	case code >= 500:
		return ErrorCodeServerError
	default:
		return ErrorCodeUnknown
	}
}

// classifyHTTPError classifies a transport error into an error code.
func classifyHTTPError(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return ErrorCodeTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "refused") ||
		strings.Contains(errStr, "no such host") {
		return ErrorCodeConnectionFailed
	}

	return ErrorCodeUnknown
}

// TruncateContent truncates content to maxLen runes with an ellipsis.
func TruncateContent(content string, maxLen int) string {
	runes := []rune(content)
	if maxLen <= 0 || len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return strings.TrimRight(string(runes[:maxLen-3]), " ") + "..."
}

// maskPhone keeps the last four digits for logging.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
