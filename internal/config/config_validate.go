// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateSecurity,
		c.validateReminders,
		c.validatePush,
		c.validateSMS,
		c.validateEmail,
		c.validateEvents,
		c.validateQuota,
		c.validateBreaker,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, production or test, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "off":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Security.SessionTTL <= 0 || c.Security.SessionTTL > 24*time.Hour {
		return fmt.Errorf("SESSION_TTL must be between 0 and 24h, got %s", c.Security.SessionTTL)
	}
	if c.Security.ServiceKey == "" {
		return fmt.Errorf("SERVICE_KEY is required to issue session tokens")
	}
	if c.IsProduction() {
		for _, o := range c.Security.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateReminders() error {
	r := c.Reminders
	if r.TickInterval < time.Second {
		return fmt.Errorf("REMINDERS_TICK_INTERVAL must be at least 1s, got %s", r.TickInterval)
	}
	if r.MaxConcurrentUsers < 1 {
		return fmt.Errorf("REMINDERS_MAX_CONCURRENT must be at least 1")
	}
	if r.SendTimeout <= 0 || r.SendTimeout > time.Minute {
		return fmt.Errorf("REMINDERS_SEND_TIMEOUT must be between 0 and 1m, got %s", r.SendTimeout)
	}
	if r.TickTimeout < r.SendTimeout {
		return fmt.Errorf("REMINDERS_TICK_TIMEOUT must not be shorter than the send timeout")
	}
	// A tolerance shorter than the tick interval lets a reminder fall between ticks.
	if r.ToleranceWindow < r.TickInterval {
		return fmt.Errorf("REMINDERS_TOLERANCE_WINDOW (%s) must be at least the tick interval (%s)", r.ToleranceWindow, r.TickInterval)
	}
	if r.ClaimLease < r.SendTimeout {
		return fmt.Errorf("REMINDERS_CLAIM_LEASE must be longer than the send timeout")
	}
	for _, th := range r.AppointmentThresholds {
		if th <= 0 {
			return fmt.Errorf("appointment thresholds must be positive, got %s", th)
		}
	}
	if len(r.DefaultRegion) != 2 {
		return fmt.Errorf("PHONE_DEFAULT_REGION must be a two-letter region code")
	}
	if _, err := url.ParseRequestURI(r.AppBaseURL); err != nil {
		return fmt.Errorf("APP_BASE_URL is not a valid URL: %w", err)
	}
	return nil
}

func (c *Config) validatePush() error {
	if !c.Push.Enabled {
		return nil
	}
	if c.Push.VAPIDPublicKey == "" || c.Push.VAPIDPrivateKey == "" {
		return fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY are required when push is enabled")
	}
	if !strings.HasPrefix(c.Push.Subscriber, "mailto:") && !strings.HasPrefix(c.Push.Subscriber, "https://") {
		return fmt.Errorf("VAPID_SUBSCRIBER must be a mailto: or https: URL")
	}
	if c.Push.RatePerSecond <= 0 {
		return fmt.Errorf("PUSH_RATE_PER_SECOND must be positive")
	}
	return nil
}

func (c *Config) validateSMS() error {
	if !c.SMS.Enabled {
		return nil
	}
	switch c.SMS.Provider {
	case "log":
	case "twilio":
		if c.SMS.AccountSID == "" || c.SMS.AuthToken == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required for the twilio provider")
		}
		if c.SMS.FromNumber == "" && c.SMS.MessagingServiceSID == "" {
			return fmt.Errorf("TWILIO_FROM_NUMBER or TWILIO_MESSAGING_SERVICE_SID is required")
		}
		if _, err := url.ParseRequestURI(c.SMS.BaseURL); err != nil {
			return fmt.Errorf("TWILIO_BASE_URL is not a valid URL: %w", err)
		}
	default:
		return fmt.Errorf("SMS_PROVIDER must be twilio or log, got %q", c.SMS.Provider)
	}
	if c.SMS.RatePerSecond <= 0 {
		return fmt.Errorf("SMS_RATE_PER_SECOND must be positive")
	}
	if c.SMS.VerificationTTL < time.Minute {
		return fmt.Errorf("SMS_VERIFICATION_TTL must be at least 1m")
	}
	if c.SMS.VerificationMaxTry < 1 {
		return fmt.Errorf("SMS_VERIFICATION_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) validateEmail() error {
	if !c.Email.Enabled {
		return nil
	}
	if c.Email.Host == "" || c.Email.From == "" {
		return fmt.Errorf("SMTP_HOST and SMTP_FROM are required when email is enabled")
	}
	if c.Email.Port < 1 || c.Email.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Backend {
	case "gochannel":
		return nil
	case "nats":
		if _, err := url.Parse(c.Events.NATSURL); err != nil || c.Events.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required for the nats backend")
		}
	case "embedded":
		if c.Events.EmbeddedPort < 1 || c.Events.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be gochannel, nats or embedded, got %q", c.Events.Backend)
	}
	if c.Events.Subscribers < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1")
	}
	return nil
}

func (c *Config) validateQuota() error {
	if c.Quota.SMSPerDay < 0 {
		return fmt.Errorf("SMS_QUOTA_PER_DAY must not be negative")
	}
	switch c.Quota.Backend {
	case "memory":
	case "redis":
		if c.Quota.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis quota backend")
		}
	default:
		return fmt.Errorf("QUOTA_BACKEND must be memory or redis, got %q", c.Quota.Backend)
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	if c.Breaker.OpenTimeout < time.Second {
		return fmt.Errorf("BREAKER_OPEN_TIMEOUT must be at least 1s")
	}
	return nil
}
