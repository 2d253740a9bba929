// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package config loads Lumaskin configuration.
//
// Configuration is layered with koanf: struct defaults, then an optional YAML
// file (CONFIG_PATH or one of DefaultConfigPaths), then environment variables.
// Only environment variables listed in envMappings are honoured.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Invalid configuration")
//	}
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
	Security  SecurityConfig  `koanf:"security"`
	Reminders RemindersConfig `koanf:"reminders"`
	Push      PushConfig      `koanf:"push"`
	SMS       SMSConfig       `koanf:"sms"`
	Email     EmailConfig     `koanf:"email"`
	Events    EventsConfig    `koanf:"events"`
	Quota     QuotaConfig     `koanf:"quota"`
	Breaker   BreakerConfig   `koanf:"breaker"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development or production
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path of the DuckDB file. Empty means in-memory.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig covers sessions, authorization and the HTTP edge.
type SecurityConfig struct {
	// JWTSecret signs session tokens (HS256). At least 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTTL is the lifetime of an issued token. Tokens are short-lived and
	// revalidated against the session store on every request.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// SessionStorePath is the Badger directory holding live sessions.
	// Empty runs Badger in memory.
	SessionStorePath string `koanf:"session_store_path"`

	// ServiceKey authenticates the trusted backend that exchanges an upstream
	// identity for a session token.
	ServiceKey string `koanf:"service_key"`

	// PolicyPath optionally overrides the embedded authorization policy.
	PolicyPath string `koanf:"policy_path"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// RemindersConfig drives the tick scheduler and decision engine.
type RemindersConfig struct {
	// Enabled controls whether the periodic tick runs.
	Enabled bool `koanf:"enabled"`

	// TickInterval is how often every active user is evaluated.
	TickInterval time.Duration `koanf:"tick_interval"`

	// MaxConcurrentUsers bounds per-tick parallelism.
	MaxConcurrentUsers int `koanf:"max_concurrent_users"`

	// TickTimeout bounds a whole tick.
	TickTimeout time.Duration `koanf:"tick_timeout"`

	// SendTimeout bounds one channel send; a timeout is a failed outcome.
	SendTimeout time.Duration `koanf:"send_timeout"`

	// ToleranceWindow is how long after a configured reminder time the
	// reminder may still fire.
	ToleranceWindow time.Duration `koanf:"tolerance_window"`

	// ClaimLease is how long a pending dedup claim blocks other ticks.
	ClaimLease time.Duration `koanf:"claim_lease"`

	// AppointmentThresholds are the look-ahead windows for appointment reminders.
	AppointmentThresholds []time.Duration `koanf:"appointment_thresholds"`

	// DefaultRegion is used to parse phone numbers without a country code.
	DefaultRegion string `koanf:"default_region"`

	// AppBaseURL prefixes action URLs in push payloads, SMS and email bodies.
	AppBaseURL string `koanf:"app_base_url"`
}

// PushConfig configures Web Push (VAPID).
type PushConfig struct {
	Enabled         bool          `koanf:"enabled"`
	VAPIDPublicKey  string        `koanf:"vapid_public_key"`
	VAPIDPrivateKey string        `koanf:"vapid_private_key"`
	Subscriber      string        `koanf:"subscriber"` // mailto: or https: contact
	TTL             time.Duration `koanf:"ttl"`
	RatePerSecond   float64       `koanf:"rate_per_second"`
}

// SMSConfig configures the SMS provider and opt-in verification.
type SMSConfig struct {
	Enabled bool `koanf:"enabled"`

	// Provider is twilio or log. The log provider records messages without
	// sending, for development.
	Provider            string        `koanf:"provider"`
	AccountSID          string        `koanf:"account_sid"`
	AuthToken           string        `koanf:"auth_token"`
	FromNumber          string        `koanf:"from_number"`
	MessagingServiceSID string        `koanf:"messaging_service_sid"`
	BaseURL             string        `koanf:"base_url"`
	RatePerSecond       float64       `koanf:"rate_per_second"`
	VerificationTTL     time.Duration `koanf:"verification_ttl"`
	VerificationMaxTry  int           `koanf:"verification_max_attempts"`
}

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
	UseTLS   bool   `koanf:"use_tls"`
}

// EventsConfig selects the event bus backend.
type EventsConfig struct {
	// Backend is gochannel (in-process), nats (external server) or embedded
	// (NATS server started inside the process).
	Backend string `koanf:"backend"`

	NATSURL       string        `koanf:"nats_url"`
	EmbeddedHost  string        `koanf:"embedded_host"`
	EmbeddedPort  int           `koanf:"embedded_port"`
	QueueGroup    string        `koanf:"queue_group"`
	Subscribers   int           `koanf:"subscribers"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// QuotaConfig caps SMS sends per user per day.
type QuotaConfig struct {
	// Backend is memory or redis.
	Backend       string `koanf:"backend"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	SMSPerDay     int    `koanf:"sms_per_day"` // 0 disables the cap
}

// BreakerConfig tunes the per-channel circuit breakers.
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
	HalfOpenRequests uint32        `koanf:"half_open_requests"`
}

// Addr returns host:port for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// IsProduction reports whether production checks apply.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
