// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lumaskin/config.yaml",
	"/etc/lumaskin/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/lumaskin.duckdb",
			MaxMemory: "512MB",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			SessionTTL:        15 * time.Minute,
			SessionStorePath:  "/data/sessions",
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Reminders: RemindersConfig{
			Enabled:               true,
			TickInterval:          time.Minute,
			MaxConcurrentUsers:    10,
			TickTimeout:           5 * time.Minute,
			SendTimeout:           5 * time.Second,
			ToleranceWindow:       5 * time.Minute,
			ClaimLease:            10 * time.Minute,
			AppointmentThresholds: []time.Duration{24 * time.Hour, time.Hour},
			DefaultRegion:         "US",
			AppBaseURL:            "http://localhost:5173",
		},
		Push: PushConfig{
			Enabled:       false,
			Subscriber:    "mailto:notifications@lumaskin.app",
			TTL:           12 * time.Hour,
			RatePerSecond: 50,
		},
		SMS: SMSConfig{
			Enabled:            false,
			Provider:           "log",
			BaseURL:            "https://api.twilio.com",
			RatePerSecond:      1,
			VerificationTTL:    10 * time.Minute,
			VerificationMaxTry: 5,
		},
		Email: EmailConfig{
			Enabled:  false,
			Port:     587,
			FromName: "Lumaskin",
			UseTLS:   true,
		},
		Events: EventsConfig{
			Backend:       "gochannel",
			NATSURL:       "nats://127.0.0.1:4222",
			EmbeddedHost:  "127.0.0.1",
			EmbeddedPort:  4222,
			QueueGroup:    "lumaskin-reminders",
			Subscribers:   2,
			MaxReconnects: 10,
			ReconnectWait: 2 * time.Second,
		},
		Quota: QuotaConfig{
			Backend:   "memory",
			RedisAddr: "127.0.0.1:6379",
			SMSPerDay: 5,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			HalfOpenRequests: 1,
		},
	}
}

// LoadWithKoanf layers defaults, the optional YAML file and the environment,
// then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"reminders.appointment_thresholds",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			continue
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Anything not listed is ignored.
var envMappings = map[string]string{
	"http_host":          "server.host",
	"http_port":          "server.port",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",
	"environment":        "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"jwt_secret":          "security.jwt_secret",
	"session_ttl":         "security.session_ttl",
	"session_store_path":  "security.session_store_path",
	"service_key":         "security.service_key",
	"authz_policy_path":   "security.policy_path",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"reminders_enabled":                "reminders.enabled",
	"reminders_tick_interval":          "reminders.tick_interval",
	"reminders_max_concurrent":         "reminders.max_concurrent_users",
	"reminders_tick_timeout":           "reminders.tick_timeout",
	"reminders_send_timeout":           "reminders.send_timeout",
	"reminders_tolerance_window":       "reminders.tolerance_window",
	"reminders_claim_lease":            "reminders.claim_lease",
	"reminders_appointment_thresholds": "reminders.appointment_thresholds",
	"phone_default_region":             "reminders.default_region",
	"app_base_url":                     "reminders.app_base_url",

	"push_enabled":         "push.enabled",
	"vapid_public_key":     "push.vapid_public_key",
	"vapid_private_key":    "push.vapid_private_key",
	"vapid_subscriber":     "push.subscriber",
	"push_ttl":             "push.ttl",
	"push_rate_per_second": "push.rate_per_second",

	"sms_enabled":                   "sms.enabled",
	"sms_provider":                  "sms.provider",
	"twilio_account_sid":            "sms.account_sid",
	"twilio_auth_token":             "sms.auth_token",
	"twilio_from_number":            "sms.from_number",
	"twilio_messaging_service_sid":  "sms.messaging_service_sid",
	"twilio_base_url":               "sms.base_url",
	"sms_rate_per_second":           "sms.rate_per_second",
	"sms_verification_ttl":          "sms.verification_ttl",
	"sms_verification_max_attempts": "sms.verification_max_attempts",

	"smtp_enabled":   "email.enabled",
	"smtp_host":      "email.host",
	"smtp_port":      "email.port",
	"smtp_username":  "email.username",
	"smtp_password":  "email.password",
	"smtp_from":      "email.from",
	"smtp_from_name": "email.from_name",
	"smtp_use_tls":   "email.use_tls",

	"events_backend":      "events.backend",
	"nats_url":            "events.nats_url",
	"nats_embedded_host":  "events.embedded_host",
	"nats_embedded_port":  "events.embedded_port",
	"nats_queue_group":    "events.queue_group",
	"nats_subscribers":    "events.subscribers",
	"nats_max_reconnects": "events.max_reconnects",
	"nats_reconnect_wait": "events.reconnect_wait",

	"quota_backend":     "quota.backend",
	"redis_addr":        "quota.redis_addr",
	"redis_password":    "quota.redis_password",
	"redis_db":          "quota.redis_db",
	"sms_quota_per_day": "quota.sms_per_day",

	"breaker_failure_threshold":  "breaker.failure_threshold",
	"breaker_open_timeout":       "breaker.open_timeout",
	"breaker_half_open_requests": "breaker.half_open_requests",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
