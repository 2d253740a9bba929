// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumaskin_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lumaskin_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_api_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Reminder pipeline
	ReminderIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_reminder_intents_total",
			Help: "Channel intents emitted by the reminder engine",
		},
		[]string{"category", "channel"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_deliveries_total",
			Help: "Reconciled delivery outcomes",
		},
		[]string{"channel", "outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumaskin_dispatch_duration_seconds",
			Help:    "Time spent in a channel adapter",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"channel"},
	)

	ClaimsLost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_claims_lost_total",
			Help: "Intents skipped because the dedup key was already held",
		},
		[]string{"channel"},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lumaskin_tick_duration_seconds",
			Help:    "Duration of a full reminder tick",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	TickUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_tick_users_total",
			Help: "Users evaluated per tick by result",
		},
		[]string{"result"}, // "processed", "failed"
	)

	TickLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lumaskin_tick_last_success_timestamp",
			Help: "Unix timestamp of the last completed tick",
		},
	)

	SMSQuotaRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lumaskin_sms_quota_rejections_total",
			Help: "SMS sends skipped because the user's daily quota was used up",
		},
	)

	// Gamification
	RoutineCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_routine_completions_total",
			Help: "Routine completions recorded",
		},
		[]string{"routine_type"},
	)

	DaysCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lumaskin_days_completed_total",
			Help: "Days on which a user completed every enrolled routine",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lumaskin_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lumaskin_ws_connections",
			Help: "Open notification-center websocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lumaskin_ws_messages_sent_total",
			Help: "Messages written to websocket clients",
		},
	)

	// Authorization
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_authz_decisions_total",
			Help: "Authorization decisions by role and result",
		},
		[]string{"role", "result"}, // "allowed", "denied", "error"
	)

	// Event bus
	Events = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumaskin_events_total",
			Help: "Domain events by topic and direction",
		},
		[]string{"topic", "direction"}, // "published", "consumed", "failed"
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lumaskin_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDelivery records a reconciled outcome and the adapter latency.
func RecordDelivery(channel, outcome string, duration time.Duration) {
	Deliveries.WithLabelValues(channel, outcome).Inc()
	if duration > 0 {
		DispatchDuration.WithLabelValues(channel).Observe(duration.Seconds())
	}
}

// RecordTick records one completed scheduler tick.
func RecordTick(duration time.Duration, processed, failed int) {
	TickDuration.Observe(duration.Seconds())
	TickUsers.WithLabelValues("processed").Add(float64(processed))
	TickUsers.WithLabelValues("failed").Add(float64(failed))
	TickLastSuccess.Set(float64(time.Now().Unix()))
}

// Breaker states as exported by CircuitBreakerState.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)
