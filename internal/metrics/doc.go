// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

/*
Package metrics registers Lumaskin's Prometheus collectors.

All collectors are created with promauto on the default registry and are
exposed at /metrics by the API server.

# Reminder pipeline

  - lumaskin_reminder_intents_total{category,channel}: channel intents emitted by the engine
  - lumaskin_deliveries_total{channel,outcome}: reconciled outcomes (sent, failed, skipped)
  - lumaskin_dispatch_duration_seconds{channel}: adapter latency
  - lumaskin_claims_lost_total{channel}: intents skipped because another tick held the key
  - lumaskin_tick_duration_seconds, lumaskin_tick_users_total{result}
  - lumaskin_sms_quota_rejections_total

# Gamification

  - lumaskin_routine_completions_total{routine_type}
  - lumaskin_days_completed_total

# Infrastructure

  - lumaskin_api_requests_total, lumaskin_api_request_duration_seconds
  - lumaskin_circuit_breaker_state{name} (0 closed, 1 half-open, 2 open)
  - lumaskin_ws_connections, lumaskin_events_total{topic,direction}
*/
package metrics
