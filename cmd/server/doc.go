// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package main is the entry point for the Lumaskin notification server.
//
// Lumaskin decides which skincare reminders are due for each user and
// delivers them over Web Push, SMS, email and the in-app notification
// center, recording one outcome per (user, category, channel, period).
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Database: DuckDB store for preferences, ledger, inbox and streaks
//  3. Delivery: channel adapters behind per-channel circuit breakers
//  4. Reminders: decision engine and the periodic tick scheduler
//  5. Events: Watermill bus (in-process, external NATS or embedded NATS)
//  6. Auth: JWT sessions backed by Badger, Casbin authorization
//  7. HTTP Server: chi router with the REST API and live websocket updates
//
// Long-running components run under a suture supervisor tree with three
// layers: messaging (NATS, event router, websocket hub), delivery (tick
// scheduler) and API (HTTP server).
//
// # Configuration
//
// Required in production:
//   - JWT_SECRET: 32+ character secret for token signing
//   - SERVICE_KEY: shared secret of the backend that issues user sessions
//
// Optional channels:
//   - PUSH_ENABLED, VAPID_PUBLIC_KEY, VAPID_PRIVATE_KEY, VAPID_SUBSCRIBER
//   - SMS_ENABLED, SMS_PROVIDER (twilio or log), TWILIO_ACCOUNT_SID, ...
//   - EMAIL_ENABLED, SMTP_HOST, SMTP_PORT, SMTP_FROM, ...
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
// server, the scheduler (waiting for an in-flight tick) and the event router,
// then the stores are closed.
//
// # Example Usage
//
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export SERVICE_KEY=$(openssl rand -hex 24)
//	export SMS_PROVIDER=log
//	./lumaskin
package main
