// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package api is the HTTP surface of the reminder service.
//
// Routes live under /api/v1 and are served by chi. Every request passes the
// shared middleware (request id, access log, Prometheus metrics, gzip,
// CORS), then authentication and Casbin authorization. Responses use one
// envelope:
//
//	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
//	{"success": false, "error": {"code": "VALIDATION_FAILED", "message": "...", "details": {...}}}
//
// Domain errors map to status codes in one place (writeServiceError):
// validation 400, not found 404, conflict 409, unsupported 501, provider
// failure 502, anything else 500.
package api
