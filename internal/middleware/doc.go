// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package middleware holds the HTTP middleware shared by every API route:
// request ids, access logging, Prometheus request metrics and gzip
// compression. All of them are plain func(http.Handler) http.Handler so they
// compose with chi.
package middleware
