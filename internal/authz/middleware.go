// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package authz

import (
	"net/http"

	"github.com/tomtom215/lumaskin/internal/auth"
	"github.com/tomtom215/lumaskin/internal/logging"
	"github.com/tomtom215/lumaskin/internal/metrics"
)

// Middleware authorizes requests by the caller's role, the request path and
// the HTTP method.
type Middleware struct {
	enforcer *Enforcer
	onError  auth.ErrorWriter
}

// NewMiddleware creates the middleware.
func NewMiddleware(enforcer *Enforcer, onError auth.ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, _ string, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, onError: onError}
}

// Authorize must run after auth.Middleware.Authenticate.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := auth.SubjectFromContext(r.Context())
		if !ok {
			m.onError(w, r, http.StatusForbidden, "FORBIDDEN", "no authentication context")
			return
		}

		allowed, err := m.enforcer.Enforce(subject.Role, r.URL.Path, r.Method)
		if err != nil {
			metrics.AuthzDecisions.WithLabelValues(subject.Role, "error").Inc()
			logging.Ctx(r.Context()).Error().Err(err).Msg("authorization error")
			m.onError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "authorization unavailable")
			return
		}
		if !allowed {
			metrics.AuthzDecisions.WithLabelValues(subject.Role, "denied").Inc()
			m.onError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}

		metrics.AuthzDecisions.WithLabelValues(subject.Role, "allowed").Inc()
		next.ServeHTTP(w, r)
	})
}
