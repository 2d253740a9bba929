// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/lumaskin/internal/logging"
)

// ServiceKeyHeader carries the shared key of trusted backends.
const ServiceKeyHeader = "X-Service-Key"

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// Middleware authenticates requests by bearer token or service key.
type Middleware struct {
	auth    *Authenticator
	onError ErrorWriter
}

// NewMiddleware creates the middleware. A nil onError falls back to
// http.Error.
func NewMiddleware(auth *Authenticator, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, _ string, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{auth: auth, onError: onError}
}

// Authenticate rejects requests without valid credentials and stores the
// Subject in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(ServiceKeyHeader); key != "" {
			if !m.auth.CheckServiceKey(key) {
				m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid service key")
				return
			}
			subject := &Subject{ID: ServiceSubjectID, Role: RoleService}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
			return
		}

		token, err := extractBearerToken(r)
		if err != nil {
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}

		subject, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				logging.Ctx(r.Context()).Error().Err(err).Msg("session lookup failed")
				m.onError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "authentication unavailable")
				return
			}
			logging.Ctx(r.Context()).Debug().Err(err).Msg("token rejected")
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}

// extractBearerToken reads the Authorization header, falling back to the
// access_token query parameter used by browser websocket clients.
func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
		return "", errors.New("missing token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}
