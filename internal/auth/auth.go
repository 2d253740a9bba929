// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package auth issues and verifies session tokens.
//
// A trusted backend exchanges the service key for a short-lived HS256 token
// bound to one user and role. Every request revalidates the token against
// the Badger session store, so deleting a session revokes its token before
// it expires. The service key itself authenticates machine callers.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Roles.
const (
	RoleClient       = "client"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
	RoleService      = "service"
)

// ServiceSubjectID is the subject of requests authenticated by service key.
const ServiceSubjectID = "service"

// ErrUnauthenticated is returned for any credential that does not verify.
var ErrUnauthenticated = errors.New("unauthenticated")

// ValidRole reports whether role can be put in a session.
func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleProfessional, RoleAdmin, RoleService:
		return true
	default:
		return false
	}
}

// Subject is the authenticated caller.
type Subject struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
}

type contextKey string

const subjectContextKey contextKey = "subject"

// WithSubject stores s in ctx.
func WithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// SubjectFromContext returns the caller stored by the middleware.
func SubjectFromContext(ctx context.Context) (*Subject, bool) {
	s, ok := ctx.Value(subjectContextKey).(*Subject)
	return s, ok && s != nil
}

// Authenticator issues, verifies and revokes sessions.
type Authenticator struct {
	jwt        *JWTManager
	sessions   SessionStore
	serviceKey []byte
	ttl        time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(jwt *JWTManager, sessions SessionStore, serviceKey string, logger *zerolog.Logger) *Authenticator {
	return &Authenticator{
		jwt:        jwt,
		sessions:   sessions,
		serviceKey: []byte(serviceKey),
		ttl:        jwt.TTL(),
		logger:     logger.With().Str("component", "auth").Logger(),
		now:        time.Now,
	}
}

// CheckServiceKey compares key with the configured service key in constant
// time. An unset service key matches nothing.
func (a *Authenticator) CheckServiceKey(key string) bool {
	if len(a.serviceKey) == 0 || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), a.serviceKey) == 1
}

// Issue creates a session for userID and returns its signed token.
func (a *Authenticator) Issue(ctx context.Context, userID, role string) (string, *Session, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("user id is required")
	}
	if !ValidRole(role) {
		return "", nil, fmt.Errorf("unknown role %q", role)
	}

	now := a.now()
	session := &Session{
		ID:        generateSessionID(),
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}
	if err := a.sessions.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	token, err := a.jwt.GenerateToken(session)
	if err != nil {
		if delErr := a.sessions.Delete(ctx, session.ID); delErr != nil {
			a.logger.Warn().Err(delErr).Msg("failed to discard unsigned session")
		}
		return "", nil, err
	}

	a.logger.Info().Str("user_id", userID).Str("role", role).Msg("session issued")
	return token, session, nil
}

// Authenticate verifies token and the session behind it.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Subject, error) {
	claims, err := a.jwt.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	session, err := a.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return nil, fmt.Errorf("%w: session revoked or expired", ErrUnauthenticated)
		}
		return nil, err
	}
	if session.UserID != claims.Subject || session.Role != claims.Role {
		return nil, fmt.Errorf("%w: session does not match token", ErrUnauthenticated)
	}

	return &Subject{ID: session.UserID, Role: session.Role, SessionID: session.ID}, nil
}

// Revoke deletes a session.
func (a *Authenticator) Revoke(ctx context.Context, sessionID string) error {
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	a.logger.Info().Str("session_id", sessionID).Msg("session revoked")
	return nil
}

// RevokeUser deletes every session of userID.
func (a *Authenticator) RevokeUser(ctx context.Context, userID string) (int, error) {
	return a.sessions.DeleteByUserID(ctx, userID)
}
