// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

func createTestBadgerDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	jwtManager, err := NewJWTManager("test-secret-with-enough-entropy", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	logger := zerolog.Nop()
	return NewAuthenticator(jwtManager, NewBadgerSessionStore(createTestBadgerDB(t)), "svc-key", &logger)
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	s := &Session{ID: "sess-1", UserID: "user-1", Role: RoleClient, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	token, err := m.GenerateToken(s)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.ID != "sess-1" || claims.Role != RoleClient {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTRejects(t *testing.T) {
	m, _ := NewJWTManager("secret", time.Hour)
	other, _ := NewJWTManager("other-secret", time.Hour)
	now := time.Now()

	expired, _ := m.GenerateToken(&Session{ID: "s", UserID: "u", Role: RoleClient, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)})
	foreign, _ := other.GenerateToken(&Session{ID: "s", UserID: "u", Role: RoleClient, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAuthenticatorIssueAndAuthenticate(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	token, session, err := a.Issue(ctx, "user-1", RoleProfessional)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	subject, err := a.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if subject.ID != "user-1" || subject.Role != RoleProfessional || subject.SessionID != session.ID {
		t.Errorf("subject = %+v", subject)
	}
}

func TestAuthenticatorRevoke(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	token, session, err := a.Issue(ctx, "user-1", RoleClient)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Revoke(ctx, session.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	_, err = a.Authenticate(ctx, token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("got %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticatorRevokeUser(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	t1, _, _ := a.Issue(ctx, "user-1", RoleClient)
	t2, _, _ := a.Issue(ctx, "user-1", RoleClient)
	t3, _, _ := a.Issue(ctx, "user-2", RoleClient)

	n, err := a.RevokeUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("RevokeUser: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked %d sessions, want 2", n)
	}
	for _, tok := range []string{t1, t2} {
		if _, err := a.Authenticate(ctx, tok); err == nil {
			t.Error("revoked token still authenticates")
		}
	}
	if _, err := a.Authenticate(ctx, t3); err != nil {
		t.Errorf("other user's token rejected: %v", err)
	}
}

func TestAuthenticatorIssueValidation(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	if _, _, err := a.Issue(ctx, "", RoleClient); err == nil {
		t.Error("expected error for empty user")
	}
	if _, _, err := a.Issue(ctx, "user-1", "superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestCheckServiceKey(t *testing.T) {
	a := newTestAuthenticator(t)

	if !a.CheckServiceKey("svc-key") {
		t.Error("valid key rejected")
	}
	if a.CheckServiceKey("wrong") || a.CheckServiceKey("") {
		t.Error("invalid key accepted")
	}

	a.serviceKey = nil
	if a.CheckServiceKey("svc-key") {
		t.Error("unset service key must match nothing")
	}
}

func TestBadgerSessionStore(t *testing.T) {
	store := NewBadgerSessionStore(createTestBadgerDB(t))
	ctx := context.Background()
	now := time.Now()

	s := &Session{ID: "sess-1", UserID: "user-1", Role: RoleClient, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" || got.Role != RoleClient {
		t.Errorf("got %+v", got)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}

	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v after delete", err)
	}

	expired := &Session{ID: "old", UserID: "user-1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	if err := store.Create(ctx, expired); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("got %v, want ErrSessionExpired", err)
	}
}
