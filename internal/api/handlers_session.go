// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/lumaskin/internal/auth"
	"github.com/tomtom215/lumaskin/internal/logging"
)

// CreateSession handles POST /api/v1/auth/sessions.
//
// Only the trusted backend (service key) may call it. Client sessions get
// default notification preferences on first issue.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleClient
	}

	if req.Role == auth.RoleClient {
		if _, _, err := h.deps.Preferences.EnsureDefaults(r.Context(), req.UserID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	token, session, err := h.deps.Sessions.Issue(r.Context(), req.UserID, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("user_id", session.UserID).
		Str("role", session.Role).
		Msg("session issued")

	NewResponseWriter(w, r).Created(SessionResponse{
		Token:     token,
		SessionID: session.ID,
		UserID:    session.UserID,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// DeleteCurrentSession handles DELETE /api/v1/auth/sessions/current.
func (h *Handler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok || subject.SessionID == "" {
		WriteError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "request is not bound to a session")
		return
	}
	if err := h.deps.Sessions.Revoke(r.Context(), subject.SessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
