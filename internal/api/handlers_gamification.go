// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"net/http"
)

// CompleteRoutine handles POST /api/v1/me/completions.
//
// A repeated completion of the same routine on the same local day returns
// 200 with recorded=false; a new one returns 201.
func (h *Handler) CompleteRoutine(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	outcome, err := h.deps.Gamification.Complete(r.Context(), subjectID(r), req.RoutineType)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rw := NewResponseWriter(w, r)
	if !outcome.Recorded {
		rw.Success(outcome)
		return
	}
	if h.deps.Hub != nil {
		h.deps.Hub.NotifyGamification(outcome.State)
	}
	rw.Created(outcome)
}

// GetGamification handles GET /api/v1/me/gamification.
func (h *Handler) GetGamification(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Gamification.State(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(st)
}
