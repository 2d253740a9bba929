// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lumaskin/internal/dispatch"
	"github.com/tomtom215/lumaskin/internal/logging"
	"github.com/tomtom215/lumaskin/internal/models"
)

// ReportCapability handles PUT /api/v1/me/capabilities.
//
// The client reports its push support and permission after every page load;
// a revoked permission turns push off server side.
func (h *Handler) ReportCapability(w http.ResponseWriter, r *http.Request) {
	var report models.ClientCapabilityReport
	if err := decodeJSON(w, r, &report); err != nil {
		writeServiceError(w, r, err)
		return
	}
	userID := subjectID(r)
	if report.UserAgent == "" {
		report.UserAgent = r.UserAgent()
	}
	if err := h.deps.Capabilities.RecordClientReport(r.Context(), userID, report); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.GetCapability(w, r)
}

// GetCapability handles GET /api/v1/me/capabilities.
func (h *Handler) GetCapability(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Capabilities.ProbePush(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"push":        c,
		"deliverable": c.Deliverable(),
	})
}

// ListPushSubscriptions handles GET /api/v1/me/push-subscriptions.
func (h *Handler) ListPushSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.deps.Store.ListPushSubscriptions(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if subs == nil {
		subs = []models.PushSubscription{}
	}
	NewResponseWriter(w, r).Success(subs)
}

// CreatePushSubscription handles POST /api/v1/me/push-subscriptions.
// Re-registering a known endpoint refreshes its keys.
func (h *Handler) CreatePushSubscription(w http.ResponseWriter, r *http.Request) {
	var sub models.PushSubscription
	if err := decodeJSON(w, r, &sub); err != nil {
		writeServiceError(w, r, err)
		return
	}
	sub.UserID = subjectID(r)
	if err := h.deps.Store.SavePushSubscription(r.Context(), &sub); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(sub)
}

// DeletePushSubscription handles DELETE /api/v1/me/push-subscriptions/{id}.
func (h *Handler) DeletePushSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.deps.Store.DeletePushSubscription(r.Context(), subjectID(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeServiceError(w, r, models.NewNotFoundError("push subscription", id))
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// ResolvePushAction handles POST /api/v1/push/actions.
//
// The service worker posts the action button a user clicked; the response
// names the page to open. Snooze is recorded in the log and answered with
// 501 since nothing reschedules it.
func (h *Handler) ResolvePushAction(w http.ResponseWriter, r *http.Request) {
	var req PushActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	url, err := dispatch.ResolveAction(req.Category, req.Action)
	if errors.Is(err, models.ErrNotImplemented) {
		logging.Ctx(r.Context()).Info().
			Str("user_id", subjectID(r)).
			Str("category", string(req.Category)).
			Str("action", req.Action).
			Msg("push action requested but not supported")
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(PushActionResponse{URL: url})
}
