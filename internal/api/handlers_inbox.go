// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lumaskin/internal/models"
)

// ListNotifications handles GET /api/v1/me/notifications.
// ?unread=true limits the listing to unread rows.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filter := models.NotificationFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Limit:      limit,
		Offset:     offset,
	}

	items, total, err := h.deps.Store.ListNotifications(r.Context(), subjectID(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []models.InAppNotification{}
	}
	NewResponseWriter(w, r).SuccessWithPagination(items, &PaginationMeta{
		Total:   int64(total),
		Count:   len(items),
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+len(items) < total,
	})
}

// UnreadCount handles GET /api/v1/me/notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.Store.UnreadCount(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]int{"unread": n})
}

// MarkNotificationRead handles POST /api/v1/me/notifications/{id}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := h.deps.Store.MarkNotificationRead(r.Context(), subjectID(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !found {
		writeServiceError(w, r, models.NewNotFoundError("notification", id))
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// MarkAllNotificationsRead handles POST /api/v1/me/notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.Store.MarkAllNotificationsRead(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]int64{"marked": n})
}

// ListDeliveries handles GET /api/v1/me/deliveries, the user's delivery
// ledger, newest first.
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	records, err := h.deps.Store.ListDeliveries(r.Context(), subjectID(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []models.DeliveryRecord{}
	}
	NewResponseWriter(w, r).Success(records)
}
