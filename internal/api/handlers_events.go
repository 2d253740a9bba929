// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/lumaskin/internal/logging"
	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/validation"
)

// AppointmentRequest is the body of PUT /api/v1/appointments/{id}.
type AppointmentRequest struct {
	UserID         string    `json:"user_id" validate:"required,max=128"`
	ProfessionalID string    `json:"professional_id,omitempty" validate:"max=128"`
	Title          string    `json:"title" validate:"required,max=200"`
	Location       string    `json:"location,omitempty" validate:"max=200"`
	StartsAt       time.Time `json:"starts_at" validate:"required"`
}

// PublishEvent handles POST /api/v1/events.
//
// Feedback, product recommendation and challenge events are accepted here
// and fanned out asynchronously. The assigned event id is returned.
func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.DomainEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}

	if err := h.deps.Events.Publish(r.Context(), ev); err != nil {
		writeServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("event_id", ev.EventID).
		Str("category", string(ev.Category)).
		Str("user_id", ev.UserID).
		Msg("domain event accepted")

	NewResponseWriter(w, r).Accepted(map[string]string{"event_id": ev.EventID})
}

// PutAppointment handles PUT /api/v1/appointments/{id}. The upstream booking
// system owns the id; a PUT schedules or reschedules.
func (h *Handler) PutAppointment(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	a := &models.Appointment{
		ID:             chi.URLParam(r, "id"),
		UserID:         req.UserID,
		ProfessionalID: req.ProfessionalID,
		Title:          req.Title,
		Location:       req.Location,
		StartsAt:       req.StartsAt.UTC(),
		Status:         models.AppointmentScheduled,
	}
	if verr := validation.ValidateStruct(a); verr != nil {
		writeServiceError(w, r, verr.ToModelError())
		return
	}
	if err := h.deps.Store.UpsertAppointment(r.Context(), a); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(a)
}

// CancelAppointment handles DELETE /api/v1/appointments/{id}. Cancelled
// appointments produce no further reminders.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := h.deps.Store.CancelAppointment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !found {
		writeServiceError(w, r, models.NewNotFoundError("appointment", id))
		return
	}
	NewResponseWriter(w, r).NoContent()
}
