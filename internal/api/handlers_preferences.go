// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"net/http"

	"github.com/tomtom215/lumaskin/internal/models"
)

// GetPreferences handles GET /api/v1/me/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	pref, err := h.deps.Preferences.Get(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(pref.Version))
	NewResponseWriter(w, r).Success(pref)
}

// UpdatePreferences handles PATCH /api/v1/me/preferences.
//
// An If-Match header makes the update conditional on the stored version; a
// mismatch is reported as 412.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ifVersion, err := parseIfMatch(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var upd models.PreferenceUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeServiceError(w, r, err)
		return
	}
	upd.IfVersion = ifVersion

	pref, err := h.deps.Preferences.Update(r.Context(), subjectID(r), upd)
	if err != nil {
		if ifVersion != nil && models.IsConflict(err) {
			WriteError(w, r, http.StatusPreconditionFailed, ErrCodePreconditionFailed, err.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(pref.Version))
	NewResponseWriter(w, r).Success(pref)
}

// StartPhoneVerification handles POST /api/v1/me/phone/verification.
func (h *Handler) StartPhoneVerification(w http.ResponseWriter, r *http.Request) {
	var req PhoneVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	pending, err := h.deps.Phone.Start(r.Context(), subjectID(r), req.PhoneNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Accepted(pending)
}

// ConfirmPhoneVerification handles POST /api/v1/me/phone/verification/confirm.
func (h *Handler) ConfirmPhoneVerification(w http.ResponseWriter, r *http.Request) {
	var req PhoneConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	pref, err := h.deps.Phone.Confirm(r.Context(), subjectID(r), req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(pref.Version))
	NewResponseWriter(w, r).Success(pref)
}

// DeletePhone handles DELETE /api/v1/me/phone.
func (h *Handler) DeletePhone(w http.ResponseWriter, r *http.Request) {
	pref, err := h.deps.Preferences.RemovePhone(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(pref.Version))
	NewResponseWriter(w, r).Success(pref)
}
