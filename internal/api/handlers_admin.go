// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	GoVersion        string `json:"go_version"`
	DatabaseOK       bool   `json:"database_ok"`
	Uptime           string `json:"uptime"`
	WebSocketClients int    `json:"websocket_clients"`
	LastTickAt       string `json:"last_tick_at,omitempty"`
}

// Health handles GET /api/v1/health. It answers 503 when DuckDB is
// unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:     "healthy",
		Version:    h.version,
		GoVersion:  runtime.Version(),
		DatabaseOK: true,
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
	}
	if h.deps.Hub != nil {
		resp.WebSocketClients = h.deps.Hub.ClientCount()
	}
	if h.deps.Ticks != nil {
		if last := h.deps.Ticks.LastReport(); last != nil {
			resp.LastTickAt = last.StartedAt.UTC().Format(time.RFC3339)
		}
	}

	rw := NewResponseWriter(w, r)
	if err := h.deps.Store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.DatabaseOK = false
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unavailable", resp)
		return
	}
	rw.Success(resp)
}

// RunTick handles POST /api/v1/admin/ticks. It evaluates every user once,
// outside the periodic schedule, and returns the report.
func (h *Handler) RunTick(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ticks == nil {
		NewResponseWriter(w, r).ServiceUnavailable("reminder scheduler is not running")
		return
	}
	report, err := h.deps.Ticks.Tick(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(report)
}

// LastTick handles GET /api/v1/admin/ticks/last.
func (h *Handler) LastTick(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ticks == nil {
		NewResponseWriter(w, r).ServiceUnavailable("reminder scheduler is not running")
		return
	}
	report := h.deps.Ticks.LastReport()
	if report == nil {
		NewResponseWriter(w, r).NotFound("no tick has completed yet")
		return
	}
	NewResponseWriter(w, r).Success(report)
}
