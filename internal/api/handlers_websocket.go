// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"net/http"
	"net/url"
	"strings"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/lumaskin/internal/logging"
	"github.com/tomtom215/lumaskin/internal/websocket"
)

// newUpgrader accepts same-origin requests and the configured CORS origins.
// A "*" origin accepts everything.
func newUpgrader(allowed []string) *gorillaws.Upgrader {
	return &gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, a := range allowed {
				if a == "*" || strings.EqualFold(a, origin) {
					return true
				}
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// WebSocket handles GET /api/v1/me/ws. The connection receives new inbox
// rows and gamification updates for the authenticated user. Browsers pass
// the token as ?access_token= since they cannot set headers on upgrades.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.deps.Hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("live updates are disabled")
		return
	}
	userID := subjectID(r)

	var origins []string
	if h.config != nil {
		origins = h.config.Security.CORSOrigins
	}
	conn, err := newUpgrader(origins).Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.deps.Hub, conn, userID)
	if !h.deps.Hub.Attach(client) {
		conn.Close() //nolint:errcheck
	}
}
