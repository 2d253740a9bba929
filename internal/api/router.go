// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/lumaskin/internal/auth"
	"github.com/tomtom215/lumaskin/internal/authz"
	"github.com/tomtom215/lumaskin/internal/middleware"
)

// RouterConfig collects what the router needs besides the handlers.
type RouterConfig struct {
	Middleware *ChiMiddlewareConfig
	Authn      *auth.Middleware
	Authz      *authz.Middleware
}

// NewRouter builds the HTTP routes.
//
// Everything under /api/v1 except health is authenticated and then checked
// against the authorization policy, which keys on the route path.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mw := NewChiMiddleware(cfg.Middleware)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Compression)
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())

		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Authn.Authenticate)
			r.Use(cfg.Authz.Authorize)

			r.Post("/auth/sessions", h.CreateSession)
			r.Delete("/auth/sessions/current", h.DeleteCurrentSession)

			r.Route("/me", func(r chi.Router) {
				r.Get("/preferences", h.GetPreferences)
				r.Patch("/preferences", h.UpdatePreferences)

				r.Get("/capabilities", h.GetCapability)
				r.Put("/capabilities", h.ReportCapability)

				r.Get("/push-subscriptions", h.ListPushSubscriptions)
				r.Post("/push-subscriptions", h.CreatePushSubscription)
				r.Delete("/push-subscriptions/{id}", h.DeletePushSubscription)

				r.Post("/phone/verification", h.StartPhoneVerification)
				r.Post("/phone/verification/confirm", h.ConfirmPhoneVerification)
				r.Delete("/phone", h.DeletePhone)

				r.Get("/notifications", h.ListNotifications)
				r.Get("/notifications/unread-count", h.UnreadCount)
				r.Post("/notifications/read-all", h.MarkAllNotificationsRead)
				r.Post("/notifications/{id}/read", h.MarkNotificationRead)

				r.Get("/deliveries", h.ListDeliveries)

				r.Post("/completions", h.CompleteRoutine)
				r.Get("/gamification", h.GetGamification)

				r.Get("/ws", h.WebSocket)
			})

			r.Post("/push/actions", h.ResolvePushAction)

			r.Post("/events", h.PublishEvent)
			r.Put("/appointments/{id}", h.PutAppointment)
			r.Delete("/appointments/{id}", h.CancelAppointment)

			r.Post("/admin/ticks", h.RunTick)
			r.Get("/admin/ticks/last", h.LastTick)
		})
	})

	return r
}
