// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"context"
	"time"

	"github.com/tomtom215/lumaskin/internal/auth"
	"github.com/tomtom215/lumaskin/internal/capability"
	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/scheduler"
	"github.com/tomtom215/lumaskin/internal/websocket"
)

// PreferenceService is satisfied by *preferences.Service.
type PreferenceService interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreference, error)
	EnsureDefaults(ctx context.Context, userID string) (*models.NotificationPreference, bool, error)
	Update(ctx context.Context, userID string, upd models.PreferenceUpdate) (*models.NotificationPreference, error)
	RemovePhone(ctx context.Context, userID string) (*models.NotificationPreference, error)
}

// PhoneVerifier is satisfied by *preferences.Verifier.
type PhoneVerifier interface {
	Start(ctx context.Context, userID, phone string) (*models.SMSVerification, error)
	Confirm(ctx context.Context, userID, code string) (*models.NotificationPreference, error)
}

// CapabilityService is satisfied by *capability.Probe.
type CapabilityService interface {
	RecordClientReport(ctx context.Context, userID string, report models.ClientCapabilityReport) error
	LatestReport(ctx context.Context, userID string) (*models.ClientCapabilityReport, error)
	ProbePush(ctx context.Context, userID string) (capability.PushCapability, error)
}

// GamificationService is satisfied by *gamification.Service.
type GamificationService interface {
	Complete(ctx context.Context, userID string, routine models.RoutineType) (*models.CompletionOutcome, error)
	State(ctx context.Context, userID string) (*models.GamificationState, error)
}

// EventPublisher is satisfied by *events.Bus.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.DomainEvent) error
}

// TickRunner is satisfied by *scheduler.Scheduler.
type TickRunner interface {
	Tick(ctx context.Context) (*scheduler.TickReport, error)
	LastReport() *scheduler.TickReport
}

// SessionIssuer is satisfied by *auth.Authenticator.
type SessionIssuer interface {
	Issue(ctx context.Context, userID, role string) (string, *auth.Session, error)
	Revoke(ctx context.Context, sessionID string) error
}

// Store is the direct persistence the handlers use; *database.DB
// satisfies it.
type Store interface {
	Ping(ctx context.Context) error

	SavePushSubscription(ctx context.Context, s *models.PushSubscription) error
	ListPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, userID, id string) (bool, error)

	ListNotifications(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.InAppNotification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)

	ListDeliveries(ctx context.Context, userID string, limit, offset int) ([]models.DeliveryRecord, error)

	UpsertAppointment(ctx context.Context, a *models.Appointment) error
	CancelAppointment(ctx context.Context, id string) (bool, error)
}

// Dependencies are the services behind the handlers. Hub may be nil, which
// disables the websocket endpoint.
type Dependencies struct {
	Preferences  PreferenceService
	Phone        PhoneVerifier
	Capabilities CapabilityService
	Gamification GamificationService
	Events       EventPublisher
	Ticks        TickRunner
	Sessions     SessionIssuer
	Store        Store
	Hub          *websocket.Hub
}

// Handler serves the API routes.
type Handler struct {
	deps      Dependencies
	config    *config.Config
	version   string
	startTime time.Time
}

// NewHandler creates the handler set.
func NewHandler(deps Dependencies, cfg *config.Config, version string) *Handler {
	return &Handler{
		deps:      deps,
		config:    cfg,
		version:   version,
		startTime: time.Now(),
	}
}
