// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/lumaskin/internal/api"
	"github.com/tomtom215/lumaskin/internal/auth"
	"github.com/tomtom215/lumaskin/internal/authz"
	"github.com/tomtom215/lumaskin/internal/capability"
	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/database"
	"github.com/tomtom215/lumaskin/internal/gamification"
	"github.com/tomtom215/lumaskin/internal/logging"
	"github.com/tomtom215/lumaskin/internal/metrics"
	"github.com/tomtom215/lumaskin/internal/preferences"
	"github.com/tomtom215/lumaskin/internal/reconcile"
	"github.com/tomtom215/lumaskin/internal/reminders"
	"github.com/tomtom215/lumaskin/internal/scheduler"
	"github.com/tomtom215/lumaskin/internal/supervisor"
	"github.com/tomtom215/lumaskin/internal/supervisor/services"
	ws "github.com/tomtom215/lumaskin/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("events_backend", cfg.Events.Backend).
		Msg("Starting Lumaskin with supervisor tree")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	wsHub := ws.NewHub()

	// === PREFERENCES AND CAPABILITY ===
	probe := capability.NewProbe(db, cfg.Reminders.DefaultRegion, &logger)
	prefService := preferences.NewService(db, probe, &logger)

	// === DELIVERY ===
	reconciler := reconcile.New(db, cfg.Reminders.ClaimLease, &logger)
	reconciler.SetNotifier(wsHub)

	delivery, err := initDelivery(ctx, cfg, db, reconciler, &logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize delivery channels")
	}
	defer func() {
		if err := delivery.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing quota counter")
		}
	}()

	verifier := preferences.NewVerifier(prefService, db, delivery.sms, preferences.VerificationConfig{
		Region:      cfg.Reminders.DefaultRegion,
		TTL:         cfg.SMS.VerificationTTL,
		MaxAttempts: cfg.SMS.VerificationMaxTry,
	}, &logger)

	// === REMINDERS ===
	streaks := gamification.NewService(db, prefService, &logger)

	engine := reminders.NewEngine(reminders.Dependencies{
		Preferences:  prefService,
		Capabilities: probe,
		Streaks:      streaks,
		Appointments: db,
		Dispatcher:   delivery.manager,
		Ledger:       reconciler,
		SMSQuota:     delivery.quota,
		OptOuts:      prefService,
	}, reminders.Config{
		Tolerance:             cfg.Reminders.ToleranceWindow,
		AppointmentThresholds: cfg.Reminders.AppointmentThresholds,
	}, &logger)

	tickScheduler := scheduler.New(db, engine, &logger, scheduler.Config{
		Interval:           cfg.Reminders.TickInterval,
		MaxConcurrentUsers: cfg.Reminders.MaxConcurrentUsers,
		TickTimeout:        cfg.Reminders.TickTimeout,
		Enabled:            cfg.Reminders.Enabled,
	})

	// === EVENTS ===
	eventComponents, err := InitEvents(cfg, engine, &logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	defer eventComponents.Close()
	streaks.SetPublisher(eventComponents.bus)

	// === AUTH ===
	sessionDB, err := auth.OpenBadger(cfg.Security.SessionStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := sessionDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	if cfg.Security.SessionStorePath == "" && cfg.IsProduction() {
		logging.Warn().Msg("Session store is in memory; sessions will be lost on restart (set SESSION_STORE_PATH)")
	}

	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	authenticator := auth.NewAuthenticator(jwtManager, auth.NewBadgerSessionStore(sessionDB), cfg.Security.ServiceKey, &logger)

	enforcerCfg := authz.DefaultEnforcerConfig()
	enforcerCfg.PolicyPath = cfg.Security.PolicyPath
	enforcer, err := authz.NewEnforcer(ctx, enforcerCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}
	defer enforcer.Close()

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}

	// === HTTP ===
	handler := api.NewHandler(api.Dependencies{
		Preferences:  prefService,
		Phone:        verifier,
		Capabilities: probe,
		Gamification: streaks,
		Events:       eventComponents.bus,
		Ticks:        tickScheduler,
		Sessions:     authenticator,
		Store:        db,
		Hub:          wsHub,
	}, cfg, version)

	router := api.NewRouter(handler, api.RouterConfig{
		Middleware: &api.ChiMiddlewareConfig{
			CORSAllowedOrigins: cfg.Security.CORSOrigins,
			RateLimitRequests:  cfg.Security.RateLimitRequests,
			RateLimitWindow:    cfg.Security.RateLimitWindow,
			RateLimitDisabled:  cfg.Security.RateLimitDisabled,
		},
		Authn: auth.NewMiddleware(authenticator, api.WriteError),
		Authz: authz.NewMiddleware(enforcer, api.WriteError),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===
	AddEventsToSupervisor(tree, eventComponents, cfg.Server.ShutdownTimeout)
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddDeliveryService(services.NewSchedulerService(tickScheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().
		Str("addr", server.Addr).
		Strs("channels", channelNames(delivery)).
		Bool("reminders_enabled", cfg.Reminders.Enabled).
		Msg("Services added to supervisor tree")

	// === START SUPERVISOR TREE ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if err := db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Final database checkpoint failed")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func channelNames(d *deliveryComponents) []string {
	names := make([]string, 0, 4)
	for _, ch := range d.manager.Channels() {
		names = append(names, string(ch))
	}
	return names
}
