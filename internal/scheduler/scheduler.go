// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package scheduler drives the reminder engine on a fixed interval.
//
// Each tick:
//   - Lists every user with a stored preference
//   - Evaluates each user with bounded concurrency
//   - Isolates failures so one user never aborts the others
//   - Returns a TickReport summarizing users and delivery outcomes
//
// Ticks may overlap (a manual tick during a periodic one); the delivery
// ledger keeps that from double-sending. The scheduler integrates with the
// supervisor tree through its Start/Stop lifecycle.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/lumaskin/internal/metrics"
	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/reminders"
)

// UserLister lists the users to evaluate.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Evaluator evaluates one user.
type Evaluator interface {
	Evaluate(ctx context.Context, userID string, now time.Time) (*reminders.Evaluation, error)
}

// Config holds configuration for the reminder scheduler.
type Config struct {
	// Interval is how often a tick runs (default: 1 minute)
	Interval time.Duration

	// MaxConcurrentUsers bounds parallel user evaluations (default: 10)
	MaxConcurrentUsers int

	// TickTimeout is the maximum time allowed for one tick
	TickTimeout time.Duration

	// Enabled controls whether periodic ticks run. Manual ticks always work.
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Interval:           time.Minute,
		MaxConcurrentUsers: 10,
		TickTimeout:        5 * time.Minute,
		Enabled:            true,
	}
}

// UserError is a user whose evaluation failed.
type UserError struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// TickReport summarizes one tick.
type TickReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Users     int           `json:"users"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Sent      int           `json:"sent"`
	Skipped   int           `json:"skipped"`
	// DeliveryFailures counts (category, channel) attempts that failed.
	DeliveryFailures int         `json:"delivery_failures"`
	Errors           []UserError `json:"errors,omitempty"`
}

// Scheduler runs reminder ticks.
type Scheduler struct {
	users     UserLister
	evaluator Evaluator
	logger    zerolog.Logger
	config    Config
	now       func() time.Time

	// Runtime state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    *TickReport
}

// New creates a scheduler.
func New(users UserLister, evaluator Evaluator, logger *zerolog.Logger, config Config) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.MaxConcurrentUsers <= 0 {
		config.MaxConcurrentUsers = 10
	}
	if config.TickTimeout <= 0 {
		config.TickTimeout = 5 * time.Minute
	}
	return &Scheduler{
		users:     users,
		evaluator: evaluator,
		logger:    logger.With().Str("component", "reminder-scheduler").Logger(),
		config:    config,
		now:       time.Now,
	}
}

// Start begins the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Reminder scheduler disabled")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Int("max_concurrent", s.config.MaxConcurrentUsers).
		Msg("Starting reminder scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the tick loop and waits for the current tick to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Reminder scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.runTick(ctx)

	for {
		select {
		case <-ticker.C:
			s.runTick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.config.TickTimeout)
	defer cancel()

	if _, err := s.Tick(tickCtx); err != nil {
		s.logger.Error().Err(err).Msg("Reminder tick failed")
	}
}

// Tick evaluates every user once. It returns an error only when the user
// list cannot be read.
func (s *Scheduler) Tick(ctx context.Context) (*TickReport, error) {
	start := s.now()
	report := &TickReport{StartedAt: start}

	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	report.Users = len(ids)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrentUsers)

	for _, id := range ids {
		g.Go(func() error {
			eval, err := s.evaluate(gctx, id, start)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, UserError{UserID: id, Error: err.Error()})
				return nil
			}
			report.Processed++
			report.Sent += eval.Count(models.OutcomeSent)
			report.Skipped += eval.Count(models.OutcomeSkipped)
			report.DeliveryFailures += eval.Count(models.OutcomeFailed)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	report.Duration = s.now().Sub(start)
	metrics.RecordTick(report.Duration, report.Processed, report.Failed)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	event := s.logger.Info()
	if report.Users == 0 {
		event = s.logger.Debug()
	}
	event.
		Int("users", report.Users).
		Int("failed", report.Failed).
		Int("sent", report.Sent).
		Int("delivery_failures", report.DeliveryFailures).
		Dur("duration", report.Duration).
		Msg("Reminder tick complete")
	return report, nil
}

// evaluate runs one user and converts a panic into an error.
func (s *Scheduler) evaluate(ctx context.Context, userID string, now time.Time) (eval *reminders.Evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
	}()
	eval, err = s.evaluator.Evaluate(ctx, userID, now)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("User evaluation failed")
	}
	return eval, err
}

// LastReport returns the report of the most recent tick, or nil.
func (s *Scheduler) LastReport() *TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
