// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package gamification tracks routine completions, streaks, points and levels.
//
// A day counts toward the streak once every routine the user is enrolled in
// (the routines whose reminders are on, or both when neither is) has been
// completed on that local calendar day. Completions are unique per user, day
// and routine type, so completing the same routine twice changes nothing.
//
// Points:
//   - 10 per routine completion
//   - 5 when a day becomes complete
//   - 25 each time the streak reaches a multiple of 7
package gamification

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/database"
	"github.com/tomtom215/lumaskin/internal/metrics"
	"github.com/tomtom215/lumaskin/internal/models"
)

// Store is the persistence the service needs.
type Store interface {
	RecordCompletion(ctx context.Context, c models.RoutineCompletion, apply func(tx *database.CompletionTx, inserted bool) error) error
	CompletedRoutines(ctx context.Context, userID, date string) ([]models.RoutineType, error)
	GetGamificationState(ctx context.Context, userID string) (*models.GamificationState, error)
	SaveGamificationState(ctx context.Context, s *models.GamificationState) error
}

// PreferenceReader supplies the timezone and enrolled routines of a user.
type PreferenceReader interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreference, error)
}

// EventPublisher announces streak milestones as challenge events.
type EventPublisher interface {
	Publish(ctx context.Context, e models.DomainEvent) error
}

// Service records completions and maintains gamification state.
type Service struct {
	store     Store
	prefs     PreferenceReader
	publisher EventPublisher
	logger    zerolog.Logger
	now       func() time.Time

	// userLocks serializes completions per user inside this process.
	userLocks sync.Map
}

// NewService creates a gamification service.
func NewService(store Store, prefs PreferenceReader, logger *zerolog.Logger) *Service {
	return &Service{
		store:  store,
		prefs:  prefs,
		logger: logger.With().Str("component", "gamification").Logger(),
		now:    time.Now,
	}
}

// SetPublisher enables streak milestone events.
func (s *Service) SetPublisher(p EventPublisher) {
	s.publisher = p
}

func (s *Service) acquireUserLock(userID string) *sync.Mutex {
	muInterface, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu, ok := muInterface.(*sync.Mutex)
	if !ok {
		mu = &sync.Mutex{}
		s.userLocks.Store(userID, mu)
	}
	mu.Lock()
	return mu
}

// Complete records that userID finished routine at the current time in the
// user's timezone.
func (s *Service) Complete(ctx context.Context, userID string, routine models.RoutineType) (*models.CompletionOutcome, error) {
	if !routine.IsValid() {
		return nil, models.NewValidationError("routine_type", "must be morning or evening")
	}
	pref, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := now.In(pref.Location()).Format(models.DateLayout)
	enrolled := pref.EnrolledRoutines()

	mu := s.acquireUserLock(userID)
	defer mu.Unlock()

	var outcome models.CompletionOutcome
	completion := models.RoutineCompletion{
		UserID:         userID,
		CompletionDate: date,
		RoutineType:    routine,
		CompletedAt:    now.UTC(),
	}
	err = s.store.RecordCompletion(ctx, completion, func(tx *database.CompletionTx, inserted bool) error {
		state, err := tx.State(ctx, userID)
		if err != nil {
			return err
		}
		if state == nil {
			state = NewState(userID)
		}
		if !inserted {
			outcome = models.CompletionOutcome{State: state}
			return nil
		}

		done, err := tx.CompletedRoutines(ctx, userID, date)
		if err != nil {
			return err
		}
		outcome = applyCompletion(state, date, DayComplete(done, enrolled), now.UTC())
		return tx.SaveState(ctx, state)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	withLevelName(outcome.State)
	if outcome.Recorded {
		metrics.RoutineCompletions.WithLabelValues(string(routine)).Inc()
	}
	if outcome.DayCompleted {
		metrics.DaysCompleted.Inc()
		s.logger.Info().
			Str("user_id", userID).
			Int("streak", outcome.State.CurrentStreak).
			Int("points", outcome.State.Points).
			Msg("routine day completed")
		if outcome.State.CurrentStreak%StreakMilestone == 0 {
			s.publishMilestone(ctx, outcome.State)
		}
	}
	return &outcome, nil
}

func (s *Service) publishMilestone(ctx context.Context, st *models.GamificationState) {
	if s.publisher == nil {
		return
	}
	streak := strconv.Itoa(st.CurrentStreak)
	err := s.publisher.Publish(ctx, models.DomainEvent{
		UserID:     st.UserID,
		Category:   models.CategoryChallenge,
		EntityID:   "streak-" + streak + "-" + st.LastCompletionDate,
		Title:      streak + "-day streak!",
		Body:       "You completed your routine " + streak + " days in a row. Keep glowing.",
		Attributes: map[string]string{"streak": streak},
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", st.UserID).Msg("failed to publish streak milestone")
	}
}

// State returns the user's gamification state evaluated at the current time:
// a streak whose last counted day is older than yesterday reads as 0.
func (s *Service) State(ctx context.Context, userID string) (*models.GamificationState, error) {
	pref, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, userID, s.now().In(pref.Location()))
}

// Evaluate applies the streak reset rule as of localNow and persists a reset.
func (s *Service) Evaluate(ctx context.Context, userID string, localNow time.Time) (*models.GamificationState, error) {
	mu := s.acquireUserLock(userID)
	defer mu.Unlock()

	state, err := s.store.GetGamificationState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return NewState(userID), nil
	}
	if evaluate(state, localNow.Format(models.DateLayout)) {
		state.UpdatedAt = s.now().UTC()
		if err := s.store.SaveGamificationState(ctx, state); err != nil {
			return nil, err
		}
		s.logger.Debug().Str("user_id", userID).Msg("streak reset")
	}
	return withLevelName(state), nil
}

// DayComplete reports whether the user finished every enrolled routine on
// the local calendar day of localNow.
func (s *Service) DayComplete(ctx context.Context, pref *models.NotificationPreference, localNow time.Time) (bool, error) {
	done, err := s.store.CompletedRoutines(ctx, pref.UserID, localNow.Format(models.DateLayout))
	if err != nil {
		return false, err
	}
	return DayComplete(done, pref.EnrolledRoutines()), nil
}

func withLevelName(st *models.GamificationState) *models.GamificationState {
	if st == nil {
		return nil
	}
	lvl := LevelFor(st.Points)
	st.Level = lvl.Number
	st.LevelName = lvl.Name
	return st
}
