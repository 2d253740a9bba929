// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package gamification

import (
	"time"

	"github.com/tomtom215/lumaskin/internal/models"
)

// Point awards.
const (
	PointsPerCompletion = 10
	PointsDayComplete   = 5
	PointsWeekStreak    = 25

	// StreakMilestone is the streak length that earns PointsWeekStreak,
	// awarded again at every multiple.
	StreakMilestone = 7
)

// Level is one tier of the level ladder.
type Level struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
}

// Levels is ordered by MinPoints ascending.
var Levels = []Level{
	{Number: 1, Name: "Glow Starter", MinPoints: 0},
	{Number: 2, Name: "Routine Builder", MinPoints: 100},
	{Number: 3, Name: "Skin Devotee", MinPoints: 300},
	{Number: 4, Name: "Radiance Regular", MinPoints: 700},
	{Number: 5, Name: "Luminary", MinPoints: 1500},
}

// LevelFor returns the highest level reached with points.
func LevelFor(points int) Level {
	lvl := Levels[0]
	for _, l := range Levels {
		if points >= l.MinPoints {
			lvl = l
		}
	}
	return lvl
}

// NewState returns the state of a user with no completions.
func NewState(userID string) *models.GamificationState {
	return &models.GamificationState{
		UserID:    userID,
		Level:     Levels[0].Number,
		LevelName: Levels[0].Name,
	}
}

// DayComplete reports whether every enrolled routine type is in done.
func DayComplete(done, enrolled []models.RoutineType) bool {
	have := make(map[models.RoutineType]bool, len(done))
	for _, rt := range done {
		have[rt] = true
	}
	for _, rt := range enrolled {
		if !have[rt] {
			return false
		}
	}
	return len(enrolled) > 0
}

// previousDate returns the calendar day before date (YYYY-MM-DD).
func previousDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(models.DateLayout)
}

// applyCompletion folds one newly inserted completion on date into s.
// dayComplete is whether date is complete including this completion.
func applyCompletion(s *models.GamificationState, date string, dayComplete bool, now time.Time) models.CompletionOutcome {
	out := models.CompletionOutcome{State: s, Recorded: true}
	before := s.Level

	s.Points += PointsPerCompletion
	out.PointsAwarded = PointsPerCompletion

	// A day is counted once. Completions for a day older than the last
	// counted day earn points but never rewrite the streak.
	if dayComplete && date > s.LastCompletionDate {
		if s.LastCompletionDate != "" && s.LastCompletionDate == previousDate(date) {
			s.CurrentStreak++
		} else {
			s.CurrentStreak = 1
		}
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
		s.LastCompletionDate = date

		s.Points += PointsDayComplete
		out.PointsAwarded += PointsDayComplete
		if s.CurrentStreak%StreakMilestone == 0 {
			s.Points += PointsWeekStreak
			out.PointsAwarded += PointsWeekStreak
		}
		out.DayCompleted = true
	}

	lvl := LevelFor(s.Points)
	s.Level = lvl.Number
	s.LevelName = lvl.Name
	s.UpdatedAt = now
	out.LeveledUp = s.Level > before
	return out
}

// evaluate resets a streak whose last counted day is older than yesterday.
// It returns true when s changed.
func evaluate(s *models.GamificationState, today string) bool {
	if s.CurrentStreak == 0 || s.LastCompletionDate == "" {
		return false
	}
	if s.LastCompletionDate >= previousDate(today) {
		return false
	}
	s.CurrentStreak = 0
	return true
}
