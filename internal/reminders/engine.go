// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package reminders decides which notifications a user is owed and fans each
// one out over the user's reachable channels.
//
// Time-polled categories (appointment reminders, streak warnings, AM/PM
// routine reminders) are evaluated by Evaluate on every scheduler tick.
// Event-driven categories (feedback, product recommendations, challenges)
// go through HandleEvent when their domain event arrives.
//
// Every (category, channel) attempt is guarded by a delivery key claimed in
// the ledger before the send. A key already sent for its period, or held by
// an overlapping tick, is skipped; a failed key is claimed again on a later
// tick. Preferences are read fresh on every call.
package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/capability"
	"github.com/tomtom215/lumaskin/internal/dispatch"
	"github.com/tomtom215/lumaskin/internal/metrics"
	"github.com/tomtom215/lumaskin/internal/models"
)

// Defaults for Config.
const (
	DefaultTolerance = 5 * time.Minute
	recordTimeout    = 5 * time.Second
)

// DefaultAppointmentThresholds are the look-ahead windows for appointment
// reminders.
var DefaultAppointmentThresholds = []time.Duration{time.Hour, 24 * time.Hour}

// Attempt error codes that never reach a channel.
const (
	ErrorCodeAlreadyClaimed = "ALREADY_CLAIMED"
	ErrorCodeClaimFailed    = "CLAIM_FAILED"
	ErrorCodeProbeFailed    = "PROBE_FAILED"
)

// PreferenceSource reads the current preference of a user.
type PreferenceSource interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreference, error)
}

// PushProber reports push readiness.
type PushProber interface {
	ProbePush(ctx context.Context, userID string) (capability.PushCapability, error)
}

// StreakTracker answers streak questions for the warning category.
type StreakTracker interface {
	DayComplete(ctx context.Context, pref *models.NotificationPreference, localNow time.Time) (bool, error)
	Evaluate(ctx context.Context, userID string, localNow time.Time) (*models.GamificationState, error)
}

// AppointmentSource lists upcoming appointments.
type AppointmentSource interface {
	UpcomingAppointments(ctx context.Context, userID string, from, to time.Time) ([]models.Appointment, error)
}

// Dispatcher sends one intent over its channel.
type Dispatcher interface {
	Has(name models.Channel) bool
	Send(ctx context.Context, intent *dispatch.Intent) *dispatch.Result
}

// Ledger claims delivery keys and records outcomes.
type Ledger interface {
	Claim(ctx context.Context, key models.DeliveryKey) (bool, error)
	Record(ctx context.Context, key models.DeliveryKey, outcome models.Outcome, res *dispatch.Result) error
}

// Quota limits SMS sends. Release hands back a unit whose send failed.
type Quota interface {
	Allow(ctx context.Context, userID string, now time.Time) (bool, error)
	Release(ctx context.Context, userID string, now time.Time) error
}

// SMSOptOuts turns SMS off for a user whose number replied STOP.
type SMSOptOuts interface {
	DisableSMS(ctx context.Context, userID string) error
}

// Dependencies are the collaborators of an Engine. Appointments, SMSQuota and
// OptOuts are optional.
type Dependencies struct {
	Preferences  PreferenceSource
	Capabilities PushProber
	Streaks      StreakTracker
	Appointments AppointmentSource
	Dispatcher   Dispatcher
	Ledger       Ledger
	SMSQuota     Quota
	OptOuts      SMSOptOuts
}

// Config tunes eligibility.
type Config struct {
	// Tolerance is how long after a reminder time the reminder may still fire.
	Tolerance time.Duration

	// AppointmentThresholds are the look-ahead windows before an appointment.
	AppointmentThresholds []time.Duration
}

// Attempt is the result of one (category, channel) delivery attempt.
type Attempt struct {
	Key          models.DeliveryKey `json:"key"`
	Outcome      models.Outcome     `json:"outcome"`
	ErrorCode    string             `json:"error_code,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`

	// Recorded is true when the outcome was written to the ledger.
	Recorded bool `json:"recorded"`
}

// Evaluation lists the attempts made for one user.
type Evaluation struct {
	UserID   string    `json:"user_id"`
	At       time.Time `json:"at"`
	Attempts []Attempt `json:"attempts"`
}

// Count returns the number of attempts with outcome o.
func (e *Evaluation) Count(o models.Outcome) int {
	n := 0
	for _, a := range e.Attempts {
		if a.Outcome == o {
			n++
		}
	}
	return n
}

// reminder is one eligible category occurrence.
type reminder struct {
	category  models.Category
	periodKey string
	content   dispatch.Content
}

// Engine evaluates reminders.
type Engine struct {
	deps       Dependencies
	tolerance  time.Duration
	thresholds []time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEngine creates an engine.
func NewEngine(deps Dependencies, cfg Config, logger *zerolog.Logger) *Engine {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	thresholds := cfg.AppointmentThresholds
	if len(thresholds) == 0 {
		thresholds = DefaultAppointmentThresholds
	}
	thresholds = append([]time.Duration(nil), thresholds...)
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] < thresholds[j] })

	return &Engine{
		deps:       deps,
		tolerance:  cfg.Tolerance,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "reminders").Logger(),
		now:        time.Now,
	}
}

// Evaluate runs the time-polled categories for userID as of now. It returns
// an error only when the user's preference cannot be read; channel failures
// are reported in the Evaluation.
func (e *Engine) Evaluate(ctx context.Context, userID string, now time.Time) (*Evaluation, error) {
	pref, err := e.deps.Preferences.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences for %s: %w", userID, err)
	}

	local := now.In(pref.Location())
	eval := &Evaluation{UserID: userID, At: now}

	due := e.appointmentReminders(ctx, pref, now)
	if r, ok := e.streakWarning(ctx, pref, local); ok {
		due = append(due, r)
	}
	for _, c := range []models.Category{models.CategoryAMReminder, models.CategoryPMReminder} {
		if r, ok := e.routineReminder(pref, c, local); ok {
			due = append(due, r)
		}
	}
	if len(due) == 0 {
		return eval, nil
	}

	e.fanOut(ctx, pref, due, now, eval)
	return eval, nil
}

// HandleEvent delivers the notification for an event-driven category.
func (e *Engine) HandleEvent(ctx context.Context, ev models.DomainEvent) (*Evaluation, error) {
	if !ev.Category.IsEventDriven() {
		return nil, models.NewValidationError("category", fmt.Sprintf("%s is not an event-driven category", ev.Category))
	}
	if ev.UserID == "" {
		return nil, models.NewValidationError("user_id", "is required")
	}
	if ev.EntityID == "" {
		return nil, models.NewValidationError("entity_id", "is required")
	}

	pref, err := e.deps.Preferences.Get(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	eval := &Evaluation{UserID: ev.UserID, At: now}
	if !pref.CategoryEnabled(ev.Category) {
		e.logger.Debug().Str("user_id", ev.UserID).Str("category", string(ev.Category)).Msg("category disabled, event ignored")
		return eval, nil
	}

	e.fanOut(ctx, pref, []reminder{{
		category:  ev.Category,
		periodKey: EventPeriodKey(ev.Category, ev.EntityID),
		content:   eventContent(ev),
	}}, now, eval)
	return eval, nil
}

func (e *Engine) appointmentReminders(ctx context.Context, pref *models.NotificationPreference, now time.Time) []reminder {
	if !pref.AppointmentRemindersEnabled || e.deps.Appointments == nil {
		return nil
	}
	horizon := e.thresholds[len(e.thresholds)-1]
	appts, err := e.deps.Appointments.UpcomingAppointments(ctx, pref.UserID, now, now.Add(horizon))
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", pref.UserID).Msg("failed to list appointments")
		return nil
	}

	var out []reminder
	for _, a := range appts {
		th, ok := appointmentThreshold(a.StartsAt, now, e.thresholds)
		if !ok {
			continue
		}
		out = append(out, reminder{
			category:  models.CategoryAppointmentReminder,
			periodKey: AppointmentPeriodKey(a.ID, th),
			content:   appointmentContent(a, pref.Location(), th),
		})
	}
	return out
}

func (e *Engine) streakWarning(ctx context.Context, pref *models.NotificationPreference, local time.Time) (reminder, bool) {
	if !pref.StreakWarningEnabled || e.deps.Streaks == nil {
		return reminder{}, false
	}
	left := untilMidnight(local)
	if left > time.Duration(pref.StreakWarningHours)*time.Hour {
		return reminder{}, false
	}

	done, err := e.deps.Streaks.DayComplete(ctx, pref, local)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", pref.UserID).Msg("failed to check today's completions")
		return reminder{}, false
	}
	if done {
		return reminder{}, false
	}

	streak := 0
	if st, err := e.deps.Streaks.Evaluate(ctx, pref.UserID, local); err != nil {
		e.logger.Warn().Err(err).Str("user_id", pref.UserID).Msg("failed to read streak")
	} else if st != nil {
		streak = st.CurrentStreak
	}

	return reminder{
		category:  models.CategoryStreakWarning,
		periodKey: DailyPeriodKey(models.CategoryStreakWarning, local),
		content:   streakContent(streak, left),
	}, true
}

func (e *Engine) routineReminder(pref *models.NotificationPreference, c models.Category, local time.Time) (reminder, bool) {
	if !pref.CategoryEnabled(c) {
		return reminder{}, false
	}
	hhmm, err := pref.ReminderTime(c)
	if err != nil {
		return reminder{}, false
	}
	at, ok, err := dueOccurrence(hhmm, local, e.tolerance)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", pref.UserID).Str("category", string(c)).Msg("stored reminder time is invalid")
		return reminder{}, false
	}
	if !ok {
		return reminder{}, false
	}
	return reminder{
		category:  c,
		periodKey: DailyPeriodKey(c, at),
		content:   routineContent(c),
	}, true
}

// route is the channel set of one user for one evaluation.
type route struct {
	channels  []models.Channel
	recipient dispatch.Recipient

	// probeErr is set when push readiness could not be determined.
	probeErr error

	// unavailable explains each enabled channel left out, as
	// *models.CapabilityError values.
	unavailable []error
}

func (e *Engine) route(ctx context.Context, pref *models.NotificationPreference) route {
	var r route
	d := e.deps.Dispatcher

	if pref.PushEnabled && d.Has(models.ChannelPush) {
		pc, err := e.deps.Capabilities.ProbePush(ctx, pref.UserID)
		switch {
		case err != nil:
			r.probeErr = err
			e.logger.Warn().Err(err).Str("user_id", pref.UserID).Msg("push probe failed")
		case pc.Deliverable():
			r.channels = append(r.channels, models.ChannelPush)
		default:
			r.unavailable = append(r.unavailable, pc.Err())
		}
	}
	if pref.SMSEnabled && d.Has(models.ChannelSMS) {
		if pref.HasVerifiedPhone() {
			r.channels = append(r.channels, models.ChannelSMS)
			r.recipient.Phone = *pref.PhoneNumber
		} else {
			r.unavailable = append(r.unavailable, &models.CapabilityError{Channel: models.ChannelSMS, Reason: "phone number is not verified"})
		}
	}
	if pref.EmailEnabled && d.Has(models.ChannelEmail) {
		if pref.HasEmail() {
			r.channels = append(r.channels, models.ChannelEmail)
			r.recipient.Email = *pref.Email
		} else {
			r.unavailable = append(r.unavailable, &models.CapabilityError{Channel: models.ChannelEmail, Reason: "no email address"})
		}
	}
	r.channels = append(r.channels, models.ChannelInApp)
	return r
}

// fanOut dispatches each reminder in priority order. Channels of one
// reminder run concurrently; a failure on one never stops the others.
func (e *Engine) fanOut(ctx context.Context, pref *models.NotificationPreference, due []reminder, now time.Time, eval *Evaluation) {
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].category.Priority() < due[j].category.Priority()
	})
	rt := e.route(ctx, pref)
	for _, err := range rt.unavailable {
		e.logger.Debug().Err(err).Str("user_id", pref.UserID).Msg("channel left out")
	}

	for _, r := range due {
		if rt.probeErr != nil {
			eval.Attempts = append(eval.Attempts, Attempt{
				Key: models.DeliveryKey{
					UserID: pref.UserID, Category: r.category, Channel: models.ChannelPush, PeriodKey: r.periodKey,
				},
				Outcome:      models.OutcomeFailed,
				ErrorCode:    ErrorCodeProbeFailed,
				ErrorMessage: rt.probeErr.Error(),
			})
		}

		attempts := make([]Attempt, len(rt.channels))
		var wg sync.WaitGroup
		for i, ch := range rt.channels {
			intent := &dispatch.Intent{
				UserID:    pref.UserID,
				Category:  r.category,
				Channel:   ch,
				PeriodKey: r.periodKey,
				Content:   r.content,
				Recipient: rt.recipient,
			}
			metrics.ReminderIntents.WithLabelValues(string(r.category), string(ch)).Inc()

			wg.Add(1)
			go func(i int, intent *dispatch.Intent) {
				defer wg.Done()
				attempts[i] = e.deliver(ctx, intent, now)
			}(i, intent)
		}
		wg.Wait()
		eval.Attempts = append(eval.Attempts, attempts...)
	}

	e.logger.Debug().
		Str("user_id", pref.UserID).
		Int("reminders", len(due)).
		Int("sent", eval.Count(models.OutcomeSent)).
		Int("failed", eval.Count(models.OutcomeFailed)).
		Int("skipped", eval.Count(models.OutcomeSkipped)).
		Msg("user evaluated")
}

// deliver claims the intent's key, sends and records the outcome.
func (e *Engine) deliver(ctx context.Context, intent *dispatch.Intent, now time.Time) Attempt {
	key := intent.Key()
	att := Attempt{Key: key}

	claimed, err := e.deps.Ledger.Claim(ctx, key)
	if err != nil {
		e.logger.Warn().Err(err).Str("key", key.String()).Msg("failed to claim delivery key")
		att.Outcome = models.OutcomeFailed
		att.ErrorCode = ErrorCodeClaimFailed
		att.ErrorMessage = err.Error()
		return att
	}
	if !claimed {
		att.Outcome = models.OutcomeSkipped
		att.ErrorCode = ErrorCodeAlreadyClaimed
		return att
	}

	res, reserved := e.checkQuota(ctx, intent, now)
	if res == nil {
		res = e.deps.Dispatcher.Send(ctx, intent)
	}
	att.Outcome = res.Outcome()
	att.ErrorCode = res.ErrorCode
	att.ErrorMessage = res.ErrorMessage

	// Bookkeeping runs even if the tick was cancelled mid-send.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if reserved && !res.Success {
		if err := e.deps.SMSQuota.Release(recCtx, intent.UserID, now); err != nil {
			e.logger.Warn().Err(err).Str("user_id", intent.UserID).Msg("failed to release sms quota")
		}
	}
	if intent.Channel == models.ChannelSMS && res.ErrorCode == dispatch.ErrorCodeRecipientOptedOut {
		e.disableSMS(recCtx, intent.UserID)
	}
	if err := e.deps.Ledger.Record(recCtx, key, att.Outcome, res); err != nil {
		e.logger.Error().Err(err).Str("key", key.String()).Msg("failed to record delivery outcome")
		return att
	}
	att.Recorded = true
	return att
}

// checkQuota returns a Result when an SMS intent must not be sent. reserved
// reports that a quota unit was taken and must be released if the send fails.
func (e *Engine) checkQuota(ctx context.Context, intent *dispatch.Intent, now time.Time) (res *dispatch.Result, reserved bool) {
	if intent.Channel != models.ChannelSMS || e.deps.SMSQuota == nil {
		return nil, false
	}
	ok, err := e.deps.SMSQuota.Allow(ctx, intent.UserID, now)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", intent.UserID).Msg("sms quota check failed")
		return dispatch.Failure(dispatch.ErrorCodeServerError, err.Error()), false
	}
	if !ok {
		return dispatch.Failure(dispatch.ErrorCodeQuotaExceeded, "daily sms limit reached"), false
	}
	return nil, true
}

// disableSMS stops further texts to a number the carrier reports as
// unsubscribed. The skipped record alone would be claimed again next tick.
func (e *Engine) disableSMS(ctx context.Context, userID string) {
	if e.deps.OptOuts == nil {
		return
	}
	if err := e.deps.OptOuts.DisableSMS(ctx, userID); err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to disable sms after opt-out")
		return
	}
	e.logger.Info().Str("user_id", userID).Msg("recipient opted out, sms disabled")
}
