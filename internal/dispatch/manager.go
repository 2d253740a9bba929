// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/metrics"
	"github.com/tomtom215/lumaskin/internal/models"
)

// DefaultSendTimeout bounds one channel send.
const DefaultSendTimeout = 5 * time.Second

// ManagerConfig contains configuration for the dispatch manager.
type ManagerConfig struct {
	// SendTimeout bounds a single send; a send that overruns is failed.
	SendTimeout time.Duration

	// Breaker tunes the per-channel circuit breakers.
	Breaker config.BreakerConfig
}

// Manager fans intents out to the registered channels.
type Manager struct {
	mu          sync.RWMutex
	channels    map[models.Channel]Channel
	breakers    map[models.Channel]*gobreaker.CircuitBreaker[*Result]
	breakerCfg  config.BreakerConfig
	sendTimeout time.Duration
	logger      zerolog.Logger
}

// NewManager creates a dispatch manager with no channels.
func NewManager(logger *zerolog.Logger, cfg ManagerConfig) *Manager {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	return &Manager{
		channels:    make(map[models.Channel]Channel),
		breakers:    make(map[models.Channel]*gobreaker.CircuitBreaker[*Result]),
		breakerCfg:  cfg.Breaker,
		sendTimeout: cfg.SendTimeout,
		logger:      logger.With().Str("component", "dispatch").Logger(),
	}
}

// Register adds a channel, replacing any channel with the same name.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := ch.Name()
	m.channels[name] = ch
	m.breakers[name] = newBreaker(string(name), m.breakerCfg, &m.logger)
}

// Has reports whether a channel is registered.
func (m *Manager) Has(name models.Channel) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.channels[name]
	return ok
}

// Channels returns the registered channel names.
func (m *Manager) Channels() []models.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Channel, 0, len(m.channels))
	for _, ch := range models.AllChannels {
		if _, ok := m.channels[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// Dispatch sends every intent in parallel and returns results in the same
// order. One channel failing, hanging or panicking never affects another.
func (m *Manager) Dispatch(ctx context.Context, intents []*Intent) []*Result {
	results := make([]*Result, len(intents))
	var wg sync.WaitGroup
	for i, intent := range intents {
		wg.Add(1)
		go func(i int, intent *Intent) {
			defer wg.Done()
			results[i] = m.Send(ctx, intent)
		}(i, intent)
	}
	wg.Wait()
	return results
}

// Send delivers one intent under the send timeout and the channel's breaker.
// A pacing channel is given its slot first, bounded only by ctx. It always
// returns a result.
func (m *Manager) Send(ctx context.Context, intent *Intent) *Result {
	m.mu.RLock()
	ch, ok := m.channels[intent.Channel]
	cb := m.breakers[intent.Channel]
	m.mu.RUnlock()
	if !ok {
		return Failure(ErrorCodeChannelUnavailable, fmt.Sprintf("channel %s is not configured", intent.Channel))
	}

	start := time.Now()
	if p, ok := ch.(Pacer); ok {
		if err := p.Pace(ctx); err != nil {
			res := Failure(ErrorCodeThrottled, fmt.Sprintf("no %s send slot: %v", intent.Channel, err))
			res.Duration = time.Since(start)
			m.logFailure(intent, res)
			return res
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	// The provider call is not cancellable from here; if it overruns the
	// timeout its eventual result is dropped.
	done := make(chan *Result, 1)
	go func() {
		done <- m.execute(sendCtx, ch, cb, intent)
	}()

	var res *Result
	select {
	case res = <-done:
	case <-sendCtx.Done():
		res = Failure(ErrorCodeTimeout, fmt.Sprintf("send did not finish within %s", m.sendTimeout))
	}
	res.Duration = time.Since(start)

	if !res.Success {
		m.logFailure(intent, res)
	}
	return res
}

func (m *Manager) logFailure(intent *Intent, res *Result) {
	m.logger.Warn().
		Str("user_id", intent.UserID).
		Str("category", string(intent.Category)).
		Str("channel", string(intent.Channel)).
		Str("error_code", res.ErrorCode).
		Str("error", res.ErrorMessage).
		Bool("transient", res.Transient).
		Msg("dispatch failed")
}

func (m *Manager) execute(ctx context.Context, ch Channel, cb *gobreaker.CircuitBreaker[*Result], intent *Intent) *Result {
	name := string(ch.Name())
	res, err := cb.Execute(func() (res *Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error().
					Str("channel", name).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("channel panicked")
				res = Failure(ErrorCodePanic, fmt.Sprintf("channel panicked: %v", r))
				err = errTransientFailure
			}
		}()

		res, err = ch.Send(ctx, intent)
		if err != nil {
			return Failure(ErrorCodeInvalidConfig, err.Error()), errTransientFailure
		}
		if res == nil {
			return Failure(ErrorCodeUnknown, "channel returned no result"), errTransientFailure
		}
		if countsAgainstBreaker(res) {
			return res, errTransientFailure
		}
		return res, nil
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
		return res
	case isBreakerRejection(err):
		metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
		return Failure(ErrorCodeCircuitOpen, fmt.Sprintf("%s circuit is open", name))
	case errors.Is(err, errTransientFailure):
		metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
		return res
	default:
		return Failure(ErrorCodeUnknown, err.Error())
	}
}
