// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package main

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/models"
	"github.com/tomtom215/lumaskin/internal/reminders"
)

type fakeEvaluator struct {
	err   error
	calls int
}

func (f *fakeEvaluator) HandleEvent(_ context.Context, ev models.DomainEvent) (*reminders.Evaluation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &reminders.Evaluation{UserID: ev.UserID}, nil
}

func TestEventComponents_NilSafe(t *testing.T) {
	var c *EventComponents
	c.Close()
	AddEventsToSupervisor(nil, nil, 0)
}

func TestInitEvents_GoChannel(t *testing.T) {
	logger := zerolog.Nop()
	cfg := &config.Config{Events: config.EventsConfig{Backend: "gochannel"}}

	c, err := InitEvents(cfg, &fakeEvaluator{}, &logger)
	if err != nil {
		t.Fatalf("InitEvents: %v", err)
	}
	defer c.Close()
	if c.bus == nil {
		t.Fatal("bus not created")
	}
	if c.server != nil {
		t.Error("gochannel backend should not start a NATS server")
	}
}

func TestInitEvents_UnknownBackend(t *testing.T) {
	logger := zerolog.Nop()
	cfg := &config.Config{Events: config.EventsConfig{Backend: "kafka"}}
	if _, err := InitEvents(cfg, &fakeEvaluator{}, &logger); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestEventHandler(t *testing.T) {
	ev := models.DomainEvent{EventID: "e1", UserID: "u1", Category: models.CategoryFeedback, EntityID: "f1"}

	ok := &fakeEvaluator{}
	if err := eventHandler(ok, zerolog.Nop())(context.Background(), ev); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if ok.calls != 1 {
		t.Errorf("calls = %d, want 1", ok.calls)
	}

	boom := errors.New("boom")
	failing := &fakeEvaluator{err: boom}
	if err := eventHandler(failing, zerolog.Nop())(context.Background(), ev); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestNewSMSProvider(t *testing.T) {
	logger := zerolog.Nop()
	tests := []struct {
		name     string
		cfg      config.SMSConfig
		wantName string
		wantErr  bool
	}{
		{name: "default is log", cfg: config.SMSConfig{}, wantName: "log"},
		{name: "log", cfg: config.SMSConfig{Provider: "log"}, wantName: "log"},
		{name: "twilio", cfg: config.SMSConfig{Provider: "twilio", AccountSID: "AC1", AuthToken: "t", FromNumber: "+15550001111"}, wantName: "twilio"},
		{name: "twilio without credentials", cfg: config.SMSConfig{Provider: "twilio"}, wantErr: true},
		{name: "unknown", cfg: config.SMSConfig{Provider: "pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newSMSProvider(tt.cfg, http.DefaultClient, &logger)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}
