// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/models"
)

func TestFormatSMS(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{
			name:    "title and body with opt-out",
			content: Content{Title: "Time for your AM routine", Body: "Cleanse, treat, protect."},
			want:    "Lumaskin: Time for your AM routine - Cleanse, treat, protect. Reply STOP to opt out.",
		},
		{
			name:    "title only",
			content: Content{Title: "Hi"},
			want:    "Lumaskin: Hi Reply STOP to opt out.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSMS(tt.content); got != tt.want {
				t.Errorf("FormatSMS() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSMS_Truncates(t *testing.T) {
	got := FormatSMS(Content{Title: "Streak at risk", Body: strings.Repeat("a", 300)})
	if n := utf8.RuneCountInString(got); n > MaxSMSLength {
		t.Errorf("length = %d, want <= %d", n, MaxSMSLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated text should end with an ellipsis: %q", got)
	}
	if strings.Contains(got, "STOP") {
		t.Error("opt-out notice should be dropped when it does not fit")
	}
}

func TestTruncateContent(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := TruncateContent(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateContent(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

type twilioRequest struct {
	path     string
	user     string
	password string
	to       string
	from     string
	body     string
}

func newTwilioServer(t *testing.T, status int, response string) (*httptest.Server, *[]twilioRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []twilioRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		user, pass, _ := r.BasicAuth()
		mu.Lock()
		reqs = append(reqs, twilioRequest{
			path:     r.URL.Path,
			user:     user,
			password: pass,
			to:       r.PostForm.Get("To"),
			from:     r.PostForm.Get("From"),
			body:     r.PostForm.Get("Body"),
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestTwilioProvider_SendSMS(t *testing.T) {
	srv, reqs := newTwilioServer(t, http.StatusCreated, `{"sid":"SM123","status":"queued"}`)

	p, err := NewTwilioProvider(config.SMSConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15005550006",
		BaseURL:    srv.URL,
	}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	receipt, err := p.SendSMS(context.Background(), "+16502530000", "hello")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if receipt.MessageID != "SM123" || receipt.Status != "queued" {
		t.Errorf("receipt = %+v", receipt)
	}

	if len(*reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(*reqs))
	}
	got := (*reqs)[0]
	if got.path != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Errorf("path = %q", got.path)
	}
	if got.user != "AC123" || got.password != "secret" {
		t.Errorf("basic auth = %q/%q", got.user, got.password)
	}
	if got.to != "+16502530000" || got.from != "+15005550006" || got.body != "hello" {
		t.Errorf("form = %+v", got)
	}
}

func TestNewTwilioProvider_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SMSConfig
	}{
		{"missing credentials", config.SMSConfig{FromNumber: "+15005550006"}},
		{"missing sender", config.SMSConfig{AccountSID: "AC1", AuthToken: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTwilioProvider(tt.cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSMSChannel_Send(t *testing.T) {
	logger := zerolog.Nop()
	tests := []struct {
		name        string
		status      int
		response    string
		wantSuccess bool
		wantCode    string
		wantOutcome models.Outcome
	}{
		{"accepted", http.StatusCreated, `{"sid":"SM1","status":"queued"}`, true, "", models.OutcomeSent},
		{"opted out", http.StatusBadRequest, `{"code":21610,"message":"Attempt to send to unsubscribed recipient","status":400}`, false, ErrorCodeRecipientOptedOut, models.OutcomeSkipped},
		{"invalid number", http.StatusBadRequest, `{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`, false, ErrorCodeInvalidRecipient, models.OutcomeFailed},
		{"auth", http.StatusUnauthorized, `{"code":20003,"message":"Authenticate","status":401}`, false, ErrorCodeAuthFailed, models.OutcomeFailed},
		{"rate limited", http.StatusTooManyRequests, `{"code":20429,"message":"Too Many Requests","status":429}`, false, ErrorCodeRateLimited, models.OutcomeFailed},
		{"server error", http.StatusServiceUnavailable, ``, false, ErrorCodeServerError, models.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTwilioServer(t, tt.status, tt.response)
			p, err := NewTwilioProvider(config.SMSConfig{AccountSID: "AC1", AuthToken: "x", MessagingServiceSID: "MG1", BaseURL: srv.URL}, srv.Client())
			if err != nil {
				t.Fatal(err)
			}
			ch := NewSMSChannel(p, 0, &logger)

			res, err := ch.Send(context.Background(), &Intent{
				UserID:    "u1",
				Category:  models.CategoryAMReminder,
				Channel:   models.ChannelSMS,
				Content:   Content{Title: "Morning routine"},
				Recipient: Recipient{Phone: "+16502530000"},
			})
			if err != nil {
				t.Fatalf("Send error: %v", err)
			}
			if res.Success != tt.wantSuccess || res.ErrorCode != tt.wantCode {
				t.Errorf("result = %+v, want success=%v code=%q", res, tt.wantSuccess, tt.wantCode)
			}
			if res.Outcome() != tt.wantOutcome {
				t.Errorf("Outcome() = %q, want %q", res.Outcome(), tt.wantOutcome)
			}
		})
	}
}

func TestSMSChannel_NoPhone(t *testing.T) {
	logger := zerolog.Nop()
	ch := NewSMSChannel(NewLogProvider(&logger), 0, &logger)
	res, err := ch.Send(context.Background(), &Intent{UserID: "u1", Channel: models.ChannelSMS})
	if err != nil {
		t.Fatal(err)
	}
	if res.ErrorCode != ErrorCodeChannelUnavailable || res.Outcome() != models.OutcomeSkipped {
		t.Errorf("result = %+v", res)
	}
}

func TestSMSChannel_SendText(t *testing.T) {
	srv, reqs := newTwilioServer(t, http.StatusCreated, `{"sid":"SM9","status":"queued"}`)
	p, err := NewTwilioProvider(config.SMSConfig{AccountSID: "AC1", AuthToken: "x", FromNumber: "+15005550006", BaseURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	logger := zerolog.Nop()
	ch := NewSMSChannel(p, 0, &logger)

	if err := ch.SendText(context.Background(), "+16502530000", "Your code is 123456"); err != nil {
		t.Fatal(err)
	}
	if len(*reqs) != 1 || (*reqs)[0].body != "Your code is 123456" {
		t.Errorf("requests = %+v", *reqs)
	}
}

func TestMaskPhone(t *testing.T) {
	if got := maskPhone("+16502530000"); got != "********0000" {
		t.Errorf("maskPhone() = %q", got)
	}
	if got := maskPhone("12"); got != "****" {
		t.Errorf("maskPhone(short) = %q", got)
	}
}
