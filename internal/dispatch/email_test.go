// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/models"
)

func testEmailConfig() config.EmailConfig {
	return config.EmailConfig{Host: "smtp.example.com", Port: 587, From: "reminders@lumaskin.example"}
}

func TestEmailChannel_BuildMessage(t *testing.T) {
	c := NewEmailChannel(testEmailConfig(), "https://app.lumaskin.example/")
	msg := c.buildMessage(&Intent{
		Category: models.CategoryStreakWarning,
		Content:  Content{Title: "Keep your\r\nstreak", Body: "Two hours left today."},
	}, "user@example.com", "abc")

	for _, want := range []string{
		"From: Lumaskin <reminders@lumaskin.example>\r\n",
		"To: user@example.com\r\n",
		"Subject: Keep your  streak\r\n",
		"Message-ID: <abc@lumaskin.example>\r\n",
		"X-Lumaskin-Category: streak_warning\r\n",
		"Two hours left today.",
		"https://app.lumaskin.example/routine",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestEmailChannel_Send_Recipient(t *testing.T) {
	c := NewEmailChannel(testEmailConfig(), "")

	res, err := c.Send(context.Background(), &Intent{UserID: "u1", Channel: models.ChannelEmail})
	if err != nil {
		t.Fatal(err)
	}
	if res.ErrorCode != ErrorCodeChannelUnavailable {
		t.Errorf("no address: code = %q", res.ErrorCode)
	}

	res, _ = c.Send(context.Background(), &Intent{UserID: "u1", Channel: models.ChannelEmail, Recipient: Recipient{Email: "not-an-address"}})
	if res.ErrorCode != ErrorCodeInvalidRecipient {
		t.Errorf("bad address: code = %q", res.ErrorCode)
	}
}

func TestEmailChannel_Validate(t *testing.T) {
	bad := testEmailConfig()
	bad.Port = 0
	if _, err := NewEmailChannel(bad, "").Send(context.Background(), &Intent{Recipient: Recipient{Email: "a@b.co"}}); err == nil {
		t.Error("expected configuration error")
	}
}

func TestClassifyEmailError(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{"failed to connect to SMTP server: dial tcp: connection refused", ErrorCodeConnectionFailed},
		{"SMTP authentication failed: 535", ErrorCodeAuthFailed},
		{"i/o timeout", ErrorCodeTimeout},
		{"failed to set recipient: 550 mailbox unavailable", ErrorCodeRecipientNotFound},
		{"552 message size exceeds", ErrorCodeContentTooLarge},
		{"something odd", ErrorCodeUnknown},
	}
	for _, tt := range tests {
		if got := classifyEmailError(errors.New(tt.err)); got != tt.want {
			t.Errorf("classifyEmailError(%q) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
