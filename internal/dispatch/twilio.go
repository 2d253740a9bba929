// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lumaskin/internal/config"
)

// DefaultTwilioBaseURL is the Twilio REST API host.
const DefaultTwilioBaseURL = "https://api.twilio.com"

// TwilioProvider sends SMS through the Twilio Messages API.
type TwilioProvider struct {
	accountSID          string
	authToken           string
	from                string
	messagingServiceSID string
	baseURL             string
	client              *http.Client
}

// twilioMessage is the subset of the Messages resource we read.
type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewTwilioProvider creates a Twilio provider. client may be nil.
func NewTwilioProvider(cfg config.SMSConfig, client *http.Client) (*TwilioProvider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio account SID and auth token are required")
	}
	if cfg.FromNumber == "" && cfg.MessagingServiceSID == "" {
		return nil, fmt.Errorf("twilio needs a from number or a messaging service SID")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultTwilioBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TwilioProvider{
		accountSID:          cfg.AccountSID,
		authToken:           cfg.AuthToken,
		from:                cfg.FromNumber,
		messagingServiceSID: cfg.MessagingServiceSID,
		baseURL:             baseURL,
		client:              client,
	}, nil
}

// Name returns the provider name.
func (p *TwilioProvider) Name() string { return "twilio" }

// SendSMS creates a Message resource.
func (p *TwilioProvider) SendSMS(ctx context.Context, to, body string) (*SMSReceipt, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", body)
	if p.messagingServiceSID != "" {
		form.Set("MessagingServiceSid", p.messagingServiceSID)
	} else {
		form.Set("From", p.from)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.baseURL, url.PathEscape(p.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // Best effort cleanup

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read twilio response: %w", err)
	}

	var msg twilioMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &msg); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to decode twilio response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := msg.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Code: msg.Code, Message: message}
	}

	return &SMSReceipt{MessageID: msg.SID, Status: msg.Status}, nil
}
