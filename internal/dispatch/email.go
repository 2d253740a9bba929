// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/models"
)

// EmailChannel implements email delivery via SMTP.
type EmailChannel struct {
	cfg     config.EmailConfig
	baseURL string

	// defaultTimeout is the connection timeout.
	defaultTimeout time.Duration
}

// NewEmailChannel creates an email channel. baseURL prefixes action links.
func NewEmailChannel(cfg config.EmailConfig, baseURL string) *EmailChannel {
	return &EmailChannel{
		cfg:            cfg,
		baseURL:        strings.TrimRight(baseURL, "/"),
		defaultTimeout: 30 * time.Second,
	}
}

// Name returns the channel identifier.
func (c *EmailChannel) Name() models.Channel {
	return models.ChannelEmail
}

// Validate checks the SMTP configuration.
func (c *EmailChannel) Validate() error {
	if c.cfg.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.cfg.Port <= 0 || c.cfg.Port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", c.cfg.Port)
	}
	if _, err := mail.ParseAddress(c.cfg.From); err != nil {
		return fmt.Errorf("invalid SMTP from address: %w", err)
	}
	return nil
}

// Send delivers the intent as a plaintext email.
func (c *EmailChannel) Send(ctx context.Context, intent *Intent) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	to := intent.Recipient.Email
	if to == "" {
		return Failure(ErrorCodeChannelUnavailable, "no email address"), nil
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return Failure(ErrorCodeInvalidRecipient, err.Error()), nil
	}

	messageID := uuid.NewString()
	msg := c.buildMessage(intent, to, messageID)

	if err := c.sendSMTP(ctx, to, msg); err != nil {
		return Failure(classifyEmailError(err), err.Error()), nil
	}
	return &Result{Success: true, ExternalID: messageID}, nil
}

// buildMessage constructs the email message with headers.
func (c *EmailChannel) buildMessage(intent *Intent, to, messageID string) string {
	var msg strings.Builder

	fromName := c.cfg.FromName
	if fromName == "" {
		fromName = "Lumaskin"
	}
	domain := "lumaskin.local"
	if at := strings.LastIndex(c.cfg.From, "@"); at >= 0 {
		domain = c.cfg.From[at+1:]
	}

	fmt.Fprintf(&msg, "From: %s <%s>\r\n", fromName, c.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(intent.Content.Title))
	fmt.Fprintf(&msg, "Message-ID: <%s@%s>\r\n", messageID, domain)
	fmt.Fprintf(&msg, "X-Lumaskin-Category: %s\r\n", intent.Category)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(intent.Content.Body)
	msg.WriteString("\r\n")

	link := intent.Content.URL
	if link == "" {
		link = CategoryURL(intent.Category)
	}
	if c.baseURL != "" && strings.HasPrefix(link, "/") {
		link = c.baseURL + link
	}
	fmt.Fprintf(&msg, "\r\nOpen Lumaskin: %s\r\n", link)
	msg.WriteString("\r\nYou can change which reminders you receive in your notification settings.\r\n")

	return msg.String()
}

// sendSMTP sends the email via SMTP.
func (c *EmailChannel) sendSMTP(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	dialer := &net.Dialer{Timeout: c.defaultTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // Best effort cleanup

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // Best effort cleanup

	if c.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: c.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if c.cfg.Username != "" && c.cfg.Password != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(c.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// The message is accepted once DATA closes.
	_ = client.Quit()
	return nil
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// classifyEmailError classifies an error into an error code.
func classifyEmailError(err error) string {
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return ErrorCodeTimeout
	}
	if strings.Contains(errStr, "authentication") || strings.Contains(errStr, "auth") {
		return ErrorCodeAuthFailed
	}
	if strings.Contains(errStr, "connect") {
		return ErrorCodeConnectionFailed
	}
	if strings.Contains(errStr, "recipient") || strings.Contains(errStr, "mailbox") {
		return ErrorCodeRecipientNotFound
	}
	if strings.Contains(errStr, "rate") || strings.Contains(errStr, "limit") {
		return ErrorCodeRateLimited
	}
	if strings.Contains(errStr, "too large") || strings.Contains(errStr, "size") {
		return ErrorCodeContentTooLarge
	}

	return ErrorCodeUnknown
}
