// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"context"
	"fmt"

	"github.com/tomtom215/lumaskin/internal/models"
)

// InboxAppender persists notification-center rows.
type InboxAppender interface {
	AppendInbox(ctx context.Context, n *models.InAppNotification) error
}

// InAppChannel writes the durable notification-center row.
type InAppChannel struct {
	inbox InboxAppender
}

// NewInAppChannel creates an in-app channel.
func NewInAppChannel(inbox InboxAppender) *InAppChannel {
	return &InAppChannel{inbox: inbox}
}

// Name returns the channel identifier.
func (c *InAppChannel) Name() models.Channel {
	return models.ChannelInApp
}

// Send appends the notification row.
func (c *InAppChannel) Send(ctx context.Context, intent *Intent) (*Result, error) {
	if c.inbox == nil {
		return nil, fmt.Errorf("in-app channel has no inbox")
	}

	ntype := intent.Content.Type
	if !ntype.IsValid() {
		ntype = models.NotificationInfo
	}
	metadata := make(map[string]string, len(intent.Content.Metadata)+1)
	for k, v := range intent.Content.Metadata {
		metadata[k] = v
	}
	metadata["period_key"] = intent.PeriodKey

	url := intent.Content.URL
	if url == "" {
		url = CategoryURL(intent.Category)
	}

	n := &models.InAppNotification{
		UserID:    intent.UserID,
		Title:     intent.Content.Title,
		Message:   intent.Content.Body,
		Type:      ntype,
		Category:  intent.Category,
		ActionURL: url,
		Metadata:  metadata,
		DedupKey:  intent.Key().String(),
	}
	if err := c.inbox.AppendInbox(ctx, n); err != nil {
		return Failure(ErrorCodeServerError, err.Error()), nil
	}
	return &Result{Success: true, ExternalID: n.ID}, nil
}
