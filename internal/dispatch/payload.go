// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package dispatch

import (
	"fmt"

	"github.com/tomtom215/lumaskin/internal/models"
)

// Push notification assets served by the web client.
const (
	PushIcon  = "/icons/icon-192.png"
	PushBadge = "/icons/badge-72.png"
)

// Push action identifiers understood by the service worker.
const (
	ActionStartRoutine = "start-routine"
	ActionSnooze       = "snooze"
	ActionCompleteNow  = "complete-now"
	ActionDismiss      = "dismiss"
	ActionViewFeedback = "view-feedback"
	ActionViewProduct  = "view-product"
	ActionOpen         = "open"
)

// PushAction is a button on a push notification.
type PushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// PushData is read by the service worker on click.
type PushData struct {
	URL  string          `json:"url"`
	Type models.Category `json:"type"`
}

// PushPayload is the JSON body encrypted into a Web Push message.
type PushPayload struct {
	Title              string       `json:"title"`
	Body               string       `json:"body"`
	Icon               string       `json:"icon"`
	Badge              string       `json:"badge"`
	Tag                string       `json:"tag"`
	RequireInteraction bool         `json:"requireInteraction"`
	Data               PushData     `json:"data"`
	Actions            []PushAction `json:"actions"`
	Vibrate            []int        `json:"vibrate"`
}

// pushStyle is the urgency of a category on the device.
type pushStyle struct {
	requireInteraction bool
	vibrate            []int
	actions            []PushAction
}

var (
	routineStyle = pushStyle{
		vibrate: []int{200, 100, 200},
		actions: []PushAction{
			{Action: ActionStartRoutine, Title: "Start routine"},
			{Action: ActionSnooze, Title: "Snooze"},
		},
	}
	defaultStyle = pushStyle{
		vibrate: []int{200},
		actions: []PushAction{
			{Action: ActionOpen, Title: "Open"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
	}
)

// pushStyles has an entry for every category; ValidateStyles enforces it.
var pushStyles = map[models.Category]pushStyle{
	models.CategoryAMReminder: routineStyle,
	models.CategoryPMReminder: routineStyle,
	models.CategoryStreakWarning: {
		requireInteraction: true,
		vibrate:            []int{200, 100, 200, 100, 200},
		actions: []PushAction{
			{Action: ActionCompleteNow, Title: "Complete now"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
	},
	models.CategoryFeedback: {
		vibrate: []int{200},
		actions: []PushAction{
			{Action: ActionViewFeedback, Title: "View feedback"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
	},
	models.CategoryProductRecommendation: {
		vibrate: []int{200},
		actions: []PushAction{
			{Action: ActionViewProduct, Title: "View product"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
	},
	models.CategoryAppointmentReminder: defaultStyle,
	models.CategoryChallenge:           defaultStyle,
}

// categoryURLs is where "open" leads for each category.
var categoryURLs = map[models.Category]string{
	models.CategoryAMReminder:            "/routine",
	models.CategoryPMReminder:            "/routine",
	models.CategoryStreakWarning:         "/routine",
	models.CategoryFeedback:              "/progress",
	models.CategoryProductRecommendation: "/products",
	models.CategoryChallenge:             "/challenges",
	models.CategoryAppointmentReminder:   "/appointments",
}

// ValidateStyles checks that every category has a push style and a default
// URL. It is called at startup.
func ValidateStyles() error {
	for _, c := range models.CategoriesByPriority {
		if _, ok := pushStyles[c]; !ok {
			return fmt.Errorf("no push style for category %s", c)
		}
		if _, ok := categoryURLs[c]; !ok {
			return fmt.Errorf("no default URL for category %s", c)
		}
	}
	return nil
}

// CategoryURL returns the default in-app path for a category.
func CategoryURL(c models.Category) string {
	if u, ok := categoryURLs[c]; ok {
		return u
	}
	return "/notifications"
}

// BuildPushPayload shapes an intent for Web Push.
func BuildPushPayload(intent *Intent) PushPayload {
	style, ok := pushStyles[intent.Category]
	if !ok {
		style = defaultStyle
	}
	url := intent.Content.URL
	if url == "" {
		url = CategoryURL(intent.Category)
	}
	actions := make([]PushAction, len(style.actions))
	copy(actions, style.actions)
	vibrate := make([]int, len(style.vibrate))
	copy(vibrate, style.vibrate)

	return PushPayload{
		Title:              intent.Content.Title,
		Body:               intent.Content.Body,
		Icon:               PushIcon,
		Badge:              PushBadge,
		Tag:                "lumaskin-" + string(intent.Category),
		RequireInteraction: style.requireInteraction,
		Data:               PushData{URL: url, Type: intent.Category},
		Actions:            actions,
		Vibrate:            vibrate,
	}
}

// ResolveAction returns the path the client should open for a clicked push
// action. Dismiss resolves to "". Snooze returns models.ErrNotImplemented:
// rescheduling a reminder is not supported.
func ResolveAction(category models.Category, action string) (string, error) {
	if !category.IsValid() {
		return "", models.NewValidationError("category", "unknown category")
	}
	switch action {
	case ActionStartRoutine, ActionCompleteNow:
		return "/routine", nil
	case ActionViewFeedback:
		return "/progress", nil
	case ActionViewProduct:
		return "/products", nil
	case ActionOpen:
		return CategoryURL(category), nil
	case ActionDismiss:
		return "", nil
	case ActionSnooze:
		return "", models.ErrNotImplemented
	default:
		return "", models.NewValidationError("action", fmt.Sprintf("unknown action %q", action))
	}
}
