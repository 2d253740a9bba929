// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package reminders

import (
	"fmt"
	"time"

	"github.com/tomtom215/lumaskin/internal/dispatch"
	"github.com/tomtom215/lumaskin/internal/models"
)

func routineContent(c models.Category) dispatch.Content {
	if c == models.CategoryAMReminder {
		return dispatch.Content{
			Title: "Good morning! Time for your AM routine",
			Body:  "Cleanse, treat and don't forget your sunscreen.",
			URL:   dispatch.CategoryURL(c),
			Type:  models.NotificationReminder,
		}
	}
	return dispatch.Content{
		Title: "Wind down with your PM routine",
		Body:  "Take a few minutes for your evening skincare before bed.",
		URL:   dispatch.CategoryURL(c),
		Type:  models.NotificationReminder,
	}
}

func streakContent(streak int, left time.Duration) dispatch.Content {
	body := "Complete today's routine before midnight to start a streak."
	if streak > 0 {
		body = fmt.Sprintf("Your %d-day streak ends at midnight. Complete today's routine to keep it going.", streak)
	}
	return dispatch.Content{
		Title: fmt.Sprintf("Only %s left today", humanizeHours(left)),
		Body:  body,
		URL:   dispatch.CategoryURL(models.CategoryStreakWarning),
		Type:  models.NotificationWarning,
	}
}

func appointmentContent(a models.Appointment, loc *time.Location, threshold time.Duration) dispatch.Content {
	when := a.StartsAt.In(loc).Format("Mon Jan 2 at 3:04 PM")
	title := "Appointment tomorrow"
	if threshold <= time.Hour {
		title = "Appointment starting soon"
	}
	body := fmt.Sprintf("%s on %s", a.Title, when)
	if a.Location != "" {
		body += " at " + a.Location
	}
	return dispatch.Content{
		Title:    title,
		Body:     body + ".",
		URL:      dispatch.CategoryURL(models.CategoryAppointmentReminder),
		Type:     models.NotificationReminder,
		Metadata: map[string]string{"appointment_id": a.ID},
	}
}

var eventDefaults = map[models.Category]dispatch.Content{
	models.CategoryFeedback: {
		Title: "New feedback on your progress",
		Body:  "Your skincare professional left you a comment.",
		Type:  models.NotificationMessage,
	},
	models.CategoryProductRecommendation: {
		Title: "A new product recommendation",
		Body:  "Your skincare professional recommended a product for you.",
		Type:  models.NotificationInfo,
	},
	models.CategoryChallenge: {
		Title: "Challenge update",
		Body:  "You reached a new milestone. Keep it up!",
		Type:  models.NotificationSuccess,
	},
}

func eventContent(ev models.DomainEvent) dispatch.Content {
	c := eventDefaults[ev.Category]
	if ev.Title != "" {
		c.Title = ev.Title
	}
	if ev.Body != "" {
		c.Body = ev.Body
	}
	c.URL = dispatch.CategoryURL(ev.Category)
	if u := ev.Attributes["url"]; u != "" {
		c.URL = u
	}
	c.Metadata = map[string]string{"entity_id": ev.EntityID}
	if ev.EventID != "" {
		c.Metadata["event_id"] = ev.EventID
	}
	return c
}

func humanizeHours(d time.Duration) string {
	if d < time.Hour {
		m := int(d.Round(time.Minute) / time.Minute)
		if m <= 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	h := int(d / time.Hour)
	if h == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}
