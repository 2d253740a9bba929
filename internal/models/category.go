// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

// ============================================================================
// Categories
// ============================================================================

// Category identifies a kind of notification.
type Category string

const (
	CategoryAppointmentReminder   Category = "appointment_reminder"
	CategoryStreakWarning         Category = "streak_warning"
	CategoryAMReminder            Category = "am_reminder"
	CategoryPMReminder            Category = "pm_reminder"
	CategoryFeedback              Category = "feedback"
	CategoryProductRecommendation Category = "product_recommendation"
	CategoryChallenge             Category = "challenge"
)

// CategoriesByPriority lists every category in dispatch order.
// Earlier categories are dispatched first within a tick. Ordering never
// suppresses a later category.
var CategoriesByPriority = []Category{
	CategoryAppointmentReminder,
	CategoryStreakWarning,
	CategoryAMReminder,
	CategoryPMReminder,
	CategoryFeedback,
	CategoryProductRecommendation,
	CategoryChallenge,
}

// Priority returns the dispatch rank of the category (lower runs first).
// Unknown categories sort last.
func (c Category) Priority() int {
	for i, cat := range CategoriesByPriority {
		if cat == c {
			return i
		}
	}
	return len(CategoriesByPriority)
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	return c.Priority() < len(CategoriesByPriority)
}

// IsEventDriven reports whether the category fires from a domain event
// rather than from the periodic tick.
func (c Category) IsEventDriven() bool {
	switch c {
	case CategoryFeedback, CategoryProductRecommendation, CategoryChallenge:
		return true
	default:
		return false
	}
}

// IsRoutineReminder reports whether c is the AM or PM routine reminder.
func (c Category) IsRoutineReminder() bool {
	return c == CategoryAMReminder || c == CategoryPMReminder
}

// ============================================================================
// Channels
// ============================================================================

// Channel identifies a delivery transport.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "inapp"
)

// AllChannels lists every channel in the order intents are built.
var AllChannels = []Channel{ChannelPush, ChannelSMS, ChannelEmail, ChannelInApp}

// IsValid reports whether ch is a known channel.
func (ch Channel) IsValid() bool {
	switch ch {
	case ChannelPush, ChannelSMS, ChannelEmail, ChannelInApp:
		return true
	default:
		return false
	}
}

// ============================================================================
// Routine types
// ============================================================================

// RoutineType is the morning or evening skincare routine.
type RoutineType string

const (
	RoutineMorning RoutineType = "morning"
	RoutineEvening RoutineType = "evening"
)

// IsValid reports whether r is a known routine type.
func (r RoutineType) IsValid() bool {
	return r == RoutineMorning || r == RoutineEvening
}
