// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

// Package models provides the data structures shared across Lumaskin.
//
// The package is dependency-light on purpose so that storage, dispatch,
// decision and API layers can all import it without cycles.
//
// Contents:
//   - preference.go: NotificationPreference and partial updates
//   - category.go: notification categories, channels and their priorities
//   - delivery.go: DeliveryRecord, delivery keys and outcomes
//   - notification.go: in-app notification-center rows
//   - routine.go: routine completions and gamification state
//   - capability.go: client capability reports and push subscriptions
//   - appointment.go: appointments that drive appointment reminders
//   - event.go: domain events for event-driven categories
//   - errors.go: the error taxonomy used across the subsystem
package models
