// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package models

import "time"

// AppointmentStatus is the booking state of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a booked session with a skincare professional. Bookings are
// owned elsewhere; this copy exists to drive reminders.
type Appointment struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id" validate:"required,max=128"`
	ProfessionalID string            `json:"professional_id,omitempty" validate:"max=128"`
	Title          string            `json:"title" validate:"required,max=200"`
	Location       string            `json:"location,omitempty" validate:"max=200"`
	StartsAt       time.Time         `json:"starts_at" validate:"required"`
	Status         AppointmentStatus `json:"status"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
