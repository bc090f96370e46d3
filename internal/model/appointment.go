package model

import (
	"strings"
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "SCHEDULED"
	StatusCancelled   AppointmentStatus = "CANCELLED"
	StatusCompleted   AppointmentStatus = "COMPLETED"
	StatusRescheduled AppointmentStatus = "RESCHEDULED"
)

// ParseAppointmentStatus normalizes s and reports whether it is a known status.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	st := AppointmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusScheduled, StatusCancelled, StatusCompleted, StatusRescheduled:
		return st, true
	}
	return "", false
}

// HoldsSlot reports whether an appointment in this status occupies its
// (professional, date-time) slot for conflict purposes.
func (s AppointmentStatus) HoldsSlot() bool {
	switch s {
	case StatusScheduled, StatusRescheduled:
		return true
	case StatusCancelled, StatusCompleted:
		return false
	}
	return false
}

// SlotHoldingStatuses lists the statuses for which HoldsSlot is true.
var SlotHoldingStatuses = []AppointmentStatus{StatusScheduled, StatusRescheduled}

// Appointment records a patient's booking with a professional.
//
// Fields:
//  ID             – primary key identifier.
//  PatientID      – users.id of the patient who booked.
//  ProfessionalID – professionals.id of the provider.
//  ScheduledAt    – exact booked instant (UTC).
//  Status         – lifecycle state.
//  Notes          – optional free text.
//  ConfirmedAt    – when a confirmation was sent (nullable).
type Appointment struct {
	ID             uint64            `json:"id"`              // appointments.id
	PatientID      uint64            `json:"patient_id"`      // appointments.patient_id
	ProfessionalID uint64            `json:"professional_id"` // appointments.professional_id
	ScheduledAt    time.Time         `json:"scheduled_at"`    // appointments.scheduled_at
	Status         AppointmentStatus `json:"status"`          // appointments.status
	Notes          *string           `json:"notes"`           // appointments.notes (nullable)
	ConfirmedAt    *time.Time        `json:"confirmed_at"`    // appointments.confirmed_at (nullable)
	CreatedAt      time.Time         `json:"created_at"`      // appointments.created_at
	UpdatedAt      time.Time         `json:"updated_at"`      // appointments.updated_at
}

// AppointmentView is an appointment enriched with display names for
// listing endpoints.
type AppointmentView struct {
	Appointment
	PatientName       string `json:"patient_name,omitempty"`
	ProfessionalName  string `json:"professional_name,omitempty"`
	ProfessionalCargo string `json:"professional_cargo,omitempty"`
}

// ScheduleBlock is an interval during which a professional cannot be
// booked.  Both ends are inclusive.  Blocks are never updated.
type ScheduleBlock struct {
	ID             uint64    `json:"id"`              // schedule_blocks.id
	ProfessionalID uint64    `json:"professional_id"` // schedule_blocks.professional_id
	StartsAt       time.Time `json:"starts_at"`       // schedule_blocks.starts_at
	EndsAt         time.Time `json:"ends_at"`         // schedule_blocks.ends_at
	Reason         *string   `json:"reason"`          // schedule_blocks.reason (nullable)
	CreatedAt      time.Time `json:"created_at"`      // schedule_blocks.created_at
}

// Covers reports whether t falls inside the block, ends included.
func (b ScheduleBlock) Covers(t time.Time) bool {
	return !t.Before(b.StartsAt) && !t.After(b.EndsAt)
}
