// Package queue defines the appointment events exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

import "time"

// Event types carried in AppointmentEvent.Type.
const (
	EventBooked      = "appointment.booked"
	EventRescheduled = "appointment.rescheduled"
	EventCancelled   = "appointment.cancelled"
	EventUpdated     = "appointment.updated"
	EventConfirmed   = "appointment.confirmed"
)

// AppointmentEvent is published after every successful appointment write.
// It carries enough for downstream consumers to log or notify without
// reading the primary database.
type AppointmentEvent struct {
	Type           string    `json:"type"`
	AppointmentID  uint64    `json:"appointment_id"`
	PatientID      uint64    `json:"patient_id"`
	ProfessionalID uint64    `json:"professional_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}
