package model

import (
	"strings"
	"time"
)

// EventKind classifies a unit calendar entry.
type EventKind string

const (
	EventVaccineRoom EventKind = "SALA_VACINA"
	EventPharmacy    EventKind = "FARMACIA_BASICA"
	EventTeamMeeting EventKind = "REUNIAO_EQUIPE"
	EventOther       EventKind = "OUTRO"
)

// ParseEventKind normalizes s; empty yields OUTRO.
func ParseEventKind(s string) (EventKind, bool) {
	k := EventKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case "":
		return EventOther, true
	case EventVaccineRoom, EventPharmacy, EventTeamMeeting, EventOther:
		return k, true
	}
	return "", false
}

// Recurrence is how often a calendar entry repeats.
type Recurrence string

const (
	RecurNone    Recurrence = "NONE"
	RecurDaily   Recurrence = "DAILY"
	RecurWeekly  Recurrence = "WEEKLY"
	RecurMonthly Recurrence = "MONTHLY"
)

// ParseRecurrence normalizes s; empty yields NONE.
func ParseRecurrence(s string) (Recurrence, bool) {
	r := Recurrence(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case "":
		return RecurNone, true
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return r, true
	}
	return "", false
}

// CalendarEvent is one entry of a unit's calendar (cronograma).
type CalendarEvent struct {
	ID                 uint64     `json:"id"`                  // calendar_events.id
	UBSID              uint64     `json:"ubs_id"`              // calendar_events.ubs_id
	Title              string     `json:"title"`               // calendar_events.title
	Kind               EventKind  `json:"kind"`                // calendar_events.kind
	Location           *string    `json:"location"`            // calendar_events.location
	StartsAt           time.Time  `json:"starts_at"`           // calendar_events.starts_at
	EndsAt             *time.Time `json:"ends_at"`             // calendar_events.ends_at
	AllDay             bool       `json:"all_day"`             // calendar_events.all_day
	Recurrence         Recurrence `json:"recurrence"`          // calendar_events.recurrence
	RecurrenceInterval int        `json:"recurrence_interval"` // calendar_events.recurrence_interval
	RecurrenceUntil    *time.Time `json:"recurrence_until"`    // calendar_events.recurrence_until
	Notes              *string    `json:"notes"`               // calendar_events.notes
	CreatedBy          uint64     `json:"created_by"`          // calendar_events.created_by
	CreatedAt          time.Time  `json:"created_at"`          // calendar_events.created_at
	UpdatedAt          time.Time  `json:"updated_at"`          // calendar_events.updated_at
}
