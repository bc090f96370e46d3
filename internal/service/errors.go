// Package service holds the rule components of the backend: the login
// attempt guard, the appointment slot validator and the services that
// orchestrate them over the repositories.  Every error a handler needs to
// tell apart is declared here as a sentinel so that it can be matched with
// errors.Is regardless of wrapping.
package service

import (
	"errors"
	"fmt"
)

// Login guard outcomes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountInactive    = errors.New("account inactive")
)

// LockedError is returned while an account is locked. It carries the
// whole minutes left until the lockout expires, rounded up and never less
// than one.
type LockedError struct {
	RemainingMinutes int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: try again in %d minute(s)", ErrAccountLocked, e.RemainingMinutes)
}

// Is makes errors.Is(err, ErrAccountLocked) hold for any *LockedError.
func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// Slot validator outcomes.
var (
	ErrSlotInPast        = errors.New("appointment date is in the past")
	ErrSlotBeyondHorizon = errors.New("appointment date is beyond the booking horizon")
	ErrSlotConflict      = errors.New("slot unavailable for this professional")
)

// Appointment and agenda outcomes.
var (
	ErrProviderNotFound    = errors.New("professional not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrBlockNotFound       = errors.New("schedule block not found")
	ErrForbidden           = errors.New("forbidden")
	ErrNotProfessional     = errors.New("account has no professional profile")
	ErrInvalidInterval     = errors.New("end must not be before start")
	ErrInvalidStatus       = errors.New("invalid appointment status")
)
