package service

import (
	"context"
	"fmt"
	"time"
)

// SlotConfig holds the booking window.
type SlotConfig struct {
	Horizon time.Duration // furthest ahead a slot may be booked, inclusive
}

// DefaultSlotConfig allows booking up to fourteen days ahead.
var DefaultSlotConfig = SlotConfig{Horizon: 14 * 24 * time.Hour}

// AppointmentReader answers whether a slot-holding appointment (SCHEDULED or
// RESCHEDULED) exists for the professional at exactly at.  excludeID
// removes one appointment from consideration; zero excludes nothing.
type AppointmentReader interface {
	ExistsLiveAt(ctx context.Context, professionalID uint64, at time.Time, excludeID uint64) (bool, error)
}

// BlockReader answers whether a schedule block of the professional covers
// at, both ends included.
type BlockReader interface {
	ExistsCovering(ctx context.Context, professionalID uint64, at time.Time) (bool, error)
}

// SlotValidator decides whether a professional can be booked at a given
// instant.  It only reads; the caller writes afterwards.
type SlotValidator struct {
	cfg          SlotConfig
	appointments AppointmentReader
	blocks       BlockReader
	now          func() time.Time
}

// NewSlotValidator builds a validator.  A nil clock means time.Now.
func NewSlotValidator(cfg SlotConfig, appointments AppointmentReader, blocks BlockReader, clock func() time.Time) *SlotValidator {
	if appointments == nil || blocks == nil {
		panic("nil reader passed to NewSlotValidator")
	}
	if clock == nil {
		clock = time.Now
	}
	return &SlotValidator{cfg: cfg, appointments: appointments, blocks: blocks, now: clock}
}

// Check returns nil when the slot is free, otherwise ErrSlotInPast,
// ErrSlotBeyondHorizon, ErrSlotConflict or a wrapped store error.
// excludeID is the appointment being rescheduled, or zero for a new booking.
func (v *SlotValidator) Check(ctx context.Context, professionalID uint64, at time.Time, excludeID uint64) error {
	now := v.now().UTC()
	at = at.UTC()

	if at.Before(now) {
		return ErrSlotInPast
	}
	if at.After(now.Add(v.cfg.Horizon)) {
		return ErrSlotBeyondHorizon
	}
	return v.Free(ctx, professionalID, at, excludeID)
}

// Free runs only the occupancy part of Check: ErrSlotConflict when another
// slot-holding appointment or a block takes at.  The booking window is not
// applied, so it serves appointments that keep their current date-time.
func (v *SlotValidator) Free(ctx context.Context, professionalID uint64, at time.Time, excludeID uint64) error {
	at = at.UTC()
	taken, err := v.appointments.ExistsLiveAt(ctx, professionalID, at, excludeID)
	if err != nil {
		return fmt.Errorf("check appointment conflict: %w", err)
	}
	if taken {
		return ErrSlotConflict
	}

	blocked, err := v.blocks.ExistsCovering(ctx, professionalID, at)
	if err != nil {
		return fmt.Errorf("check schedule blocks: %w", err)
	}
	if blocked {
		return ErrSlotConflict
	}
	return nil
}
