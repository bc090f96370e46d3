package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/queue"
	"github.com/iliyamo/ubs-backend/internal/repository"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint64
	Role   model.Role
}

// AppointmentStore persists appointments.  GetByID returns
// repository.ErrNotFound for an unknown id.
type AppointmentStore interface {
	AppointmentReader
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uint64) (model.Appointment, error)
	Update(ctx context.Context, a *model.Appointment) error
	ListByPatient(ctx context.Context, patientID uint64) ([]model.AppointmentView, error)
	ListByProfessional(ctx context.Context, professionalID uint64, from, to time.Time) ([]model.AppointmentView, error)
}

// ProfessionalReader resolves professional profiles.  Both lookups return
// repository.ErrNotFound when there is no profile.
type ProfessionalReader interface {
	GetByID(ctx context.Context, id uint64) (model.Professional, error)
	GetByUserID(ctx context.Context, userID uint64) (model.Professional, error)
}

// EventPublisher sends appointment events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AppointmentEvent) error
}

// BookRequest is a new booking for the calling patient.
type BookRequest struct {
	ProfessionalID uint64
	At             time.Time
	Notes          *string
}

// UpdateRequest changes an existing appointment.  Nil fields are left alone.
type UpdateRequest struct {
	At     *time.Time
	Status *model.AppointmentStatus
	Notes  *string
}

// AppointmentService books and changes appointments, running every new
// date-time through the SlotValidator first.
type AppointmentService struct {
	appointments  AppointmentStore
	professionals ProfessionalReader
	slots         *SlotValidator
	events        EventPublisher
	now           func() time.Time
	log           zerolog.Logger
}

// NewAppointmentService wires the service.  events may be nil to disable
// publishing; a nil clock means time.Now.
func NewAppointmentService(appointments AppointmentStore, professionals ProfessionalReader, slots *SlotValidator, events EventPublisher, clock func() time.Time, logger zerolog.Logger) *AppointmentService {
	if appointments == nil || professionals == nil || slots == nil {
		panic("nil dependency passed to NewAppointmentService")
	}
	if clock == nil {
		clock = time.Now
	}
	return &AppointmentService{
		appointments:  appointments,
		professionals: professionals,
		slots:         slots,
		events:        events,
		now:           clock,
		log:           logger.With().Str("component", "appointments").Logger(),
	}
}

// Book creates a SCHEDULED appointment for patientID.
func (s *AppointmentService) Book(ctx context.Context, patientID uint64, req BookRequest) (model.Appointment, error) {
	prof, err := s.professionals.GetByID(ctx, req.ProfessionalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Appointment{}, ErrProviderNotFound
		}
		return model.Appointment{}, fmt.Errorf("load professional: %w", err)
	}
	if !prof.IsActive {
		return model.Appointment{}, ErrProviderNotFound
	}

	if err := s.slots.Check(ctx, prof.ID, req.At, 0); err != nil {
		return model.Appointment{}, err
	}

	a := model.Appointment{
		PatientID:      patientID,
		ProfessionalID: prof.ID,
		ScheduledAt:    req.At.UTC(),
		Status:         model.StatusScheduled,
		Notes:          trimmedOrNil(req.Notes),
	}
	// Check and insert are not atomic: two concurrent bookings of the same
	// slot can both pass Check.  There is no unique index to stop the second.
	if err := s.appointments.Create(ctx, &a); err != nil {
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	s.publish(ctx, queue.EventBooked, a)
	return a, nil
}

// Update reschedules, cancels or annotates an appointment.  Consult staff
// may change any appointment; a patient only their own, and only to cancel
// it or move it.  Moving an appointment puts it back to SCHEDULED unless
// req.Status says otherwise.
func (s *AppointmentService) Update(ctx context.Context, actor Actor, id uint64, req UpdateRequest) (model.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	staff := actor.Role.IsConsultStaff()
	if !staff && a.PatientID != actor.UserID {
		return model.Appointment{}, ErrForbidden
	}
	if req.Status != nil {
		if _, ok := model.ParseAppointmentStatus(string(*req.Status)); !ok {
			return model.Appointment{}, ErrInvalidStatus
		}
		if !staff && *req.Status != model.StatusCancelled && *req.Status != model.StatusScheduled {
			return model.Appointment{}, ErrForbidden
		}
	}

	eventType := queue.EventUpdated
	if req.At != nil {
		if err := s.slots.Check(ctx, a.ProfessionalID, *req.At, a.ID); err != nil {
			return model.Appointment{}, err
		}
		a.ScheduledAt = req.At.UTC()
		a.Status = model.StatusScheduled
		eventType = queue.EventRescheduled
	}
	if req.Status != nil {
		// Going back to a slot-holding status at the same date-time must
		// not land on a slot someone else booked in the meantime.
		if req.At == nil && !a.Status.HoldsSlot() && req.Status.HoldsSlot() {
			if err := s.slots.Free(ctx, a.ProfessionalID, a.ScheduledAt, a.ID); err != nil {
				return model.Appointment{}, err
			}
		}
		a.Status = *req.Status
		if req.At == nil && a.Status == model.StatusCancelled {
			eventType = queue.EventCancelled
		}
	}
	if n := trimmedOrNil(req.Notes); n != nil {
		a.Notes = n
	}

	if err := s.appointments.Update(ctx, &a); err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}
	s.publish(ctx, eventType, a)
	return a, nil
}

// Confirm stamps the confirmation time on an appointment.  Consult staff only.
func (s *AppointmentService) Confirm(ctx context.Context, actor Actor, id uint64) (model.Appointment, error) {
	if !actor.Role.IsConsultStaff() {
		return model.Appointment{}, ErrForbidden
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	now := s.now().UTC()
	a.ConfirmedAt = &now
	if err := s.appointments.Update(ctx, &a); err != nil {
		return model.Appointment{}, fmt.Errorf("confirm appointment: %w", err)
	}
	s.publish(ctx, queue.EventConfirmed, a)
	return a, nil
}

// ListMine returns the patient's appointments, newest date-time first.
func (s *AppointmentService) ListMine(ctx context.Context, patientID uint64) ([]model.AppointmentView, error) {
	out, err := s.appointments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

// Agenda returns a professional's appointments with from <= date-time <= to.
func (s *AppointmentService) Agenda(ctx context.Context, actor Actor, professionalID uint64, from, to time.Time) ([]model.AppointmentView, error) {
	if !actor.Role.CanViewAgenda() {
		return nil, ErrForbidden
	}
	if to.Before(from) {
		return nil, ErrInvalidInterval
	}
	if _, err := s.professionals.GetByID(ctx, professionalID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("load professional: %w", err)
	}
	out, err := s.appointments.ListByProfessional(ctx, professionalID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list agenda: %w", err)
	}
	return out, nil
}

func (s *AppointmentService) load(ctx context.Context, id uint64) (model.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Appointment{}, ErrAppointmentNotFound
		}
		return model.Appointment{}, fmt.Errorf("load appointment: %w", err)
	}
	return a, nil
}

// publish never fails the request; broker trouble is only logged.
func (s *AppointmentService) publish(ctx context.Context, typ string, a model.Appointment) {
	if s.events == nil {
		return
	}
	ev := queue.AppointmentEvent{
		Type:           typ,
		AppointmentID:  a.ID,
		PatientID:      a.PatientID,
		ProfessionalID: a.ProfessionalID,
		ScheduledAt:    a.ScheduledAt,
		Status:         string(a.Status),
		OccurredAt:     s.now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event", typ).Uint64("appointment_id", a.ID).Msg("publish appointment event failed")
	}
}

func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
