package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/queue"
	"github.com/iliyamo/ubs-backend/internal/repository"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// memAccounts is an AccountStore over a map keyed by email.
type memAccounts struct {
	mu     sync.Mutex
	users  map[string]*model.User
	saves  int
	getErr error
}

func newMemAccounts(users ...model.User) *memAccounts {
	m := &memAccounts{users: map[string]*model.User{}}
	for i := range users {
		u := users[i]
		m.users[u.Email] = &u
	}
	return m
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return model.User{}, m.getErr
	}
	u, ok := m.users[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	cp := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		cp.LockedUntil = &t
	}
	return cp, nil
}

func (m *memAccounts) SaveLoginState(_ context.Context, id uint64, failed int, lockedUntil *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	for _, u := range m.users {
		if u.ID == id {
			u.FailedAttempts = failed
			if lockedUntil == nil {
				u.LockedUntil = nil
			} else {
				t := *lockedUntil
				u.LockedUntil = &t
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memAccounts) get(email string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[email]
}

// memAttempts records login attempts.
type memAttempts struct {
	mu   sync.Mutex
	rows []model.LoginAttempt
	err  error
}

func (m *memAttempts) Append(_ context.Context, a model.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, a)
	return nil
}

func (m *memAttempts) reasons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.Reason
	}
	return out
}

// memAppointments is an AppointmentStore over a map.
type memAppointments struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Appointment
}

func newMemAppointments() *memAppointments {
	return &memAppointments{rows: map[uint64]model.Appointment{}}
}

func (m *memAppointments) ExistsLiveAt(_ context.Context, professionalID uint64, at time.Time, excludeID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.rows {
		if excludeID != 0 && id == excludeID {
			continue
		}
		if a.ProfessionalID == professionalID && a.Status.HoldsSlot() && a.ScheduledAt.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAppointments) Create(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.rows[a.ID] = *a
	return nil
}

func (m *memAppointments) GetByID(_ context.Context, id uint64) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return model.Appointment{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *memAppointments) Update(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.ID]; !ok {
		return repository.ErrNotFound
	}
	m.rows[a.ID] = *a
	return nil
}

func (m *memAppointments) ListByPatient(_ context.Context, patientID uint64) ([]model.AppointmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AppointmentView
	for _, a := range m.rows {
		if a.PatientID == patientID {
			out = append(out, model.AppointmentView{Appointment: a})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out, nil
}

func (m *memAppointments) ListByProfessional(_ context.Context, professionalID uint64, from, to time.Time) ([]model.AppointmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AppointmentView
	for _, a := range m.rows {
		if a.ProfessionalID == professionalID && !a.ScheduledAt.Before(from) && !a.ScheduledAt.After(to) {
			out = append(out, model.AppointmentView{Appointment: a})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

// memBlocks is a BlockStore over a map.
type memBlocks struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.ScheduleBlock
}

func newMemBlocks(blocks ...model.ScheduleBlock) *memBlocks {
	m := &memBlocks{rows: map[uint64]model.ScheduleBlock{}}
	for _, b := range blocks {
		m.nextID++
		b.ID = m.nextID
		m.rows[b.ID] = b
	}
	return m
}

func (m *memBlocks) ExistsCovering(_ context.Context, professionalID uint64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.ProfessionalID == professionalID && b.Covers(at) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBlocks) Create(_ context.Context, b *model.ScheduleBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ID] = *b
	return nil
}

func (m *memBlocks) GetByID(_ context.Context, id uint64) (model.ScheduleBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return model.ScheduleBlock{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *memBlocks) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memBlocks) ListByProfessional(_ context.Context, professionalID uint64) ([]model.ScheduleBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ScheduleBlock{}
	for _, b := range m.rows {
		if b.ProfessionalID == professionalID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// memProfessionals is a ProfessionalReader over a slice.
type memProfessionals struct {
	rows []model.Professional
}

func (m *memProfessionals) GetByID(_ context.Context, id uint64) (model.Professional, error) {
	for _, p := range m.rows {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Professional{}, repository.ErrNotFound
}

func (m *memProfessionals) GetByUserID(_ context.Context, userID uint64) (model.Professional, error) {
	for _, p := range m.rows {
		if p.UserID == userID {
			return p, nil
		}
	}
	return model.Professional{}, repository.ErrNotFound
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AppointmentEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var errBoom = errors.New("boom")
