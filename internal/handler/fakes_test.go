package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ubs-backend/internal/config"
	"github.com/iliyamo/ubs-backend/internal/middleware"
	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
	"github.com/iliyamo/ubs-backend/internal/service"
)

// newCtx builds a request context; body is sent as JSON when not empty.
func newCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

// as authenticates c the way JWTAuth does.
func as(c echo.Context, uid uint64, role model.Role) echo.Context {
	c.Set(middleware.CtxUserID, uid)
	c.Set(middleware.CtxRole, string(role))
	return c
}

func withParam(c echo.Context, name, value string) echo.Context {
	c.SetParamNames(name)
	c.SetParamValues(value)
	return c
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
}

// ----- auth -----

type fakeGuard struct {
	user model.User
	err  error
	ip   string
}

func (g *fakeGuard) Attempt(_ context.Context, _, _, sourceIP string) (model.User, error) {
	g.ip = sourceIP
	return g.user, g.err
}

type fakeAccounts struct {
	users     map[uint64]model.User
	createErr error
	created   []repository.NewUser
}

func (a *fakeAccounts) Create(_ context.Context, in repository.NewUser, _ int) (uint64, error) {
	if a.createErr != nil {
		return 0, a.createErr
	}
	a.created = append(a.created, in)
	return uint64(len(a.created)), nil
}

func (a *fakeAccounts) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := a.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (a *fakeAccounts) SetRole(_ context.Context, id uint64, role model.Role) error {
	u, ok := a.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	a.users[id] = u
	return nil
}

func (a *fakeAccounts) SetActive(_ context.Context, id uint64, active bool) error {
	u, ok := a.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = active
	a.users[id] = u
	return nil
}

func (a *fakeAccounts) ListActiveByRole(_ context.Context, role model.Role) ([]model.User, error) {
	out := []model.User{}
	for _, u := range a.users {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeTokens struct {
	live       map[string]uint64
	revokedAll []uint64
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	if f.live == nil {
		f.live = map[string]uint64{}
	}
	f.live[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	uid, ok := f.live[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return uid, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(f.live, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.revokedAll = append(f.revokedAll, userID)
	for h, uid := range f.live {
		if uid == userID {
			delete(f.live, h)
		}
	}
	return nil
}

// ----- appointments -----

type fakeBooker struct {
	book    model.Appointment
	err     error
	lastReq service.BookRequest
	lastUpd service.UpdateRequest
	from    time.Time
	to      time.Time
}

func (f *fakeBooker) Book(_ context.Context, patientID uint64, req service.BookRequest) (model.Appointment, error) {
	f.lastReq = req
	if f.err != nil {
		return model.Appointment{}, f.err
	}
	a := f.book
	a.PatientID = patientID
	a.ProfessionalID = req.ProfessionalID
	a.ScheduledAt = req.At
	return a, nil
}

func (f *fakeBooker) Update(_ context.Context, _ service.Actor, id uint64, req service.UpdateRequest) (model.Appointment, error) {
	f.lastUpd = req
	return model.Appointment{ID: id}, f.err
}

func (f *fakeBooker) Confirm(_ context.Context, _ service.Actor, id uint64) (model.Appointment, error) {
	now := time.Now().UTC()
	return model.Appointment{ID: id, Status: model.StatusScheduled, ConfirmedAt: &now}, f.err
}

func (f *fakeBooker) ListMine(context.Context, uint64) ([]model.AppointmentView, error) {
	return []model.AppointmentView{}, f.err
}

func (f *fakeBooker) Agenda(_ context.Context, _ service.Actor, _ uint64, from, to time.Time) ([]model.AppointmentView, error) {
	f.from, f.to = from, to
	return []model.AppointmentView{}, f.err
}

type fakeDirectory struct{}

func (fakeDirectory) ListActive(_ context.Context, cargo string) ([]model.ProfessionalSummary, error) {
	return []model.ProfessionalSummary{{ID: 1, Name: "Ana", Cargo: cargo}}, nil
}

func (fakeDirectory) Specialties(context.Context) ([]string, error) {
	return []string{"Enfermeiro", "Medico"}, nil
}

type fakeBlocks struct {
	err  error
	last service.BlockRequest
}

func (f *fakeBlocks) Create(_ context.Context, _ service.Actor, req service.BlockRequest) (model.ScheduleBlock, error) {
	f.last = req
	return model.ScheduleBlock{ID: 1, ProfessionalID: req.ProfessionalID, StartsAt: req.Start, EndsAt: req.End}, f.err
}

func (f *fakeBlocks) List(context.Context, service.Actor, uint64) ([]model.ScheduleBlock, error) {
	return []model.ScheduleBlock{}, f.err
}

func (f *fakeBlocks) Delete(context.Context, service.Actor, uint64) error { return f.err }

// ----- ubs -----

type fakeUBS struct {
	units     map[uint64]model.UBS
	territory map[uint64]model.TerritoryProfile
	needs     map[uint64]model.UBSNeeds
	nextID    uint64
}

func newFakeUBS() *fakeUBS {
	return &fakeUBS{
		units:     map[uint64]model.UBS{},
		territory: map[uint64]model.TerritoryProfile{},
		needs:     map[uint64]model.UBSNeeds{},
	}
}

func (f *fakeUBS) Create(_ context.Context, u *model.UBS) error {
	f.nextID++
	u.ID = f.nextID
	f.units[u.ID] = *u
	return nil
}

func (f *fakeUBS) GetOwned(_ context.Context, id, ownerID uint64) (model.UBS, error) {
	u, ok := f.units[id]
	if !ok || u.OwnerID != ownerID || u.IsDeleted {
		return model.UBS{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUBS) Exists(_ context.Context, id uint64) (bool, error) {
	u, ok := f.units[id]
	return ok && !u.IsDeleted, nil
}

func (f *fakeUBS) ListOwned(_ context.Context, ownerID uint64, limit, offset int) ([]model.UBS, int, error) {
	out := []model.UBS{}
	for id := uint64(1); id <= f.nextID; id++ {
		if u, ok := f.units[id]; ok && u.OwnerID == ownerID && !u.IsDeleted {
			out = append(out, u)
		}
	}
	total := len(out)
	if offset >= total {
		return []model.UBS{}, total, nil
	}
	return out[offset:min(offset+limit, total)], total, nil
}

func (f *fakeUBS) Update(_ context.Context, u *model.UBS) error {
	f.units[u.ID] = *u
	return nil
}

func (f *fakeUBS) SoftDelete(_ context.Context, id, ownerID uint64) error {
	u, ok := f.units[id]
	if !ok || u.OwnerID != ownerID || u.IsDeleted {
		return repository.ErrNotFound
	}
	u.IsDeleted = true
	f.units[id] = u
	return nil
}

func (f *fakeUBS) MarkSubmitted(_ context.Context, id, _ uint64, by uint64, at time.Time) error {
	u := f.units[id]
	u.Status = model.UBSSubmitted
	u.SubmittedAt = &at
	u.SubmittedBy = &by
	f.units[id] = u
	return nil
}

func (f *fakeUBS) GetTerritory(_ context.Context, ubsID uint64) (model.TerritoryProfile, error) {
	t, ok := f.territory[ubsID]
	if !ok {
		return model.TerritoryProfile{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeUBS) UpsertTerritory(_ context.Context, t *model.TerritoryProfile) error {
	f.territory[t.UBSID] = *t
	return nil
}

func (f *fakeUBS) GetNeeds(_ context.Context, ubsID uint64) (model.UBSNeeds, error) {
	n, ok := f.needs[ubsID]
	if !ok {
		return model.UBSNeeds{}, repository.ErrNotFound
	}
	return n, nil
}

func (f *fakeUBS) UpsertNeeds(_ context.Context, n *model.UBSNeeds) error {
	f.needs[n.UBSID] = *n
	return nil
}

type fakeProblems struct {
	items []model.Problem
}

func (f *fakeProblems) Create(_ context.Context, p *model.Problem) error {
	p.ID = uint64(len(f.items) + 1)
	p.Score = p.Gravity * p.Urgency * p.Tendency
	f.items = append(f.items, *p)
	return nil
}

func (f *fakeProblems) GetOwned(_ context.Context, id, _ uint64) (model.Problem, error) {
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Problem{}, repository.ErrNotFound
}

func (f *fakeProblems) ListByUBS(_ context.Context, ubsID uint64) ([]model.Problem, error) {
	out := []model.Problem{}
	for _, p := range f.items {
		if p.UBSID == ubsID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProblems) Update(_ context.Context, p *model.Problem) error {
	p.Score = p.Gravity * p.Urgency * p.Tendency
	f.items[p.ID-1] = *p
	return nil
}

func (f *fakeProblems) Delete(context.Context, uint64) error { return nil }

func (f *fakeProblems) CreateIntervention(_ context.Context, iv *model.Intervention) error {
	iv.ID = 1
	return nil
}

func (f *fakeProblems) ListInterventions(context.Context, uint64) ([]model.Intervention, error) {
	return []model.Intervention{}, nil
}

func (f *fakeProblems) GetInterventionOwned(context.Context, uint64, uint64) (model.Intervention, error) {
	return model.Intervention{}, repository.ErrNotFound
}

func (f *fakeProblems) UpdateIntervention(context.Context, *model.Intervention) error { return nil }

// ----- teams & calendar -----

type fakeTeams struct {
	microareas map[uint64]model.Microarea
	agents     map[uint64]model.AgentView
	agentErr   error
}

func newFakeTeams() *fakeTeams {
	return &fakeTeams{microareas: map[uint64]model.Microarea{}, agents: map[uint64]model.AgentView{}}
}

func (f *fakeTeams) CreateMicroarea(_ context.Context, m *model.Microarea) error {
	m.ID = uint64(len(f.microareas) + 1)
	f.microareas[m.ID] = *m
	return nil
}

func (f *fakeTeams) GetMicroarea(_ context.Context, id uint64) (model.Microarea, error) {
	m, ok := f.microareas[id]
	if !ok {
		return model.Microarea{}, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeTeams) ListMicroareas(context.Context, uint64) ([]model.Microarea, error) {
	out := []model.Microarea{}
	for _, m := range f.microareas {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeTeams) UpdateMicroarea(_ context.Context, m *model.Microarea) error {
	f.microareas[m.ID] = *m
	return nil
}

func (f *fakeTeams) MicroareaTotals(context.Context, uint64) (population, families, total, uncovered int, err error) {
	for _, m := range f.microareas {
		population += m.Population
		families += m.Families
		total++
		if m.Status == model.MicroareaUncovered {
			uncovered++
		}
	}
	return population, families, total, uncovered, nil
}

func (f *fakeTeams) CreateAgent(_ context.Context, a *model.Agent) (model.AgentView, error) {
	if f.agentErr != nil {
		return model.AgentView{}, f.agentErr
	}
	a.ID = uint64(len(f.agents) + 1)
	v := model.AgentView{Agent: *a, MicroareaName: f.microareas[a.MicroareaID].Name}
	f.agents[a.ID] = v
	return v, nil
}

func (f *fakeTeams) GetAgent(_ context.Context, id uint64) (model.AgentView, error) {
	v, ok := f.agents[id]
	if !ok {
		return model.AgentView{}, repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeTeams) ListAgents(context.Context, uint64) ([]model.AgentView, error) {
	return []model.AgentView{}, nil
}

func (f *fakeTeams) UpdateAgent(_ context.Context, a *model.Agent) error {
	v := f.agents[a.ID]
	v.Agent = *a
	f.agents[a.ID] = v
	return nil
}

type fakeCalendar struct {
	events map[uint64]model.CalendarEvent
}

func (f *fakeCalendar) Create(_ context.Context, e *model.CalendarEvent) error {
	if f.events == nil {
		f.events = map[uint64]model.CalendarEvent{}
	}
	e.ID = uint64(len(f.events) + 1)
	f.events[e.ID] = *e
	return nil
}

func (f *fakeCalendar) GetByID(_ context.Context, id uint64) (model.CalendarEvent, error) {
	e, ok := f.events[id]
	if !ok {
		return model.CalendarEvent{}, repository.ErrNotFound
	}
	return e, nil
}

func (f *fakeCalendar) List(context.Context, uint64, *time.Time, *time.Time) ([]model.CalendarEvent, error) {
	return []model.CalendarEvent{}, nil
}

func (f *fakeCalendar) Update(_ context.Context, e *model.CalendarEvent) error {
	f.events[e.ID] = *e
	return nil
}

func (f *fakeCalendar) Delete(_ context.Context, id uint64) error {
	if _, ok := f.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.events, id)
	return nil
}
