package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
)

func newTeamHandler() (*TeamHandler, *fakeTeams, *fakeAccounts) {
	teams := newFakeTeams()
	users := &fakeAccounts{users: map[uint64]model.User{
		20: {ID: 20, Name: "Joana", Role: model.RoleACS, IsActive: true},
		21: {ID: 21, Name: "Paulo", Role: model.RoleUser, IsActive: true},
	}}
	units := newFakeUBS()
	units.units[1] = model.UBS{ID: 1, OwnerID: 99}
	return NewTeamHandler(teams, users, units), teams, users
}

func TestCreateMicroarea(t *testing.T) {
	h, teams, _ := newTeamHandler()

	c, rec := newCtx(http.MethodPost, "/v1/teams/microareas", `{"ubs_id":1,"name":"MA-01","population":-3}`)
	require.NoError(t, h.CreateMicroarea(as(c, 5, model.RoleGestor)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(http.MethodPost, "/v1/teams/microareas", `{"ubs_id":1,"name":"MA-01","status":"perdida"}`)
	require.NoError(t, h.CreateMicroarea(as(c, 5, model.RoleGestor)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(http.MethodPost, "/v1/teams/microareas", `{"ubs_id":8,"name":"MA-01"}`)
	require.NoError(t, h.CreateMicroarea(as(c, 5, model.RoleGestor)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newCtx(http.MethodPost, "/v1/teams/microareas", `{"ubs_id":1,"name":"MA-01","population":300,"families":80}`)
	require.NoError(t, h.CreateMicroarea(as(c, 5, model.RoleGestor)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.MicroareaCovered, teams.microareas[1].Status)

	c, rec = newCtx(http.MethodPatch, "/v1/teams/microareas/1", `{"status":"descoberta"}`)
	require.NoError(t, h.UpdateMicroarea(withParam(as(c, 5, model.RoleGestor), "id", "1")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.MicroareaUncovered, teams.microareas[1].Status)
	assert.Equal(t, 300, teams.microareas[1].Population)
}

func TestCreateAgent(t *testing.T) {
	h, teams, _ := newTeamHandler()
	teams.microareas[1] = model.Microarea{ID: 1, UBSID: 1, Name: "MA-01", Status: model.MicroareaCovered}

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"missing fields", `{"user_id":20}`, http.StatusBadRequest},
		{"unknown user", `{"user_id":404,"microarea_id":1}`, http.StatusNotFound},
		{"not an ACS", `{"user_id":21,"microarea_id":1}`, http.StatusBadRequest},
		{"unknown microarea", `{"user_id":20,"microarea_id":9}`, http.StatusNotFound},
		{"created", `{"user_id":20,"microarea_id":1}`, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newCtx(http.MethodPost, "/v1/teams/agents", tc.body)
			require.NoError(t, h.CreateAgent(as(c, 5, model.RoleRecepcao)))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
	require.Len(t, teams.agents, 1)
	assert.True(t, teams.agents[1].IsActive)

	teams.agentErr = repository.ErrConflict
	c, rec := newCtx(http.MethodPost, "/v1/teams/agents", `{"user_id":20,"microarea_id":1}`)
	require.NoError(t, h.CreateAgent(as(c, 5, model.RoleRecepcao)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateAgent(t *testing.T) {
	h, teams, _ := newTeamHandler()
	teams.microareas[1] = model.Microarea{ID: 1, Name: "MA-01"}
	teams.agents[1] = model.AgentView{Agent: model.Agent{ID: 1, UserID: 20, MicroareaID: 1, IsActive: true}}

	c, rec := newCtx(http.MethodPatch, "/v1/teams/agents/1", `{"microarea_id":2}`)
	require.NoError(t, h.UpdateAgent(withParam(as(c, 5, model.RoleGestor), "id", "1")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newCtx(http.MethodPatch, "/v1/teams/agents/1", `{"is_active":false}`)
	require.NoError(t, h.UpdateAgent(withParam(as(c, 5, model.RoleGestor), "id", "1")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, teams.agents[1].IsActive)
}

func TestACSUsersAndKPIs(t *testing.T) {
	h, teams, _ := newTeamHandler()
	teams.microareas[1] = model.Microarea{ID: 1, Population: 100, Families: 30, Status: model.MicroareaCovered}
	teams.microareas[2] = model.Microarea{ID: 2, Population: 50, Families: 10, Status: model.MicroareaCovered}
	teams.microareas[3] = model.Microarea{ID: 3, Population: 25, Families: 5, Status: model.MicroareaUncovered}

	c, rec := newCtx(http.MethodGet, "/v1/teams/acs-users", "")
	require.NoError(t, h.ACSUsers(c))
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Joana", items[0].(map[string]any)["name"])

	c, rec = newCtx(http.MethodGet, "/v1/teams/kpis?ubs_id=1", "")
	require.NoError(t, h.KPIs(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 175, body["population"])
	assert.EqualValues(t, 45, body["families"])
	assert.EqualValues(t, 1, body["uncovered"])
	assert.InDelta(t, 66.7, body["coverage_percent"], 0.001)

	c, rec = newCtx(http.MethodGet, "/v1/teams/kpis?ubs_id=abc", "")
	require.NoError(t, h.KPIs(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarCreate(t *testing.T) {
	units := newFakeUBS()
	units.units[1] = model.UBS{ID: 1}
	events := &fakeCalendar{}
	h := NewCalendarHandler(events, units)

	for _, body := range []string{
		`{"ubs_id":1,"title":"Vacina","starts_at":"2025-06-01T08:00:00Z","kind":"FESTA"}`,
		`{"ubs_id":1,"title":"Vacina","starts_at":"2025-06-01T08:00:00Z","recurrence":"YEARLY"}`,
		`{"ubs_id":1,"title":"Vacina","starts_at":"2025-06-01T08:00:00Z","recurrence_interval":0}`,
		`{"ubs_id":1,"starts_at":"2025-06-01T08:00:00Z"}`,
		`{"ubs_id":1,"title":"Vacina","starts_at":"2025-06-01T10:00:00Z","ends_at":"2025-06-01T09:00:00Z"}`,
	} {
		c, rec := newCtx(http.MethodPost, "/v1/calendar", body)
		require.NoError(t, h.Create(as(c, 3, model.RoleACS)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	c, rec := newCtx(http.MethodPost, "/v1/calendar", `{"ubs_id":2,"title":"Vacina","starts_at":"2025-06-01T08:00:00Z"}`)
	require.NoError(t, h.Create(as(c, 3, model.RoleACS)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newCtx(http.MethodPost, "/v1/calendar",
		`{"ubs_id":1,"title":"Vacina","starts_at":"2025-06-01T08:30:00Z","all_day":true,"kind":"sala_vacina"}`)
	require.NoError(t, h.Create(as(c, 3, model.RoleACS)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	e := events.events[1]
	assert.Equal(t, model.EventVaccineRoom, e.Kind)
	assert.Equal(t, model.RecurNone, e.Recurrence)
	assert.Equal(t, 1, e.RecurrenceInterval)
	assert.Equal(t, uint64(3), e.CreatedBy)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), e.StartsAt)
	require.NotNil(t, e.EndsAt)
	assert.Equal(t, time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC), *e.EndsAt)
}

func TestCalendarUpdateAndDelete(t *testing.T) {
	start := time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC)
	events := &fakeCalendar{events: map[uint64]model.CalendarEvent{
		1: {ID: 1, UBSID: 1, Title: "Reunião", Kind: model.EventTeamMeeting, StartsAt: start, Recurrence: model.RecurWeekly, RecurrenceInterval: 2},
	}}
	h := NewCalendarHandler(events, newFakeUBS())

	c, rec := newCtx(http.MethodPatch, "/v1/calendar/1", `{"all_day":true}`)
	require.NoError(t, h.Update(withParam(c, "id", "1")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e := events.events[1]
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), e.StartsAt)
	assert.Equal(t, 2, e.RecurrenceInterval)
	assert.Equal(t, model.EventTeamMeeting, e.Kind)

	c, rec = newCtx(http.MethodDelete, "/v1/calendar/1", "")
	require.NoError(t, h.Delete(withParam(c, "id", "1")))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newCtx(http.MethodDelete, "/v1/calendar/1", "")
	require.NoError(t, h.Delete(withParam(c, "id", "1")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newCtx(http.MethodGet, "/v1/calendar", "")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
