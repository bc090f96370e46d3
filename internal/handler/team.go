package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
	"github.com/iliyamo/ubs-backend/internal/service"
)

// TeamStore persists microareas and community agents.
type TeamStore interface {
	CreateMicroarea(ctx context.Context, m *model.Microarea) error
	GetMicroarea(ctx context.Context, id uint64) (model.Microarea, error)
	ListMicroareas(ctx context.Context, ubsID uint64) ([]model.Microarea, error)
	UpdateMicroarea(ctx context.Context, m *model.Microarea) error
	MicroareaTotals(ctx context.Context, ubsID uint64) (population, families, total, uncovered int, err error)
	CreateAgent(ctx context.Context, a *model.Agent) (model.AgentView, error)
	GetAgent(ctx context.Context, id uint64) (model.AgentView, error)
	ListAgents(ctx context.Context, ubsID uint64) ([]model.AgentView, error)
	UpdateAgent(ctx context.Context, a *model.Agent) error
}

// UserDirectory looks accounts up for team assignment.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListActiveByRole(ctx context.Context, role model.Role) ([]model.User, error)
}

// UnitChecker reports whether a live unit exists, whoever owns it.
type UnitChecker interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// TeamHandler serves /v1/teams.
type TeamHandler struct {
	Teams TeamStore
	Users UserDirectory
	Units UnitChecker
}

func NewTeamHandler(teams TeamStore, users UserDirectory, units UnitChecker) *TeamHandler {
	if teams == nil || users == nil || units == nil {
		panic("nil dependency passed to NewTeamHandler")
	}
	return &TeamHandler{Teams: teams, Users: users, Units: units}
}

type microareaReq struct {
	UBSID      uint64  `json:"ubs_id"`
	Name       *string `json:"name"`
	Population *int    `json:"population"`
	Families   *int    `json:"families"`
	Status     *string `json:"status"`
}

type agentReq struct {
	UserID      uint64  `json:"user_id"`
	MicroareaID *uint64 `json:"microarea_id"`
	IsActive    *bool   `json:"is_active"`
}

func (req microareaReq) apply(m *model.Microarea) string {
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.Population != nil {
		m.Population = *req.Population
	}
	if req.Families != nil {
		m.Families = *req.Families
	}
	if req.Status != nil || m.Status == "" {
		raw := ""
		if req.Status != nil {
			raw = *req.Status
		}
		st, ok := model.ParseMicroareaStatus(raw)
		if !ok {
			return "status must be COBERTA or DESCOBERTA"
		}
		m.Status = st
	}
	switch {
	case m.Name == "":
		return "name is required"
	case m.Population < 0 || m.Families < 0:
		return "population and families must not be negative"
	}
	return ""
}

// ListMicroareas handles GET /v1/teams/microareas?ubs_id=.
func (h *TeamHandler) ListMicroareas(c echo.Context) error {
	ubsID, ok := queryID(c, "ubs_id")
	if !ok {
		return badRequest(c, "invalid ubs_id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Teams.ListMicroareas(ctx, ubsID)
	if err != nil {
		return serviceError(c, err, "list microareas failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateMicroarea handles POST /v1/teams/microareas.
func (h *TeamHandler) CreateMicroarea(c echo.Context) error {
	var req microareaReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.UBSID == 0 {
		return badRequest(c, "ubs_id required")
	}
	m := model.Microarea{UBSID: req.UBSID}
	if msg := req.apply(&m); msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	exists, err := h.Units.Exists(ctx, req.UBSID)
	if err != nil {
		return serviceError(c, err, "load ubs failed")
	}
	if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ubs not found"})
	}
	if err := h.Teams.CreateMicroarea(ctx, &m); err != nil {
		return serviceError(c, err, "create microarea failed")
	}
	return c.JSON(http.StatusCreated, m)
}

// UpdateMicroarea handles PATCH /v1/teams/microareas/:id.  The unit of a
// microarea never changes.
func (h *TeamHandler) UpdateMicroarea(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req microareaReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Teams.GetMicroarea(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "microarea not found"})
		}
		return serviceError(c, err, "load microarea failed")
	}
	if msg := req.apply(&m); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Teams.UpdateMicroarea(ctx, &m); err != nil {
		return serviceError(c, err, "update microarea failed")
	}
	return c.JSON(http.StatusOK, m)
}

// ListAgents handles GET /v1/teams/agents?ubs_id=.
func (h *TeamHandler) ListAgents(c echo.Context) error {
	ubsID, ok := queryID(c, "ubs_id")
	if !ok {
		return badRequest(c, "invalid ubs_id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Teams.ListAgents(ctx, ubsID)
	if err != nil {
		return serviceError(c, err, "list agents failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateAgent handles POST /v1/teams/agents.  The account must have the ACS
// role.
func (h *TeamHandler) CreateAgent(c echo.Context) error {
	var req agentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.UserID == 0 || req.MicroareaID == nil || *req.MicroareaID == 0 {
		return badRequest(c, "user_id and microarea_id required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return serviceError(c, err, "load user failed")
	}
	if u.Role != model.RoleACS {
		return badRequest(c, "user must have role ACS")
	}
	if resp, ok := h.requireMicroarea(ctx, c, *req.MicroareaID); !ok {
		return resp
	}

	a := model.Agent{UserID: req.UserID, MicroareaID: *req.MicroareaID, IsActive: true}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	v, err := h.Teams.CreateAgent(ctx, &a)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user is already an agent"})
		}
		return serviceError(c, err, "create agent failed")
	}
	return c.JSON(http.StatusCreated, v)
}

// UpdateAgent handles PATCH /v1/teams/agents/:id: move or toggle an agent.
func (h *TeamHandler) UpdateAgent(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req agentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	v, err := h.Teams.GetAgent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return serviceError(c, err, "load agent failed")
	}
	a := v.Agent
	if req.MicroareaID != nil && *req.MicroareaID != a.MicroareaID {
		if resp, ok := h.requireMicroarea(ctx, c, *req.MicroareaID); !ok {
			return resp
		}
		a.MicroareaID = *req.MicroareaID
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if err := h.Teams.UpdateAgent(ctx, &a); err != nil {
		return serviceError(c, err, "update agent failed")
	}
	updated, err := h.Teams.GetAgent(ctx, id)
	if err != nil {
		return serviceError(c, err, "load agent failed")
	}
	return c.JSON(http.StatusOK, updated)
}

// ACSUsers handles GET /v1/teams/acs-users.
func (h *TeamHandler) ACSUsers(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Users.ListActiveByRole(ctx, model.RoleACS)
	if err != nil {
		return serviceError(c, err, "list acs users failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// KPIs handles GET /v1/teams/kpis?ubs_id=.  Without ubs_id every unit is
// counted.
func (h *TeamHandler) KPIs(c echo.Context) error {
	ubsID, ok := queryID(c, "ubs_id")
	if !ok {
		return badRequest(c, "invalid ubs_id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	population, families, total, uncovered, err := h.Teams.MicroareaTotals(ctx, ubsID)
	if err != nil {
		return serviceError(c, err, "load kpis failed")
	}
	return c.JSON(http.StatusOK, service.TerritoryKPIs(population, families, total, uncovered))
}

// requireMicroarea writes a 404 unless the microarea exists.
func (h *TeamHandler) requireMicroarea(ctx context.Context, c echo.Context, id uint64) (error, bool) {
	if _, err := h.Teams.GetMicroarea(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "microarea not found"}), false
		}
		return serviceError(c, err, "load microarea failed"), false
	}
	return nil, true
}
