package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
)

// ProblemStore persists GUT problems and intervention plans.  The *Owned
// lookups read another owner's rows as repository.ErrNotFound.
type ProblemStore interface {
	Create(ctx context.Context, p *model.Problem) error
	GetOwned(ctx context.Context, id, ownerID uint64) (model.Problem, error)
	ListByUBS(ctx context.Context, ubsID uint64) ([]model.Problem, error)
	Update(ctx context.Context, p *model.Problem) error
	Delete(ctx context.Context, id uint64) error
	CreateIntervention(ctx context.Context, iv *model.Intervention) error
	ListInterventions(ctx context.Context, problemID uint64) ([]model.Intervention, error)
	GetInterventionOwned(ctx context.Context, id, ownerID uint64) (model.Intervention, error)
	UpdateIntervention(ctx context.Context, iv *model.Intervention) error
}

type problemReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Gravity     *int    `json:"gut_gravity"`
	Urgency     *int    `json:"gut_urgency"`
	Tendency    *int    `json:"gut_tendency"`
	IsPriority  *bool   `json:"is_priority"`
}

type interventionReq struct {
	Objective   *string `json:"objective"`
	Goals       *string `json:"goals"`
	Responsible *string `json:"responsible"`
	Status      *string `json:"status"`
}

// apply copies the present fields onto p and validates the result.
func (req problemReq) apply(p *model.Problem) string {
	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Gravity != nil {
		p.Gravity = *req.Gravity
	}
	if req.Urgency != nil {
		p.Urgency = *req.Urgency
	}
	if req.Tendency != nil {
		p.Tendency = *req.Tendency
	}
	if req.IsPriority != nil {
		p.IsPriority = *req.IsPriority
	}
	switch {
	case p.Title == "":
		return "title is required"
	case !model.ValidGUT(p.Gravity), !model.ValidGUT(p.Urgency), !model.ValidGUT(p.Tendency):
		return "gut_gravity, gut_urgency and gut_tendency must be between 1 and 5"
	}
	return ""
}

func (req interventionReq) apply(iv *model.Intervention) string {
	if req.Objective != nil {
		iv.Objective = strings.TrimSpace(*req.Objective)
	}
	if req.Goals != nil {
		iv.Goals = req.Goals
	}
	if req.Responsible != nil {
		iv.Responsible = req.Responsible
	}
	if req.Status != nil || iv.Status == "" {
		raw := ""
		if req.Status != nil {
			raw = *req.Status
		}
		st, ok := model.ParseInterventionStatus(raw)
		if !ok {
			return "status must be PLANEJADO, EM_ANDAMENTO or CONCLUIDO"
		}
		iv.Status = st
	}
	if iv.Objective == "" {
		return "objective is required"
	}
	return ""
}

// ownedProblem loads the :pid problem of the caller or writes the error
// response.
func (h *UBSHandler) ownedProblem(ctx context.Context, c echo.Context) (model.Problem, bool, error) {
	uid, err := getUserID(c)
	if err != nil {
		return model.Problem{}, false, unauthorized(c)
	}
	pid, ok := paramID(c, "pid")
	if !ok {
		return model.Problem{}, false, badRequest(c, "invalid problem id")
	}
	p, err := h.Problems.GetOwned(ctx, pid, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Problem{}, false, c.JSON(http.StatusNotFound, echo.Map{"error": "problem not found"})
		}
		return model.Problem{}, false, serviceError(c, err, "load problem failed")
	}
	return p, true, nil
}

// ListProblems handles GET /v1/ubs/:id/problems.
func (h *UBSHandler) ListProblems(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}
	items, err := h.Problems.ListByUBS(ctx, u.ID)
	if err != nil {
		return serviceError(c, err, "list problems failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateProblem handles POST /v1/ubs/:id/problems.
func (h *UBSHandler) CreateProblem(c echo.Context) error {
	var req problemReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}
	p := model.Problem{UBSID: u.ID}
	if msg := req.apply(&p); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Problems.Create(ctx, &p); err != nil {
		return serviceError(c, err, "create problem failed")
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdateProblem handles PATCH /v1/ubs/problems/:pid.
func (h *UBSHandler) UpdateProblem(c echo.Context) error {
	var req problemReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, ok, err := h.ownedProblem(ctx, c)
	if !ok {
		return err
	}
	if msg := req.apply(&p); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Problems.Update(ctx, &p); err != nil {
		return serviceError(c, err, "update problem failed")
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteProblem handles DELETE /v1/ubs/problems/:pid.
func (h *UBSHandler) DeleteProblem(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, ok, err := h.ownedProblem(ctx, c)
	if !ok {
		return err
	}
	if err := h.Problems.Delete(ctx, p.ID); err != nil {
		return serviceError(c, err, "delete problem failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListInterventions handles GET /v1/ubs/problems/:pid/interventions.
func (h *UBSHandler) ListInterventions(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, ok, err := h.ownedProblem(ctx, c)
	if !ok {
		return err
	}
	items, err := h.Problems.ListInterventions(ctx, p.ID)
	if err != nil {
		return serviceError(c, err, "list interventions failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateIntervention handles POST /v1/ubs/problems/:pid/interventions.
func (h *UBSHandler) CreateIntervention(c echo.Context) error {
	var req interventionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, ok, err := h.ownedProblem(ctx, c)
	if !ok {
		return err
	}
	iv := model.Intervention{ProblemID: p.ID}
	if msg := req.apply(&iv); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Problems.CreateIntervention(ctx, &iv); err != nil {
		return serviceError(c, err, "create intervention failed")
	}
	return c.JSON(http.StatusCreated, iv)
}

// UpdateIntervention handles PATCH /v1/ubs/interventions/:iid.
func (h *UBSHandler) UpdateIntervention(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	iid, ok := paramID(c, "iid")
	if !ok {
		return badRequest(c, "invalid intervention id")
	}
	var req interventionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	iv, err := h.Problems.GetInterventionOwned(ctx, iid, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "intervention not found"})
		}
		return serviceError(c, err, "load intervention failed")
	}
	if msg := req.apply(&iv); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Problems.UpdateIntervention(ctx, &iv); err != nil {
		return serviceError(c, err, "update intervention failed")
	}
	return c.JSON(http.StatusOK, iv)
}
