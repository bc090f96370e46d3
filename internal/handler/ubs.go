package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
	"github.com/iliyamo/ubs-backend/internal/service"
)

// UBSStore persists the diagnosis aggregate.  Every lookup is scoped to the
// owning account.
type UBSStore interface {
	Create(ctx context.Context, u *model.UBS) error
	GetOwned(ctx context.Context, id, ownerID uint64) (model.UBS, error)
	ListOwned(ctx context.Context, ownerID uint64, limit, offset int) ([]model.UBS, int, error)
	Update(ctx context.Context, u *model.UBS) error
	SoftDelete(ctx context.Context, id, ownerID uint64) error
	MarkSubmitted(ctx context.Context, id, ownerID uint64, by uint64, at time.Time) error
	GetTerritory(ctx context.Context, ubsID uint64) (model.TerritoryProfile, error)
	UpsertTerritory(ctx context.Context, t *model.TerritoryProfile) error
	GetNeeds(ctx context.Context, ubsID uint64) (model.UBSNeeds, error)
	UpsertNeeds(ctx context.Context, n *model.UBSNeeds) error
}

// UBSHandler serves /v1/ubs: the diagnosis, its territory and needs, and
// the GUT problems with their intervention plans.
type UBSHandler struct {
	UBS      UBSStore
	Problems ProblemStore
	Now      func() time.Time
}

func NewUBSHandler(ubs UBSStore, problems ProblemStore) *UBSHandler {
	if ubs == nil || problems == nil {
		panic("nil dependency passed to NewUBSHandler")
	}
	return &UBSHandler{UBS: ubs, Problems: problems, Now: time.Now}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

// ubsReq carries the editable general fields.  Absent fields are left
// untouched on PATCH.
type ubsReq struct {
	Name               *string `json:"name"`
	ReportName         *string `json:"report_name"`
	CNES               *string `json:"cnes"`
	CoverageArea       *string `json:"coverage_area"`
	ActiveResidents    *int    `json:"active_residents"`
	Microareas         *int    `json:"microareas"`
	RegisteredFamilies *int    `json:"registered_families"`
	Households         *int    `json:"households"`
	RuralHouseholds    *int    `json:"rural_households"`
	InauguratedOn      *string `json:"inaugurated_on"`
	LastRenovatedOn    *string `json:"last_renovated_on"`
	Description        *string `json:"description"`
	Notes              *string `json:"notes"`
	OtherServices      *string `json:"other_services"`
}

type territoryReq struct {
	Description     *string `json:"description"`
	Strengths       *string `json:"strengths"`
	Vulnerabilities *string `json:"vulnerabilities"`
}

type needsReq struct {
	IdentifiedProblems  *string `json:"identified_problems"`
	EquipmentNeeds      *string `json:"equipment_needs"`
	AgentNeeds          *string `json:"agent_needs"`
	InfrastructureNeeds *string `json:"infrastructure_needs"`
}

type submitReq struct {
	Confirm bool `json:"confirm"`
}

func validationFailed(c echo.Context, detail string, errs []model.FieldError) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"detail": detail, "errors": errs})
}

// apply copies the present fields of req onto u and returns the field
// errors found in the result.
func (req ubsReq) apply(u *model.UBS) []model.FieldError {
	var errs []model.FieldError
	add := func(field, msg, code string) {
		errs = append(errs, model.FieldError{Field: field, Message: msg, Code: code})
	}
	text := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	optText := func(dst **string, src *string) {
		if src != nil {
			v := strings.TrimSpace(*src)
			if v == "" {
				*dst = nil
			} else {
				*dst = &v
			}
		}
	}
	count := func(field string, dst **int, src *int) {
		if src == nil {
			return
		}
		if *src < 0 {
			add(field, "value must not be negative", service.CodeRange)
			return
		}
		v := *src
		*dst = &v
	}
	date := func(field string, dst **time.Time, src *string) {
		if src == nil {
			return
		}
		raw := strings.TrimSpace(*src)
		if raw == "" {
			*dst = nil
			return
		}
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			add(field, "date must be YYYY-MM-DD", service.CodeRange)
			return
		}
		*dst = &d
	}

	text(&u.Name, req.Name)
	text(&u.CNES, req.CNES)
	text(&u.CoverageArea, req.CoverageArea)
	optText(&u.ReportName, req.ReportName)
	optText(&u.Description, req.Description)
	optText(&u.Notes, req.Notes)
	optText(&u.OtherServices, req.OtherServices)
	count("active_residents", &u.ActiveResidents, req.ActiveResidents)
	count("microareas", &u.Microareas, req.Microareas)
	count("registered_families", &u.RegisteredFamilies, req.RegisteredFamilies)
	count("households", &u.Households, req.Households)
	count("rural_households", &u.RuralHouseholds, req.RuralHouseholds)
	date("inaugurated_on", &u.InauguratedOn, req.InauguratedOn)
	date("last_renovated_on", &u.LastRenovatedOn, req.LastRenovatedOn)

	if u.Name == "" {
		add("name", "unit name is required", service.CodeRequired)
	}
	if u.CNES == "" {
		add("cnes", "CNES is required", service.CodeRequired)
	}
	if u.CoverageArea == "" {
		add("coverage_area", "coverage area is required", service.CodeRequired)
	}
	if u.InauguratedOn != nil && u.LastRenovatedOn != nil && u.LastRenovatedOn.Before(*u.InauguratedOn) {
		add("last_renovated_on", "last renovation cannot be before the inauguration date", service.CodeDateLogic)
	}
	return errs
}

// ownedUBS loads the :id unit of the caller or writes the error response.
func (h *UBSHandler) ownedUBS(ctx context.Context, c echo.Context) (model.UBS, uint64, bool, error) {
	uid, err := getUserID(c)
	if err != nil {
		return model.UBS{}, 0, false, unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return model.UBS{}, 0, false, badRequest(c, "invalid id")
	}
	u, err := h.UBS.GetOwned(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UBS{}, 0, false, c.JSON(http.StatusNotFound, echo.Map{"error": "ubs not found"})
		}
		return model.UBS{}, 0, false, serviceError(c, err, "load ubs failed")
	}
	return u, uid, true, nil
}

// Create handles POST /v1/ubs.
func (h *UBSHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req ubsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	u := model.UBS{OwnerID: uid, Status: model.UBSDraft}
	if errs := req.apply(&u); len(errs) > 0 {
		return validationFailed(c, "invalid ubs", errs)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.UBS.Create(ctx, &u); err != nil {
		return serviceError(c, err, "create ubs failed")
	}
	return c.JSON(http.StatusCreated, u)
}

// List handles GET /v1/ubs?page=&page_size=.
func (h *UBSHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	page, size := 1, defaultPageSize
	if raw := c.QueryParam("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil || page < 1 {
			return badRequest(c, "invalid page")
		}
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		if size, err = strconv.Atoi(raw); err != nil || size < 1 {
			return badRequest(c, "invalid page_size")
		}
		size = min(size, maxPageSize)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	items, total, err := h.UBS.ListOwned(ctx, uid, size, (page-1)*size)
	if err != nil {
		return serviceError(c, err, "list ubs failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total, "page": page, "page_size": size})
}

// Get handles GET /v1/ubs/:id.
func (h *UBSHandler) Get(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Update handles PATCH /v1/ubs/:id.
func (h *UBSHandler) Update(c echo.Context) error {
	var req ubsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}
	if errs := req.apply(&u); len(errs) > 0 {
		return validationFailed(c, "invalid ubs", errs)
	}
	if err := h.UBS.Update(ctx, &u); err != nil {
		return serviceError(c, err, "update ubs failed")
	}
	updated, err := h.UBS.GetOwned(ctx, u.ID, u.OwnerID)
	if err != nil {
		return serviceError(c, err, "load ubs failed")
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/ubs/:id as a soft delete.
func (h *UBSHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.UBS.SoftDelete(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ubs not found"})
		}
		return serviceError(c, err, "delete ubs failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetTerritory handles GET /v1/ubs/:id/territory.
func (h *UBSHandler) GetTerritory(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}
	t, err := h.UBS.GetTerritory(ctx, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "territory profile not found"})
		}
		return serviceError(c, err, "load territory failed")
	}
	return c.JSON(http.StatusOK, t)
}

// PutTerritory handles PUT /v1/ubs/:id/territory.  The first write needs a
// description; later writes change only the fields present.
func (h *UBSHandler) PutTerritory(c echo.Context) error {
	var req territoryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}

	t, err := h.UBS.GetTerritory(ctx, u.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if req.Description == nil || strings.TrimSpace(*req.Description) == "" {
			return badRequest(c, "description is required")
		}
		t = model.TerritoryProfile{UBSID: u.ID}
	case err != nil:
		return serviceError(c, err, "load territory failed")
	}
	if req.Description != nil {
		t.Description = strings.TrimSpace(*req.Description)
	}
	if req.Strengths != nil {
		t.Strengths = req.Strengths
	}
	if req.Vulnerabilities != nil {
		t.Vulnerabilities = req.Vulnerabilities
	}
	if err := h.UBS.UpsertTerritory(ctx, &t); err != nil {
		return serviceError(c, err, "save territory failed")
	}
	return c.JSON(http.StatusOK, t)
}

// GetNeeds handles GET /v1/ubs/:id/needs.
func (h *UBSHandler) GetNeeds(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}
	n, err := h.UBS.GetNeeds(ctx, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "needs record not found"})
		}
		return serviceError(c, err, "load needs failed")
	}
	return c.JSON(http.StatusOK, n)
}

// PutNeeds handles PUT /v1/ubs/:id/needs.  The first write needs
// identified_problems.
func (h *UBSHandler) PutNeeds(c echo.Context) error {
	var req needsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}

	n, err := h.UBS.GetNeeds(ctx, u.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if req.IdentifiedProblems == nil || strings.TrimSpace(*req.IdentifiedProblems) == "" {
			return badRequest(c, "identified_problems is required")
		}
		n = model.UBSNeeds{UBSID: u.ID}
	case err != nil:
		return serviceError(c, err, "load needs failed")
	}
	if req.IdentifiedProblems != nil {
		n.IdentifiedProblems = strings.TrimSpace(*req.IdentifiedProblems)
	}
	if req.EquipmentNeeds != nil {
		n.EquipmentNeeds = req.EquipmentNeeds
	}
	if req.AgentNeeds != nil {
		n.AgentNeeds = req.AgentNeeds
	}
	if req.InfrastructureNeeds != nil {
		n.InfrastructureNeeds = req.InfrastructureNeeds
	}
	if err := h.UBS.UpsertNeeds(ctx, &n); err != nil {
		return serviceError(c, err, "save needs failed")
	}
	return c.JSON(http.StatusOK, n)
}

// Submit handles POST /v1/ubs/:id/submit.  A diagnosis that fails the
// submit checks is answered with every field error at once.
func (h *UBSHandler) Submit(c echo.Context) error {
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if !req.Confirm {
		return badRequest(c, "confirm must be true")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, uid, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}

	d, err := h.diagnosis(ctx, u)
	if err != nil {
		return serviceError(c, err, "load diagnosis failed")
	}
	if errs := service.ValidateForSubmit(u, d.Territory, d.Needs); len(errs) > 0 {
		return validationFailed(c, "diagnosis is not ready for submission", errs)
	}
	if err := h.UBS.MarkSubmitted(ctx, u.ID, u.OwnerID, uid, h.Now()); err != nil {
		return serviceError(c, err, "submit diagnosis failed")
	}
	if d.UBS, err = h.UBS.GetOwned(ctx, u.ID, u.OwnerID); err != nil {
		return serviceError(c, err, "load ubs failed")
	}
	d.Submission = model.Submission{Status: d.UBS.Status, SubmittedAt: d.UBS.SubmittedAt, SubmittedBy: d.UBS.SubmittedBy}
	return c.JSON(http.StatusOK, d)
}

// Diagnosis handles GET /v1/ubs/:id/diagnosis.
func (h *UBSHandler) Diagnosis(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, _, ok, err := h.ownedUBS(ctx, c)
	if !ok {
		return err
	}
	d, err := h.diagnosis(ctx, u)
	if err != nil {
		return serviceError(c, err, "load diagnosis failed")
	}
	return c.JSON(http.StatusOK, d)
}

// diagnosis assembles the read aggregate of u.  A missing territory or
// needs record is left nil.
func (h *UBSHandler) diagnosis(ctx context.Context, u model.UBS) (model.Diagnosis, error) {
	d := model.Diagnosis{
		UBS:        u,
		Submission: model.Submission{Status: u.Status, SubmittedAt: u.SubmittedAt, SubmittedBy: u.SubmittedBy},
	}
	t, err := h.UBS.GetTerritory(ctx, u.ID)
	switch {
	case err == nil:
		d.Territory = &t
	case !errors.Is(err, repository.ErrNotFound):
		return model.Diagnosis{}, err
	}
	n, err := h.UBS.GetNeeds(ctx, u.ID)
	switch {
	case err == nil:
		d.Needs = &n
	case !errors.Is(err, repository.ErrNotFound):
		return model.Diagnosis{}, err
	}
	if d.Problems, err = h.Problems.ListByUBS(ctx, u.ID); err != nil {
		return model.Diagnosis{}, err
	}
	service.SortProblems(d.Problems)
	return d, nil
}
