package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
	"github.com/iliyamo/ubs-backend/internal/service"
)

// CalendarStore persists unit calendar entries.
type CalendarStore interface {
	Create(ctx context.Context, e *model.CalendarEvent) error
	GetByID(ctx context.Context, id uint64) (model.CalendarEvent, error)
	List(ctx context.Context, ubsID uint64, from, to *time.Time) ([]model.CalendarEvent, error)
	Update(ctx context.Context, e *model.CalendarEvent) error
	Delete(ctx context.Context, id uint64) error
}

// CalendarHandler serves /v1/calendar.
type CalendarHandler struct {
	Events CalendarStore
	Units  UnitChecker
}

func NewCalendarHandler(events CalendarStore, units UnitChecker) *CalendarHandler {
	if events == nil || units == nil {
		panic("nil dependency passed to NewCalendarHandler")
	}
	return &CalendarHandler{Events: events, Units: units}
}

type calendarReq struct {
	UBSID              uint64  `json:"ubs_id"`
	Title              *string `json:"title"`
	Kind               *string `json:"kind"`
	Location           *string `json:"location"`
	StartsAt           *string `json:"starts_at"`
	EndsAt             *string `json:"ends_at"`
	AllDay             *bool   `json:"all_day"`
	Recurrence         *string `json:"recurrence"`
	RecurrenceInterval *int    `json:"recurrence_interval"`
	RecurrenceUntil    *string `json:"recurrence_until"`
	Notes              *string `json:"notes"`
}

// apply copies the present fields onto e, normalises all-day entries and
// validates the result.
func (req calendarReq) apply(e *model.CalendarEvent) string {
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Kind != nil || e.Kind == "" {
		raw := ""
		if req.Kind != nil {
			raw = *req.Kind
		}
		k, ok := model.ParseEventKind(raw)
		if !ok {
			return "kind must be SALA_VACINA, FARMACIA_BASICA, REUNIAO_EQUIPE or OUTRO"
		}
		e.Kind = k
	}
	if req.Recurrence != nil || e.Recurrence == "" {
		raw := ""
		if req.Recurrence != nil {
			raw = *req.Recurrence
		}
		r, ok := model.ParseRecurrence(raw)
		if !ok {
			return "recurrence must be NONE, DAILY, WEEKLY or MONTHLY"
		}
		e.Recurrence = r
	}
	if req.RecurrenceInterval != nil {
		e.RecurrenceInterval = *req.RecurrenceInterval
	} else if e.RecurrenceInterval == 0 {
		e.RecurrenceInterval = 1
	}
	if req.StartsAt != nil {
		t, ok := parseTime(*req.StartsAt)
		if !ok {
			return "invalid starts_at"
		}
		e.StartsAt = t
	}
	var ok bool
	if e.EndsAt, ok = optionalTimeOver(e.EndsAt, req.EndsAt); !ok {
		return "invalid ends_at"
	}
	if e.RecurrenceUntil, ok = optionalTimeOver(e.RecurrenceUntil, req.RecurrenceUntil); !ok {
		return "invalid recurrence_until"
	}
	if req.Location != nil {
		e.Location = req.Location
	}
	if req.Notes != nil {
		e.Notes = req.Notes
	}
	if req.AllDay != nil {
		e.AllDay = *req.AllDay
	}

	switch {
	case e.Title == "":
		return "title is required"
	case e.StartsAt.IsZero():
		return "starts_at is required"
	case e.RecurrenceInterval < 1:
		return "recurrence_interval must be at least 1"
	}
	if e.AllDay {
		e.StartsAt, e.EndsAt = service.NormalizeAllDay(e.StartsAt, e.EndsAt)
	}
	if e.EndsAt != nil && e.EndsAt.Before(e.StartsAt) {
		return "ends_at must not be before starts_at"
	}
	return ""
}

// optionalTimeOver applies a nullable date-time field: absent keeps cur,
// an empty string clears it.
func optionalTimeOver(cur *time.Time, raw *string) (*time.Time, bool) {
	if raw == nil {
		return cur, true
	}
	return optionalTime(raw)
}

// List handles GET /v1/calendar?ubs_id=&start=&end=.
func (h *CalendarHandler) List(c echo.Context) error {
	ubsID, ok := queryID(c, "ubs_id")
	if !ok || ubsID == 0 {
		return badRequest(c, "ubs_id required")
	}
	start, end := c.QueryParam("start"), c.QueryParam("end")
	from, okFrom := optionalTime(&start)
	to, okTo := optionalTime(&end)
	if !okFrom || !okTo {
		return badRequest(c, "invalid start or end")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Events.List(ctx, ubsID, from, to)
	if err != nil {
		return serviceError(c, err, "list calendar failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Create handles POST /v1/calendar.
func (h *CalendarHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req calendarReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.UBSID == 0 {
		return badRequest(c, "ubs_id required")
	}
	e := model.CalendarEvent{UBSID: req.UBSID, CreatedBy: uid}
	if msg := req.apply(&e); msg != "" {
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
	if err := h.Events.Create(ctx, &e); err != nil {
		return serviceError(c, err, "create calendar entry failed")
	}
	return c.JSON(http.StatusCreated, e)
}

// Update handles PATCH /v1/calendar/:id.
func (h *CalendarHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req calendarReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.loadError(c, err)
	}
	if msg := req.apply(&e); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Events.Update(ctx, &e); err != nil {
		return serviceError(c, err, "update calendar entry failed")
	}
	updated, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.loadError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/calendar/:id.
func (h *CalendarHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Events.Delete(ctx, id); err != nil {
		return h.loadError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CalendarHandler) loadError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "calendar entry not found"})
	}
	return serviceError(c, err, "load calendar entry failed")
}
