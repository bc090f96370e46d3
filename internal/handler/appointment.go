package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/service"
)

// AppointmentBooker is the appointment service as seen by the handlers.
type AppointmentBooker interface {
	Book(ctx context.Context, patientID uint64, req service.BookRequest) (model.Appointment, error)
	Update(ctx context.Context, actor service.Actor, id uint64, req service.UpdateRequest) (model.Appointment, error)
	Confirm(ctx context.Context, actor service.Actor, id uint64) (model.Appointment, error)
	ListMine(ctx context.Context, patientID uint64) ([]model.AppointmentView, error)
	Agenda(ctx context.Context, actor service.Actor, professionalID uint64, from, to time.Time) ([]model.AppointmentView, error)
}

// ProfessionalDirectory lists bookable professionals.
type ProfessionalDirectory interface {
	ListActive(ctx context.Context, cargo string) ([]model.ProfessionalSummary, error)
	Specialties(ctx context.Context) ([]string, error)
}

// AppointmentHandler serves /v1/appointments and /v1/agenda.
type AppointmentHandler struct {
	Appointments  AppointmentBooker
	Professionals ProfessionalDirectory
	Blocks        BlockManager
}

func NewAppointmentHandler(appointments AppointmentBooker, professionals ProfessionalDirectory, blocks BlockManager) *AppointmentHandler {
	if appointments == nil || professionals == nil || blocks == nil {
		panic("nil dependency passed to NewAppointmentHandler")
	}
	return &AppointmentHandler{Appointments: appointments, Professionals: professionals, Blocks: blocks}
}

type bookReq struct {
	ProfessionalID uint64  `json:"professional_id"`
	ScheduledAt    string  `json:"scheduled_at"`
	Notes          *string `json:"notes"`
}

type updateAppointmentReq struct {
	ScheduledAt *string `json:"scheduled_at"`
	Status      *string `json:"status"`
	Notes       *string `json:"notes"`
}

// Mine handles GET /v1/appointments/mine.
func (h *AppointmentHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Appointments.ListMine(ctx, uid)
	if err != nil {
		return serviceError(c, err, "list appointments failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Book handles POST /v1/appointments for the calling patient.
func (h *AppointmentHandler) Book(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ProfessionalID == 0 {
		return badRequest(c, "professional_id required")
	}
	at, ok := parseTime(req.ScheduledAt)
	if !ok {
		return badRequest(c, "scheduled_at must be a date-time")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Appointments.Book(ctx, uid, service.BookRequest{
		ProfessionalID: req.ProfessionalID,
		At:             at,
		Notes:          req.Notes,
	})
	if err != nil {
		return serviceError(c, err, "book appointment failed")
	}
	return c.JSON(http.StatusCreated, a)
}

// Update handles PATCH /v1/appointments/:id: reschedule, cancel or annotate.
func (h *AppointmentHandler) Update(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req updateAppointmentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	var upd service.UpdateRequest
	if req.ScheduledAt != nil {
		at, ok := parseTime(*req.ScheduledAt)
		if !ok {
			return badRequest(c, "scheduled_at must be a date-time")
		}
		upd.At = &at
	}
	if req.Status != nil {
		st, ok := model.ParseAppointmentStatus(*req.Status)
		if !ok {
			return badRequest(c, "invalid status")
		}
		upd.Status = &st
	}
	upd.Notes = req.Notes
	if upd.At == nil && upd.Status == nil && (upd.Notes == nil || strings.TrimSpace(*upd.Notes) == "") {
		return badRequest(c, "nothing to update")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Appointments.Update(ctx, actor, id, upd)
	if err != nil {
		return serviceError(c, err, "update appointment failed")
	}
	return c.JSON(http.StatusOK, a)
}

// Confirm handles POST /v1/appointments/:id/confirm.
func (h *AppointmentHandler) Confirm(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Appointments.Confirm(ctx, actor, id)
	if err != nil {
		return serviceError(c, err, "confirm appointment failed")
	}
	return c.JSON(http.StatusOK, a)
}

// ListProfessionals handles GET /v1/appointments/professionals?cargo=.
func (h *AppointmentHandler) ListProfessionals(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Professionals.ListActive(ctx, c.QueryParam("cargo"))
	if err != nil {
		return serviceError(c, err, "list professionals failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Specialties handles GET /v1/appointments/specialties.
func (h *AppointmentHandler) Specialties(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Professionals.Specialties(ctx)
	if err != nil {
		return serviceError(c, err, "list specialties failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Agenda handles GET /v1/agenda/professionals/:id?start_date=&end_date=.
func (h *AppointmentHandler) Agenda(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	from, okFrom := parseTime(c.QueryParam("start_date"))
	to, okTo := parseTime(c.QueryParam("end_date"))
	if !okFrom || !okTo {
		return badRequest(c, "start_date and end_date are required date-times")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Appointments.Agenda(ctx, actor, id, from, to)
	if err != nil {
		return serviceError(c, err, "load agenda failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
