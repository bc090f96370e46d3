package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/service"
)

// BlockManager is the schedule block service as seen by the handlers.
type BlockManager interface {
	Create(ctx context.Context, actor service.Actor, req service.BlockRequest) (model.ScheduleBlock, error)
	List(ctx context.Context, actor service.Actor, professionalID uint64) ([]model.ScheduleBlock, error)
	Delete(ctx context.Context, actor service.Actor, id uint64) error
}

type blockReq struct {
	ProfessionalID uint64  `json:"professional_id"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Reason         *string `json:"reason"`
}

// CreateBlock handles POST /v1/agenda/blocks.  Without professional_id the
// block goes on the caller's own agenda.
func (h *AppointmentHandler) CreateBlock(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req blockReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	start, okStart := parseTime(req.Start)
	end, okEnd := parseTime(req.End)
	if !okStart || !okEnd {
		return badRequest(c, "start and end are required date-times")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	b, err := h.Blocks.Create(ctx, actor, service.BlockRequest{
		ProfessionalID: req.ProfessionalID,
		Start:          start,
		End:            end,
		Reason:         req.Reason,
	})
	if err != nil {
		return serviceError(c, err, "create block failed")
	}
	return c.JSON(http.StatusCreated, b)
}

// ListBlocks handles GET /v1/agenda/blocks?professional_id=.
func (h *AppointmentHandler) ListBlocks(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	profID, ok := queryID(c, "professional_id")
	if !ok {
		return badRequest(c, "invalid professional_id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Blocks.List(ctx, actor, profID)
	if err != nil {
		return serviceError(c, err, "list blocks failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteBlock handles DELETE /v1/agenda/blocks/:id.
func (h *AppointmentHandler) DeleteBlock(c echo.Context) error {
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
	if err := h.Blocks.Delete(ctx, actor, id); err != nil {
		return serviceError(c, err, "delete block failed")
	}
	return c.NoContent(http.StatusNoContent)
}
