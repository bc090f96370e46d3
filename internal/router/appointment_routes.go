package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/handler"
	"github.com/iliyamo/ubs-backend/internal/middleware"
	"github.com/iliyamo/ubs-backend/internal/model"
)

// RegisterAppointments registers booking and agenda endpoints.  Every
// route needs a JWT; role rules beyond that live in the services.  cache,
// when not nil, fronts the professional listings.
func RegisterAppointments(e *echo.Echo, h *handler.AppointmentHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/appointments", middleware.JWTAuth(jwtSecret))
	g.GET("/mine", h.Mine)
	g.POST("", h.Book)
	g.PATCH("/:id", h.Update)
	g.POST("/:id/confirm", h.Confirm, middleware.RequireCapability(model.Role.IsConsultStaff))
	if cache != nil {
		g.GET("/professionals", h.ListProfessionals, cache)
		g.GET("/specialties", h.Specialties, cache)
	} else {
		g.GET("/professionals", h.ListProfessionals)
		g.GET("/specialties", h.Specialties)
	}

	agenda := e.Group("/v1/agenda", middleware.JWTAuth(jwtSecret))
	agenda.GET("/professionals/:id", h.Agenda, middleware.RequireCapability(model.Role.CanViewAgenda))
	agenda.POST("/blocks", h.CreateBlock)
	agenda.GET("/blocks", h.ListBlocks)
	agenda.DELETE("/blocks/:id", h.DeleteBlock)
}
