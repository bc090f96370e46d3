package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/handler"
	"github.com/iliyamo/ubs-backend/internal/middleware"
	"github.com/iliyamo/ubs-backend/internal/model"
)

// RegisterTeams registers microarea, agent and KPI endpoints for GESTOR and
// RECEPCAO.
func RegisterTeams(e *echo.Echo, h *handler.TeamHandler, jwtSecret string) {
	g := e.Group(
		"/v1/teams",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireCapability(model.Role.CanManageTeams),
	)
	g.GET("/microareas", h.ListMicroareas)
	g.POST("/microareas", h.CreateMicroarea)
	g.PATCH("/microareas/:id", h.UpdateMicroarea)
	g.GET("/agents", h.ListAgents)
	g.POST("/agents", h.CreateAgent)
	g.PATCH("/agents/:id", h.UpdateAgent)
	g.GET("/acs-users", h.ACSUsers)
	g.GET("/kpis", h.KPIs)
}

// RegisterCalendar registers the unit calendar for GESTOR, PROFISSIONAL and
// ACS.
func RegisterCalendar(e *echo.Echo, h *handler.CalendarHandler, jwtSecret string) {
	g := e.Group(
		"/v1/calendar",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireCapability(model.Role.CanEditCalendar),
	)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
