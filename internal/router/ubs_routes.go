package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/handler"
	"github.com/iliyamo/ubs-backend/internal/middleware"
)

// RegisterUBS registers the situational diagnosis endpoints.  Rows are
// scoped to the caller inside the handlers, so any authenticated account
// may use them.
func RegisterUBS(e *echo.Echo, h *handler.UBSHandler, jwtSecret string) {
	g := e.Group("/v1/ubs", middleware.JWTAuth(jwtSecret))

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)

	g.GET("/:id/territory", h.GetTerritory)
	g.PUT("/:id/territory", h.PutTerritory)
	g.GET("/:id/needs", h.GetNeeds)
	g.PUT("/:id/needs", h.PutNeeds)
	g.POST("/:id/submit", h.Submit)
	g.GET("/:id/diagnosis", h.Diagnosis)

	// ---- GUT problems ----
	g.GET("/:id/problems", h.ListProblems)
	g.POST("/:id/problems", h.CreateProblem)
	g.PATCH("/problems/:pid", h.UpdateProblem)
	g.DELETE("/problems/:pid", h.DeleteProblem)
	g.GET("/problems/:pid/interventions", h.ListInterventions)
	g.POST("/problems/:pid/interventions", h.CreateIntervention)
	g.PATCH("/interventions/:iid", h.UpdateIntervention)
}
