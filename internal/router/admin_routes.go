package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/handler"
	"github.com/iliyamo/ubs-backend/internal/middleware"
	"github.com/iliyamo/ubs-backend/internal/model"
)

// RegisterAdmin registers GESTOR-only account administration under /v1.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireCapability(model.Role.CanAdministerAccounts),
	)
	g.POST("/professionals", h.CreateProfessional)
	g.PATCH("/users/:id/role", h.SetRole)
	g.PATCH("/users/:id/active", h.SetActive)
	g.GET("/audit/login-attempts", h.LoginAttempts)
}
