// Package router registers the HTTP routes of the API on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/handler"
	"github.com/iliyamo/ubs-backend/internal/middleware"
)

// RegisterRoutes registers the unauthenticated probes.  db may be nil, in
// which case only /healthz is served.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers the session endpoints.  limit guards the
// credential endpoints against brute force; nil disables it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limit != nil {
		g.POST("/register", a.Register, limit)
		g.POST("/login", a.Login, limit)
	} else {
		g.POST("/register", a.Register)
		g.POST("/login", a.Login)
	}
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout needs no JWT: a refresh token in the body is enough.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}
