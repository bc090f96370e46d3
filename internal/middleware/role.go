package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// RequireRole returns a middleware that lets the request through only when
// the authenticated role, stored by JWTAuth under "role", is one of roles.
// Otherwise the request is aborted with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	// Build a set of allowed roles for constant‑time lookups.
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := CurrentRole(c)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireCapability is RequireRole over every role for which can is true.
func RequireCapability(can func(model.Role) bool) echo.MiddlewareFunc {
	return RequireRole(model.RolesWhere(can)...)
}
