package middleware

// identity.go holds the helpers that read the identity JWTAuth stored in
// the echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// CurrentRole returns the caller's role when it is a known enum value.
func CurrentRole(c echo.Context) (model.Role, bool) {
	s, ok := c.Get(CtxRole).(string)
	if !ok {
		if r, isRole := c.Get(CtxRole).(model.Role); isRole {
			s = string(r)
		}
	}
	return model.ParseRole(s)
}

// currentUserID renders the caller's id for rate-limit keys, or "anon".
func currentUserID(c echo.Context) string {
	switch v := c.Get(CtxUserID).(type) {
	case uint64:
		if v != 0 {
			return strconv.FormatUint(v, 10)
		}
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
