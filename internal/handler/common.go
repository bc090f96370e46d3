// Package handler defines the HTTP handlers of the API.  Handlers bind and
// validate input, call a service or repository under a bounded context and
// translate the tagged errors they get back into status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ubs-backend/internal/middleware"
	"github.com/iliyamo/ubs-backend/internal/repository"
	"github.com/iliyamo/ubs-backend/internal/service"
)

// dbTimeout bounds the store work of a single request.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// getUserID extracts the user_id set by JWTAuth and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		if t != 0 {
			return t, nil
		}
	case int:
		if t > 0 {
			return uint64(t), nil
		}
	case int64:
		if t > 0 {
			return uint64(t), nil
		}
	case float64:
		if t > 0 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// actorFrom builds the service actor of the authenticated caller.
func actorFrom(c echo.Context) (service.Actor, bool) {
	uid, err := getUserID(c)
	if err != nil {
		return service.Actor{}, false
	}
	role, ok := middleware.CurrentRole(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: uid, Role: role}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// queryID parses an optional positive numeric query parameter; absent is 0.
func queryID(c echo.Context, name string) (uint64, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil && id != 0
}

// timeLayouts are accepted for date-time input, first match wins.  Values
// without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// optionalTime parses a nullable JSON date-time field.
func optionalTime(raw *string) (*time.Time, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	t, ok := parseTime(*raw)
	if !ok {
		return nil, false
	}
	return &t, true
}

// serviceError maps service and repository sentinels onto responses.
// Anything unrecognised is a 500 carrying fallback as its message.
func serviceError(c echo.Context, err error, fallback string) error {
	var locked *service.LockedError
	switch {
	case errors.As(err, &locked):
		return c.JSON(http.StatusLocked, echo.Map{
			"error":             service.ErrAccountLocked.Error(),
			"remaining_minutes": locked.RemainingMinutes,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotProfessional),
		errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSlotInPast),
		errors.Is(err, service.ErrSlotBeyondHorizon),
		errors.Is(err, service.ErrInvalidInterval),
		errors.Is(err, service.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSlotConflict),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrCPFExists),
		errors.Is(err, repository.ErrRegistryExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrProviderNotFound),
		errors.Is(err, service.ErrAppointmentNotFound),
		errors.Is(err, service.ErrBlockNotFound),
		errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg(fallback)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}
