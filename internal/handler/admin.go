package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
)

// AccountAdmin is the part of the user repository account administration
// uses.
type AccountAdmin interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetRole(ctx context.Context, id uint64, role model.Role) error
	SetActive(ctx context.Context, id uint64, active bool) error
}

// ProfessionalWriter creates professional profiles.
type ProfessionalWriter interface {
	CreateWithRole(ctx context.Context, p *model.Professional) error
}

// AttemptReader reads the login audit log.
type AttemptReader interface {
	ListByEmail(ctx context.Context, email string, limit int) ([]model.LoginAttempt, error)
}

// SessionRevoker ends every session of an account.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AdminHandler serves the GESTOR account administration endpoints.
type AdminHandler struct {
	Users         AccountAdmin
	Professionals ProfessionalWriter
	Attempts      AttemptReader
	Sessions      SessionRevoker
	// DirectoryChanged runs after a write that changes the public
	// professional listings.  May be nil.
	DirectoryChanged func(ctx context.Context) error
}

func NewAdminHandler(users AccountAdmin, professionals ProfessionalWriter, attempts AttemptReader, sessions SessionRevoker) *AdminHandler {
	if users == nil || professionals == nil || attempts == nil || sessions == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Users: users, Professionals: professionals, Attempts: attempts, Sessions: sessions}
}

type createProfessionalReq struct {
	UserID   uint64  `json:"user_id"`
	Cargo    string  `json:"cargo"`
	Registry string  `json:"registry"`
	UBSID    *uint64 `json:"ubs_id"`
}

type roleReq struct {
	Role string `json:"role"`
}

type activeReq struct {
	Active *bool `json:"active"`
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// CreateProfessional handles POST /v1/professionals.  The account is
// promoted to PROFISSIONAL in the same transaction.
func (h *AdminHandler) CreateProfessional(c echo.Context) error {
	var req createProfessionalReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Cargo = strings.TrimSpace(req.Cargo)
	req.Registry = strings.TrimSpace(req.Registry)
	if req.UserID == 0 || req.Cargo == "" || req.Registry == "" {
		return badRequest(c, "user_id, cargo and registry are required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return serviceError(c, err, "load user failed")
	}

	p := model.Professional{UserID: req.UserID, Cargo: req.Cargo, Registry: req.Registry, UBSID: req.UBSID}
	if err := h.Professionals.CreateWithRole(ctx, &p); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already has a professional profile"})
		case errors.Is(err, repository.ErrRegistryExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "registry already in use"})
		}
		return serviceError(c, err, "create professional failed")
	}
	h.directoryChanged(ctx)
	return c.JSON(http.StatusCreated, p)
}

// SetRole handles PATCH /v1/users/:id/role.
func (h *AdminHandler) SetRole(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return badRequest(c, "invalid role")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.SetRole(ctx, id, role); err != nil {
		return serviceError(c, err, "update role failed")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err, "load user failed")
	}
	return c.JSON(http.StatusOK, u)
}

// SetActive handles PATCH /v1/users/:id/active.  Disabling an account also
// revokes its refresh tokens.
func (h *AdminHandler) SetActive(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req activeReq
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return badRequest(c, "active required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.SetActive(ctx, id, *req.Active); err != nil {
		return serviceError(c, err, "update account failed")
	}
	if !*req.Active {
		if err := h.Sessions.RevokeAllForUser(ctx, id); err != nil {
			return serviceError(c, err, "revoke sessions failed")
		}
	}
	h.directoryChanged(ctx)
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err, "load user failed")
	}
	return c.JSON(http.StatusOK, u)
}

// LoginAttempts handles GET /v1/audit/login-attempts?email=&limit=.
func (h *AdminHandler) LoginAttempts(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if email == "" {
		return badRequest(c, "email required")
	}
	limit := defaultAuditLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return badRequest(c, "invalid limit")
		}
		limit = min(n, maxAuditLimit)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Attempts.ListByEmail(ctx, email, limit)
	if err != nil {
		return serviceError(c, err, "list login attempts failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// directoryChanged runs the DirectoryChanged hook; failures are logged only.
func (h *AdminHandler) directoryChanged(ctx context.Context) {
	if h.DirectoryChanged == nil {
		return
	}
	if err := h.DirectoryChanged(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("purge professional listings failed")
	}
}
