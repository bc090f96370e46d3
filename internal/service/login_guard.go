package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
	"github.com/iliyamo/ubs-backend/internal/utils"
)

// Reasons recorded in the login attempt log.
const (
	ReasonSuccess          = "success"
	ReasonUnknownEmail     = "unknown email"
	ReasonInvalidPassword  = "invalid password"
	ReasonAccountLocked    = "account locked"
	ReasonLockoutTriggered = "lockout triggered"
	ReasonAccountInactive  = "account inactive"
)

// GuardConfig holds the lockout policy.
type GuardConfig struct {
	MaxFailedAttempts int           // failures that trigger a lockout
	LockoutDuration   time.Duration // how long a lockout lasts
}

// DefaultGuardConfig is five failures for a fifteen minute lockout.
var DefaultGuardConfig = GuardConfig{MaxFailedAttempts: 5, LockoutDuration: 15 * time.Minute}

// AccountStore is the slice of the user repository the guard needs.
// GetByEmail returns repository.ErrNotFound for an unknown address.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	SaveLoginState(ctx context.Context, userID uint64, failedAttempts int, lockedUntil *time.Time) error
}

// AttemptLog is the append-only login audit log.
type AttemptLog interface {
	Append(ctx context.Context, a model.LoginAttempt) error
}

// LoginGuard checks credentials and applies a temporary lockout after
// repeated failures.  All state is read from and written back to the
// AccountStore on every attempt.
type LoginGuard struct {
	cfg      GuardConfig
	accounts AccountStore
	attempts AttemptLog
	now      func() time.Time
	verify   func(hash, plain string) bool
	log      zerolog.Logger
}

// NewLoginGuard builds a guard.  A nil clock means time.Now.
func NewLoginGuard(cfg GuardConfig, accounts AccountStore, attempts AttemptLog, clock func() time.Time, logger zerolog.Logger) *LoginGuard {
	if accounts == nil || attempts == nil {
		panic("nil store passed to NewLoginGuard")
	}
	if clock == nil {
		clock = time.Now
	}
	return &LoginGuard{
		cfg:      cfg,
		accounts: accounts,
		attempts: attempts,
		now:      clock,
		verify:   utils.VerifyPassword,
		log:      logger.With().Str("component", "login_guard").Logger(),
	}
}

// Attempt evaluates one login.  On success it returns the account with its
// counter and lockout cleared.  Otherwise the error is ErrInvalidCredentials,
// ErrAccountInactive, a *LockedError or a wrapped store error.
func (g *LoginGuard) Attempt(ctx context.Context, email, password, sourceIP string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := g.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.record(ctx, email, sourceIP, false, ReasonUnknownEmail)
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, fmt.Errorf("load account: %w", err)
	}

	if !u.IsActive {
		g.log.Warn().Uint64("user_id", u.ID).Str("ip", sourceIP).Msg("login attempt on inactive account")
		g.record(ctx, email, sourceIP, false, ReasonAccountInactive)
		return model.User{}, ErrAccountInactive
	}

	now := g.now().UTC()
	if u.LockedAt(now) {
		g.record(ctx, email, sourceIP, false, ReasonAccountLocked)
		return model.User{}, &LockedError{RemainingMinutes: remainingMinutes(now, *u.LockedUntil)}
	}

	// Lockout elapsed: the account starts from a clean slate before the
	// password is looked at.
	if u.LockedUntil != nil {
		if err := g.accounts.SaveLoginState(ctx, u.ID, 0, nil); err != nil {
			return model.User{}, fmt.Errorf("clear expired lockout: %w", err)
		}
		u.FailedAttempts = 0
		u.LockedUntil = nil
	}

	if !g.verify(u.PasswordHash, password) {
		failed := u.FailedAttempts + 1
		if failed >= g.cfg.MaxFailedAttempts {
			until := now.Add(g.cfg.LockoutDuration)
			if err := g.accounts.SaveLoginState(ctx, u.ID, 0, &until); err != nil {
				return model.User{}, fmt.Errorf("save lockout: %w", err)
			}
			g.log.Warn().Uint64("user_id", u.ID).Str("ip", sourceIP).Time("locked_until", until).Msg("account locked after repeated failures")
			g.record(ctx, email, sourceIP, false, ReasonLockoutTriggered)
			return model.User{}, &LockedError{RemainingMinutes: remainingMinutes(now, until)}
		}
		if err := g.accounts.SaveLoginState(ctx, u.ID, failed, nil); err != nil {
			return model.User{}, fmt.Errorf("save failed attempt: %w", err)
		}
		g.record(ctx, email, sourceIP, false, ReasonInvalidPassword)
		return model.User{}, ErrInvalidCredentials
	}

	if u.FailedAttempts != 0 {
		if err := g.accounts.SaveLoginState(ctx, u.ID, 0, nil); err != nil {
			return model.User{}, fmt.Errorf("reset failed attempts: %w", err)
		}
		u.FailedAttempts = 0
	}
	g.record(ctx, email, sourceIP, true, ReasonSuccess)
	return u, nil
}

// record appends to the attempt log.  A failed append is logged and does not
// change the outcome of the login.
func (g *LoginGuard) record(ctx context.Context, email, ip string, success bool, reason string) {
	err := g.attempts.Append(ctx, model.LoginAttempt{
		Email:     email,
		IPAddress: ip,
		Success:   success,
		Reason:    reason,
	})
	if err != nil {
		g.log.Error().Err(err).Str("email", email).Str("reason", reason).Msg("append login attempt failed")
	}
}

func remainingMinutes(now, until time.Time) int {
	m := int(math.Ceil(until.Sub(now).Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}
