package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/utils"
)

const (
	guardEmail    = "maria@example.com"
	guardPassword = "s3cret!"
	guardIP       = "10.0.0.7"
)

var guardStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newGuardFixture(t *testing.T, mutate func(*model.User)) (*LoginGuard, *memAccounts, *memAttempts, *fakeClock) {
	t.Helper()
	hash, err := utils.HashPassword(guardPassword, bcrypt.MinCost)
	require.NoError(t, err)
	u := model.User{ID: 1, Name: "Maria", Email: guardEmail, PasswordHash: hash, Role: model.RoleUser, IsActive: true}
	if mutate != nil {
		mutate(&u)
	}
	accounts := newMemAccounts(u)
	attempts := &memAttempts{}
	clock := newFakeClock(guardStart)
	g := NewLoginGuard(DefaultGuardConfig, accounts, attempts, clock.Now, zerolog.Nop())
	return g, accounts, attempts, clock
}

func TestLoginGuard_Success(t *testing.T) {
	g, accounts, attempts, _ := newGuardFixture(t, nil)

	u, err := g.Attempt(context.Background(), "  Maria@Example.com ", guardPassword, guardIP)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Equal(t, 0, accounts.get(guardEmail).FailedAttempts)
	assert.Equal(t, []string{ReasonSuccess}, attempts.reasons())
	assert.Equal(t, guardIP, attempts.rows[0].IPAddress)
	assert.True(t, attempts.rows[0].Success)
}

func TestLoginGuard_UnknownEmailLooksLikeBadPassword(t *testing.T) {
	g, _, attempts, _ := newGuardFixture(t, nil)

	_, errUnknown := g.Attempt(context.Background(), "nobody@example.com", guardPassword, guardIP)
	_, errWrong := g.Attempt(context.Background(), guardEmail, "wrong", guardIP)

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, []string{ReasonUnknownEmail, ReasonInvalidPassword}, attempts.reasons())
}

func TestLoginGuard_FiveFailuresLock(t *testing.T) {
	g, accounts, attempts, _ := newGuardFixture(t, nil)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := g.Attempt(ctx, guardEmail, "wrong", guardIP)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, i, accounts.get(guardEmail).FailedAttempts)
	}

	_, err := g.Attempt(ctx, guardEmail, "wrong", guardIP)
	require.ErrorIs(t, err, ErrAccountLocked)
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 15, locked.RemainingMinutes)

	u := accounts.get(guardEmail)
	require.NotNil(t, u.LockedUntil)
	assert.True(t, u.LockedUntil.Equal(guardStart.Add(15*time.Minute)))
	assert.Equal(t, 0, u.FailedAttempts)
	assert.Equal(t, ReasonLockoutTriggered, attempts.reasons()[4])
}

func TestLoginGuard_LockedRejectsWithoutCounting(t *testing.T) {
	g, accounts, attempts, clock := newGuardFixture(t, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = g.Attempt(ctx, guardEmail, "wrong", guardIP)
	}
	savesBefore := accounts.saves

	clock.Advance(4*time.Minute + 30*time.Second)
	_, err := g.Attempt(ctx, guardEmail, "wrong", guardIP)
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 11, locked.RemainingMinutes)

	// the right password is rejected too while locked
	_, err = g.Attempt(ctx, guardEmail, guardPassword, guardIP)
	assert.ErrorIs(t, err, ErrAccountLocked)

	assert.Equal(t, savesBefore, accounts.saves)
	assert.Equal(t, 0, accounts.get(guardEmail).FailedAttempts)
	assert.Equal(t, ReasonAccountLocked, attempts.reasons()[len(attempts.rows)-1])
}

func TestLoginGuard_RemainingMinutesNeverZero(t *testing.T) {
	g, _, _, clock := newGuardFixture(t, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = g.Attempt(ctx, guardEmail, "wrong", guardIP)
	}
	clock.Advance(15*time.Minute - time.Second)

	_, err := g.Attempt(ctx, guardEmail, guardPassword, guardIP)
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 1, locked.RemainingMinutes)
}

func TestLoginGuard_ExpiredLockoutClearedBeforePasswordCheck(t *testing.T) {
	until := guardStart
	g, accounts, _, _ := newGuardFixture(t, func(u *model.User) {
		u.LockedUntil = &until
		u.FailedAttempts = 3
	})

	// Attempt exactly at expiry with a bad password: the old counter is
	// dropped first, so this is failure number one.
	_, err := g.Attempt(context.Background(), guardEmail, "wrong", guardIP)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	u := accounts.get(guardEmail)
	assert.Nil(t, u.LockedUntil)
	assert.Equal(t, 1, u.FailedAttempts)
}

func TestLoginGuard_ExpiredLockoutThenSuccess(t *testing.T) {
	g, accounts, attempts, clock := newGuardFixture(t, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = g.Attempt(ctx, guardEmail, "wrong", guardIP)
	}
	clock.Advance(16 * time.Minute)

	_, err := g.Attempt(ctx, guardEmail, guardPassword, guardIP)
	require.NoError(t, err)
	u := accounts.get(guardEmail)
	assert.Nil(t, u.LockedUntil)
	assert.Equal(t, 0, u.FailedAttempts)
	assert.Equal(t, ReasonSuccess, attempts.reasons()[len(attempts.rows)-1])
}

func TestLoginGuard_SuccessResetsCounter(t *testing.T) {
	g, accounts, _, _ := newGuardFixture(t, nil)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := g.Attempt(ctx, guardEmail, "wrong", guardIP)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	require.Equal(t, 4, accounts.get(guardEmail).FailedAttempts)

	_, err := g.Attempt(ctx, guardEmail, guardPassword, guardIP)
	require.NoError(t, err)

	u := accounts.get(guardEmail)
	assert.Equal(t, 0, u.FailedAttempts)
	assert.Nil(t, u.LockedUntil, "no lockout is ever set below the threshold")

	// the counter starts over after the reset
	_, _ = g.Attempt(ctx, guardEmail, "wrong", guardIP)
	assert.Equal(t, 1, accounts.get(guardEmail).FailedAttempts)
}

func TestLoginGuard_InactiveAccount(t *testing.T) {
	until := guardStart.Add(time.Hour)
	g, accounts, attempts, _ := newGuardFixture(t, func(u *model.User) {
		u.IsActive = false
		u.LockedUntil = &until
	})

	_, err := g.Attempt(context.Background(), guardEmail, guardPassword, guardIP)
	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.NotErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, []string{ReasonAccountInactive}, attempts.reasons())
	assert.Equal(t, 0, accounts.saves)
}

func TestLoginGuard_CustomThreshold(t *testing.T) {
	hash, err := utils.HashPassword(guardPassword, bcrypt.MinCost)
	require.NoError(t, err)
	accounts := newMemAccounts(model.User{ID: 9, Email: guardEmail, PasswordHash: hash, IsActive: true})
	clock := newFakeClock(guardStart)
	g := NewLoginGuard(GuardConfig{MaxFailedAttempts: 2, LockoutDuration: time.Hour}, accounts, &memAttempts{}, clock.Now, zerolog.Nop())

	_, err = g.Attempt(context.Background(), guardEmail, "x", guardIP)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = g.Attempt(context.Background(), guardEmail, "x", guardIP)
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 60, locked.RemainingMinutes)
}

func TestLoginGuard_AuditFailureDoesNotBlockLogin(t *testing.T) {
	g, _, attempts, _ := newGuardFixture(t, nil)
	attempts.err = errBoom

	_, err := g.Attempt(context.Background(), guardEmail, guardPassword, guardIP)
	assert.NoError(t, err)
}

func TestLoginGuard_StoreErrorIsWrapped(t *testing.T) {
	g, accounts, attempts, _ := newGuardFixture(t, nil)
	accounts.getErr = errBoom

	_, err := g.Attempt(context.Background(), guardEmail, guardPassword, guardIP)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, attempts.rows)
}

func TestLockedError_Message(t *testing.T) {
	err := &LockedError{RemainingMinutes: 3}
	assert.Contains(t, err.Error(), "3 minute")
	assert.True(t, errors.Is(err, ErrAccountLocked))
}
