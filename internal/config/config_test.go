package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_NAME", "ubs")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 14*24*time.Hour, cfg.BookingHorizon)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, "appointment.events", cfg.EventQueue)
	assert.False(t, cfg.EventsEnabled)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Cache.Methods["GET"])
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "PROD")
	t.Setenv("LOGIN_MAX_FAILED_ATTEMPTS", "3")
	t.Setenv("LOGIN_LOCKOUT_DURATION", "30m")
	t.Setenv("BOOKING_HORIZON", "168h")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("CACHE_METHODS", "get, head")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 3, cfg.MaxFailedAttempts)
	assert.Equal(t, 30*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.BookingHorizon)
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 7, cfg.RateLimit.Capacity)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Cache.Methods)
}

func TestValidate(t *testing.T) {
	// Test case 1: missing secret and database name
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_NAME")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	// Test case 2: threshold below one
	setRequired(t)
	t.Setenv("LOGIN_MAX_FAILED_ATTEMPTS", "0")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOGIN_MAX_FAILED_ATTEMPTS")

	// Test case 3: non-positive durations
	t.Setenv("LOGIN_MAX_FAILED_ATTEMPTS", "5")
	t.Setenv("BOOKING_HORIZON", "0s")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKING_HORIZON")
}

func TestRateLimitTTLFloor(t *testing.T) {
	setRequired(t)
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.TTL)
}
