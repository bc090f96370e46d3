package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ubs-backend/internal/config"
	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/utils"
)

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func newCtx(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequestID_GeneratesNew(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/")
	var seen string
	h := RequestID()(func(c echo.Context) error {
		seen, _ = c.Get(CtxRequestID).(string)
		return ok(c)
	})
	require.NoError(t, h(c))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_PreservesExisting(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/")
	c.Request().Header.Set(RequestIDHeader, "my-custom-id")
	require.NoError(t, RequestID()(ok)(c))
	assert.Equal(t, "my-custom-id", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "my-custom-id", c.Get(CtxRequestID))
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	c, _ := newCtx(http.MethodGet, "/v1/health")
	c.Set(CtxRequestID, "rid-1")

	require.NoError(t, Logger(logger)(ok)(c))
	out := buf.String()
	assert.Contains(t, out, `"request_id":"rid-1"`)
	assert.Contains(t, out, `"path":"/v1/health"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"level":"info"`)
}

func TestLogger_ErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newCtx(http.MethodGet, "/boom")
	h := Logger(zerolog.New(&buf))(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})
	assert.Error(t, h(c))
	assert.Contains(t, buf.String(), `"status":500`)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestRecovery_CatchesPanic(t *testing.T) {
	var buf bytes.Buffer
	c, _ := newCtx(http.MethodGet, "/")
	h := Recovery(zerolog.New(&buf))(func(echo.Context) error { panic("kaboom") })

	err := h(c)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.Contains(t, buf.String(), "kaboom")
}

func TestJWTAuth(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", 77, "PROFISSIONAL", time.Minute)
	require.NoError(t, err)

	// Test case 1: missing header
	c, rec := newCtx(http.MethodGet, "/")
	require.NoError(t, JWTAuth("secret")(ok)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Test case 2: wrong secret
	c, rec = newCtx(http.MethodGet, "/")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	require.NoError(t, JWTAuth("other")(ok)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Test case 3: valid token sets identity
	c, rec = newCtx(http.MethodGet, "/")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	require.NoError(t, JWTAuth("secret")(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(77), c.Get(CtxUserID))
	role, known := CurrentRole(c)
	assert.True(t, known)
	assert.Equal(t, model.RoleProfissional, role)
}

func TestRequireRole(t *testing.T) {
	mw := RequireCapability(model.Role.CanManageTeams)

	c, rec := newCtx(http.MethodGet, "/")
	c.Set(CtxRole, "RECEPCAO")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx(http.MethodGet, "/")
	c.Set(CtxRole, "USER")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newCtx(http.MethodGet, "/")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCurrentUserID(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/")
	assert.Equal(t, "anon", currentUserID(c))
	c.Set(CtxUserID, uint64(12))
	assert.Equal(t, "12", currentUserID(c))
}

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter(60, 2)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"), "buckets are per address")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.1.1.1"), "one token refills per second at 60/min")

	now = now.Add(time.Hour)
	l.Allow("3.3.3.3")
	l.mu.Lock()
	_, kept := l.visitors["2.2.2.2"]
	l.mu.Unlock()
	assert.False(t, kept, "idle visitors are swept")
}

func TestLoginLimiterMiddleware(t *testing.T) {
	l := NewLoginLimiter(60, 1)
	mw := l.Middleware()

	c, rec := newCtx(http.MethodPost, "/v1/auth/login")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx(http.MethodPost, "/v1/auth/login")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestTokenBucket(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "rl",
	}
	mw := NewTokenBucket(cfg, rdb, zerolog.Nop())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		c, rec := newCtx(http.MethodPost, "/v1/auth/login")
		require.NoError(t, mw(ok)(c))
		codes = append(codes, rec.Code)
		if i == 2 {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, zerolog.Nop())
	for i := 0; i < 3; i++ {
		c, rec := newCtx(http.MethodGet, "/")
		require.NoError(t, mw(ok)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRedisCacheHitAndPurge(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
	}
	mw := NewRedisCache(cfg, rdb, zerolog.Nop())
	calls := 0
	h := mw(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	})

	c, rec := newCtx(http.MethodGet, "/v1/appointments/specialties")
	require.NoError(t, h(c))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	c, rec = newCtx(http.MethodGet, "/v1/appointments/specialties")
	require.NoError(t, h(c))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":1}`, rec.Body.String())
	assert.Equal(t, 1, calls)

	require.NoError(t, PurgeCache(c.Request().Context(), rdb, cfg))
	c, rec = newCtx(http.MethodGet, "/v1/appointments/specialties")
	require.NoError(t, h(c))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, okDecode := decodePayload(bs)
	require.True(t, okDecode)
	assert.Equal(t, 200, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, okDecode = decodePayload([]byte{0, 1})
	assert.False(t, okDecode)
}
