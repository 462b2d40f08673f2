package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(rl *RateLimiter, at time.Time) *time.Time {
	now := at
	rl.now = func() time.Time { return now }
	return &now
}

func TestRateLimiter_Take(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 6, 3)
	defer rl.Stop()
	now := fixedClock(rl, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC))

	key := bucketKey{userID: uuid.New(), class: classWrite}
	for i := 0; i < 3; i++ {
		remaining, wait := rl.take(key)
		assert.Zero(t, wait, "request %d", i+1)
		assert.Equal(t, 2-i, remaining)
	}

	_, wait := rl.take(key)
	assert.InDelta(t, float64(10*time.Second), float64(wait), float64(time.Millisecond), "6 per minute refills one token every 10s")

	*now = now.Add(10*time.Second + time.Millisecond)
	_, wait = rl.take(key)
	assert.Zero(t, wait)
}

func TestRateLimiter_SeparateBuckets(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 60, 1)
	defer rl.Stop()
	fixedClock(rl, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC))

	alice := uuid.New()
	_, wait := rl.take(bucketKey{userID: alice, class: classRead})
	require.Zero(t, wait)
	_, wait = rl.take(bucketKey{userID: alice, class: classRead})
	assert.Positive(t, wait)

	_, wait = rl.take(bucketKey{userID: alice, class: classWrite})
	assert.Zero(t, wait, "writes have their own budget")
	_, wait = rl.take(bucketKey{userID: uuid.New(), class: classRead})
	assert.Zero(t, wait, "other users are unaffected")
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiterWithConfig(0, 0, 0)
	defer rl.Stop()
	now := fixedClock(rl, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC))

	rl.take(bucketKey{userID: uuid.New(), class: classRead})
	*now = now.Add(limiterIdleTTL / 2)
	rl.take(bucketKey{userID: uuid.New(), class: classWrite})

	*now = now.Add(limiterIdleTTL/2 + time.Second)
	assert.Equal(t, 1, rl.evictIdle())
	assert.Len(t, rl.buckets, 1)
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiterWithConfig(-1, 0, 0)
	defer rl.Stop()

	assert.Equal(t, DefaultReadPerMinute, rl.limits[classRead])
	assert.Equal(t, DefaultWritePerMinute, rl.limits[classWrite])
	assert.Equal(t, DefaultBurstSize, rl.burst)
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter()
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, classRead, classify(http.MethodGet))
	assert.Equal(t, classRead, classify(http.MethodHead))
	assert.Equal(t, classWrite, classify(http.MethodPost))
	assert.Equal(t, classWrite, classify(http.MethodDelete))
}

func TestRateLimitMiddleware_SkipsAnonymous(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(1, 1, 1)
	defer rl.Stop()

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "OK") }

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

		require.NoError(t, RateLimitMiddleware(rl)(handler)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitMiddleware_LimitsPayments(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(100, 10, 2)
	defer rl.Stop()
	fixedClock(rl, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC))

	principal := &Principal{UserID: uuid.New(), Role: domain.RoleClient}
	handler := func(c echo.Context) error { return c.String(http.StatusCreated, "OK") }

	send := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1/loans/x/payments", nil)
		req = req.WithContext(WithPrincipal(req.Context(), principal))
		rec := httptest.NewRecorder()
		require.NoError(t, RateLimitMiddleware(rl)(handler)(e.NewContext(req, rec)))
		return rec
	}

	for i := 0; i < 2; i++ {
		rec := send(http.MethodPost)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := send(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "6", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate-limit")

	rec = send(http.MethodGet)
	assert.Equal(t, http.StatusCreated, rec.Code, "reads still allowed")
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
}
