package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultReadPerMinute  = 100
	DefaultWritePerMinute = 20
	DefaultBurstSize      = 10

	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

// requestClass splits the budget so reads cannot starve payments and accruals
type requestClass uint8

const (
	classRead requestClass = iota
	classWrite
)

func (c requestClass) String() string {
	if c == classWrite {
		return "write"
	}
	return "read"
}

func classify(method string) requestClass {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return classRead
	}
	return classWrite
}

type bucketKey struct {
	userID uuid.UUID
	class  requestClass
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per principal and request class
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	limits  [2]int
	burst   int
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter with default budgets
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultReadPerMinute, DefaultWritePerMinute, DefaultBurstSize)
}

// NewRateLimiterWithConfig creates a limiter. Non-positive values fall back to the defaults.
func NewRateLimiterWithConfig(readPerMinute, writePerMinute, burst int) *RateLimiter {
	if readPerMinute <= 0 {
		readPerMinute = DefaultReadPerMinute
	}
	if writePerMinute <= 0 {
		writePerMinute = DefaultWritePerMinute
	}
	if burst <= 0 {
		burst = DefaultBurstSize
	}

	rl := &RateLimiter{
		buckets: make(map[bucketKey]*bucket),
		limits:  [2]int{classRead: readPerMinute, classWrite: writePerMinute},
		burst:   burst,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// take consumes one token. When the bucket is empty it returns the wait until the next token.
func (r *RateLimiter) take(key bucketKey) (remaining int, retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b, ok := r.buckets[key]
	if !ok {
		perSecond := rate.Limit(float64(r.limits[key.class]) / 60.0)
		b = &bucket{limiter: rate.NewLimiter(perSecond, r.burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return 0, delay
	}
	return int(math.Max(0, b.limiter.TokensAt(now))), 0
}

func (r *RateLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stopCh:
			return
		}
	}
}

func (r *RateLimiter) evictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0
	for key, b := range r.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(r.buckets, key)
			evicted++
		}
	}
	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Int("remaining", len(r.buckets)).Msg("Evicted idle rate limit buckets")
	}
	return evicted
}

// Stop ends the background sweep. Safe to call more than once.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RateLimitMiddleware limits authenticated principals. Reads and writes draw
// from separate budgets. Must run after Authenticate; anonymous requests pass through.
func RateLimitMiddleware(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil || principal.UserID == uuid.Nil {
				return next(c)
			}

			class := classify(c.Request().Method)
			remaining, wait := rl.take(bucketKey{userID: principal.UserID, class: class})

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limits[class]))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if wait > 0 {
				retryAfter := int(math.Ceil(wait.Seconds()))
				h.Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn().
					Str("user_id", principal.UserID.String()).
					Str("class", class.String()).
					Int("retry_after", retryAfter).
					Msg("Rate limit exceeded")

				return rateLimitError(c, "Too many requests. Retry after "+strconv.Itoa(retryAfter)+" seconds.")
			}

			return next(c)
		}
	}
}
