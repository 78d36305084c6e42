package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apierrors "github.com/hrygo/divinecanvas/server/internal/errors"
)

// RateLimiter provides per-key token bucket rate limiting.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*limiterEntry
	rps    rate.Limit
	burst  int
	idle   time.Duration
	now    func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter allowing rps requests per second
// per key with the given burst. Non-positive values fall back to 10 and 20.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &RateLimiter{
		limits: make(map[string]*limiterEntry),
		rps:    rate.Limit(rps),
		burst:  burst,
		idle:   10 * time.Minute,
		now:    time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if entry, ok := rl.limits[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	// Evict idle keys so the map stays bounded by active clients.
	for k, entry := range rl.limits {
		if now.Sub(entry.lastSeen) > rl.idle {
			delete(rl.limits, k)
		}
	}
	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.limits[key] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				apiErr := apierrors.RateLimitExceeded("rate limit exceeded")
				return c.JSON(apiErr.HTTPStatus(), apiErr)
			}
			return next(c)
		}
	}
}
