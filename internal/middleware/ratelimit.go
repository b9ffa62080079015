package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Limiter is an in-memory fixed-window rate limiter. Each key gets a counter
// that resets when its window expires; expired counters are swept lazily on
// access, so no background goroutine is needed.
type Limiter struct {
	limit  int
	window time.Duration
	keyer  func(fiber.Ctx) string

	mu        sync.Mutex
	buckets   map[string]bucket
	nextSweep time.Time
}

type bucket struct {
	n       int
	resetAt time.Time
}

func NewLimiter(limit int, window time.Duration, keyer func(fiber.Ctx) string) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		keyer:   keyer,
		buckets: make(map[string]bucket),
	}
}

// take counts one request against the key and reports whether it fits in the
// current window.
func (l *Limiter) take(key string, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) {
		for k, b := range l.buckets {
			if now.After(b.resetAt) {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(5 * l.window)
	}

	b := l.buckets[key]
	if now.After(b.resetAt) {
		b = bucket{resetAt: now.Add(l.window)}
	}
	b.n++
	l.buckets[key] = b

	remaining = l.limit - b.n
	if remaining < 0 {
		remaining = 0
	}
	return b.n <= l.limit, remaining, b.resetAt
}

// Allow counts one request against the key. Exposed for tests.
func (l *Limiter) Allow(key string) bool {
	ok, _, _ := l.take(key, time.Now())
	return ok
}

// Handler returns the Fiber middleware enforcing this limiter.
func (l *Limiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		allowed, remaining, resetAt := l.take(l.keyer(c), time.Now())

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":       "RATE_LIMITED",
					"message":    "Too many requests. Try again in " + strconv.Itoa(retryAfter) + " seconds.",
					"retryAfter": retryAfter,
				},
			})
		}
		return c.Next()
	}
}

// ClientKey keys a request by client IP.
func ClientKey(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// VoterKey keys a request by the X-Voter-ID header, falling back to the
// client IP for anonymous requests.
func VoterKey(c fiber.Ctx) string {
	if id := c.Get("X-Voter-ID"); id != "" {
		return "voter:" + id
	}
	return "ip:" + c.IP()
}

// NewReadRateLimiter: 100 req/min per IP for reputation reads.
func NewReadRateLimiter() *Limiter {
	return NewLimiter(100, time.Minute, ClientKey)
}

// NewVoteRateLimiter: 10 req/min per voter for vote submissions.
func NewVoteRateLimiter() *Limiter {
	return NewLimiter(10, time.Minute, VoterKey)
}

// NewStatsRateLimiter: 10 req/min per IP for community stats.
func NewStatsRateLimiter() *Limiter {
	return NewLimiter(10, time.Minute, ClientKey)
}
