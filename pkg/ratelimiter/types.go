package ratelimiter

import (
	"context"
	"time"
)

// Config defines a fixed-window rate limit.
type Config struct {
	Limit  int           // Limit is the maximum number of requests per window.
	Window time.Duration // Window is the length of the counting window.
}

// Result describes the outcome of a limiter check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the request fits within the limit.
func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long the caller should wait before retrying.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store counts requests per key within a window. Implementations must be
// safe for concurrent use.
type Store interface {
	// Incr increments the counter for key, creating it with the window's
	// expiry on first use, and returns the post-increment count together
	// with the window reset time.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}
