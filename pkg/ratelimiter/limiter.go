package ratelimiter

import "context"

// Limiter applies a fixed-window limit on top of a Store.
type Limiter struct {
	store Store
	cfg   Config
}

// New creates a limiter. Panics on a non-positive limit or window since
// that is a programming error, not a runtime condition.
func New(store Store, cfg Config) *Limiter {
	if store == nil {
		panic("ratelimiter: nil store")
	}
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		panic("ratelimiter: limit and window must be positive")
	}
	return &Limiter{store: store, cfg: cfg}
}

// Allow records a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.cfg.Window)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Limit:     l.cfg.Limit,
		Remaining: l.cfg.Limit - int(count),
		ResetAt:   resetAt,
	}, nil
}
