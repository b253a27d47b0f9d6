package auth

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/budgetbook/pkg/logger"
)

// Sweeper periodically deletes expired tokens to bound storage growth.
// Correctness never depends on it: expiry is re-checked at verification
// time, and the mongo store additionally carries a TTL index.
type Sweeper struct {
	store    TokenStore
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper running at the given interval.
func NewSweeper(store TokenStore, interval time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sweeper{store: store, interval: interval, logger: log}
}

// Run blocks until the context is canceled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.DeleteExpired(ctx, time.Now())
			if err != nil {
				s.logger.Warn("token sweep failed",
					logger.Error(err),
					logger.Component("auth.sweeper"),
				)
				continue
			}
			if removed > 0 {
				s.logger.Debug("swept expired tokens",
					slog.Int64("removed", removed),
					logger.Component("auth.sweeper"),
				)
			}
		}
	}
}
