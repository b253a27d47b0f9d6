package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/budgetbook/pkg/logger"
)

// Verifier consumes magic-link tokens. With a zero replay grace window
// (the default in every environment) each token authorizes exactly one
// successful verification; concurrent attempts are resolved by the store's
// compare-and-set, first winner takes the session.
type Verifier struct {
	store       TokenStore
	replayGrace time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// VerifierOption configures a Verifier during construction.
type VerifierOption func(*Verifier)

// WithVerifierLogger sets a custom logger for the verifier.
func WithVerifierLogger(l *slog.Logger) VerifierOption {
	return func(v *Verifier) { v.logger = l }
}

// WithReplayGraceWindow allows an already-consumed token to verify again
// within the window. A deliberate relaxation of single-use for double-click
// tolerance in lower environments; keep it at zero in production.
func WithReplayGraceWindow(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.replayGrace = d }
}

// withClock overrides the time source, for tests.
func withClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier creates a token verifier.
func NewVerifier(store TokenStore, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Verify resolves a presented secret to the email it proves ownership of,
// consuming the token. Store failures fail closed as ErrTokenNotFound so a
// degraded store can never hand out sessions.
func (v *Verifier) Verify(ctx context.Context, secret string) (string, error) {
	if secret == "" {
		return "", ErrTokenNotFound
	}

	t, err := v.store.LookupBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrTokenNotFound
		}
		v.logger.Error("token lookup failed",
			logger.Error(err),
			logger.Component("auth.verifier"),
		)
		return "", ErrTokenNotFound
	}

	now := v.now()

	if t.Used {
		if v.withinGrace(t, now) {
			return t.Email, nil
		}
		return "", ErrTokenAlreadyUsed
	}

	if t.Expired(now) {
		return "", ErrTokenExpired
	}

	won, err := v.store.MarkUsed(ctx, t.ID, now)
	if err != nil {
		v.logger.Error("token consume failed",
			logger.Error(err),
			logger.Component("auth.verifier"),
		)
		return "", ErrTokenNotFound
	}
	if !won {
		// Lost the race to a concurrent verification of the same secret.
		if v.replayGrace > 0 {
			return t.Email, nil
		}
		return "", ErrTokenAlreadyUsed
	}

	return t.Email, nil
}

func (v *Verifier) withinGrace(t *Token, now time.Time) bool {
	return v.replayGrace > 0 && t.UsedAt != nil && now.Sub(*t.UsedAt) < v.replayGrace
}
