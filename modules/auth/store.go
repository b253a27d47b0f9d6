package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenStore persists issued magic-link tokens. Implementations are shared
// mutable state across concurrent requests and must make MarkUsed an atomic
// compare-and-set; a plain read-then-write would let a double-clicked link
// verify twice.
type TokenStore interface {
	// Invalidate removes every unused token for email. Best effort; runs
	// before Create so at most one live token exists per address.
	Invalidate(ctx context.Context, email string) error

	// Create generates and stores a new unused token for email.
	Create(ctx context.Context, email string, ttl time.Duration) (*Token, error)

	// LookupBySecret returns the token carrying the given secret, or
	// ErrTokenNotFound.
	LookupBySecret(ctx context.Context, secret string) (*Token, error)

	// MarkUsed atomically transitions the token from unused to used and
	// records usedAt. It reports whether this call performed the
	// transition; observing an already-used token is not an error, the
	// accept/reject decision belongs to the Verifier.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)

	// DeleteExpired removes tokens whose expiry has passed. Exists only to
	// bound storage growth; expiry is independently re-checked at
	// verification time.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
