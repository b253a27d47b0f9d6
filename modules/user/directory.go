package user

import (
	"context"

	"github.com/google/uuid"
)

// Directory provides the user identity store. EnsureExists is idempotent:
// for a given email it always resolves to the same user id, creating the
// account on first use.
type Directory interface {
	EnsureExists(ctx context.Context, email string) (uuid.UUID, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
