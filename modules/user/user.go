package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account identity. Accounts are created lazily on the
// first successful magic-link verification, so EmailVerified is always true
// for stored users.
type User struct {
	ID            uuid.UUID `bson:"_id"`
	Email         string    `bson:"email"`
	EmailVerified bool      `bson:"email_verified"`
	CreatedAt     time.Time `bson:"created_at"`
}
