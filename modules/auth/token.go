package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default lifetimes for the two credentials minted by this module.
const (
	DefaultMagicLinkTTL = 15 * time.Minute
	DefaultSessionTTL   = 24 * time.Hour
)

// secretBytes gives 256 bits of entropy per magic-link secret.
const secretBytes = 32

// Token is a single-use magic-link token. It is mutated exactly once, from
// unused to used, by a successful verification; after ExpiresAt it is
// logically dead regardless of state.
type Token struct {
	ID        uuid.UUID  `bson:"_id"`
	Email     string     `bson:"email"`
	Secret    string     `bson:"secret"`
	CreatedAt time.Time  `bson:"created_at"`
	ExpiresAt time.Time  `bson:"expires_at"`
	Used      bool       `bson:"used"`
	UsedAt    *time.Time `bson:"used_at,omitempty"`
}

// Expired reports whether the token is past its expiry at the given time.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// newSecret returns a URL-safe CSPRNG secret.
func newSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newToken builds an unused token for email with the given lifetime.
func newToken(email string, ttl time.Duration) (*Token, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Token{
		ID:        uuid.New(),
		Email:     email,
		Secret:    secret,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
