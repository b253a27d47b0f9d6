package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/budgetbook/pkg/jwt"
)

// TokenBackend mints the secondary identity-provider token returned to the
// client SDK alongside the session credential. The token is opaque to this
// module; it is passed through to the client unchanged.
type TokenBackend interface {
	MintToken(ctx context.Context, uid uuid.UUID) (string, error)
}

const (
	identityIssuerProduction = "budgetbook-identity"
	identityIssuerLocal      = "budgetbook-identity-dev"
	identityAudience         = "budgetbook-client"
	identityTokenTTL         = time.Hour
)

type identityClaims struct {
	jwt.StandardClaims
}

// ProductionBackend mints identity tokens signed with the identity
// provider's shared secret.
type ProductionBackend struct {
	svc *jwt.Service
}

// NewProductionBackend creates the production identity backend.
func NewProductionBackend(secret string) (*ProductionBackend, error) {
	svc, err := jwt.NewFromString(secret)
	if err != nil {
		return nil, fmt.Errorf("identity backend: %w", err)
	}
	return &ProductionBackend{svc: svc}, nil
}

func (b *ProductionBackend) MintToken(ctx context.Context, uid uuid.UUID) (string, error) {
	return mintIdentityToken(b.svc, identityIssuerProduction, uid)
}

// LocalBackend mints identity tokens for local development. The tokens are
// signed with a real HMAC exactly like production ones; only the issuer
// claim and the secret source differ, so no environment runs with a weaker
// trust boundary.
type LocalBackend struct {
	svc *jwt.Service
}

// NewLocalBackend creates the development identity backend.
func NewLocalBackend(secret string) (*LocalBackend, error) {
	svc, err := jwt.NewFromString(secret)
	if err != nil {
		return nil, fmt.Errorf("identity backend: %w", err)
	}
	return &LocalBackend{svc: svc}, nil
}

func (b *LocalBackend) MintToken(ctx context.Context, uid uuid.UUID) (string, error) {
	return mintIdentityToken(b.svc, identityIssuerLocal, uid)
}

func mintIdentityToken(svc *jwt.Service, issuer string, uid uuid.UUID) (string, error) {
	now := time.Now()
	return svc.Generate(identityClaims{
		StandardClaims: jwt.StandardClaims{
			ID:        uuid.NewString(),
			Subject:   uid.String(),
			Issuer:    issuer,
			Audience:  identityAudience,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(identityTokenTTL).Unix(),
		},
	})
}

var (
	_ TokenBackend = (*ProductionBackend)(nil)
	_ TokenBackend = (*LocalBackend)(nil)
)
