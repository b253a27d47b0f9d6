package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/budgetbook/modules/user"
	"github.com/dmitrymomot/budgetbook/pkg/jwt"
	"github.com/dmitrymomot/budgetbook/pkg/logger"
)

// SessionCookieName is the cookie carrying the session credential.
const SessionCookieName = "session"

// SessionClaims is the payload of the stateless session credential. No
// server-side record backs it; its lifecycle is the signature plus the exp
// claim.
type SessionClaims struct {
	Email         string `json:"email"`
	Authenticated bool   `json:"authenticated"`
	jwt.StandardClaims
}

// Session is the result of a successful verification: the signed session
// credential, the identity-provider token for the client SDK, and the
// address both were issued for.
type Session struct {
	Credential    string
	IdentityToken string
	Email         string
	ExpiresAt     time.Time
}

// SessionIssuer provisions the user identity and mints session credentials.
type SessionIssuer struct {
	users    user.Directory
	svc      *jwt.Service
	identity TokenBackend
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// SessionOption configures a SessionIssuer during construction.
type SessionOption func(*SessionIssuer)

// WithSessionLogger sets a custom logger for the session issuer.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *SessionIssuer) { s.logger = l }
}

// WithSessionTTL sets the session credential lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionIssuer) { s.ttl = ttl }
}

// withSessionClock overrides the time source, for tests.
func withSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionIssuer) { s.now = now }
}

// NewSessionIssuer creates a session issuer.
func NewSessionIssuer(users user.Directory, svc *jwt.Service, identity TokenBackend, opts ...SessionOption) *SessionIssuer {
	s := &SessionIssuer{
		users:    users,
		svc:      svc,
		identity: identity,
		ttl:      DefaultSessionTTL,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// TTL returns the configured session lifetime.
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue provisions the account for a verified email and mints the session
// credential plus the identity-provider token. The consumed magic-link
// token is not rolled back on failure: the user restarts the flow with a
// fresh token, which is safe and keeps the replay window closed.
func (s *SessionIssuer) Issue(ctx context.Context, address string) (*Session, error) {
	uid, err := s.users.EnsureExists(ctx, address)
	if err != nil {
		s.logger.Error("account provisioning failed",
			logger.Email(address),
			logger.Error(err),
			logger.Component("auth.session"),
		)
		return nil, errors.Join(ErrAccountProvisioning, err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	credential, err := s.svc.Generate(SessionClaims{
		Email:         address,
		Authenticated: true,
		StandardClaims: jwt.StandardClaims{
			ID:        uuid.NewString(),
			Subject:   uid.String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	})
	if err != nil {
		return nil, errors.Join(ErrAccountProvisioning, err)
	}

	identityToken, err := s.identity.MintToken(ctx, uid)
	if err != nil {
		s.logger.Error("identity token minting failed",
			logger.UserID(uid.String()),
			logger.Error(err),
			logger.Component("auth.session"),
		)
		return nil, errors.Join(ErrAccountProvisioning, err)
	}

	return &Session{
		Credential:    credential,
		IdentityToken: identityToken,
		Email:         address,
		ExpiresAt:     expiresAt,
	}, nil
}
