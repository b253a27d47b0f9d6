package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/budgetbook/modules/auth"
	"github.com/dmitrymomot/budgetbook/modules/user"
	"github.com/dmitrymomot/budgetbook/pkg/jwt"
)

type failingDirectory struct{}

func (failingDirectory) EnsureExists(ctx context.Context, email string) (uuid.UUID, error) {
	return uuid.Nil, user.ErrUnavailable
}

func (failingDirectory) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, user.ErrUnavailable
}

type failingBackend struct{}

func (failingBackend) MintToken(ctx context.Context, uid uuid.UUID) (string, error) {
	return "", errors.New("identity provider down")
}

func newSessionFixture(t *testing.T, opts ...auth.SessionOption) (*auth.SessionIssuer, *user.MemoryDirectory, *jwt.Service) {
	t.Helper()

	users := user.NewMemoryDirectory()
	svc, err := jwt.NewFromString("session-secret")
	require.NoError(t, err)
	backend, err := auth.NewLocalBackend("identity-secret")
	require.NoError(t, err)

	return auth.NewSessionIssuer(users, svc, backend, opts...), users, svc
}

func TestSessionIssuerIssue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("mints a verifiable credential", func(t *testing.T) {
		t.Parallel()
		issuer, users, svc := newSessionFixture(t)

		sess, err := issuer.Issue(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", sess.Email)
		assert.NotEmpty(t, sess.Credential)
		assert.NotEmpty(t, sess.IdentityToken)

		var claims auth.SessionClaims
		require.NoError(t, svc.Parse(sess.Credential, &claims))
		assert.Equal(t, "user@example.com", claims.Email)
		assert.True(t, claims.Authenticated)
		assert.NotEmpty(t, claims.ID, "jti must be unique per issuance")

		u, err := users.GetByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), claims.Subject)
	})

	t.Run("provisions the account on first login", func(t *testing.T) {
		t.Parallel()
		issuer, users, _ := newSessionFixture(t)

		_, err := users.GetByEmail(ctx, "new@example.com")
		require.ErrorIs(t, err, user.ErrUserNotFound)

		_, err = issuer.Issue(ctx, "new@example.com")
		require.NoError(t, err)

		u, err := users.GetByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		assert.True(t, u.EmailVerified)
	})

	t.Run("repeat logins share the subject", func(t *testing.T) {
		t.Parallel()
		issuer, _, svc := newSessionFixture(t)

		first, err := issuer.Issue(ctx, "user@example.com")
		require.NoError(t, err)
		second, err := issuer.Issue(ctx, "user@example.com")
		require.NoError(t, err)

		var a, b auth.SessionClaims
		require.NoError(t, svc.Parse(first.Credential, &a))
		require.NoError(t, svc.Parse(second.Credential, &b))
		assert.Equal(t, a.Subject, b.Subject)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("applies the configured ttl", func(t *testing.T) {
		t.Parallel()
		issuer, _, _ := newSessionFixture(t, auth.WithSessionTTL(time.Hour))

		sess, err := issuer.Issue(ctx, "user@example.com")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
		assert.Equal(t, time.Hour, issuer.TTL())
	})

	t.Run("directory failure surfaces as provisioning error", func(t *testing.T) {
		t.Parallel()
		svc, err := jwt.NewFromString("session-secret")
		require.NoError(t, err)
		backend, err := auth.NewLocalBackend("identity-secret")
		require.NoError(t, err)
		issuer := auth.NewSessionIssuer(failingDirectory{}, svc, backend)

		_, err = issuer.Issue(ctx, "user@example.com")
		require.ErrorIs(t, err, auth.ErrAccountProvisioning)
	})

	t.Run("identity backend failure surfaces as provisioning error", func(t *testing.T) {
		t.Parallel()
		svc, err := jwt.NewFromString("session-secret")
		require.NoError(t, err)
		issuer := auth.NewSessionIssuer(user.NewMemoryDirectory(), svc, failingBackend{})

		_, err = issuer.Issue(ctx, "user@example.com")
		require.ErrorIs(t, err, auth.ErrAccountProvisioning)
	})
}

func TestIdentityBackends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uid := uuid.New()

	t.Run("both backends mint signed tokens", func(t *testing.T) {
		t.Parallel()
		prod, err := auth.NewProductionBackend("identity-secret")
		require.NoError(t, err)
		local, err := auth.NewLocalBackend("identity-secret")
		require.NoError(t, err)

		svc, err := jwt.NewFromString("identity-secret")
		require.NoError(t, err)

		for _, backend := range []auth.TokenBackend{prod, local} {
			token, err := backend.MintToken(ctx, uid)
			require.NoError(t, err)

			var claims jwt.StandardClaims
			require.NoError(t, svc.Parse(token, &claims))
			assert.Equal(t, uid.String(), claims.Subject)
			assert.NotEmpty(t, claims.Issuer)
			assert.Positive(t, claims.ExpiresAt)
		}
	})

	t.Run("backends differ only in issuer", func(t *testing.T) {
		t.Parallel()
		prod, err := auth.NewProductionBackend("identity-secret")
		require.NoError(t, err)
		local, err := auth.NewLocalBackend("identity-secret")
		require.NoError(t, err)

		svc, err := jwt.NewFromString("identity-secret")
		require.NoError(t, err)

		prodToken, err := prod.MintToken(ctx, uid)
		require.NoError(t, err)
		localToken, err := local.MintToken(ctx, uid)
		require.NoError(t, err)

		var prodClaims, localClaims jwt.StandardClaims
		require.NoError(t, svc.Parse(prodToken, &prodClaims))
		require.NoError(t, svc.Parse(localToken, &localClaims))
		assert.NotEqual(t, prodClaims.Issuer, localClaims.Issuer)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		t.Parallel()
		_, err := auth.NewProductionBackend("")
		require.Error(t, err)
		_, err = auth.NewLocalBackend("")
		require.Error(t, err)
	})
}
