package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/budgetbook/modules/auth"
)

func TestMemoryTokenStoreCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := auth.NewMemoryTokenStore()

	tok, err := store.Create(ctx, "user@example.com", 15*time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tok.ID)
	assert.Equal(t, "user@example.com", tok.Email)
	assert.NotEmpty(t, tok.Secret)
	assert.False(t, tok.Used)
	assert.Nil(t, tok.UsedAt)
	assert.True(t, tok.ExpiresAt.After(tok.CreatedAt))

	other, err := store.Create(ctx, "user@example.com", 15*time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, tok.Secret, other.Secret, "secrets must be unique per token")
}

func TestMemoryTokenStoreLookupBySecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := auth.NewMemoryTokenStore()

	tok, err := store.Create(ctx, "user@example.com", 15*time.Minute)
	require.NoError(t, err)

	t.Run("finds existing token", func(t *testing.T) {
		t.Parallel()
		found, err := store.LookupBySecret(ctx, tok.Secret)
		require.NoError(t, err)
		assert.Equal(t, tok.ID, found.ID)
	})

	t.Run("unknown secret", func(t *testing.T) {
		t.Parallel()
		_, err := store.LookupBySecret(ctx, "nope")
		require.ErrorIs(t, err, auth.ErrTokenNotFound)
	})
}

func TestMemoryTokenStoreMarkUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("first call wins, second does not", func(t *testing.T) {
		t.Parallel()
		store := auth.NewMemoryTokenStore()
		tok, err := store.Create(ctx, "user@example.com", 15*time.Minute)
		require.NoError(t, err)

		won, err := store.MarkUsed(ctx, tok.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, won)

		won, err = store.MarkUsed(ctx, tok.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, won, "already-used is a lost race, not an error")
	})

	t.Run("records usedAt", func(t *testing.T) {
		t.Parallel()
		store := auth.NewMemoryTokenStore()
		tok, err := store.Create(ctx, "user@example.com", 15*time.Minute)
		require.NoError(t, err)

		usedAt := time.Now()
		_, err = store.MarkUsed(ctx, tok.ID, usedAt)
		require.NoError(t, err)

		found, err := store.LookupBySecret(ctx, tok.Secret)
		require.NoError(t, err)
		assert.True(t, found.Used)
		require.NotNil(t, found.UsedAt)
		assert.True(t, found.UsedAt.Equal(usedAt))
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		store := auth.NewMemoryTokenStore()
		_, err := store.MarkUsed(ctx, uuid.New(), time.Now())
		require.ErrorIs(t, err, auth.ErrTokenNotFound)
	})

	t.Run("exactly one concurrent caller wins", func(t *testing.T) {
		t.Parallel()
		store := auth.NewMemoryTokenStore()
		tok, err := store.Create(ctx, "user@example.com", 15*time.Minute)
		require.NoError(t, err)

		const n = 20
		var wins int32
		var mu sync.Mutex
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				won, err := store.MarkUsed(ctx, tok.ID, time.Now())
				assert.NoError(t, err)
				if won {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, wins)
	})
}

func TestMemoryTokenStoreInvalidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("removes unused tokens for the email", func(t *testing.T) {
		t.Parallel()
		store := auth.NewMemoryTokenStore()
		tok, err := store.Create(ctx, "user@example.com", 15*time.Minute)
		require.NoError(t, err)

		require.NoError(t, store.Invalidate(ctx, "user@example.com"))

		_, err = store.LookupBySecret(ctx, tok.Secret)
		require.ErrorIs(t, err, auth.ErrTokenNotFound)
	})

	t.Run("leaves other emails untouched", func(t *testing.T) {
		t.Parallel()
		store := auth.NewMemoryTokenStore()
		tok, err := store.Create(ctx, "other@example.com", 15*time.Minute)
		require.NoError(t, err)

		require.NoError(t, store.Invalidate(ctx, "user@example.com"))

		_, err = store.LookupBySecret(ctx, tok.Secret)
		require.NoError(t, err)
	})

	t.Run("leaves used tokens in place", func(t *testing.T) {
		t.Parallel()
		store := auth.NewMemoryTokenStore()
		tok, err := store.Create(ctx, "user@example.com", 15*time.Minute)
		require.NoError(t, err)
		_, err = store.MarkUsed(ctx, tok.ID, time.Now())
		require.NoError(t, err)

		require.NoError(t, store.Invalidate(ctx, "user@example.com"))

		found, err := store.LookupBySecret(ctx, tok.Secret)
		require.NoError(t, err)
		assert.True(t, found.Used)
	})
}

func TestMemoryTokenStoreDeleteExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := auth.NewMemoryTokenStore()

	expired, err := store.Create(ctx, "user@example.com", -time.Minute)
	require.NoError(t, err)
	live, err := store.Create(ctx, "user@example.com", 15*time.Minute)
	require.NoError(t, err)

	removed, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = store.LookupBySecret(ctx, expired.Secret)
	require.ErrorIs(t, err, auth.ErrTokenNotFound)
	_, err = store.LookupBySecret(ctx, live.Secret)
	require.NoError(t, err)
}
