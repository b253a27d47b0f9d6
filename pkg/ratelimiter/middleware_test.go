package ratelimiter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/budgetbook/pkg/ratelimiter"
)

type failingStore struct{}

func (failingStore) Incr(ctx context.Context, key string, d time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("store down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func ipKey(r *http.Request) string { return r.RemoteAddr }

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("sets rate limit headers", func(t *testing.T) {
		t.Parallel()
		l := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{Limit: 2, Window: time.Minute})
		h := ratelimiter.Middleware(l, ipKey)(okHandler())

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("blocks requests over the limit", func(t *testing.T) {
		t.Parallel()
		l := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{Limit: 1, Window: time.Minute})
		h := ratelimiter.Middleware(l, ipKey)(okHandler())

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("fails open when the store errors", func(t *testing.T) {
		t.Parallel()
		l := ratelimiter.New(failingStore{}, ratelimiter.Config{Limit: 1, Window: time.Minute})
		h := ratelimiter.Middleware(l, ipKey)(okHandler())

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("passes through on empty key", func(t *testing.T) {
		t.Parallel()
		l := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{Limit: 1, Window: time.Minute})
		h := ratelimiter.Middleware(l, func(*http.Request) string { return "" })(okHandler())

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
		}
	})
}
