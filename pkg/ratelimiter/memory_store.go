package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore implements Store using in-process counters. Suitable for
// single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// Incr implements Store. Expired windows are replaced lazily on access, so
// the map stays bounded by the active key set.
func (ms *MemoryStore) Incr(ctx context.Context, key string, d time.Duration) (int64, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	w, ok := ms.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		ms.windows[key] = w
	}
	w.count++

	return w.count, w.resetAt, nil
}
