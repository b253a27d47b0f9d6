package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTokenStore implements TokenStore in process memory, for tests and
// local development. All operations run under a single mutex, which makes
// MarkUsed a compare-and-set.
type MemoryTokenStore struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*Token
	bySecret map[string]*Token
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		byID:     make(map[uuid.UUID]*Token),
		bySecret: make(map[string]*Token),
	}
}

func (s *MemoryTokenStore) Invalidate(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.byID {
		if t.Email == email && !t.Used {
			delete(s.byID, id)
			delete(s.bySecret, t.Secret)
		}
	}
	return nil
}

func (s *MemoryTokenStore) Create(ctx context.Context, email string, ttl time.Duration) (*Token, error) {
	t, err := newToken(email, ttl)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[t.ID] = t
	s.bySecret[t.Secret] = t

	copy := *t
	return &copy, nil
}

func (s *MemoryTokenStore) LookupBySecret(ctx context.Context, secret string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.bySecret[secret]
	if !ok {
		return nil, ErrTokenNotFound
	}

	copy := *t
	return &copy, nil
}

func (s *MemoryTokenStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return false, ErrTokenNotFound
	}
	if t.Used {
		return false, nil
	}

	t.Used = true
	t.UsedAt = &usedAt
	return true, nil
}

func (s *MemoryTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, t := range s.byID {
		if t.Expired(now) {
			delete(s.byID, id)
			delete(s.bySecret, t.Secret)
			removed++
		}
	}
	return removed, nil
}

var _ TokenStore = (*MemoryTokenStore)(nil)
