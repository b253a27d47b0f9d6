package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory implements Directory in process memory, for tests and
// local development without a database.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by email
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]*User)}
}

func (d *MemoryDirectory) EnsureExists(ctx context.Context, email string) (uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u, ok := d.users[email]; ok {
		return u.ID, nil
	}

	u := &User{
		ID:            uuid.New(),
		Email:         email,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}
	d.users[email] = u

	return u.ID, nil
}

func (d *MemoryDirectory) GetByEmail(ctx context.Context, email string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	copy := *u
	return &copy, nil
}

var _ Directory = (*MemoryDirectory)(nil)
