package budget_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/budgetbook/modules/budget"
)

// memoryStorage is an in-memory Storage for tests.
type memoryStorage struct {
	mu            sync.Mutex
	transactions  map[uuid.UUID]budget.Transaction
	recurring     map[uuid.UUID]budget.RecurringPayment
	installments  map[uuid.UUID]budget.InstallmentPlan
	notifications map[uuid.UUID]budget.Notification
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		transactions:  make(map[uuid.UUID]budget.Transaction),
		recurring:     make(map[uuid.UUID]budget.RecurringPayment),
		installments:  make(map[uuid.UUID]budget.InstallmentPlan),
		notifications: make(map[uuid.UUID]budget.Notification),
	}
}

func (s *memoryStorage) CreateTransaction(ctx context.Context, t *budget.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.ID] = *t
	return nil
}

func (s *memoryStorage) ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]budget.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []budget.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && !t.Date.Before(from) && t.Date.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryStorage) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return budget.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *memoryStorage) CreateRecurring(ctx context.Context, r *budget.RecurringPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurring[r.ID] = *r
	return nil
}

func (s *memoryStorage) ListRecurring(ctx context.Context, userID uuid.UUID) ([]budget.RecurringPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []budget.RecurringPayment
	for _, r := range s.recurring {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStorage) DeleteRecurring(ctx context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurring[id]
	if !ok || r.UserID != userID {
		return budget.ErrNotFound
	}
	delete(s.recurring, id)
	return nil
}

func (s *memoryStorage) CreateInstallment(ctx context.Context, p *budget.InstallmentPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installments[p.ID] = *p
	return nil
}

func (s *memoryStorage) ListInstallments(ctx context.Context, userID uuid.UUID) ([]budget.InstallmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []budget.InstallmentPlan
	for _, p := range s.installments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memoryStorage) DeleteInstallment(ctx context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.installments[id]
	if !ok || p.UserID != userID {
		return budget.ErrNotFound
	}
	delete(s.installments, id)
	return nil
}

func (s *memoryStorage) CreateNotification(ctx context.Context, n *budget.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = *n
	return nil
}

func (s *memoryStorage) ListNotifications(ctx context.Context, userID uuid.UUID) ([]budget.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []budget.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memoryStorage) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return budget.ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

var _ budget.Storage = (*memoryStorage)(nil)

func TestServiceAddTransaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uid := uuid.New()

	t.Run("stores a valid entry", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())

		tx, err := svc.AddTransaction(ctx, uid, -2500, "groceries", "weekly shop", date(2026, time.March))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, tx.ID)
		assert.EqualValues(t, -2500, tx.Amount)

		list, err := svc.Transactions(ctx, uid, 2026, time.March)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())
		_, err := svc.AddTransaction(ctx, uid, 0, "groceries", "", date(2026, time.March))
		require.ErrorIs(t, err, budget.ErrInvalidInput)
	})

	t.Run("rejects missing category", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())
		_, err := svc.AddTransaction(ctx, uid, 100, "", "", date(2026, time.March))
		require.ErrorIs(t, err, budget.ErrInvalidInput)
	})

	t.Run("defaults a zero date to now", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())
		tx, err := svc.AddTransaction(ctx, uid, 100, "salary", "", time.Time{})
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), tx.Date, 5*time.Second)
	})
}

func TestServiceAddRecurring(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uid := uuid.New()

	t.Run("validates day of month", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())
		for _, day := range []int{0, 32, -1} {
			_, err := svc.AddRecurring(ctx, uid, "rent", 100000, day, date(2026, time.January), nil)
			require.ErrorIs(t, err, budget.ErrInvalidInput, day)
		}
	})

	t.Run("rejects end before start", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())
		end := date(2025, time.December)
		_, err := svc.AddRecurring(ctx, uid, "rent", 100000, 1, date(2026, time.January), &end)
		require.ErrorIs(t, err, budget.ErrInvalidInput)
	})
}

func TestServiceAddInstallment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uid := uuid.New()

	t.Run("creates a notification alongside the plan", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())

		p, err := svc.AddInstallment(ctx, uid, "laptop", 120000, 12, date(2026, time.February))
		require.NoError(t, err)
		assert.Equal(t, 12, p.Months)

		notifications, err := svc.Notifications(ctx, uid)
		require.NoError(t, err)
		require.Len(t, notifications, 1)
		assert.Contains(t, notifications[0].Message, "laptop")
		assert.False(t, notifications[0].Read)
	})

	t.Run("rejects non-positive months", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())
		_, err := svc.AddInstallment(ctx, uid, "laptop", 120000, 0, date(2026, time.February))
		require.ErrorIs(t, err, budget.ErrInvalidInput)
	})
}

func TestServiceMonthlySummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uid := uuid.New()
	svc := budget.NewService(newMemoryStorage())

	// March 2026: salary +500000, groceries -20000, rent recurring -100000
	// active from January, and a 12000 plan over 3 months started in March
	// (first share 4000).
	_, err := svc.AddTransaction(ctx, uid, 500000, "salary", "", date(2026, time.March))
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, uid, -20000, "groceries", "", date(2026, time.March))
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, uid, -99999, "vacation", "", date(2026, time.April))
	require.NoError(t, err)
	_, err = svc.AddRecurring(ctx, uid, "rent", 100000, 1, date(2026, time.January), nil)
	require.NoError(t, err)
	_, err = svc.AddInstallment(ctx, uid, "phone", 12000, 3, date(2026, time.March))
	require.NoError(t, err)

	sum, err := svc.MonthlySummary(ctx, uid, 2026, time.March)
	require.NoError(t, err)

	assert.Equal(t, 2026, sum.Year)
	assert.Equal(t, 3, sum.Month)
	assert.EqualValues(t, 500000, sum.Income)
	assert.EqualValues(t, -20000, sum.Expenses, "April entry must not leak into March")
	assert.EqualValues(t, 100000, sum.Recurring)
	assert.EqualValues(t, 4000, sum.Installments)
	assert.EqualValues(t, 500000-20000-100000-4000, sum.Net)

	t.Run("months before the plans are clean", func(t *testing.T) {
		t.Parallel()
		sum, err := svc.MonthlySummary(ctx, uid, 2025, time.June)
		require.NoError(t, err)
		assert.Zero(t, sum.Income)
		assert.Zero(t, sum.Expenses)
		assert.Zero(t, sum.Recurring)
		assert.Zero(t, sum.Installments)
		assert.Zero(t, sum.Net)
	})

	t.Run("users are isolated", func(t *testing.T) {
		t.Parallel()
		other, err := svc.MonthlySummary(ctx, uuid.New(), 2026, time.March)
		require.NoError(t, err)
		assert.Zero(t, other.Net)
	})
}

func TestServiceRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uid := uuid.New()

	t.Run("removes own entries", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())
		tx, err := svc.AddTransaction(ctx, uid, 100, "misc", "", date(2026, time.March))
		require.NoError(t, err)

		require.NoError(t, svc.RemoveTransaction(ctx, uid, tx.ID))
		list, err := svc.Transactions(ctx, uid, 2026, time.March)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("cannot remove another user's entry", func(t *testing.T) {
		t.Parallel()
		svc := budget.NewService(newMemoryStorage())
		tx, err := svc.AddTransaction(ctx, uid, 100, "misc", "", date(2026, time.March))
		require.NoError(t, err)

		err = svc.RemoveTransaction(ctx, uuid.New(), tx.ID)
		require.ErrorIs(t, err, budget.ErrNotFound)
	})
}
