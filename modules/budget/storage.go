package budget

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists budget documents. Every operation is scoped to a user
// id; an id that exists under another user behaves as not found.
type Storage interface {
	CreateTransaction(ctx context.Context, t *Transaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error

	CreateRecurring(ctx context.Context, r *RecurringPayment) error
	ListRecurring(ctx context.Context, userID uuid.UUID) ([]RecurringPayment, error)
	DeleteRecurring(ctx context.Context, userID, id uuid.UUID) error

	CreateInstallment(ctx context.Context, p *InstallmentPlan) error
	ListInstallments(ctx context.Context, userID uuid.UUID) ([]InstallmentPlan, error)
	DeleteInstallment(ctx context.Context, userID, id uuid.UUID) error

	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
}
