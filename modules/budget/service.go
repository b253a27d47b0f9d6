package budget

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/budgetbook/pkg/logger"
)

// Service validates input and computes dashboard aggregates on top of
// Storage.
type Service struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*Service)

// WithServiceLogger sets a custom logger for the service.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a budget service.
func NewService(storage Storage, opts ...ServiceOption) *Service {
	s := &Service{
		storage: storage,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AddTransaction records a dated entry for the user.
func (s *Service) AddTransaction(ctx context.Context, userID uuid.UUID, amount int64, category, note string, date time.Time) (*Transaction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be non-zero", ErrInvalidInput)
	}
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if date.IsZero() {
		date = s.now()
	}

	t := &Transaction{
		ID:       uuid.New(),
		UserID:   userID,
		Amount:   amount,
		Category: category,
		Note:     note,
		Date:     date,
	}
	if err := s.storage.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Transactions lists the user's entries for one calendar month.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]Transaction, error) {
	from, to := monthBounds(year, month)
	return s.storage.ListTransactions(ctx, userID, from, to)
}

// RemoveTransaction deletes one entry.
func (s *Service) RemoveTransaction(ctx context.Context, userID, id uuid.UUID) error {
	return s.storage.DeleteTransaction(ctx, userID, id)
}

// AddRecurring registers a monthly charge.
func (s *Service) AddRecurring(ctx context.Context, userID uuid.UUID, name string, amount int64, dayOfMonth int, start time.Time, end *time.Time) (*RecurringPayment, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be non-zero", ErrInvalidInput)
	}
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return nil, fmt.Errorf("%w: dayOfMonth must be between 1 and 31", ErrInvalidInput)
	}
	if start.IsZero() {
		start = s.now()
	}
	if end != nil && end.Before(start) {
		return nil, fmt.Errorf("%w: endDate before startDate", ErrInvalidInput)
	}

	r := &RecurringPayment{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Amount:     amount,
		DayOfMonth: dayOfMonth,
		StartDate:  start,
		EndDate:    end,
	}
	if err := s.storage.CreateRecurring(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Recurring lists the user's monthly charges.
func (s *Service) Recurring(ctx context.Context, userID uuid.UUID) ([]RecurringPayment, error) {
	return s.storage.ListRecurring(ctx, userID)
}

// RemoveRecurring deletes one monthly charge.
func (s *Service) RemoveRecurring(ctx context.Context, userID, id uuid.UUID) error {
	return s.storage.DeleteRecurring(ctx, userID, id)
}

// AddInstallment registers an installment plan and drops a notification so
// the first due date is visible on the dashboard.
func (s *Service) AddInstallment(ctx context.Context, userID uuid.UUID, name string, totalAmount int64, months int, firstDue time.Time) (*InstallmentPlan, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if totalAmount == 0 {
		return nil, fmt.Errorf("%w: totalAmount must be non-zero", ErrInvalidInput)
	}
	if months < 1 {
		return nil, fmt.Errorf("%w: months must be at least 1", ErrInvalidInput)
	}
	if firstDue.IsZero() {
		firstDue = s.now()
	}

	p := &InstallmentPlan{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		TotalAmount:  totalAmount,
		Months:       months,
		FirstDueDate: firstDue,
	}
	if err := s.storage.CreateInstallment(ctx, p); err != nil {
		return nil, err
	}

	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   fmt.Sprintf("Installment plan %q starts %s", name, firstDue.Format("2006-01-02")),
		CreatedAt: s.now(),
	}
	if err := s.storage.CreateNotification(ctx, n); err != nil {
		// The plan is already saved; a missing notification is not worth
		// failing the request over.
		s.logger.Warn("failed to create installment notification",
			logger.UserID(userID.String()),
			logger.Error(err),
			logger.Component("budget.service"),
		)
	}

	return p, nil
}

// Installments lists the user's plans.
func (s *Service) Installments(ctx context.Context, userID uuid.UUID) ([]InstallmentPlan, error) {
	return s.storage.ListInstallments(ctx, userID)
}

// RemoveInstallment deletes one plan.
func (s *Service) RemoveInstallment(ctx context.Context, userID, id uuid.UUID) error {
	return s.storage.DeleteInstallment(ctx, userID, id)
}

// Notifications lists the user's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	return s.storage.ListNotifications(ctx, userID)
}

// MarkNotificationRead marks one notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.storage.MarkNotificationRead(ctx, userID, id)
}

// MonthlySummary aggregates one month: transaction income and expenses,
// recurring charges active in the month and installment shares, summed into
// a net figure.
func (s *Service) MonthlySummary(ctx context.Context, userID uuid.UUID, year int, month time.Month) (*Summary, error) {
	from, to := monthBounds(year, month)

	transactions, err := s.storage.ListTransactions(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	recurring, err := s.storage.ListRecurring(ctx, userID)
	if err != nil {
		return nil, err
	}
	installments, err := s.storage.ListInstallments(ctx, userID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Year: year, Month: int(month)}

	for _, t := range transactions {
		if t.Amount > 0 {
			sum.Income += t.Amount
		} else {
			sum.Expenses += t.Amount
		}
	}
	for _, r := range recurring {
		if r.ActiveIn(year, month) {
			sum.Recurring += r.Amount
		}
	}
	for _, p := range installments {
		sum.Installments += p.MonthlyShare(year, month)
	}

	sum.Net = sum.Income + sum.Expenses - sum.Recurring - sum.Installments

	return sum, nil
}

func monthBounds(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
