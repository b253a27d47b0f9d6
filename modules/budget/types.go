package budget

import (
	"time"

	"github.com/google/uuid"
)

// Amounts are stored in cents. Expenses are negative, income positive, so
// dashboard totals are plain sums.

// Transaction is a single dated entry.
type Transaction struct {
	ID       uuid.UUID `bson:"_id" json:"id"`
	UserID   uuid.UUID `bson:"user_id" json:"-"`
	Amount   int64     `bson:"amount" json:"amount"`
	Category string    `bson:"category" json:"category"`
	Note     string    `bson:"note,omitempty" json:"note,omitempty"`
	Date     time.Time `bson:"date" json:"date"`
}

// RecurringPayment charges Amount on DayOfMonth every month between
// StartDate and EndDate (open-ended when EndDate is nil).
type RecurringPayment struct {
	ID         uuid.UUID  `bson:"_id" json:"id"`
	UserID     uuid.UUID  `bson:"user_id" json:"-"`
	Name       string     `bson:"name" json:"name"`
	Amount     int64      `bson:"amount" json:"amount"`
	DayOfMonth int        `bson:"day_of_month" json:"dayOfMonth"`
	StartDate  time.Time  `bson:"start_date" json:"startDate"`
	EndDate    *time.Time `bson:"end_date,omitempty" json:"endDate,omitempty"`
}

// InstallmentPlan splits TotalAmount over Months consecutive monthly
// charges starting at FirstDueDate. The division remainder lands on the
// first month so the shares add up exactly.
type InstallmentPlan struct {
	ID           uuid.UUID `bson:"_id" json:"id"`
	UserID       uuid.UUID `bson:"user_id" json:"-"`
	Name         string    `bson:"name" json:"name"`
	TotalAmount  int64     `bson:"total_amount" json:"totalAmount"`
	Months       int       `bson:"months" json:"months"`
	FirstDueDate time.Time `bson:"first_due_date" json:"firstDueDate"`
}

// MonthlyShare returns this plan's charge for the given month, zero when
// the month falls outside the plan.
func (p *InstallmentPlan) MonthlyShare(year int, month time.Month) int64 {
	idx := monthIndex(year, month) - monthIndex(p.FirstDueDate.Year(), p.FirstDueDate.Month())
	if idx < 0 || idx >= p.Months {
		return 0
	}

	share := p.TotalAmount / int64(p.Months)
	if idx == 0 {
		share += p.TotalAmount % int64(p.Months)
	}
	return share
}

// ActiveIn reports whether the recurring payment charges in the given month.
func (r *RecurringPayment) ActiveIn(year int, month time.Month) bool {
	idx := monthIndex(year, month)
	if idx < monthIndex(r.StartDate.Year(), r.StartDate.Month()) {
		return false
	}
	if r.EndDate != nil && idx > monthIndex(r.EndDate.Year(), r.EndDate.Month()) {
		return false
	}
	return true
}

func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

// Notification is an in-app message for a user.
type Notification struct {
	ID        uuid.UUID `bson:"_id" json:"id"`
	UserID    uuid.UUID `bson:"user_id" json:"-"`
	Message   string    `bson:"message" json:"message"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	Read      bool      `bson:"read" json:"read"`
}

// Summary is the dashboard aggregate for one month.
type Summary struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	Income       int64 `json:"income"`
	Expenses     int64 `json:"expenses"`
	Recurring    int64 `json:"recurring"`
	Installments int64 `json:"installments"`
	Net          int64 `json:"net"`
}
