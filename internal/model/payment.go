package model

import "time"

// Payment status constants.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCompleted = "completed"
	PaymentStatusOverdue   = "overdue"
)

// Payment is an amount owed to or by the current user with a due date.
type Payment struct {
	ID       string     `json:"id" db:"id"`
	Title    string     `json:"title" db:"title"`
	Amount   float64    `json:"amount" db:"amount"`
	Currency string     `json:"currency" db:"currency"`
	DueDate  *time.Time `json:"due_date,omitempty" db:"due_date"`
	Status   string     `json:"status" db:"status"`
	PayeeID  string     `json:"payee_id" db:"payee_id"`
}

// IsSettled reports whether the payment is paid or otherwise closed.
// Settled payments are never scanned for reminders.
func (p Payment) IsSettled() bool {
	return p.Status == PaymentStatusPaid || p.Status == PaymentStatusCompleted
}
