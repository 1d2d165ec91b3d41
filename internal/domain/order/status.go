package order

import "slices"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusInCreation         Status = "in_creation"
	StatusPending            Status = "pending"
	StatusPaid               Status = "paid"
	StatusDispatched         Status = "dispatched"
	StatusOnBilling          Status = "on_billing"
	StatusBilled             Status = "billed"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
	StatusAwaitsConfirmation Status = "awaits_confirmation"
	StatusAwaitsPayment      Status = "awaits_payment"
)

// DefaultStatus is assigned to new orders without an explicit status.
const DefaultStatus = StatusPending

var (
	openStatuses = []Status{
		StatusInCreation, StatusAwaitsConfirmation, StatusPending, StatusAwaitsPayment,
		StatusPaid, StatusDispatched, StatusOnBilling,
	}
	closedStatuses   = []Status{StatusCancelled, StatusCompleted}
	paidStatuses     = []Status{StatusPaid, StatusDispatched, StatusOnBilling, StatusCompleted}
	editableStatuses = []Status{StatusInCreation, StatusAwaitsConfirmation}
	payableStatuses  = []Status{StatusPending, StatusAwaitsPayment}
)

// ParseStatus validates a raw status value.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	switch st {
	case StatusInCreation, StatusPending, StatusPaid, StatusDispatched, StatusOnBilling,
		StatusBilled, StatusCompleted, StatusCancelled, StatusAwaitsConfirmation, StatusAwaitsPayment:
		return st, true
	default:
		return "", false
	}
}

func (s Status) IsOpen() bool     { return slices.Contains(openStatuses, s) }
func (s Status) IsClosed() bool   { return slices.Contains(closedStatuses, s) }
func (s Status) IsPaid() bool     { return slices.Contains(paidStatuses, s) }
func (s Status) IsEditable() bool { return slices.Contains(editableStatuses, s) }
func (s Status) IsPayable() bool  { return slices.Contains(payableStatuses, s) }

// DefaultStockStatuses returns the statuses in which an order holds stock.
func DefaultStockStatuses() []Status {
	return slices.Clone(openStatuses)
}
