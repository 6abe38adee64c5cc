package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus captures the lifecycle of one payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:    {},
	PaymentStatusSuccessful: {},
	PaymentStatusCanceled:   {},
	PaymentStatusRefunded:   {},
}

// ToPaymentStatus parses a status string received from a client or the database.
func ToPaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := validPaymentStatuses[status]; ok {
		return status, nil
	}
	return "", Validationf("invalid payment status %q", s)
}

// CanTransitionTo reports whether a payment may move from its current status
// to the target status. Statuses only move forward: pending may become
// successful or canceled, successful may become refunded. Canceled and
// refunded are terminal. Everything else is a no-op under event replay.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusSuccessful || target == PaymentStatusCanceled
	case PaymentStatusSuccessful:
		return target == PaymentStatusRefunded
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is permitted.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCanceled || s == PaymentStatusRefunded
}

// Payment is one attempt to collect funds for an order via the external gateway.
// ExternalPaymentID correlates it to exactly one gateway payment intent and is
// immutable once set.
type Payment struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	OrderID           int64           `json:"order_id"`
	Status            PaymentStatus   `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	ExternalPaymentID string          `json:"external_payment_id"`
	Items             []PaymentItem   `json:"payment_items"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PaymentItem mirrors an order item's price into the payment's own ledger,
// decoupling the payment record from any later order mutation.
type PaymentItem struct {
	ID             int64           `json:"id"`
	PaymentID      int64           `json:"payment_id"`
	OrderItemID    int64           `json:"order_item_id"`
	PriceAtPayment decimal.Decimal `json:"price_at_payment"`
}
