package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus captures the lifecycle of an order in the system.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusCanceled OrderStatus = "canceled"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:  {},
	OrderStatusPaid:     {},
	OrderStatusCanceled: {},
}

// ToOrderStatus parses a status string received from a client or the database.
func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", Validationf("invalid status %q, possible values: pending, paid, canceled", s)
}

// Order is an immutable, priced record of intent to purchase, created from a cart.
// Items and TotalAmount are fixed at creation time; only Status may change afterwards.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItem     `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderItem snapshots the catalog price of one item at order-creation time.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ItemID       int64           `json:"item_id"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
}

// Validate ensures the order adheres to business constraints, in particular
// that the total equals the sum of the per-item price snapshots.
func (o Order) Validate() error {
	if o.UserID <= 0 {
		return errors.New("user_id is required")
	}
	if len(o.Items) == 0 {
		return errors.New("order must contain at least one item")
	}
	sum := decimal.Zero
	for _, item := range o.Items {
		if item.PriceAtOrder.IsNegative() {
			return fmt.Errorf("item %d has negative price", item.ItemID)
		}
		sum = sum.Add(item.PriceAtOrder)
	}
	if !o.TotalAmount.Equal(sum) {
		return fmt.Errorf("total_amount %s does not equal item sum %s", o.TotalAmount, sum)
	}
	return nil
}

// IsTerminal indicates whether the order status permits no further direct mutation.
func (o Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusPaid, OrderStatusCanceled:
		return true
	default:
		return false
	}
}

// OrderTotal sums item price snapshots.
func OrderTotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.PriceAtOrder)
	}
	return sum
}
