package ports

import (
	"context"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
)

// EventBus publishes order/payment lifecycle events for downstream consumers.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, orderID int64) error
	PublishPaymentStatusChanged(ctx context.Context, paymentID int64, status domain.PaymentStatus) error
}
