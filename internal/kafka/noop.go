package kafka

import (
	"context"
	"log/slog"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
)

// NoopEventBus logs events without sending them to Kafka. Useful for local dev before wiring Kafka.
type NoopEventBus struct{}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) PublishOrderCreated(_ context.Context, orderID int64) error {
	slog.Debug("event::order_created", "order_id", orderID)
	return nil
}

func (n *NoopEventBus) PublishPaymentStatusChanged(_ context.Context, paymentID int64, status domain.PaymentStatus) error {
	slog.Debug("event::payment_status_changed", "payment_id", paymentID, "status", status)
	return nil
}
