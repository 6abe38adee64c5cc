package adapters

import (
	"context"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/ivmarchuk/filmstore/internal/kafka"
	"github.com/ivmarchuk/filmstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableEventBus wraps any event bus with tracing and publish metrics.
type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderCreated(ctx context.Context, orderID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderCreated")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", orderID),
		attribute.String("event.type", "order.created"),
		attribute.String("topic", kafka.TopicOrderCreated),
	)

	start := time.Now()
	err := e.bus.PublishOrderCreated(ctx, orderID)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, kafka.TopicOrderCreated, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishPaymentStatusChanged(ctx context.Context, paymentID int64, status domain.PaymentStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishPaymentStatusChanged")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("payment.id", paymentID),
		attribute.String("payment.status", string(status)),
		attribute.String("event.type", "payment.status-changed"),
		attribute.String("topic", kafka.TopicPaymentStatusChanged),
	)

	start := time.Now()
	err := e.bus.PublishPaymentStatusChanged(ctx, paymentID, status)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, kafka.TopicPaymentStatusChanged, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
