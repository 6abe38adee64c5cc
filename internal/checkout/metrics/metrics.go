package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	ordersCreatedTotal    metric.Int64Counter
	orderCreationDuration metric.Float64Histogram
	paymentsOpenedTotal   metric.Int64Counter
	webhookEventsTotal    metric.Int64Counter
	refundsTotal          metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersCreatedTotal, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created from carts"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_created_total counter: %w", err)
	}

	m.orderCreationDuration, err = meter.Float64Histogram(
		"order_creation_duration_seconds",
		metric.WithDescription("Duration of cart-to-order conversion"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_creation_duration histogram: %w", err)
	}

	m.paymentsOpenedTotal, err = meter.Int64Counter(
		"payments_opened_total",
		metric.WithDescription("Total number of payment attempts opened against the gateway"),
		metric.WithUnit("{payment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payments_opened_total counter: %w", err)
	}

	m.webhookEventsTotal, err = meter.Int64Counter(
		"webhook_events_total",
		metric.WithDescription("Gateway webhook events by type and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create webhook_events_total counter: %w", err)
	}

	m.refundsTotal, err = meter.Int64Counter(
		"refunds_total",
		metric.WithDescription("Refund attempts by outcome"),
		metric.WithUnit("{refund}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create refunds_total counter: %w", err)
	}

	return m, nil
}

func statusAttr(success bool) attribute.KeyValue {
	if success {
		return attribute.String("status", "success")
	}
	return attribute.String("status", "error")
}

func (m *Metrics) RecordOrderCreated(ctx context.Context, success bool) {
	m.ordersCreatedTotal.Add(ctx, 1, metric.WithAttributes(statusAttr(success)))
}

func (m *Metrics) RecordOrderCreationDuration(ctx context.Context, durationSeconds float64) {
	m.orderCreationDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordPaymentOpened(ctx context.Context, success bool) {
	m.paymentsOpenedTotal.Add(ctx, 1, metric.WithAttributes(statusAttr(success)))
}

// RecordWebhookEvent counts a delivery. Outcome is one of applied, ignored,
// duplicate, rejected.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, eventType, outcome string) {
	m.webhookEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordRefund(ctx context.Context, success bool) {
	m.refundsTotal.Add(ctx, 1, metric.WithAttributes(statusAttr(success)))
}
