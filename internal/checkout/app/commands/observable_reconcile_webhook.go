package commands

import (
	"context"
	"log/slog"

	"github.com/ivmarchuk/filmstore/internal/checkout/metrics"
	"github.com/ivmarchuk/filmstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableReconcileWebhookHandler struct {
	handler ReconcileWebhookHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableReconcileWebhookHandler(handler ReconcileWebhookHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableReconcileWebhookHandler {
	return &ObservableReconcileWebhookHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableReconcileWebhookHandler) Handle(ctx context.Context, cmd ReconcileWebhookCommand) (*ReconcileResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReconcileWebhookCommand.Handle")
	defer span.End()

	result, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		o.metrics.RecordWebhookEvent(ctx, "unknown", "rejected")
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "webhook rejected", "error", err)
		return nil, err
	}

	o.metrics.RecordWebhookEvent(ctx, result.EventType, string(result.Outcome))
	telemetry.AddSpanAttributes(span,
		attribute.String("event.id", result.EventID),
		attribute.String("event.type", result.EventType),
		attribute.String("event.outcome", string(result.Outcome)),
	)
	telemetry.SetSpanSuccess(span)

	o.logger.InfoContext(ctx, "webhook processed",
		"event_id", result.EventID,
		"event_type", result.EventType,
		"outcome", result.Outcome,
	)

	return result, nil
}
