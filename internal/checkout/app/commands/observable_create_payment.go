package commands

import (
	"context"
	"log/slog"

	"github.com/ivmarchuk/filmstore/internal/checkout/metrics"
	"github.com/ivmarchuk/filmstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCreatePaymentHandler struct {
	handler CreatePaymentHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCreatePaymentHandler(handler CreatePaymentHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCreatePaymentHandler {
	return &ObservableCreatePaymentHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCreatePaymentHandler) Handle(ctx context.Context, cmd CreatePaymentCommand) (*CreatePaymentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "CreatePaymentCommand.Handle")
	defer span.End()

	result, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		o.metrics.RecordPaymentOpened(ctx, false)
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to open payment",
			"error", err,
			"order_id", cmd.OrderID,
			"user_id", cmd.RequestingUserID,
		)
		return nil, err
	}

	o.metrics.RecordPaymentOpened(ctx, true)
	telemetry.AddSpanAttributes(span,
		attribute.Int64("payment.id", result.Payment.ID),
		attribute.Int64("payment.order_id", result.Payment.OrderID),
		attribute.String("payment.amount", result.Payment.Amount.String()),
	)
	telemetry.SetSpanSuccess(span)

	o.logger.InfoContext(ctx, "payment opened",
		"payment_id", result.Payment.ID,
		"order_id", result.Payment.OrderID,
		"external_payment_id", result.Payment.ExternalPaymentID,
	)

	return result, nil
}
