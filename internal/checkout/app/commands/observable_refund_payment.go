package commands

import (
	"context"
	"log/slog"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/metrics"
	"github.com/ivmarchuk/filmstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableRefundPaymentHandler struct {
	handler RefundPaymentHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableRefundPaymentHandler(handler RefundPaymentHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableRefundPaymentHandler {
	return &ObservableRefundPaymentHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableRefundPaymentHandler) Handle(ctx context.Context, cmd RefundPaymentCommand) (*domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "RefundPaymentCommand.Handle")
	defer span.End()

	payment, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		o.metrics.RecordRefund(ctx, false)
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "refund failed",
			"error", err,
			"payment_id", cmd.PaymentID,
			"user_id", cmd.RequestingUserID,
		)
		return nil, err
	}

	o.metrics.RecordRefund(ctx, true)
	telemetry.AddSpanAttributes(span,
		attribute.Int64("payment.id", payment.ID),
		attribute.String("payment.amount", payment.Amount.String()),
	)
	telemetry.SetSpanSuccess(span)

	o.logger.InfoContext(ctx, "payment refunded", "payment_id", payment.ID)

	return payment, nil
}
