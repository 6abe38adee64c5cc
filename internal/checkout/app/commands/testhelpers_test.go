package commands_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeGateway struct {
	createIntentFn func(ctx context.Context, amount decimal.Decimal, currency string) (*ports.PaymentIntent, error)
	createRefundFn func(ctx context.Context, intentID string) (*ports.RefundResult, error)

	intentCalls int
	refundCalls int
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*ports.PaymentIntent, error) {
	g.intentCalls++
	if g.createIntentFn != nil {
		return g.createIntentFn(ctx, amount, currency)
	}
	return &ports.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (g *fakeGateway) CreateRefund(ctx context.Context, intentID string) (*ports.RefundResult, error) {
	g.refundCalls++
	if g.createRefundFn != nil {
		return g.createRefundFn(ctx, intentID)
	}
	return &ports.RefundResult{ID: "re_test", Status: "succeeded"}, nil
}

type fakeVerifier struct {
	event *domain.WebhookEvent
	err   error
}

func (v *fakeVerifier) Verify(_ []byte, _ string) (*domain.WebhookEvent, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

type fakeEventBus struct {
	orderCreated  []int64
	statusChanged []int64
	publishErr    error
}

func (b *fakeEventBus) PublishOrderCreated(_ context.Context, orderID int64) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.orderCreated = append(b.orderCreated, orderID)
	return nil
}

func (b *fakeEventBus) PublishPaymentStatusChanged(_ context.Context, paymentID int64, _ domain.PaymentStatus) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.statusChanged = append(b.statusChanged, paymentID)
	return nil
}
