package ports

import (
	"context"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/shopspring/decimal"
)

// PaymentIntent is the gateway's confirmation that an intent was opened.
// ClientSecret is handed to the client to complete the payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// RefundResult carries the gateway's verdict on a refund request.
type RefundResult struct {
	ID     string
	Status string
}

// PaymentGateway is the external payment provider. Calls are bounded by the
// adapter's configured timeout; failures surface as *domain.GatewayError.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, intentID string) (*RefundResult, error)
}

// WebhookVerifier authenticates a raw gateway delivery against the shared
// webhook secret before any of its contents are trusted.
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) (*domain.WebhookEvent, error)
}
