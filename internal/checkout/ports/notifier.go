package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// EmailSender delivers user-facing payment notifications. Rendering and
// transport details live in the adapter.
type EmailSender interface {
	SendPaymentConfirmed(ctx context.Context, email string, amount decimal.Decimal) error
	SendPaymentCanceled(ctx context.Context, email string, amount decimal.Decimal) error
	SendPaymentRefunded(ctx context.Context, email string, amount decimal.Decimal) error
}
