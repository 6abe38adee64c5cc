package notifications

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// LogSender writes notifications to the log instead of sending email. Useful
// for local development without an SMTP server.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendPaymentConfirmed(ctx context.Context, email string, amount decimal.Decimal) error {
	s.logger.InfoContext(ctx, "notification::payment_confirmed", "email", email, "amount", amount)
	return nil
}

func (s *LogSender) SendPaymentCanceled(ctx context.Context, email string, amount decimal.Decimal) error {
	s.logger.InfoContext(ctx, "notification::payment_canceled", "email", email, "amount", amount)
	return nil
}

func (s *LogSender) SendPaymentRefunded(ctx context.Context, email string, amount decimal.Decimal) error {
	s.logger.InfoContext(ctx, "notification::payment_refunded", "email", email, "amount", amount)
	return nil
}
