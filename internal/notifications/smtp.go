package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/shopspring/decimal"
)

// SMTPSender delivers notifications over plain SMTP.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
	}
}

func (s *SMTPSender) SendPaymentConfirmed(ctx context.Context, email string, amount decimal.Decimal) error {
	return s.send(ctx, email, "Payment confirmed",
		fmt.Sprintf("Your payment of %s has been confirmed. Thank you for your purchase.", amount.StringFixed(2)))
}

func (s *SMTPSender) SendPaymentCanceled(ctx context.Context, email string, amount decimal.Decimal) error {
	return s.send(ctx, email, "Payment canceled",
		fmt.Sprintf("Your payment of %s was canceled. Your order is still open and you may try again.", amount.StringFixed(2)))
}

func (s *SMTPSender) SendPaymentRefunded(ctx context.Context, email string, amount decimal.Decimal) error {
	return s.send(ctx, email, "Payment refunded",
		fmt.Sprintf("Your payment of %s has been refunded.", amount.StringFixed(2)))
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
