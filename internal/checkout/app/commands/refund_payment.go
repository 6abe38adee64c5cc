package commands

import (
	"context"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

// RefundPaymentCommand drives a successful payment to refunded via the gateway.
type RefundPaymentCommand struct {
	PaymentID        int64
	RequestingUserID int64
}

func (c RefundPaymentCommand) Validate() error {
	if c.PaymentID <= 0 {
		return domain.Validationf("payment_id is required")
	}
	if c.RequestingUserID <= 0 {
		return domain.Validationf("user_id is required")
	}
	return nil
}

type RefundPaymentHandler interface {
	Handle(ctx context.Context, cmd RefundPaymentCommand) (*domain.Payment, error)
}

type RefundPaymentCommandHandler struct {
	uow     ports.UnitOfWork
	gateway ports.PaymentGateway
}

func NewRefundPaymentCommandHandler(uow ports.UnitOfWork, gateway ports.PaymentGateway) *RefundPaymentCommandHandler {
	return &RefundPaymentCommandHandler{
		uow:     uow,
		gateway: gateway,
	}
}

// Handle locks the payment row, checks the status gate, and only then talks
// to the gateway. Nothing is written before the gateway confirms, so a
// gateway failure leaves local state untouched. The row lock prevents a
// concurrent webhook delivery from transitioning the payment mid-refund.
func (h *RefundPaymentCommandHandler) Handle(ctx context.Context, cmd RefundPaymentCommand) (*domain.Payment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var refunded *domain.Payment

	err := h.uow.WithinTx(ctx, func(ctx context.Context, repos ports.RepoSet) error {
		// Ownership is part of the lookup: a payment belonging to another
		// user is reported as not found, not as forbidden.
		payment, err := repos.Payments.GetByIDForUserForUpdate(ctx, cmd.PaymentID, cmd.RequestingUserID)
		if err != nil {
			return fmt.Errorf("fetch payment: %w", err)
		}

		if payment.Status != domain.PaymentStatusSuccessful {
			return domain.Validationf("only successful payments can be refunded")
		}

		refund, err := h.gateway.CreateRefund(ctx, payment.ExternalPaymentID)
		if err != nil {
			return err
		}
		if refund.Status != "succeeded" {
			return &domain.GatewayError{Op: "refund", Status: refund.Status}
		}

		if err := repos.Payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRefunded); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}

		user, err := repos.Users.GetByID(ctx, payment.UserID)
		if err != nil {
			return fmt.Errorf("fetch user: %w", err)
		}

		if err := repos.Outbox.Enqueue(ctx, domain.Notification{
			PaymentID: payment.ID,
			Kind:      domain.NotificationPaymentRefunded,
			Email:     user.Email,
			Amount:    payment.Amount,
			Status:    domain.NotificationStatusQueued,
		}); err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}

		payment.Status = domain.PaymentStatusRefunded
		refunded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	return refunded, nil
}
