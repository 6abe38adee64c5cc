package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

// ReconcileWebhookCommand applies one raw gateway delivery to local state.
type ReconcileWebhookCommand struct {
	Payload         []byte
	SignatureHeader string
}

// ReconcileOutcome classifies what a delivery did, for logging and metrics.
type ReconcileOutcome string

const (
	OutcomeApplied   ReconcileOutcome = "applied"
	OutcomeDuplicate ReconcileOutcome = "duplicate"
	OutcomeIgnored   ReconcileOutcome = "ignored"
)

// ReconcileResult reports the verified event and what happened to it.
type ReconcileResult struct {
	EventID   string
	EventType string
	Outcome   ReconcileOutcome
}

type ReconcileWebhookHandler interface {
	Handle(ctx context.Context, cmd ReconcileWebhookCommand) (*ReconcileResult, error)
}

type ReconcileWebhookCommandHandler struct {
	uow      ports.UnitOfWork
	verifier ports.WebhookVerifier
}

func NewReconcileWebhookCommandHandler(uow ports.UnitOfWork, verifier ports.WebhookVerifier) *ReconcileWebhookCommandHandler {
	return &ReconcileWebhookCommandHandler{
		uow:      uow,
		verifier: verifier,
	}
}

// Handle verifies the delivery, then applies it idempotently. Events carry no
// ordering guarantee and may be redelivered: only transitions valid from the
// currently persisted status are applied, everything else is acknowledged as
// a no-op. The event-id dedup, the status transition, the order update and
// the notification enqueue share one transaction, with the payment row
// locked, so a redelivery racing the first delivery cannot double-apply.
func (h *ReconcileWebhookCommandHandler) Handle(ctx context.Context, cmd ReconcileWebhookCommand) (*ReconcileResult, error) {
	if cmd.SignatureHeader == "" {
		return nil, domain.Validationf("missing signature header")
	}

	event, err := h.verifier.Verify(cmd.Payload, cmd.SignatureHeader)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		EventID:   event.ID,
		EventType: event.Type,
		Outcome:   OutcomeIgnored,
	}

	var target domain.PaymentStatus
	var kind domain.NotificationKind

	switch event.Type {
	case domain.EventPaymentSucceeded:
		target, kind = domain.PaymentStatusSuccessful, domain.NotificationPaymentConfirmed
	case domain.EventPaymentCanceled:
		target, kind = domain.PaymentStatusCanceled, domain.NotificationPaymentCanceled
	case domain.EventChargeRefunded:
		target, kind = domain.PaymentStatusRefunded, domain.NotificationPaymentRefunded
	default:
		// Unknown event types are acknowledged so the gateway stops retrying.
		return result, nil
	}

	err = h.uow.WithinTx(ctx, func(ctx context.Context, repos ports.RepoSet) error {
		first, err := repos.Events.MarkProcessed(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("record event id: %w", err)
		}
		if !first {
			result.Outcome = OutcomeDuplicate
			return nil
		}

		payment, err := repos.Payments.GetByExternalIDForUpdate(ctx, event.IntentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// No local record is not actionable; acknowledge so the
				// gateway's retries don't accumulate.
				return nil
			}
			return fmt.Errorf("fetch payment: %w", err)
		}

		if !payment.Status.CanTransitionTo(target) {
			return nil
		}

		if err := repos.Payments.UpdateStatus(ctx, payment.ID, target); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}

		// Payment-driven order transition: a confirmed payment marks the
		// order paid. A canceled payment leaves the order pending so the
		// user can open another attempt.
		if target == domain.PaymentStatusSuccessful {
			order, err := repos.Orders.GetByIDForUpdate(ctx, payment.OrderID)
			if err != nil {
				return fmt.Errorf("fetch order: %w", err)
			}
			if order.Status == domain.OrderStatusPending {
				if err := repos.Orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPaid); err != nil {
					return fmt.Errorf("update order status: %w", err)
				}
			}
		}

		user, err := repos.Users.GetByID(ctx, payment.UserID)
		if err != nil {
			return fmt.Errorf("fetch user: %w", err)
		}

		if err := repos.Outbox.Enqueue(ctx, domain.Notification{
			PaymentID: payment.ID,
			Kind:      kind,
			Email:     user.Email,
			Amount:    payment.Amount,
			Status:    domain.NotificationStatusQueued,
		}); err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}

		result.Outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
