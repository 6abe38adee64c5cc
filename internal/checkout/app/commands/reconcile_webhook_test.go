package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ivmarchuk/filmstore/internal/checkout/adapters/memory"
	"github.com/ivmarchuk/filmstore/internal/checkout/app/commands"
	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
)

func seedPendingPayment(store *memory.Store, userID int64, intentID string) (*domain.Order, *domain.Payment) {
	order := store.SeedOrder(domain.Order{
		UserID:      userID,
		Status:      domain.OrderStatusPending,
		TotalAmount: mustDecimal("14.49"),
		Items:       []domain.OrderItem{{ItemID: 10, PriceAtOrder: mustDecimal("14.49")}},
	})
	payment := store.SeedPayment(domain.Payment{
		UserID:            userID,
		OrderID:           order.ID,
		Status:            domain.PaymentStatusPending,
		Amount:            mustDecimal("14.49"),
		ExternalPaymentID: intentID,
	})
	return order, payment
}

func reconcile(t *testing.T, store *memory.Store, event *domain.WebhookEvent) *commands.ReconcileResult {
	t.Helper()
	handler := commands.NewReconcileWebhookCommandHandler(store, &fakeVerifier{event: event})
	result, err := handler.Handle(context.Background(), commands.ReconcileWebhookCommand{
		Payload:         []byte(`{}`),
		SignatureHeader: "t=1,v1=ok",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	return result
}

func TestReconcileWebhook(t *testing.T) {
	t.Run("succeeded event marks payment successful and order paid", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedUser(domain.User{ID: 1, Email: "buyer@example.com"})
		order, payment := seedPendingPayment(store, 1, "pi_1")

		result := reconcile(t, store, &domain.WebhookEvent{
			ID:       "evt_1",
			Type:     domain.EventPaymentSucceeded,
			IntentID: "pi_1",
		})

		if result.Outcome != commands.OutcomeApplied {
			t.Fatalf("expected outcome applied, got %s", result.Outcome)
		}

		ctx := context.Background()
		storedPayment, _ := store.Payments().GetByID(ctx, payment.ID)
		if storedPayment.Status != domain.PaymentStatusSuccessful {
			t.Errorf("expected payment successful, got %s", storedPayment.Status)
		}
		storedOrder, _ := store.Orders().GetByID(ctx, order.ID)
		if storedOrder.Status != domain.OrderStatusPaid {
			t.Errorf("expected order paid, got %s", storedOrder.Status)
		}

		queued := store.QueuedNotifications()
		if len(queued) != 1 || queued[0].Kind != domain.NotificationPaymentConfirmed {
			t.Errorf("expected one payment_confirmed notification, got %+v", queued)
		}
	})

	t.Run("redelivered event is a duplicate and enqueues nothing new", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedUser(domain.User{ID: 1, Email: "buyer@example.com"})
		seedPendingPayment(store, 1, "pi_1")

		event := &domain.WebhookEvent{ID: "evt_1", Type: domain.EventPaymentSucceeded, IntentID: "pi_1"}

		first := reconcile(t, store, event)
		if first.Outcome != commands.OutcomeApplied {
			t.Fatalf("expected first delivery applied, got %s", first.Outcome)
		}

		second := reconcile(t, store, event)
		if second.Outcome != commands.OutcomeDuplicate {
			t.Fatalf("expected second delivery duplicate, got %s", second.Outcome)
		}

		if len(store.QueuedNotifications()) != 1 {
			t.Errorf("expected exactly one notification after redelivery, got %d", len(store.QueuedNotifications()))
		}
	})

	t.Run("canceled event leaves order pending for a retry", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedUser(domain.User{ID: 1, Email: "buyer@example.com"})
		order, payment := seedPendingPayment(store, 1, "pi_1")

		result := reconcile(t, store, &domain.WebhookEvent{
			ID:       "evt_cancel",
			Type:     domain.EventPaymentCanceled,
			IntentID: "pi_1",
		})

		if result.Outcome != commands.OutcomeApplied {
			t.Fatalf("expected outcome applied, got %s", result.Outcome)
		}

		ctx := context.Background()
		storedPayment, _ := store.Payments().GetByID(ctx, payment.ID)
		if storedPayment.Status != domain.PaymentStatusCanceled {
			t.Errorf("expected payment canceled, got %s", storedPayment.Status)
		}
		storedOrder, _ := store.Orders().GetByID(ctx, order.ID)
		if storedOrder.Status != domain.OrderStatusPending {
			t.Errorf("expected order to stay pending, got %s", storedOrder.Status)
		}
	})

	t.Run("charge refunded applies only to successful payment", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedUser(domain.User{ID: 1, Email: "buyer@example.com"})
		_, payment := seedPendingPayment(store, 1, "pi_1")

		// Refund before success: invalid transition, acknowledged as ignored.
		ignored := reconcile(t, store, &domain.WebhookEvent{
			ID:       "evt_refund_early",
			Type:     domain.EventChargeRefunded,
			IntentID: "pi_1",
		})
		if ignored.Outcome != commands.OutcomeIgnored {
			t.Fatalf("expected refund before success to be ignored, got %s", ignored.Outcome)
		}

		reconcile(t, store, &domain.WebhookEvent{ID: "evt_ok", Type: domain.EventPaymentSucceeded, IntentID: "pi_1"})

		applied := reconcile(t, store, &domain.WebhookEvent{
			ID:       "evt_refund",
			Type:     domain.EventChargeRefunded,
			IntentID: "pi_1",
		})
		if applied.Outcome != commands.OutcomeApplied {
			t.Fatalf("expected refund after success to apply, got %s", applied.Outcome)
		}

		storedPayment, _ := store.Payments().GetByID(context.Background(), payment.ID)
		if storedPayment.Status != domain.PaymentStatusRefunded {
			t.Errorf("expected payment refunded, got %s", storedPayment.Status)
		}
	})

	t.Run("unknown event type is acknowledged and ignored", func(t *testing.T) {
		store := memory.NewStore()

		result := reconcile(t, store, &domain.WebhookEvent{
			ID:   "evt_other",
			Type: "customer.created",
		})
		if result.Outcome != commands.OutcomeIgnored {
			t.Fatalf("expected outcome ignored, got %s", result.Outcome)
		}
	})

	t.Run("unknown intent id is acknowledged and ignored", func(t *testing.T) {
		store := memory.NewStore()

		result := reconcile(t, store, &domain.WebhookEvent{
			ID:       "evt_unknown",
			Type:     domain.EventPaymentSucceeded,
			IntentID: "pi_nobody",
		})
		if result.Outcome != commands.OutcomeIgnored {
			t.Fatalf("expected outcome ignored, got %s", result.Outcome)
		}
	})

	t.Run("missing signature header is a validation error", func(t *testing.T) {
		handler := commands.NewReconcileWebhookCommandHandler(memory.NewStore(), &fakeVerifier{})

		_, err := handler.Handle(context.Background(), commands.ReconcileWebhookCommand{Payload: []byte(`{}`)})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got: %v", err)
		}
	})

	t.Run("verification failure surfaces signature error", func(t *testing.T) {
		handler := commands.NewReconcileWebhookCommandHandler(
			memory.NewStore(),
			&fakeVerifier{err: domain.ErrInvalidSignature},
		)

		_, err := handler.Handle(context.Background(), commands.ReconcileWebhookCommand{
			Payload:         []byte(`{}`),
			SignatureHeader: "t=1,v1=bad",
		})
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Fatalf("expected signature error, got: %v", err)
		}
	})
}
