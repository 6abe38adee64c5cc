package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

// Worker drains the notification outbox on a fixed tick: send the email, tell
// the event bus, mark the row sent. Delivery is at-least-once, so a crash
// between send and MarkSent repeats the same logical notification; dedup at
// enqueue time keeps the outbox itself free of duplicates.
type Worker struct {
	outbox    ports.NotificationOutbox
	sender    ports.EmailSender
	events    ports.EventBus
	logger    *slog.Logger
	tick      time.Duration
	batchSize int
}

func NewWorker(outbox ports.NotificationOutbox, sender ports.EmailSender, events ports.EventBus, logger *slog.Logger, tick time.Duration, batchSize int) *Worker {
	if tick <= 0 {
		tick = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{
		outbox:    outbox,
		sender:    sender,
		events:    events,
		logger:    logger,
		tick:      tick,
		batchSize: batchSize,
	}
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Drain processes one batch of queued notifications. Failures are logged and
// the row stays queued for the next tick.
func (w *Worker) Drain(ctx context.Context) {
	queued, err := w.outbox.ListQueued(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "list queued notifications failed", "error", err)
		return
	}

	for _, notification := range queued {
		if err := w.deliver(ctx, notification); err != nil {
			w.logger.ErrorContext(ctx, "notification delivery failed",
				"notification_id", notification.ID,
				"payment_id", notification.PaymentID,
				"kind", notification.Kind,
				"error", err,
			)
			continue
		}

		if err := w.outbox.MarkSent(ctx, notification.ID); err != nil {
			w.logger.ErrorContext(ctx, "mark notification sent failed",
				"notification_id", notification.ID,
				"error", err,
			)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, n domain.Notification) error {
	var err error
	var status domain.PaymentStatus

	switch n.Kind {
	case domain.NotificationPaymentConfirmed:
		err = w.sender.SendPaymentConfirmed(ctx, n.Email, n.Amount)
		status = domain.PaymentStatusSuccessful
	case domain.NotificationPaymentCanceled:
		err = w.sender.SendPaymentCanceled(ctx, n.Email, n.Amount)
		status = domain.PaymentStatusCanceled
	case domain.NotificationPaymentRefunded:
		err = w.sender.SendPaymentRefunded(ctx, n.Email, n.Amount)
		status = domain.PaymentStatusRefunded
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if err := w.events.PublishPaymentStatusChanged(ctx, n.PaymentID, status); err != nil {
		w.logger.WarnContext(ctx, "payment status event publish failed",
			"payment_id", n.PaymentID,
			"status", status,
			"error", err,
		)
	}

	return nil
}
