package postgres

import (
	"context"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
)

// OutboxRepository is the durable notification queue. Rows are written in the
// same transaction as the state change they announce and drained by the
// notification worker.
type OutboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue inserts a queued notification. The unique (payment_id, kind) pair
// absorbs duplicates from webhook redelivery.
func (r *OutboxRepository) Enqueue(ctx context.Context, n domain.Notification) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notification_outbox (payment_id, kind, email, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (payment_id, kind) DO NOTHING
	`, n.PaymentID, n.Kind, n.Email, n.Amount, n.Status)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListQueued returns up to limit undelivered notifications, oldest first.
// Delivery is at-least-once: a worker crash between send and MarkSent means
// the same logical notification goes out again.
func (r *OutboxRepository) ListQueued(ctx context.Context, limit int) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, payment_id, kind, email, amount, status, created_at, sent_at
		FROM notification_outbox
		WHERE status = 'queued'
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query queued notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var kind, status string
		if err := rows.Scan(&n.ID, &n.PaymentID, &kind, &n.Email, &n.Amount, &status, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = domain.NotificationKind(kind)
		n.Status = domain.NotificationStatus(status)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'sent', sent_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
