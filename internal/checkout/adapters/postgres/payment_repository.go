package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, user_id, order_id, status, amount, COALESCE(external_payment_id, ''), created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var status string
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.OrderID,
		&status,
		&p.Amount,
		&p.ExternalPaymentID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status, err = domain.ToPaymentStatus(status)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the payment and its item ledger. The partial unique index on
// pending payments per order maps to domain.ErrConflict.
func (r *PaymentRepository) Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO payments (user_id, order_id, status, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING `+paymentColumns,
		payment.UserID,
		payment.OrderID,
		payment.Status,
		payment.Amount,
	)

	created, err := scanPayment(row)
	if err != nil {
		if isUniqueViolation(err, "payments_one_pending_per_order") {
			return nil, fmt.Errorf("%w: a pending payment already exists for this order", domain.ErrConflict)
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	created.Items = make([]domain.PaymentItem, 0, len(payment.Items))
	for _, item := range payment.Items {
		var inserted domain.PaymentItem
		err := r.db.QueryRow(ctx, `
			INSERT INTO payment_items (payment_id, order_item_id, price_at_payment)
			VALUES ($1, $2, $3)
			RETURNING id, payment_id, order_item_id, price_at_payment
		`, created.ID, item.OrderItemID, item.PriceAtPayment).Scan(
			&inserted.ID,
			&inserted.PaymentID,
			&inserted.OrderItemID,
			&inserted.PriceAtPayment,
		)
		if err != nil {
			return nil, fmt.Errorf("insert payment item: %w", err)
		}
		created.Items = append(created.Items, inserted)
	}

	return created, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1
	`, id)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}
	if payment.Items, err = r.itemsForPayment(ctx, id); err != nil {
		return nil, err
	}
	return payment, nil
}

// GetByIDForUserForUpdate looks up a payment scoped to its owner and locks
// the row. A payment owned by someone else is not found.
func (r *PaymentRepository) GetByIDForUserForUpdate(ctx context.Context, id, userID int64) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND user_id = $2 FOR UPDATE
	`, id, userID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}
	if payment.Items, err = r.itemsForPayment(ctx, id); err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) GetByExternalIDForUpdate(ctx context.Context, externalID string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE external_payment_id = $1 FOR UPDATE
	`, externalID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment with intent %q: %w", externalID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}
	return payment, nil
}

// SetExternalID records the gateway intent id exactly once.
func (r *PaymentRepository) SetExternalID(ctx context.Context, id int64, externalID string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE payments
		SET external_payment_id = $1, updated_at = now()
		WHERE id = $2 AND external_payment_id IS NULL
	`, externalID, id)
	if err != nil {
		return fmt.Errorf("set external payment id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %d has no unset external id: %w", id, domain.ErrConflict)
	}
	return nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	result, err := r.db.Exec(ctx, `
		UPDATE payments
		SET status = $1, updated_at = now()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (r *PaymentRepository) Search(ctx context.Context, filter ports.PaymentSearchFilter) ([]domain.Payment, error) {
	var statusFilter *string
	if filter.Status != nil {
		s := string(*filter.Status)
		statusFilter = &s
	}

	return r.list(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE ($1::bigint IS NULL OR user_id = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		  AND ($4::text IS NULL OR status = $4)
		ORDER BY created_at DESC
	`, filter.UserID, filter.From, filter.To, statusFilter)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	for i := range payments {
		if payments[i].Items, err = r.itemsForPayment(ctx, payments[i].ID); err != nil {
			return nil, err
		}
	}

	return payments, nil
}

func (r *PaymentRepository) itemsForPayment(ctx context.Context, paymentID int64) ([]domain.PaymentItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, payment_id, order_item_id, price_at_payment
		FROM payment_items
		WHERE payment_id = $1
		ORDER BY id
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("query payment items: %w", err)
	}
	defer rows.Close()

	var items []domain.PaymentItem
	for rows.Next() {
		var item domain.PaymentItem
		if err := rows.Scan(&item.ID, &item.PaymentID, &item.OrderItemID, &item.PriceAtPayment); err != nil {
			return nil, fmt.Errorf("scan payment item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment items: %w", err)
	}

	return items, nil
}
