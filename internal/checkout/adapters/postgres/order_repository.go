package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order and its items. The partial unique index on
// pending orders turns a lost race into domain.ErrConflict instead of a
// second pending order.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	query := `
		INSERT INTO orders (user_id, status, total_amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	created := order
	err := r.db.QueryRow(ctx, query,
		order.UserID,
		order.Status,
		order.TotalAmount,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_one_pending_per_user") {
			return nil, fmt.Errorf("%w: you have an unpaid order", domain.ErrConflict)
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	created.Items = make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		var inserted domain.OrderItem
		err := r.db.QueryRow(ctx, `
			INSERT INTO order_items (order_id, item_id, price_at_order)
			VALUES ($1, $2, $3)
			RETURNING id, order_id, item_id, price_at_order
		`, created.ID, item.ItemID, item.PriceAtOrder).Scan(
			&inserted.ID,
			&inserted.OrderID,
			&inserted.ItemID,
			&inserted.PriceAtOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		created.Items = append(created.Items, inserted)
	}

	return &created, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getByID(ctx, id, false)
}

func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getByID(ctx, id, true)
}

func (r *OrderRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var order domain.Order
	var status string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	order.Status, err = domain.ToOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", id, err)
	}

	order.Items, err = r.itemsForOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *OrderRepository) itemsForOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, item_id, price_at_order
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ItemID, &item.PriceAtOrder); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

// List returns a page of orders plus the unpaginated total.
func (r *OrderRepository) List(ctx context.Context, filter ports.OrderListFilter) ([]domain.Order, int, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	var statusFilter *string
	if filter.Status != nil {
		s := string(*filter.Status)
		statusFilter = &s
	}
	var dayFilter *time.Time
	if filter.CreatedOn != nil {
		d := filter.CreatedOn.UTC().Truncate(24 * time.Hour)
		dayFilter = &d
	}

	where := `
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::bigint IS NULL OR user_id = $2)
		  AND ($3::date IS NULL OR created_at::date = $3::date)
	`

	var total int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders `+where,
		statusFilter, filter.UserID, dayFilter,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders `+where+`
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, statusFilter, filter.UserID, dayFilter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		var status string
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&status,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		order.Status, err = domain.ToOrderStatus(status)
		if err != nil {
			return nil, 0, fmt.Errorf("order %d: %w", order.ID, err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		orders[i].Items, err = r.itemsForOrder(ctx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
	}

	return orders, total, nil
}

func (r *OrderRepository) HasPendingForUser(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE user_id = $1 AND status = 'pending')
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending order: %w", err)
	}
	return exists, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	result, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the order; order_items cascade.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
