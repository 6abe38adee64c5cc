package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/jackc/pgx/v5"
)

type CartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Cart, error) {
	return r.getByUserID(ctx, userID, false)
}

// GetByUserIDForUpdate locks the cart row; only meaningful inside a
// transaction.
func (r *CartRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*domain.Cart, error) {
	return r.getByUserID(ctx, userID, true)
}

func (r *CartRepository) getByUserID(ctx context.Context, userID int64, forUpdate bool) (*domain.Cart, error) {
	query := `SELECT id, user_id FROM carts WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var cart domain.Cart
	err := r.db.QueryRow(ctx, query, userID).Scan(&cart.ID, &cart.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cart for user %d: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, cart_id, item_id
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id
	`, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ItemID); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return &cart, nil
}

// Delete removes the cart; cart_items go with it via FK cascade.
func (r *CartRepository) Delete(ctx context.Context, cartID int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("cart %d: %w", cartID, domain.ErrNotFound)
	}
	return nil
}
