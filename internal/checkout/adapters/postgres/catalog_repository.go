package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// CatalogRepository reads live prices from the catalog table. Catalog
// management happens elsewhere; this core only prices carts from it.
type CatalogRepository struct {
	db DBTX
}

func NewCatalogRepository(db DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ResolvePrices returns current prices for the item ids that still exist.
// Missing items are simply absent from the result.
func (r *CatalogRepository) ResolvePrices(ctx context.Context, itemIDs []int64) (map[int64]decimal.Decimal, error) {
	if len(itemIDs) == 0 {
		return map[int64]decimal.Decimal{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, price
		FROM catalog_items
		WHERE id = ANY($1)
	`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("query catalog prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[int64]decimal.Decimal, len(itemIDs))
	for rows.Next() {
		var id int64
		var price decimal.Decimal
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan catalog price: %w", err)
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog prices: %w", err)
	}

	return prices, nil
}
