package domain

import "github.com/samber/lo"

// Cart holds a user's pending, unpriced selection prior to checkout. One cart
// per user; destroyed when converted to an order or explicitly cleared.
type Cart struct {
	ID     int64      `json:"id"`
	UserID int64      `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// CartItem references a catalog item without a price. Prices are read live
// from the catalog at order-creation time.
type CartItem struct {
	ID     int64 `json:"id"`
	CartID int64 `json:"cart_id"`
	ItemID int64 `json:"item_id"`
}

// ItemIDs returns the catalog item ids referenced by the cart.
func (c Cart) ItemIDs() []int64 {
	return lo.Map(c.Items, func(item CartItem, _ int) int64 { return item.ItemID })
}

// User is the slice of the account directory this core needs: identity for
// authorization and an address for payment notifications.
type User struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}
