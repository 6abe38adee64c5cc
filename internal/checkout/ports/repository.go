package ports

import (
	"context"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/shopspring/decimal"
)

// CartRepository exposes the user's pending selection. Carts live in the same
// database as orders so that cart-to-order conversion is one transaction.
type CartRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*domain.Cart, error)
	// GetByUserIDForUpdate locks the cart row for the duration of the
	// enclosing transaction, serializing concurrent conversions.
	GetByUserIDForUpdate(ctx context.Context, userID int64) (*domain.Cart, error)
	Delete(ctx context.Context, cartID int64) error
}

// OrderListFilter narrows order listings. Nil fields are not applied.
type OrderListFilter struct {
	Status    *domain.OrderStatus
	UserID    *int64
	CreatedOn *time.Time
	Page      int
	PageSize  int
}

// OrderRepository persists orders and their price-snapshotted items.
type OrderRepository interface {
	// Create inserts the order and its items, returning generated ids.
	// A second pending order for the same user fails with domain.ErrConflict.
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, int, error)
	HasPendingForUser(ctx context.Context, userID int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	Delete(ctx context.Context, id int64) error
}

// PaymentSearchFilter narrows the administrator payment listing.
type PaymentSearchFilter struct {
	UserID *int64
	From   *time.Time
	To     *time.Time
	Status *domain.PaymentStatus
}

// PaymentRepository persists payment attempts and their item ledgers.
type PaymentRepository interface {
	// Create inserts the payment and its items. A second pending payment for
	// the same order fails with domain.ErrConflict.
	Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	// GetByIDForUserForUpdate scopes the lookup to the owner: a payment that
	// exists but belongs to someone else is domain.ErrNotFound.
	GetByIDForUserForUpdate(ctx context.Context, id, userID int64) (*domain.Payment, error)
	GetByExternalIDForUpdate(ctx context.Context, externalID string) (*domain.Payment, error)
	// SetExternalID records the gateway intent id; it may be set exactly once.
	SetExternalID(ctx context.Context, id int64, externalID string) error
	UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error)
	Search(ctx context.Context, filter PaymentSearchFilter) ([]domain.Payment, error)
}

// CatalogPriceResolver reads live catalog prices at order time. Item ids
// missing from the result are no longer purchasable.
type CatalogPriceResolver interface {
	ResolvePrices(ctx context.Context, itemIDs []int64) (map[int64]decimal.Decimal, error)
}

// UserDirectory resolves accounts for authorization and notification
// addressing. Account management itself is out of scope.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// ProcessedEventStore deduplicates gateway webhook deliveries.
type ProcessedEventStore interface {
	// MarkProcessed records the event id and reports whether this delivery is
	// the first one (false means the event was already handled).
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// NotificationOutbox is the durable at-least-once notification queue.
type NotificationOutbox interface {
	// Enqueue inserts a queued notification; a duplicate (payment, kind) pair
	// is silently absorbed.
	Enqueue(ctx context.Context, n domain.Notification) error
	ListQueued(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkSent(ctx context.Context, id int64) error
}
