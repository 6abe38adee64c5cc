package ports

import "context"

// RepoSet bundles the repositories bound to one transaction. Closures passed
// to UnitOfWork receive a RepoSet whose members all share that transaction.
type RepoSet struct {
	Carts    CartRepository
	Orders   OrderRepository
	Payments PaymentRepository
	Catalog  CatalogPriceResolver
	Users    UserDirectory
	Events   ProcessedEventStore
	Outbox   NotificationOutbox
}

// UnitOfWork runs fn inside a single database transaction. The transaction
// commits only if fn returns nil; any error rolls back every write made
// through the RepoSet, so a partially-applied order or payment is never
// visible.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos RepoSet) error) error
}
