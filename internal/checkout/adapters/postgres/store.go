package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the querying surface shared by *pgxpool.Pool and pgx.Tx, letting
// each repository run against either the pool or an open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store owns the connection pool and hands out transaction-scoped
// repositories.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Carts returns a pool-bound cart repository.
func (s *Store) Carts() ports.CartRepository { return NewCartRepository(s.pool) }

// Orders returns a pool-bound order repository.
func (s *Store) Orders() ports.OrderRepository { return NewOrderRepository(s.pool) }

// Payments returns a pool-bound payment repository.
func (s *Store) Payments() ports.PaymentRepository { return NewPaymentRepository(s.pool) }

// Catalog returns a pool-bound price resolver.
func (s *Store) Catalog() ports.CatalogPriceResolver { return NewCatalogRepository(s.pool) }

// Users returns a pool-bound user directory.
func (s *Store) Users() ports.UserDirectory { return NewUserRepository(s.pool) }

// Outbox returns a pool-bound notification outbox.
func (s *Store) Outbox() ports.NotificationOutbox { return NewOutboxRepository(s.pool) }

// WithinTx runs fn with a RepoSet bound to a single transaction. The
// transaction commits only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.RepoSet) error) (txErr error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	repos := ports.RepoSet{
		Carts:    NewCartRepository(tx),
		Orders:   NewOrderRepository(tx),
		Payments: NewPaymentRepository(tx),
		Catalog:  NewCatalogRepository(tx),
		Users:    NewUserRepository(tx),
		Events:   NewEventRepository(tx),
		Outbox:   NewOutboxRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation on
// the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
