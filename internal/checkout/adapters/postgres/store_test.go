//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ivmarchuk/filmstore/internal/checkout/adapters/postgres"
	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/ivmarchuk/filmstore/internal/database"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	require.NoError(t, err, "failed to start postgres container")

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	projectRoot := findProjectRoot(t)
	migrationsPath := filepath.Join(projectRoot, "migrations")

	require.NoError(t, database.RunMigrations(connStr, migrationsPath), "failed to run migrations")

	pool, err := database.NewPool(ctx, connStr)
	require.NoError(t, err, "failed to create pool")

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func seedUser(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, is_admin) VALUES ($1, FALSE) RETURNING id`,
		gofakeit.Email(),
	).Scan(&id)
	require.NoError(t, err, "failed to seed user")
	return id
}

func seedCatalogItem(t *testing.T, pool *pgxpool.Pool, price string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO catalog_items (title, price) VALUES ($1, $2) RETURNING id`,
		gofakeit.MovieName(), price,
	).Scan(&id)
	require.NoError(t, err, "failed to seed catalog item")
	return id
}

func pendingOrderFor(userID, itemID int64, price string) domain.Order {
	amount := decimal.RequireFromString(price)
	return domain.Order{
		UserID:      userID,
		Status:      domain.OrderStatusPending,
		TotalAmount: amount,
		Items:       []domain.OrderItem{{ItemID: itemID, PriceAtOrder: amount}},
	}
}

func createPendingOrder(t *testing.T, store *postgres.Store, userID, itemID int64, price string) *domain.Order {
	t.Helper()
	order, err := store.Orders().Create(context.Background(), pendingOrderFor(userID, itemID, price))
	require.NoError(t, err, "failed to create order")
	return order
}

func TestOrderRepository_OnePendingPerUser(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	userID := seedUser(t, pool)
	itemID := seedCatalogItem(t, pool, "9.99")
	first := createPendingOrder(t, store, userID, itemID, "9.99")

	_, err := store.Orders().Create(ctx, pendingOrderFor(userID, itemID, "9.99"))
	require.ErrorIs(t, err, domain.ErrConflict, "second pending order must conflict")

	require.NoError(t, store.Orders().UpdateStatus(ctx, first.ID, domain.OrderStatusCanceled))

	_, err = store.Orders().Create(ctx, pendingOrderFor(userID, itemID, "9.99"))
	require.NoError(t, err, "pending slot should free up after cancel")
}

func TestPaymentRepository_OnePendingPerOrder(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	userID := seedUser(t, pool)
	itemID := seedCatalogItem(t, pool, "9.99")
	order := createPendingOrder(t, store, userID, itemID, "9.99")

	payment := domain.Payment{
		UserID:  userID,
		OrderID: order.ID,
		Status:  domain.PaymentStatusPending,
		Amount:  decimal.RequireFromString("9.99"),
	}

	_, err := store.Payments().Create(ctx, payment)
	require.NoError(t, err)

	_, err = store.Payments().Create(ctx, payment)
	require.ErrorIs(t, err, domain.ErrConflict, "second pending payment must conflict")
}

func TestPaymentRepository_SetExternalID(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	userID := seedUser(t, pool)
	itemID := seedCatalogItem(t, pool, "9.99")
	order := createPendingOrder(t, store, userID, itemID, "9.99")

	created, err := store.Payments().Create(ctx, domain.Payment{
		UserID:  userID,
		OrderID: order.ID,
		Status:  domain.PaymentStatusPending,
		Amount:  decimal.RequireFromString("9.99"),
	})
	require.NoError(t, err)

	require.NoError(t, store.Payments().SetExternalID(ctx, created.ID, "pi_integration_1"))

	err = store.Payments().SetExternalID(ctx, created.ID, "pi_integration_2")
	require.ErrorIs(t, err, domain.ErrConflict, "external id must be write-once")

	found, err := store.Payments().GetByExternalIDForUpdate(ctx, "pi_integration_1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestEventRepository_MarkProcessed(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	events := postgres.NewEventRepository(pool)

	first, err := events.MarkProcessed(ctx, "evt_integration_1")
	require.NoError(t, err)
	assert.True(t, first, "first delivery should be new")

	second, err := events.MarkProcessed(ctx, "evt_integration_1")
	require.NoError(t, err)
	assert.False(t, second, "redelivery should report already processed")
}

func TestOutboxRepository_EnqueueDedup(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	userID := seedUser(t, pool)
	itemID := seedCatalogItem(t, pool, "9.99")
	order := createPendingOrder(t, store, userID, itemID, "9.99")

	payment, err := store.Payments().Create(ctx, domain.Payment{
		UserID:  userID,
		OrderID: order.ID,
		Status:  domain.PaymentStatusPending,
		Amount:  decimal.RequireFromString("9.99"),
	})
	require.NoError(t, err)

	notification := domain.Notification{
		PaymentID: payment.ID,
		Kind:      domain.NotificationPaymentConfirmed,
		Email:     gofakeit.Email(),
		Amount:    decimal.RequireFromString("9.99"),
		Status:    domain.NotificationStatusQueued,
	}

	outbox := store.Outbox()
	require.NoError(t, outbox.Enqueue(ctx, notification))
	require.NoError(t, outbox.Enqueue(ctx, notification), "duplicate enqueue should be absorbed")

	queued, err := outbox.ListQueued(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	require.NoError(t, outbox.MarkSent(ctx, queued[0].ID))

	queued, err = outbox.ListQueued(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, queued, "sent notification should leave the queue")
}

func TestStore_WithinTxRollback(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	userID := seedUser(t, pool)
	itemID := seedCatalogItem(t, pool, "9.99")

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, repos ports.RepoSet) error {
		if _, err := repos.Orders.Create(ctx, pendingOrderFor(userID, itemID, "9.99")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	pending, err := store.Orders().HasPendingForUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, pending, "rollback should discard the order")
}
