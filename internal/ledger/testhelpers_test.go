package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"retrocede/internal/db"
)

// setupTestPool starts a throwaway postgres container with the schema
// applied. Skipped under -short.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.NewPool(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.EnsureSchema(ctx, pool))
	return pool
}

// createTestAccount inserts a user and a funded account.
func createTestAccount(t *testing.T, pool *pgxpool.Pool, store *Store, email string, balance decimal.Decimal) (userID, accountID string) {
	t.Helper()
	ctx := context.Background()

	err := pool.QueryRow(ctx,
		"insert into users (email, password_hash) values ($1, 'x') returning id", email).Scan(&userID)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	accountID, err = store.CreateAccount(ctx, tx, userID, balance)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	return userID, accountID
}
