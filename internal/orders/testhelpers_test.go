package orders

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"retrocede/internal/db"
	"retrocede/internal/ledger"
	"retrocede/internal/quotes"
)

type stubQuotes struct {
	prices map[string]decimal.Decimal
	err    error
}

func (s *stubQuotes) Current(ctx context.Context, symbol string) (quotes.Quote, error) {
	if s.err != nil {
		return quotes.Quote{}, s.err
	}
	price, ok := s.prices[symbol]
	if !ok {
		return quotes.Quote{}, quotes.ErrNoData
	}
	return quotes.Quote{Symbol: symbol, Close: price}, nil
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

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

func createTestUser(t *testing.T, pool *pgxpool.Pool, store *ledger.Store, email string, balance decimal.Decimal) string {
	t.Helper()
	ctx := context.Background()

	var userID string
	err := pool.QueryRow(ctx,
		"insert into users (email, password_hash) values ($1, 'x') returning id", email).Scan(&userID)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	_, err = store.CreateAccount(ctx, tx, userID, balance)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	return userID
}
