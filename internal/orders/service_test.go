package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrocede/internal/ledger"
	"retrocede/internal/portfolio"
)

func newTestService(t *testing.T, provider QuoteProvider) (*Service, *ledger.Store, func(email string, balance int64) string) {
	t.Helper()
	pool := setupTestPool(t)
	store := ledger.NewStore(pool)
	svc := NewService(pool, store, provider, quietLogger())
	return svc, store, func(email string, balance int64) string {
		return createTestUser(t, pool, store, email, decimal.NewFromInt(balance))
	}
}

func TestExecuteBuyThenSell(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("150.00"),
	}}
	svc, _, newUser := newTestService(t, quotes)
	userID := newUser("alice@example.com", 1000)
	ctx := context.Background()

	receipt, err := svc.Execute(ctx, userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "aapl", Quantity: "5", Price: "150.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", receipt.Symbol)
	assert.Equal(t, int64(5), receipt.Quantity)
	assert.True(t, receipt.Total.Equal(decimal.RequireFromString("750.00")))
	assert.True(t, receipt.Balance.Equal(decimal.RequireFromString("250.00")))
	require.NotNil(t, receipt.Position)
	assert.Equal(t, int64(5), receipt.Position.Quantity)

	// Sell all five at a higher price.
	quotes.prices["AAPL"] = decimal.RequireFromString("160.00")
	receipt, err = svc.Execute(ctx, userID, portfolio.SideSell, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "5", Price: "160.00",
	})
	require.NoError(t, err)
	assert.True(t, receipt.Balance.Equal(decimal.RequireFromString("1050.00")))
	assert.Nil(t, receipt.Position)

	view, err := svc.Portfolio(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Holdings)
	assert.True(t, view.CashBalance.Equal(decimal.RequireFromString("1050.00")))
}

func TestExecuteInsufficientFundsLeavesStateUntouched(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("170.00"),
	}}
	svc, store, newUser := newTestService(t, quotes)
	userID := newUser("bob@example.com", 250)
	ctx := context.Background()

	_, err := svc.Execute(ctx, userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "5", Price: "170.00",
	})
	assert.ErrorIs(t, err, portfolio.ErrInsufficientFunds)

	acct, err := store.AccountByUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(250)))

	records, err := store.Transactions(ctx, acct.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExecuteServerPriceIsAuthoritative(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("200.00"),
	}}
	svc, _, newUser := newTestService(t, quotes)
	userID := newUser("carol@example.com", 1000)

	// Client claims 1.00 per share; the fetched quote wins.
	receipt, err := svc.Execute(context.Background(), userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "2", Price: "1.00",
	})
	require.NoError(t, err)
	assert.True(t, receipt.Price.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, receipt.Balance.Equal(decimal.RequireFromString("600.00")))
}

func TestExecuteQuoteUnavailableRejectsBeforeMutation(t *testing.T) {
	quotes := &stubQuotes{err: errors.New("upstream down")}
	svc, store, newUser := newTestService(t, quotes)
	userID := newUser("dave@example.com", 1000)
	ctx := context.Background()

	_, err := svc.Execute(ctx, userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "1", Price: "100.00",
	})
	assert.ErrorIs(t, err, portfolio.ErrQuoteUnavailable)

	acct, err := store.AccountByUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestExecuteValidationRejectsBeforeQuoteFetch(t *testing.T) {
	// A provider that always errors proves validation runs first.
	quotes := &stubQuotes{err: errors.New("must not be called")}
	svc, _, newUser := newTestService(t, quotes)
	userID := newUser("erin@example.com", 1000)

	_, err := svc.Execute(context.Background(), userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "0", Price: "100.00",
	})
	assert.ErrorIs(t, err, portfolio.ErrInvalidQuantity)
}

func TestExecuteSellWithoutPosition(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("150.00"),
	}}
	svc, _, newUser := newTestService(t, quotes)
	userID := newUser("frank@example.com", 1000)

	_, err := svc.Execute(context.Background(), userID, portfolio.SideSell, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "1", Price: "150.00",
	})
	assert.ErrorIs(t, err, portfolio.ErrNoSuchPosition)
}

func TestExecuteWeightedAverageAcrossBuys(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("150.00"),
	}}
	svc, _, newUser := newTestService(t, quotes)
	userID := newUser("grace@example.com", 2000)
	ctx := context.Background()

	_, err := svc.Execute(ctx, userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "5", Price: "150.00",
	})
	require.NoError(t, err)

	quotes.prices["AAPL"] = decimal.RequireFromString("170.00")
	receipt, err := svc.Execute(ctx, userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "5", Price: "170.00",
	})
	require.NoError(t, err)
	require.NotNil(t, receipt.Position)
	assert.Equal(t, int64(10), receipt.Position.Quantity)
	assert.True(t, receipt.Position.AvgPrice.Equal(decimal.RequireFromString("160.00")))
}

func TestExecuteUnknownAccount(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("150.00"),
	}}
	svc, _, _ := newTestService(t, quotes)

	_, err := svc.Execute(context.Background(), "00000000-0000-0000-0000-000000000000", portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "1", Price: "150.00",
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestPortfolioEnrichment(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("150.00"),
	}}
	svc, _, newUser := newTestService(t, quotes)
	userID := newUser("heidi@example.com", 1000)
	ctx := context.Background()

	_, err := svc.Execute(ctx, userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "4", Price: "150.00",
	})
	require.NoError(t, err)

	quotes.prices["AAPL"] = decimal.RequireFromString("160.00")
	view, err := svc.Portfolio(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Holdings, 1)

	h := view.Holdings[0]
	assert.True(t, h.CostBasis.Equal(decimal.RequireFromString("600.00")))
	require.NotNil(t, h.MarketValue)
	assert.True(t, h.MarketValue.Equal(decimal.RequireFromString("640.00")))
	require.NotNil(t, h.UnrealizedPnL)
	assert.True(t, h.UnrealizedPnL.Equal(decimal.RequireFromString("40.00")))
	// 400 cash + 640 market value.
	assert.True(t, view.TotalValue.Equal(decimal.RequireFromString("1040.00")))
}

func TestHistoryOrder(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("100.00"),
	}}
	svc, _, newUser := newTestService(t, quotes)
	userID := newUser("ivan@example.com", 1000)
	ctx := context.Background()

	_, err := svc.Execute(ctx, userID, portfolio.SideBuy, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "2", Price: "100.00",
	})
	require.NoError(t, err)
	_, err = svc.Execute(ctx, userID, portfolio.SideSell, portfolio.RawOrder{
		Symbol: "AAPL", Quantity: "1", Price: "100.00",
	})
	require.NoError(t, err)

	records, err := svc.History(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, portfolio.SideSell, records[0].Side)
	assert.Equal(t, portfolio.SideBuy, records[1].Side)
}
