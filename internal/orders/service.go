// Package orders is the gateway in front of the accounting engine: it
// validates inbound orders, fetches the authoritative quote, runs the
// engine over a locked account snapshot and commits the resulting delta.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"retrocede/internal/ledger"
	"retrocede/internal/portfolio"
	"retrocede/internal/quotes"
)

type QuoteProvider interface {
	Current(ctx context.Context, symbol string) (quotes.Quote, error)
}

type Service struct {
	pool   *pgxpool.Pool
	store  *ledger.Store
	quotes QuoteProvider
	log    logrus.FieldLogger
}

func NewService(pool *pgxpool.Pool, store *ledger.Store, provider QuoteProvider, log logrus.FieldLogger) *Service {
	return &Service{pool: pool, store: store, quotes: provider, log: log.WithField("component", "orders")}
}

// Receipt summarizes one executed order for the response body.
type Receipt struct {
	Symbol   string              `json:"symbol"`
	Side     portfolio.Side      `json:"side"`
	Quantity int64               `json:"quantity"`
	Price    decimal.Decimal     `json:"price"`
	Total    decimal.Decimal     `json:"total"`
	Balance  decimal.Decimal     `json:"balance"`
	Position *portfolio.Position `json:"position,omitempty"`
}

// Execute runs one buy or sell for the given user. The client submits a
// price but the server-fetched quote is the authoritative execution
// price; a failed fetch rejects the order before any mutation.
func (s *Service) Execute(ctx context.Context, userID string, side portfolio.Side, raw portfolio.RawOrder) (Receipt, error) {
	order, err := portfolio.ParseOrder(raw, side)
	if err != nil {
		return Receipt{}, err
	}
	quote, err := s.quotes.Current(ctx, order.Symbol)
	if err != nil {
		s.log.WithError(err).WithField("symbol", order.Symbol).Warn("quote fetch failed, rejecting order")
		return Receipt{}, portfolio.ErrQuoteUnavailable
	}
	order.Price = quote.Price()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return Receipt{}, &portfolio.StorageError{Err: err}
	}
	defer tx.Rollback(ctx)

	acct, err := s.lockAccount(ctx, tx, userID)
	if err != nil {
		return Receipt{}, err
	}
	pos, err := s.store.FindPosition(ctx, tx, acct.ID, order.Symbol)
	if err != nil {
		return Receipt{}, &portfolio.StorageError{Err: err}
	}

	delta, err := portfolio.Execute(acct, pos, order, time.Now().UTC())
	if err != nil {
		return Receipt{}, err
	}
	if err := s.store.Apply(ctx, tx, delta); err != nil {
		return Receipt{}, &portfolio.StorageError{Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, &portfolio.StorageError{Err: err}
	}

	s.log.WithFields(logrus.Fields{
		"account":  acct.ID,
		"symbol":   order.Symbol,
		"side":     side,
		"quantity": order.Quantity,
		"price":    order.Price.String(),
	}).Info("order executed")

	return Receipt{
		Symbol:   order.Symbol,
		Side:     side,
		Quantity: order.Quantity,
		Price:    order.Price,
		Total:    order.Price.Mul(decimal.NewFromInt(order.Quantity)).Round(2),
		Balance:  delta.Account.Balance,
		Position: delta.Position,
	}, nil
}

func (s *Service) lockAccount(ctx context.Context, tx pgx.Tx, userID string) (portfolio.Account, error) {
	acct, err := s.store.AccountByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return portfolio.Account{}, err
		}
		return portfolio.Account{}, &portfolio.StorageError{Err: err}
	}
	locked, err := s.store.AccountForUpdate(ctx, tx, acct.ID)
	if err != nil {
		return portfolio.Account{}, &portfolio.StorageError{Err: err}
	}
	return locked, nil
}

// Holding is one position enriched with the latest quote when available.
type Holding struct {
	Symbol        string           `json:"symbol"`
	Quantity      int64            `json:"quantity"`
	AvgPrice      decimal.Decimal  `json:"avg_price"`
	CostBasis     decimal.Decimal  `json:"cost_basis"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	MarketValue   *decimal.Decimal `json:"market_value,omitempty"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl,omitempty"`
}

type PortfolioView struct {
	AccountID   string          `json:"account_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Holdings    []Holding       `json:"holdings"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// Portfolio returns the account's cash and holdings. Quote failures
// degrade a holding to its cost basis; they never fail the read.
func (s *Service) Portfolio(ctx context.Context, userID string) (PortfolioView, error) {
	acct, err := s.store.AccountByUser(ctx, userID)
	if err != nil {
		return PortfolioView{}, err
	}
	positions, err := s.store.Positions(ctx, acct.ID)
	if err != nil {
		return PortfolioView{}, fmt.Errorf("load positions: %w", err)
	}

	view := PortfolioView{
		AccountID:   acct.ID,
		CashBalance: acct.Balance,
		Holdings:    make([]Holding, 0, len(positions)),
		TotalValue:  acct.Balance,
	}
	for _, p := range positions {
		qty := decimal.NewFromInt(p.Quantity)
		h := Holding{
			Symbol:    p.Symbol,
			Quantity:  p.Quantity,
			AvgPrice:  p.AvgPrice,
			CostBasis: p.AvgPrice.Mul(qty).Round(2),
		}
		if quote, err := s.quotes.Current(ctx, p.Symbol); err == nil {
			price := quote.Price()
			value := price.Mul(qty).Round(2)
			pnl := value.Sub(h.CostBasis)
			h.CurrentPrice = &price
			h.MarketValue = &value
			h.UnrealizedPnL = &pnl
			view.TotalValue = view.TotalValue.Add(value)
		} else {
			s.log.WithError(err).WithField("symbol", p.Symbol).Warn("quote unavailable, valuing holding at cost")
			view.TotalValue = view.TotalValue.Add(h.CostBasis)
		}
		view.Holdings = append(view.Holdings, h)
	}
	return view, nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]ledger.TransactionRecord, error) {
	acct, err := s.store.AccountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, acct.ID, limit)
}
