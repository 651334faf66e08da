// Package ledger is the durable side of the accounting engine: it loads
// account and position snapshots for the engine and applies the engine's
// deltas inside a caller-owned transaction.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"retrocede/internal/portfolio"
)

var ErrAccountNotFound = errors.New("account not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// TransactionRecord is a stored transaction with its assigned id.
type TransactionRecord struct {
	ID string
	portfolio.Transaction
}

func (s *Store) CreateAccount(ctx context.Context, tx pgx.Tx, userID string, startingBalance decimal.Decimal) (string, error) {
	var id string
	err := tx.QueryRow(ctx, "insert into accounts (user_id, cash_balance) values ($1, $2) returning id", userID, startingBalance).Scan(&id)
	return id, err
}

func (s *Store) AccountByUser(ctx context.Context, userID string) (portfolio.Account, error) {
	var a portfolio.Account
	err := s.pool.QueryRow(ctx, "select id, cash_balance from accounts where user_id = $1", userID).Scan(&a.ID, &a.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return portfolio.Account{}, ErrAccountNotFound
	}
	return a, err
}

// AccountForUpdate locks the account row for the rest of the transaction.
// Concurrent orders against the same account serialize here; orders
// against different accounts proceed in parallel.
func (s *Store) AccountForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (portfolio.Account, error) {
	var a portfolio.Account
	err := tx.QueryRow(ctx, "select id, cash_balance from accounts where id = $1 for update", accountID).Scan(&a.ID, &a.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return portfolio.Account{}, ErrAccountNotFound
	}
	return a, err
}

// FindPosition returns nil without error when no position is held.
func (s *Store) FindPosition(ctx context.Context, tx pgx.Tx, accountID, symbol string) (*portfolio.Position, error) {
	var p portfolio.Position
	err := tx.QueryRow(ctx, "select account_id, symbol, quantity, avg_price from positions where account_id = $1 and symbol = $2 for update", accountID, symbol).Scan(&p.AccountID, &p.Symbol, &p.Quantity, &p.AvgPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Apply writes every mutation in the delta: the balance update, the
// position upsert or delete, and the transaction insert. It never commits;
// the caller owns the transaction and the atomicity guarantee.
func (s *Store) Apply(ctx context.Context, tx pgx.Tx, d portfolio.Delta) error {
	if _, err := tx.Exec(ctx, "update accounts set cash_balance = $1, updated_at = $2 where id = $3", d.Account.Balance, time.Now().UTC(), d.Account.ID); err != nil {
		return err
	}
	switch {
	case d.RemovePosition:
		if _, err := tx.Exec(ctx, "delete from positions where account_id = $1 and symbol = $2", d.Account.ID, d.Transaction.Symbol); err != nil {
			return err
		}
	case d.Position != nil:
		if _, err := tx.Exec(ctx, "insert into positions (account_id, symbol, quantity, avg_price) values ($1, $2, $3, $4) on conflict (account_id, symbol) do update set quantity = excluded.quantity, avg_price = excluded.avg_price, updated_at = now()", d.Position.AccountID, d.Position.Symbol, d.Position.Quantity, d.Position.AvgPrice); err != nil {
			return err
		}
	}
	_, err := tx.Exec(ctx, "insert into transactions (account_id, symbol, side, quantity, price, executed_at) values ($1, $2, $3, $4, $5, $6)", d.Transaction.AccountID, d.Transaction.Symbol, string(d.Transaction.Side), d.Transaction.Quantity, d.Transaction.Price, d.Transaction.ExecutedAt)
	return err
}

func (s *Store) Positions(ctx context.Context, accountID string) ([]portfolio.Position, error) {
	rows, err := s.pool.Query(ctx, "select account_id, symbol, quantity, avg_price from positions where account_id = $1 order by symbol", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []portfolio.Position
	for rows.Next() {
		var p portfolio.Position
		if err := rows.Scan(&p.AccountID, &p.Symbol, &p.Quantity, &p.AvgPrice); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Transactions(ctx context.Context, accountID string, limit int) ([]TransactionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx, "select id, account_id, symbol, side, quantity, price, executed_at from transactions where account_id = $1 order by executed_at desc, id desc limit $2", accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TransactionRecord
	for rows.Next() {
		var r TransactionRecord
		var side string
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Symbol, &side, &r.Quantity, &r.Price, &r.ExecutedAt); err != nil {
			return nil, err
		}
		r.Side = portfolio.Side(side)
		out = append(out, r)
	}
	return out, rows.Err()
}
