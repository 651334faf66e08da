// Package portfolio implements the accounting engine behind simulated
// trading: validating buy and sell orders against cash balance and current
// holdings, maintaining weighted-average cost basis and describing the
// exact set of record mutations each executed order produces. The engine
// performs no I/O; the storage layer applies its output atomically.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Account is a snapshot of a trading account's cash balance.
type Account struct {
	ID      string
	Balance decimal.Decimal
}

// Position is one symbol's holding: share count plus weighted-average cost
// per share across all buy lots. A position with zero quantity is never
// stored; it is deleted instead.
type Position struct {
	AccountID string
	Symbol    string
	Quantity  int64
	AvgPrice  decimal.Decimal
}

// Transaction is the record of one executed order. Records are append-only
// and never mutated; portfolio state is derivable by replaying them.
type Transaction struct {
	AccountID  string
	Symbol     string
	Side       Side
	Quantity   int64
	Price      decimal.Decimal
	ExecutedAt time.Time
}

// Order is a validated buy or sell instruction.
type Order struct {
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	Side     Side
}

// Delta lists the mutations one executed order produces: the account's new
// balance, a position upsert or removal, and the transaction to append.
type Delta struct {
	Account        Account
	Position       *Position // upsert when non-nil
	RemovePosition bool      // delete the (account, symbol) position
	Transaction    Transaction
}
