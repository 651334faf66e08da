// Package quotes supplies market prices for the order gateway and the
// portfolio views. The provider chain is Client -> cache; the engine only
// ever sees the latest close price.
package quotes

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNoData means the symbol is unknown or the provider returned an empty
// series. Orders are rejected before any mutation when this happens.
var ErrNoData = errors.New("no data available for this symbol")

// Quote is the latest daily bar for a symbol plus five-day averages.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Date      string          `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	AvgHigh   decimal.Decimal `json:"avg_high"`
	AvgLow    decimal.Decimal `json:"avg_low"`
	AvgVolume int64           `json:"avg_volume"`
}

// Price is the execution price for orders: the latest close.
func (q Quote) Price() decimal.Decimal {
	return q.Close
}

type Provider interface {
	Current(ctx context.Context, symbol string) (Quote, error)
}
