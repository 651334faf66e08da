package portfolio

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RawOrder carries order fields exactly as submitted, before any parsing.
type RawOrder struct {
	Symbol   string
	Quantity string
	Price    string
}

// ParseOrder validates a raw order. All three fields are mandatory and
// missing fields are reported before type parsing; the symbol is
// normalized to uppercase, quantity must be a positive integer and price a
// positive decimal.
func ParseOrder(raw RawOrder, side Side) (Order, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if symbol == "" {
		return Order{}, &MissingFieldError{Field: "symbol"}
	}
	quantityRaw := strings.TrimSpace(raw.Quantity)
	if quantityRaw == "" {
		return Order{}, &MissingFieldError{Field: "quantity"}
	}
	priceRaw := strings.TrimSpace(raw.Price)
	if priceRaw == "" {
		return Order{}, &MissingFieldError{Field: "price"}
	}
	if side != SideBuy && side != SideSell {
		return Order{}, errInvalidSide
	}
	quantity, err := strconv.ParseInt(quantityRaw, 10, 64)
	if err != nil || quantity <= 0 {
		return Order{}, ErrInvalidQuantity
	}
	price, err := decimal.NewFromString(priceRaw)
	if err != nil || !price.IsPositive() {
		return Order{}, ErrInvalidPrice
	}
	return Order{Symbol: symbol, Quantity: quantity, Price: price, Side: side}, nil
}
