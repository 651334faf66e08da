package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the precision of every stored monetary amount. Cost
// totals and average prices round identically so repeated partial buys
// never drift beyond cent-level rounding.
const moneyPlaces = 2

// Execute applies one validated order to an account snapshot and the
// existing position for the order's symbol (nil when none is held). It is
// pure: on success the returned Delta lists every mutation the order
// produces, to be committed as one atomic unit; on error the inputs are
// untouched and nothing may be written.
func Execute(acct Account, pos *Position, order Order, now time.Time) (Delta, error) {
	switch order.Side {
	case SideBuy:
		return executeBuy(acct, pos, order, now)
	case SideSell:
		return executeSell(acct, pos, order, now)
	default:
		return Delta{}, errInvalidSide
	}
}

func executeBuy(acct Account, pos *Position, order Order, now time.Time) (Delta, error) {
	quantity := decimal.NewFromInt(order.Quantity)
	totalCost := order.Price.Mul(quantity).Round(moneyPlaces)
	// Funds check runs against the pre-transaction balance; no partial fills.
	if acct.Balance.LessThan(totalCost) {
		return Delta{}, ErrInsufficientFunds
	}
	acct.Balance = acct.Balance.Sub(totalCost)

	next := Position{
		AccountID: acct.ID,
		Symbol:    order.Symbol,
		Quantity:  order.Quantity,
		AvgPrice:  order.Price.Round(moneyPlaces),
	}
	if pos != nil {
		newQuantity := pos.Quantity + order.Quantity
		oldLot := decimal.NewFromInt(pos.Quantity).Mul(pos.AvgPrice)
		newLot := quantity.Mul(order.Price)
		next.Quantity = newQuantity
		next.AvgPrice = oldLot.Add(newLot).Div(decimal.NewFromInt(newQuantity)).Round(moneyPlaces)
	}

	return Delta{
		Account:  acct,
		Position: &next,
		Transaction: Transaction{
			AccountID:  acct.ID,
			Symbol:     order.Symbol,
			Side:       SideBuy,
			Quantity:   order.Quantity,
			Price:      order.Price,
			ExecutedAt: now,
		},
	}, nil
}

func executeSell(acct Account, pos *Position, order Order, now time.Time) (Delta, error) {
	if pos == nil {
		return Delta{}, ErrNoSuchPosition
	}
	if pos.Quantity < order.Quantity {
		return Delta{}, &InsufficientSharesError{
			Symbol:    order.Symbol,
			Held:      pos.Quantity,
			Requested: order.Quantity,
		}
	}
	proceeds := order.Price.Mul(decimal.NewFromInt(order.Quantity)).Round(moneyPlaces)
	acct.Balance = acct.Balance.Add(proceeds)

	d := Delta{
		Account: acct,
		Transaction: Transaction{
			AccountID:  acct.ID,
			Symbol:     order.Symbol,
			Side:       SideSell,
			Quantity:   order.Quantity,
			Price:      order.Price,
			ExecutedAt: now,
		},
	}
	remaining := pos.Quantity - order.Quantity
	if remaining == 0 {
		d.RemovePosition = true
		return d, nil
	}
	// Cost basis is a property of buys only; it never moves on a sell.
	next := *pos
	next.Quantity = remaining
	d.Position = &next
	return d, nil
}
