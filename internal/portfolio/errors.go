package portfolio

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be a positive whole number")
	ErrInvalidPrice      = errors.New("price must be a positive number")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoSuchPosition    = errors.New("no shares of this symbol held")
	ErrQuoteUnavailable  = errors.New("quote unavailable")

	errInvalidSide = errors.New("invalid order side")
)

// MissingFieldError reports a mandatory order field that was not supplied.
// It is returned before any type parsing of the remaining fields.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return e.Field + " is required"
}

// InsufficientSharesError reports a sell larger than the held quantity.
type InsufficientSharesError struct {
	Symbol    string
	Held      int64
	Requested int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: holding %d, requested %d", e.Symbol, e.Held, e.Requested)
}

// StorageError wraps a failed commit. The pre-transaction state is intact
// and the order can be retried.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage failure: " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// IsRejection reports whether err is an expected validation or
// business-rule rejection, as opposed to an infrastructure failure. No
// storage write occurs on any rejection path.
func IsRejection(err error) bool {
	var missing *MissingFieldError
	var shares *InsufficientSharesError
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNoSuchPosition) ||
		errors.Is(err, ErrQuoteUnavailable) ||
		errors.Is(err, errInvalidSide) ||
		errors.As(err, &missing) ||
		errors.As(err, &shares)
}
