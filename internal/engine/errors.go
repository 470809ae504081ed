package engine

import "errors"

// Order rejection taxonomy. All of these are local and recoverable: a rejected
// order leaves the account byte-for-byte unchanged. Liquidation is not an
// error; it is a system-initiated transition surfaced as an event.
var (
	ErrValidation             = errors.New("validation failed")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientMargin     = errors.New("insufficient margin")
	ErrInsufficientHoldings   = errors.New("insufficient holdings")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNoMarketPrice          = errors.New("no market price observed yet")
)
