package orderbookv1

import "errors"

// The closed set of failure kinds the book can raise. Callers match them
// with errors.Is; every one of them is recoverable at per-event granularity
// and leaves the book unchanged.
var (
	ErrNilOrder         = errors.New("order cannot be nil")
	ErrBadOrderType     = errors.New("order type is not add or reduce")
	ErrBadOrderSide     = errors.New("order side is not buy or sell")
	ErrBadOrderSize     = errors.New("order size must be positive")
	ErrInvalidPrice     = errors.New("price must be positive")
	ErrDuplicateOrderID = errors.New("order id is already resting in the book")
	ErrNoSuchOrder      = errors.New("order id not found in the book")
	ErrOrderNotFound    = errors.New("order not found in limit")
)
