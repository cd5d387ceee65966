package orders

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrIllegalTransition = errors.New("illegal transition of order status")
	ErrInvalidStatus     = errors.New("invalid order status")
)
