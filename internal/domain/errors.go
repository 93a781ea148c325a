package domain

import "errors"

var (
	ErrProductNotFound        = errors.New("product not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrHoldNotFound           = errors.New("hold not found")
	ErrHoldAlreadyProcessed   = errors.New("hold already processed")
	ErrHoldNotActive          = errors.New("hold expired or already used")
	ErrTokenMismatch          = errors.New("invalid hold token")
	ErrOrderNotFound          = errors.New("order not found")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency key already recorded")
	ErrInvalidID              = errors.New("invalid id")
)
