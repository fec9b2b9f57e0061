package market

import "errors"

// Error kinds shared by every flow. Callers wrap them with context and
// match with errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
	// ErrStorageFailure means the transaction did not commit and left no
	// partial state; the whole request is safe to retry.
	ErrStorageFailure = errors.New("storage failure")
)
