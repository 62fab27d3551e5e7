package domain

import "errors"

// Error kinds returned by the catalog and ledger. Callers dispatch with
// errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrNotFound means no item exists with the given id.
	ErrNotFound = errors.New("item not found")

	// ErrInvalidQuantity means a purchase or restock asked for a quantity <= 0.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInsufficientStock means the requested quantity exceeds available
	// stock. Retrying with the same quantity will fail again.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrValidation means malformed item fields on create or update.
	ErrValidation = errors.New("validation failed")

	// ErrRetryable means the operation hit lock or transaction contention
	// before anything was committed. Safe to retry with backoff.
	ErrRetryable = errors.New("transient contention, retry")
)
