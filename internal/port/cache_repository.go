package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists.
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency removes a key so a failed operation can be retried
	// under the same key.
	ClearIdempotency(ctx context.Context, key string) error

	// SetStock writes a stock snapshot for staleness-tolerant availability reads.
	SetStock(ctx context.Context, itemID string, quantity int) error

	// GetStock reads a stock snapshot; ok is false on a cache miss.
	GetStock(ctx context.Context, itemID string) (quantity int, ok bool, err error)

	// InvalidateStock drops a stock snapshot, e.g. after an item is deleted.
	InvalidateStock(ctx context.Context, itemID string) error
}
