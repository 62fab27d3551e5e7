package port

import (
	"context"

	"github.com/sweetstack/inventory/internal/core/domain"
)

type LedgerRepository interface {
	// Purchase atomically decrements the item's stock and appends a purchase
	// record, serialized per item. Either both writes commit or neither does.
	// Returns domain.ErrNotFound, domain.ErrInsufficientStock, or
	// domain.ErrRetryable on lock contention; an updated item snapshot and
	// the appended record on success.
	Purchase(ctx context.Context, itemID string, quantity int, buyerID string) (*domain.Item, *domain.Purchase, error)

	// Restock atomically increments the item's stock under the same per-item
	// serialization as Purchase and returns the updated snapshot.
	Restock(ctx context.Context, itemID string, quantity int) (*domain.Item, error)

	// ListPurchases returns purchase records newest first. An empty itemID
	// returns the whole ledger.
	ListPurchases(ctx context.Context, itemID string) ([]domain.Purchase, error)
}
