package port

import (
	"context"

	"github.com/sweetstack/inventory/internal/core/domain"
)

type CatalogRepository interface {
	// CreateItem persists a new item. The caller has already assigned the id
	// and timestamps.
	CreateItem(ctx context.Context, item domain.Item) error

	// GetItem returns the item or domain.ErrNotFound.
	GetItem(ctx context.Context, id string) (*domain.Item, error)

	// ListItems returns all items, newest first.
	ListItems(ctx context.Context) ([]domain.Item, error)

	// SearchItems returns items matching the filter, newest first.
	SearchItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)

	// UpdateItem merges the non-nil patch fields and returns the updated
	// item, or domain.ErrNotFound. Quantity is not reachable from a patch.
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error)

	// DeleteItem removes the item or returns domain.ErrNotFound. Purchase
	// records referencing the item survive.
	DeleteItem(ctx context.Context, id string) error

	// ListCategories returns the distinct categories in use, sorted.
	ListCategories(ctx context.Context) ([]string, error)
}
