package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweetstack/inventory/internal/core/domain"
	"github.com/sweetstack/inventory/internal/port"
)

// CreateItemInput carries the fields a caller supplies for a new item; the
// service assigns id and timestamps.
type CreateItemInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// CatalogService manages item records. It never changes stock levels: those
// belong to the LedgerService, and ItemPatch has no quantity field, so the
// boundary holds at compile time.
type CatalogService struct {
	repo   port.CatalogRepository
	cache  port.CacheRepository
	logger *zap.Logger
}

// NewCatalogService creates the catalog. cache may be nil, which disables
// stock snapshot cleanup on delete.
func NewCatalogService(repo port.CatalogRepository, cache port.CacheRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, logger: logger}
}

func (s *CatalogService) Create(ctx context.Context, input CreateItemInput) (*domain.Item, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if input.Category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	if input.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price_cents must be non-negative", domain.ErrValidation)
	}
	if input.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be non-negative", domain.ErrValidation)
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Category:    input.Category,
		PriceCents:  input.PriceCents,
		Quantity:    input.Quantity,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		s.logger.Error("failed to create item", zap.String("item_id", item.ID), zap.Error(err))
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.Info("item created",
		zap.String("item_id", item.ID),
		zap.String("name", item.Name),
		zap.String("category", item.Category),
	)
	return &item, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *CatalogService) List(ctx context.Context) ([]domain.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *CatalogService) Search(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	if filter.MinPriceCents != nil && *filter.MinPriceCents < 0 {
		return nil, fmt.Errorf("%w: min price must be non-negative", domain.ErrValidation)
	}
	if filter.MinPriceCents != nil && filter.MaxPriceCents != nil && *filter.MinPriceCents > *filter.MaxPriceCents {
		return nil, fmt.Errorf("%w: min price exceeds max price", domain.ErrValidation)
	}
	return s.repo.SearchItems(ctx, filter)
}

func (s *CatalogService) Update(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrValidation)
	}
	if patch.Category != nil && *patch.Category == "" {
		return nil, fmt.Errorf("%w: category cannot be empty", domain.ErrValidation)
	}
	if patch.PriceCents != nil && *patch.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price_cents must be non-negative", domain.ErrValidation)
	}

	item, err := s.repo.UpdateItem(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("item updated", zap.String("item_id", id))
	return item, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	// Drop the stock snapshot so availability stops answering for the item.
	if s.cache != nil {
		if err := s.cache.InvalidateStock(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate stock cache",
				zap.String("item_id", id), zap.Error(err))
		}
	}
	// Purchase records for the item stay in the ledger.
	s.logger.Info("item deleted", zap.String("item_id", id))
	return nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}
