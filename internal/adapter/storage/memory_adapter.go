package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweetstack/inventory/internal/core/domain"
)

// DefaultLockWait bounds how long a purchase or restock waits for another
// operation on the same item before giving up with ErrRetryable.
const DefaultLockWait = 2 * time.Second

// MemoryAdapter implements CatalogRepository and LedgerRepository in process,
// for embedded deployments and tests. Purchase and restock serialize per item
// on a one-slot channel acting as a lock, so operations on different items
// never block each other. The purchases slice is append-only.
type MemoryAdapter struct {
	mu        sync.RWMutex
	items     map[string]*domain.Item
	purchases []domain.Purchase

	locks    sync.Map // itemID -> chan struct{}, buffered 1
	lockWait time.Duration

	// commitFault, when set, fails a purchase after the stock check, standing
	// in for a storage failure at the commit point. Test use only.
	commitFault func(itemID string) error
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		items:    make(map[string]*domain.Item),
		lockWait: DefaultLockWait,
	}
}

// acquireItemLock takes the per-item lock or fails with ErrRetryable once the
// context is done or the wait bound elapses. Nothing has been touched at that
// point, so the caller can retry safely.
func (m *MemoryAdapter) acquireItemLock(ctx context.Context, itemID string) (release func(), err error) {
	v, _ := m.locks.LoadOrStore(itemID, make(chan struct{}, 1))
	lock := v.(chan struct{})

	timer := time.NewTimer(m.lockWait)
	defer timer.Stop()

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for item %s: %v: %w", itemID, ctx.Err(), domain.ErrRetryable)
	case <-timer.C:
		return nil, fmt.Errorf("lock wait on item %s exceeded %v: %w", itemID, m.lockWait, domain.ErrRetryable)
	}
}

func (m *MemoryAdapter) CreateItem(ctx context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := item
	m.items[item.ID] = &saved
	return nil
}

func (m *MemoryAdapter) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	snapshot := *item
	return &snapshot, nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	return m.SearchItems(ctx, domain.ItemFilter{})
}

func (m *MemoryAdapter) SearchItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		if filter.Name != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Category != "" && !strings.Contains(strings.ToLower(item.Category), strings.ToLower(filter.Category)) {
			continue
		}
		if filter.MinPriceCents != nil && item.PriceCents < *filter.MinPriceCents {
			continue
		}
		if filter.MaxPriceCents != nil && item.PriceCents > *filter.MaxPriceCents {
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (m *MemoryAdapter) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.PriceCents != nil {
		item.PriceCents = *patch.PriceCents
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.ImageURL != nil {
		item.ImageURL = *patch.ImageURL
	}
	item.UpdatedAt = time.Now().UTC()
	snapshot := *item
	return &snapshot, nil
}

func (m *MemoryAdapter) DeleteItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	// Drop the lock entry so item churn cannot grow the table without
	// bound. Ids are never reused: an in-flight operation still holding the
	// old channel finds the item gone under mu and fails with NotFound.
	m.locks.Delete(id)
	return nil
}

func (m *MemoryAdapter) ListCategories(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var categories []string
	for _, item := range m.items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		categories = append(categories, item.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (m *MemoryAdapter) Purchase(ctx context.Context, itemID string, quantity int, buyerID string) (*domain.Item, *domain.Purchase, error) {
	release, err := m.acquireItemLock(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if item.Quantity < quantity {
		return nil, nil, fmt.Errorf("item %s has %d in stock, requested %d: %w",
			itemID, item.Quantity, quantity, domain.ErrInsufficientStock)
	}

	now := time.Now().UTC()
	item.Quantity -= quantity
	item.UpdatedAt = now

	if m.commitFault != nil {
		if err := m.commitFault(itemID); err != nil {
			// Roll the decrement back so quantity and ledger stay consistent.
			item.Quantity += quantity
			return nil, nil, fmt.Errorf("commit purchase: %w", err)
		}
	}

	purchase := domain.Purchase{
		ID:         uuid.NewString(),
		BuyerID:    buyerID,
		ItemID:     itemID,
		Quantity:   quantity,
		TotalCents: int64(quantity) * item.PriceCents,
		CreatedAt:  now,
	}
	m.purchases = append(m.purchases, purchase)

	snapshot := *item
	return &snapshot, &purchase, nil
}

func (m *MemoryAdapter) Restock(ctx context.Context, itemID string, quantity int) (*domain.Item, error) {
	release, err := m.acquireItemLock(ctx, itemID)
	if err != nil {
		return nil, err
	}
	defer release()

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	item.Quantity += quantity
	item.UpdatedAt = time.Now().UTC()
	snapshot := *item
	return &snapshot, nil
}

func (m *MemoryAdapter) ListPurchases(ctx context.Context, itemID string) ([]domain.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(m.purchases))
	for i := len(m.purchases) - 1; i >= 0; i-- {
		p := m.purchases[i]
		if itemID != "" && p.ItemID != itemID {
			continue
		}
		purchases = append(purchases, p)
	}
	return purchases, nil
}
