package storage

import (
	"context"
	"sync"
)

// MemoryCache is the in-process CacheRepository used in embedded mode and in
// tests, mirroring the Redis adapter's semantics without a TTL.
type MemoryCache struct {
	mu    sync.Mutex
	keys  map[string]struct{}
	stock map[string]int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		keys:  make(map[string]struct{}),
		stock: make(map[string]int),
	}
}

func (c *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func (c *MemoryCache) ClearIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

func (c *MemoryCache) SetStock(ctx context.Context, itemID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stock[itemID] = quantity
	return nil
}

func (c *MemoryCache) GetStock(ctx context.Context, itemID string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	quantity, ok := c.stock[itemID]
	return quantity, ok, nil
}

func (c *MemoryCache) InvalidateStock(ctx context.Context, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stock, itemID)
	return nil
}
