package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetstack/inventory/internal/core/domain"
)

func seedItem(t *testing.T, m *MemoryAdapter, id string, quantity int, priceCents int64) {
	t.Helper()
	now := time.Now().UTC()
	err := m.CreateItem(context.Background(), domain.Item{
		ID:         id,
		Name:       "test item " + id,
		Category:   "test",
		PriceCents: priceCents,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)
}

func TestMemoryPurchase_DecrementsAndRecords(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	seedItem(t, m, "item-1", 10, 50)

	item, purchase, err := m.Purchase(ctx, "item-1", 3, "buyer1")
	require.NoError(t, err)
	assert.Equal(t, 7, item.Quantity)
	assert.Equal(t, int64(150), purchase.TotalCents)
	assert.NotEmpty(t, purchase.ID)

	purchases, err := m.ListPurchases(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, purchase.ID, purchases[0].ID)
}

func TestMemoryPurchase_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	seedItem(t, m, "item-1", 2, 50)

	_, _, err := m.Purchase(ctx, "item-1", 3, "buyer1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	item, err := m.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity, "failed purchase must not move stock")

	purchases, err := m.ListPurchases(ctx, "item-1")
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestMemoryPurchase_NotFound(t *testing.T) {
	m := NewMemoryAdapter()
	_, _, err := m.Purchase(context.Background(), "ghost", 1, "buyer1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryPurchase_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	const initialStock = 20
	const totalRequests = 50
	seedItem(t, m, "item-1", initialStock, 100)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, _, err := m.Purchase(ctx, "item-1", 1, fmt.Sprintf("buyer-%d", n)); err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())

	item, err := m.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)

	purchases, err := m.ListPurchases(ctx, "item-1")
	require.NoError(t, err)
	assert.Len(t, purchases, initialStock)
}

// Purchases on different items must not block each other: while one item's
// lock is held, another item's purchase completes.
func TestMemoryPurchase_CrossItemParallelism(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	seedItem(t, m, "item-a", 5, 100)
	seedItem(t, m, "item-b", 5, 100)

	releaseA, err := m.acquireItemLock(ctx, "item-a")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan error, 1)
	go func() {
		_, _, err := m.Purchase(ctx, "item-b", 1, "buyer1")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("purchase on item-b blocked behind item-a's lock")
	}
}

func TestMemoryPurchase_LockWaitTimeout(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	m.lockWait = 50 * time.Millisecond
	seedItem(t, m, "item-1", 5, 100)

	release, err := m.acquireItemLock(ctx, "item-1")
	require.NoError(t, err)

	_, _, err = m.Purchase(ctx, "item-1", 1, "buyer1")
	require.ErrorIs(t, err, domain.ErrRetryable)

	// Lock released: the retry succeeds.
	release()
	item, _, err := m.Purchase(ctx, "item-1", 1, "buyer1")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
}

func TestMemoryPurchase_CancelledContext(t *testing.T) {
	m := NewMemoryAdapter()
	seedItem(t, m, "item-1", 5, 100)

	release, err := m.acquireItemLock(context.Background(), "item-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = m.Purchase(ctx, "item-1", 1, "buyer1")
	require.ErrorIs(t, err, domain.ErrRetryable)

	item, err := m.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity, "cancelled purchase must leave no side effects")
}

// A failure at the commit point rolls the decrement back, so quantity and
// ledger stay mutually consistent.
func TestMemoryPurchase_CommitFaultRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	seedItem(t, m, "item-1", 10, 50)

	boom := errors.New("disk full")
	m.commitFault = func(string) error { return boom }

	_, _, err := m.Purchase(ctx, "item-1", 4, "buyer1")
	require.ErrorIs(t, err, boom)

	item, err := m.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity, "decrement must be rolled back")

	purchases, err := m.ListPurchases(ctx, "item-1")
	require.NoError(t, err)
	assert.Empty(t, purchases, "no ledger entry may survive a failed commit")

	m.commitFault = nil
	item, _, err = m.Purchase(ctx, "item-1", 4, "buyer1")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)
}

func TestMemoryDeleteItem_ReleasesLockEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	seedItem(t, m, "item-1", 5, 100)

	_, _, err := m.Purchase(ctx, "item-1", 1, "buyer1")
	require.NoError(t, err)
	_, ok := m.locks.Load("item-1")
	require.True(t, ok)

	require.NoError(t, m.DeleteItem(ctx, "item-1"))
	_, ok = m.locks.Load("item-1")
	assert.False(t, ok, "deleted items must not leave lock entries behind")

	_, _, err = m.Purchase(ctx, "item-1", 1, "buyer1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRestock(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	seedItem(t, m, "item-1", 7, 50)

	item, err := m.Restock(ctx, "item-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 12, item.Quantity)

	_, err = m.Restock(ctx, "ghost", 5)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryListPurchases_FiltersByItem(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	seedItem(t, m, "item-a", 10, 100)
	seedItem(t, m, "item-b", 10, 100)

	_, _, err := m.Purchase(ctx, "item-a", 1, "buyer1")
	require.NoError(t, err)
	_, _, err = m.Purchase(ctx, "item-b", 2, "buyer1")
	require.NoError(t, err)
	_, _, err = m.Purchase(ctx, "item-a", 3, "buyer2")
	require.NoError(t, err)

	all, err := m.ListPurchases(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	forA, err := m.ListPurchases(ctx, "item-a")
	require.NoError(t, err)
	assert.Len(t, forA, 2)
}
