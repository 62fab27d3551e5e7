package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweetstack/inventory/internal/adapter/storage"
	"github.com/sweetstack/inventory/internal/core/service"
)

const (
	initialStock  = 20
	totalRequests = 50
	priceCents    = 5000
)

// Hammers one item with more concurrent single-unit purchases than it has
// stock and checks that exactly initialStock of them succeed.
func main() {
	ctx := context.Background()

	store := storage.NewMemoryAdapter()
	cache := storage.NewMemoryCache()

	catalog := service.NewCatalogService(store, cache, nil)
	ledger := service.NewLedgerService(store, store, cache, nil)

	item, err := catalog.Create(ctx, service.CreateItemInput{
		Name:       "stress-test-item",
		Category:   "stress",
		PriceCents: priceCents,
		Quantity:   initialStock,
	})
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(buyerID int) {
			defer wg.Done()

			_, _, err := ledger.Purchase(ctx, service.PurchaseRequest{
				ItemID:   item.ID,
				Quantity: 1,
				BuyerID:  fmt.Sprintf("buyer-%d", buyerID),
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d purchases succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	final, err := catalog.Get(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to read item back: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", final.Quantity)

	purchases, err := ledger.ListPurchases(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to read ledger: %v", err)
	}
	fmt.Printf("Ledger Records: %d\n", len(purchases))

	if final.Quantity == 0 && len(purchases) == initialStock {
		fmt.Println("PASS: Stock depleted to 0 with a matching ledger")
	} else {
		fmt.Printf("FAIL: Expected stock 0 with %d records\n", initialStock)
	}
}
