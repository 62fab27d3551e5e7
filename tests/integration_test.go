package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sweetstack/inventory/internal/adapter/handler"
	"github.com/sweetstack/inventory/internal/adapter/storage"
	"github.com/sweetstack/inventory/internal/core/domain"
	"github.com/sweetstack/inventory/internal/core/service"
)

// Spins up the full stack on the embedded store behind a real HTTP server.
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryAdapter()
	cache := storage.NewMemoryCache()
	logger := zaptest.NewLogger(t)
	catalog := service.NewCatalogService(store, cache, logger)
	ledger := service.NewLedgerService(store, store, cache, logger)

	router := gin.New()
	handler.NewHTTPHandler(catalog, ledger, logger).Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any, userID string) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestIntegration_PurchaseLifecycle(t *testing.T) {
	server := setupServer(t)

	// Create an item with stock 10 at 50 cents.
	resp, body := postJSON(t, server.URL+"/api/items", map[string]any{
		"name":        "kaju katli",
		"category":    "milk-based",
		"price_cents": 50,
		"quantity":    10,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var item domain.Item
	require.NoError(t, json.Unmarshal(body, &item))

	// Purchase 3: stock 7, total 150.
	resp, body = postJSON(t, server.URL+"/api/items/"+item.ID+"/purchase",
		map[string]any{"quantity": 3}, "buyer1")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var purchaseResp struct {
		Item     domain.Item     `json:"item"`
		Purchase domain.Purchase `json:"purchase"`
	}
	require.NoError(t, json.Unmarshal(body, &purchaseResp))
	assert.Equal(t, 7, purchaseResp.Item.Quantity)
	assert.Equal(t, int64(150), purchaseResp.Purchase.TotalCents)

	// Purchase 10: conflict, stock unchanged.
	resp, _ = postJSON(t, server.URL+"/api/items/"+item.ID+"/purchase",
		map[string]any{"quantity": 10}, "buyer2")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var got domain.Item
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/items/"+item.ID, &got))
	assert.Equal(t, 7, got.Quantity)

	// Restock 5: stock 12.
	resp, body = postJSON(t, server.URL+"/api/items/"+item.ID+"/restock",
		map[string]any{"quantity": 5}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 12, got.Quantity)

	// Purchase 0: rejected.
	resp, _ = postJSON(t, server.URL+"/api/items/"+item.ID+"/purchase",
		map[string]any{"quantity": 0}, "buyer1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The ledger holds exactly the one successful sale.
	var histResp struct {
		Purchases []domain.Purchase `json:"purchases"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/items/"+item.ID+"/purchases", &histResp))
	require.Len(t, histResp.Purchases, 1)
	assert.Equal(t, "buyer1", histResp.Purchases[0].BuyerID)
}

func TestIntegration_ConcurrentExhaustion(t *testing.T) {
	server := setupServer(t)

	const initialStock = 10
	const totalRequests = 25

	resp, body := postJSON(t, server.URL+"/api/items", map[string]any{
		"name":        "limited drop",
		"category":    "special",
		"price_cents": 100,
		"quantity":    initialStock,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var item domain.Item
	require.NoError(t, json.Unmarshal(body, &item))

	var successCount, conflictCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			resp, _ := postJSON(t, server.URL+"/api/items/"+item.ID+"/purchase",
				map[string]any{"quantity": 1}, fmt.Sprintf("buyer-%d", n))
			switch resp.StatusCode {
			case http.StatusOK:
				successCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			default:
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load(), "successes must exactly exhaust stock")
	assert.Equal(t, int32(totalRequests-initialStock), conflictCount.Load())

	var got domain.Item
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/items/"+item.ID, &got))
	assert.Equal(t, 0, got.Quantity)

	var histResp struct {
		Purchases []domain.Purchase `json:"purchases"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/items/"+item.ID+"/purchases", &histResp))
	assert.Len(t, histResp.Purchases, initialStock)
}

func TestIntegration_HistorySurvivesDeletion(t *testing.T) {
	server := setupServer(t)

	resp, body := postJSON(t, server.URL+"/api/items", map[string]any{
		"name":        "discontinued bar",
		"category":    "chocolate",
		"price_cents": 200,
		"quantity":    5,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var item domain.Item
	require.NoError(t, json.Unmarshal(body, &item))

	resp, _ = postJSON(t, server.URL+"/api/items/"+item.ID+"/purchase",
		map[string]any{"quantity": 2}, "buyer1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/items/"+item.ID, nil)
	require.NoError(t, err)
	deleteResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	deleteResp.Body.Close()
	require.Equal(t, http.StatusOK, deleteResp.StatusCode)

	assert.Equal(t, http.StatusNotFound, getJSON(t, server.URL+"/api/items/"+item.ID, nil))

	// Audit trail outlives the item, price and quantity intact.
	var histResp struct {
		Purchases []domain.Purchase `json:"purchases"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/items/"+item.ID+"/purchases", &histResp))
	require.Len(t, histResp.Purchases, 1)
	assert.Equal(t, int64(400), histResp.Purchases[0].TotalCents)
	assert.Equal(t, 2, histResp.Purchases[0].Quantity)
}
