package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sweetstack/inventory/internal/core/domain"
	"github.com/sweetstack/inventory/internal/core/service"
)

// HTTPHandler exposes the catalog and ledger over HTTP. Authentication and
// role checks happen upstream; the verified caller id arrives in X-User-ID.
type HTTPHandler struct {
	catalog *service.CatalogService
	ledger  *service.LedgerService
	logger  *zap.Logger
}

func NewHTTPHandler(catalog *service.CatalogService, ledger *service.LedgerService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{catalog: catalog, ledger: ledger, logger: logger}
}

// Register binds all routes on the given engine.
func (h *HTTPHandler) Register(e *gin.Engine) {
	e.GET("/health", h.healthCheck)

	api := e.Group("/api")
	api.POST("/items", h.createItem)
	api.GET("/items", h.listItems)
	api.GET("/items/search", h.searchItems)
	api.GET("/categories", h.listCategories)
	api.GET("/items/:id", h.getItem)
	api.PUT("/items/:id", h.updateItem)
	api.DELETE("/items/:id", h.deleteItem)
	api.POST("/items/:id/purchase", h.purchase)
	api.POST("/items/:id/restock", h.restock)
	api.GET("/items/:id/purchases", h.listPurchases)
	api.GET("/items/:id/availability", h.availability)
}

func (h *HTTPHandler) createItem(c *gin.Context) {
	var input service.CreateItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.catalog.Create(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *HTTPHandler) getItem(c *gin.Context) {
	item, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HTTPHandler) listItems(c *gin.Context) {
	items, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *HTTPHandler) searchItems(c *gin.Context) {
	filter := domain.ItemFilter{
		Name:     c.Query("name"),
		Category: c.Query("category"),
	}

	var bounds struct {
		MinPriceCents *int64 `form:"min_price_cents"`
		MaxPriceCents *int64 `form:"max_price_cents"`
	}
	if err := c.ShouldBindQuery(&bounds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price bounds"})
		return
	}
	filter.MinPriceCents = bounds.MinPriceCents
	filter.MaxPriceCents = bounds.MaxPriceCents

	items, err := h.catalog.Search(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *HTTPHandler) listCategories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *HTTPHandler) updateItem(c *gin.Context) {
	var patch domain.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.catalog.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HTTPHandler) deleteItem(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *HTTPHandler) purchase(c *gin.Context) {
	buyerID := c.GetHeader("X-User-ID")
	if buyerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	var req struct {
		Quantity  int    `json:"quantity"`
		RequestID string `json:"request_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, purchase, err := h.ledger.Purchase(c.Request.Context(), service.PurchaseRequest{
		ItemID:    c.Param("id"),
		Quantity:  req.Quantity,
		BuyerID:   buyerID,
		RequestID: req.RequestID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "purchase": purchase})
}

func (h *HTTPHandler) restock(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.ledger.Restock(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HTTPHandler) listPurchases(c *gin.Context) {
	purchases, err := h.ledger.ListPurchases(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

func (h *HTTPHandler) availability(c *gin.Context) {
	quantity, err := h.ledger.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_id": c.Param("id"), "quantity": quantity})
}

func (h *HTTPHandler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps the core's error kinds to status codes. Anything unmapped
// is an internal error and never leaks storage details to the client.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
	case errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock"})
	case errors.Is(err, service.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate request"})
	case errors.Is(err, domain.ErrRetryable):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "contention, retry"})
	default:
		h.logger.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
