package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sweetstack/inventory/internal/core/domain"
	"github.com/sweetstack/inventory/internal/port"
)

// ErrDuplicateRequest means a purchase carried a request id that was already
// accepted; the original outcome stands and no stock moved twice.
var ErrDuplicateRequest = errors.New("duplicate request")

const tracerName = "github.com/sweetstack/inventory/ledger"

// PurchaseRequest is one purchase attempt. RequestID is optional: when set
// and a cache is configured, replays of the same buyer+request pair are
// rejected instead of sold twice.
type PurchaseRequest struct {
	ItemID    string
	Quantity  int
	BuyerID   string
	RequestID string
}

// LedgerService is the only component that changes stock and the only writer
// of purchase records. Atomicity and per-item serialization live in the
// LedgerRepository; this layer validates input, enforces idempotency, and
// keeps the stock cache roughly current.
type LedgerService struct {
	ledger  port.LedgerRepository
	catalog port.CatalogRepository
	cache   port.CacheRepository
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewLedgerService creates the engine. cache may be nil, which disables
// idempotency checks and availability caching.
func NewLedgerService(ledger port.LedgerRepository, catalog port.CatalogRepository, cache port.CacheRepository, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		ledger:  ledger,
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

func (s *LedgerService) Purchase(ctx context.Context, req PurchaseRequest) (*domain.Item, *domain.Purchase, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.purchase", trace.WithAttributes(
		attribute.String("item.id", req.ItemID),
		attribute.Int("purchase.quantity", req.Quantity),
	))
	defer span.End()

	if req.Quantity <= 0 {
		return nil, nil, s.reject(span, fmt.Errorf("requested %d: %w", req.Quantity, domain.ErrInvalidQuantity))
	}
	if req.BuyerID == "" {
		return nil, nil, s.reject(span, fmt.Errorf("%w: buyer id is required", domain.ErrValidation))
	}

	idempotencyKey := ""
	if s.cache != nil && req.RequestID != "" {
		idempotencyKey = fmt.Sprintf("purchase:%s:%s", req.BuyerID, req.RequestID)
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, nil, s.reject(span, fmt.Errorf("idempotency check: %w", err))
		}
		if !ok {
			return nil, nil, s.reject(span, ErrDuplicateRequest)
		}
	}

	item, purchase, err := s.ledger.Purchase(ctx, req.ItemID, req.Quantity, req.BuyerID)
	if err != nil {
		// Nothing committed; free the key so the caller can retry under it.
		if idempotencyKey != "" {
			if clearErr := s.cache.ClearIdempotency(ctx, idempotencyKey); clearErr != nil {
				s.logger.Warn("failed to clear idempotency key",
					zap.String("key", idempotencyKey), zap.Error(clearErr))
			}
		}
		return nil, nil, s.reject(span, err)
	}

	s.refreshStockCache(ctx, item)
	span.SetAttributes(attribute.Int("item.quantity_after", item.Quantity))

	s.logger.Info("purchase committed",
		zap.String("purchase_id", purchase.ID),
		zap.String("item_id", item.ID),
		zap.String("buyer_id", purchase.BuyerID),
		zap.Int("quantity", purchase.Quantity),
		zap.Int64("total_cents", purchase.TotalCents),
		zap.Int("remaining", item.Quantity),
	)
	return item, purchase, nil
}

func (s *LedgerService) Restock(ctx context.Context, itemID string, quantity int) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.restock", trace.WithAttributes(
		attribute.String("item.id", itemID),
		attribute.Int("restock.quantity", quantity),
	))
	defer span.End()

	if quantity <= 0 {
		return nil, s.reject(span, fmt.Errorf("requested %d: %w", quantity, domain.ErrInvalidQuantity))
	}

	item, err := s.ledger.Restock(ctx, itemID, quantity)
	if err != nil {
		return nil, s.reject(span, err)
	}

	s.refreshStockCache(ctx, item)
	span.SetAttributes(attribute.Int("item.quantity_after", item.Quantity))

	// Restocks are logged rather than ledgered: only sales get audit records.
	s.logger.Info("restock applied",
		zap.String("item_id", item.ID),
		zap.Int("quantity", quantity),
		zap.Int("stock", item.Quantity),
	)
	return item, nil
}

func (s *LedgerService) ListPurchases(ctx context.Context, itemID string) ([]domain.Purchase, error) {
	return s.ledger.ListPurchases(ctx, itemID)
}

// Availability answers "how many are left" from the stock cache when it can,
// falling back to the catalog. The answer may trail in-flight transactions.
func (s *LedgerService) Availability(ctx context.Context, itemID string) (int, error) {
	if s.cache != nil {
		quantity, ok, err := s.cache.GetStock(ctx, itemID)
		if err != nil {
			s.logger.Warn("stock cache read failed", zap.String("item_id", itemID), zap.Error(err))
		} else if ok {
			return quantity, nil
		}
	}

	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	s.refreshStockCache(ctx, item)
	return item.Quantity, nil
}

// refreshStockCache is best effort: the database already holds the truth, so
// a cache write failure is logged and swallowed.
func (s *LedgerService) refreshStockCache(ctx context.Context, item *domain.Item) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetStock(ctx, item.ID, item.Quantity); err != nil {
		s.logger.Warn("failed to refresh stock cache",
			zap.String("item_id", item.ID), zap.Error(err))
	}
}

func (s *LedgerService) reject(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
