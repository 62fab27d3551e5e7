package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/sweetstack/inventory/internal/core/domain"
)

// MySQL error numbers the adapter translates into domain error kinds.
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrCheckViolation  = 3819
)

const itemColumns = `id, name, category, price_cents, quantity, description, image_url, created_at, updated_at`

// MySQLAdapter implements both CatalogRepository and LedgerRepository on a
// single MySQL database. Per-item serialization comes from InnoDB row locks:
// purchase and restock read the item row FOR UPDATE inside a transaction, so
// two operations on the same item queue behind each other while different
// items proceed in parallel.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item domain.Item) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO items (id, name, category, price_cents, quantity, description, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Category, item.PriceCents, item.Quantity,
		item.Description, nullString(item.ImageURL), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", translateMySQLErr(err))
	}
	return nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (m *MySQLAdapter) SearchItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Name != "" {
		clauses = append(clauses, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Category != "" {
		clauses = append(clauses, "category LIKE ?")
		args = append(args, "%"+filter.Category+"%")
	}
	if filter.MinPriceCents != nil {
		clauses = append(clauses, "price_cents >= ?")
		args = append(args, *filter.MinPriceCents)
	}
	if filter.MaxPriceCents != nil {
		clauses = append(clauses, "price_cents <= ?")
		args = append(args, *filter.MaxPriceCents)
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (m *MySQLAdapter) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	_, err := m.db.ExecContext(ctx, `
		UPDATE items SET
			name = COALESCE(?, name),
			category = COALESCE(?, category),
			price_cents = COALESCE(?, price_cents),
			description = COALESCE(?, description),
			image_url = COALESCE(?, image_url),
			updated_at = ?
		WHERE id = ?`,
		patch.Name, patch.Category, patch.PriceCents, patch.Description, patch.ImageURL,
		time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", translateMySQLErr(err))
	}
	return m.GetItem(ctx, id)
}

func (m *MySQLAdapter) DeleteItem(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT category FROM items ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Purchase locks the item row, checks stock, decrements, and appends the
// purchase record, all in one transaction. The deferred Rollback is a no-op
// after Commit and guarantees nothing partial survives any error path,
// including context cancellation before the commit.
func (m *MySQLAdapter) Purchase(ctx context.Context, itemID string, quantity int, buyerID string) (*domain.Item, *domain.Purchase, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	item, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item.Quantity < quantity {
		return nil, nil, fmt.Errorf("item %s has %d in stock, requested %d: %w",
			itemID, item.Quantity, quantity, domain.ErrInsufficientStock)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE items SET quantity = quantity - ?, updated_at = ? WHERE id = ?`,
		quantity, now, itemID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("decrement stock: %w", translateMySQLErr(err))
	}

	// Total from the price read under the lock, never a later re-read.
	purchase := domain.Purchase{
		ID:         uuid.NewString(),
		BuyerID:    buyerID,
		ItemID:     itemID,
		Quantity:   quantity,
		TotalCents: int64(quantity) * item.PriceCents,
		CreatedAt:  now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, buyer_id, item_id, quantity, total_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		purchase.ID, purchase.BuyerID, purchase.ItemID, purchase.Quantity,
		purchase.TotalCents, purchase.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("append purchase: %w", translateMySQLErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit purchase: %w", translateMySQLErr(err))
	}

	item.Quantity -= quantity
	item.UpdatedAt = now
	return item, &purchase, nil
}

func (m *MySQLAdapter) Restock(ctx context.Context, itemID string, quantity int) (*domain.Item, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	item, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE items SET quantity = quantity + ?, updated_at = ? WHERE id = ?`,
		quantity, now, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("increment stock: %w", translateMySQLErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit restock: %w", translateMySQLErr(err))
	}

	item.Quantity += quantity
	item.UpdatedAt = now
	return item, nil
}

func (m *MySQLAdapter) ListPurchases(ctx context.Context, itemID string) ([]domain.Purchase, error) {
	query := `SELECT id, buyer_id, item_id, quantity, total_cents, created_at FROM purchases`
	var args []any
	if itemID != "" {
		query += ` WHERE item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.BuyerID, &p.ItemID, &p.Quantity, &p.TotalCents, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func lockItem(ctx context.Context, tx *sql.Tx, itemID string) (*domain.Item, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ? FOR UPDATE`, itemID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock item: %w", translateMySQLErr(err))
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var (
		item     domain.Item
		imageURL sql.NullString
	)
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.PriceCents,
		&item.Quantity, &item.Description, &imageURL, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.ImageURL = imageURL.String
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]domain.Item, error) {
	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// translateMySQLErr maps lock contention to ErrRetryable (nothing committed,
// safe to retry) and the schema's quantity CHECK, the second line of defense
// behind the FOR UPDATE read, to ErrInsufficientStock.
func translateMySQLErr(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
		return fmt.Errorf("%v: %w", err, domain.ErrRetryable)
	case mysqlErrCheckViolation:
		return fmt.Errorf("%v: %w", err, domain.ErrInsufficientStock)
	}
	return err
}
