package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tillworks/till/internal/services/pos/storage"
)

// decrementSQL applies a clamped stock decrement server-side. The upsert form
// means a product without an inventory record decrements from zero, which
// stays zero; no read-then-write happens in application code.
const decrementSQL = `INSERT INTO inventory (product_id, stock, min_threshold, location, updated_at)
VALUES (?, 0, 0, '', ?)
ON CONFLICT(product_id) DO UPDATE SET
  stock = MAX(inventory.stock - ?, 0),
  updated_at = excluded.updated_at`

// GetStock returns the current stock for a product. A missing record means
// zero stock, not an error.
func (s *Store) GetStock(ctx context.Context, productID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return 0, fmt.Errorf("product id is required")
	}

	var stock int64
	row := s.sqlDB.QueryRowContext(ctx, `SELECT stock FROM inventory WHERE product_id = ?`, productID)
	if err := row.Scan(&stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return stock, nil
}

// SetStock upserts an absolute stock value. Negative input is clamped to 0.
func (s *Store) SetStock(ctx context.Context, productID string, quantity int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("product id is required")
	}
	if quantity < 0 {
		quantity = 0
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO inventory (product_id, stock, min_threshold, location, updated_at)
		 VALUES (?, ?, 0, '', ?)
		 ON CONFLICT(product_id) DO UPDATE SET
		   stock = excluded.stock,
		   updated_at = excluded.updated_at`,
		productID,
		quantity,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	return nil
}

// Decrement reduces stock by quantity, floored at zero. Deficits are
// absorbed silently per the store contract; callers needing a hard
// insufficient-stock signal must check GetStock first.
func (s *Store) Decrement(ctx context.Context, productID string, quantity int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("product id is required")
	}
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	if quantity == 0 {
		return nil
	}

	if _, err := s.sqlDB.ExecContext(ctx, decrementSQL, productID, toMillis(time.Now()), quantity); err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}

// BulkDecrement applies a clamped decrement for every line in one
// transaction.
func (s *Store) BulkDecrement(ctx context.Context, lines []storage.OrderLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk decrement: %w", err)
	}
	now := toMillis(time.Now())
	for _, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			_ = tx.Rollback()
			return fmt.Errorf("product id is required")
		}
		if line.Quantity < 0 {
			_ = tx.Rollback()
			return fmt.Errorf("quantity must not be negative")
		}
		if line.Quantity == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, decrementSQL, productID, now, line.Quantity); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("decrement stock for %s: %w", productID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk decrement: %w", err)
	}
	return nil
}

// UpsertInventoryRecord inserts or replaces one inventory record. Stock is
// clamped at zero so the record never violates the non-negative invariant.
func (s *Store) UpsertInventoryRecord(ctx context.Context, record storage.InventoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	productID := strings.TrimSpace(record.ProductID)
	if productID == "" {
		return fmt.Errorf("product id is required")
	}
	stock := record.Stock
	if stock < 0 {
		stock = 0
	}
	minThreshold := record.MinThreshold
	if minThreshold < 0 {
		minThreshold = 0
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO inventory (product_id, stock, min_threshold, location, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET
		   stock = excluded.stock,
		   min_threshold = excluded.min_threshold,
		   location = excluded.location,
		   updated_at = excluded.updated_at`,
		productID,
		stock,
		minThreshold,
		strings.TrimSpace(record.Location),
		toMillis(updatedAt),
	)
	if err != nil {
		if isCheckConstraintViolation(err) {
			return fmt.Errorf("upsert inventory record: stock must not be negative: %w", err)
		}
		return fmt.Errorf("upsert inventory record: %w", err)
	}
	return nil
}

// ListInventory returns all inventory records ordered by product id.
func (s *Store) ListInventory(ctx context.Context) ([]storage.InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT product_id, stock, min_threshold, location, updated_at
		   FROM inventory
		  ORDER BY product_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var records []storage.InventoryRecord
	for rows.Next() {
		var record storage.InventoryRecord
		var updatedAt int64
		if err := rows.Scan(
			&record.ProductID,
			&record.Stock,
			&record.MinThreshold,
			&record.Location,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("list inventory: %w", err)
		}
		record.UpdatedAt = fromMillis(updatedAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return records, nil
}

var _ storage.InventoryStore = (*Store)(nil)
