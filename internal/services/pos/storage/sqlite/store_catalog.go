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

// UpsertProduct inserts or replaces one catalog record. The legacy stock
// column on products is left untouched; inventory is the stock source of
// truth.
func (s *Store) UpsertProduct(ctx context.Context, product storage.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	productID := strings.TrimSpace(product.ID)
	name := strings.TrimSpace(product.Name)
	if productID == "" {
		return fmt.Errorf("product id is required")
	}
	if name == "" {
		return fmt.Errorf("product name is required")
	}
	if product.Price < 0 {
		return fmt.Errorf("product price must not be negative")
	}
	updatedAt := product.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	deleted := 0
	if product.Deleted {
		deleted = 1
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO products (id, name, price, category, barcode, stock, updated_at, deleted)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   price = excluded.price,
		   category = excluded.category,
		   barcode = excluded.barcode,
		   updated_at = excluded.updated_at,
		   deleted = excluded.deleted`,
		productID,
		name,
		product.Price,
		strings.TrimSpace(product.Category),
		strings.TrimSpace(product.Barcode),
		toMillis(updatedAt),
		deleted,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// GetProduct returns one catalog record by id, including soft-deleted rows.
func (s *Store) GetProduct(ctx context.Context, productID string) (storage.Product, error) {
	if err := ctx.Err(); err != nil {
		return storage.Product{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Product{}, fmt.Errorf("storage is not configured")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return storage.Product{}, fmt.Errorf("product id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, price, category, barcode, updated_at, deleted
		   FROM products
		  WHERE id = ?`,
		productID,
	)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Product{}, storage.ErrNotFound
		}
		return storage.Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ListProducts returns all non-deleted catalog records ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]storage.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, price, category, barcode, updated_at, deleted
		   FROM products
		  WHERE deleted = 0
		  ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []storage.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// SoftDeleteProduct marks one catalog record deleted without removing it.
func (s *Store) SoftDeleteProduct(ctx context.Context, productID string) error {
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

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE products SET deleted = 1, updated_at = ? WHERE id = ?`,
		toMillis(time.Now()),
		productID,
	)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (storage.Product, error) {
	var product storage.Product
	var updatedAt int64
	var deleted int
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Category,
		&product.Barcode,
		&updatedAt,
		&deleted,
	); err != nil {
		return storage.Product{}, err
	}
	product.UpdatedAt = fromMillis(updatedAt)
	product.Deleted = deleted != 0
	return product, nil
}

var _ storage.CatalogStore = (*Store)(nil)
