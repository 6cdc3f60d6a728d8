// Package storage defines persistence contracts for point-of-sale state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Product stores one catalog entry. Products are reference data: they are
// created by the catalog loader and soft-deleted, never removed.
type Product struct {
	ID        string
	Name      string
	Price     int64 // minor currency unit
	Category  string
	Barcode   string
	UpdatedAt time.Time
	Deleted   bool
}

// InventoryRecord stores the current stock count for one product.
type InventoryRecord struct {
	ProductID    string
	Stock        int64
	MinThreshold int64
	Location     string
	UpdatedAt    time.Time
}

// OrderLine is one product-quantity-price tuple supplied at placement time.
// UnitPrice is a snapshot of the catalog price; it is never re-read later.
type OrderLine struct {
	ProductID string
	UnitPrice int64
	Quantity  int64
}

// Total returns the line total in minor currency units.
func (l OrderLine) Total() int64 {
	return l.UnitPrice * l.Quantity
}

// OrderItem is the durable counterpart of an OrderLine, created atomically
// with its order header.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID string
	Quantity  int64
	UnitPrice int64
	OrderedAt time.Time
}

// Order stores one committed checkout transaction and its line items.
type Order struct {
	ID            int64
	OrderNumber   string
	OrderedAt     time.Time
	TotalPrice    int64
	PaymentMethod string
	Status        string
	Items         []OrderItem
}

// NewOrder carries the fields of an order about to be persisted. The row id
// is assigned by the store.
type NewOrder struct {
	OrderNumber   string
	OrderedAt     time.Time
	TotalPrice    int64
	PaymentMethod string
	Status        string
	Lines         []OrderLine
}

// StockShortfall reports a decrement that was clamped at zero because the
// requested quantity exceeded the available stock.
type StockShortfall struct {
	ProductID string
	Requested int64
	Available int64
}

// OrderPage stores one page of order records, newest first.
type OrderPage struct {
	Orders        []Order
	NextPageToken string
}

// DailySalesRow aggregates committed order-item revenue for one local
// calendar day.
type DailySalesRow struct {
	Date         string // YYYY-MM-DD
	TotalRevenue int64
	OrderCount   int64
}

// DailyProductSalesRow aggregates one product's committed revenue for one
// local calendar day.
type DailyProductSalesRow struct {
	Date          string
	ProductID     string
	ProductName   string
	TotalQuantity int64
	TotalRevenue  int64
}

// TopProductRow aggregates one product's revenue across all history.
type TopProductRow struct {
	ProductID     string
	ProductName   string
	TotalQuantity int64
	TotalRevenue  int64
}

// CatalogStore persists product reference data.
type CatalogStore interface {
	UpsertProduct(ctx context.Context, product Product) error
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	SoftDeleteProduct(ctx context.Context, productID string) error
}

// InventoryStore persists per-product stock counts. Absence of a record
// means zero stock; no read operation fails on a missing product.
type InventoryStore interface {
	GetStock(ctx context.Context, productID string) (int64, error)
	SetStock(ctx context.Context, productID string, quantity int64) error
	Decrement(ctx context.Context, productID string, quantity int64) error
	BulkDecrement(ctx context.Context, lines []OrderLine) error
	UpsertInventoryRecord(ctx context.Context, record InventoryRecord) error
	ListInventory(ctx context.Context) ([]InventoryRecord, error)
}

// OrderStore persists order headers and their line items. CreateOrder writes
// the header, its items and the per-line stock decrements in one transaction;
// either all of them commit or none are visible.
type OrderStore interface {
	CreateOrder(ctx context.Context, order NewOrder) (Order, []StockShortfall, error)
	GetOrder(ctx context.Context, orderID int64) (Order, error)
	ListOrders(ctx context.Context, pageSize int, pageToken string) (OrderPage, error)
	AllOrders(ctx context.Context) ([]Order, error)
	Clear(ctx context.Context) error
}

// ReportStore serves read-only aggregates over committed order items.
type ReportStore interface {
	DailySales(ctx context.Context) ([]DailySalesRow, error)
	DailyProductSales(ctx context.Context) ([]DailyProductSalesRow, error)
	TopProducts(ctx context.Context, limit int) ([]TopProductRow, error)
}
