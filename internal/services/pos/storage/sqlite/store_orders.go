package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tillworks/till/internal/services/pos/storage"
)

// CreateOrder persists one order header, its line items and the per-line
// clamped stock decrements in a single transaction. Either everything
// commits or nothing is visible; an order can never exist without its items
// or without its reconciliation having applied.
//
// The returned shortfalls report lines whose decrement was clamped at zero
// because stock was insufficient. They are informational: the order still
// commits.
func (s *Store) CreateOrder(ctx context.Context, order storage.NewOrder) (storage.Order, []storage.StockShortfall, error) {
	if err := ctx.Err(); err != nil {
		return storage.Order{}, nil, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Order{}, nil, fmt.Errorf("storage is not configured")
	}
	if len(order.Lines) == 0 {
		return storage.Order{}, nil, fmt.Errorf("order lines are required")
	}
	orderNumber := strings.TrimSpace(order.OrderNumber)
	if orderNumber == "" {
		return storage.Order{}, nil, fmt.Errorf("order number is required")
	}
	if order.OrderedAt.IsZero() {
		return storage.Order{}, nil, fmt.Errorf("ordered-at timestamp is required")
	}
	for _, line := range order.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return storage.Order{}, nil, fmt.Errorf("line product id is required")
		}
		if line.Quantity <= 0 {
			return storage.Order{}, nil, fmt.Errorf("line quantity must be greater than zero")
		}
		if line.UnitPrice < 0 {
			return storage.Order{}, nil, fmt.Errorf("line unit price must not be negative")
		}
	}

	orderedAtMillis := toMillis(order.OrderedAt)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Order{}, nil, fmt.Errorf("begin order transaction: %w", err)
	}

	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO orders (order_number, ordered_at_millis, total_price, payment_method, status)
		 VALUES (?, ?, ?, ?, ?)`,
		orderNumber,
		orderedAtMillis,
		order.TotalPrice,
		strings.TrimSpace(order.PaymentMethod),
		strings.TrimSpace(order.Status),
	)
	if err != nil {
		_ = tx.Rollback()
		return storage.Order{}, nil, fmt.Errorf("insert order: %w", err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return storage.Order{}, nil, fmt.Errorf("order id: %w", err)
	}

	committed := storage.Order{
		ID:            orderID,
		OrderNumber:   orderNumber,
		OrderedAt:     fromMillis(orderedAtMillis),
		TotalPrice:    order.TotalPrice,
		PaymentMethod: strings.TrimSpace(order.PaymentMethod),
		Status:        strings.TrimSpace(order.Status),
		Items:         make([]storage.OrderItem, 0, len(order.Lines)),
	}

	var shortfalls []storage.StockShortfall
	for _, line := range order.Lines {
		productID := strings.TrimSpace(line.ProductID)

		itemResult, err := tx.ExecContext(
			ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price, ordered_at_millis)
			 VALUES (?, ?, ?, ?, ?)`,
			orderID,
			productID,
			line.Quantity,
			line.UnitPrice,
			orderedAtMillis,
		)
		if err != nil {
			_ = tx.Rollback()
			return storage.Order{}, nil, fmt.Errorf("insert order item: %w", err)
		}
		itemID, err := itemResult.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return storage.Order{}, nil, fmt.Errorf("order item id: %w", err)
		}

		// Read stock inside the transaction only to report shortfalls;
		// the decrement itself is evaluated server-side.
		var available int64
		row := tx.QueryRowContext(ctx, `SELECT stock FROM inventory WHERE product_id = ?`, productID)
		if err := row.Scan(&available); err != nil && !errors.Is(err, sql.ErrNoRows) {
			_ = tx.Rollback()
			return storage.Order{}, nil, fmt.Errorf("read stock for %s: %w", productID, err)
		}
		if available < line.Quantity {
			shortfalls = append(shortfalls, storage.StockShortfall{
				ProductID: productID,
				Requested: line.Quantity,
				Available: available,
			})
		}

		if _, err := tx.ExecContext(ctx, decrementSQL, productID, orderedAtMillis, line.Quantity); err != nil {
			_ = tx.Rollback()
			return storage.Order{}, nil, fmt.Errorf("decrement stock for %s: %w", productID, err)
		}

		committed.Items = append(committed.Items, storage.OrderItem{
			ID:        itemID,
			OrderID:   orderID,
			ProductID: productID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			OrderedAt: fromMillis(orderedAtMillis),
		})
	}

	if err := tx.Commit(); err != nil {
		return storage.Order{}, nil, fmt.Errorf("commit order: %w", err)
	}
	return committed, shortfalls, nil
}

// GetOrder returns one order with its items.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (storage.Order, error) {
	if err := ctx.Err(); err != nil {
		return storage.Order{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Order{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, order_number, ordered_at_millis, total_price, payment_method, status
		   FROM orders
		  WHERE id = ?`,
		orderID,
	)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Order{}, storage.ErrNotFound
		}
		return storage.Order{}, fmt.Errorf("get order: %w", err)
	}

	items, err := s.orderItems(ctx, order.ID)
	if err != nil {
		return storage.Order{}, err
	}
	order.Items = items
	return order, nil
}

// ListOrders returns one page of orders, newest first, with items attached.
// The page token is the id of the last order on the previous page.
func (s *Store) ListOrders(ctx context.Context, pageSize int, pageToken string) (storage.OrderPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.OrderPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.OrderPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.OrderPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	var (
		rows *sql.Rows
		err  error
	)
	if pageToken == "" {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, order_number, ordered_at_millis, total_price, payment_method, status
			   FROM orders
			  ORDER BY id DESC
			  LIMIT ?`,
			pageSize+1,
		)
	} else {
		var afterID int64
		afterID, err = strconv.ParseInt(pageToken, 10, 64)
		if err != nil {
			return storage.OrderPage{}, fmt.Errorf("invalid page token: %w", err)
		}
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, order_number, ordered_at_millis, total_price, payment_method, status
			   FROM orders
			  WHERE id < ?
			  ORDER BY id DESC
			  LIMIT ?`,
			afterID,
			pageSize+1,
		)
	}
	if err != nil {
		return storage.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	page := storage.OrderPage{
		Orders: make([]storage.Order, 0, pageSize),
	}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return storage.OrderPage{}, fmt.Errorf("list orders: %w", err)
		}
		page.Orders = append(page.Orders, order)
	}
	if err := rows.Err(); err != nil {
		return storage.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}
	if len(page.Orders) > pageSize {
		page.NextPageToken = strconv.FormatInt(page.Orders[pageSize-1].ID, 10)
		page.Orders = page.Orders[:pageSize]
	}

	for i := range page.Orders {
		items, err := s.orderItems(ctx, page.Orders[i].ID)
		if err != nil {
			return storage.OrderPage{}, err
		}
		page.Orders[i].Items = items
	}
	return page, nil
}

// AllOrders returns the full order history, newest first, with items.
func (s *Store) AllOrders(ctx context.Context) ([]storage.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, order_number, ordered_at_millis, total_price, payment_method, status
		   FROM orders
		  ORDER BY ordered_at_millis DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("all orders: %w", err)
	}
	defer rows.Close()

	var orders []storage.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("all orders: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("all orders: %w", err)
	}

	for i := range orders {
		items, err := s.orderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// Clear irreversibly deletes all order history. Inventory is not rolled
// back; this is an administrative wipe, not a per-order delete.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear order items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear orders: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

func (s *Store) orderItems(ctx context.Context, orderID int64) ([]storage.OrderItem, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, order_id, product_id, quantity, unit_price, ordered_at_millis
		   FROM order_items
		  WHERE order_id = ?
		  ORDER BY id ASC`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	defer rows.Close()

	var items []storage.OrderItem
	for rows.Next() {
		var item storage.OrderItem
		var orderedAt int64
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&orderedAt,
		); err != nil {
			return nil, fmt.Errorf("order items: %w", err)
		}
		item.OrderedAt = fromMillis(orderedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	return items, nil
}

func scanOrder(row rowScanner) (storage.Order, error) {
	var order storage.Order
	var orderedAt int64
	if err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&orderedAt,
		&order.TotalPrice,
		&order.PaymentMethod,
		&order.Status,
	); err != nil {
		return storage.Order{}, err
	}
	order.OrderedAt = fromMillis(orderedAt)
	return order, nil
}

var _ storage.OrderStore = (*Store)(nil)
