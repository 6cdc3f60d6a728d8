package sqlite

import (
	"context"
	"fmt"

	"github.com/tillworks/till/internal/services/pos/storage"
)

// DailySales groups committed order-item revenue by local calendar day,
// ascending. Only persisted rows contribute; in-flight or rolled-back
// orders never appear.
func (s *Store) DailySales(ctx context.Context) ([]storage.DailySalesRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT date(ordered_at_millis / 1000, 'unixepoch', 'localtime') AS day,
		        SUM(quantity * unit_price) AS revenue,
		        COUNT(DISTINCT order_id) AS order_count
		   FROM order_items
		  GROUP BY day
		  ORDER BY day ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}
	defer rows.Close()

	var report []storage.DailySalesRow
	for rows.Next() {
		var row storage.DailySalesRow
		if err := rows.Scan(&row.Date, &row.TotalRevenue, &row.OrderCount); err != nil {
			return nil, fmt.Errorf("daily sales: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}
	return report, nil
}

// DailyProductSales groups committed revenue by local calendar day and
// product, date ascending then revenue descending. Product names come from
// the catalog; an item whose product was never loaded falls back to its id.
func (s *Store) DailyProductSales(ctx context.Context) ([]storage.DailyProductSalesRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT date(oi.ordered_at_millis / 1000, 'unixepoch', 'localtime') AS day,
		        oi.product_id,
		        COALESCE(p.name, oi.product_id) AS product_name,
		        SUM(oi.quantity) AS total_quantity,
		        SUM(oi.quantity * oi.unit_price) AS revenue
		   FROM order_items oi
		   LEFT JOIN products p ON p.id = oi.product_id
		  GROUP BY day, oi.product_id
		  ORDER BY day ASC, revenue DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("daily product sales: %w", err)
	}
	defer rows.Close()

	var report []storage.DailyProductSalesRow
	for rows.Next() {
		var row storage.DailyProductSalesRow
		if err := rows.Scan(
			&row.Date,
			&row.ProductID,
			&row.ProductName,
			&row.TotalQuantity,
			&row.TotalRevenue,
		); err != nil {
			return nil, fmt.Errorf("daily product sales: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily product sales: %w", err)
	}
	return report, nil
}

// TopProducts returns the top-N products by all-time revenue, descending.
func (s *Store) TopProducts(ctx context.Context, limit int) ([]storage.TopProductRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT oi.product_id,
		        COALESCE(p.name, oi.product_id) AS product_name,
		        SUM(oi.quantity) AS total_quantity,
		        SUM(oi.quantity * oi.unit_price) AS revenue
		   FROM order_items oi
		   LEFT JOIN products p ON p.id = oi.product_id
		  GROUP BY oi.product_id
		  ORDER BY revenue DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var report []storage.TopProductRow
	for rows.Next() {
		var row storage.TopProductRow
		if err := rows.Scan(
			&row.ProductID,
			&row.ProductName,
			&row.TotalQuantity,
			&row.TotalRevenue,
		); err != nil {
			return nil, fmt.Errorf("top products: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return report, nil
}

var _ storage.ReportStore = (*Store)(nil)
