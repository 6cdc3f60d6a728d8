// Package templates renders the operator dashboard pages.
package templates

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DailyRow is one rendered row of the daily sales table.
type DailyRow struct {
	Date       string
	Revenue    int64
	OrderCount int64
}

// TopProductRow is one rendered row of the top-products table.
type TopProductRow struct {
	ProductID string
	Name      string
	Revenue   int64
}

// LowStockRow is one rendered low-stock alert.
type LowStockRow struct {
	ProductID    string
	Stock        int64
	MinThreshold int64
}

// IndexData holds everything the operator index renders.
type IndexData struct {
	Title       string
	Daily       []DailyRow
	TopProducts []TopProductRow
	LowStock    []LowStockRow
}

var printer = message.NewPrinter(language.English)

// FormatCents renders an integer cent amount as a currency string with
// thousands separators.
func FormatCents(cents int64) string {
	return printer.Sprintf("$%.2f", float64(cents)/100)
}

// IndexPage renders the operator dashboard index.
func IndexPage(data IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := data.Title
		if title == "" {
			title = "Till Dashboard"
		}
		if _, err := fmt.Fprintf(w, "<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title></head><body>", html.EscapeString(title)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<h1>%s</h1>", html.EscapeString(title)); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<section><h2>Daily Sales</h2><table><thead><tr><th>Date</th><th>Revenue</th><th>Orders</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, row := range data.Daily {
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%d</td></tr>",
				html.EscapeString(row.Date), FormatCents(row.Revenue), row.OrderCount); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tbody></table></section>"); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<section><h2>Top Products</h2><table><thead><tr><th>Product</th><th>Revenue</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, row := range data.TopProducts {
			name := row.Name
			if name == "" {
				name = row.ProductID
			}
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td></tr>",
				html.EscapeString(name), FormatCents(row.Revenue)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tbody></table></section>"); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<section><h2>Low Stock</h2>"); err != nil {
			return err
		}
		if len(data.LowStock) == 0 {
			if _, err := io.WriteString(w, "<p>No alerts.</p>"); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "<ul>"); err != nil {
				return err
			}
			for _, row := range data.LowStock {
				if _, err := fmt.Fprintf(w, "<li>%s: %d on hand (minimum %d)</li>",
					html.EscapeString(row.ProductID), row.Stock, row.MinThreshold); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</ul>"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</section></body></html>"); err != nil {
			return err
		}
		return nil
	})
}
