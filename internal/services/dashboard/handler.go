// Package dashboard serves read-only sales reports and inventory alerts for
// operators. It never writes to the pos database.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tillworks/till/internal/platform/timeouts"
	"github.com/tillworks/till/internal/services/dashboard/templates"
	"github.com/tillworks/till/internal/services/pos/storage"
)

// defaultTopProductLimit caps the top-products report when no limit is given.
const defaultTopProductLimit = 10

// Stores is the read surface the dashboard needs from pos storage.
type Stores interface {
	storage.ReportStore
	storage.InventoryStore
}

// Handler routes dashboard requests.
type Handler struct {
	stores Stores
}

// NewHandler builds the dashboard handler over the given stores.
func NewHandler(stores Stores) *Handler {
	return &Handler{stores: stores}
}

// Mux returns the route table for the dashboard.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/api/reports/daily", h.handleDailySales)
	mux.HandleFunc("/api/reports/daily-products", h.handleDailyProductSales)
	mux.HandleFunc("/api/reports/top-products", h.handleTopProducts)
	mux.HandleFunc("/api/inventory", h.handleInventory)
	mux.HandleFunc("/api/alerts/low-stock", h.handleLowStock)
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type dailySalesResponse struct {
	Date       string `json:"date"`
	Revenue    int64  `json:"revenue"`
	OrderCount int64  `json:"order_count"`
}

type dailyProductSalesResponse struct {
	Date        string `json:"date"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	Revenue     int64  `json:"revenue"`
}

type topProductResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

type inventoryResponse struct {
	ProductID    string `json:"product_id"`
	Stock        int64  `json:"stock"`
	MinThreshold int64  `json:"min_threshold"`
	Location     string `json:"location,omitempty"`
}

func (h *Handler) handleDailySales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	rows, err := h.stores.DailySales(ctx)
	if err != nil {
		http.Error(w, "report unavailable", http.StatusServiceUnavailable)
		return
	}
	resp := make([]dailySalesResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, dailySalesResponse{
			Date:       row.Date,
			Revenue:    row.TotalRevenue,
			OrderCount: row.OrderCount,
		})
	}
	writeJSON(w, resp)
}

func (h *Handler) handleDailyProductSales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	rows, err := h.stores.DailyProductSales(ctx)
	if err != nil {
		http.Error(w, "report unavailable", http.StatusServiceUnavailable)
		return
	}
	resp := make([]dailyProductSalesResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, dailyProductSalesResponse{
			Date:        row.Date,
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.TotalQuantity,
			Revenue:     row.TotalRevenue,
		})
	}
	writeJSON(w, resp)
}

func (h *Handler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopProductLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	rows, err := h.stores.TopProducts(ctx, limit)
	if err != nil {
		http.Error(w, "report unavailable", http.StatusServiceUnavailable)
		return
	}
	resp := make([]topProductResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, topProductResponse{
			ProductID: row.ProductID,
			Name:      row.ProductName,
			Quantity:  row.TotalQuantity,
			Revenue:   row.TotalRevenue,
		})
	}
	writeJSON(w, resp)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	records, err := h.stores.ListInventory(ctx)
	if err != nil {
		http.Error(w, "inventory unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, toInventoryResponses(records))
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	records, err := h.stores.ListInventory(ctx)
	if err != nil {
		http.Error(w, "inventory unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, toInventoryResponses(lowStock(records)))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	daily, err := h.stores.DailySales(ctx)
	if err != nil {
		http.Error(w, "report unavailable", http.StatusServiceUnavailable)
		return
	}
	top, err := h.stores.TopProducts(ctx, defaultTopProductLimit)
	if err != nil {
		http.Error(w, "report unavailable", http.StatusServiceUnavailable)
		return
	}
	records, err := h.stores.ListInventory(ctx)
	if err != nil {
		http.Error(w, "inventory unavailable", http.StatusServiceUnavailable)
		return
	}

	data := templates.IndexData{Title: "Till Dashboard"}
	for _, row := range daily {
		data.Daily = append(data.Daily, templates.DailyRow{
			Date:       row.Date,
			Revenue:    row.TotalRevenue,
			OrderCount: row.OrderCount,
		})
	}
	for _, row := range top {
		data.TopProducts = append(data.TopProducts, templates.TopProductRow{
			ProductID: row.ProductID,
			Name:      row.ProductName,
			Revenue:   row.TotalRevenue,
		})
	}
	for _, record := range lowStock(records) {
		data.LowStock = append(data.LowStock, templates.LowStockRow{
			ProductID:    record.ProductID,
			Stock:        record.Stock,
			MinThreshold: record.MinThreshold,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.IndexPage(data).Render(r.Context(), w); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

// lowStock filters records whose stock fell under their configured minimum.
// Records without a minimum never alert.
func lowStock(records []storage.InventoryRecord) []storage.InventoryRecord {
	var out []storage.InventoryRecord
	for _, record := range records {
		if record.MinThreshold > 0 && record.Stock < record.MinThreshold {
			out = append(out, record)
		}
	}
	return out
}

func toInventoryResponses(records []storage.InventoryRecord) []inventoryResponse {
	resp := make([]inventoryResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, inventoryResponse{
			ProductID:    record.ProductID,
			Stock:        record.Stock,
			MinThreshold: record.MinThreshold,
			Location:     record.Location,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}
