// Package poshttp exposes the order ledger and inventory over a JSON API
// consumed by the kiosk frontend.
package poshttp

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	platformerrors "github.com/tillworks/till/internal/platform/errors"
	"github.com/tillworks/till/internal/platform/timeouts"
	"github.com/tillworks/till/internal/services/pos/inventory"
	"github.com/tillworks/till/internal/services/pos/ledger"
	"github.com/tillworks/till/internal/services/pos/storage"
)

// Handler routes kiosk API requests to the pos services.
type Handler struct {
	ledger    *ledger.Service
	inventory *inventory.Service
	catalog   storage.CatalogStore
}

// NewHandler builds the kiosk API handler.
func NewHandler(ledgerService *ledger.Service, inventoryService *inventory.Service, catalog storage.CatalogStore) *Handler {
	return &Handler{
		ledger:    ledgerService,
		inventory: inventoryService,
		catalog:   catalog,
	}
}

// Mux returns the route table for the kiosk API.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/orders", h.handleOrders)
	mux.HandleFunc("/v1/orders/", h.handleOrderByID)
	mux.HandleFunc("/v1/products", h.handleProducts)
	mux.HandleFunc("/v1/inventory/", h.handleInventoryByID)
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type orderLineRequest struct {
	ProductID string `json:"product_id"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type placeOrderRequest struct {
	Lines         []orderLineRequest `json:"lines"`
	PaymentMethod string             `json:"payment_method"`
	Status        string             `json:"status"`
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type orderResponse struct {
	ID            int64               `json:"id"`
	OrderNumber   string              `json:"order_number"`
	OrderedAt     time.Time           `json:"ordered_at"`
	TotalPrice    int64               `json:"total_price"`
	PaymentMethod string              `json:"payment_method"`
	Status        string              `json:"status"`
	Items         []orderItemResponse `json:"items"`
}

type orderPageResponse struct {
	Orders        []orderResponse `json:"orders"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type productResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
	Barcode  string `json:"barcode,omitempty"`
}

type stockResponse struct {
	ProductID string `json:"product_id"`
	Stock     int64  `json:"stock"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.placeOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	case http.MethodDelete:
		h.clearOrders(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeError(w, platformerrors.New(platformerrors.CodeBadRequest, "method not allowed"), http.StatusMethodNotAllowed)
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, platformerrors.New(platformerrors.CodeBadRequest, "invalid request body"), 0)
		return
	}

	lines := make([]storage.OrderLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, storage.OrderLine{
			ProductID: line.ProductID,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	order, err := h.ledger.PlaceOrder(ctx, lines, req.PaymentMethod, req.Status)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	h.inventory.Refresh(ctx)

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	pageSize := 0
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, platformerrors.New(platformerrors.CodeBadRequest, "page_size must be an integer"), 0)
			return
		}
		pageSize = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	page, err := h.ledger.ListOrders(ctx, pageSize, r.URL.Query().Get("page_token"))
	if err != nil {
		writeError(w, err, 0)
		return
	}

	resp := orderPageResponse{
		Orders:        make([]orderResponse, 0, len(page.Orders)),
		NextPageToken: page.NextPageToken,
	}
	for _, order := range page.Orders {
		resp.Orders = append(resp.Orders, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) clearOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	if err := h.ledger.Clear(ctx); err != nil {
		writeError(w, err, 0)
		return
	}
	log.Printf("order history cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, platformerrors.New(platformerrors.CodeBadRequest, "method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/v1/orders/")
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || raw == "" {
		writeError(w, platformerrors.New(platformerrors.CodeNotFound, "order id must be an integer"), http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	order, err := h.ledger.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, platformerrors.New(platformerrors.CodeBadRequest, "method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeError(w, platformerrors.Wrap(platformerrors.CodeStorageUnavailable, "list products", err), 0)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, product := range products {
		resp = append(resp, productResponse{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Category: product.Category,
			Barcode:  product.Barcode,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleInventoryByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, platformerrors.New(platformerrors.CodeBadRequest, "method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	productID := strings.TrimPrefix(r.URL.Path, "/v1/inventory/")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.StorageRequest)
	defer cancel()

	stock, err := h.inventory.GetStock(ctx, productID)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{ProductID: productID, Stock: stock})
}

func toOrderResponse(order storage.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return orderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		OrderedAt:     order.OrderedAt,
		TotalPrice:    order.TotalPrice,
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		Items:         items,
	}
}

// writeError maps a service error to its HTTP status. A non-zero status
// overrides the mapping.
func writeError(w http.ResponseWriter, err error, status int) {
	if status == 0 {
		status = platformerrors.HTTPStatus(err)
	}
	writeJSON(w, status, errorResponse{
		Code:    string(platformerrors.CodeOf(err)),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}
