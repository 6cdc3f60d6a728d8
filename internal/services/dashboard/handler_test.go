package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tillworks/till/internal/services/pos/storage"
	possqlite "github.com/tillworks/till/internal/services/pos/storage/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *possqlite.Store) {
	t.Helper()
	store, err := possqlite.Open(t.TempDir() + "/pos.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	server := httptest.NewServer(NewHandler(store).Mux())
	t.Cleanup(server.Close)
	return server, store
}

func seedOrder(t *testing.T, store *possqlite.Store, orderNumber string, orderedAt time.Time, lines []storage.OrderLine) {
	t.Helper()
	var total int64
	for _, line := range lines {
		total += line.Total()
	}
	_, _, err := store.CreateOrder(context.Background(), storage.NewOrder{
		OrderNumber:   orderNumber,
		OrderedAt:     orderedAt,
		TotalPrice:    total,
		PaymentMethod: "card",
		Status:        "completed",
		Lines:         lines,
	})
	if err != nil {
		t.Fatalf("seed order %s: %v", orderNumber, err)
	}
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestDailySalesReport(t *testing.T) {
	server, store := newTestServer(t)

	day := time.Date(2026, time.April, 2, 12, 0, 0, 0, time.Local)
	seedOrder(t, store, "ORD-A", day, []storage.OrderLine{{ProductID: "p1", UnitPrice: 1000, Quantity: 1}})
	seedOrder(t, store, "ORD-B", day.Add(time.Hour), []storage.OrderLine{{ProductID: "p1", UnitPrice: 1500, Quantity: 1}})

	resp, err := http.Get(server.URL + "/api/reports/daily")
	if err != nil {
		t.Fatalf("get daily report: %v", err)
	}
	rows := decodeBody[[]dailySalesResponse](t, resp)
	if len(rows) != 1 {
		t.Fatalf("rows len = %d, want 1", len(rows))
	}
	if rows[0].Revenue != 2500 || rows[0].OrderCount != 2 {
		t.Fatalf("row = %+v, want revenue 2500 over 2 orders", rows[0])
	}
	if rows[0].Date != day.Format("2006-01-02") {
		t.Fatalf("date = %q, want %q", rows[0].Date, day.Format("2006-01-02"))
	}
}

func TestTopProductsReportHonorsLimit(t *testing.T) {
	server, store := newTestServer(t)

	now := time.Date(2026, time.April, 2, 12, 0, 0, 0, time.Local)
	seedOrder(t, store, "ORD-A", now, []storage.OrderLine{
		{ProductID: "p1", UnitPrice: 1500, Quantity: 2},
		{ProductID: "p2", UnitPrice: 2500, Quantity: 2},
		{ProductID: "p3", UnitPrice: 1000, Quantity: 1},
	})

	resp, err := http.Get(server.URL + "/api/reports/top-products?limit=2")
	if err != nil {
		t.Fatalf("get top products: %v", err)
	}
	rows := decodeBody[[]topProductResponse](t, resp)
	if len(rows) != 2 {
		t.Fatalf("rows len = %d, want 2", len(rows))
	}
	if rows[0].ProductID != "p2" || rows[0].Revenue != 5000 {
		t.Fatalf("rows[0] = %+v, want p2 at 5000", rows[0])
	}
	if rows[1].ProductID != "p1" || rows[1].Revenue != 3000 {
		t.Fatalf("rows[1] = %+v, want p1 at 3000", rows[1])
	}
}

func TestTopProductsRejectsBadLimit(t *testing.T) {
	server, _ := newTestServer(t)

	for _, limit := range []string{"0", "-3", "abc"} {
		resp, err := http.Get(server.URL + "/api/reports/top-products?limit=" + limit)
		if err != nil {
			t.Fatalf("get top products: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("limit %q: status = %d, want 400", limit, resp.StatusCode)
		}
	}
}

func TestLowStockAlerts(t *testing.T) {
	server, store := newTestServer(t)

	records := []storage.InventoryRecord{
		{ProductID: "espresso", Stock: 2, MinThreshold: 5},
		{ProductID: "latte", Stock: 10, MinThreshold: 5},
		{ProductID: "croissant", Stock: 0, MinThreshold: 0},
	}
	for _, record := range records {
		if err := store.UpsertInventoryRecord(context.Background(), record); err != nil {
			t.Fatalf("upsert record: %v", err)
		}
	}

	resp, err := http.Get(server.URL + "/api/alerts/low-stock")
	if err != nil {
		t.Fatalf("get low stock: %v", err)
	}
	alerts := decodeBody[[]inventoryResponse](t, resp)
	if len(alerts) != 1 {
		t.Fatalf("alerts len = %d, want 1", len(alerts))
	}
	if alerts[0].ProductID != "espresso" {
		t.Fatalf("alert = %+v, want espresso", alerts[0])
	}
}

func TestInventoryListing(t *testing.T) {
	server, store := newTestServer(t)

	if err := store.SetStock(context.Background(), "espresso", 4); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/inventory")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	records := decodeBody[[]inventoryResponse](t, resp)
	if len(records) != 1 || records[0].Stock != 4 {
		t.Fatalf("records = %+v, want one espresso record at 4", records)
	}
}

func TestIndexRendersReportsAndAlerts(t *testing.T) {
	server, store := newTestServer(t)

	now := time.Date(2026, time.April, 2, 12, 0, 0, 0, time.Local)
	seedOrder(t, store, "ORD-A", now, []storage.OrderLine{{ProductID: "espresso", UnitPrice: 123456, Quantity: 1}})
	if err := store.UpsertInventoryRecord(context.Background(), storage.InventoryRecord{
		ProductID: "espresso", Stock: 1, MinThreshold: 5,
	}); err != nil {
		t.Fatalf("upsert record: %v", err)
	}

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	page := string(body)
	if !strings.Contains(page, "$1,234.56") {
		t.Fatalf("expected formatted revenue in page, got %q", page)
	}
	if !strings.Contains(page, "espresso: 1 on hand (minimum 5)") {
		t.Fatalf("expected low stock alert in page, got %q", page)
	}
}

func TestIndexUnknownPathIs404(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/nope")
	if err != nil {
		t.Fatalf("get unknown path: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
