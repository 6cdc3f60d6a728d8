package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tillworks/till/internal/services/pos/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/pos.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestGetStockAbsenceMeansZero(t *testing.T) {
	store := openTestStore(t)

	stock, err := store.GetStock(context.Background(), "espresso")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock = %d, want 0 for missing record", stock)
	}
}

func TestSetStockRoundTripAndClamp(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetStock(context.Background(), "espresso", 12); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	stock, err := store.GetStock(context.Background(), "espresso")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 12 {
		t.Fatalf("stock = %d, want 12", stock)
	}

	if err := store.SetStock(context.Background(), "espresso", -4); err != nil {
		t.Fatalf("set negative stock: %v", err)
	}
	stock, err = store.GetStock(context.Background(), "espresso")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock = %d, want 0 after negative set", stock)
	}
}

func TestDecrementClampsAtZero(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetStock(context.Background(), "latte", 3); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if err := store.Decrement(context.Background(), "latte", 1000); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	stock, err := store.GetStock(context.Background(), "latte")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock = %d, want 0 after oversized decrement", stock)
	}
}

func TestDecrementMissingProductStaysZero(t *testing.T) {
	store := openTestStore(t)

	if err := store.Decrement(context.Background(), "phantom", 5); err != nil {
		t.Fatalf("decrement missing product: %v", err)
	}
	stock, err := store.GetStock(context.Background(), "phantom")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock = %d, want 0", stock)
	}
}

func TestDecrementRejectsNegativeQuantity(t *testing.T) {
	store := openTestStore(t)

	if err := store.Decrement(context.Background(), "latte", -1); err == nil {
		t.Fatal("expected error for negative quantity")
	}
}

func TestBulkDecrementAppliesAllLines(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetStock(context.Background(), "latte", 10); err != nil {
		t.Fatalf("set stock latte: %v", err)
	}
	if err := store.SetStock(context.Background(), "mocha", 2); err != nil {
		t.Fatalf("set stock mocha: %v", err)
	}

	err := store.BulkDecrement(context.Background(), []storage.OrderLine{
		{ProductID: "latte", Quantity: 4},
		{ProductID: "mocha", Quantity: 5},
	})
	if err != nil {
		t.Fatalf("bulk decrement: %v", err)
	}

	latte, err := store.GetStock(context.Background(), "latte")
	if err != nil {
		t.Fatalf("get stock latte: %v", err)
	}
	if latte != 6 {
		t.Fatalf("latte stock = %d, want 6", latte)
	}
	mocha, err := store.GetStock(context.Background(), "mocha")
	if err != nil {
		t.Fatalf("get stock mocha: %v", err)
	}
	if mocha != 0 {
		t.Fatalf("mocha stock = %d, want 0 after clamped bulk decrement", mocha)
	}
}

func TestConcurrentDecrementsNeverLoseUpdates(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetStock(context.Background(), "espresso", 100); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Decrement(context.Background(), "espresso", 5)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent decrement: %v", err)
		}
	}

	stock, err := store.GetStock(context.Background(), "espresso")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 50 {
		t.Fatalf("stock = %d, want 50 after 10 decrements of 5", stock)
	}
}

func TestConcurrentOversizedDecrementsClampAtZero(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetStock(context.Background(), "espresso", 30); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Decrement(context.Background(), "espresso", 7)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent decrement: %v", err)
		}
	}

	stock, err := store.GetStock(context.Background(), "espresso")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock = %d, want exactly 0, never negative", stock)
	}
}

func TestUpsertInventoryRecordRoundTrip(t *testing.T) {
	store := openTestStore(t)

	updatedAt := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	err := store.UpsertInventoryRecord(context.Background(), storage.InventoryRecord{
		ProductID:    "espresso",
		Stock:        40,
		MinThreshold: 5,
		Location:     "shelf-a",
		UpdatedAt:    updatedAt,
	})
	if err != nil {
		t.Fatalf("upsert inventory record: %v", err)
	}

	records, err := store.ListInventory(context.Background())
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records len = %d, want 1", len(records))
	}
	record := records[0]
	if record.ProductID != "espresso" {
		t.Fatalf("product_id = %q, want espresso", record.ProductID)
	}
	if record.Stock != 40 {
		t.Fatalf("stock = %d, want 40", record.Stock)
	}
	if record.MinThreshold != 5 {
		t.Fatalf("min_threshold = %d, want 5", record.MinThreshold)
	}
	if record.Location != "shelf-a" {
		t.Fatalf("location = %q, want shelf-a", record.Location)
	}
	if !record.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("updated_at = %v, want %v", record.UpdatedAt, updatedAt)
	}
}

func TestListInventoryOrdersByProductID(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"mocha", "americano", "latte"} {
		if err := store.SetStock(context.Background(), id, 1); err != nil {
			t.Fatalf("set stock %s: %v", id, err)
		}
	}

	records, err := store.ListInventory(context.Background())
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records len = %d, want 3", len(records))
	}
	want := []string{"americano", "latte", "mocha"}
	for i, record := range records {
		if record.ProductID != want[i] {
			t.Fatalf("records[%d] = %q, want %q", i, record.ProductID, want[i])
		}
	}
}
