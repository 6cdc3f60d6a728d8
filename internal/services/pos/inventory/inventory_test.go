package inventory

import (
	"context"
	"testing"
	"time"

	platformerrors "github.com/tillworks/till/internal/platform/errors"
	"github.com/tillworks/till/internal/services/pos/storage"
	possqlite "github.com/tillworks/till/internal/services/pos/storage/sqlite"
)

func openService(t *testing.T) *Service {
	t.Helper()
	store, err := possqlite.Open(t.TempDir() + "/inventory.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return New(store)
}

func TestSetAndGetStock(t *testing.T) {
	service := openService(t)

	if err := service.SetStock(context.Background(), "espresso", 25); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	stock, err := service.GetStock(context.Background(), "espresso")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 25 {
		t.Fatalf("stock = %d, want 25", stock)
	}
}

func TestGetStockMissingProductIsZero(t *testing.T) {
	service := openService(t)

	stock, err := service.GetStock(context.Background(), "phantom")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock = %d, want 0", stock)
	}
}

func TestEmptyProductIDRejected(t *testing.T) {
	service := openService(t)

	_, err := service.GetStock(context.Background(), "")
	if platformerrors.CodeOf(err) != platformerrors.CodeInventoryEmptyProductID {
		t.Fatalf("expected empty-product-id code, got %v", err)
	}
	if err := service.SetStock(context.Background(), "", 1); err == nil {
		t.Fatal("expected error for empty product id")
	}
	if err := service.Decrement(context.Background(), "", 1); err == nil {
		t.Fatal("expected error for empty product id")
	}
}

func TestDecrementClampPassthrough(t *testing.T) {
	service := openService(t)

	if err := service.SetStock(context.Background(), "latte", 2); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if err := service.Decrement(context.Background(), "latte", 9); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	stock, err := service.GetStock(context.Background(), "latte")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock = %d, want 0 after clamp", stock)
	}
}

func TestObserveAllDeliversInitialSnapshotAndUpdates(t *testing.T) {
	service := openService(t)

	if err := service.SetStock(context.Background(), "espresso", 5); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	sub, err := service.ObserveAll(context.Background())
	if err != nil {
		t.Fatalf("observe all: %v", err)
	}
	defer sub.Close()

	initial := nextSnapshot(t, sub)
	if len(initial) != 1 || initial[0].ProductID != "espresso" || initial[0].Stock != 5 {
		t.Fatalf("initial snapshot = %+v", initial)
	}

	if err := service.SetStock(context.Background(), "latte", 7); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	updated := nextSnapshot(t, sub)
	if len(updated) != 2 {
		t.Fatalf("updated snapshot len = %d, want 2", len(updated))
	}
}

func TestObserveAllCloseUnsubscribes(t *testing.T) {
	service := openService(t)

	sub, err := service.ObserveAll(context.Background())
	if err != nil {
		t.Fatalf("observe all: %v", err)
	}
	nextSnapshot(t, sub)
	sub.Close()

	if err := service.SetStock(context.Background(), "espresso", 1); err != nil {
		t.Fatalf("set stock after unsubscribe: %v", err)
	}
	if _, ok := <-sub.Snapshots(); ok {
		t.Fatal("expected closed snapshot channel")
	}
}

func TestUpsertRecordSeedsZeroStock(t *testing.T) {
	service := openService(t)

	err := service.UpsertRecord(context.Background(), storage.InventoryRecord{
		ProductID:    "espresso",
		Stock:        0,
		MinThreshold: 3,
		Location:     "bar",
	})
	if err != nil {
		t.Fatalf("upsert record: %v", err)
	}

	records, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].MinThreshold != 3 || records[0].Location != "bar" {
		t.Fatalf("records = %+v", records)
	}
}

func nextSnapshot(t *testing.T, sub *Subscription) []storage.InventoryRecord {
	t.Helper()
	select {
	case snapshot, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
