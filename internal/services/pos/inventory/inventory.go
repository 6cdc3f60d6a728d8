// Package inventory fronts the per-product stock store. It is the single
// mutation path for stock counts outside order placement and feeds the
// dashboard's inventory observation stream.
package inventory

import (
	"context"
	"fmt"

	platformerrors "github.com/tillworks/till/internal/platform/errors"
	"github.com/tillworks/till/internal/services/pos/storage"
)

// Service wraps an InventoryStore with observation. Storage is injected at
// construction; there is no ambient handle.
type Service struct {
	store storage.InventoryStore
	hub   *inventoryHub
}

// New creates an inventory service over the given store.
func New(store storage.InventoryStore) *Service {
	return &Service{store: store, hub: newInventoryHub()}
}

// GetStock returns current stock for a product; absence means zero.
func (s *Service) GetStock(ctx context.Context, productID string) (int64, error) {
	if productID == "" {
		return 0, platformerrors.New(platformerrors.CodeInventoryEmptyProductID, "product id is required")
	}
	stock, err := s.store.GetStock(ctx, productID)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.CodeStorageUnavailable,
			fmt.Sprintf("get stock for %s", productID), err)
	}
	return stock, nil
}

// SetStock upserts an absolute stock value, clamping negatives to zero.
func (s *Service) SetStock(ctx context.Context, productID string, quantity int64) error {
	if productID == "" {
		return platformerrors.New(platformerrors.CodeInventoryEmptyProductID, "product id is required")
	}
	if err := s.store.SetStock(ctx, productID, quantity); err != nil {
		return platformerrors.Wrap(platformerrors.CodeStorageUnavailable,
			fmt.Sprintf("set stock for %s", productID), err)
	}
	s.Refresh(ctx)
	return nil
}

// Decrement reduces stock by quantity, floored at zero.
func (s *Service) Decrement(ctx context.Context, productID string, quantity int64) error {
	if productID == "" {
		return platformerrors.New(platformerrors.CodeInventoryEmptyProductID, "product id is required")
	}
	if err := s.store.Decrement(ctx, productID, quantity); err != nil {
		return platformerrors.Wrap(platformerrors.CodeStorageUnavailable,
			fmt.Sprintf("decrement stock for %s", productID), err)
	}
	s.Refresh(ctx)
	return nil
}

// BulkDecrement applies a clamped decrement per line in one transaction.
func (s *Service) BulkDecrement(ctx context.Context, lines []storage.OrderLine) error {
	if err := s.store.BulkDecrement(ctx, lines); err != nil {
		return platformerrors.Wrap(platformerrors.CodeStorageUnavailable, "bulk decrement", err)
	}
	s.Refresh(ctx)
	return nil
}

// UpsertRecord inserts or replaces one inventory record. Used by the
// catalog loader to seed zero-valued records.
func (s *Service) UpsertRecord(ctx context.Context, record storage.InventoryRecord) error {
	if record.ProductID == "" {
		return platformerrors.New(platformerrors.CodeInventoryEmptyProductID, "product id is required")
	}
	if err := s.store.UpsertInventoryRecord(ctx, record); err != nil {
		return platformerrors.Wrap(platformerrors.CodeStorageUnavailable,
			fmt.Sprintf("upsert inventory record for %s", record.ProductID), err)
	}
	s.Refresh(ctx)
	return nil
}

// List returns all inventory records ordered by product id.
func (s *Service) List(ctx context.Context) ([]storage.InventoryRecord, error) {
	records, err := s.store.ListInventory(ctx)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeStorageUnavailable, "list inventory", err)
	}
	return records, nil
}

// Refresh pushes a fresh inventory snapshot to every observer. Callers that
// mutate stock outside this service (order placement decrements inside the
// ledger transaction) invoke it after commit.
func (s *Service) Refresh(ctx context.Context) {
	if !s.hub.hasSubscribers() {
		return
	}
	records, err := s.store.ListInventory(ctx)
	if err != nil {
		// Observers tolerate a missed refresh; the next committed write
		// re-emits. The failure is still visible to operators.
		logListFailure(err)
		return
	}
	s.hub.broadcast(records)
}
