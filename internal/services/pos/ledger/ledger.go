// Package ledger records completed orders and drives inventory
// reconciliation. Placement validates before touching storage, persists the
// order and its stock decrements as one unit of work, and feeds the
// observation stream after commit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	platformerrors "github.com/tillworks/till/internal/platform/errors"
	"github.com/tillworks/till/internal/platform/pagination"
	"github.com/tillworks/till/internal/services/pos/storage"
)

const tracerName = "github.com/tillworks/till/internal/services/pos/ledger"

// listPageSizes bounds order listing pages.
var listPageSizes = pagination.PageSizeConfig{Default: 20, Max: 100}

// topProductLimits bounds the top-products report.
var topProductLimits = pagination.PageSizeConfig{Default: 10, Max: 50}

// Service is the order ledger. It owns order-number sequencing and the
// order observation hub; storage is injected, never reached through a
// process-wide handle.
type Service struct {
	store   storage.OrderStore
	reports storage.ReportStore
	clock   func() time.Time
	tracer  trace.Tracer
	hub     *orderHub

	mu         sync.Mutex
	lastSecond string
	sequence   int
}

// New creates an order ledger over the given stores.
func New(store storage.OrderStore, reports storage.ReportStore) *Service {
	return &Service{
		store:   store,
		reports: reports,
		clock:   time.Now,
		tracer:  otel.Tracer(tracerName),
		hub:     newOrderHub(),
	}
}

// NewWithClock creates a ledger with a fixed clock for tests.
func NewWithClock(store storage.OrderStore, reports storage.ReportStore, clock func() time.Time) *Service {
	service := New(store, reports)
	if clock != nil {
		service.clock = clock
	}
	return service
}

// PlaceOrder validates the cart lines, persists the order with its stock
// decrements in one transaction, and returns the committed order.
// Validation failures are rejected before any persistence attempt; storage
// failures propagate unchanged apart from wrapping.
func (s *Service) PlaceOrder(ctx context.Context, lines []storage.OrderLine, paymentMethod string, status string) (storage.Order, error) {
	if err := validateLines(lines); err != nil {
		return storage.Order{}, err
	}

	var total int64
	for _, line := range lines {
		total += line.Total()
	}

	orderedAt := s.clock().UTC()
	orderNumber := s.nextOrderNumber(orderedAt)

	ctx, span := s.tracer.Start(ctx, "ledger.place_order",
		trace.WithAttributes(
			attribute.String("order.number", orderNumber),
			attribute.Int("order.lines", len(lines)),
			attribute.Int64("order.total_price", total),
		))
	defer span.End()

	order, shortfalls, err := s.store.CreateOrder(ctx, storage.NewOrder{
		OrderNumber:   orderNumber,
		OrderedAt:     orderedAt,
		TotalPrice:    total,
		PaymentMethod: paymentMethod,
		Status:        status,
		Lines:         lines,
	})
	if err != nil {
		return storage.Order{}, platformerrors.Wrap(platformerrors.CodeStorageUnavailable,
			fmt.Sprintf("place order %s", orderNumber), err)
	}

	for _, shortfall := range shortfalls {
		log.Printf("order %s: stock shortfall for %s: requested %d, available %d",
			order.OrderNumber, shortfall.ProductID, shortfall.Requested, shortfall.Available)
	}

	s.hub.broadcast(Event{Kind: EventPlaced, Order: order})
	return order, nil
}

// GetOrder returns one order by id.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (storage.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Order{}, platformerrors.Wrap(platformerrors.CodeNotFound,
				fmt.Sprintf("order %d not found", orderID), err)
		}
		return storage.Order{}, platformerrors.Wrap(platformerrors.CodeStorageUnavailable,
			fmt.Sprintf("get order %d", orderID), err)
	}
	return order, nil
}

// ListOrders returns one page of order history, newest first.
func (s *Service) ListOrders(ctx context.Context, pageSize int, pageToken string) (storage.OrderPage, error) {
	page, err := s.store.ListOrders(ctx, pagination.ClampPageSize(pageSize, listPageSizes), pageToken)
	if err != nil {
		return storage.OrderPage{}, platformerrors.Wrap(platformerrors.CodeStorageUnavailable, "list orders", err)
	}
	return page, nil
}

// Clear irreversibly wipes order history and notifies observers. Inventory
// is not rolled back.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return platformerrors.Wrap(platformerrors.CodeStorageUnavailable, "clear orders", err)
	}
	s.hub.broadcast(Event{Kind: EventCleared})
	return nil
}

// DailySales returns revenue and distinct order counts per local calendar day.
func (s *Service) DailySales(ctx context.Context) ([]storage.DailySalesRow, error) {
	rows, err := s.reports.DailySales(ctx)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeStorageUnavailable, "daily sales", err)
	}
	return rows, nil
}

// DailyProductSales returns per-day, per-product revenue.
func (s *Service) DailyProductSales(ctx context.Context) ([]storage.DailyProductSalesRow, error) {
	rows, err := s.reports.DailyProductSales(ctx)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeStorageUnavailable, "daily product sales", err)
	}
	return rows, nil
}

// TopProducts returns the top-N products by all-time revenue.
func (s *Service) TopProducts(ctx context.Context, limit int) ([]storage.TopProductRow, error) {
	rows, err := s.reports.TopProducts(ctx, pagination.ClampPageSize(limit, topProductLimits))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeStorageUnavailable, "top products", err)
	}
	return rows, nil
}

// nextOrderNumber derives a lexically sortable order number from the
// placement timestamp plus a per-second sequence, so two orders placed
// within the same second never share a number. The row id remains the
// uniqueness source of record.
func (s *Service) nextOrderNumber(orderedAt time.Time) string {
	second := orderedAt.Format("20060102-150405")

	s.mu.Lock()
	defer s.mu.Unlock()
	if second == s.lastSecond {
		s.sequence++
	} else {
		s.lastSecond = second
		s.sequence = 1
	}
	return fmt.Sprintf("ORD-%s-%02d", second, s.sequence)
}

func validateLines(lines []storage.OrderLine) error {
	if len(lines) == 0 {
		return platformerrors.New(platformerrors.CodeOrderEmptyLines, "order has no lines")
	}
	for i, line := range lines {
		if line.ProductID == "" {
			return platformerrors.New(platformerrors.CodeOrderEmptyProductID,
				fmt.Sprintf("line %d: product id is required", i))
		}
		if line.Quantity <= 0 {
			return platformerrors.New(platformerrors.CodeOrderInvalidQuantity,
				fmt.Sprintf("line %d: quantity must be greater than zero", i))
		}
		if line.UnitPrice < 0 {
			return platformerrors.New(platformerrors.CodeOrderInvalidUnitPrice,
				fmt.Sprintf("line %d: unit price must not be negative", i))
		}
	}
	return nil
}
