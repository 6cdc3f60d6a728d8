package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/tillworks/till/internal/services/pos/storage"
)

func collectReplay(t *testing.T, sub *Subscription, want int) []Event {
	t.Helper()
	events := make([]Event, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				t.Fatalf("stream closed after %d of %d events", len(events), want)
			}
			events = append(events, event)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(events), want)
		}
	}
	return events
}

func TestObserveOrdersReplaysSnapshotThenLive(t *testing.T) {
	service, _ := openLedger(t)

	line := []storage.OrderLine{{ProductID: "espresso", UnitPrice: 350, Quantity: 1}}
	first, err := service.PlaceOrder(context.Background(), line, "card", "completed")
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	sub, err := service.ObserveOrders(context.Background())
	if err != nil {
		t.Fatalf("observe orders: %v", err)
	}
	defer sub.Close()

	replay := collectReplay(t, sub, 1)
	if replay[0].Kind != EventPlaced || replay[0].Order.ID != first.ID {
		t.Fatalf("replay[0] = %+v, want placed order %d", replay[0], first.ID)
	}

	second, err := service.PlaceOrder(context.Background(), line, "card", "completed")
	if err != nil {
		t.Fatalf("place live order: %v", err)
	}
	live := collectReplay(t, sub, 1)
	if live[0].Kind != EventPlaced || live[0].Order.ID != second.ID {
		t.Fatalf("live event = %+v, want placed order %d", live[0], second.ID)
	}
}

func TestObserveOrdersAfterClear(t *testing.T) {
	service, _ := openLedger(t)

	line := []storage.OrderLine{{ProductID: "espresso", UnitPrice: 350, Quantity: 1}}
	if _, err := service.PlaceOrder(context.Background(), line, "card", "completed"); err != nil {
		t.Fatalf("place order: %v", err)
	}
	if err := service.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}

	// A fresh observer sees no history after the wipe.
	sub, err := service.ObserveOrders(context.Background())
	if err != nil {
		t.Fatalf("observe orders: %v", err)
	}
	defer sub.Close()

	select {
	case event := <-sub.Events():
		t.Fatalf("expected empty replay, got %+v", event)
	case <-time.After(50 * time.Millisecond):
	}

	// One placement after the wipe yields a sequence of exactly one.
	if _, err := service.PlaceOrder(context.Background(), line, "card", "completed"); err != nil {
		t.Fatalf("place order after clear: %v", err)
	}
	events := collectReplay(t, sub, 1)
	if events[0].Kind != EventPlaced {
		t.Fatalf("event kind = %v, want EventPlaced", events[0].Kind)
	}
}

func TestObserveOrdersClearEventReachesLiveSubscribers(t *testing.T) {
	service, _ := openLedger(t)

	sub, err := service.ObserveOrders(context.Background())
	if err != nil {
		t.Fatalf("observe orders: %v", err)
	}
	defer sub.Close()

	if err := service.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	events := collectReplay(t, sub, 1)
	if events[0].Kind != EventCleared {
		t.Fatalf("event kind = %v, want EventCleared", events[0].Kind)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	service, _ := openLedger(t)

	sub, err := service.ObserveOrders(context.Background())
	if err != nil {
		t.Fatalf("observe orders: %v", err)
	}
	sub.Close()
	sub.Close()

	// A closed subscription no longer receives events and placement is
	// unaffected by its absence.
	line := []storage.OrderLine{{ProductID: "espresso", UnitPrice: 350, Quantity: 1}}
	if _, err := service.PlaceOrder(context.Background(), line, "card", "completed"); err != nil {
		t.Fatalf("place order: %v", err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed event channel")
	}
}

func TestObserveOrdersContextCancelUnsubscribes(t *testing.T) {
	service, _ := openLedger(t)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := service.ObserveOrders(ctx)
	if err != nil {
		t.Fatalf("observe orders: %v", err)
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed after context cancel")
		}
	}
}
