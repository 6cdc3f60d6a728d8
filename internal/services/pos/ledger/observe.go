package ledger

import (
	"context"
	"sync"

	"github.com/tillworks/till/internal/services/pos/storage"
)

// subscriptionBuffer is the live-event headroom beyond the snapshot replay.
const subscriptionBuffer = 64

// EventKind tags order stream events.
type EventKind int

const (
	// EventPlaced carries one committed order.
	EventPlaced EventKind = iota
	// EventCleared signals that the order history was wiped.
	EventCleared
)

// Event is one entry in an order observation stream.
type Event struct {
	Kind  EventKind
	Order storage.Order
}

// Subscription is one observer of the order stream. Events delivers the
// snapshot replay followed by live updates; Close unsubscribes with no side
// effect on the ledger.
type Subscription struct {
	hub    *orderHub
	events chan Event
}

// Events returns the subscription's event channel. The channel is closed
// when the subscription is closed or dropped for not draining.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unsubscribes from the order stream.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	if s.hub.remove(s) {
		close(s.events)
	}
}

type orderHub struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
}

func newOrderHub() *orderHub {
	return &orderHub{subscribers: make(map[*Subscription]struct{})}
}

// ObserveOrders subscribes to the order stream. Each new observer first
// receives the full committed history, newest first, then incremental
// events for every committed write. Cancelling ctx closes the subscription.
func (s *Service) ObserveOrders(ctx context.Context) (*Subscription, error) {
	// The hub lock is held across the snapshot read so a concurrent
	// placement is either in the replay or delivered live, never lost.
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	snapshot, err := s.store.AllOrders(ctx)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		hub:    s.hub,
		events: make(chan Event, len(snapshot)+subscriptionBuffer),
	}
	for _, order := range snapshot {
		sub.events <- Event{Kind: EventPlaced, Order: order}
	}
	s.hub.subscribers[sub] = struct{}{}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}
	return sub, nil
}

// broadcast fans an event out to every subscriber. A subscriber whose
// buffer is full has stopped draining and is dropped rather than allowed to
// block committed writes.
func (h *orderHub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.events <- event:
		default:
			delete(h.subscribers, sub)
			close(sub.events)
		}
	}
}

func (h *orderHub) remove(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; !ok {
		return false
	}
	delete(h.subscribers, sub)
	return true
}
