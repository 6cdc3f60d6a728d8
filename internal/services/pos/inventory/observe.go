package inventory

import (
	"context"
	"log"
	"sync"

	"github.com/tillworks/till/internal/services/pos/storage"
)

// snapshotBuffer bounds how many unread snapshots a subscriber may lag.
const snapshotBuffer = 16

// Subscription is one observer of inventory state. Snapshots delivers the
// current records immediately, then a fresh snapshot after every committed
// stock change.
type Subscription struct {
	hub       *inventoryHub
	snapshots chan []storage.InventoryRecord
}

// Snapshots returns the subscription's snapshot channel. The channel is
// closed when the subscription is closed or dropped for not draining.
func (s *Subscription) Snapshots() <-chan []storage.InventoryRecord {
	return s.snapshots
}

// Close unsubscribes from inventory observation.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	if s.hub.remove(s) {
		close(s.snapshots)
	}
}

type inventoryHub struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
}

func newInventoryHub() *inventoryHub {
	return &inventoryHub{subscribers: make(map[*Subscription]struct{})}
}

// ObserveAll subscribes to inventory state. The current snapshot is
// delivered first; cancelling ctx closes the subscription.
func (s *Service) ObserveAll(ctx context.Context) (*Subscription, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	records, err := s.store.ListInventory(ctx)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		hub:       s.hub,
		snapshots: make(chan []storage.InventoryRecord, snapshotBuffer),
	}
	sub.snapshots <- records
	s.hub.subscribers[sub] = struct{}{}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}
	return sub, nil
}

func (h *inventoryHub) hasSubscribers() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers) > 0
}

func (h *inventoryHub) broadcast(records []storage.InventoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.snapshots <- records:
		default:
			delete(h.subscribers, sub)
			close(sub.snapshots)
		}
	}
}

func (h *inventoryHub) remove(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; !ok {
		return false
	}
	delete(h.subscribers, sub)
	return true
}

func logListFailure(err error) {
	log.Printf("inventory snapshot refresh: %v", err)
}
