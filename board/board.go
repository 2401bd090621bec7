// Package board holds the live in-memory order collection and the filtered
// view-model the dashboard renders from. All mutation arrives through the
// feed or through explicit status actions; the board itself never talks to
// the network.
package board

import (
	"sync"

	"courierdeck/upstream"
)

// Board is the authoritative local mirror of the backend's order list.
// Safe for concurrent use.
type Board struct {
	mu       sync.RWMutex
	orders   []upstream.Order
	index    map[string]int // order ID -> position in orders
	updating map[string]struct{}
}

func New() *Board {
	return &Board{
		index:    make(map[string]int),
		updating: make(map[string]struct{}),
	}
}

// ReplaceAll swaps in a fresh snapshot, discarding prior contents.
// In-flight update markers survive a replace so a refresh during a pending
// status call cannot re-enable the action.
func (b *Board) ReplaceAll(orders []upstream.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = make([]upstream.Order, len(orders))
	copy(b.orders, orders)
	b.reindex()
}

// Prepend inserts a new order at the head of the list. Idempotent: if an
// order with the same ID is already present, the call is a no-op.
func (b *Board) Prepend(order upstream.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.index[order.ID]; ok {
		return false
	}
	b.orders = append([]upstream.Order{order}, b.orders...)
	b.reindex()
	return true
}

// Apply replaces an existing order in place. Updates for IDs not currently
// held are dropped; the next full refresh reconciles them.
func (b *Board) Apply(order upstream.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[order.ID]
	if !ok {
		return false
	}
	b.orders[i] = order
	return true
}

// Get returns a copy of one order.
func (b *Board) Get(id string) (upstream.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.index[id]
	if !ok {
		return upstream.Order{}, false
	}
	return b.orders[i], true
}

// BeginUpdate marks an order as having a status change in flight. Returns
// false if an update for that order is already pending, which the caller
// must treat as "do not issue another request".
func (b *Board) BeginUpdate(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, busy := b.updating[id]; busy {
		return false
	}
	b.updating[id] = struct{}{}
	return true
}

// EndUpdate clears the in-flight marker regardless of outcome.
func (b *Board) EndUpdate(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.updating, id)
}

// Updating reports whether a status change is in flight for the order.
func (b *Board) Updating(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, busy := b.updating[id]
	return busy
}

// Snapshot returns a copy of the full order list in display order.
func (b *Board) Snapshot() []upstream.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]upstream.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// Len returns the number of orders held.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// View applies a filter and returns the selected orders plus per-status
// counts for the same date and handler constraints.
func (b *Board) View(f Filter) ([]upstream.Order, map[string]int) {
	snap := b.Snapshot()
	return f.Apply(snap), CountByStatus(snap, f)
}

// caller must hold b.mu
func (b *Board) reindex() {
	b.index = make(map[string]int, len(b.orders))
	for i, o := range b.orders {
		b.index[o.ID] = i
	}
}
