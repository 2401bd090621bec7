package engine

import (
	"context"
	"time"

	"courierdeck/feed"
	"courierdeck/upstream"
	"courierdeck/wire"
)

// FeedHandler adapts the engine to the feed's callback interface.
type FeedHandler struct {
	e *Engine
}

func (e *Engine) FeedHandler() *FeedHandler { return &FeedHandler{e: e} }

// Connected fires on every (re)connect. The stream only carries deltas, so
// a full refresh reconciles anything missed while the stream was down.
func (h *FeedHandler) Connected() {
	if !h.e.session.LoggedIn() {
		return
	}
	if err := h.e.RefreshOrders(); err != nil {
		h.e.logFn("engine: bootstrap refresh: %v", err)
	}
}

func (h *FeedHandler) StateChanged(s feed.State) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.e.stats.SetFeedState(ctx, s); err != nil {
		h.e.logFn("engine: cache feed state: %v", err)
	}
	h.e.mirror.Enqueue(wire.TypeFeedState, s)
	h.e.Events.Emit(Event{Type: EventFeedStateChanged, Payload: FeedStateChangedEvent{State: s}})
}

func (h *FeedHandler) OrdersSnapshot(orders []upstream.Order) {
	h.e.board.ReplaceAll(orders)
	h.e.Events.Emit(Event{Type: EventOrdersReplaced, Payload: OrdersReplacedEvent{Count: len(orders)}})
}

func (h *FeedHandler) OrderCreated(order upstream.Order) {
	if !h.e.board.Prepend(order) {
		// Already on the board; the stream redelivered.
		return
	}
	h.e.mirror.Enqueue(wire.TypeOrderCreated, order)
	h.e.Events.Emit(Event{Type: EventOrderAdded, Payload: OrderAddedEvent{Order: order}})
}

func (h *FeedHandler) OrderUpdated(order upstream.Order) {
	if !h.e.board.Apply(order) {
		// Unknown order; the next full refresh reconciles it.
		return
	}
	h.e.mirror.Enqueue(wire.TypeOrderUpdated, order)
	h.e.Events.Emit(Event{Type: EventOrderUpdated, Payload: OrderUpdatedEvent{Order: order}})
}

func (h *FeedHandler) ProductUpdated(product upstream.Product) {
	h.e.catalog.Merge(product)
	h.e.mirror.Enqueue(wire.TypeProductUpdated, product)
	h.e.Events.Emit(Event{Type: EventProductUpdated, Payload: ProductUpdatedEvent{Product: product}})
}

func (h *FeedHandler) StreamError(message string) {
	h.e.logFn("engine: feed reported: %s", message)
	h.e.Events.Emit(Event{Type: EventStreamError, Payload: StreamErrorEvent{Message: message}})
}
