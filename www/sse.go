package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"courierdeck/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					// drop if full
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

// BroadcastJSON marshals payload and broadcasts it under the event name.
func (h *EventHub) BroadcastJSON(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("sse: marshal %s: %v", event, err)
		return
	}
	h.Broadcast(event, string(data))
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners relays engine events to connected browsers under the
// same event names the backend feed uses, so the frontend has one protocol.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	eng.Events.On(engine.EventOrdersReplaced, func(evt engine.Event) {
		ev := evt.Payload.(engine.OrdersReplacedEvent)
		h.BroadcastJSON("orders_replaced", map[string]int{"count": ev.Count})
	})

	eng.Events.On(engine.EventOrderAdded, func(evt engine.Event) {
		h.BroadcastJSON("new_order", evt.Payload.(engine.OrderAddedEvent).Order)
	})

	eng.Events.On(engine.EventOrderUpdated, func(evt engine.Event) {
		h.BroadcastJSON("order_updated", evt.Payload.(engine.OrderUpdatedEvent).Order)
	})

	eng.Events.On(engine.EventOrderStatusChanged, func(evt engine.Event) {
		h.BroadcastJSON("order_updated", evt.Payload.(engine.OrderStatusChangedEvent).Order)
	})

	eng.Events.On(engine.EventProductUpdated, func(evt engine.Event) {
		h.BroadcastJSON("product_updated", evt.Payload.(engine.ProductUpdatedEvent).Product)
	})

	eng.Events.On(engine.EventFeedStateChanged, func(evt engine.Event) {
		h.BroadcastJSON("feed_state", evt.Payload.(engine.FeedStateChangedEvent).State)
	})

	eng.Events.On(engine.EventSessionStarted, func(evt engine.Event) {
		h.BroadcastJSON("session_started", evt.Payload.(engine.SessionEvent))
	})

	eng.Events.On(engine.EventSessionEnded, func(evt engine.Event) {
		h.BroadcastJSON("session_ended", evt.Payload.(engine.SessionEvent))
	})

	eng.Events.On(engine.EventUpstreamConnected, func(engine.Event) {
		h.Broadcast("system-status", `{"upstream":"connected"}`)
	})

	eng.Events.On(engine.EventUpstreamDisconnected, func(engine.Event) {
		h.Broadcast("system-status", `{"upstream":"disconnected"}`)
	})

	eng.Events.On(engine.EventMessagingConnected, func(engine.Event) {
		h.Broadcast("system-status", `{"messaging":"connected"}`)
	})

	eng.Events.On(engine.EventMessagingDisconnected, func(engine.Event) {
		h.Broadcast("system-status", `{"messaging":"disconnected"}`)
	})
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
