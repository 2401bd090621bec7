package engine

import (
	"sync"
	"time"
)

// EventType tags the kind of deck activity an Event carries.
type EventType int

// Event is one piece of deck activity: an order mutation, a feed state
// transition, a session boundary. Payload holds the matching payload
// struct from events.go.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// EventBus fans deck activity out to in-process listeners (the SSE relay,
// tests). Listeners run synchronously on the emitting goroutine and must
// not block. Listeners are registered at startup and never removed.
type EventBus struct {
	mu       sync.RWMutex
	byType   map[EventType][]func(Event)
	catchAll []func(Event)
}

func NewEventBus() *EventBus {
	return &EventBus{byType: make(map[EventType][]func(Event))}
}

// On registers fn for one event type.
func (b *EventBus) On(t EventType, fn func(Event)) {
	b.mu.Lock()
	b.byType[t] = append(b.byType[t], fn)
	b.mu.Unlock()
}

// OnAll registers fn for every event type.
func (b *EventBus) OnAll(fn func(Event)) {
	b.mu.Lock()
	b.catchAll = append(b.catchAll, fn)
	b.mu.Unlock()
}

// Emit stamps evt if needed and delivers it to the catch-all listeners,
// then to the listeners registered for its type.
func (b *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.catchAll)+len(b.byType[evt.Type]))
	fns = append(fns, b.catchAll...)
	fns = append(fns, b.byType[evt.Type]...)
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
