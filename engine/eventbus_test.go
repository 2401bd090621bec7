package engine

import "testing"

func TestEventBusRoutesByType(t *testing.T) {
	bus := NewEventBus()
	var added, all int
	bus.On(EventOrderAdded, func(Event) { added++ })
	bus.OnAll(func(Event) { all++ })

	bus.Emit(Event{Type: EventOrderAdded})
	bus.Emit(Event{Type: EventOrderUpdated})

	if added != 1 {
		t.Errorf("typed listener fired %d times, want 1", added)
	}
	if all != 2 {
		t.Errorf("catch-all listener fired %d times, want 2", all)
	}
}

func TestEventBusStampsTimestamp(t *testing.T) {
	bus := NewEventBus()
	var got Event
	bus.OnAll(func(e Event) { got = e })

	bus.Emit(Event{Type: EventStreamError, Payload: StreamErrorEvent{Message: "x"}})
	if got.Timestamp.IsZero() {
		t.Error("emitted event should carry a timestamp")
	}
	if got.Payload.(StreamErrorEvent).Message != "x" {
		t.Errorf("payload = %+v", got.Payload)
	}
}
