package feed

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"courierdeck/upstream"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

// recordingHandler collects feed callbacks for assertions.
type recordingHandler struct {
	mu        sync.Mutex
	connected int
	states    []State
	orders    []upstream.Order
	created   []upstream.Order
	updated   []upstream.Order
	products  []upstream.Product
	errors    []string
}

func (h *recordingHandler) Connected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected++
}

func (h *recordingHandler) StateChanged(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, s)
}

func (h *recordingHandler) OrdersSnapshot(orders []upstream.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = orders
}

func (h *recordingHandler) OrderCreated(o upstream.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, o)
}

func (h *recordingHandler) OrderUpdated(o upstream.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updated = append(h.updated, o)
}

func (h *recordingHandler) ProductUpdated(p upstream.Product) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.products = append(h.products, p)
}

func (h *recordingHandler) StreamError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
}

func (h *recordingHandler) wait(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		ok := cond()
		h.mu.Unlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func sseServer(t *testing.T, events string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, events)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Hold the stream open briefly so the client reads everything.
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedDispatch(t *testing.T) {
	events := "event: orders_list\ndata: [{\"_id\":\"o1\",\"status\":\"pending\"}]\n\n" +
		"event: new_order\ndata: {\"_id\":\"o2\",\"status\":\"pending\"}\n\n" +
		"event: order_updated\ndata: {\"_id\":\"o1\",\"status\":\"delivered\"}\n\n" +
		"event: product_updated\ndata: {\"_id\":\"p1\",\"title\":\"Crate\"}\n\n" +
		"event: error\ndata: {\"message\":\"backend hiccup\"}\n\n"
	srv := sseServer(t, events)

	h := &recordingHandler{}
	f := New(srv.URL, 10*time.Millisecond, 50*time.Millisecond, staticTokens("tok"), h)
	f.Start()
	defer f.Stop()

	h.wait(t, func() bool { return len(h.errors) > 0 })
	f.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connected < 1 {
		t.Error("Connected should fire after the stream opens")
	}
	if len(h.orders) != 1 || h.orders[0].ID != "o1" {
		t.Errorf("snapshot = %+v", h.orders)
	}
	if len(h.created) != 1 || h.created[0].ID != "o2" {
		t.Errorf("created = %+v", h.created)
	}
	if len(h.updated) != 1 || h.updated[0].Status != "delivered" {
		t.Errorf("updated = %+v", h.updated)
	}
	if len(h.products) != 1 || h.products[0].Title != "Crate" {
		t.Errorf("products = %+v", h.products)
	}
	if h.errors[0] != "backend hiccup" {
		t.Errorf("errors = %+v", h.errors)
	}
}

func TestFeedReconnects(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		// Close immediately; the consumer should come back.
	}))
	t.Cleanup(srv.Close)

	h := &recordingHandler{}
	f := New(srv.URL, time.Millisecond, 5*time.Millisecond, staticTokens(""), h)
	f.Start()
	defer f.Stop()

	h.wait(t, func() bool { return h.connected >= 2 })

	mu.Lock()
	got := hits
	mu.Unlock()
	if got < 2 {
		t.Fatalf("server hits = %d, want at least 2", got)
	}

	// A reconnect must pass through the reconnecting phase with an attempt count.
	h.mu.Lock()
	defer h.mu.Unlock()
	var sawReconnecting bool
	for _, s := range h.states {
		if s.Phase == PhaseReconnecting && s.Attempt >= 1 {
			sawReconnecting = true
		}
	}
	if !sawReconnecting {
		t.Errorf("states = %+v, want a reconnecting phase", h.states)
	}
}

func TestFeedSendsBearerToken(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case gotAuth <- r.Header.Get("Authorization"):
		default:
		}
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	t.Cleanup(srv.Close)

	h := &recordingHandler{}
	f := New(srv.URL, time.Millisecond, 5*time.Millisecond, staticTokens("tok-123"), h)
	f.Start()
	defer f.Stop()

	select {
	case auth := <-gotAuth:
		if auth != "Bearer tok-123" {
			t.Fatalf("Authorization = %q", auth)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a request")
	}
}

func TestFeedStopGoesOffline(t *testing.T) {
	srv := sseServer(t, ": keepalive\n\n")
	h := &recordingHandler{}
	f := New(srv.URL, time.Millisecond, 5*time.Millisecond, staticTokens(""), h)
	f.Start()
	h.wait(t, func() bool { return h.connected >= 1 })
	f.Stop()
	if got := f.State().Phase; got != PhaseOffline {
		t.Fatalf("phase after stop = %q, want %q", got, PhaseOffline)
	}
}
