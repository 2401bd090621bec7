// Package feed maintains the push-channel subscription to the backend's
// event stream. It reconnects with capped exponential backoff and reports
// its connection state so the dashboard can show a live/stale indicator.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"courierdeck/upstream"
)

// Connection phases, in the order they normally occur.
const (
	PhaseConnecting   = "connecting"
	PhaseConnected    = "connected"
	PhaseReconnecting = "reconnecting"
	PhaseOffline      = "offline"
)

// State is the feed's current connection condition.
type State struct {
	Phase   string `json:"phase"`
	Attempt int    `json:"attempt,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Live reports whether events are currently flowing.
func (s State) Live() bool { return s.Phase == PhaseConnected }

// Handler receives decoded feed traffic. Connected fires once per
// (re)connection, before any stream events, so the handler can do a full
// REST refresh and reconcile anything missed while the stream was down.
type Handler interface {
	Connected()
	StateChanged(State)
	OrdersSnapshot(orders []upstream.Order)
	OrderCreated(order upstream.Order)
	OrderUpdated(order upstream.Order)
	ProductUpdated(product upstream.Product)
	StreamError(message string)
}

// Feed is the reconnecting event stream consumer.
type Feed struct {
	eventsURL      string
	initialBackoff time.Duration
	maxBackoff     time.Duration
	tokens         upstream.TokenSource
	handler        Handler
	client         *http.Client

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func New(eventsURL string, initialBackoff, maxBackoff time.Duration, tokens upstream.TokenSource, handler Handler) *Feed {
	if initialBackoff <= 0 {
		initialBackoff = time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	return &Feed{
		eventsURL:      eventsURL,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		tokens:         tokens,
		handler:        handler,
		// No overall timeout: the stream is long-lived by design.
		client:   &http.Client{},
		state:    State{Phase: PhaseOffline},
		stopChan: make(chan struct{}),
	}
}

// State returns the current connection state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Start launches the subscription loop. Safe to call once.
func (f *Feed) Start() {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()
	f.wg.Add(1)
	go f.loop()
}

// Stop tears the stream down and waits for the loop to exit.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopChan)
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()
	f.wg.Wait()
	f.setState(State{Phase: PhaseOffline})
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	changed := f.state != s
	f.state = s
	f.mu.Unlock()
	if changed {
		f.handler.StateChanged(s)
	}
}

// loop reconnects on disconnect with capped exponential backoff.
func (f *Feed) loop() {
	defer f.wg.Done()

	attempt := 0
	for {
		select {
		case <-f.stopChan:
			return
		default:
		}

		if attempt == 0 {
			f.setState(State{Phase: PhaseConnecting})
		}

		err := f.connect()
		if err == nil {
			// Clean shutdown via context cancellation
			return
		}
		log.Printf("feed: stream lost: %v", err)

		attempt++
		f.setState(State{Phase: PhaseReconnecting, Attempt: attempt, Error: err.Error()})
		if !f.backoff(attempt) {
			return // stop requested
		}
	}
}

// connect opens a single stream and processes events until it ends or the
// context is cancelled. Returns nil on clean shutdown.
func (f *Feed) connect() error {
	ctx, cancel := context.WithCancel(context.Background())

	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.eventsURL, nil)
	if err != nil {
		return fmt.Errorf("feed request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if tok := f.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// Context cancellation is a clean shutdown
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("feed connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed status %d", resp.StatusCode)
	}

	log.Printf("feed: connected to %s", f.eventsURL)
	f.setState(State{Phase: PhaseConnected})
	// Full refresh first so anything missed while down is reconciled
	// before stream deltas are applied.
	f.handler.Connected()

	reader := newSSEReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				if ctx.Err() != nil {
					return nil // clean shutdown
				}
				return fmt.Errorf("feed stream EOF")
			}
			return fmt.Errorf("feed read: %w", err)
		}
		f.dispatch(ev)
	}
}

func (f *Feed) dispatch(ev rawEvent) {
	switch ev.Event {
	case "orders_list":
		var orders []upstream.Order
		if err := json.Unmarshal([]byte(ev.Data), &orders); err != nil {
			log.Printf("feed: orders_list decode: %v", err)
			return
		}
		f.handler.OrdersSnapshot(orders)
	case "new_order":
		var order upstream.Order
		if err := json.Unmarshal([]byte(ev.Data), &order); err != nil {
			log.Printf("feed: new_order decode: %v", err)
			return
		}
		f.handler.OrderCreated(order)
	case "order_updated":
		var order upstream.Order
		if err := json.Unmarshal([]byte(ev.Data), &order); err != nil {
			log.Printf("feed: order_updated decode: %v", err)
			return
		}
		f.handler.OrderUpdated(order)
	case "product_updated":
		var product upstream.Product
		if err := json.Unmarshal([]byte(ev.Data), &product); err != nil {
			log.Printf("feed: product_updated decode: %v", err)
			return
		}
		f.handler.ProductUpdated(product)
	case "error":
		var e struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &e); err != nil || e.Message == "" {
			e.Message = ev.Data
		}
		f.handler.StreamError(e.Message)
	default:
		// Ignore unknown event types
	}
}

// backoff waits with capped exponential backoff + jitter.
// Returns false if a stop signal was received during the wait.
func (f *Feed) backoff(attempt int) bool {
	// Base delay: initial * 2^(attempt-1), capped
	base := f.initialBackoff
	for i := 1; i < attempt && base < f.maxBackoff; i++ {
		base *= 2
	}
	if base > f.maxBackoff {
		base = f.maxBackoff
	}

	// Add ±20% jitter
	jitter := time.Duration(float64(base) * (0.8 + 0.4*rand.Float64()))

	log.Printf("feed: reconnecting in %v (attempt %d)", jitter.Round(time.Millisecond), attempt)

	timer := time.NewTimer(jitter)
	defer timer.Stop()

	select {
	case <-f.stopChan:
		return false
	case <-timer.C:
		return true
	}
}
