// Package engine ties the feed, board, catalog, session and messaging
// layers together and owns the one mutating action the dashboard has:
// pushing an order status change to the backend.
package engine

import (
	"errors"
	"log"
	"time"

	"courierdeck/board"
	"courierdeck/catalog"
	"courierdeck/config"
	"courierdeck/messaging"
	"courierdeck/session"
	"courierdeck/statcache"
	"courierdeck/store"
	"courierdeck/upstream"
	"courierdeck/wire"
)

var (
	// ErrInvalidTarget is returned for a status the backend would reject.
	ErrInvalidTarget = errors.New("engine: invalid status target")
	// ErrAlreadyInStatus is returned when the order already holds the target status.
	ErrAlreadyInStatus = errors.New("engine: order already in that status")
	// ErrUpdateInFlight is returned when a change for the order is still pending.
	ErrUpdateInFlight = errors.New("engine: status update already in flight")
	// ErrUnknownOrder is returned for an order ID the board does not hold.
	ErrUnknownOrder = errors.New("engine: unknown order")
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Upstream   *upstream.Client
	Session    *session.Manager
	Stats      *statcache.Cache
	MsgClient  *messaging.Client
	LogFunc    LogFunc
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	upstream   *upstream.Client
	session    *session.Manager
	board      *board.Board
	catalog    *catalog.Catalog
	stats      *statcache.Cache
	msgClient  *messaging.Client
	mirror     *messaging.Mirror
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}

	upstreamConnected bool
	msgConnected      bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		upstream:   c.Upstream,
		session:    c.Session,
		board:      board.New(),
		catalog:    catalog.New(),
		stats:      c.Stats,
		msgClient:  c.MsgClient,
		mirror:     messaging.NewMirror(c.DB, c.AppConfig.Messaging.EventsTopic, c.AppConfig.Messaging.StationID),
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
}

func (e *Engine) Start() {
	e.checkConnectionStatus()
	if e.msgClient != nil && e.msgClient.IsConnected() && e.cfg.Messaging.CommandsTopic != "" {
		if err := e.msgClient.Subscribe(e.cfg.Messaging.CommandsTopic, e.handleCommand); err != nil {
			e.logFn("engine: subscribe %s: %v", e.cfg.Messaging.CommandsTopic, err)
		}
	}
	go e.connectionHealthLoop()
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                { return e.db }
func (e *Engine) AppConfig() *config.Config    { return e.cfg }
func (e *Engine) ConfigPath() string           { return e.configPath }
func (e *Engine) Board() *board.Board          { return e.board }
func (e *Engine) Catalog() *catalog.Catalog    { return e.catalog }
func (e *Engine) Session() *session.Manager    { return e.session }
func (e *Engine) Upstream() *upstream.Client   { return e.upstream }
func (e *Engine) Stats() *statcache.Cache      { return e.stats }
func (e *Engine) MsgClient() *messaging.Client { return e.msgClient }

// ReconfigureUpstream re-points the REST client at the configured backend.
func (e *Engine) ReconfigureUpstream() {
	e.upstream.Reconfigure(e.cfg.Upstream.BaseURL, e.cfg.Upstream.Timeout)
	e.logFn("engine: upstream reconfigured (%s)", e.cfg.Upstream.BaseURL)
}

// ReconfigureMessaging reconnects the bus client with the current config.
// Subscriptions, including the command topic, are restored by the client.
func (e *Engine) ReconfigureMessaging() error {
	if e.msgClient == nil {
		return nil
	}
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		return err
	}
	e.checkConnectionStatus()
	return nil
}

// StartSession logs into the backend and announces the new session.
func (e *Engine) StartSession(email, password string) (*upstream.User, error) {
	user, err := e.session.Login(email, password)
	if err != nil {
		return nil, err
	}
	e.Events.Emit(Event{Type: EventSessionStarted, Payload: SessionEvent{UserName: user.Name, Reason: "login"}})
	return user, nil
}

// UpdateOrderStatus pushes a status transition to the backend. The board is
// only touched with the backend's confirmed record; there is no optimistic
// local write, so a failed call leaves the order exactly as it was.
func (e *Engine) UpdateOrderStatus(orderID, target, actor string) (*upstream.Order, error) {
	if !e.session.LoggedIn() {
		return nil, session.ErrNotLoggedIn
	}
	if !board.IsActionableTarget(target) {
		return nil, ErrInvalidTarget
	}
	current, ok := e.board.Get(orderID)
	if !ok {
		return nil, ErrUnknownOrder
	}
	if current.Status == target {
		// Checked before any network traffic.
		return nil, ErrAlreadyInStatus
	}
	if !e.board.BeginUpdate(orderID) {
		return nil, ErrUpdateInFlight
	}
	defer e.board.EndUpdate(orderID)

	updated, err := e.upstream.UpdateOrderStatus(orderID, target)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			e.endSession("token_rejected")
		}
		return nil, err
	}

	e.board.Apply(*updated)
	if err := e.db.AppendAudit("order", orderID, "status_change", current.Status, updated.Status, actor); err != nil {
		e.logFn("engine: audit status change: %v", err)
	}
	e.mirror.Enqueue(wire.TypeOrderStatusPushed, wire.StatusPush{
		OrderID:   orderID,
		OldStatus: current.Status,
		NewStatus: updated.Status,
		Actor:     actor,
	})
	e.Events.Emit(Event{Type: EventOrderStatusChanged, Payload: OrderStatusChangedEvent{
		Order:     *updated,
		OldStatus: current.Status,
		NewStatus: updated.Status,
		Actor:     actor,
	}})
	return updated, nil
}

// RefreshOrders does a full REST fetch and replaces the board.
func (e *Engine) RefreshOrders() error {
	orders, err := e.upstream.FetchOrders()
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			e.endSession("token_rejected")
		}
		return err
	}
	e.board.ReplaceAll(orders)
	e.mirror.Enqueue(wire.TypeOrderSnapshot, struct {
		Count int `json:"count"`
	}{len(orders)})
	e.Events.Emit(Event{Type: EventOrdersReplaced, Payload: OrdersReplacedEvent{Count: len(orders)}})
	e.logFn("engine: refreshed %d orders", len(orders))
	return nil
}

// LoadCatalogPage fetches one product page and makes it the displayed page.
func (e *Engine) LoadCatalogPage(q catalog.Query) (*upstream.ProductPage, error) {
	q = q.Normalize()
	page, err := e.upstream.FetchProducts(upstream.ProductQuery{
		Search: q.Search,
		Sort:   q.Sort,
		Order:  q.Order,
		Limit:  catalog.PageSize,
		Skip:   q.Skip(),
	})
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			e.endSession("token_rejected")
		}
		return nil, err
	}
	e.catalog.SetPage(q, page)
	return page, nil
}

// handleCommand processes control messages other depot systems publish on
// the command topic. The deck's own traffic is skipped by station ID.
func (e *Engine) handleCommand(_ string, payload []byte) {
	env, err := wire.Decode(payload)
	if err != nil {
		e.logFn("engine: bad bus command: %v", err)
		return
	}
	if env.Station == e.cfg.Messaging.StationID {
		return
	}
	switch env.Type {
	case wire.TypeRefreshRequested:
		if err := e.RefreshOrders(); err != nil {
			e.logFn("engine: bus-requested refresh: %v", err)
			return
		}
		e.ackCommand(env)
	default:
		e.logFn("engine: unknown bus command %q", env.Type)
	}
}

// ackCommand answers a bus command directly on the events topic, outside
// the outbox; a lost ack is acceptable.
func (e *Engine) ackCommand(cmd *wire.Envelope) {
	if e.msgClient == nil || !e.msgClient.IsConnected() {
		return
	}
	ack, err := wire.NewEnvelope(wire.TypeCommandAck, e.cfg.Messaging.StationID, map[string]string{"ack": cmd.ID})
	if err != nil {
		return
	}
	if err := e.msgClient.PublishEnvelope(e.cfg.Messaging.EventsTopic, ack); err != nil {
		e.logFn("engine: command ack: %v", err)
	}
}

func (e *Engine) endSession(reason string) {
	name := ""
	if u := e.session.User(); u != nil {
		name = u.Name
	}
	e.session.Teardown()
	e.Events.Emit(Event{Type: EventSessionEnded, Payload: SessionEvent{UserName: name, Reason: reason}})
}

func (e *Engine) checkConnectionStatus() {
	// Upstream backend
	if err := e.upstream.Ping(); err == nil {
		if !e.upstreamConnected {
			e.upstreamConnected = true
			e.Events.Emit(Event{Type: EventUpstreamConnected, Payload: ConnectionEvent{Detail: "backend reachable"}})
		}
	} else {
		if e.upstreamConnected {
			e.upstreamConnected = false
			e.Events.Emit(Event{Type: EventUpstreamDisconnected, Payload: ConnectionEvent{Detail: err.Error()}})
		}
	}

	// Messaging
	if e.msgClient != nil && e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
