package engine

import (
	"courierdeck/feed"
	"courierdeck/upstream"
)

const (
	EventOrdersReplaced EventType = iota + 1
	EventOrderAdded
	EventOrderUpdated
	EventOrderStatusChanged
	EventProductUpdated
	EventFeedStateChanged
	EventStreamError
	EventSessionStarted
	EventSessionEnded
	EventMessagingConnected
	EventMessagingDisconnected
	EventUpstreamConnected
	EventUpstreamDisconnected
)

// --- Event payloads ---

type OrdersReplacedEvent struct {
	Count int
}

type OrderAddedEvent struct {
	Order upstream.Order
}

type OrderUpdatedEvent struct {
	Order upstream.Order
}

type OrderStatusChangedEvent struct {
	Order     upstream.Order
	OldStatus string
	NewStatus string
	Actor     string
}

type ProductUpdatedEvent struct {
	Product upstream.Product
}

type FeedStateChangedEvent struct {
	State feed.State
}

type StreamErrorEvent struct {
	Message string
}

type SessionEvent struct {
	UserName string
	Reason   string // "login", "logout", "token_rejected"
}

type ConnectionEvent struct {
	Detail string
}
