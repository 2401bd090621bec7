// Package wire defines the JSON envelope the deck publishes on the message
// bus so other depot systems can follow order activity without talking to
// the remote backend themselves.
package wire

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Version is the current envelope schema version.
const Version = 1

// Mirror event types.
const (
	TypeOrderSnapshot     = "order.snapshot"
	TypeOrderCreated      = "order.created"
	TypeOrderUpdated      = "order.updated"
	TypeOrderStatusPushed = "order.status_pushed"
	TypeProductUpdated    = "product.updated"
	TypeFeedState         = "feed.state"
)

// Command types other depot systems may send on the command topic.
const (
	TypeRefreshRequested = "cmd.refresh_orders"
	TypeCommandAck       = "cmd.ack"
)

// Envelope wraps every message the deck publishes.
type Envelope struct {
	Version   int             `json:"v"`
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Station   string          `json:"stn"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"p"`
}

// RawHeader is the minimal decode for routing decisions before full payload decode.
type RawHeader struct {
	Version int    `json:"v"`
	Type    string `json:"type"`
	ID      string `json:"id"`
	Station string `json:"stn"`
}

// NewEnvelope creates an outbound envelope.
func NewEnvelope(msgType, station string, payload any) (*Envelope, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Version:   Version,
		Type:      msgType,
		ID:        uuid.New().String(),
		Station:   station,
		Timestamp: time.Now().UTC(),
		Payload:   p,
	}, nil
}

// Encode marshals the envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode unmarshals a complete envelope.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodePayload unmarshals the raw payload into the given target.
func (e *Envelope) DecodePayload(target any) error {
	return json.Unmarshal(e.Payload, target)
}

// StatusPush is the payload for order.status_pushed: a transition the deck
// itself requested, as distinct from one observed on the feed.
type StatusPush struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Actor     string `json:"actor"`
}
