package messaging

import (
	"log"

	"courierdeck/store"
	"courierdeck/wire"
)

// Mirror turns order activity into bus envelopes via the outbox.
type Mirror struct {
	db      *store.DB
	topic   string
	station string
}

func NewMirror(db *store.DB, topic, station string) *Mirror {
	return &Mirror{db: db, topic: topic, station: station}
}

// Enqueue wraps payload in an envelope and writes it to the outbox.
// Failures are logged, never propagated; mirroring must not disturb the
// dashboard's own flow.
func (m *Mirror) Enqueue(msgType string, payload any) {
	env, err := wire.NewEnvelope(msgType, m.station, payload)
	if err != nil {
		log.Printf("mirror: build %s envelope: %v", msgType, err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		log.Printf("mirror: encode %s envelope: %v", msgType, err)
		return
	}
	if err := m.db.EnqueueOutbox(m.topic, data, msgType, m.station); err != nil {
		log.Printf("mirror: enqueue %s: %v", msgType, err)
	}
}
