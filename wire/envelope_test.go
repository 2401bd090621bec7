package wire

import (
	"testing"

	"courierdeck/upstream"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	push := StatusPush{OrderID: "o1", OldStatus: "pending", NewStatus: "in_progress", Actor: "admin"}
	env, err := NewEnvelope(TypeOrderStatusPushed, "deck-1", push)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if env.ID == "" {
		t.Fatal("envelope should get a generated ID")
	}
	if env.Version != Version {
		t.Errorf("Version = %d", env.Version)
	}

	data, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != TypeOrderStatusPushed || got.Station != "deck-1" {
		t.Fatalf("header mismatch: %+v", got)
	}
	var p StatusPush
	if err := got.DecodePayload(&p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p != push {
		t.Fatalf("payload = %+v, want %+v", p, push)
	}
}

func TestEnvelopeCarriesOrder(t *testing.T) {
	order := upstream.Order{ID: "o9", Status: upstream.StatusDelivered}
	env, err := NewEnvelope(TypeOrderUpdated, "deck-1", order)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var got upstream.Order
	if err := env.DecodePayload(&got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.ID != "o9" || got.Status != upstream.StatusDelivered {
		t.Fatalf("order = %+v", got)
	}
}
