package board

import (
	"testing"
	"time"

	"courierdeck/upstream"
)

func mkOrder(id, status string, created time.Time) upstream.Order {
	return upstream.Order{
		ID:          id,
		OrderNumber: "#" + id,
		Status:      status,
		CreatedAt:   created,
	}
}

func TestPrependIdempotent(t *testing.T) {
	b := New()
	o := mkOrder("o1", upstream.StatusPending, time.Now())
	if !b.Prepend(o) {
		t.Fatal("first prepend should insert")
	}
	if b.Prepend(o) {
		t.Fatal("duplicate prepend should be a no-op")
	}
	if b.Len() != 1 {
		t.Fatalf("want 1 order, got %d", b.Len())
	}
}

func TestPrependOrdering(t *testing.T) {
	b := New()
	b.Prepend(mkOrder("o1", upstream.StatusPending, time.Now()))
	b.Prepend(mkOrder("o2", upstream.StatusPending, time.Now()))
	snap := b.Snapshot()
	if snap[0].ID != "o2" || snap[1].ID != "o1" {
		t.Fatalf("newest order should be first, got %s, %s", snap[0].ID, snap[1].ID)
	}
}

func TestApplyUnknownDropped(t *testing.T) {
	b := New()
	b.ReplaceAll([]upstream.Order{mkOrder("o1", upstream.StatusPending, time.Now())})
	if b.Apply(mkOrder("ghost", upstream.StatusDelivered, time.Now())) {
		t.Fatal("update for unknown order should be dropped")
	}
	if b.Len() != 1 {
		t.Fatalf("dropped update must not change the list, got %d orders", b.Len())
	}
}

func TestApplyReplacesInPlace(t *testing.T) {
	b := New()
	b.ReplaceAll([]upstream.Order{
		mkOrder("o1", upstream.StatusPending, time.Now()),
		mkOrder("o2", upstream.StatusPending, time.Now()),
	})
	updated := mkOrder("o2", upstream.StatusDelivered, time.Now())
	if !b.Apply(updated) {
		t.Fatal("apply should succeed for a known order")
	}
	snap := b.Snapshot()
	if snap[1].ID != "o2" || snap[1].Status != upstream.StatusDelivered {
		t.Fatalf("order o2 should be delivered at position 1, got %+v", snap[1])
	}
}

func TestReplaceAllKeepsUpdateMarkers(t *testing.T) {
	b := New()
	b.ReplaceAll([]upstream.Order{mkOrder("o1", upstream.StatusPending, time.Now())})
	if !b.BeginUpdate("o1") {
		t.Fatal("first BeginUpdate should succeed")
	}
	b.ReplaceAll([]upstream.Order{mkOrder("o1", upstream.StatusPending, time.Now())})
	if !b.Updating("o1") {
		t.Fatal("refresh must not clear the in-flight marker")
	}
	b.EndUpdate("o1")
	if b.Updating("o1") {
		t.Fatal("EndUpdate should clear the marker")
	}
}

func TestBeginUpdateSingleFlight(t *testing.T) {
	b := New()
	if !b.BeginUpdate("o1") {
		t.Fatal("first BeginUpdate should succeed")
	}
	if b.BeginUpdate("o1") {
		t.Fatal("second BeginUpdate for the same order must fail")
	}
	if !b.BeginUpdate("o2") {
		t.Fatal("different order should not be blocked")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	b := New()
	b.ReplaceAll([]upstream.Order{mkOrder("o1", upstream.StatusPending, time.Now())})
	snap := b.Snapshot()
	snap[0].Status = upstream.StatusCancelled
	got, _ := b.Get("o1")
	if got.Status != upstream.StatusPending {
		t.Fatal("mutating a snapshot must not touch the board")
	}
}
