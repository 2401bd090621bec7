package board

import (
	"testing"

	"courierdeck/upstream"
)

func TestStatusLabelsAndColors(t *testing.T) {
	cases := []struct {
		status string
		label  string
		color  string
	}{
		{upstream.StatusPending, "Pending", "#757575"},
		{upstream.StatusInProgress, "In Progress", "#ff9800"},
		{upstream.StatusDelivered, "Delivered", "#4caf50"},
		{upstream.StatusCancelled, "Cancelled", "#f44336"},
		{upstream.StatusRescheduled, "Rescheduled", "#9c27b0"},
	}
	for _, c := range cases {
		if got := StatusLabel(c.status); got != c.label {
			t.Errorf("StatusLabel(%q) = %q, want %q", c.status, got, c.label)
		}
		if got := StatusColor(c.status); got != c.color {
			t.Errorf("StatusColor(%q) = %q, want %q", c.status, got, c.color)
		}
	}
	// Unknown statuses fall back to the neutral badge.
	if got := StatusColor("shipped"); got != "#757575" {
		t.Errorf("StatusColor fallback = %q", got)
	}
}

func TestIsKnownStatus(t *testing.T) {
	for _, s := range upstream.Statuses {
		if !IsKnownStatus(s) {
			t.Errorf("IsKnownStatus(%q) = false", s)
		}
	}
	if IsKnownStatus("shipped") || IsKnownStatus(FilterAll) {
		t.Error("only the five order statuses are known")
	}
}

func TestFilterLabelsOrder(t *testing.T) {
	want := []string{FilterAll, "pending", "in_progress", "delivered", "cancelled", "rescheduled"}
	if len(FilterLabels) != len(want) {
		t.Fatalf("FilterLabels = %v", FilterLabels)
	}
	for i, l := range want {
		if FilterLabels[i] != l {
			t.Errorf("FilterLabels[%d] = %q, want %q", i, FilterLabels[i], l)
		}
	}
}
