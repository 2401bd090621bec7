package board

import (
	"strings"
	"time"

	"courierdeck/upstream"
)

// Filter selects a slice of the order list. The zero value selects
// everything. Date bounds are calendar days, inclusive on both ends, in the
// deck's local time.
type Filter struct {
	Status  string    // one status, or "" / "all" for every status
	Start   time.Time // zero means unbounded
	End     time.Time // zero means unbounded
	Handler string    // case-insensitive substring of the handler name
}

// matchesScope reports whether the order passes the date and handler
// constraints, ignoring the status constraint.
func (f Filter) matchesScope(o upstream.Order) bool {
	if !f.Start.IsZero() {
		start := dayStart(f.Start)
		if o.CreatedAt.Before(start) {
			return false
		}
	}
	if !f.End.IsZero() {
		end := dayStart(f.End).AddDate(0, 0, 1)
		if !o.CreatedAt.Before(end) {
			return false
		}
	}
	if f.Handler != "" {
		if o.HandledBy == nil {
			return false
		}
		if !strings.Contains(strings.ToLower(o.HandledBy.Name), strings.ToLower(f.Handler)) {
			return false
		}
	}
	return true
}

// Matches reports whether the order passes every constraint.
func (f Filter) Matches(o upstream.Order) bool {
	if f.Status != "" && f.Status != FilterAll && o.Status != f.Status {
		return false
	}
	return f.matchesScope(o)
}

// Apply returns the orders matching the filter, preserving input order.
func (f Filter) Apply(orders []upstream.Order) []upstream.Order {
	out := make([]upstream.Order, 0, len(orders))
	for _, o := range orders {
		if f.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// CountByStatus tallies orders per status under the filter's date and
// handler constraints. The status constraint itself is ignored so the
// filter bar badges stay stable while one status is selected. The "all"
// key holds the scoped total. Every known status is present, zero or not.
func CountByStatus(orders []upstream.Order, f Filter) map[string]int {
	counts := make(map[string]int, len(upstream.Statuses)+1)
	counts[FilterAll] = 0
	for _, s := range upstream.Statuses {
		counts[s] = 0
	}
	for _, o := range orders {
		if !f.matchesScope(o) {
			continue
		}
		counts[FilterAll]++
		if _, known := counts[o.Status]; known {
			counts[o.Status]++
		}
	}
	return counts
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
