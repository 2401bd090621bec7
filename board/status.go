package board

import "courierdeck/upstream"

// FilterAll selects every status.
const FilterAll = "all"

// FilterLabels lists every filter button label, in display order.
var FilterLabels = []string{
	FilterAll,
	upstream.StatusPending,
	upstream.StatusInProgress,
	upstream.StatusDelivered,
	upstream.StatusCancelled,
	upstream.StatusRescheduled,
}

// actionable statuses a user may move an order into. "pending" is the
// backend's initial state, never a target.
var actionableTargets = map[string]struct{}{
	upstream.StatusInProgress:  {},
	upstream.StatusDelivered:   {},
	upstream.StatusCancelled:   {},
	upstream.StatusRescheduled: {},
}

// IsActionableTarget reports whether status is a valid transition target.
func IsActionableTarget(status string) bool {
	_, ok := actionableTargets[status]
	return ok
}

// IsKnownStatus reports whether status is one of the five order statuses.
func IsKnownStatus(status string) bool {
	for _, s := range upstream.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// StatusLabel returns the canonical display label for a status.
func StatusLabel(status string) string {
	switch status {
	case upstream.StatusPending:
		return "Pending"
	case upstream.StatusInProgress:
		return "In Progress"
	case upstream.StatusDelivered:
		return "Delivered"
	case upstream.StatusCancelled:
		return "Cancelled"
	case upstream.StatusRescheduled:
		return "Rescheduled"
	default:
		return status
	}
}

// StatusColor returns the canonical badge color for a status.
func StatusColor(status string) string {
	switch status {
	case upstream.StatusPending:
		return "#757575"
	case upstream.StatusInProgress:
		return "#ff9800"
	case upstream.StatusDelivered:
		return "#4caf50"
	case upstream.StatusCancelled:
		return "#f44336"
	case upstream.StatusRescheduled:
		return "#9c27b0"
	default:
		return "#757575"
	}
}
