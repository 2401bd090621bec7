// Package chat implements the dashboard's canned-response helper. Replies
// are generated from an ordered rule list; the first matching rule wins and
// an unmatched message gets the fallback.
package chat

import (
	"fmt"
	"strings"
)

// Snapshot is the live context a rule may draw on when composing a reply.
type Snapshot struct {
	UserName    string
	FeedLive    bool
	TotalOrders int
	Counts      map[string]int // per-status order counts
}

// Rule pairs a matcher with a reply generator.
type Rule struct {
	Match   func(message string) bool
	Respond func(message string, s Snapshot) string
}

// Responder answers messages from the ordered rule list.
type Responder struct {
	rules    []Rule
	fallback string
}

func NewResponder(rules []Rule, fallback string) *Responder {
	return &Responder{rules: rules, fallback: fallback}
}

// Respond returns the reply for message. Matching is case-insensitive.
func (r *Responder) Respond(message string, s Snapshot) string {
	msg := strings.ToLower(strings.TrimSpace(message))
	for _, rule := range r.rules {
		if rule.Match(msg) {
			return rule.Respond(msg, s)
		}
	}
	return r.fallback
}

func containsAny(msg string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

// Default builds the stock responder used by the dashboard.
func Default() *Responder {
	rules := []Rule{
		{
			Match: func(msg string) bool { return containsAny(msg, "hello", "hi ", "hey") || msg == "hi" },
			Respond: func(_ string, s Snapshot) string {
				if s.UserName != "" {
					return fmt.Sprintf("Hello %s! How can I help with your orders today?", s.UserName)
				}
				return "Hello! How can I help with your orders today?"
			},
		},
		{
			Match: func(msg string) bool { return containsAny(msg, "feed", "live", "connection", "offline") },
			Respond: func(_ string, s Snapshot) string {
				if s.FeedLive {
					return "The live feed is connected. Orders update in real time."
				}
				return "The live feed is down right now. The list may be stale until it reconnects."
			},
		},
		{
			Match: func(msg string) bool {
				return containsAny(msg, "pending", "in progress", "delivered", "cancelled", "rescheduled")
			},
			Respond: func(msg string, s Snapshot) string {
				for _, status := range []struct{ word, key, label string }{
					{"pending", "pending", "pending"},
					{"in progress", "in_progress", "in progress"},
					{"delivered", "delivered", "delivered"},
					{"cancelled", "cancelled", "cancelled"},
					{"rescheduled", "rescheduled", "rescheduled"},
				} {
					if strings.Contains(msg, status.word) {
						return fmt.Sprintf("There are %d %s orders on the board.", s.Counts[status.key], status.label)
					}
				}
				return fmt.Sprintf("There are %d orders on the board.", s.TotalOrders)
			},
		},
		{
			Match: func(msg string) bool { return containsAny(msg, "how many", "count", "total", "orders") },
			Respond: func(_ string, s Snapshot) string {
				return fmt.Sprintf("There are %d orders on the board.", s.TotalOrders)
			},
		},
		{
			Match: func(msg string) bool { return containsAny(msg, "help", "what can you") },
			Respond: func(_ string, _ Snapshot) string {
				return "I can report order counts by status, check the live feed, and point you at the dashboard stats."
			},
		},
		{
			Match: func(msg string) bool { return containsAny(msg, "thank", "thanks") },
			Respond: func(_ string, _ Snapshot) string {
				return "You're welcome!"
			},
		},
	}
	return NewResponder(rules, "I'm not sure about that. Try asking about order counts or the live feed.")
}
