package chat

import (
	"strings"
	"time"
)

// Role is the normalized author role of a chat message.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

// DefaultDisplayName is used when a source record carries no author name.
const DefaultDisplayName = "Unknown"

// ParseRole maps a source role string onto a Role. Matching is case-insensitive;
// "admin" is the legacy name for agent replies.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "customer", "user":
		return RoleCustomer, true
	case "agent", "admin":
		return RoleAgent, true
	default:
		return "", false
	}
}

// Message is a single normalized chat event. Timestamp is already in the
// reporting zone; nothing downstream converts it again.
type Message struct {
	ConversationID string
	ID             string
	Role           Role
	Identity       string // empty when the source had none
	Text           string
	Timestamp      time.Time
	DisplayName    string
}

// Conversation is the full message history of one customer.
type Conversation struct {
	ID       string
	Messages []Message
}

// Session is a gap- and day-bounded run of consecutive messages.
type Session struct {
	Messages []Message
}

// Start returns the timestamp of the first message.
func (s Session) Start() time.Time {
	if len(s.Messages) == 0 {
		return time.Time{}
	}
	return s.Messages[0].Timestamp
}

// End returns the timestamp of the last message.
func (s Session) End() time.Time {
	if len(s.Messages) == 0 {
		return time.Time{}
	}
	return s.Messages[len(s.Messages)-1].Timestamp
}

// ResponsePair links a customer inquiry to the agent reply that answered it.
// Agent.Timestamp is always strictly after Customer.Timestamp.
type ResponsePair struct {
	Customer Message
	Agent    Message
	Latency  time.Duration
}

// NewResponsePair builds a pair, reporting false when the agent message is not
// strictly later than the customer message.
func NewResponsePair(customer, agent Message) (ResponsePair, bool) {
	if !agent.Timestamp.After(customer.Timestamp) {
		return ResponsePair{}, false
	}
	return ResponsePair{
		Customer: customer,
		Agent:    agent,
		Latency:  agent.Timestamp.Sub(customer.Timestamp),
	}, true
}

// ConversationID returns the conversation both messages belong to.
func (p ResponsePair) ConversationID() string {
	return p.Customer.ConversationID
}

// LatencySeconds returns the latency in fractional seconds.
func (p ResponsePair) LatencySeconds() float64 {
	return p.Latency.Seconds()
}

// LatencyMinutes returns the latency in fractional minutes.
func (p ResponsePair) LatencyMinutes() float64 {
	return p.Latency.Minutes()
}

// Date returns the customer message's calendar date as YYYY-MM-DD. Pairs are
// reported against the day the inquiry arrived.
func (p ResponsePair) Date() string {
	return DateOf(p.Customer.Timestamp)
}

// DateOf formats the calendar date of t in its own location.
func DateOf(t time.Time) string {
	return t.Format(time.DateOnly)
}

// InRange reports whether the YYYY-MM-DD date lies in [from, to]. Either
// bound may be empty to leave that side open.
func InRange(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	return to == "" || date <= to
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
