// Package pairing matches customer inquiries to the agent replies that answer them.
//
// Unmatched customer messages wait in a FIFO queue. Each agent message answers
// the oldest waiting customer message that is strictly earlier than it, so a
// burst of inquiries is answered in arrival order and a single reply never
// covers more than one of them.
package pairing

import (
	"github.com/MikeSquared-Agency/tempo/internal/chat"
	"github.com/MikeSquared-Agency/tempo/internal/segment"
)

// Excluder decides whether a customer identity is left out of pairing.
// exclusion.Set satisfies it.
type Excluder interface {
	IsExcluded(identity string) bool
}

// Scope selects the window over which customer messages wait for a reply.
type Scope int

const (
	// ScopeConversation pairs over a conversation's whole history, so a reply
	// after a session boundary still answers the inquiry before it.
	ScopeConversation Scope = iota
	// ScopeSession pairs each session independently; inquiries still waiting
	// when a session ends are censored.
	ScopeSession
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	default:
		return "conversation"
	}
}

// ParseScope maps "conversation" or "session" onto a Scope.
func ParseScope(raw string) (Scope, bool) {
	switch raw {
	case "", "conversation":
		return ScopeConversation, true
	case "session":
		return ScopeSession, true
	default:
		return ScopeConversation, false
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithScope sets the pairing scope used by PairSessions.
func WithScope(s Scope) Option {
	return func(e *Engine) { e.scope = s }
}

// Engine runs the FIFO pairing algorithm. It holds no per-run state and is
// safe for concurrent use.
type Engine struct {
	excluder Excluder
	scope    Scope
}

// New creates an Engine. A nil excluder excludes nobody.
func New(excluder Excluder, opts ...Option) *Engine {
	e := &Engine{excluder: excluder}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scope returns the configured pairing scope.
func (e *Engine) Scope() Scope {
	return e.scope
}

// PairSessions pairs a segmented conversation according to the engine's scope.
func (e *Engine) PairSessions(sessions []chat.Session) Result {
	if e.scope == ScopeSession {
		results := make([]Result, len(sessions))
		for i, s := range sessions {
			results[i] = e.Pair(s.Messages)
		}
		return MergeAll(results)
	}
	return e.Pair(segment.Flatten(sessions))
}

// Pair matches the messages of one stream. msgs must already be in
// chronological order; ties are processed in slice order.
func (e *Engine) Pair(msgs []chat.Message) Result {
	var (
		res   Result
		queue []chat.Message
	)

	for _, msg := range msgs {
		switch msg.Role {
		case chat.RoleCustomer:
			res.count(msg.Timestamp, func(t *Tally) { t.Customers++ })
			if e.excluder != nil && e.excluder.IsExcluded(msg.Identity) {
				res.count(msg.Timestamp, func(t *Tally) { t.Excluded++ })
				continue
			}
			queue = append(queue, msg)

		case chat.RoleAgent:
			res.count(msg.Timestamp, func(t *Tally) { t.Agents++ })
			matched := false
			for len(queue) > 0 {
				head := queue[0]
				queue = queue[1:]
				if pair, ok := chat.NewResponsePair(head, msg); ok {
					res.Pairs = append(res.Pairs, pair)
					matched = true
					break
				}
				// Reply is not strictly later than the inquiry; the inquiry is dropped.
				res.count(head.Timestamp, func(t *Tally) { t.Anomalies++ })
			}
			if !matched {
				res.count(msg.Timestamp, func(t *Tally) { t.UnmatchedAgents++ })
			}
		}
	}

	for _, m := range queue {
		res.count(m.Timestamp, func(t *Tally) { t.Censored++ })
	}
	return res
}
