// Package segment splits a conversation into sessions.
package segment

import (
	"sort"
	"time"

	"github.com/MikeSquared-Agency/tempo/internal/chat"
)

// DefaultGap is the inactivity threshold that closes a session.
const DefaultGap = 180 * time.Minute

// Split partitions msgs into sessions. Messages are stable-sorted by timestamp,
// so messages at the same instant keep their ingestion order. A new session
// starts when a message is more than gap after the previous one or falls on a
// different calendar day. Empty input returns chat.ErrEmptyConversation.
func Split(msgs []chat.Message, gap time.Duration) ([]chat.Session, error) {
	if len(msgs) == 0 {
		return nil, chat.ErrEmptyConversation
	}
	if gap <= 0 {
		gap = DefaultGap
	}

	sorted := Sorted(msgs)

	var sessions []chat.Session
	current := []chat.Message{sorted[0]}

	for _, msg := range sorted[1:] {
		prev := current[len(current)-1]
		if msg.Timestamp.Sub(prev.Timestamp) > gap || !chat.SameDay(prev.Timestamp, msg.Timestamp) {
			sessions = append(sessions, chat.Session{Messages: current})
			current = nil
		}
		current = append(current, msg)
	}

	sessions = append(sessions, chat.Session{Messages: current})
	return sessions, nil
}

// Sorted returns a chronologically ordered copy of msgs; ties keep input order.
func Sorted(msgs []chat.Message) []chat.Message {
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Flatten concatenates sessions back into one stream and re-sorts it.
func Flatten(sessions []chat.Session) []chat.Message {
	var n int
	for _, s := range sessions {
		n += len(s.Messages)
	}
	flat := make([]chat.Message, 0, n)
	for _, s := range sessions {
		flat = append(flat, s.Messages...)
	}
	return Sorted(flat)
}
