// Package source loads conversations from a message store and normalizes them.
package source

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MikeSquared-Agency/tempo/internal/chat"
)

// ErrNotFound is returned when a conversation does not exist in the source.
var ErrNotFound = errors.New("source: conversation not found")

// Source lists and loads conversations.
type Source interface {
	ListConversations(ctx context.Context) ([]string, error)
	LoadConversation(ctx context.Context, id string) (chat.Conversation, Stats, error)
}

// Stats counts what happened to the raw records of a conversation.
type Stats struct {
	Records    int // raw records read
	Malformed  int // dropped: missing role, text or timestamp
	Duplicates int // dropped: message id already seen in the conversation
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Records:    s.Records + o.Records,
		Malformed:  s.Malformed + o.Malformed,
		Duplicates: s.Duplicates + o.Duplicates,
	}
}

// Collect normalizes raw records into a conversation. Malformed records are
// dropped and counted; a record whose id already produced a message is dropped
// as a duplicate. Records without an id are never treated as duplicates.
func Collect(id string, records []chat.RawRecord, norm *chat.Normalizer, logger *slog.Logger) (chat.Conversation, Stats) {
	conv := chat.Conversation{ID: id}
	stats := Stats{Records: len(records)}
	seen := make(map[string]bool, len(records))

	for _, raw := range records {
		if raw.ID != "" && seen[raw.ID] {
			stats.Duplicates++
			continue
		}

		msg, err := norm.Normalize(id, raw)
		if err != nil {
			stats.Malformed++
			if logger != nil {
				logger.Debug("dropping malformed record", "conversation_id", id, "message_id", raw.ID, "error", err)
			}
			continue
		}
		if raw.ID != "" {
			seen[raw.ID] = true
		}
		conv.Messages = append(conv.Messages, msg)
	}

	return conv, stats
}
