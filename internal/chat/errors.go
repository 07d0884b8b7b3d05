package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks a source record missing a required field.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptyConversation is returned when a conversation has no messages to segment.
	ErrEmptyConversation = errors.New("empty conversation")
)

// MalformedError describes why a record was dropped at ingestion.
type MalformedError struct {
	ConversationID string
	MessageID      string
	Reason         string
}

func (e *MalformedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("chat: malformed record %s/%s: %s", e.ConversationID, e.MessageID, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedRecord
}

func malformed(conversationID, messageID, reason string) *MalformedError {
	return &MalformedError{ConversationID: conversationID, MessageID: messageID, Reason: reason}
}
