// Package firestore reads chat transcripts stored one collection per customer
// under a single root document.
package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/MikeSquared-Agency/tempo/internal/chat"
	"github.com/MikeSquared-Agency/tempo/internal/source"
)

// Default location of the transcripts: <DefaultRootCollection>/<DefaultRootDoc>/<customer>/<message>.
const (
	DefaultRootCollection = "chat-updated"
	DefaultRootDoc        = "chats"
)

// Document fields.
const (
	fieldCreatedAt = "createdAt"
	fieldRole      = "role"
	fieldText      = "text"
	fieldUID       = "uid"
	fieldName      = "name"
)

// Config locates the transcripts.
type Config struct {
	ProjectID      string
	RootCollection string
	RootDoc        string
}

// Source is a source.Source backed by Firestore.
type Source struct {
	client *firestore.Client
	root   *firestore.DocumentRef
	norm   *chat.Normalizer
	logger *slog.Logger
}

var _ source.Source = (*Source)(nil)

// New connects to Firestore. Credentials are resolved by the client library.
func New(ctx context.Context, cfg Config, norm *chat.Normalizer, logger *slog.Logger) (*Source, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore source")
	}
	if cfg.RootCollection == "" {
		cfg.RootCollection = DefaultRootCollection
	}
	if cfg.RootDoc == "" {
		cfg.RootDoc = DefaultRootDoc
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Source{
		client: client,
		root:   client.Collection(cfg.RootCollection).Doc(cfg.RootDoc),
		norm:   norm,
		logger: logger,
	}, nil
}

// Close releases the client.
func (s *Source) Close() error {
	return s.client.Close()
}

// ListConversations returns the ids of the customer collections under the root
// document, sorted.
func (s *Source) ListConversations(ctx context.Context) ([]string, error) {
	iter := s.root.Collections(ctx)

	var ids []string
	for {
		col, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListConversations: %w", err)
		}
		ids = append(ids, col.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadConversation streams every message document of one customer collection.
func (s *Source) LoadConversation(ctx context.Context, id string) (chat.Conversation, source.Stats, error) {
	iter := s.root.Collection(id).Documents(ctx)
	defer iter.Stop()

	var records []chat.RawRecord
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			if status.Code(err) == codes.NotFound {
				return chat.Conversation{}, source.Stats{}, fmt.Errorf("firestore LoadConversation %s: %w", id, source.ErrNotFound)
			}
			return chat.Conversation{}, source.Stats{}, fmt.Errorf("firestore LoadConversation %s: %w", id, err)
		}
		data := snap.Data()
		if data == nil {
			continue
		}
		records = append(records, recordFromData(snap.Ref.ID, data))
	}

	conv, stats := source.Collect(id, records, s.norm, s.logger)
	return conv, stats, nil
}

func recordFromData(id string, data map[string]interface{}) chat.RawRecord {
	return chat.RawRecord{
		ID:        id,
		Role:      stringField(data, fieldRole),
		Text:      stringField(data, fieldText),
		CreatedAt: data[fieldCreatedAt],
		Identity:  data[fieldUID],
		Name:      stringField(data, fieldName),
	}
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
