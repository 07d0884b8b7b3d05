// Package jsonl reads conversations exported as one JSONL file per customer.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/tempo/internal/chat"
	"github.com/MikeSquared-Agency/tempo/internal/source"
)

const ext = ".jsonl"

// line is one exported message document.
type line struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Text      string          `json:"text"`
	CreatedAt string          `json:"createdAt"`
	UID       json.RawMessage `json:"uid"`
	Name      string          `json:"name"`
}

// Source is a source.Source over a directory of <conversation_id>.jsonl files.
type Source struct {
	dir    string
	norm   *chat.Normalizer
	logger *slog.Logger
}

var _ source.Source = (*Source)(nil)

// New returns a Source rooted at dir.
func New(dir string, norm *chat.Normalizer, logger *slog.Logger) *Source {
	return &Source{dir: dir, norm: norm, logger: logger}
}

// ListConversations returns the conversation ids found in the directory, sorted.
func (s *Source) ListConversations(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadConversation parses <dir>/<id>.jsonl. Lines that are not valid JSON are
// counted as malformed records.
func (s *Source) LoadConversation(ctx context.Context, id string) (chat.Conversation, source.Stats, error) {
	path := filepath.Join(s.dir, id+ext)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return chat.Conversation{}, source.Stats{}, fmt.Errorf("open %s: %w", path, source.ErrNotFound)
		}
		return chat.Conversation{}, source.Stats{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var (
		records  []chat.RawRecord
		badLines int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			badLines++
			continue
		}
		records = append(records, chat.RawRecord{
			ID:        l.ID,
			Role:      l.Role,
			Text:      l.Text,
			CreatedAt: l.CreatedAt,
			Identity:  decodeUID(l.UID),
			Name:      l.Name,
		})
	}
	if err := scanner.Err(); err != nil {
		return chat.Conversation{}, source.Stats{}, fmt.Errorf("scan %s: %w", path, err)
	}

	conv, stats := source.Collect(id, records, s.norm, s.logger)
	stats.Records += badLines
	stats.Malformed += badLines
	return conv, stats, nil
}

// decodeUID keeps numeric uids as json.Number so they stringify without
// float formatting.
func decodeUID(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
