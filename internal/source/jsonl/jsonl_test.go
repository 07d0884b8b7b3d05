package jsonl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/tempo/internal/chat"
	"github.com/MikeSquared-Agency/tempo/internal/source"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestListConversations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jsonl", "")
	writeFile(t, dir, "a.jsonl", "")
	writeFile(t, dir, "notes.txt", "")
	if err := os.Mkdir(filepath.Join(dir, "sub.jsonl"), 0o755); err != nil {
		t.Fatal(err)
	}

	ids, err := New(dir, chat.NewNormalizer(nil, false), nil).ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}
}

func TestLoadConversation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cust-1.jsonl", `{"id":"m1","role":"Customer","text":"help","createdAt":"2025-10-01T09:00:00Z","uid":42}
{"id":"m2","role":"Admin","text":"hi","createdAt":"2025-10-01T09:00:08Z","name":"Agent A"}
not json at all

{"id":"m2","role":"Admin","text":"dup","createdAt":"2025-10-01T09:00:09Z"}
{"id":"m3","role":"Customer","createdAt":"2025-10-01T09:01:00Z"}
{"id":"m4","role":"Customer","text":"naive","createdAt":"2025-10-01 09:05:00","uid":"7"}
`)

	src := New(dir, chat.NewNormalizer(time.UTC, false), nil)
	conv, stats, err := src.LoadConversation(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("LoadConversation: %v", err)
	}

	if stats.Records != 6 || stats.Malformed != 2 || stats.Duplicates != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(conv.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(conv.Messages))
	}
	if conv.Messages[0].Identity != "42" {
		t.Errorf("numeric uid = %q, want 42", conv.Messages[0].Identity)
	}
	if conv.Messages[2].Identity != "7" {
		t.Errorf("string uid = %q, want 7", conv.Messages[2].Identity)
	}
	want := time.Date(2025, 10, 1, 9, 5, 0, 0, time.UTC)
	if !conv.Messages[2].Timestamp.Equal(want) {
		t.Errorf("naive timestamp = %v, want %v", conv.Messages[2].Timestamp, want)
	}
}

func TestLoadConversation_NotFound(t *testing.T) {
	src := New(t.TempDir(), chat.NewNormalizer(nil, false), nil)
	_, _, err := src.LoadConversation(context.Background(), "missing")
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
