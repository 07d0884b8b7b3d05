package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/tempo/internal/report"
)

func clearTempoEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TEMPO_WORKERS", "TEMPO_SOURCE", "TEMPO_JSONL_DIR", "TEMPO_OUTPUT_DIR", "TEMPO_SQLITE_PATH",
		"TEMPO_EXCLUSION_FILE", "TEMPO_EXCLUSION_PARAM", "TEMPO_BANDS", "TEMPO_SCOPE",
		"DATABASE_URL", "NATS_URL", "SLACK_BOT_TOKEN", "SLACK_CHANNEL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearTempoEnv(t)
	t.Setenv("TEMPO_WORKERS", "2")
	t.Setenv("TEMPO_BANDS", "four")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[engine]\nworkers = 3\nscope = \"session\"\n\n[source]\nkind = \"jsonl\"\njsonl-dir = \"/data\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		args        []string
		wantWorkers int
	}{
		{name: "file over env", args: nil, wantWorkers: 3},
		{name: "flag over file", args: []string{"--workers", "5"}, wantWorkers: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newAnalyzeCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}
			configPath = path

			cfg, err := loadConfig(cmd)
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if cfg.Workers != tt.wantWorkers {
				t.Errorf("workers = %d, want %d", cfg.Workers, tt.wantWorkers)
			}
			if cfg.Bands != "four" {
				t.Errorf("env value lost: bands = %s", cfg.Bands)
			}
			if cfg.Scope != "session" || cfg.JSONLDir != "/data" {
				t.Errorf("file values lost: %+v", cfg)
			}
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearTempoEnv(t)
	cmd := newAnalyzeCmd()
	if err := cmd.ParseFlags([]string{"--source", "jsonl"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	configPath = filepath.Join(t.TempDir(), "absent.toml")

	if _, err := loadConfig(cmd); err == nil {
		t.Fatal("expected error for jsonl source without a directory")
	}
}

func TestAnalyze_JSONL(t *testing.T) {
	clearTempoEnv(t)
	dataDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "reports")

	files := map[string]string{
		"cust-1.jsonl": `{"id":"m1","role":"Customer","text":"where is my order","createdAt":"2025-10-01T09:00:00Z","uid":1}
{"id":"m2","role":"Admin","text":"checking now","createdAt":"2025-10-01T09:00:08Z","name":"Dana"}
{"id":"m3","role":"Customer","text":"thanks","createdAt":"2025-10-01T09:05:00Z","uid":1}
{"id":"m4","role":"Admin","text":"shipped today","createdAt":"2025-10-01T09:05:25Z","name":"Dana"}
`,
		"cust-2.jsonl": `{"id":"m1","role":"Customer","text":"test ping","createdAt":"2025-10-01T10:00:00Z","uid":42}
{"id":"m2","role":"Admin","text":"pong","createdAt":"2025-10-01T10:00:05Z","name":"Dana"}
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{
		"analyze",
		"--config", filepath.Join(t.TempDir(), "absent.toml"),
		"--log-level", "error",
		"--source", "jsonl",
		"--jsonl-dir", dataDir,
		"--exclude", "42",
		"--out", outDir,
		"--customers",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Pairs: 2  excluded: 1",
		"unmatched agent replies: 1",
		"2025-10-01",
		"1 (50.0%)",
		"cust-1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}

	for _, name := range []string{report.PairsFile, report.DailyFile, report.CustomersFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestConfigCmd_WritesTemplate(t *testing.T) {
	clearTempoEnv(t)
	path := filepath.Join(t.TempDir(), "tempo", "config.toml")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--config", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("config: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if !strings.Contains(string(data), "[engine]") {
		t.Errorf("unexpected template:\n%s", data)
	}

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--config", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("config again: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("expected existing file notice, got %q", out.String())
	}
}
