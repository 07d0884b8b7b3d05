// Package config loads tempo settings from the environment and an optional
// TOML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one
)

// Source kinds.
const (
	SourceFirestore = "firestore"
	SourceJSONL     = "jsonl"
)

type Config struct {
	// Engine
	GapMinutes int
	Bands      string
	Scope      string
	Workers    int
	Timezone   string
	NaiveLocal bool

	// Source
	Source         string
	ProjectID      string
	RootCollection string
	RootDoc        string
	JSONLDir       string

	// Exclusion
	ExclusionFile  string
	ExclusionParam string
	AWSRegion      string
	ExcludedIDs    []string

	// Output
	OutputDir  string
	SQLitePath string

	// Server and integrations
	Port          int
	APIToken      string
	RunTimeout    time.Duration
	NatsURL       string
	NatsToken     string
	DatabaseURL   string
	LogLevel      string
	SlackBotToken string
	SlackChannel  string
}

func Load() Config {
	return Config{
		GapMinutes: envInt("TEMPO_GAP_MINUTES", 180),
		Bands:      envStr("TEMPO_BANDS", "three"),
		Scope:      envStr("TEMPO_SCOPE", "conversation"),
		Workers:    envInt("TEMPO_WORKERS", 4),
		Timezone:   envStr("TEMPO_TIMEZONE", "UTC"),
		NaiveLocal: envBool("TEMPO_NAIVE_LOCAL", false),

		Source:         envStr("TEMPO_SOURCE", SourceFirestore),
		ProjectID:      envStr("TEMPO_FIRESTORE_PROJECT", envStr("GOOGLE_CLOUD_PROJECT", "")),
		RootCollection: envStr("TEMPO_ROOT_COLLECTION", "chat-updated"),
		RootDoc:        envStr("TEMPO_ROOT_DOC", "chats"),
		JSONLDir:       envStr("TEMPO_JSONL_DIR", ""),

		ExclusionFile:  envStr("TEMPO_EXCLUSION_FILE", ""),
		ExclusionParam: envStr("TEMPO_EXCLUSION_PARAM", ""),
		AWSRegion:      envStr("AWS_REGION", ""),

		OutputDir:  envStr("TEMPO_OUTPUT_DIR", ""),
		SQLitePath: envStr("TEMPO_SQLITE_PATH", ""),

		Port:          envInt("TEMPO_PORT", 8760),
		APIToken:      envStr("TEMPO_API_TOKEN", ""),
		RunTimeout:    envDuration("TEMPO_RUN_TIMEOUT", 10*time.Minute),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CHANNEL", ""),
	}
}

// Gap returns the session gap threshold.
func (c Config) Gap() time.Duration {
	return time.Duration(c.GapMinutes) * time.Minute
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks values that do not depend on other packages.
func (c Config) Validate() error {
	if c.GapMinutes <= 0 {
		return fmt.Errorf("gap must be positive, got %d minutes", c.GapMinutes)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	switch c.Source {
	case SourceFirestore:
		if c.ProjectID == "" {
			return fmt.Errorf("firestore source needs a project id")
		}
	case SourceJSONL:
		if c.JSONLDir == "" {
			return fmt.Errorf("jsonl source needs a directory")
		}
	default:
		return fmt.Errorf("unknown source %q (use %s or %s)", c.Source, SourceFirestore, SourceJSONL)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
