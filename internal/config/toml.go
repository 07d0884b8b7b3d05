package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file. Unset keys stay nil and
// leave the environment value in place.
type FileConfig struct {
	Engine    EngineConfig    `toml:"engine"`
	Source    SourceConfig    `toml:"source"`
	Exclusion ExclusionConfig `toml:"exclusion"`
	Output    OutputConfig    `toml:"output"`
	Server    ServerConfig    `toml:"server"`
}

type EngineConfig struct {
	GapMinutes *int    `toml:"gap-minutes"`
	Bands      *string `toml:"bands"`
	Scope      *string `toml:"scope"`
	Workers    *int    `toml:"workers"`
	Timezone   *string `toml:"timezone"`
	NaiveLocal *bool   `toml:"naive-local"`
	LogLevel   *string `toml:"log-level"`
}

type SourceConfig struct {
	Kind           *string `toml:"kind"`
	Project        *string `toml:"project"`
	RootCollection *string `toml:"root-collection"`
	RootDoc        *string `toml:"root-doc"`
	JSONLDir       *string `toml:"jsonl-dir"`
}

type ExclusionConfig struct {
	File      *string  `toml:"file"`
	Parameter *string  `toml:"parameter"`
	Region    *string  `toml:"region"`
	IDs       []string `toml:"ids"`
}

type OutputConfig struct {
	Dir    *string `toml:"dir"`
	SQLite *string `toml:"sqlite"`
}

type ServerConfig struct {
	Port       *int    `toml:"port"`
	RunTimeout *string `toml:"run-timeout"`
}

// LoadFile reads a TOML config from the given path. Missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Apply overlays the values set in f onto c.
func (c *Config) Apply(f FileConfig) error {
	setInt(&c.GapMinutes, f.Engine.GapMinutes)
	setStr(&c.Bands, f.Engine.Bands)
	setStr(&c.Scope, f.Engine.Scope)
	setInt(&c.Workers, f.Engine.Workers)
	setStr(&c.Timezone, f.Engine.Timezone)
	setBool(&c.NaiveLocal, f.Engine.NaiveLocal)
	setStr(&c.LogLevel, f.Engine.LogLevel)

	setStr(&c.Source, f.Source.Kind)
	setStr(&c.ProjectID, f.Source.Project)
	setStr(&c.RootCollection, f.Source.RootCollection)
	setStr(&c.RootDoc, f.Source.RootDoc)
	setStr(&c.JSONLDir, f.Source.JSONLDir)

	setStr(&c.ExclusionFile, f.Exclusion.File)
	setStr(&c.ExclusionParam, f.Exclusion.Parameter)
	setStr(&c.AWSRegion, f.Exclusion.Region)
	c.ExcludedIDs = append(c.ExcludedIDs, f.Exclusion.IDs...)

	setStr(&c.OutputDir, f.Output.Dir)
	setStr(&c.SQLitePath, f.Output.SQLite)

	setInt(&c.Port, f.Server.Port)
	if f.Server.RunTimeout != nil {
		d, err := time.ParseDuration(*f.Server.RunTimeout)
		if err != nil {
			return fmt.Errorf("server.run-timeout: %w", err)
		}
		c.RunTimeout = d
	}
	return nil
}

func setStr(target, value *string) {
	if value != nil {
		*target = *value
	}
}

func setInt(target, value *int) {
	if value != nil {
		*target = *value
	}
}

func setBool(target, value *bool) {
	if value != nil {
		*target = *value
	}
}
