package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives the demo and mcp commands. Everything has a working default
// so `loopctl demo` runs without a config file.
type Config struct {
	Listen string `yaml:"listen"`
	LoopID string `yaml:"loop_id"`

	Journal struct {
		// Backend selects the journal store: "none", "memory", "redis" or
		// "sqlite".
		Backend string `yaml:"backend"`
		Redis   struct {
			Addr   string `yaml:"addr"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"journal"`

	// SnapshotEvery saves a state snapshot every N journaled events.
	// Zero disables snapshots.
	SnapshotEvery uint64 `yaml:"snapshot_every"`

	// AuthDelay is the simulated authentication latency, e.g. "250ms".
	AuthDelay string `yaml:"auth_delay"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	var cfg Config
	cfg.Listen = ":8080"
	cfg.LoopID = "demo"
	cfg.Journal.Backend = "none"
	cfg.Journal.Redis.Addr = "localhost:6379"
	cfg.Journal.SQLite.Path = "loopctl.db"
	cfg.AuthDelay = "250ms"
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

func (c Config) authDelay() (time.Duration, error) {
	if c.AuthDelay == "" {
		return 250 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.AuthDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid auth_delay %q: %w", c.AuthDelay, err)
	}
	return d, nil
}
