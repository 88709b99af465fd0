package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// defaultRowCountThreshold is the row count above which data synchronization
// guidance recommends an external bulk export instead of inline row sync.
const defaultRowCountThreshold = 50000

// SyncConfig holds the full TOML-driven configuration.
type SyncConfig struct {
	Source            EndpointConfig `toml:"source"`
	Target            EndpointConfig `toml:"target"`
	RowCountThreshold int64          `toml:"row_count_threshold"`
	Output            string         `toml:"output"` // base filename for generated SQL files
}

// EndpointConfig identifies one side of the comparison: a live MariaDB
// server, or a snapshot file written earlier by `adjustdb snapshot`.
type EndpointConfig struct {
	Type string `toml:"type"` // "mariadb" or "snapshot"
	DSN  string `toml:"dsn"`  // MariaDB DSN, when type = "mariadb"
	Path string `toml:"path"` // snapshot file path, when type = "snapshot"
}

// loadConfig reads a TOML config file and returns a SyncConfig with defaults
// applied. Unknown keys are rejected so typos never silently change behavior.
func loadConfig(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := SyncConfig{
		RowCountThreshold: defaultRowCountThreshold,
		Output:            "sync_database",
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if cfg.RowCountThreshold <= 0 {
		return nil, fmt.Errorf("row_count_threshold must be positive")
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return nil, fmt.Errorf("output base filename must not be empty")
	}

	if cfg.Source.Type == "" {
		cfg.Source.Type = "mariadb"
	}
	if cfg.Target.Type == "" {
		cfg.Target.Type = "mariadb"
	}
	if err := validateEndpoint("source", cfg.Source); err != nil {
		return nil, err
	}
	if err := validateEndpoint("target", cfg.Target); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateEndpoint(side string, ep EndpointConfig) error {
	switch ep.Type {
	case "mariadb":
		if ep.DSN == "" {
			return fmt.Errorf("%s.dsn is required", side)
		}
		if ep.Path != "" {
			return fmt.Errorf("%s.path is only valid for type snapshot", side)
		}
	case "snapshot":
		if ep.Path == "" {
			return fmt.Errorf("%s.path is required for type snapshot", side)
		}
		if ep.DSN != "" {
			return fmt.Errorf("%s.dsn is only valid for type mariadb", side)
		}
	default:
		return fmt.Errorf("%s.type must be one of: mariadb, snapshot", side)
	}
	return nil
}
