package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adjustdb.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[source]
dsn = "app:secret@tcp(prod:3306)/proddb"

[target]
dsn = "app:secret@tcp(stage:3306)/stagedb"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.RowCountThreshold != defaultRowCountThreshold {
		t.Errorf("RowCountThreshold = %d, want %d", cfg.RowCountThreshold, defaultRowCountThreshold)
	}
	if cfg.Output != "sync_database" {
		t.Errorf("Output = %q, want sync_database", cfg.Output)
	}
	if cfg.Source.Type != "mariadb" || cfg.Target.Type != "mariadb" {
		t.Errorf("endpoint types = %q/%q, want mariadb/mariadb", cfg.Source.Type, cfg.Target.Type)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
row_count_threshold = 1000
output = "nightly_sync"

[source]
type = "snapshot"
path = "/var/lib/adjustdb/prod.snapshot"

[target]
dsn = "app:secret@tcp(stage:3306)/stagedb"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.RowCountThreshold != 1000 {
		t.Errorf("RowCountThreshold = %d, want 1000", cfg.RowCountThreshold)
	}
	if cfg.Output != "nightly_sync" {
		t.Errorf("Output = %q, want nightly_sync", cfg.Output)
	}
	if cfg.Source.Type != "snapshot" || cfg.Source.Path == "" {
		t.Errorf("source = %+v, want snapshot endpoint", cfg.Source)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
row_count_treshold = 1000

[source]
dsn = "a@tcp(h)/db"

[target]
dsn = "a@tcp(h)/db"
`)

	_, err := loadConfig(path)
	if err == nil {
		t.Fatal("misspelled key must be rejected")
	}
	if !strings.Contains(err.Error(), "row_count_treshold") {
		t.Errorf("error should name the unknown key, got: %v", err)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing source dsn",
			content: `
[source]
[target]
dsn = "a@tcp(h)/db"
`,
			wantErr: "source.dsn is required",
		},
		{
			name: "snapshot without path",
			content: `
[source]
type = "snapshot"
[target]
dsn = "a@tcp(h)/db"
`,
			wantErr: "source.path is required",
		},
		{
			name: "dsn on snapshot endpoint",
			content: `
[source]
type = "snapshot"
path = "/tmp/x.snapshot"
dsn = "a@tcp(h)/db"
[target]
dsn = "a@tcp(h)/db"
`,
			wantErr: "source.dsn is only valid",
		},
		{
			name: "unknown endpoint type",
			content: `
[source]
type = "postgres"
dsn = "a@tcp(h)/db"
[target]
dsn = "a@tcp(h)/db"
`,
			wantErr: "source.type must be one of",
		},
		{
			name: "non-positive threshold",
			content: `
row_count_threshold = 0
[source]
dsn = "a@tcp(h)/db"
[target]
dsn = "a@tcp(h)/db"
`,
			wantErr: "row_count_threshold must be positive",
		},
		{
			name: "blank output",
			content: `
output = "  "
[source]
dsn = "a@tcp(h)/db"
[target]
dsn = "a@tcp(h)/db"
`,
			wantErr: "output base filename",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("missing config file must be an error")
	}
}
