package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func loadFromString(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return Load(path)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Sheet.MaxRows != 999 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_UnreadableFileFails(t *testing.T) {
	// a directory exists but cannot be read as a file
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected an error for an unreadable config path")
	}
}

func TestLoad_PartialFile(t *testing.T) {
	content := `
sheet:
  max_rows: 50
  sleep_limit_seconds: 2.5
snapshot:
  compression: lz4
server:
  port: 9000
`
	cfg, err := loadFromString(t, content)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Sheet.MaxRows != 50 {
		t.Errorf("expected max_rows 50, got %d", cfg.Sheet.MaxRows)
	}
	if cfg.Sheet.MaxCols != 18278 {
		t.Errorf("expected default max_cols, got %d", cfg.Sheet.MaxCols)
	}
	if cfg.Sheet.SleepLimitSeconds != 2.5 {
		t.Errorf("expected sleep limit 2.5, got %v", cfg.Sheet.SleepLimitSeconds)
	}
	if cfg.Snapshot.Compression != "lz4" {
		t.Errorf("expected lz4, got %q", cfg.Snapshot.Compression)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Store.Path == "" || cfg.Log.Level != "info" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "sheet: [",
		"rows too large":  "sheet:\n  max_rows: 1000\n",
		"cols too large":  "sheet:\n  max_cols: 20000\n",
		"bad compression": "snapshot:\n  compression: gzip\n",
		"bad level":       "log:\n  level: loud\n",
		"negative sleep":  "sheet:\n  sleep_limit_seconds: -1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadFromString(t, content); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", name, got, err)
		}
	}
}
