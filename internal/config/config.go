// Package config handles configuration loading for sheetcalc.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the sheetcalc configuration.
type Config struct {
	Sheet    SheetConfig    `yaml:"sheet"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// SheetConfig contains engine settings.
type SheetConfig struct {
	MaxRows           uint32  `yaml:"max_rows"`
	MaxCols           uint32  `yaml:"max_cols"`
	ParseCacheSize    int     `yaml:"parse_cache_size"`
	SleepLimitSeconds float64 `yaml:"sleep_limit_seconds"`
	HistoryDepth      int     `yaml:"history_depth"`
}

// SnapshotConfig contains snapshot encoding settings.
type SnapshotConfig struct {
	Compression string `yaml:"compression"` // none, lz4 or zstd
}

// StoreConfig contains workbook store settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port             int      `yaml:"port"`
	CORSOrigins      []string `yaml:"cors_origins"`
	ExportCacheMB    int      `yaml:"export_cache_mb"`
	ExportTTLMinutes int      `yaml:"export_ttl_minutes"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sheet: SheetConfig{
			MaxRows:           999,
			MaxCols:           18278,
			ParseCacheSize:    4096,
			SleepLimitSeconds: 10,
			HistoryDepth:      100,
		},
		Snapshot: SnapshotConfig{
			Compression: "zstd",
		},
		Store: StoreConfig{
			Path: "./data/sheetcalc.db",
		},
		Server: ServerConfig{
			Port:             8080,
			CORSOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
			ExportCacheMB:    64,
			ExportTTLMinutes: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Sheet.MaxRows == 0 {
		cfg.Sheet.MaxRows = defaults.Sheet.MaxRows
	}
	if cfg.Sheet.MaxCols == 0 {
		cfg.Sheet.MaxCols = defaults.Sheet.MaxCols
	}
	if cfg.Sheet.ParseCacheSize == 0 {
		cfg.Sheet.ParseCacheSize = defaults.Sheet.ParseCacheSize
	}
	if cfg.Sheet.HistoryDepth == 0 {
		cfg.Sheet.HistoryDepth = defaults.Sheet.HistoryDepth
	}
	if cfg.Snapshot.Compression == "" {
		cfg.Snapshot.Compression = defaults.Snapshot.Compression
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaults.Store.Path
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.ExportCacheMB == 0 {
		cfg.Server.ExportCacheMB = defaults.Server.ExportCacheMB
	}
	if cfg.Server.ExportTTLMinutes == 0 {
		cfg.Server.ExportTTLMinutes = defaults.Server.ExportTTLMinutes
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Sheet.MaxRows > 999 {
		return fmt.Errorf("sheet.max_rows %d exceeds 999", c.Sheet.MaxRows)
	}
	if c.Sheet.MaxCols > 18278 {
		return fmt.Errorf("sheet.max_cols %d exceeds 18278", c.Sheet.MaxCols)
	}
	if c.Sheet.SleepLimitSeconds < 0 {
		return fmt.Errorf("sheet.sleep_limit_seconds must not be negative")
	}
	switch c.Snapshot.Compression {
	case "none", "lz4", "zstd":
	default:
		return fmt.Errorf("snapshot.compression %q: want none, lz4 or zstd", c.Snapshot.Compression)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level %q: want debug, info, warn or error", level)
	}
}
