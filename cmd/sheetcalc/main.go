// Package main provides the sheetcalc command line tool.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/internal/config"
	"github.com/vogtb/go-spreadsheet/internal/snapshot"
	"github.com/vogtb/go-spreadsheet/internal/store"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"golang.org/x/term"
)

var (
	configPath string
	logLevel   string
	dbPath     string

	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetcalc",
		Short: "Evaluate, store and serve spreadsheets",
		Long: `sheetcalc runs a spreadsheet engine with formulas, range functions
and cycle detection. edits come from scripts, CSV or XLSX files, or HTTP.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "sheetcalc.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Workbook database path (overrides config)")

	rootCmd.AddCommand(
		newRunCommand(),
		newSaveCommand(),
		newLoadCommand(),
		newListCommand(),
		newDeleteCommand(),
		newExportCommand(),
		newServeCommand(),
	)
	return rootCmd
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger = newLogger(level)
	return nil
}

// newLogger writes text to a terminal and JSON otherwise
func newLogger(level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// newSheet creates an empty sheet configured from cfg
func newSheet() *spreadsheet.Sheet {
	return spreadsheet.NewSheet(
		spreadsheet.WithLogger(logger),
		spreadsheet.WithBounds(cfg.Sheet.MaxRows, cfg.Sheet.MaxCols),
		spreadsheet.WithParseCacheSize(cfg.Sheet.ParseCacheSize),
		spreadsheet.WithSleepLimit(time.Duration(cfg.Sheet.SleepLimitSeconds*float64(time.Second))),
	)
}

func openStore() (*store.Store, error) {
	compression, err := snapshot.ParseCompressionTag(cfg.Snapshot.Compression)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.Path, compression)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook store: %w", err)
	}
	return st, nil
}
