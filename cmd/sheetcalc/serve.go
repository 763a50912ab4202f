package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/internal/api"
)

func newServeCommand() *cobra.Command {
	var port int
	var from string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a sheet over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = cfg.Server.Port
			}

			exports, err := api.NewExportCache(api.CacheConfig{
				SizeMB: cfg.Server.ExportCacheMB,
				TTL:    time.Duration(cfg.Server.ExportTTLMinutes) * time.Minute,
			})
			if err != nil {
				return err
			}
			defer exports.Close()

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sheet := newSheet()
			if from != "" {
				if err := st.Load(from, sheet); err != nil {
					return err
				}
			}

			router := api.NewRouter(api.RouterConfig{
				Workspace:   api.NewWorkspace(sheet, cfg.Sheet.HistoryDepth, logger),
				Exports:     exports,
				Store:       st,
				CORSOrigins: cfg.Server.CORSOrigins,
			})

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", port),
				Handler:      router,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", "addr", server.Addr, "cells", sheet.Len())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("server forced to shutdown", "error", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")
	cmd.Flags().StringVar(&from, "from", "", "Start from a stored workbook")
	return cmd
}
