package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/config"
	"github.com/marmos91/dittodav/pkg/server"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the WebDAV server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	return cmd
}

// run serves until ctx is cancelled or an adapter fails.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("DittoDAV %s starting", getVersion())
	logger.Info("Log level: %s, format: %s, output: %s", cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	m := config.InitializeMetrics(cfg)

	st, err := config.CreateInstrumentedStore(ctx, &cfg.Store, m.StoreMetrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store: %v", err)
		}
	}()

	adapters, err := config.CreateAdapters(cfg, m.WebDAVMetrics)
	if err != nil {
		return err
	}

	srv := server.New(st, server.WithStopTimeout(cfg.Server.ShutdownTimeout))
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server failed: %v", err)
			}
		}()
		logger.Info("Metrics available on :%d/metrics", m.Server.Port())
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	err = srv.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Server stopped gracefully")
		return nil
	}
	return err
}
