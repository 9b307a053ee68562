package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/livepaste/pkg/api"
	"github.com/cuemby/livepaste/pkg/log"
	"github.com/cuemby/livepaste/pkg/manager"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "livepasted",
	Short:   "LivePaste server-side coordination engine",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("livepasted version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("data-dir", "./data", "Directory for the BoltDB data file")
	serveCmd.Flags().Int("retention-hours", 72, "Hours of room inactivity before the retention sweep deletes it (clamped to [1,120])")
	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LivePaste HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		retentionHours, _ := cmd.Flags().GetInt("retention-hours")

		logger := log.WithComponent("main")

		mgr, err := manager.NewManager(manager.Config{
			DataDir:        dataDir,
			RetentionHours: retentionHours,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}
		mgr.Start()

		collector := manager.NewMetricsCollector(mgr)
		collector.Start()

		a := api.New(mgr)
		httpServer := &http.Server{
			Addr:         addr,
			Handler:      a,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", addr).Msg("listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			logger.Error().Err(err).Msg("server error")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}

		collector.Stop()
		if err := mgr.Stop(); err != nil {
			return fmt.Errorf("failed to stop manager: %w", err)
		}
		logger.Info().Msg("shutdown complete")
		return nil
	},
}
