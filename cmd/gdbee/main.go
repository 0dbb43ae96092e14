// Package main provides the entry point for the GDBee geodatabase query workbench.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobrunner/gdbee/internal/app"
	"github.com/jobrunner/gdbee/internal/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gdbee",
	Short: "GDBee - Geodatabase Query Workbench",
	Long: `GDBee runs SQL against GeoPackage geodatabases and lets you browse,
copy and export the results.

Features:
  - SQLITE (SpatiaLite) and OGRSQL dialects
  - Lazily fetched results in chunks of 200 rows
  - Geometry shown as WKT, truncated for display
  - Export as WKT, arcpy snippet, pandas DataFrame or Markdown table
  - Interactive shell and HTTP workbench
  - Geodatabases from local disk, AWS S3, Azure or HTTP
  - Prometheus metrics`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("GDBee %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (json, text)")
	rootCmd.PersistentFlags().String("gdb", "", "geodatabase path, or object key for remote sources")
	rootCmd.PersistentFlags().String("source", "local", "geodatabase source (local, s3, azure, http)")
	rootCmd.PersistentFlags().String("dialect", "SQLITE", "SQL dialect (SQLITE, OGRSQL)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("geodatabase.path", rootCmd.PersistentFlags().Lookup("gdb"))
	_ = viper.BindPFlag("geodatabase.source", rootCmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("query.dialect", rootCmd.PersistentFlags().Lookup("dialect"))

	rootCmd.AddCommand(queryCmd, layersCmd, sourcesCmd, shellCmd, serveCmd, versionCmd)
}

func initConfig() {
	config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// setup loads the configuration and wires the application. Logs go to logOut
// so one-shot commands keep stdout for results.
func setup(ctx context.Context, logOut io.Writer) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, logOut)
	slog.SetDefault(logger)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return application, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	application, err := setup(ctx, os.Stdout)
	if err != nil {
		return err
	}
	cfg := application.Config

	application.Logger.Info("starting GDBee",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"source", cfg.Geodatabase.Source,
	)

	application.Start(ctx)

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Serve(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		application.Logger.Info("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			application.Logger.Error("server error", "error", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error("shutdown error", "error", err)
		return err
	}

	application.Logger.Info("server stopped")
	return nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(time.Now().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
