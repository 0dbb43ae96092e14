// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jobrunner/gdbee/internal/adapters/export"
	"github.com/jobrunner/gdbee/internal/adapters/geopackage"
	httpAdapter "github.com/jobrunner/gdbee/internal/adapters/http"
	"github.com/jobrunner/gdbee/internal/adapters/metrics"
	"github.com/jobrunner/gdbee/internal/adapters/storage"
	tlsAdapter "github.com/jobrunner/gdbee/internal/adapters/tls"
	"github.com/jobrunner/gdbee/internal/adapters/watcher"
	"github.com/jobrunner/gdbee/internal/application"
	"github.com/jobrunner/gdbee/internal/config"
	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Storage       output.ObjectStorage
	Settings      *application.Settings
	Workbench     *application.Workbench
	HealthService *application.HealthService
	Metrics       *metrics.Collector
	Watcher       *watcher.Watcher
	HTTPServer    *httpAdapter.Server
	TLS           *tlsAdapter.Manager
}

// New creates and initializes a new application. HTTP and TLS are set up by Serve.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize metrics
	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("gdbee")
		metricsCollector = app.Metrics
	}

	// Initialize storage adapter for remote sources
	store, err := initStorage(ctx, cfg.Geodatabase)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = store

	opts, err := sessionOptions(cfg.Query)
	if err != nil {
		return nil, err
	}

	app.Settings = application.NewSettings(cfg.Query.IncludeGeometry)

	sources := application.NewSourceService(store, cfg.Geodatabase.CacheDir, metricsCollector, logger)
	exports := application.NewExportService(metricsCollector, logger, export.Renderers(export.Options{
		TempDir:     cfg.Export.TempDir,
		InlineLimit: cfg.Export.InlineLimit,
	})...)

	app.Workbench = application.NewWorkbench(
		func() output.Geodatabase { return geopackage.New(logger) },
		sources,
		exports,
		app.Settings,
		metricsCollector,
		logger,
		opts,
	)

	app.HealthService = application.NewHealthService(app.Workbench, geopackage.Probe)

	// Initialize file watcher for catalog hot reload
	if cfg.Geodatabase.Watch {
		w, err := watcher.New(
			watcher.Config{Debounce: cfg.Geodatabase.Debounce},
			app.handleFileEvent,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
			app.Workbench.SetWatcher(w)
		}
	}

	return app, nil
}

// Start starts background components.
func (a *App) Start(ctx context.Context) {
	if a.Watcher != nil {
		a.Watcher.Start(ctx)
	}

	if version, err := geopackage.SpatiaLiteVersion(ctx); err != nil {
		a.Logger.Warn("SpatiaLite not available, SQLITE dialect falls back to plain SQLite", "error", err)
	} else {
		a.Logger.Debug("SpatiaLite loaded", "version", version)
	}
}

// Serve starts the HTTP workbench and blocks until it stops.
func (a *App) Serve(ctx context.Context) error {
	var serverMetrics httpAdapter.Metrics
	if a.Metrics != nil {
		serverMetrics = a.Metrics
	}

	a.HTTPServer = httpAdapter.NewServer(
		a.Config.Server,
		a.Workbench,
		a.HealthService,
		serverMetrics,
		a.Config.Metrics.Path,
		a.Logger,
	)

	tlsManager, err := tlsAdapter.New(a.Config.TLS, a.Logger)
	if err != nil {
		return fmt.Errorf("initializing TLS: %w", err)
	}
	a.TLS = tlsManager

	if path := a.Config.Geodatabase.Path; path != "" {
		info, err := a.Workbench.OpenSession(ctx, path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		a.Logger.Info("session ready", "id", info.ID, "path", info.Path, "items", info.Items)
	}

	if tlsManager.Enabled() {
		if err := tlsManager.ManageCertificates(ctx); err != nil {
			return err
		}
		err = a.HTTPServer.StartTLS(tlsManager.TLSConfig())
	} else {
		err = a.HTTPServer.Start()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", "error", err)
		}
	}

	a.Workbench.CloseAll()

	return a.WriteMetrics()
}

// WriteMetrics dumps the metrics registry to the configured textfile.
func (a *App) WriteMetrics() error {
	if a.Metrics == nil || a.Config.Metrics.Textfile == "" {
		return nil
	}
	if err := a.Metrics.WriteTextfile(a.Config.Metrics.Textfile); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// handleFileEvent refreshes the catalogs of sessions connected to a changed file.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		return a.Workbench.RefreshPath(ctx, event.Path)

	case watcher.OpDelete:
		a.Logger.Warn("connected geodatabase removed", "path", event.Path)
	}
	return nil
}

func sessionOptions(cfg config.QueryConfig) (application.SessionOptions, error) {
	dialect, err := domain.ParseDialect(cfg.Dialect)
	if err != nil {
		return application.SessionOptions{}, err
	}
	reconcile, err := application.ParseReconcileStrategy(cfg.Reconcile)
	if err != nil {
		return application.SessionOptions{}, err
	}

	opts := application.DefaultSessionOptions()
	opts.Dialect = dialect
	opts.Reconcile = reconcile
	opts.Timeout = cfg.Timeout
	if cfg.ChunkSize > 0 {
		opts.ChunkSize = cfg.ChunkSize
	}
	if cfg.DisplayWidth > 0 {
		opts.DisplayWidth = cfg.DisplayWidth
	}
	return opts, nil
}

// initStorage initializes the storage adapter for the configured source.
// Local sources open paths directly and need no adapter.
func initStorage(ctx context.Context, cfg config.GeodatabaseConfig) (output.ObjectStorage, error) {
	switch cfg.Source {
	case "", "local":
		return nil, nil

	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case "azure":
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	case "http":
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}), nil

	default:
		return nil, fmt.Errorf("unknown geodatabase source: %s", cfg.Source)
	}
}
