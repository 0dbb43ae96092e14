// Package http provides the HTTP workbench server and handlers.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/gdbee/internal/config"
	"github.com/jobrunner/gdbee/internal/ports/input"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// Workbench is the session API served over HTTP.
type Workbench interface {
	input.Workbench

	// Formats returns the available export formats.
	Formats() []string

	// Sources lists the geodatabases of the configured remote source.
	Sources(ctx context.Context) ([]output.StorageObject, error)
}

// Metrics is implemented by the metrics adapter.
type Metrics interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

// Server wraps the HTTP server with application handlers.
type Server struct {
	server      *http.Server
	router      *mux.Router
	workbench   Workbench
	health      input.HealthChecker
	metrics     Metrics
	metricsPath string
	logger      *slog.Logger
	config      config.ServerConfig
}

// NewServer creates a new HTTP server. metrics may be nil.
func NewServer(
	cfg config.ServerConfig,
	workbench Workbench,
	health input.HealthChecker,
	metrics Metrics,
	metricsPath string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		workbench:   workbench,
		health:      health,
		metrics:     metrics,
		metricsPath: metricsPath,
		logger:      logger,
		config:      cfg,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add middleware
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	// Add CORS middleware if configured
	if s.config.CORS.Enabled() {
		r.Use(s.corsMiddleware)
		// Preflight requests need a matching route for the middleware to run.
		r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	if s.metrics != nil && s.metricsPath != "" {
		r.Handle(s.metricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/formats", s.handleFormats).Methods(http.MethodGet)
	api.HandleFunc("/sources", s.handleSources).Methods(http.MethodGet)

	// Session endpoints
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions", s.handleOpenSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleCloseSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/catalog", s.handleCatalog).Methods(http.MethodGet)

	// Result endpoints
	api.HandleFunc("/sessions/{id}/query", s.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/rows", s.handleRows).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/fetch", s.handleFetch).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/copy", s.handleCopy).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/export/{format}", s.handleExport).Methods(http.MethodGet)

	// OpenAPI spec and Swagger UI
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleSwaggerUI).Methods(http.MethodGet)

	// Query workbench frontend (if enabled)
	if s.config.FrontendEnabled {
		r.HandleFunc("/", s.handleFrontend).Methods(http.MethodGet)
	}

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// StartTLS starts the HTTPS server with the given certificate configuration.
func (s *Server) StartTLS(tlsConfig *tls.Config) error {
	s.logger.Info("starting HTTPS server", "address", s.config.Address())
	s.server.TLSConfig = tlsConfig
	return s.server.ListenAndServeTLS("", "")
}
