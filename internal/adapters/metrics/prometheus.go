// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobrunner/gdbee/internal/ports/output"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	registry            *prometheus.Registry
	queryCounter        *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	rowsFetched         *prometheus.CounterVec
	cursorReplays       prometheus.Counter
	replayedRows        prometheus.Counter
	exportCounter       *prometheus.CounterVec
	sessionsOpen        prometheus.Gauge
	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ output.MetricsCollector = (*Collector)(nil)

// NewCollector creates a new Prometheus metrics collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "gdbee"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		queryCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of executed statements",
			},
			[]string{"dialect", "status"},
		),

		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Statement execution duration including the first chunk, in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"dialect"},
		),

		rowsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_fetched_total",
				Help:      "Total number of records read from result cursors",
			},
			[]string{"source"},
		),

		cursorReplays: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cursor_replays_total",
				Help:      "Total number of cursor reset-and-replay operations",
			},
		),

		replayedRows: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cursor_replayed_rows_total",
				Help:      "Total number of records re-read while replaying cursors",
			},
		),

		exportCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of result exports",
			},
			[]string{"format", "status"},
		),

		sessionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_open",
				Help:      "Number of open query sessions",
			},
		),

		storageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// IncQueryCount increments the statement counter.
func (c *Collector) IncQueryCount(dialect string, success bool) {
	c.queryCounter.WithLabelValues(dialect, statusLabel(success)).Inc()
}

// ObserveQueryDuration records statement duration.
func (c *Collector) ObserveQueryDuration(dialect string, duration time.Duration) {
	c.queryDuration.WithLabelValues(dialect).Observe(duration.Seconds())
}

// AddRowsFetched counts records read from cursors.
func (c *Collector) AddRowsFetched(source string, rows int) {
	if rows <= 0 {
		return
	}
	c.rowsFetched.WithLabelValues(source).Add(float64(rows))
}

// IncCursorReplay counts a cursor replay over rows records.
func (c *Collector) IncCursorReplay(rows int) {
	c.cursorReplays.Inc()
	c.replayedRows.Add(float64(rows))
}

// IncExportCount increments the export counter.
func (c *Collector) IncExportCount(format string, success bool) {
	c.exportCounter.WithLabelValues(format, statusLabel(success)).Inc()
}

// SetSessionsOpen sets the number of open sessions.
func (c *Collector) SetSessionsOpen(count int) {
	c.sessionsOpen.Set(float64(count))
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// WriteTextfile writes the current metrics in text exposition format, for the node exporter
// textfile collector. Used by one-shot commands that do not serve HTTP.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := routePath(r)
		status := statusToString(wrapped.statusCode)

		c.IncHTTPRequests(r.Method, path, status)
		c.ObserveHTTPDuration(r.Method, path, duration)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// routePath returns the route template so session IDs do not create new label values.
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath bounds the label cardinality of unmatched paths.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/api/") {
		return "/api/..."
	}
	if len(path) > 20 {
		return path[:20] + "..."
	}
	return path
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
