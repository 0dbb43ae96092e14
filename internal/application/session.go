package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// SessionOptions configures query execution in a session.
type SessionOptions struct {
	Dialect      domain.Dialect
	ChunkSize    int
	DisplayWidth int
	Reconcile    ReconcileStrategy
	Timeout      time.Duration // Upper bound for executing a statement and fetching the first chunk
}

// DefaultSessionOptions returns the options used when none are configured.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Dialect:      domain.DefaultDialect,
		ChunkSize:    DefaultChunkSize,
		DisplayWidth: domain.DisplayWidth,
		Reconcile:    ReconcileCache,
	}
}

// Session is a connection to one geodatabase plus the result of its last statement.
type Session struct {
	mu        sync.Mutex
	id        string
	gdb       output.Geodatabase
	settings  output.Settings
	clipboard output.Clipboard
	metrics   output.MetricsCollector
	logger    *slog.Logger
	opts      SessionOptions

	info      *domain.Geodatabase
	view      *ResultView
	lastQuery string
	lastRun   time.Time
	openedAt  time.Time
}

// NewSession creates an unconnected session.
func NewSession(
	id string,
	gdb output.Geodatabase,
	settings output.Settings,
	clipboard output.Clipboard,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	opts SessionOptions,
) *Session {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	if settings == nil {
		settings = NewSettings(true)
	}
	if opts.Dialect == "" {
		opts.Dialect = domain.DefaultDialect
	}
	return &Session{
		id:        id,
		gdb:       gdb,
		settings:  settings,
		clipboard: clipboard,
		metrics:   metrics,
		logger:    logger.With("session", id),
		opts:      opts,
		openedAt:  time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Connect validates and opens the geodatabase at path, closing any previous connection.
func (s *Session) Connect(ctx context.Context, path string) (*domain.Geodatabase, error) {
	if !s.gdb.Validate(ctx, path) {
		return nil, domain.ErrInvalidGeodatabase
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeResult()
	if s.info != nil {
		if err := s.gdb.Close(); err != nil {
			s.logger.Warn("failed to close previous geodatabase", "path", s.info.Path, "error", err)
		}
		s.info = nil
	}

	info, err := s.gdb.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	s.info = info

	s.logger.Info("connected to geodatabase",
		"path", info.Path,
		"items", len(info.Catalog.Items),
	)
	return info, nil
}

// Geodatabase returns the connected geodatabase, or nil.
func (s *Session) Geodatabase() *domain.Geodatabase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Path returns the connected geodatabase path, empty when not connected.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return ""
	}
	return s.info.Path
}

// Catalog returns the catalog read at connect time or at the last refresh.
func (s *Session) Catalog() (domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return domain.Catalog{}, domain.ErrNotConnected
	}
	return s.info.Catalog, nil
}

// RefreshCatalog re-reads the catalog from the geodatabase.
func (s *Session) RefreshCatalog(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return domain.ErrNotConnected
	}

	catalog, err := s.gdb.Catalog(ctx)
	if err != nil {
		return err
	}
	s.info.Catalog = catalog
	s.logger.Info("catalog refreshed", "path", s.info.Path, "items", len(catalog.Items))
	return nil
}

// Dialect returns the current dialect.
func (s *Session) Dialect() domain.Dialect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Dialect
}

// SetDialect changes the dialect used by later statements.
func (s *Session) SetDialect(d domain.Dialect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Dialect = d
}

// Run strips comments from text, executes it and replaces the current result.
// The first chunk is materialized before Run returns.
func (s *Session) Run(ctx context.Context, text string) (domain.RunSummary, error) {
	return s.run(ctx, text, s.Dialect(), s.settings.IncludeGeometry())
}

// RunWith executes text with an explicit dialect and include-geometry flag.
func (s *Session) RunWith(ctx context.Context, text string, dialect domain.Dialect, includeGeometry bool) (domain.RunSummary, error) {
	return s.run(ctx, text, dialect, includeGeometry)
}

func (s *Session) run(ctx context.Context, text string, dialect domain.Dialect, includeGeometry bool) (domain.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info == nil {
		return domain.RunSummary{}, domain.ErrNotConnected
	}

	query := strings.TrimSpace(StripComments(text))
	if query == "" {
		return domain.RunSummary{}, domain.ErrEmptyQuery
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	s.closeResult()

	start := time.Now()
	rs, err := s.gdb.Execute(ctx, query, dialect)
	if err != nil {
		s.metrics.IncQueryCount(string(dialect), false)
		s.logger.Warn("query failed", "dialect", dialect, "error", err)
		return domain.RunSummary{}, err
	}

	model := NewResultModel(rs, includeGeometry, s.logger,
		WithChunkSize(s.opts.ChunkSize),
		WithDisplayWidth(s.opts.DisplayWidth),
		WithReconcileStrategy(s.opts.Reconcile),
		WithMetrics(s.metrics),
	)
	s.view = NewResultView(model, s.clipboard, s.logger)
	s.lastQuery = query
	s.lastRun = time.Now()

	if _, err := model.FetchMore(ctx); err != nil {
		s.metrics.IncQueryCount(string(dialect), false)
		return domain.RunSummary{}, err
	}

	elapsed := time.Since(start)
	s.metrics.IncQueryCount(string(dialect), true)
	s.metrics.ObserveQueryDuration(string(dialect), elapsed)

	summary := domain.RunSummary{
		Query:       query,
		Dialect:     dialect,
		Elapsed:     elapsed,
		TotalRows:   model.Total(),
		Columns:     model.ColumnCount(),
		HasGeometry: model.Schema().HasGeometry(),
	}

	s.logger.Info("query executed",
		"dialect", dialect,
		"rows", summary.TotalRows,
		"columns", summary.Columns,
		"duration_ms", elapsed.Milliseconds(),
	)
	return summary, nil
}

// Result returns the view over the current result.
func (s *Session) Result() (*ResultView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil, domain.ErrNoResult
	}
	return s.view, nil
}

// LastQuery returns the last executed statement and its time.
func (s *Session) LastQuery() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery, s.lastRun
}

// OpenedAt returns the session creation time.
func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// closeResult releases the current result set. Callers hold s.mu.
func (s *Session) closeResult() {
	if s.view == nil {
		return
	}
	if err := s.view.Model().Close(); err != nil {
		s.logger.Warn("failed to close result set", "error", err)
	}
	s.view = nil
}

// Close releases the result set and the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeResult()
	if s.info == nil {
		return nil
	}
	s.info = nil
	return s.gdb.Close()
}
