// Package application contains the application services.
package application

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// GeodatabaseFactory creates a fresh, unconnected geodatabase adapter for a session.
type GeodatabaseFactory func() output.Geodatabase

// Workbench manages concurrent query sessions keyed by ID.
type Workbench struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newGDB   GeodatabaseFactory
	sources  *SourceService
	exports  *ExportService
	settings output.Settings
	metrics  output.MetricsCollector
	watcher  output.FileWatcher
	logger   *slog.Logger
	opts     SessionOptions
}

// NewWorkbench creates a new workbench.
func NewWorkbench(
	newGDB GeodatabaseFactory,
	sources *SourceService,
	exports *ExportService,
	settings output.Settings,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	opts SessionOptions,
) *Workbench {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &Workbench{
		sessions: make(map[string]*Session),
		newGDB:   newGDB,
		sources:  sources,
		exports:  exports,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
}

var _ input.Workbench = (*Workbench)(nil)

// SetWatcher registers a watcher that is told about connected files.
// It must be called before the first session is opened.
func (w *Workbench) SetWatcher(watcher output.FileWatcher) {
	w.watcher = watcher
}

// OpenSession resolves path, connects a new session and registers it.
func (w *Workbench) OpenSession(ctx context.Context, path string) (input.SessionInfo, error) {
	local, err := w.sources.Resolve(ctx, path)
	if err != nil {
		return input.SessionInfo{}, err
	}

	id := uuid.NewString()
	sess := NewSession(id, w.newGDB(), w.settings, nil, w.metrics, w.logger, w.opts)
	if _, err := sess.Connect(ctx, local); err != nil {
		w.logger.Warn("failed to open session", "path", local, "error", err)
		return input.SessionInfo{}, err
	}

	w.mu.Lock()
	w.sessions[id] = sess
	w.mu.Unlock()

	w.track(sess.Path())
	w.updateMetrics()
	w.logger.Info("session opened", "id", id, "path", local)
	return sessionInfo(sess), nil
}

// CloseSession closes and unregisters a session.
func (w *Workbench) CloseSession(_ context.Context, id string) error {
	w.mu.Lock()
	sess, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	w.untrack(sess.Path())
	w.updateMetrics()
	w.logger.Info("session closed", "id", id)
	return sess.Close()
}

// CloseAll closes every session.
func (w *Workbench) CloseAll() {
	w.mu.Lock()
	sessions := w.sessions
	w.sessions = make(map[string]*Session)
	w.mu.Unlock()

	for id, sess := range sessions {
		w.untrack(sess.Path())
		if err := sess.Close(); err != nil {
			w.logger.Warn("failed to close session", "id", id, "error", err)
		}
	}
	w.updateMetrics()
}

// ListSessions returns all open sessions ordered by creation time.
func (w *Workbench) ListSessions(_ context.Context) []input.SessionInfo {
	w.mu.RLock()
	infos := make([]input.SessionInfo, 0, len(w.sessions))
	for _, sess := range w.sessions {
		infos = append(infos, sessionInfo(sess))
	}
	w.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].OpenedAt.Before(infos[j].OpenedAt)
	})
	return infos
}

// SessionCount returns the number of open sessions.
func (w *Workbench) SessionCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sessions)
}

// Session returns a session by ID.
func (w *Workbench) Session(id string) (*Session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	sess, ok := w.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Catalog returns the session's catalog.
func (w *Workbench) Catalog(_ context.Context, id string) (domain.Catalog, error) {
	sess, err := w.Session(id)
	if err != nil {
		return domain.Catalog{}, err
	}
	return sess.Catalog()
}

// Run executes a statement in the session.
func (w *Workbench) Run(ctx context.Context, id string, req input.RunRequest) (domain.RunSummary, error) {
	sess, err := w.Session(id)
	if err != nil {
		return domain.RunSummary{}, err
	}

	dialect := sess.Dialect()
	if req.Dialect != "" {
		if dialect, err = domain.ParseDialect(req.Dialect); err != nil {
			return domain.RunSummary{}, err
		}
	}

	includeGeometry := w.settings.IncludeGeometry()
	if req.IncludeGeometry != nil {
		includeGeometry = *req.IncludeGeometry
	}

	return sess.RunWith(ctx, req.Query, dialect, includeGeometry)
}

// Page returns display values of materialized rows.
func (w *Workbench) Page(_ context.Context, id string, offset, limit int) (input.ResultPage, error) {
	view, err := w.result(id)
	if err != nil {
		return input.ResultPage{}, err
	}
	return page(view.Model(), offset, limit), nil
}

// FetchMore materializes the next chunk and returns it as a page.
func (w *Workbench) FetchMore(ctx context.Context, id string) (input.ResultPage, error) {
	view, err := w.result(id)
	if err != nil {
		return input.ResultPage{}, err
	}

	model := view.Model()
	first := model.RowCount()
	n, err := model.FetchMore(ctx)
	if err != nil {
		return input.ResultPage{}, err
	}
	return page(model, first, n), nil
}

// LoadAll materializes the whole result and returns the last chunk as a page.
func (w *Workbench) LoadAll(ctx context.Context, id string) (input.ResultPage, error) {
	view, err := w.result(id)
	if err != nil {
		return input.ResultPage{}, err
	}

	last, err := view.JumpToEnd(ctx)
	if err != nil {
		return input.ResultPage{}, err
	}
	model := view.Model()
	offset := max(0, last+1-model.ChunkSize())
	return page(model, offset, model.ChunkSize()), nil
}

// Copy renders the selected cells as clipboard text.
func (w *Workbench) Copy(_ context.Context, id string, sel domain.Selection) (string, error) {
	view, err := w.result(id)
	if err != nil {
		return "", err
	}
	return view.CopySelection(sel)
}

// Export renders the full result in format.
func (w *Workbench) Export(ctx context.Context, id string, format string) (string, error) {
	view, err := w.result(id)
	if err != nil {
		return "", err
	}
	return w.exports.Export(ctx, view, format)
}

// Formats returns the available export formats.
func (w *Workbench) Formats() []string {
	return w.exports.Formats()
}

// Sources returns the geodatabases available in remote storage.
func (w *Workbench) Sources(ctx context.Context) ([]output.StorageObject, error) {
	return w.sources.List(ctx)
}

// RefreshPath re-reads the catalog of every session connected to path.
func (w *Workbench) RefreshPath(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.RLock()
	var targets []*Session
	for _, sess := range w.sessions {
		if p := sess.Path(); p == abs || p == path {
			targets = append(targets, sess)
		}
	}
	w.mu.RUnlock()

	var firstErr error
	for _, sess := range targets {
		if err := sess.RefreshCatalog(ctx); err != nil {
			w.logger.Warn("failed to refresh catalog", "session", sess.ID(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *Workbench) result(id string) (*ResultView, error) {
	sess, err := w.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.Result()
}

func (w *Workbench) track(path string) {
	if w.watcher == nil {
		return
	}
	if err := w.watcher.Track(path); err != nil {
		w.logger.Warn("failed to watch geodatabase", "path", path, "error", err)
	}
}

func (w *Workbench) untrack(path string) {
	if w.watcher == nil {
		return
	}
	if err := w.watcher.Untrack(path); err != nil {
		w.logger.Debug("failed to unwatch geodatabase", "path", path, "error", err)
	}
}

// updateMetrics publishes the session count.
func (w *Workbench) updateMetrics() {
	w.metrics.SetSessionsOpen(w.SessionCount())
}

func sessionInfo(sess *Session) input.SessionInfo {
	info := input.SessionInfo{
		ID:       sess.ID(),
		Path:     sess.Path(),
		Dialect:  string(sess.Dialect()),
		OpenedAt: sess.OpenedAt(),
	}
	if catalog, err := sess.Catalog(); err == nil {
		info.Items = len(catalog.Items)
	}
	if _, err := sess.Result(); err == nil {
		info.HasResult = true
	}
	info.LastQuery, info.LastRunTime = sess.LastQuery()
	return info
}

func page(model *ResultModel, offset, limit int) input.ResultPage {
	rows := model.Rows(offset, limit)
	out := input.ResultPage{
		Headers:      model.Headers(),
		Offset:       offset,
		Rows:         make([][]string, len(rows)),
		Materialized: model.RowCount(),
		Total:        model.Total(),
		CanFetchMore: model.CanFetchMore(),
	}
	for i, row := range rows {
		cells := make([]string, row.Len())
		for c := range cells {
			cells[c], _ = row.Display(c)
		}
		out.Rows[i] = cells
	}
	return out
}
