package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// DefaultChunkSize is the number of records materialized per FetchMore call.
const DefaultChunkSize = 200

// ReconcileStrategy selects how Snapshot restores the cursor after pulling the unread remainder.
type ReconcileStrategy string

const (
	// ReconcileCache keeps the pulled records in a buffer that later fetches drain first.
	ReconcileCache ReconcileStrategy = "cache"
	// ReconcileReplay resets the cursor and re-reads the materialized records.
	ReconcileReplay ReconcileStrategy = "replay"
)

// ParseReconcileStrategy parses a strategy name. Empty selects ReconcileCache.
func ParseReconcileStrategy(name string) (ReconcileStrategy, error) {
	switch ReconcileStrategy(name) {
	case "", ReconcileCache:
		return ReconcileCache, nil
	case ReconcileReplay:
		return ReconcileReplay, nil
	default:
		return "", fmt.Errorf("reconcile strategy %q: %w", name, domain.ErrInvalidInput)
	}
}

// RowsInsertedFunc is notified with the inclusive range of newly materialized rows.
type RowsInsertedFunc func(first, last int)

// ResultModel exposes a forward-only cursor as a lazily paginated table.
//
// Rows are materialized in chunks on demand and never re-read. The total row count and the
// schema are fixed at construction. All methods are safe for concurrent use; cursor access
// is serialized so a reset followed by a replay is never interleaved with other reads.
type ResultModel struct {
	mu        sync.Mutex
	cursor    output.RecordSet
	schema    domain.Schema
	total     int
	chunkSize int
	strategy  ReconcileStrategy
	rows      []domain.Row
	pending   []domain.Row // pulled ahead of the materialized rows, logically still unread
	exhausted bool
	observers []RowsInsertedFunc
	metrics   output.MetricsCollector
	logger    *slog.Logger
}

// ResultModelOption configures a ResultModel.
type ResultModelOption func(*ResultModel)

// WithChunkSize sets the number of records per fetch. Values below one are ignored.
func WithChunkSize(n int) ResultModelOption {
	return func(m *ResultModel) {
		if n >= 1 {
			m.chunkSize = n
		}
	}
}

// WithDisplayWidth sets the number of WKT characters shown before truncation.
func WithDisplayWidth(width int) ResultModelOption {
	return func(m *ResultModel) {
		m.schema.DisplayWidth = width
	}
}

// WithReconcileStrategy sets how Snapshot restores the cursor position.
func WithReconcileStrategy(s ReconcileStrategy) ResultModelOption {
	return func(m *ResultModel) {
		m.strategy = s
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics output.MetricsCollector) ResultModelOption {
	return func(m *ResultModel) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// NewResultModel creates a model over cursor. includeGeometry is frozen for the model's lifetime.
func NewResultModel(cursor output.RecordSet, includeGeometry bool, logger *slog.Logger, opts ...ResultModelOption) *ResultModel {
	m := &ResultModel{
		cursor:    cursor,
		schema:    domain.NewSchema(cursor.Columns(), cursor.GeometryColumn(), includeGeometry),
		total:     cursor.RowCount(),
		chunkSize: DefaultChunkSize,
		strategy:  ReconcileCache,
		metrics:   &output.NoOpMetrics{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Schema returns the schema captured at construction.
func (m *ResultModel) Schema() domain.Schema {
	return m.schema
}

// Headers returns the visible column names.
func (m *ResultModel) Headers() []string {
	return m.schema.Headers()
}

// ColumnCount returns the number of visible columns.
func (m *ResultModel) ColumnCount() int {
	return m.schema.Width()
}

// Total returns the row count reported by the cursor.
func (m *ResultModel) Total() int {
	return m.total
}

// ChunkSize returns the fetch chunk size.
func (m *ResultModel) ChunkSize() int {
	return m.chunkSize
}

// RowCount returns the number of materialized rows, never more than the total.
func (m *ResultModel) RowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rowCount()
}

func (m *ResultModel) rowCount() int {
	return min(len(m.rows), m.total)
}

// CanFetchMore reports whether more rows can be materialized.
func (m *ResultModel) CanFetchMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canFetchMore()
}

func (m *ResultModel) canFetchMore() bool {
	return !m.exhausted && len(m.rows) < m.total
}

// OnRowsInserted registers an observer for newly materialized rows.
func (m *ResultModel) OnRowsInserted(fn RowsInsertedFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// FetchMore materializes up to one chunk of rows and returns how many were added.
// A cursor that ends before the reported total is treated as exhausted.
func (m *ResultModel) FetchMore(ctx context.Context) (int, error) {
	m.mu.Lock()
	if !m.canFetchMore() {
		m.mu.Unlock()
		return 0, nil
	}

	first := len(m.rows)
	limit := min(m.chunkSize, m.total-first)

	// Rows pulled ahead by a snapshot come first.
	n := min(limit, len(m.pending))
	m.rows = append(m.rows, m.pending[:n]...)
	m.pending = m.pending[n:]
	if len(m.pending) == 0 {
		m.pending = nil
	}

	var err error
	if need := limit - n; need > 0 {
		var fetched []domain.Row
		var ended bool
		fetched, ended, err = m.read(ctx, need)
		m.rows = append(m.rows, fetched...)
		m.metrics.AddRowsFetched("fetch", len(fetched))
		if ended {
			m.exhausted = true
			m.logger.Warn("cursor ended before reported row count",
				"materialized", len(m.rows),
				"total", m.total,
			)
		}
	}

	last := len(m.rows) - 1
	observers := m.observers
	m.mu.Unlock()

	if added := last - first + 1; added > 0 {
		for _, fn := range observers {
			fn(first, last)
		}
	}
	return last - first + 1, err
}

// LoadAll fetches chunks until no more rows can be materialized.
func (m *ResultModel) LoadAll(ctx context.Context) error {
	for m.CanFetchMore() {
		if _, err := m.FetchMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Row returns a materialized row.
func (m *ResultModel) Row(index int) (domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= m.rowCount() {
		return domain.Row{}, fmt.Errorf("row %d of %d: %w", index, m.rowCount(), domain.ErrRowNotMaterialized)
	}
	return m.rows[index], nil
}

// CellValue returns the raw value of a materialized cell.
func (m *ResultModel) CellValue(row, col int) (interface{}, error) {
	r, err := m.Row(row)
	if err != nil {
		return nil, err
	}
	return r.Value(col)
}

// DisplayValue returns the text shown for a materialized cell.
func (m *ResultModel) DisplayValue(row, col int) (string, error) {
	r, err := m.Row(row)
	if err != nil {
		return "", err
	}
	return r.Display(col)
}

// Rows returns a copy of the materialized rows in [offset, offset+limit).
func (m *ResultModel) Rows(offset, limit int) []domain.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.rowCount()
	if offset < 0 {
		offset = 0
	}
	if offset >= count || limit <= 0 {
		return nil
	}
	end := offset + min(limit, count-offset)
	out := make([]domain.Row, end-offset)
	copy(out, m.rows[offset:end])
	return out
}

// Snapshot returns every row of the result set without changing what is materialized.
//
// Unread records are pulled into the snapshot only. Afterwards the cursor is logically at the
// same position as before: either the pulled rows are kept for later fetches, or the cursor
// is reset and advanced past the materialized rows, depending on the reconcile strategy.
func (m *ResultModel) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	materialized := m.rowCount()
	rows := make([]domain.Row, 0, max(m.total, materialized))
	rows = append(rows, m.rows[:materialized]...)

	remaining := m.total - materialized
	if m.exhausted {
		remaining = 0
	}

	if remaining > 0 {
		pulled, err := m.pullRemaining(ctx, remaining)
		if err != nil {
			return nil, err
		}
		rows = append(rows, pulled...)
	}

	snap := &domain.Snapshot{
		Headers: m.schema.Headers(),
		Rows:    rows,
	}
	if m.schema.HasGeometry() {
		snap.GeometryColumn = m.schema.GeometryColumn
	}
	return snap, nil
}

// pullRemaining reads the unread remainder and restores the logical cursor position.
func (m *ResultModel) pullRemaining(ctx context.Context, remaining int) ([]domain.Row, error) {
	switch m.strategy {
	case ReconcileReplay:
		pulled, ended, err := m.read(ctx, remaining)
		if err != nil {
			return nil, err
		}
		m.metrics.AddRowsFetched("snapshot", len(pulled))
		if ended {
			m.logger.Warn("cursor ended before reported row count during snapshot",
				"pulled", len(pulled),
				"remaining", remaining,
			)
		}
		if err := m.replay(ctx); err != nil {
			return nil, err
		}
		return pulled, nil

	default:
		if need := remaining - len(m.pending); need > 0 {
			pulled, ended, err := m.read(ctx, need)
			m.pending = append(m.pending, pulled...)
			m.metrics.AddRowsFetched("snapshot", len(pulled))
			if err != nil {
				return nil, err
			}
			if ended {
				m.logger.Warn("cursor ended before reported row count during snapshot",
					"pulled", len(pulled),
					"remaining", remaining,
				)
			}
		}
		out := make([]domain.Row, len(m.pending))
		copy(out, m.pending)
		return out, nil
	}
}

// replay resets the cursor and advances it past the materialized rows.
func (m *ResultModel) replay(ctx context.Context) error {
	start := time.Now()
	if err := m.cursor.Reset(ctx); err != nil {
		return &domain.CursorError{Operation: "reset", Err: err}
	}

	advance := len(m.rows)
	for i := 0; i < advance; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := m.cursor.Next(ctx)
		if err != nil {
			return &domain.CursorError{Operation: "replay", Err: err}
		}
		if rec == nil {
			m.logger.Warn("cursor ended during replay", "replayed", i, "want", advance)
			break
		}
	}

	m.metrics.IncCursorReplay(advance)
	m.logger.Debug("cursor replayed",
		"rows", advance,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// read pulls up to n records from the cursor. ended is true if the cursor ran out first.
func (m *ResultModel) read(ctx context.Context, n int) ([]domain.Row, bool, error) {
	rows := make([]domain.Row, 0, n)
	for len(rows) < n {
		if err := ctx.Err(); err != nil {
			return rows, false, err
		}
		rec, err := m.cursor.Next(ctx)
		if err != nil {
			return rows, false, &domain.CursorError{Operation: "next", Err: err}
		}
		if rec == nil {
			return rows, true, nil
		}
		row, err := domain.NewRow(m.schema, rec)
		if err != nil {
			return rows, false, err
		}
		rows = append(rows, row)
	}
	return rows, false, nil
}

// Close releases the cursor.
func (m *ResultModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	return m.cursor.Close()
}
