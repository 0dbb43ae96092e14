package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockRecordSet implements output.RecordSet over a fixed list of records.
type mockRecordSet struct {
	columns  []string
	geometry string
	records  []*domain.Record
	count    int // reported row count; defaults to len(records)
	pos      int
	nextErr  error
	errAt    int // position at which nextErr is returned, -1 for never

	nextCalls  int
	resetCalls int
	closeCalls int
}

func newMockRecordSet(columns []string, geometry string, records []*domain.Record) *mockRecordSet {
	return &mockRecordSet{
		columns:  columns,
		geometry: geometry,
		records:  records,
		count:    len(records),
		errAt:    -1,
	}
}

func (m *mockRecordSet) RowCount() int          { return m.count }
func (m *mockRecordSet) Columns() []string      { return m.columns }
func (m *mockRecordSet) GeometryColumn() string { return m.geometry }

func (m *mockRecordSet) Next(_ context.Context) (*domain.Record, error) {
	m.nextCalls++
	if m.errAt >= 0 && m.pos == m.errAt {
		return nil, m.nextErr
	}
	if m.pos >= len(m.records) {
		return nil, nil
	}
	rec := m.records[m.pos]
	m.pos++
	return rec, nil
}

func (m *mockRecordSet) Reset(_ context.Context) error {
	m.resetCalls++
	m.pos = 0
	return nil
}

func (m *mockRecordSet) Close() error {
	m.closeCalls++
	return nil
}

// numberedRecords returns n records with an id and a name column.
func numberedRecords(n int) []*domain.Record {
	recs := make([]*domain.Record, n)
	for i := range recs {
		recs[i] = &domain.Record{
			Values:   []interface{}{int64(i + 1), fmt.Sprintf("name-%d", i+1)},
			Geometry: &domain.Geometry{WKT: fmt.Sprintf("POINT (%d %d)", i, i)},
		}
	}
	return recs
}

// streetRecords mirrors a three-row query over [Name, Type, Oneway] with a Shape geometry.
func streetRecords() []*domain.Record {
	return []*domain.Record{
		{
			Values:   []interface{}{"Zwicky Ave", "residential", "B"},
			Geometry: &domain.Geometry{WKT: "MULTILINESTRING ((-117.182 34.055, -117.181 34.055))"},
		},
		{
			Values:   []interface{}{"Zion Ln", "residential", "FT"},
			Geometry: &domain.Geometry{WKT: "MULTILINESTRING ((-117.201 34.061, -117.199 34.061, -117.197 34.062, -117.195 34.062))"},
		},
		{
			Values: []interface{}{"Zinnia Way", "residential", "B"},
		},
	}
}

// mockGeodatabase implements output.Geodatabase.
type mockGeodatabase struct {
	mu         sync.Mutex
	valid      bool
	catalog    domain.Catalog
	openErr    error
	execErr    error
	newResult  func(query string) *mockRecordSet
	executed   []string
	dialects   []domain.Dialect
	results    []*mockRecordSet
	closeCalls int
	opened     string
}

func (m *mockGeodatabase) Validate(_ context.Context, _ string) bool {
	return m.valid
}

func (m *mockGeodatabase) Open(_ context.Context, path string) (*domain.Geodatabase, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opened = path
	return &domain.Geodatabase{
		Path:        path,
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Catalog:     m.catalog,
		ConnectedAt: time.Now(),
	}, nil
}

func (m *mockGeodatabase) Close() error {
	m.closeCalls++
	return nil
}

func (m *mockGeodatabase) Catalog(_ context.Context) (domain.Catalog, error) {
	return m.catalog, nil
}

func (m *mockGeodatabase) Execute(_ context.Context, query string, dialect domain.Dialect) (output.RecordSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executed = append(m.executed, query)
	m.dialects = append(m.dialects, dialect)
	if m.execErr != nil {
		return nil, &domain.QueryError{Query: query, Dialect: string(dialect), Err: m.execErr}
	}
	var rs *mockRecordSet
	if m.newResult != nil {
		rs = m.newResult(query)
	} else {
		rs = newMockRecordSet([]string{"Name", "Type", "Oneway"}, "Shape", streetRecords())
	}
	m.results = append(m.results, rs)
	return rs, nil
}

// mockClipboard implements output.Clipboard.
type mockClipboard struct {
	text string
	err  error
}

func (m *mockClipboard) WriteText(text string) error {
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

// mockRenderer implements output.Renderer by joining headers and row counts.
type mockRenderer struct {
	format string
	err    error
	last   *domain.Snapshot
}

func (m *mockRenderer) Format() string { return m.format }

func (m *mockRenderer) Render(_ context.Context, snap *domain.Snapshot) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.last = snap
	return fmt.Sprintf("%s:%d", strings.Join(snap.Headers, ","), snap.Len()), nil
}

// mockStorage implements output.ObjectStorage for testing.
type mockStorage struct {
	objects       []output.StorageObject
	missing       bool
	downloadErr   error
	listErr       error
	downloadCalls int
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.objects, nil
}

func (m *mockStorage) Download(_ context.Context, _ string, dest string) error {
	m.downloadCalls++
	if m.downloadErr != nil {
		return m.downloadErr
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("gpkg"), 0600)
}

func (m *mockStorage) GetReader(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStorage) Exists(_ context.Context, _ string) (bool, error) {
	return !m.missing, nil
}

// recordingMetrics counts calls of interest.
type recordingMetrics struct {
	output.NoOpMetrics
	mu        sync.Mutex
	queries   map[bool]int
	replays   int
	exports   map[string]int
	fetched   map[string]int
	sessions  int
	downloads int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		queries: make(map[bool]int),
		exports: make(map[string]int),
		fetched: make(map[string]int),
	}
}

func (m *recordingMetrics) IncQueryCount(_ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[success]++
}

func (m *recordingMetrics) IncCursorReplay(_ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replays++
}

func (m *recordingMetrics) AddRowsFetched(source string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched[source] += rows
}

func (m *recordingMetrics) IncExportCount(format string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.exports[format]++
	}
}

func (m *recordingMetrics) SetSessionsOpen(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = count
}

func (m *recordingMetrics) IncStorageOperations(operation string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if operation == "download" && success {
		m.downloads++
	}
}

// mockWatcher records tracked paths.
type mockWatcher struct {
	tracked   []string
	untracked []string
}

func (m *mockWatcher) Track(path string) error {
	m.tracked = append(m.tracked, path)
	return nil
}

func (m *mockWatcher) Untrack(path string) error {
	m.untracked = append(m.untracked, path)
	return nil
}
