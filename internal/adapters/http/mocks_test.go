package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jobrunner/gdbee/internal/config"
	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// mockWorkbench implements Workbench for testing.
type mockWorkbench struct {
	sessions  []input.SessionInfo
	sources   []output.StorageObject
	catalog   domain.Catalog
	summary   domain.RunSummary
	page      input.ResultPage
	copyText  string
	exportOut string
	err       error

	opened     []string
	closed     []string
	runs       []input.RunRequest
	pageArgs   [][2]int
	fetchAll   int
	fetchMore  int
	selections []domain.Selection
	exports    []string
}

func (m *mockWorkbench) OpenSession(_ context.Context, path string) (input.SessionInfo, error) {
	if m.err != nil {
		return input.SessionInfo{}, m.err
	}
	m.opened = append(m.opened, path)
	return input.SessionInfo{
		ID:       "3f1c",
		Path:     path,
		Items:    len(m.catalog.Items),
		Dialect:  "SQLITE",
		OpenedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (m *mockWorkbench) CloseSession(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.closed = append(m.closed, id)
	return nil
}

func (m *mockWorkbench) ListSessions(_ context.Context) []input.SessionInfo {
	return m.sessions
}

func (m *mockWorkbench) Catalog(_ context.Context, _ string) (domain.Catalog, error) {
	return m.catalog, m.err
}

func (m *mockWorkbench) Run(_ context.Context, _ string, req input.RunRequest) (domain.RunSummary, error) {
	m.runs = append(m.runs, req)
	return m.summary, m.err
}

func (m *mockWorkbench) Page(_ context.Context, _ string, offset, limit int) (input.ResultPage, error) {
	m.pageArgs = append(m.pageArgs, [2]int{offset, limit})
	return m.page, m.err
}

func (m *mockWorkbench) FetchMore(_ context.Context, _ string) (input.ResultPage, error) {
	m.fetchMore++
	return m.page, m.err
}

func (m *mockWorkbench) LoadAll(_ context.Context, _ string) (input.ResultPage, error) {
	m.fetchAll++
	return m.page, m.err
}

func (m *mockWorkbench) Copy(_ context.Context, _ string, sel domain.Selection) (string, error) {
	m.selections = append(m.selections, sel)
	return m.copyText, m.err
}

func (m *mockWorkbench) Export(_ context.Context, _ string, format string) (string, error) {
	m.exports = append(m.exports, format)
	return m.exportOut, m.err
}

func (m *mockWorkbench) Sources(_ context.Context) ([]output.StorageObject, error) {
	return m.sources, m.err
}

func (m *mockWorkbench) Formats() []string {
	return []string{"wkt", "arcpy", "dataframe", "markdown"}
}

// mockHealth implements input.HealthChecker for testing.
type mockHealth struct {
	healthy bool
	ready   bool
}

func (m *mockHealth) IsHealthy(_ context.Context) bool {
	return m.healthy
}

func (m *mockHealth) IsReady(_ context.Context) bool {
	return m.ready
}

func (m *mockHealth) GetHealthDetails(_ context.Context) input.HealthDetails {
	return input.HealthDetails{
		Healthy:      m.healthy,
		Ready:        m.ready,
		SessionsOpen: 1,
		Components:   map[string]string{"sqlite": "ok"},
	}
}

func newTestServer(wb *mockWorkbench, health *mockHealth) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewServer(
		config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			FrontendEnabled: true,
		},
		wb,
		health,
		nil,
		"",
		logger,
	)
}
