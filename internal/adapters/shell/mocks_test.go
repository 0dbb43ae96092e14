package shell

import (
	"context"
	"io"
	"log/slog"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockWorkbench records the calls made by the shell.
type mockWorkbench struct {
	openErr   error
	runErr    error
	catalog   domain.Catalog
	page      input.ResultPage
	more      input.ResultPage
	copyText  string
	exportOut string

	opened     []string
	closed     []string
	runs       []input.RunRequest
	selections []domain.Selection
	exports    []string
	pageLimits []int
}

func (m *mockWorkbench) OpenSession(_ context.Context, path string) (input.SessionInfo, error) {
	if m.openErr != nil {
		return input.SessionInfo{}, m.openErr
	}
	m.opened = append(m.opened, path)
	return input.SessionInfo{ID: "session-" + path, Path: path, Items: len(m.catalog.Items)}, nil
}

func (m *mockWorkbench) CloseSession(_ context.Context, id string) error {
	m.closed = append(m.closed, id)
	return nil
}

func (m *mockWorkbench) ListSessions(_ context.Context) []input.SessionInfo {
	return nil
}

func (m *mockWorkbench) Catalog(_ context.Context, _ string) (domain.Catalog, error) {
	return m.catalog, nil
}

func (m *mockWorkbench) Run(_ context.Context, _ string, req input.RunRequest) (domain.RunSummary, error) {
	if m.runErr != nil {
		return domain.RunSummary{}, m.runErr
	}
	m.runs = append(m.runs, req)
	return domain.RunSummary{Query: req.Query, TotalRows: m.page.Total}, nil
}

func (m *mockWorkbench) Page(_ context.Context, _ string, _, limit int) (input.ResultPage, error) {
	m.pageLimits = append(m.pageLimits, limit)
	return m.page, nil
}

func (m *mockWorkbench) FetchMore(_ context.Context, _ string) (input.ResultPage, error) {
	return m.more, nil
}

func (m *mockWorkbench) LoadAll(_ context.Context, _ string) (input.ResultPage, error) {
	return m.page, nil
}

func (m *mockWorkbench) Copy(_ context.Context, _ string, sel domain.Selection) (string, error) {
	m.selections = append(m.selections, sel)
	return m.copyText, nil
}

func (m *mockWorkbench) Export(_ context.Context, _ string, format string) (string, error) {
	m.exports = append(m.exports, format)
	return m.exportOut, nil
}

// mockClipboard stores copied text.
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
