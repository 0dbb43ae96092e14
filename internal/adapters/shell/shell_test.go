package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
)

func streetsPage() input.ResultPage {
	return input.ResultPage{
		Headers: []string{"Name", "Type", "Oneway"},
		Rows: [][]string{
			{"Zwicky Ave", "residential", "B"},
			{"Zion Ln", "residential", "FT"},
			{"Zinnia Way", "residential", "B"},
		},
		Materialized: 3,
		Total:        3,
	}
}

func newTestShell(wb *mockWorkbench, clip *mockClipboard) (*Shell, *bytes.Buffer) {
	out := &bytes.Buffer{}
	var s *Shell
	if clip != nil {
		s = New(wb, clip, out, testLogger(), Options{IncludeGeometry: true})
	} else {
		s = New(wb, nil, out, testLogger(), Options{IncludeGeometry: true})
	}
	return s, out
}

func connectedShell(t *testing.T, wb *mockWorkbench, clip *mockClipboard) (*Shell, *bytes.Buffer) {
	t.Helper()
	s, out := newTestShell(wb, clip)
	if err := s.Execute(context.Background(), `\c streets.gpkg`); err != nil {
		t.Fatalf(`\c error = %v`, err)
	}
	out.Reset()
	return s, out
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs string
		wantErr  bool
	}{
		{`\q`, "q", "", false},
		{`\copy 1:3 1:2`, "copy", "1:3,1:2", false},
		{`  \export   markdown `, "export", "markdown", false},
		{`\`, "", "", true},
		{`select`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := parseCommand(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cmd.name != tt.wantName {
				t.Errorf("name = %q, want %q", cmd.name, tt.wantName)
			}
			if got := strings.Join(cmd.args, ","); got != tt.wantArgs {
				t.Errorf("args = %q, want %q", got, tt.wantArgs)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		arg     string
		lo, hi  int
		wantErr bool
	}{
		{"1:3", 0, 2, false},
		{"2", 1, 1, false},
		{"3:1", 0, 2, false},
		{"0:2", 0, 0, true},
		{"a:b", 0, 0, true},
		{"1:", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			lo, hi, err := parseRange(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if lo != tt.lo || hi != tt.hi {
				t.Errorf("parseRange(%q) = (%d, %d), want (%d, %d)", tt.arg, lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

func TestExecuteAccumulatesStatement(t *testing.T) {
	wb := &mockWorkbench{page: streetsPage()}
	s, out := connectedShell(t, wb, nil)
	ctx := context.Background()

	if err := s.Execute(ctx, "select name, type, oneway"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if s.Prompt() != promptContinue {
		t.Errorf("Prompt() = %q, want %q", s.Prompt(), promptContinue)
	}
	if len(wb.runs) != 0 {
		t.Fatalf("runs = %d before terminator, want 0", len(wb.runs))
	}

	if err := s.Execute(ctx, "from streets limit 3;"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if s.Prompt() != promptReady {
		t.Errorf("Prompt() = %q, want %q", s.Prompt(), promptReady)
	}
	if len(wb.runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(wb.runs))
	}
	if want := "select name, type, oneway\nfrom streets limit 3;\n"; wb.runs[0].Query != want {
		t.Errorf("query = %q, want %q", wb.runs[0].Query, want)
	}
	if wb.pageLimits[0] != 3 {
		t.Errorf("page limit = %d, want 3", wb.pageLimits[0])
	}

	printed := out.String()
	for _, want := range []string{"Zwicky Ave", "Zinnia Way", "Rows 1-3 of 3", "Executed in 0.0 secs | 3 rows"} {
		if !strings.Contains(printed, want) {
			t.Errorf("output should contain %q:\n%s", want, printed)
		}
	}
}

func TestExecuteNotConnected(t *testing.T) {
	s, _ := newTestShell(&mockWorkbench{}, nil)

	tests := []string{"select 1;", `\d`, `\more`, `\end`, `\export wkt`, `\copy 1 1`}
	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			if err := s.Execute(context.Background(), line); !errors.Is(err, domain.ErrNotConnected) {
				t.Errorf("Execute(%q) error = %v, want %v", line, err, domain.ErrNotConnected)
			}
		})
	}
}

func TestExecuteQuit(t *testing.T) {
	s, _ := newTestShell(&mockWorkbench{}, nil)
	for _, line := range []string{`\q`, "exit", "QUIT"} {
		if err := s.Execute(context.Background(), line); !errors.Is(err, errQuit) {
			t.Errorf("Execute(%q) error = %v, want %v", line, err, errQuit)
		}
	}
}

func TestExecuteCommandErrors(t *testing.T) {
	s, _ := connectedShell(t, &mockWorkbench{}, nil)

	tests := []struct {
		line string
		want error
	}{
		{`\nope`, domain.ErrUnsupported},
		{`\dialect POSTGIS`, domain.ErrUnsupportedDialect},
		{`\geom maybe`, domain.ErrInvalidInput},
		{`\copy 1:2`, domain.ErrInvalidInput},
		{`\export`, domain.ErrInvalidInput},
		{`\w out.sql`, domain.ErrInvalidInput},
		{`\d parcels`, domain.ErrItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if err := s.Execute(context.Background(), tt.line); !errors.Is(err, tt.want) {
				t.Errorf("Execute(%q) error = %v, want %v", tt.line, err, tt.want)
			}
		})
	}
}

func TestReconnectClosesPreviousSession(t *testing.T) {
	wb := &mockWorkbench{}
	s, _ := connectedShell(t, wb, nil)

	if err := s.Execute(context.Background(), `\c parcels.gpkg`); err != nil {
		t.Fatalf(`\c error = %v`, err)
	}
	if len(wb.closed) != 1 || wb.closed[0] != "session-streets.gpkg" {
		t.Errorf("closed = %v, want [session-streets.gpkg]", wb.closed)
	}

	s.Close(context.Background())
	if len(wb.closed) != 2 || wb.closed[1] != "session-parcels.gpkg" {
		t.Errorf("closed = %v, want both sessions", wb.closed)
	}
}

func TestGeometryAndDialectSettings(t *testing.T) {
	wb := &mockWorkbench{page: streetsPage()}
	s, _ := connectedShell(t, wb, nil)
	ctx := context.Background()

	for _, line := range []string{`\geom off`, `\dialect ogrsql`, "select * from streets;"} {
		if err := s.Execute(ctx, line); err != nil {
			t.Fatalf("Execute(%q) error = %v", line, err)
		}
	}

	req := wb.runs[0]
	if req.IncludeGeometry == nil || *req.IncludeGeometry {
		t.Errorf("IncludeGeometry = %v, want false", req.IncludeGeometry)
	}
	if req.Dialect != "OGRSQL" {
		t.Errorf("Dialect = %q, want %q", req.Dialect, "OGRSQL")
	}
}

func TestCopyToClipboard(t *testing.T) {
	wb := &mockWorkbench{copyText: "Name\tType\nZwicky Ave\tresidential\n"}
	clip := &mockClipboard{}
	s, out := connectedShell(t, wb, clip)

	if err := s.Execute(context.Background(), `\copy 1 1:2`); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := domain.CellRange{TopRow: 0, BottomRow: 0, LeftColumn: 0, RightColumn: 1}
	if len(wb.selections) != 1 || wb.selections[0][0] != want {
		t.Errorf("selections = %v, want [%v]", wb.selections, want)
	}
	if clip.text != wb.copyText {
		t.Errorf("clipboard = %q, want %q", clip.text, wb.copyText)
	}
	if !strings.Contains(out.String(), "Copied") {
		t.Errorf("output = %q, want copy confirmation", out.String())
	}
}

func TestCopyWithoutClipboardPrints(t *testing.T) {
	wb := &mockWorkbench{copyText: "Name\tType\nZwicky Ave\tresidential\n"}
	clip := &mockClipboard{err: domain.ErrClipboardNotAllowed}
	s, out := connectedShell(t, wb, clip)

	if err := s.Execute(context.Background(), `\copy 1 1:2`); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got, want := out.String(), "Name\tType\nZwicky Ave\tresidential\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestExport(t *testing.T) {
	wb := &mockWorkbench{exportOut: "POINT (1 2)"}
	s, out := connectedShell(t, wb, nil)

	if err := s.Execute(context.Background(), `\export wkt`); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(wb.exports) != 1 || wb.exports[0] != "wkt" {
		t.Errorf("exports = %v, want [wkt]", wb.exports)
	}
	if out.String() != "POINT (1 2)\n" {
		t.Errorf("output = %q, want %q", out.String(), "POINT (1 2)\n")
	}
}

func TestMoreAfterLastChunk(t *testing.T) {
	wb := &mockWorkbench{more: input.ResultPage{Total: 1200}}
	s, out := connectedShell(t, wb, nil)

	if err := s.Execute(context.Background(), `\more`); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if want := "All 1,200 rows fetched\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestQueryFiles(t *testing.T) {
	dir := t.TempDir()
	wb := &mockWorkbench{page: streetsPage()}
	s, _ := connectedShell(t, wb, nil)
	ctx := context.Background()

	in := filepath.Join(dir, "in.sql")
	if err := os.WriteFile(in, []byte("-- streets\nselect * from streets"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := s.Execute(ctx, `\o `+in); err != nil {
		t.Fatalf(`\o error = %v`, err)
	}
	if len(wb.runs) != 1 || wb.runs[0].Query != "-- streets\nselect * from streets" {
		t.Fatalf("runs = %v, want the file content", wb.runs)
	}

	saved := filepath.Join(dir, "out.sql")
	if err := s.Execute(ctx, `\w `+saved); err != nil {
		t.Fatalf(`\w error = %v`, err)
	}
	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got, want := string(data), "-- streets\nselect * from streets\n"; got != want {
		t.Errorf("saved = %q, want %q", got, want)
	}
}

func TestDescribe(t *testing.T) {
	wb := &mockWorkbench{catalog: domain.Catalog{Items: []domain.Item{
		{Name: "owners", Kind: domain.ItemAttributes, Columns: []domain.Column{{Name: "id", Type: "INTEGER"}}},
		{
			Name: "streets", Kind: domain.ItemFeatures, GeometryColumn: "Shape",
			GeometryType: "MULTILINESTRING", SRID: 4326,
			Columns: []domain.Column{{Name: "Name", Type: "TEXT"}, {Name: "Shape", Type: domain.GeometryTypeName}},
		},
	}}}
	s, out := connectedShell(t, wb, nil)
	ctx := context.Background()

	if err := s.Execute(ctx, `\d`); err != nil {
		t.Fatalf(`\d error = %v`, err)
	}
	for _, want := range []string{"owners", "attributes", "streets", "MULTILINESTRING", "4326"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("catalog output should contain %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := s.Execute(ctx, `\d STREETS`); err != nil {
		t.Fatalf(`\d STREETS error = %v`, err)
	}
	if !strings.Contains(out.String(), "Shape") || !strings.Contains(out.String(), "Geometry") {
		t.Errorf("item output = %q, want Shape Geometry", out.String())
	}
}
