package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

func TestReadQuery(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr error
	}{
		{"arguments", []string{"SELECT", "*", "FROM roads"}, "ignored", "SELECT * FROM roads", nil},
		{"stdin", nil, "SELECT 1;\n", "SELECT 1;\n", nil},
		{"empty stdin", nil, " \n", "", domain.ErrEmptyQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readQuery(tt.args, strings.NewReader(tt.stdin))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("readQuery() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

// chunkedWorkbench materializes chunk rows per FetchMore.
type chunkedWorkbench struct {
	input.Workbench
	total        int
	chunk        int
	materialized int
	fetches      int
}

func (w *chunkedWorkbench) Page(_ context.Context, _ string, offset, limit int) (input.ResultPage, error) {
	p := input.ResultPage{
		Offset:       offset,
		Materialized: w.materialized,
		Total:        w.total,
		CanFetchMore: w.materialized < w.total,
	}
	for i := offset; i < offset+limit && i < w.materialized; i++ {
		p.Rows = append(p.Rows, []string{"row"})
	}
	return p, nil
}

func (w *chunkedWorkbench) FetchMore(ctx context.Context, id string) (input.ResultPage, error) {
	w.fetches++
	w.materialized = min(w.materialized+w.chunk, w.total)
	return w.Page(ctx, id, 0, 0)
}

func TestFetchChunk(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		n           int
		wantRows    int
		wantFetches int
	}{
		{"first chunk", 450, 1, 200, 0},
		{"third chunk partial", 450, 3, 50, 2},
		{"beyond the end", 450, 5, 0, 2},
		{"small result", 3, 1, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := &chunkedWorkbench{total: tt.total, chunk: 200, materialized: min(200, tt.total)}

			page, err := fetchChunk(context.Background(), wb, "s", tt.n, 200)
			if err != nil {
				t.Fatalf("fetchChunk() error = %v", err)
			}
			if len(page.Rows) != tt.wantRows {
				t.Errorf("len(Rows) = %d, want %d", len(page.Rows), tt.wantRows)
			}
			if wb.fetches != tt.wantFetches {
				t.Errorf("fetches = %d, want %d", wb.fetches, tt.wantFetches)
			}
		})
	}
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	printSources(&buf, []output.StorageObject{{Key: "roads.gpkg", Size: 2048}})

	if !strings.Contains(buf.String(), "roads.gpkg") || !strings.Contains(buf.String(), "2.0 kB") {
		t.Errorf("printSources() = %q, want key and size", buf.String())
	}
}
