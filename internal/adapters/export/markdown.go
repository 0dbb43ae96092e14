package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jobrunner/gdbee/internal/domain"
)

const markdownFile = "data.md"

// MarkdownRenderer renders the snapshot as a pipe table. Large tables are written to data.md.
type MarkdownRenderer struct {
	dir         string
	inlineLimit int
}

// NewMarkdownRenderer creates a renderer that spills tables longer than inlineLimit rows to dir.
func NewMarkdownRenderer(dir string, inlineLimit int) *MarkdownRenderer {
	if inlineLimit <= 0 {
		inlineLimit = DefaultInlineLimit
	}
	return &MarkdownRenderer{dir: dir, inlineLimit: inlineLimit}
}

// Format implements output.Renderer.
func (r *MarkdownRenderer) Format() string {
	return FormatMarkdown
}

// Path returns the spill file location.
func (r *MarkdownRenderer) Path() string {
	return tempPath(r.dir, markdownFile)
}

// Render implements output.Renderer.
func (r *MarkdownRenderer) Render(ctx context.Context, snap *domain.Snapshot) (string, error) {
	table, err := MarkdownTable(ctx, snap)
	if err != nil {
		return "", err
	}

	if snap.Len() <= r.inlineLimit {
		return table, nil
	}

	path := r.Path()
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return fmt.Sprintf("Markdown file is saved at %s", path), nil
}

// MarkdownTable renders the snapshot as a pipe table with a 1-based index column.
func MarkdownTable(ctx context.Context, snap *domain.Snapshot) (string, error) {
	buf := &bytes.Buffer{}
	table := tablewriter.NewWriter(buf)
	table.SetHeader(append([]string{""}, snap.Headers...))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")

	for i, row := range snap.Rows {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		cells := make([]string, 0, row.Len()+1)
		cells = append(cells, strconv.Itoa(domain.RowNumber(i)))
		for col := 0; col < row.Len(); col++ {
			v, err := row.Value(col)
			if err != nil {
				return "", err
			}
			cells = append(cells, markdownCell(v))
		}
		table.Append(cells)
	}

	table.Render()
	return strings.TrimRight(buf.String(), "\n"), nil
}

// markdownCell formats floats with four decimals and everything else as display text.
func markdownCell(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', 4, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', 4, 32)
	default:
		return domain.FormatValue(v)
	}
}
