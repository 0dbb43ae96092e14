package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/jobrunner/gdbee/internal/domain"
)

const dataFrameFile = "data.csv"

var pandasTemplate = newTemplate("pandas", `import pandas as pd
df = pd.read_csv(r"{{ .Path }}", sep=";", index_col=0)`)

// DataFrameRenderer writes the snapshot to a semicolon separated CSV file and returns
// the pandas code that reads it back.
type DataFrameRenderer struct {
	dir string
}

// NewDataFrameRenderer creates a renderer writing data.csv into dir.
func NewDataFrameRenderer(dir string) *DataFrameRenderer {
	return &DataFrameRenderer{dir: dir}
}

// Format implements output.Renderer.
func (r *DataFrameRenderer) Format() string {
	return FormatDataFrame
}

// Path returns the CSV file location.
func (r *DataFrameRenderer) Path() string {
	return tempPath(r.dir, dataFrameFile)
}

// Render implements output.Renderer.
func (r *DataFrameRenderer) Render(ctx context.Context, snap *domain.Snapshot) (string, error) {
	data, err := encodeCSV(ctx, snap)
	if err != nil {
		return "", err
	}

	path := r.Path()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := pandasTemplate.Execute(&buf, map[string]string{"Path": path}); err != nil {
		return "", fmt.Errorf("rendering pandas snippet: %w", err)
	}
	return buf.String(), nil
}

// encodeCSV writes the index column, headers and full cell text of every row.
func encodeCSV(ctx context.Context, snap *domain.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(append([]string{""}, snap.Headers...)); err != nil {
		return nil, err
	}
	for i, row := range snap.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record := append([]string{strconv.Itoa(domain.RowNumber(i))}, row.Texts()...)
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding csv: %w", err)
	}
	return buf.Bytes(), nil
}
