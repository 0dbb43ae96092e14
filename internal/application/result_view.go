package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// ResultView is the user-facing side of a result model: navigation, copy and export snapshots.
type ResultView struct {
	model     *ResultModel
	clipboard output.Clipboard
	logger    *slog.Logger
}

// NewResultView creates a view over model. clipboard may be nil.
func NewResultView(model *ResultModel, clipboard output.Clipboard, logger *slog.Logger) *ResultView {
	return &ResultView{
		model:     model,
		clipboard: clipboard,
		logger:    logger,
	}
}

// Model returns the underlying result model.
func (v *ResultView) Model() *ResultModel {
	return v.model
}

// JumpToEnd materializes every row and returns the index of the last one, or -1 when empty.
func (v *ResultView) JumpToEnd(ctx context.Context) (int, error) {
	if err := v.model.LoadAll(ctx); err != nil {
		return -1, err
	}
	return v.model.RowCount() - 1, nil
}

// Snapshot returns the full result set for export.
func (v *ResultView) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	return v.model.Snapshot(ctx)
}

// SelectionText renders the selected cells as clipboard text.
//
// A single cell yields its full text. Several cells yield a header line with the selected
// column names followed by one tab-separated line per selected row, each ending in a newline.
func (v *ResultView) SelectionText(sel domain.Selection) (string, error) {
	bounds, ok := sel.Bounds()
	if !ok {
		return "", domain.ErrEmptySelection
	}

	// Ranges are checked before they are expanded into indexes.
	headers := v.model.Headers()
	if c := bounds.LeftColumn; c < 0 {
		return "", fmt.Errorf("column %d of %d: %w", c, len(headers), domain.ErrColumnOutOfRange)
	}
	if c := bounds.RightColumn; c >= len(headers) {
		return "", fmt.Errorf("column %d of %d: %w", c, len(headers), domain.ErrColumnOutOfRange)
	}
	count := v.model.RowCount()
	if r := bounds.TopRow; r < 0 {
		return "", fmt.Errorf("row %d of %d: %w", r, count, domain.ErrRowNotMaterialized)
	}
	if r := bounds.BottomRow; r >= count {
		return "", fmt.Errorf("row %d of %d: %w", r, count, domain.ErrRowNotMaterialized)
	}

	rowIdx := sel.Rows()
	colIdx := sel.Columns()

	if len(rowIdx) == 1 && len(colIdx) == 1 {
		row, err := v.model.Row(rowIdx[0])
		if err != nil {
			return "", err
		}
		return row.Text(colIdx[0])
	}

	var b strings.Builder
	names := make([]string, len(colIdx))
	for i, c := range colIdx {
		names[i] = headers[c]
	}
	b.WriteString(strings.Join(names, "\t"))
	b.WriteByte('\n')

	cells := make([]string, len(colIdx))
	for _, r := range rowIdx {
		row, err := v.model.Row(r)
		if err != nil {
			return "", err
		}
		for i, c := range colIdx {
			cells[i], _ = row.Text(c)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// CopySelection renders the selection and places it on the clipboard when one is configured.
func (v *ResultView) CopySelection(sel domain.Selection) (string, error) {
	text, err := v.SelectionText(sel)
	if err != nil {
		return "", err
	}
	if v.clipboard != nil {
		if err := v.clipboard.WriteText(text); err != nil {
			v.logger.Warn("failed to write clipboard", "error", err)
			return text, err
		}
	}
	return text, nil
}
