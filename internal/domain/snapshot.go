package domain

import "sort"

// Snapshot is the complete result set handed to export renderers.
type Snapshot struct {
	Headers        []string // Visible column names
	GeometryColumn string   // Name of the geometry header, empty when not part of the snapshot
	Rows           []Row    // Rows in cursor order; row i has number i+1
}

// Len returns the number of rows.
func (s *Snapshot) Len() int {
	return len(s.Rows)
}

// IsEmpty returns true if the snapshot has no rows.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Rows) == 0
}

// RowNumber returns the 1-based number shown for row index i.
func RowNumber(i int) int {
	return i + 1
}

// HasGeometry returns true if the geometry column is part of the snapshot.
func (s *Snapshot) HasGeometry() bool {
	return s.GeometryColumn != ""
}

// GeometryWKTs returns the full WKT of every row with a non-NULL geometry, in row order.
func (s *Snapshot) GeometryWKTs() []string {
	if !s.HasGeometry() {
		return nil
	}
	wkts := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		if wkt, ok := row.GeometryWKT(); ok {
			wkts = append(wkts, wkt)
		}
	}
	return wkts
}

// CellRange is an inclusive rectangle of selected cells.
type CellRange struct {
	TopRow      int `json:"top_row"`
	BottomRow   int `json:"bottom_row"`
	LeftColumn  int `json:"left_column"`
	RightColumn int `json:"right_column"`
}

// Cell returns a range covering a single cell.
func Cell(row, col int) CellRange {
	return CellRange{TopRow: row, BottomRow: row, LeftColumn: col, RightColumn: col}
}

// normalized returns the range with top<=bottom and left<=right.
func (c CellRange) normalized() CellRange {
	if c.TopRow > c.BottomRow {
		c.TopRow, c.BottomRow = c.BottomRow, c.TopRow
	}
	if c.LeftColumn > c.RightColumn {
		c.LeftColumn, c.RightColumn = c.RightColumn, c.LeftColumn
	}
	return c
}

// Selection is a set of selected cell ranges.
type Selection []CellRange

// Rows returns the selected row indexes in ascending order.
func (s Selection) Rows() []int {
	seen := make(map[int]struct{})
	for _, r := range s {
		r = r.normalized()
		for i := r.TopRow; i <= r.BottomRow; i++ {
			seen[i] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Columns returns the selected column indexes in ascending order.
func (s Selection) Columns() []int {
	seen := make(map[int]struct{})
	for _, r := range s {
		r = r.normalized()
		for i := r.LeftColumn; i <= r.RightColumn; i++ {
			seen[i] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Bounds returns the smallest range covering every selected cell without expanding
// the ranges. ok is false for an empty selection.
func (s Selection) Bounds() (bounds CellRange, ok bool) {
	for i, r := range s {
		r = r.normalized()
		if i == 0 {
			bounds = r
			continue
		}
		bounds.TopRow = min(bounds.TopRow, r.TopRow)
		bounds.BottomRow = max(bounds.BottomRow, r.BottomRow)
		bounds.LeftColumn = min(bounds.LeftColumn, r.LeftColumn)
		bounds.RightColumn = max(bounds.RightColumn, r.RightColumn)
	}
	return bounds, len(s) > 0
}

// IsSingleCell returns true if exactly one cell is selected.
func (s Selection) IsSingleCell() bool {
	b, ok := s.Bounds()
	return ok && b.TopRow == b.BottomRow && b.LeftColumn == b.RightColumn
}

func sortedKeys(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
