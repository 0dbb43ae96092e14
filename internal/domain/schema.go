package domain

import "fmt"

// Schema describes the columns of a result set as shown to the user.
// It is captured once per execution; later settings changes do not affect it.
type Schema struct {
	Columns         []string // Attribute column names, geometry excluded
	GeometryColumn  string   // Geometry column name, empty when the result has none
	IncludeGeometry bool     // Show geometry as the trailing column
	DisplayWidth    int      // WKT characters shown before truncation
}

// NewSchema creates a schema using the default display width.
func NewSchema(columns []string, geometryColumn string, includeGeometry bool) Schema {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return Schema{
		Columns:         cols,
		GeometryColumn:  geometryColumn,
		IncludeGeometry: includeGeometry,
		DisplayWidth:    DisplayWidth,
	}
}

// HasGeometry returns true if the geometry column is part of the visible headers.
func (s Schema) HasGeometry() bool {
	return s.IncludeGeometry && s.GeometryColumn != ""
}

// Headers returns the visible column names. The geometry column comes last.
func (s Schema) Headers() []string {
	headers := make([]string, 0, s.Width())
	headers = append(headers, s.Columns...)
	if s.HasGeometry() {
		headers = append(headers, s.GeometryColumn)
	}
	return headers
}

// Width returns the number of visible columns.
func (s Schema) Width() int {
	if s.HasGeometry() {
		return len(s.Columns) + 1
	}
	return len(s.Columns)
}

// GeometryIndex returns the position of the geometry column, or -1.
func (s Schema) GeometryIndex() int {
	if !s.HasGeometry() {
		return -1
	}
	return len(s.Columns)
}

// Row is one materialized result row. It is immutable after construction.
type Row struct {
	values      []interface{}
	hasGeometry bool   // geometry column is part of the row
	geomFull    string // full WKT, empty for NULL geometry
	geomDisplay string // truncated WKT
}

// NewRow builds a row from a record, validating it against the schema.
func NewRow(schema Schema, rec *Record) (Row, error) {
	if rec == nil {
		return Row{}, fmt.Errorf("nil record: %w", ErrSchemaMismatch)
	}
	if len(rec.Values) != len(schema.Columns) {
		return Row{}, fmt.Errorf("got %d values for %d columns: %w",
			len(rec.Values), len(schema.Columns), ErrSchemaMismatch)
	}

	values := make([]interface{}, len(rec.Values))
	copy(values, rec.Values)

	row := Row{
		values:      values,
		hasGeometry: schema.HasGeometry(),
	}
	if row.hasGeometry {
		if wkt, ok := rec.GeometryWKT(); ok {
			row.geomFull = wkt
			row.geomDisplay = TruncateWKT(wkt, schema.DisplayWidth)
		}
	}
	return row, nil
}

// Len returns the number of cells in the row.
func (r Row) Len() int {
	if r.hasGeometry {
		return len(r.values) + 1
	}
	return len(r.values)
}

// Value returns the raw value of a cell. The geometry cell yields its full WKT, or nil when NULL.
func (r Row) Value(col int) (interface{}, error) {
	if err := r.check(col); err != nil {
		return nil, err
	}
	if r.isGeometry(col) {
		if r.geomFull == "" {
			return nil, nil
		}
		return r.geomFull, nil
	}
	return r.values[col], nil
}

// Display returns the text shown in a result cell. Long geometries are truncated.
func (r Row) Display(col int) (string, error) {
	if err := r.check(col); err != nil {
		return "", err
	}
	if r.isGeometry(col) {
		return r.geomDisplay, nil
	}
	return FormatValue(r.values[col]), nil
}

// Text returns the full text of a cell as used for copy and export.
func (r Row) Text(col int) (string, error) {
	if err := r.check(col); err != nil {
		return "", err
	}
	if r.isGeometry(col) {
		return r.geomFull, nil
	}
	return FormatValue(r.values[col]), nil
}

// Texts returns the full text of every cell.
func (r Row) Texts() []string {
	out := make([]string, r.Len())
	for i := range out {
		out[i], _ = r.Text(i)
	}
	return out
}

// GeometryWKT returns the full geometry WKT, false when the row has no geometry value.
func (r Row) GeometryWKT() (string, bool) {
	if !r.hasGeometry || r.geomFull == "" {
		return "", false
	}
	return r.geomFull, true
}

func (r Row) isGeometry(col int) bool {
	return r.hasGeometry && col == len(r.values)
}

func (r Row) check(col int) error {
	if col < 0 || col >= r.Len() {
		return fmt.Errorf("column %d of %d: %w", col, r.Len(), ErrColumnOutOfRange)
	}
	return nil
}
