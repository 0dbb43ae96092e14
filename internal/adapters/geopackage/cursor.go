package geopackage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

var errCursorClosed = errors.New("cursor closed")

// recordSet is a forward-only cursor over the rows of one statement.
//
// The statement runs detached from the caller's context so the cursor outlives the request
// that created it; every Next checks the caller's context instead.
type recordSet struct {
	mu        sync.Mutex
	db        *sql.DB
	query     string
	rows      *sql.Rows
	columns   []string // attribute columns
	geomName  string
	geomIndex int // position of the geometry column in the result, -1 for none
	width     int // result columns including geometry
	count     int
	closed    bool
}

var _ output.RecordSet = (*recordSet)(nil)

// newRecordSet executes query and counts its rows. geometryNames holds lower-cased geometry
// column names from the catalog.
func newRecordSet(ctx context.Context, db *sql.DB, query string, geometryNames map[string]bool) (*recordSet, error) {
	rs := &recordSet{db: db, query: query, geomIndex: -1}
	if err := rs.open(ctx); err != nil {
		return nil, err
	}

	cols, err := rs.rows.Columns()
	if err != nil {
		_ = rs.rows.Close()
		return nil, err
	}
	types, err := rs.rows.ColumnTypes()
	if err != nil {
		_ = rs.rows.Close()
		return nil, err
	}

	rs.width = len(cols)
	for i, name := range cols {
		if rs.geomIndex < 0 && (isGeometryType(types[i].DatabaseTypeName()) || geometryNames[strings.ToLower(name)]) {
			rs.geomIndex = i
			rs.geomName = name
			continue
		}
		rs.columns = append(rs.columns, name)
	}

	count, err := countRows(ctx, db, query)
	if err != nil {
		_ = rs.rows.Close()
		return nil, err
	}
	rs.count = count

	return rs, nil
}

func (rs *recordSet) open(ctx context.Context) error {
	rows, err := rs.db.QueryContext(context.WithoutCancel(ctx), rs.query)
	if err != nil {
		return err
	}
	rs.rows = rows
	return nil
}

// RowCount returns the number of rows the statement yields.
func (rs *recordSet) RowCount() int {
	return rs.count
}

// Columns returns the attribute column names.
func (rs *recordSet) Columns() []string {
	return rs.columns
}

// GeometryColumn returns the geometry column name, empty if the result has none.
func (rs *recordSet) GeometryColumn() string {
	return rs.geomName
}

// Next returns the next record, or nil at the end of the result.
func (rs *recordSet) Next(ctx context.Context) (*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.closed {
		return nil, errCursorClosed
	}
	if !rs.rows.Next() {
		return nil, rs.rows.Err()
	}

	values := make([]interface{}, rs.width)
	ptrs := make([]interface{}, rs.width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rs.rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	rec := &domain.Record{Values: make([]interface{}, 0, len(rs.columns))}
	for i, v := range values {
		if i == rs.geomIndex {
			geom, err := geometryValue(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", rs.geomName, err)
			}
			rec.Geometry = geom
			continue
		}
		rec.Values = append(rec.Values, v)
	}
	return rec, nil
}

// Reset re-executes the statement so the next call to Next returns the first row.
func (rs *recordSet) Reset(ctx context.Context) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.closed {
		return errCursorClosed
	}
	if err := rs.rows.Close(); err != nil {
		return err
	}
	return rs.open(ctx)
}

// Close releases the statement.
func (rs *recordSet) Close() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.closed {
		return nil
	}
	rs.closed = true
	return rs.rows.Close()
}

// countRows counts the rows of query, falling back to a full pass for statements that
// cannot be wrapped in a sub-select.
func countRows(ctx context.Context, db *sql.DB, query string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+query+")").Scan(&count) //#nosec G202 -- user statement executed as typed
	if err == nil {
		return count, nil
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	count = 0
	for rows.Next() {
		count++
	}
	return count, rows.Err()
}
