package output

import (
	"context"

	"github.com/jobrunner/gdbee/internal/domain"
)

// Geodatabase defines the secondary port for geodatabase access.
type Geodatabase interface {
	// Validate reports whether path points to a geodatabase that can be opened.
	Validate(ctx context.Context, path string) bool

	// Open connects to the geodatabase at path and returns its description.
	Open(ctx context.Context, path string) (*domain.Geodatabase, error)

	// Close releases the connection.
	Close() error

	// Catalog reads the tables, feature classes and their columns.
	Catalog(ctx context.Context) (domain.Catalog, error)

	// Execute runs a statement and returns a forward-only cursor over its result.
	// Engine failures are returned as *domain.QueryError.
	Execute(ctx context.Context, query string, dialect domain.Dialect) (RecordSet, error)
}

// RecordSet is a forward-only cursor over a query result.
type RecordSet interface {
	// RowCount returns the total number of records. It is computed once when the cursor is created.
	RowCount() int

	// Columns returns the attribute column names, geometry excluded.
	Columns() []string

	// GeometryColumn returns the geometry column name, empty when the result carries none.
	GeometryColumn() string

	// Next consumes one record. It returns nil, nil when the cursor is exhausted.
	Next(ctx context.Context) (*domain.Record, error)

	// Reset rewinds the cursor to the first record.
	Reset(ctx context.Context) error

	// Close releases the cursor.
	Close() error
}
