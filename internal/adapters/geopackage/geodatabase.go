package geopackage

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// sqliteMagic is the header of every SQLite 3 database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// Geodatabase implements the Geodatabase port for GeoPackage and SpatiaLite files.
//
// A plain connection serves the catalog and OGRSQL statements. The SpatiaLite connection
// used for SQLITE statements is opened on first use; when the extension cannot be loaded,
// SQLITE statements run on the plain connection.
type Geodatabase struct {
	mu         sync.Mutex
	logger     *slog.Logger
	path       string
	plain      *sql.DB
	spatial    *sql.DB
	spatialErr error
	geomNames  map[string]bool
}

var _ output.Geodatabase = (*Geodatabase)(nil)

// New creates an unconnected geodatabase adapter.
func New(logger *slog.Logger) *Geodatabase {
	return &Geodatabase{logger: logger}
}

// Validate reports whether path is a readable SQLite database file.
func (g *Geodatabase) Validate(_ context.Context, path string) bool {
	f, err := os.Open(path) //#nosec G304 -- path chosen by the user
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return bytes.Equal(header, sqliteMagic)
}

// Open connects to the geodatabase at path and reads its catalog.
func (g *Geodatabase) Open(ctx context.Context, path string) (*domain.Geodatabase, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_ = g.closeLocked()

	db, err := openDB(ctx, plainDriver, path)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	catalog, err := readCatalog(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	g.path = path
	g.plain = db
	g.geomNames = geometryNames(catalog)

	info := &domain.Geodatabase{
		Path:        path,
		Name:        DisplayName(path),
		Catalog:     catalog,
		ConnectedAt: time.Now(),
	}
	if stat, err := os.Stat(path); err == nil {
		info.Size = stat.Size()
	}
	return info, nil
}

// Catalog re-reads the catalog.
func (g *Geodatabase) Catalog(ctx context.Context) (domain.Catalog, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.plain == nil {
		return domain.Catalog{}, domain.ErrNotConnected
	}
	catalog, err := readCatalog(ctx, g.plain)
	if err != nil {
		return domain.Catalog{}, err
	}
	g.geomNames = geometryNames(catalog)
	return catalog, nil
}

// Execute runs a statement and returns a cursor over its rows.
// Engine failures are returned as *domain.QueryError carrying the engine message.
func (g *Geodatabase) Execute(ctx context.Context, query string, dialect domain.Dialect) (output.RecordSet, error) {
	g.mu.Lock()
	db, err := g.conn(ctx, dialect)
	names := g.geomNames
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	query = strings.TrimRight(strings.TrimSpace(query), "; \t\r\n")
	rs, err := newRecordSet(ctx, db, query, names)
	if err != nil {
		return nil, &domain.QueryError{Query: query, Dialect: string(dialect), Err: err}
	}
	return rs, nil
}

// conn returns the connection for dialect. Callers hold g.mu.
func (g *Geodatabase) conn(ctx context.Context, dialect domain.Dialect) (*sql.DB, error) {
	if g.plain == nil {
		return nil, domain.ErrNotConnected
	}

	driver, err := driverFor(dialect)
	if err != nil {
		return nil, err
	}
	if driver == plainDriver {
		return g.plain, nil
	}

	if g.spatial == nil && g.spatialErr == nil {
		g.spatial, g.spatialErr = openDB(ctx, spatialDriver, g.path)
		if g.spatialErr != nil {
			g.logger.Warn("SpatiaLite not available, running SQLITE statements without spatial functions",
				"path", g.path,
				"error", g.spatialErr,
			)
		}
	}
	if g.spatialErr != nil {
		return g.plain, nil
	}
	return g.spatial, nil
}

// Close closes all connections.
func (g *Geodatabase) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closeLocked()
}

func (g *Geodatabase) closeLocked() error {
	var firstErr error
	for _, db := range []*sql.DB{g.plain, g.spatial} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.plain = nil
	g.spatial = nil
	g.spatialErr = nil
	g.geomNames = nil
	g.path = ""
	return firstErr
}

// geometryNames collects the lower-cased geometry column names of a catalog.
func geometryNames(catalog domain.Catalog) map[string]bool {
	names := make(map[string]bool)
	for _, item := range catalog.Items {
		if item.GeometryColumn != "" {
			names[strings.ToLower(item.GeometryColumn)] = true
		}
	}
	return names
}

// DisplayName derives a geodatabase name from its file path.
func DisplayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
