// Package geopackage provides the SQLite/SpatiaLite geodatabase adapter.
package geopackage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/jobrunner/gdbee/internal/domain"
)

const (
	// plainDriver is registered by go-sqlite3 itself.
	plainDriver = "sqlite3"
	// spatialDriver loads SpatiaLite into every connection.
	spatialDriver = "sqlite3_with_extensions"
)

// Ensure sqlite3 driver is registered with extension support.
func init() {
	sql.Register(spatialDriver, &sqlite3.SQLiteDriver{
		Extensions: []string{spatiaLiteExtension()},
	})
}

// spatiaLiteExtension returns the first SpatiaLite library that exists on disk, or the
// generic name resolved through the loader path.
func spatiaLiteExtension() string {
	for _, path := range getSpatiaLiteLibraryPaths() {
		if filepath.IsAbs(path) {
			if _, err := os.Stat(path); err != nil {
				continue
			}
		}
		return path
	}
	return "mod_spatialite"
}

// getSpatiaLiteLibraryPaths returns a list of paths to try for loading SpatiaLite.
// The environment variable wins over platform-specific paths.
func getSpatiaLiteLibraryPaths() []string {
	if envPath := os.Getenv("SPATIALITE_LIBRARY_PATH"); envPath != "" {
		return []string{envPath}
	}

	return []string{
		// Alpine Linux (Docker containers)
		"/usr/lib/mod_spatialite.so",
		"/usr/lib/mod_spatialite.so.8",

		// Debian/Ubuntu amd64
		"/usr/lib/x86_64-linux-gnu/mod_spatialite.so",
		"/usr/lib/x86_64-linux-gnu/mod_spatialite.so.8",

		// Debian/Ubuntu arm64
		"/usr/lib/aarch64-linux-gnu/mod_spatialite.so",
		"/usr/lib/aarch64-linux-gnu/mod_spatialite.so.8",

		// macOS Homebrew
		"/usr/local/lib/mod_spatialite.dylib",
		"/opt/homebrew/lib/mod_spatialite.dylib",

		// Generic names resolved through LD_LIBRARY_PATH
		"mod_spatialite.so",
		"mod_spatialite",
		"mod_spatialite.dylib",
	}
}

// driverFor returns the database/sql driver used for a dialect.
func driverFor(dialect domain.Dialect) (string, error) {
	switch dialect {
	case domain.DialectSQLite:
		return spatialDriver, nil
	case domain.DialectOGRSQL:
		return plainDriver, nil
	default:
		return "", fmt.Errorf("%q: %w", dialect, domain.ErrUnsupportedDialect)
	}
}

// openDB opens a geodatabase file read-only.
func openDB(ctx context.Context, driver, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Probe checks that the SQLite engine is usable.
func Probe(ctx context.Context) error {
	db, err := sql.Open(plainDriver, ":memory:")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("sqlite engine not available: %w", err)
	}
	return nil
}

// SpatiaLiteVersion returns the version of the loadable SpatiaLite extension.
func SpatiaLiteVersion(ctx context.Context) (string, error) {
	db, err := sql.Open(spatialDriver, ":memory:")
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT spatialite_version()").Scan(&version); err != nil {
		return "", fmt.Errorf("SpatiaLite extension not available: %w", err)
	}
	return version, nil
}
