package geopackage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jobrunner/gdbee/internal/domain"
)

// internalPrefixes mark metadata tables that are not listed in the catalog.
var internalPrefixes = []string{"sqlite_", "gpkg_", "gpkgext_", "rtree_", "idx_"}

// spatialiteTables are SpatiaLite metadata tables.
var spatialiteTables = map[string]bool{
	"geometry_columns":             true,
	"geometry_columns_auth":        true,
	"geometry_columns_statistics":  true,
	"geometry_columns_field_infos": true,
	"geometry_columns_time":        true,
	"spatial_ref_sys":              true,
	"spatial_ref_sys_aux":          true,
	"spatialite_history":           true,
	"sql_statements_log":           true,
	"views_geometry_columns":       true,
	"virts_geometry_columns":       true,
	"elementarygeometries":         true,
	"spatialindex":                 true,
	"knn":                          true,
	"knn2":                         true,
	"data_licenses":                true,
}

// geometryTypes are declared column types that hold geometries.
var geometryTypes = map[string]bool{
	"GEOMETRY":           true,
	"POINT":              true,
	"LINESTRING":         true,
	"POLYGON":            true,
	"MULTIPOINT":         true,
	"MULTILINESTRING":    true,
	"MULTIPOLYGON":       true,
	"GEOMETRYCOLLECTION": true,
	"CIRCULARSTRING":     true,
	"COMPOUNDCURVE":      true,
	"CURVEPOLYGON":       true,
	"MULTICURVE":         true,
	"MULTISURFACE":       true,
	"CURVE":              true,
	"SURFACE":            true,
}

// isGeometryType reports whether a declared column type is a geometry type.
func isGeometryType(declType string) bool {
	return geometryTypes[strings.ToUpper(strings.TrimSpace(declType))]
}

func isInternalTable(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range internalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return spatialiteTables[lower]
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// readCatalog lists the tables and feature classes of a geodatabase.
// GeoPackage contents come first; remaining user tables and views are added as attribute tables.
func readCatalog(ctx context.Context, db *sql.DB) (domain.Catalog, error) {
	var catalog domain.Catalog
	seen := make(map[string]bool)

	add := func(item domain.Item) {
		key := strings.ToLower(item.Name)
		if seen[key] {
			return
		}
		seen[key] = true
		catalog.Items = append(catalog.Items, item)
	}

	hasContents, err := hasTable(ctx, db, "gpkg_contents")
	if err != nil {
		return catalog, err
	}
	if hasContents {
		items, err := readContents(ctx, db)
		if err != nil {
			return catalog, err
		}
		for _, item := range items {
			add(item)
		}
	}

	names, err := readTableNames(ctx, db)
	if err != nil {
		return catalog, err
	}
	for _, name := range names {
		add(domain.Item{Name: name, Kind: domain.ItemAttributes})
	}

	for i := range catalog.Items {
		if err := readColumns(ctx, db, &catalog.Items[i]); err != nil {
			return catalog, err
		}
	}

	catalog.Sort()
	return catalog, nil
}

// readContents reads the items registered in gpkg_contents.
func readContents(ctx context.Context, db *sql.DB) ([]domain.Item, error) {
	query := `
		SELECT c.table_name, c.data_type, '', '', COALESCE(c.srs_id, 0)
		FROM gpkg_contents c
	`
	hasGeometryColumns, err := hasTable(ctx, db, "gpkg_geometry_columns")
	if err != nil {
		return nil, err
	}
	if hasGeometryColumns {
		query = `
			SELECT
				c.table_name,
				c.data_type,
				COALESCE(g.column_name, ''),
				COALESCE(g.geometry_type_name, ''),
				COALESCE(g.srs_id, c.srs_id, 0)
			FROM gpkg_contents c
			LEFT JOIN gpkg_geometry_columns g ON c.table_name = g.table_name
		`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading gpkg_contents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		var dataType string
		if err := rows.Scan(&item.Name, &dataType, &item.GeometryColumn, &item.GeometryType, &item.SRID); err != nil {
			return nil, fmt.Errorf("scanning gpkg_contents: %w", err)
		}
		item.Kind = domain.ItemAttributes
		if item.GeometryColumn != "" {
			item.Kind = domain.ItemFeatures
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// readTableNames returns user tables and views.
func readTableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table', 'view') ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if !isInternalTable(name) {
			names = append(names, name)
		}
	}

	return names, rows.Err()
}

// readColumns fills the columns of an item. A column with a geometry type becomes the
// geometry column when none is registered.
func readColumns(ctx context.Context, db *sql.DB, item *domain.Item) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(item.Name))) //#nosec G201 -- quoted identifier from sqlite_master
	if err != nil {
		return fmt.Errorf("reading columns of %s: %w", item.Name, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    interface{}
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scanning columns of %s: %w", item.Name, err)
		}

		if item.GeometryColumn == "" && isGeometryType(typ) {
			item.GeometryColumn = name
			item.GeometryType = strings.ToUpper(typ)
			item.Kind = domain.ItemFeatures
		}
		if strings.EqualFold(name, item.GeometryColumn) {
			typ = domain.GeometryTypeName
		}
		item.Columns = append(item.Columns, domain.Column{Name: name, Type: typ})
	}

	return rows.Err()
}

func hasTable(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
