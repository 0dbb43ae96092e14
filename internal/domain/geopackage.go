package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Dialect names the SQL dialect a statement is executed with.
type Dialect string

// Supported dialects.
const (
	DialectSQLite Dialect = "SQLITE" // SpatiaLite-enabled connection
	DialectOGRSQL Dialect = "OGRSQL" // Plain SQLite connection, no spatial functions
)

// DefaultDialect is used when no dialect is configured.
const DefaultDialect = DialectSQLite

// ParseDialect parses a dialect name case-insensitively.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(strings.ToUpper(strings.TrimSpace(name))) {
	case "":
		return DefaultDialect, nil
	case DialectSQLite:
		return DialectSQLite, nil
	case DialectOGRSQL:
		return DialectOGRSQL, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnsupportedDialect)
	}
}

// GeometryTypeName is the type reported for geometry columns in the catalog.
const GeometryTypeName = "Geometry"

// Geodatabase describes a connected geodatabase file.
type Geodatabase struct {
	Path        string    // File path
	Name        string    // Display name
	Size        int64     // File size in bytes
	Catalog     Catalog   // Tables and feature classes
	ConnectedAt time.Time // Connection timestamp
}

// Catalog lists the items of a geodatabase with their columns.
type Catalog struct {
	Items []Item
}

// Names returns the item names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Items))
	for i, item := range c.Items {
		names[i] = item.Name
	}
	return names
}

// Item returns an item by name, matched case-insensitively.
func (c *Catalog) Item(name string) (*Item, bool) {
	for i := range c.Items {
		if strings.EqualFold(c.Items[i].Name, name) {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// Schemas returns the column types of every item keyed by item and column name.
func (c *Catalog) Schemas() map[string]map[string]string {
	out := make(map[string]map[string]string, len(c.Items))
	for _, item := range c.Items {
		cols := make(map[string]string, len(item.Columns))
		for _, col := range item.Columns {
			cols[col.Name] = col.Type
		}
		out[item.Name] = cols
	}
	return out
}

// Sort orders items case-insensitively by name.
func (c *Catalog) Sort() {
	sort.SliceStable(c.Items, func(i, j int) bool {
		return strings.ToLower(c.Items[i].Name) < strings.ToLower(c.Items[j].Name)
	})
}

// Item is a table or feature class inside a geodatabase.
type Item struct {
	Name           string   // Table name
	Kind           ItemKind // features, attributes
	GeometryColumn string   // Geometry column name, empty for plain tables
	GeometryType   string   // Geometry type (POINT, POLYGON, etc.)
	SRID           int      // Spatial Reference ID
	Columns        []Column // Columns in declaration order
}

// IsFeatureClass returns true if the item has a geometry column.
func (i *Item) IsFeatureClass() bool {
	return i.GeometryColumn != ""
}

// Column describes a single column of a catalog item.
type Column struct {
	Name string // Column name
	Type string // Declared type; geometry columns report GeometryTypeName
}

// ItemKind classifies catalog items.
type ItemKind string

const (
	ItemFeatures   ItemKind = "features"
	ItemAttributes ItemKind = "attributes"
)

// RunSummary describes a finished statement execution.
type RunSummary struct {
	Query       string        // Statement after comment stripping
	Dialect     Dialect       // Dialect used
	Elapsed     time.Duration // Execution wall time including the first chunk
	TotalRows   int           // Row count reported by the cursor
	Columns     int           // Visible column count
	HasGeometry bool          // Geometry column is part of the headers
}

// Status formats the summary for a status line, e.g. "Executed in 0.1 secs | 3 rows".
func (s RunSummary) Status() string {
	return fmt.Sprintf("Executed in %.1f secs | %d rows", s.Elapsed.Seconds(), s.TotalRows)
}
