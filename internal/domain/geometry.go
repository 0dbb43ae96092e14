// Package domain contains the core entities and value objects of a query session.
package domain

import (
	"strings"
	"unicode/utf8"
)

// DisplayWidth is the number of WKT characters a result cell shows before it is truncated.
const DisplayWidth = 60

// truncationMarker is appended to a truncated WKT display value.
const truncationMarker = "..."

// Geometry represents a decoded feature geometry.
type Geometry struct {
	Type     string    // WKT type (Point, Polygon, etc.)
	WKT      string    // Well-Known Text representation
	SRID     int       // Spatial Reference ID
	Envelope *Envelope // Bounding box from the geometry header (optional)
}

// IsEmpty returns true if the geometry carries no WKT.
func (g *Geometry) IsEmpty() bool {
	return g == nil || g.WKT == ""
}

// Envelope is an axis-aligned bounding box.
type Envelope struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Width returns the envelope width.
func (e Envelope) Width() float64 {
	return e.MaxX - e.MinX
}

// Height returns the envelope height.
func (e Envelope) Height() float64 {
	return e.MaxY - e.MinY
}

// TruncateWKT shortens wkt to width characters followed by "..." when it is longer than width.
// A width below one disables truncation.
func TruncateWKT(wkt string, width int) string {
	if width < 1 || utf8.RuneCountInString(wkt) <= width {
		return wkt
	}
	runes := []rune(wkt)
	return string(runes[:width]) + truncationMarker
}

// GeometryTypeFromWKT extracts the geometry type keyword from WKT.
func GeometryTypeFromWKT(wkt string) string {
	wkt = strings.TrimSpace(wkt)
	if idx := strings.IndexAny(wkt, "( "); idx > 0 {
		return strings.ToUpper(wkt[:idx])
	}
	return strings.ToUpper(wkt)
}
