package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestTruncateWKT(t *testing.T) {
	long := "LINESTRING (" + strings.Repeat("1 ", 24) + "1)"

	tests := []struct {
		name  string
		wkt   string
		width int
		want  string
	}{
		{"short", "POINT (1 2)", 60, "POINT (1 2)"},
		{"exactly width", strings.Repeat("a", 60), 60, strings.Repeat("a", 60)},
		{"one over width", strings.Repeat("a", 61), 60, strings.Repeat("a", 60) + "..."},
		{"linestring", long, 60, long[:60] + "..."},
		{"disabled", strings.Repeat("a", 61), 0, strings.Repeat("a", 61)},
		{"empty", "", 60, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateWKT(tt.wkt, tt.width); got != tt.want {
				t.Errorf("TruncateWKT() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeometryTypeFromWKT(t *testing.T) {
	tests := []struct {
		wkt  string
		want string
	}{
		{"POINT (1 2)", "POINT"},
		{"MultiLineString ((0 0, 1 1))", "MULTILINESTRING"},
		{"POLYGON EMPTY", "POLYGON"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := GeometryTypeFromWKT(tt.wkt); got != tt.want {
			t.Errorf("GeometryTypeFromWKT(%q) = %q, want %q", tt.wkt, got, tt.want)
		}
	}
}

func TestSchemaHeaders(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		want    []string
		geomIdx int
	}{
		{
			name:    "geometry included",
			schema:  NewSchema([]string{"Name", "Type", "Oneway"}, "Shape", true),
			want:    []string{"Name", "Type", "Oneway", "Shape"},
			geomIdx: 3,
		},
		{
			name:    "geometry excluded",
			schema:  NewSchema([]string{"Name", "Type", "Oneway"}, "Shape", false),
			want:    []string{"Name", "Type", "Oneway"},
			geomIdx: -1,
		},
		{
			name:    "no geometry column",
			schema:  NewSchema([]string{"Name"}, "", true),
			want:    []string{"Name"},
			geomIdx: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.schema.Headers()
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Headers() = %v, want %v", got, tt.want)
			}
			if tt.schema.Width() != len(tt.want) {
				t.Errorf("Width() = %d, want %d", tt.schema.Width(), len(tt.want))
			}
			if tt.schema.GeometryIndex() != tt.geomIdx {
				t.Errorf("GeometryIndex() = %d, want %d", tt.schema.GeometryIndex(), tt.geomIdx)
			}
		})
	}
}

func TestNewRowSchemaMismatch(t *testing.T) {
	schema := NewSchema([]string{"Name", "Type"}, "", false)

	tests := []struct {
		name string
		rec  *Record
	}{
		{"nil record", nil},
		{"missing value", &Record{Values: []interface{}{"a"}}},
		{"extra value", &Record{Values: []interface{}{"a", "b", "c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRow(schema, tt.rec)
			if !errors.Is(err, ErrSchemaMismatch) {
				t.Errorf("err = %v, want %v", err, ErrSchemaMismatch)
			}
		})
	}
}

func TestRowCells(t *testing.T) {
	wkt := "MULTILINESTRING ((" + strings.Repeat("-117.1 34.2, ", 6) + "-117.1 34.2))"
	schema := NewSchema([]string{"Name", "Lanes", "Oneway"}, "Shape", true)
	rec := &Record{
		Values:   []interface{}{"Zwicky Ave", int64(2), nil},
		Geometry: &Geometry{WKT: wkt},
	}

	row, err := NewRow(schema, rec)
	if err != nil {
		t.Fatalf("NewRow failed: %v", err)
	}

	if row.Len() != 4 {
		t.Errorf("Len() = %d, want 4", row.Len())
	}

	display, _ := row.Display(3)
	if display != wkt[:60]+"..." {
		t.Errorf("Display(3) = %q, want truncated WKT", display)
	}

	text, _ := row.Text(3)
	if text != wkt {
		t.Errorf("Text(3) = %q, want %q", text, wkt)
	}

	lanes, _ := row.Display(1)
	if lanes != "2" {
		t.Errorf("Display(1) = %q, want %q", lanes, "2")
	}

	oneway, _ := row.Display(2)
	if oneway != "" {
		t.Errorf("Display(2) = %q, want empty string for NULL", oneway)
	}

	if _, err := row.Display(4); !errors.Is(err, ErrColumnOutOfRange) {
		t.Errorf("Display(4) err = %v, want %v", err, ErrColumnOutOfRange)
	}

	// Mutating the source record must not affect the row.
	rec.Values[0] = "changed"
	name, _ := row.Value(0)
	if name != "Zwicky Ave" {
		t.Errorf("Value(0) = %v, want %q", name, "Zwicky Ave")
	}
}

func TestRowNullGeometry(t *testing.T) {
	schema := NewSchema([]string{"Name"}, "Shape", true)
	row, err := NewRow(schema, &Record{Values: []interface{}{"a"}})
	if err != nil {
		t.Fatalf("NewRow failed: %v", err)
	}

	display, err := row.Display(1)
	if err != nil || display != "" {
		t.Errorf("Display(1) = %q, %v, want empty cell", display, err)
	}

	value, _ := row.Value(1)
	if value != nil {
		t.Errorf("Value(1) = %v, want nil", value)
	}

	if _, ok := row.GeometryWKT(); ok {
		t.Error("GeometryWKT() ok = true, want false for NULL geometry")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"bytes", []byte("abc"), "abc"},
		{"binary", []byte{0xff, 0x00}, "ff00"},
		{"float", 1.5, "1.5"},
		{"int64", int64(-3), "-3"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
