package domain

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Record is a single feature as read from a result cursor.
type Record struct {
	Values   []interface{} // Attribute values in column order
	Geometry *Geometry     // nil when the feature has no geometry value
}

// GeometryWKT returns the full WKT of the record geometry.
// The second return value is false when the geometry is NULL.
func (r *Record) GeometryWKT() (string, bool) {
	if r == nil || r.Geometry.IsEmpty() {
		return "", false
	}
	return r.Geometry.WKT, true
}

// FormatValue renders an attribute value as text.
// NULL renders as an empty string.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return fmt.Sprintf("%x", val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
