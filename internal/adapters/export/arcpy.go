package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jobrunner/gdbee/internal/domain"
)

var arcpyTemplate = newTemplate("arcpy", `geoms = []
for wkt_str in [{{ range $i, $wkt := .WKTs }}{{ if $i }}, {{ end }}{{ squote $wkt }}{{ end }}]:
	g = arcpy.FromWKT(wkt_str)
	geoms.append(g)
arcpy.CopyFeatures_management(geoms, 'in_memory\{{ .Layer }}')`)

// ArcPyRenderer builds an arcpy snippet that loads the result geometries into an in_memory layer.
type ArcPyRenderer struct {
	layer string
}

// NewArcPyRenderer creates a new arcpy snippet renderer.
func NewArcPyRenderer() *ArcPyRenderer {
	return &ArcPyRenderer{layer: "GDBeeLayer"}
}

// Format implements output.Renderer.
func (r *ArcPyRenderer) Format() string {
	return FormatArcPy
}

// Render implements output.Renderer. Snapshots without geometry render empty.
func (r *ArcPyRenderer) Render(_ context.Context, snap *domain.Snapshot) (string, error) {
	if !snap.HasGeometry() {
		return "", nil
	}

	var buf bytes.Buffer
	data := map[string]interface{}{
		"WKTs":  snap.GeometryWKTs(),
		"Layer": r.layer,
	}
	if err := arcpyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering arcpy snippet: %w", err)
	}
	return buf.String(), nil
}
