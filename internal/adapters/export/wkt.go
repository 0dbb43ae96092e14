package export

import (
	"context"
	"strings"

	"github.com/jobrunner/gdbee/internal/domain"
)

// WKTRenderer lists the full geometry WKT of every row, one per line, as read by QuickWKT.
type WKTRenderer struct{}

// NewWKTRenderer creates a new WKT list renderer.
func NewWKTRenderer() *WKTRenderer {
	return &WKTRenderer{}
}

// Format implements output.Renderer.
func (r *WKTRenderer) Format() string {
	return FormatWKT
}

// Render implements output.Renderer. Snapshots without geometry render empty.
func (r *WKTRenderer) Render(_ context.Context, snap *domain.Snapshot) (string, error) {
	if !snap.HasGeometry() {
		return "", nil
	}
	return strings.Join(snap.GeometryWKTs(), "\n"), nil
}
