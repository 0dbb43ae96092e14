package output

import (
	"context"

	"github.com/jobrunner/gdbee/internal/domain"
)

// Renderer turns a result snapshot into export text.
type Renderer interface {
	// Format returns the export format name.
	Format() string

	// Render renders the snapshot. Renderers that spill to a file return a message naming the file.
	Render(ctx context.Context, snap *domain.Snapshot) (string, error)
}

// Clipboard defines the secondary port for the system clipboard.
type Clipboard interface {
	// WriteText replaces the clipboard content.
	WriteText(text string) error
}

// Settings provides user settings read at the moment they are needed.
type Settings interface {
	// IncludeGeometry reports whether result sets show the geometry column.
	IncludeGeometry() bool
}
