// Package export renders result snapshots into the export formats of the workbench.
package export

import (
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/jobrunner/gdbee/internal/ports/output"
)

// Format names.
const (
	FormatWKT       = "wkt"
	FormatArcPy     = "arcpy"
	FormatDataFrame = "dataframe"
	FormatMarkdown  = "markdown"
)

// DefaultInlineLimit is the largest row count a Markdown export returns inline.
const DefaultInlineLimit = 1000

// Options configures the file-backed renderers.
type Options struct {
	TempDir     string // Directory for data.csv and data.md, os.TempDir() when empty
	InlineLimit int    // Markdown rows returned inline, DefaultInlineLimit when zero
}

// Renderers returns every export renderer.
func Renderers(opts Options) []output.Renderer {
	return []output.Renderer{
		NewWKTRenderer(),
		NewArcPyRenderer(),
		NewDataFrameRenderer(opts.TempDir),
		NewMarkdownRenderer(opts.TempDir, opts.InlineLimit),
	}
}

func newTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text))
}

// tempPath returns the fixed export file path inside dir.
func tempPath(dir, name string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, name)
}
