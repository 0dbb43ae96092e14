package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// ExportService renders full result sets through registered renderers.
type ExportService struct {
	renderers map[string]output.Renderer
	metrics   output.MetricsCollector
	logger    *slog.Logger
}

// NewExportService creates an export service with the given renderers.
func NewExportService(metrics output.MetricsCollector, logger *slog.Logger, renderers ...output.Renderer) *ExportService {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	s := &ExportService{
		renderers: make(map[string]output.Renderer, len(renderers)),
		metrics:   metrics,
		logger:    logger,
	}
	for _, r := range renderers {
		s.renderers[strings.ToLower(r.Format())] = r
	}
	return s
}

// Formats returns the registered format names in sorted order.
func (s *ExportService) Formats() []string {
	formats := make([]string, 0, len(s.renderers))
	for f := range s.renderers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Export reconciles the full result behind view and renders it in format.
func (s *ExportService) Export(ctx context.Context, view *ResultView, format string) (string, error) {
	renderer, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return "", fmt.Errorf("%q: %w", format, domain.ErrUnknownFormat)
	}
	if view == nil {
		return "", domain.ErrNoResult
	}

	start := time.Now()
	snap, err := view.Snapshot(ctx)
	if err != nil {
		s.metrics.IncExportCount(renderer.Format(), false)
		return "", err
	}

	out, err := renderer.Render(ctx, snap)
	if err != nil {
		s.metrics.IncExportCount(renderer.Format(), false)
		s.logger.Error("export failed", "format", renderer.Format(), "error", err)
		return "", err
	}

	s.metrics.IncExportCount(renderer.Format(), true)
	s.logger.Info("result exported",
		"format", renderer.Format(),
		"rows", snap.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
