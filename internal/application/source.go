package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// SourceService resolves geodatabase references to local files.
// With remote storage configured, references are object keys that are downloaded into a cache directory.
type SourceService struct {
	storage  output.ObjectStorage
	cacheDir string
	metrics  output.MetricsCollector
	logger   *slog.Logger
}

// NewSourceService creates a source service. A nil storage resolves references as local paths.
func NewSourceService(storage output.ObjectStorage, cacheDir string, metrics output.MetricsCollector, logger *slog.Logger) *SourceService {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &SourceService{
		storage:  storage,
		cacheDir: cacheDir,
		metrics:  metrics,
		logger:   logger,
	}
}

// Remote reports whether references are resolved through remote storage.
func (s *SourceService) Remote() bool {
	return s.storage != nil
}

// List returns the geodatabases available in storage.
func (s *SourceService) List(ctx context.Context) ([]output.StorageObject, error) {
	if s.storage == nil {
		return nil, nil
	}

	start := time.Now()
	objects, err := s.storage.List(ctx)
	s.metrics.IncStorageOperations("list", err == nil)
	s.metrics.ObserveStorageDuration("list", time.Since(start))
	return objects, err
}

// Resolve returns a local file path for ref, downloading it into the cache when needed.
func (s *SourceService) Resolve(ctx context.Context, ref string) (string, error) {
	if s.storage == nil {
		return filepath.Abs(ref)
	}

	local, err := s.cachePath(ref)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		s.logger.Debug("using cached geodatabase", "key", ref, "path", local)
		return local, nil
	}

	exists, err := s.storage.Exists(ctx, ref)
	if err != nil {
		return "", &domain.StorageError{Operation: "exists", Key: ref, Err: err}
	}
	if !exists {
		return "", fmt.Errorf("%s: %w", ref, domain.ErrSourceNotFound)
	}

	s.logger.Info("downloading geodatabase", "key", ref, "path", local)
	start := time.Now()
	err = s.storage.Download(ctx, ref, local)
	s.metrics.IncStorageOperations("download", err == nil)
	s.metrics.ObserveStorageDuration("download", time.Since(start))
	if err != nil {
		s.logger.Error("failed to download geodatabase", "key", ref, "error", err)
		return "", err
	}

	return local, nil
}

// Evict removes a cached copy so the next Resolve downloads it again.
func (s *SourceService) Evict(ref string) error {
	if s.storage == nil {
		return nil
	}
	local, err := s.cachePath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// cachePath maps an object key into the cache directory, rejecting keys that escape it.
func (s *SourceService) cachePath(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &domain.ValidationError{
			Field:      "source",
			Value:      ref,
			Constraint: "relative object key",
			Message:    "key must stay inside the cache directory",
		}
	}
	return filepath.Join(s.cacheDir, clean), nil
}
