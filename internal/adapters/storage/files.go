package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jobrunner/gdbee/internal/domain"
)

// geodatabaseExtensions are the file extensions of SQLite-based geodatabases.
var geodatabaseExtensions = []string{".gpkg", ".sqlite", ".db"}

// IsGeodatabaseFile reports whether name has a geodatabase file extension.
func IsGeodatabaseFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range geodatabaseExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// opener returns a reader for an object key.
type opener func(ctx context.Context, key string) (io.ReadCloser, error)

// download streams key into dest. The file is written next to dest and renamed into place
// so a reader never sees a partial geodatabase.
func download(ctx context.Context, open opener, key, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}

	src, err := open(ctx, key)
	if err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return &domain.StorageError{Operation: "download", Key: key, Err: err}
	}
	return nil
}

// withPrefix returns the full object key including prefix.
func withPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// withoutPrefix strips prefix from a full object key.
func withoutPrefix(prefix, key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
}
