// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"
	"io"
)

// ObjectStorage defines the secondary port for object storage operations.
type ObjectStorage interface {
	// List returns all geodatabase files in the storage.
	List(ctx context.Context) ([]StorageObject, error)

	// Download downloads a geodatabase file to the local filesystem.
	Download(ctx context.Context, key string, dest string) error

	// GetReader returns a reader for the given object.
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// StorageObject represents a file in object storage.
type StorageObject struct {
	Key          string // Object key/path
	Size         int64  // Size in bytes
	LastModified int64  // Unix timestamp
	ETag         string // Content hash
}

// FileWatcher observes geodatabase files connected by sessions.
// Track and Untrack calls for the same path are reference counted.
type FileWatcher interface {
	Track(path string) error
	Untrack(path string) error
}
