// Package storage defines the FileStore sink the exporter writes manifests
// through, with implementations for local disk and S3-compatible object
// stores.
//
// The exporter writes each manifest to a temporary path and promotes it with
// Rename once complete, so a partial manifest is never visible at the final
// path. Paths are forward-slash separated and relative to the store root.
package storage

import (
	"context"
	"io"
)

// FileStore is a minimal interface for file-oriented storage.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing.
	// If the file already exists it is truncated.
	// Parent directories are created automatically.
	// The caller must close the returned WriteCloser to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Rename moves a file, replacing any existing file at newPath. On
	// local disk the move is atomic; object stores copy then delete.
	Rename(ctx context.Context, oldPath, newPath string) error

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}
