// Package store defines the byte store contract that backs the VFS engine.
//
// A ByteStore is a flat, random-access byte provider: files are identified by
// an opaque numeric FileID resolved from a path string, and data is read and
// written by absolute offset. The store knows nothing about caching, events,
// or descriptors; those belong to the layers above.
//
// Implementations in this repository:
//   - memory: map-backed store for tests and benchmarks
//   - fsdir: one file per FileID under a root directory
//   - badgerstore: BadgerDB-backed persistent store
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
package store

import (
	"context"
	"errors"
)

// FileID identifies a file within a ByteStore. IDs are allocated by the
// store on Create and remain stable for the lifetime of the file.
type FileID uint64

var (
	// ErrNotFound is returned when a path or FileID does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrExists is returned by Create when the path already exists.
	ErrExists = errors.New("store: already exists")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("store: closed")
)

// ByteStore provides random-access byte storage addressed by FileID.
//
// Offsets are absolute byte positions. Reads past the end of a file return
// fewer bytes than requested (possibly zero) without error; writes past the
// end extend the file, zero-filling any gap. All methods check the context
// before touching storage and return its error if cancelled.
type ByteStore interface {
	// IdentityForPath resolves a path to its FileID.
	// Returns ErrNotFound if the path does not exist.
	IdentityForPath(ctx context.Context, path string) (FileID, error)

	// Create allocates a new empty file for the given path and returns its
	// FileID. Returns ErrExists if the path is already present.
	Create(ctx context.Context, path string) (FileID, error)

	// ReadAt reads up to length bytes starting at offset.
	// A read beyond the end of the file returns a short (possibly empty)
	// slice without error. Returns ErrNotFound for an unknown FileID.
	ReadAt(ctx context.Context, id FileID, offset int64, length int) ([]byte, error)

	// WriteAt writes data at offset, extending the file as needed, and
	// returns the number of bytes written. Returns ErrNotFound for an
	// unknown FileID.
	WriteAt(ctx context.Context, id FileID, offset int64, data []byte) (int, error)

	// Size returns the current file size in bytes.
	// Returns ErrNotFound for an unknown FileID.
	Size(ctx context.Context, id FileID) (int64, error)

	// Remove deletes the file and releases its FileID.
	// Returns ErrNotFound for an unknown FileID.
	Remove(ctx context.Context, id FileID) error
}
