// Package memory implements an in-memory ByteStore.
//
// The memory store keeps file contents in byte slices guarded by a single
// RWMutex. It is the default backend for tests and benchmarks; contents are
// lost when the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

type file struct {
	path string
	data []byte
}

// Store is a map-backed ByteStore.
type Store struct {
	mu     sync.RWMutex
	files  map[store.FileID]*file
	paths  map[string]store.FileID
	nextID store.FileID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		files:  make(map[store.FileID]*file),
		paths:  make(map[string]store.FileID),
		nextID: 1,
	}
}

// IdentityForPath resolves a path to its FileID.
func (s *Store) IdentityForPath(ctx context.Context, path string) (store.FileID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.paths[path]
	if !ok {
		return 0, store.ErrNotFound
	}
	return id, nil
}

// Create allocates a new empty file for the given path.
func (s *Store) Create(ctx context.Context, path string) (store.FileID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paths[path]; ok {
		return 0, store.ErrExists
	}

	id := s.nextID
	s.nextID++
	s.files[id] = &file{path: path}
	s.paths[path] = id
	return id, nil
}

// ReadAt reads up to length bytes starting at offset.
func (s *Store) ReadAt(ctx context.Context, id store.FileID, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if offset >= int64(len(f.data)) {
		return nil, nil
	}

	end := offset + int64(length)
	if end > int64(len(f.data)) {
		end = int64(len(f.data))
	}

	out := make([]byte, end-offset)
	copy(out, f.data[offset:end])
	return out, nil
}

// WriteAt writes data at offset, extending the file as needed.
func (s *Store) WriteAt(ctx context.Context, id store.FileID, offset int64, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return 0, store.ErrNotFound
	}

	end := offset + int64(len(data))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}

	copy(f.data[offset:end], data)
	return len(data), nil
}

// Size returns the current file size in bytes.
func (s *Store) Size(ctx context.Context, id store.FileID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	return int64(len(f.data)), nil
}

// Remove deletes the file and releases its FileID.
func (s *Store) Remove(ctx context.Context, id store.FileID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return store.ErrNotFound
	}

	delete(s.paths, f.path)
	delete(s.files, id)
	return nil
}
