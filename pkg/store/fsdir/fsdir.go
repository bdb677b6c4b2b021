// Package fsdir implements a ByteStore backed by a directory of files.
//
// Each stored file lives under the root directory, named
// "<fileID>-<escaped path>", so the path index can be rebuilt by scanning the
// directory on Open. IDs are allocated sequentially past the highest ID found
// during the scan.
package fsdir

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

// Store is a directory-backed ByteStore.
type Store struct {
	mu     sync.RWMutex
	root   string
	paths  map[string]store.FileID
	names  map[store.FileID]string // FileID -> on-disk file name
	nextID store.FileID
}

// Open creates (if necessary) and scans the root directory, rebuilding the
// path index from the file names found there.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}

	s := &Store{
		root:   root,
		paths:  make(map[string]store.FileID),
		names:  make(map[store.FileID]string),
		nextID: 1,
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan store root: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, path, ok := parseName(entry.Name())
		if !ok {
			continue // not one of ours
		}
		s.paths[path] = id
		s.names[id] = entry.Name()
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}

	return s, nil
}

// encodeName builds the on-disk file name for an id/path pair.
func encodeName(id store.FileID, path string) string {
	return fmt.Sprintf("%d-%s", id, url.PathEscape(path))
}

// parseName reverses encodeName. Returns ok=false for foreign files.
func parseName(name string) (store.FileID, string, bool) {
	idStr, escaped, found := strings.Cut(name, "-")
	if !found {
		return 0, "", false
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, "", false
	}
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return 0, "", false
	}
	return store.FileID(id), path, true
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
	name := encodeName(id, path)

	f, err := os.OpenFile(filepath.Join(s.root, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close new file: %w", err)
	}

	s.nextID++
	s.paths[path] = id
	s.names[id] = name
	return id, nil
}

// filePath returns the absolute on-disk path for a FileID.
func (s *Store) filePath(id store.FileID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.names[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return filepath.Join(s.root, name), nil
}

// ReadAt reads up to length bytes starting at offset.
func (s *Store) ReadAt(ctx context.Context, id store.FileID, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.filePath(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("open for read: %w", err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read at %d: %w", offset, err)
	}
	return buf[:n], nil
}

// WriteAt writes data at offset, extending the file as needed.
func (s *Store) WriteAt(ctx context.Context, id store.FileID, offset int64, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := s.filePath(id)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("open for write: %w", err)
	}
	defer f.Close()

	n, err := f.WriteAt(data, offset)
	if err != nil {
		return n, fmt.Errorf("write at %d: %w", offset, err)
	}
	return n, nil
}

// Size returns the current file size in bytes.
func (s *Store) Size(ctx context.Context, id store.FileID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := s.filePath(id)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("stat: %w", err)
	}
	return info.Size(), nil
}

// Remove deletes the file and releases its FileID.
func (s *Store) Remove(ctx context.Context, id store.FileID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.names[id]
	if !ok {
		return store.ErrNotFound
	}

	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}

	_, path, _ := parseName(name)
	delete(s.paths, path)
	delete(s.names, id)
	return nil
}
