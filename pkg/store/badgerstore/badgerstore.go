// Package badgerstore implements a ByteStore persisted in BadgerDB.
//
// Layout:
//   - path:<path>  -> FileID (8 bytes, big-endian)
//   - name:<id>    -> path string (reverse index, used by Remove)
//   - data:<id>    -> full file content
//
// File content is stored as a single value per file, so WriteAt is a
// read-modify-write inside one transaction. That keeps the store simple and
// fully transactional; it is intended for small-to-medium files where the
// page cache above absorbs most reads.
package badgerstore

import (
	"context"
	"encoding/binary"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

// Store is a BadgerDB-backed ByteStore.
type Store struct {
	db  *badgerdb.DB
	seq *badgerdb.Sequence
}

// Open opens (creating if needed) a badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	seq, err := db.GetSequence([]byte("seq:fileid"), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open fileid sequence: %w", err)
	}

	return &Store{db: db, seq: seq}, nil
}

// Close releases the sequence and closes the database.
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("release fileid sequence: %w", err)
	}
	return s.db.Close()
}

func keyPath(path string) []byte {
	return append([]byte("path:"), path...)
}

func keyName(id store.FileID) []byte {
	return appendID([]byte("name:"), id)
}

func keyData(id store.FileID) []byte {
	return appendID([]byte("data:"), id)
}

func appendID(prefix []byte, id store.FileID) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return append(prefix, buf[:]...)
}

func decodeID(val []byte) (store.FileID, error) {
	if len(val) != 8 {
		return 0, fmt.Errorf("malformed file id value (%d bytes)", len(val))
	}
	return store.FileID(binary.BigEndian.Uint64(val)), nil
}

// IdentityForPath resolves a path to its FileID.
func (s *Store) IdentityForPath(ctx context.Context, path string) (store.FileID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var id store.FileID
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyPath(path))
		if err == badgerdb.ErrKeyNotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id, err = decodeID(val)
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Create allocates a new empty file for the given path.
func (s *Store) Create(ctx context.Context, path string) (store.FileID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	next, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("allocate file id: %w", err)
	}
	id := store.FileID(next + 1) // sequence starts at 0, ids start at 1

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyPath(path)); err == nil {
			return store.ErrExists
		} else if err != badgerdb.ErrKeyNotFound {
			return err
		}

		if err := txn.Set(keyPath(path), appendID(nil, id)); err != nil {
			return err
		}
		if err := txn.Set(keyName(id), []byte(path)); err != nil {
			return err
		}
		return txn.Set(keyData(id), nil)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ReadAt reads up to length bytes starting at offset.
func (s *Store) ReadAt(ctx context.Context, id store.FileID, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyData(id))
		if err == badgerdb.ErrKeyNotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if offset >= int64(len(val)) {
				return nil
			}
			end := offset + int64(length)
			if end > int64(len(val)) {
				end = int64(len(val))
			}
			out = make([]byte, end-offset)
			copy(out, val[offset:end])
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteAt writes data at offset, extending the file as needed.
func (s *Store) WriteAt(ctx context.Context, id store.FileID, offset int64, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyData(id))
		if err == badgerdb.ErrKeyNotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		var content []byte
		if err := item.Value(func(val []byte) error {
			end := offset + int64(len(data))
			size := int64(len(val))
			if end > size {
				size = end
			}
			content = make([]byte, size)
			copy(content, val)
			return nil
		}); err != nil {
			return err
		}

		copy(content[offset:], data)
		return txn.Set(keyData(id), content)
	})
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// Size returns the current file size in bytes.
func (s *Store) Size(ctx context.Context, id store.FileID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var size int64
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyData(id))
		if err == badgerdb.ErrKeyNotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			size = int64(len(val))
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

// Remove deletes the file and releases its FileID.
func (s *Store) Remove(ctx context.Context, id store.FileID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyName(id))
		if err == badgerdb.ErrKeyNotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		var path []byte
		if err := item.Value(func(val []byte) error {
			path = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		if err := txn.Delete(keyPath(string(path))); err != nil {
			return err
		}
		if err := txn.Delete(keyName(id)); err != nil {
			return err
		}
		return txn.Delete(keyData(id))
	})
}
