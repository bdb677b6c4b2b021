// Package vfs binds the page cache and the event queue to file I/O.
//
// The Engine owns the open-descriptor table and drives every operation
// through a fixed side-effect sequence: cache check, store call, cache
// update, event trigger. The byte store is the only component that can
// fail mid-operation, and a store failure leaves descriptor offsets,
// cache contents, and the event queue exactly as they were.
//
// Writes are write-through: the store is updated synchronously before
// the cache, so resident pages never hold data the store lacks.
package vfs

import (
	"context"
	"errors"
	"sync"

	"github.com/unfound-os/unfoundfs/internal/logger"
	"github.com/unfound-os/unfoundfs/pkg/cache"
	"github.com/unfound-os/unfoundfs/pkg/notify"
	"github.com/unfound-os/unfoundfs/pkg/store"
)

// Open flags. Values follow the POSIX encoding so callers can pass
// familiar constants.
const (
	O_RDONLY = 0x0
	O_WRONLY = 0x1
	O_RDWR   = 0x2

	O_ACCMODE = 0x3

	O_CREAT = 0x40
)

var (
	// ErrInvalidDescriptor is returned for a descriptor that was never
	// allocated or has been closed.
	ErrInvalidDescriptor = errors.New("vfs: invalid file descriptor")

	// ErrInvalidArgument is returned for bad flags, a write on a
	// read-only descriptor, or a read on a write-only descriptor.
	ErrInvalidArgument = errors.New("vfs: invalid argument")

	// ErrOutOfRange is returned when a seek would move the offset
	// before the start of the file.
	ErrOutOfRange = errors.New("vfs: offset out of range")
)

// descriptor is one entry in the open-file table.
type descriptor struct {
	file   store.FileID
	path   string
	offset int64
	mode   int
}

// Engine is the VFS integration layer. All exported methods are safe
// for concurrent use; each operation is atomic as a whole under a
// single engine mutex.
type Engine struct {
	mu      sync.Mutex
	store   store.ByteStore
	pages   cache.Pages
	events  *notify.Queue
	watcher *notify.Watcher
	fds     []*descriptor
}

// New builds an engine over the given store, cache, and event queue.
func New(bs store.ByteStore, pages cache.Pages, events *notify.Queue) (*Engine, error) {
	if bs == nil {
		return nil, errors.New("vfs: byte store is required")
	}
	if pages == nil {
		return nil, errors.New("vfs: page cache is required")
	}
	if events == nil {
		return nil, errors.New("vfs: event queue is required")
	}
	return &Engine{
		store:   bs,
		pages:   pages,
		events:  events,
		watcher: notify.NewWatcher(),
	}, nil
}

// Open resolves or creates the file at path and returns a descriptor.
// A Create event is triggered only when O_CREAT actually created the
// file; opening an existing file triggers nothing.
func (e *Engine) Open(ctx context.Context, path string, flags int) (int, error) {
	if path == "" {
		return -1, ErrInvalidArgument
	}
	mode := flags & O_ACCMODE
	if mode == O_ACCMODE {
		return -1, ErrInvalidArgument
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	created := false
	id, err := e.store.IdentityForPath(ctx, path)
	if errors.Is(err, store.ErrNotFound) && flags&O_CREAT != 0 {
		id, err = e.store.Create(ctx, path)
		created = err == nil
	}
	if err != nil {
		return -1, err
	}

	fd := e.allocFD(&descriptor{file: id, path: path, mode: mode})
	if created {
		e.events.Trigger(notify.NewEvent(notify.Create, id, path))
	}

	logger.Debug("file opened", "path", path, "fd", fd, "created", created)
	return fd, nil
}

// Close releases the descriptor. Cached pages of the file stay
// resident for future opens, and no event is triggered.
func (e *Engine) Close(fd int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.descriptor(fd); err != nil {
		return err
	}
	e.fds[fd] = nil
	logger.Debug("file closed", "fd", fd)
	return nil
}

// Unlink removes the file from the store, drops all of its cached
// pages, and triggers a Delete event, in that order. Descriptors still
// open on the file become dangling; subsequent reads through them fail
// with the store's not-found error.
func (e *Engine) Unlink(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.store.IdentityForPath(ctx, path)
	if err != nil {
		return err
	}
	if err := e.store.Remove(ctx, id); err != nil {
		return err
	}

	e.pages.InvalidateFile(id)
	e.events.Trigger(notify.NewEvent(notify.Delete, id, path))

	logger.Debug("file unlinked", "path", path)
	return nil
}

// AddWatch registers interest in events for a path prefix.
func (e *Engine) AddWatch(path string, mask notify.EventType) notify.WatchDescriptor {
	return e.watcher.AddWatch(path, mask)
}

// RemoveWatch unregisters a watch.
func (e *Engine) RemoveWatch(wd notify.WatchDescriptor) error {
	return e.watcher.RemoveWatch(wd)
}

// ReadEvents drains up to max pending events and returns the ones that
// pass the registered watches. With no watches registered all drained
// events are returned.
func (e *Engine) ReadEvents(max int) []notify.Event {
	return e.watcher.Filter(e.events.ReadEvents(max))
}

// PendingEvents reports the number of events waiting in the queue.
func (e *Engine) PendingEvents() int {
	return e.events.PendingCount()
}

// CacheStats returns a snapshot of the page cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.pages.Stats()
}

// descriptor resolves fd to its table entry. Callers hold e.mu.
func (e *Engine) descriptor(fd int) (*descriptor, error) {
	if fd < 0 || fd >= len(e.fds) || e.fds[fd] == nil {
		return nil, ErrInvalidDescriptor
	}
	return e.fds[fd], nil
}

// allocFD places d in the lowest free table slot. Callers hold e.mu.
func (e *Engine) allocFD(d *descriptor) int {
	for i, slot := range e.fds {
		if slot == nil {
			e.fds[i] = d
			return i
		}
	}
	e.fds = append(e.fds, d)
	return len(e.fds) - 1
}
