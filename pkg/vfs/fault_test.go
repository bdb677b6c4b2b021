package vfs_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/unfound-os/unfoundfs/pkg/cache"
	"github.com/unfound-os/unfoundfs/pkg/notify"
	"github.com/unfound-os/unfoundfs/pkg/store"
	"github.com/unfound-os/unfoundfs/pkg/store/memory"
	"github.com/unfound-os/unfoundfs/pkg/vfs"
)

var errDisk = errors.New("disk on fire")

// faultStore wraps a working store and fails reads or writes on demand.
type faultStore struct {
	store.ByteStore
	failReads  bool
	failWrites bool
}

func (f *faultStore) ReadAt(ctx context.Context, id store.FileID, offset int64, length int) ([]byte, error) {
	if f.failReads {
		return nil, errDisk
	}
	return f.ByteStore.ReadAt(ctx, id, offset, length)
}

func (f *faultStore) WriteAt(ctx context.Context, id store.FileID, offset int64, data []byte) (int, error) {
	if f.failWrites {
		return 0, errDisk
	}
	return f.ByteStore.WriteAt(ctx, id, offset, data)
}

func newFaultFixture(t *testing.T) (*vfs.Engine, *faultStore, *cache.PageCache, *notify.Queue) {
	t.Helper()

	pages, err := cache.New(8, testPageSize, nil)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	queue, err := notify.NewQueue(64, nil)
	if err != nil {
		t.Fatalf("notify.NewQueue failed: %v", err)
	}
	fs := &faultStore{ByteStore: memory.New()}
	engine, err := vfs.New(fs, pages, queue)
	if err != nil {
		t.Fatalf("vfs.New failed: %v", err)
	}
	return engine, fs, pages, queue
}

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	engine, fs, pages, queue := newFaultFixture(t)

	fd, err := engine.Open(ctx, "/f", vfs.O_RDWR|vfs.O_CREAT)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	queue.Clear()

	fs.failWrites = true
	n, err := engine.Write(ctx, fd, []byte("doomed"))
	if !errors.Is(err, errDisk) {
		t.Fatalf("Write error = %v, want the store error", err)
	}
	if n != 0 {
		t.Errorf("failed Write reported %d bytes", n)
	}

	// Offset unchanged, nothing cached, no event.
	info, err := engine.Stat(ctx, fd)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Offset != 0 {
		t.Errorf("offset = %d after failed write, want 0", info.Offset)
	}
	if pages.Len() != 0 {
		t.Errorf("%d pages cached after failed write, want 0", pages.Len())
	}
	if got := queue.PendingCount(); got != 0 {
		t.Errorf("%d events queued after failed write, want 0", got)
	}

	// The same write succeeds once the store recovers.
	fs.failWrites = false
	if n, err := engine.Write(ctx, fd, []byte("doomed")); err != nil || n != 6 {
		t.Errorf("recovered Write = (%d, %v), want (6, nil)", n, err)
	}
}

func TestFailedReadLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	engine, fs, pages, queue := newFaultFixture(t)

	fd, err := engine.Open(ctx, "/f", vfs.O_RDWR|vfs.O_CREAT)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := engine.Write(ctx, fd, []byte("content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Start from a cold cache so the read must hit the store.
	info, _ := engine.Stat(ctx, fd)
	pages.InvalidateFile(info.File)
	engine.Seek(ctx, fd, 0, io.SeekStart)
	queue.Clear()

	fs.failReads = true
	n, err := engine.Read(ctx, fd, make([]byte, 7))
	if !errors.Is(err, errDisk) {
		t.Fatalf("Read error = %v, want the store error", err)
	}
	if n != 0 {
		t.Errorf("failed Read reported %d bytes", n)
	}

	info, _ = engine.Stat(ctx, fd)
	if info.Offset != 0 {
		t.Errorf("offset = %d after failed read, want 0", info.Offset)
	}
	if pages.Contains(info.File, 0) {
		t.Error("failed load inserted a page")
	}
	if got := queue.PendingCount(); got != 0 {
		t.Errorf("%d events queued after failed read, want 0", got)
	}
}

func TestReadaheadFailureDoesNotFailRead(t *testing.T) {
	ctx := context.Background()
	engine, fs, pages, _ := newFaultFixture(t)

	fd, err := engine.Open(ctx, "/f", vfs.O_RDWR|vfs.O_CREAT)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	content := make([]byte, 4*testPageSize)
	if _, err := engine.Write(ctx, fd, content); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	engine.Seek(ctx, fd, 0, io.SeekStart)

	// Page 0 is resident from the write, so the read itself never
	// touches the store; only the readahead of page 1 does, and its
	// failure must be invisible to the caller.
	info, _ := engine.Stat(ctx, fd)
	pages.InvalidatePage(info.File, 1)
	fs.failReads = true

	n, err := engine.Read(ctx, fd, make([]byte, testPageSize))
	if err != nil || n != testPageSize {
		t.Errorf("Read = (%d, %v), want (%d, nil)", n, err, testPageSize)
	}
}
