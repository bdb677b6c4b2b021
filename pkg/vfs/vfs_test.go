package vfs_test

import (
	"bytes"
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

const testPageSize = 16

// fixture bundles an engine with its injected components so tests can
// inspect cache and queue state directly.
type fixture struct {
	engine *vfs.Engine
	pages  *cache.PageCache
	queue  *notify.Queue
	store  *memory.Store
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	pages, err := cache.New(capacity, testPageSize, nil)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	queue, err := notify.NewQueue(64, nil)
	if err != nil {
		t.Fatalf("notify.NewQueue failed: %v", err)
	}
	ms := memory.New()
	engine, err := vfs.New(ms, pages, queue)
	if err != nil {
		t.Fatalf("vfs.New failed: %v", err)
	}
	return &fixture{engine: engine, pages: pages, queue: queue, store: ms}
}

func (f *fixture) mustOpen(t *testing.T, path string, flags int) int {
	t.Helper()
	fd, err := f.engine.Open(context.Background(), path, flags)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	return fd
}

func (f *fixture) drainEvents(t *testing.T) []notify.Event {
	t.Helper()
	return f.engine.ReadEvents(1000)
}

func TestNewValidation(t *testing.T) {
	f := newFixture(t, 4)
	if _, err := vfs.New(nil, f.pages, f.queue); err == nil {
		t.Error("New accepted a nil store")
	}
	if _, err := vfs.New(f.store, nil, f.queue); err == nil {
		t.Error("New accepted a nil cache")
	}
	if _, err := vfs.New(f.store, f.pages, nil); err == nil {
		t.Error("New accepted a nil queue")
	}
}

func TestOpenCreateEventOnce(t *testing.T) {
	f := newFixture(t, 4)

	fd := f.mustOpen(t, "/data/new.txt", vfs.O_RDWR|vfs.O_CREAT)
	events := f.drainEvents(t)
	if len(events) != 1 || events[0].Type != notify.Create {
		t.Fatalf("events after creating open = %v, want one Create", events)
	}
	if events[0].Path != "/data/new.txt" {
		t.Errorf("Create event path = %q", events[0].Path)
	}

	// Opening the now-existing file must not trigger anything.
	fd2 := f.mustOpen(t, "/data/new.txt", vfs.O_RDWR|vfs.O_CREAT)
	if events := f.drainEvents(t); len(events) != 0 {
		t.Errorf("events after second open = %v, want none", events)
	}

	if fd == fd2 {
		t.Errorf("both opens returned descriptor %d", fd)
	}
}

func TestOpenMissingWithoutCreate(t *testing.T) {
	f := newFixture(t, 4)

	fd, err := f.engine.Open(context.Background(), "/nope", vfs.O_RDONLY)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Open error = %v, want store.ErrNotFound", err)
	}
	if fd != -1 {
		t.Errorf("failed Open returned descriptor %d", fd)
	}
	if events := f.drainEvents(t); len(events) != 0 {
		t.Errorf("failed Open triggered events: %v", events)
	}
}

func TestOpenBadFlags(t *testing.T) {
	f := newFixture(t, 4)
	if _, err := f.engine.Open(context.Background(), "/x", vfs.O_ACCMODE); !errors.Is(err, vfs.ErrInvalidArgument) {
		t.Errorf("Open with O_ACCMODE error = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.engine.Open(context.Background(), "", vfs.O_RDONLY); !errors.Is(err, vfs.ErrInvalidArgument) {
		t.Errorf("Open with empty path error = %v, want ErrInvalidArgument", err)
	}
}

func TestWriteThenReadIsCacheHit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)
	f.drainEvents(t) // discard the Create event

	n, err := f.engine.Write(ctx, fd, []byte("Hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = (%d, %v), want (5, nil)", n, err)
	}

	events := f.drainEvents(t)
	if len(events) != 1 || events[0].Type != notify.Modify {
		t.Fatalf("events after write = %v, want one Modify", events)
	}

	if _, err := f.engine.Seek(ctx, fd, 0, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	before := f.pages.Stats()
	buf := make([]byte, 5)
	n, err = f.engine.Read(ctx, fd, buf)
	if err != nil || n != 5 {
		t.Fatalf("Read = (%d, %v), want (5, nil)", n, err)
	}
	if string(buf) != "Hello" {
		t.Errorf("Read = %q, want %q", buf, "Hello")
	}

	after := f.pages.Stats()
	if after.Hits != before.Hits+1 || after.Misses != before.Misses {
		t.Errorf("read after write was not a pure cache hit: before %+v, after %+v", before, after)
	}

	events = f.drainEvents(t)
	if len(events) != 1 || events[0].Type != notify.Access {
		t.Errorf("events after read = %v, want one Access", events)
	}
}

func TestReadSpansPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)

	content := bytes.Repeat([]byte("0123456789"), 5) // 50 bytes, > 3 pages of 16
	if _, err := f.engine.Write(ctx, fd, content); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := f.engine.Seek(ctx, fd, 0, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	buf := make([]byte, len(content))
	n, err := f.engine.Read(ctx, fd, buf)
	if err != nil || n != len(content) {
		t.Fatalf("Read = (%d, %v), want (%d, nil)", n, err, len(content))
	}
	if !bytes.Equal(buf, content) {
		t.Errorf("round trip mismatch:\n got %q\nwant %q", buf, content)
	}

	// Offset advanced to EOF: the next read returns 0 with no event.
	f.drainEvents(t)
	n, err = f.engine.Read(ctx, fd, buf)
	if err != nil || n != 0 {
		t.Fatalf("Read at EOF = (%d, %v), want (0, nil)", n, err)
	}
	if events := f.drainEvents(t); len(events) != 0 {
		t.Errorf("read at EOF triggered events: %v", events)
	}
}

func TestReadPartialAtEOF(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)

	if _, err := f.engine.Write(ctx, fd, []byte("abc")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	f.engine.Seek(ctx, fd, 0, io.SeekStart)

	buf := make([]byte, 100)
	n, err := f.engine.Read(ctx, fd, buf)
	if err != nil || n != 3 {
		t.Fatalf("Read = (%d, %v), want (3, nil)", n, err)
	}
	if string(buf[:n]) != "abc" {
		t.Errorf("Read = %q, want %q", buf[:n], "abc")
	}
}

func TestSequentialReadsWarmFollowingPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 16)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)

	content := bytes.Repeat([]byte("x"), 12*testPageSize)
	if _, err := f.engine.Write(ctx, fd, content); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := f.engine.Stat(ctx, fd)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	// Drop everything so reads start cold, then read pages 0,1,2 in
	// order. The second consecutive access classifies the stream as
	// sequential and the engine prefetches ahead of page 2.
	f.pages.InvalidateFile(info.File)
	f.engine.Seek(ctx, fd, 0, io.SeekStart)

	buf := make([]byte, testPageSize)
	for i := 0; i < 3; i++ {
		if _, err := f.engine.Read(ctx, fd, buf); err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
	}

	if !f.pages.Contains(info.File, 3) || !f.pages.Contains(info.File, 4) {
		t.Error("pages following a sequential stream were not prefetched")
	}
}

func TestWriteModeEnforcement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/f", vfs.O_RDONLY|vfs.O_CREAT)

	if _, err := f.engine.Write(ctx, fd, []byte("x")); !errors.Is(err, vfs.ErrInvalidArgument) {
		t.Errorf("Write on O_RDONLY error = %v, want ErrInvalidArgument", err)
	}

	wfd := f.mustOpen(t, "/f", vfs.O_WRONLY)
	if _, err := f.engine.Read(ctx, wfd, make([]byte, 4)); !errors.Is(err, vfs.ErrInvalidArgument) {
		t.Errorf("Read on O_WRONLY error = %v, want ErrInvalidArgument", err)
	}
}

func TestInvalidDescriptor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)

	if _, err := f.engine.Read(ctx, 7, make([]byte, 4)); !errors.Is(err, vfs.ErrInvalidDescriptor) {
		t.Errorf("Read error = %v, want ErrInvalidDescriptor", err)
	}
	if _, err := f.engine.Write(ctx, -1, []byte("x")); !errors.Is(err, vfs.ErrInvalidDescriptor) {
		t.Errorf("Write error = %v, want ErrInvalidDescriptor", err)
	}
	if err := f.engine.Close(0); !errors.Is(err, vfs.ErrInvalidDescriptor) {
		t.Errorf("Close error = %v, want ErrInvalidDescriptor", err)
	}

	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)
	if err := f.engine.Close(fd); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := f.engine.Close(fd); !errors.Is(err, vfs.ErrInvalidDescriptor) {
		t.Errorf("double Close error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestDescriptorSlotReuse(t *testing.T) {
	f := newFixture(t, 4)

	fdA := f.mustOpen(t, "/a", vfs.O_RDWR|vfs.O_CREAT)
	fdB := f.mustOpen(t, "/b", vfs.O_RDWR|vfs.O_CREAT)
	if err := f.engine.Close(fdA); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	fdC := f.mustOpen(t, "/c", vfs.O_RDWR|vfs.O_CREAT)
	if fdC != fdA {
		t.Errorf("new open got descriptor %d, want reused slot %d", fdC, fdA)
	}
	if fdB == fdC {
		t.Errorf("descriptor %d issued twice", fdB)
	}
}

func TestCloseKeepsCachedPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)

	if _, err := f.engine.Write(ctx, fd, []byte("persistent")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := f.engine.Close(fd); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	f.drainEvents(t)

	// A fresh open of the same file reads straight from cache.
	fd = f.mustOpen(t, "/f", vfs.O_RDONLY)
	before := f.pages.Stats()
	buf := make([]byte, 10)
	if _, err := f.engine.Read(ctx, fd, buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	after := f.pages.Stats()
	if after.Misses != before.Misses {
		t.Errorf("read after close+reopen missed the cache: before %+v, after %+v", before, after)
	}
	if string(buf) != "persistent" {
		t.Errorf("Read = %q, want %q", buf, "persistent")
	}
}

func TestUnlink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/doomed", vfs.O_RDWR|vfs.O_CREAT)

	if _, err := f.engine.Write(ctx, fd, []byte("bye")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	info, _ := f.engine.Stat(ctx, fd)
	f.drainEvents(t)

	if err := f.engine.Unlink(ctx, "/doomed"); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}

	if f.pages.Contains(info.File, 0) {
		t.Error("cached pages survived Unlink")
	}
	events := f.drainEvents(t)
	if len(events) != 1 || events[0].Type != notify.Delete || events[0].Path != "/doomed" {
		t.Errorf("events after Unlink = %v, want one Delete for /doomed", events)
	}

	if err := f.engine.Unlink(ctx, "/doomed"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Unlink error = %v, want store.ErrNotFound", err)
	}
}

func TestSeek(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)
	f.engine.Write(ctx, fd, []byte("0123456789"))

	pos, err := f.engine.Seek(ctx, fd, 2, io.SeekStart)
	if err != nil || pos != 2 {
		t.Fatalf("Seek(SET 2) = (%d, %v)", pos, err)
	}
	pos, err = f.engine.Seek(ctx, fd, 3, io.SeekCurrent)
	if err != nil || pos != 5 {
		t.Fatalf("Seek(CUR 3) = (%d, %v)", pos, err)
	}
	pos, err = f.engine.Seek(ctx, fd, -4, io.SeekEnd)
	if err != nil || pos != 6 {
		t.Fatalf("Seek(END -4) = (%d, %v)", pos, err)
	}

	buf := make([]byte, 4)
	n, _ := f.engine.Read(ctx, fd, buf)
	if string(buf[:n]) != "6789" {
		t.Errorf("read after seek = %q, want %q", buf[:n], "6789")
	}

	if _, err := f.engine.Seek(ctx, fd, -1, io.SeekStart); !errors.Is(err, vfs.ErrOutOfRange) {
		t.Errorf("negative seek error = %v, want ErrOutOfRange", err)
	}
	if _, err := f.engine.Seek(ctx, fd, 0, 42); !errors.Is(err, vfs.ErrInvalidArgument) {
		t.Errorf("bad whence error = %v, want ErrInvalidArgument", err)
	}
}

func TestWritePastEOFZeroFills(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)

	f.engine.Seek(ctx, fd, 5, io.SeekStart)
	if _, err := f.engine.Write(ctx, fd, []byte("end")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f.engine.Seek(ctx, fd, 0, io.SeekStart)
	buf := make([]byte, 8)
	n, err := f.engine.Read(ctx, fd, buf)
	if err != nil || n != 8 {
		t.Fatalf("Read = (%d, %v), want (8, nil)", n, err)
	}
	want := []byte{0, 0, 0, 0, 0, 'e', 'n', 'd'}
	if !bytes.Equal(buf, want) {
		t.Errorf("Read = %v, want %v", buf, want)
	}
}

func TestDup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)
	f.engine.Write(ctx, fd, []byte("0123456789"))
	f.engine.Seek(ctx, fd, 4, io.SeekStart)

	dup, err := f.engine.Dup(fd)
	if err != nil {
		t.Fatalf("Dup failed: %v", err)
	}

	// The copy starts at the source offset and advances on its own.
	buf := make([]byte, 2)
	f.engine.Read(ctx, dup, buf)
	if string(buf) != "45" {
		t.Errorf("read through dup = %q, want %q", buf, "45")
	}
	f.engine.Read(ctx, fd, buf)
	if string(buf) != "45" {
		t.Errorf("read through original = %q, want %q", buf, "45")
	}

	if _, err := f.engine.Dup(99); !errors.Is(err, vfs.ErrInvalidDescriptor) {
		t.Errorf("Dup(99) error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestDup2(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	fd := f.mustOpen(t, "/f", vfs.O_RDWR|vfs.O_CREAT)
	f.engine.Write(ctx, fd, []byte("target"))

	got, err := f.engine.Dup2(fd, 5)
	if err != nil || got != 5 {
		t.Fatalf("Dup2 = (%d, %v), want (5, nil)", got, err)
	}

	f.engine.Seek(ctx, 5, 0, io.SeekStart)
	buf := make([]byte, 6)
	if _, err := f.engine.Read(ctx, 5, buf); err != nil {
		t.Fatalf("Read through dup2 descriptor failed: %v", err)
	}
	if string(buf) != "target" {
		t.Errorf("read = %q, want %q", buf, "target")
	}

	if got, err := f.engine.Dup2(fd, fd); err != nil || got != fd {
		t.Errorf("Dup2 onto itself = (%d, %v), want (%d, nil)", got, err, fd)
	}
	if _, err := f.engine.Dup2(fd, -1); !errors.Is(err, vfs.ErrInvalidArgument) {
		t.Errorf("Dup2 to negative slot error = %v, want ErrInvalidArgument", err)
	}
}

func TestWatchFiltering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)

	wd := f.engine.AddWatch("/logs", notify.Modify)

	fdLog := f.mustOpen(t, "/logs/app.log", vfs.O_RDWR|vfs.O_CREAT)
	fdTmp := f.mustOpen(t, "/tmp/scratch", vfs.O_RDWR|vfs.O_CREAT)
	f.engine.Write(ctx, fdLog, []byte("entry"))
	f.engine.Write(ctx, fdTmp, []byte("noise"))

	events := f.engine.ReadEvents(100)
	if len(events) != 1 || events[0].Path != "/logs/app.log" || events[0].Type != notify.Modify {
		t.Errorf("filtered events = %v, want one Modify for /logs/app.log", events)
	}

	if err := f.engine.RemoveWatch(wd); err != nil {
		t.Fatalf("RemoveWatch failed: %v", err)
	}
	if err := f.engine.RemoveWatch(wd); !errors.Is(err, notify.ErrUnknownWatch) {
		t.Errorf("second RemoveWatch error = %v, want ErrUnknownWatch", err)
	}
}
