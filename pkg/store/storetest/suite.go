// Package storetest provides a conformance suite for ByteStore
// implementations. Each backend runs the suite from its own test file so
// every store honors the same contract.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

// Factory creates a fresh, empty store for a single subtest.
type Factory func(t *testing.T) store.ByteStore

// Run exercises the full ByteStore contract against the given factory.
func Run(t *testing.T, factory Factory) {
	t.Run("CreateAndResolve", func(t *testing.T) { testCreateAndResolve(t, factory) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, factory) })
	t.Run("ResolveUnknown", func(t *testing.T) { testResolveUnknown(t, factory) })
	t.Run("ReadWriteRoundTrip", func(t *testing.T) { testReadWriteRoundTrip(t, factory) })
	t.Run("ShortReadAtEOF", func(t *testing.T) { testShortReadAtEOF(t, factory) })
	t.Run("WriteExtendsWithZeroFill", func(t *testing.T) { testWriteExtends(t, factory) })
	t.Run("OverwriteMiddle", func(t *testing.T) { testOverwriteMiddle(t, factory) })
	t.Run("Remove", func(t *testing.T) { testRemove(t, factory) })
	t.Run("UnknownID", func(t *testing.T) { testUnknownID(t, factory) })
	t.Run("CancelledContext", func(t *testing.T) { testCancelledContext(t, factory) })
}

func testCreateAndResolve(t *testing.T, factory Factory) {
	s := factory(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "/a/b")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.IdentityForPath(ctx, "/a/b")
	if err != nil {
		t.Fatalf("IdentityForPath failed: %v", err)
	}
	if got != id {
		t.Errorf("IdentityForPath = %d, want %d", got, id)
	}

	size, err := s.Size(ctx, id)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 0 {
		t.Errorf("new file size = %d, want 0", size)
	}
}

func testCreateDuplicate(t *testing.T, factory Factory) {
	s := factory(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "/dup"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create(ctx, "/dup"); !errors.Is(err, store.ErrExists) {
		t.Errorf("duplicate Create error = %v, want ErrExists", err)
	}
}

func testResolveUnknown(t *testing.T, factory Factory) {
	s := factory(t)

	_, err := s.IdentityForPath(context.Background(), "/missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("IdentityForPath error = %v, want ErrNotFound", err)
	}
}

func testReadWriteRoundTrip(t *testing.T, factory Factory) {
	s := factory(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "/file")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	payload := []byte("the quick brown fox")
	n, err := s.WriteAt(ctx, id, 0, payload)
	if err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	if n != len(payload) {
		t.Errorf("WriteAt wrote %d bytes, want %d", n, len(payload))
	}

	got, err := s.ReadAt(ctx, id, 0, len(payload))
	if err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ReadAt = %q, want %q", got, payload)
	}

	size, err := s.Size(ctx, id)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != int64(len(payload)) {
		t.Errorf("Size = %d, want %d", size, len(payload))
	}
}

func testShortReadAtEOF(t *testing.T, factory Factory) {
	s := factory(t)
	ctx := context.Background()

	id, _ := s.Create(ctx, "/short")
	if _, err := s.WriteAt(ctx, id, 0, []byte("abc")); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}

	got, err := s.ReadAt(ctx, id, 1, 100)
	if err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if !bytes.Equal(got, []byte("bc")) {
		t.Errorf("short read = %q, want %q", got, "bc")
	}

	got, err = s.ReadAt(ctx, id, 50, 10)
	if err != nil {
		t.Fatalf("ReadAt past EOF failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("read past EOF returned %d bytes, want 0", len(got))
	}
}

func testWriteExtends(t *testing.T, factory Factory) {
	s := factory(t)
	ctx := context.Background()

	id, _ := s.Create(ctx, "/sparse")
	if _, err := s.WriteAt(ctx, id, 10, []byte("tail")); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}

	size, err := s.Size(ctx, id)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 14 {
		t.Errorf("Size = %d, want 14", size)
	}

	head, err := s.ReadAt(ctx, id, 0, 10)
	if err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if !bytes.Equal(head, make([]byte, 10)) {
		t.Errorf("gap not zero-filled: %v", head)
	}
}

func testOverwriteMiddle(t *testing.T, factory Factory) {
	s := factory(t)
	ctx := context.Background()

	id, _ := s.Create(ctx, "/mid")
	if _, err := s.WriteAt(ctx, id, 0, []byte("aaaaaaaa")); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	if _, err := s.WriteAt(ctx, id, 2, []byte("XX")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, err := s.ReadAt(ctx, id, 0, 8)
	if err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if !bytes.Equal(got, []byte("aaXXaaaa")) {
		t.Errorf("overwrite result = %q, want %q", got, "aaXXaaaa")
	}
}

func testRemove(t *testing.T, factory Factory) {
	s := factory(t)
	ctx := context.Background()

	id, _ := s.Create(ctx, "/victim")
	if err := s.Remove(ctx, id); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, err := s.IdentityForPath(ctx, "/victim"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("path still resolves after Remove: %v", err)
	}
	if _, err := s.Size(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Size after Remove error = %v, want ErrNotFound", err)
	}
	if err := s.Remove(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}

	// The path can be created again after removal.
	if _, err := s.Create(ctx, "/victim"); err != nil {
		t.Errorf("re-Create after Remove failed: %v", err)
	}
}

func testUnknownID(t *testing.T, factory Factory) {
	s := factory(t)
	ctx := context.Background()
	const bogus = store.FileID(9999)

	if _, err := s.ReadAt(ctx, bogus, 0, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ReadAt error = %v, want ErrNotFound", err)
	}
	if _, err := s.WriteAt(ctx, bogus, 0, []byte("x")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("WriteAt error = %v, want ErrNotFound", err)
	}
	if _, err := s.Size(ctx, bogus); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Size error = %v, want ErrNotFound", err)
	}
}

func testCancelledContext(t *testing.T, factory Factory) {
	s := factory(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Create(ctx, "/never"); err == nil {
		t.Error("Create with cancelled context should fail")
	}
	if _, err := s.IdentityForPath(ctx, "/never"); err == nil {
		t.Error("IdentityForPath with cancelled context should fail")
	}
}
