package vfs

import (
	"context"

	"github.com/unfound-os/unfoundfs/pkg/notify"
	"github.com/unfound-os/unfoundfs/pkg/store"
)

// Write stores data at the descriptor's current offset and advances
// the offset by the number of bytes written. The store is written
// first; only then are affected cache pages updated, so the cache
// never holds data the store lacks. One Modify event is triggered per
// call, none for a zero-byte write. A store failure leaves offset,
// cache, and queue untouched.
func (e *Engine) Write(ctx context.Context, fd int, data []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.descriptor(fd)
	if err != nil {
		return 0, err
	}
	if d.mode == O_RDONLY {
		return 0, ErrInvalidArgument
	}
	if len(data) == 0 {
		return 0, nil
	}

	n, err := e.store.WriteAt(ctx, d.file, d.offset, data)
	if err != nil {
		return 0, err
	}

	e.updatePages(ctx, d.file, d.offset, data[:n])
	d.offset += int64(n)
	e.events.Trigger(notify.NewEvent(notify.Modify, d.file, d.path))
	return n, nil
}

// updatePages brings cached pages in line with bytes just persisted at
// offset. The data is already durable, so every path here keeps the
// cache coherent: full-page spans replace the page outright, partial
// spans patch a resident page in place, and a partial span over an
// absent page is read back from the store before insertion. If that
// read-back fails the page is invalidated rather than cached stale.
// Callers hold e.mu.
func (e *Engine) updatePages(ctx context.Context, file store.FileID, offset int64, data []byte) {
	pageSize := int64(e.pages.PageSize())
	pos := offset
	remaining := data
	for len(remaining) > 0 {
		idx := uint64(pos / pageSize)
		start := int(pos - int64(idx)*pageSize)
		take := int(pageSize) - start
		if take > len(remaining) {
			take = len(remaining)
		}
		span := remaining[:take]

		switch {
		case start == 0 && take == int(pageSize):
			_ = e.pages.PutPage(file, idx, span, false)
		case e.pages.UpdatePage(file, idx, start, span):
			// Patched a resident page in place.
		default:
			page, err := e.store.ReadAt(ctx, file, int64(idx)*pageSize, int(pageSize))
			if err != nil {
				e.pages.InvalidatePage(file, idx)
			} else {
				_ = e.pages.PutPage(file, idx, page, false)
			}
		}

		remaining = remaining[take:]
		pos += int64(take)
	}
}
