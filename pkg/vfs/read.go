package vfs

import (
	"context"

	"github.com/unfound-os/unfoundfs/internal/logger"
	"github.com/unfound-os/unfoundfs/pkg/notify"
	"github.com/unfound-os/unfoundfs/pkg/store"
)

// Read fills buf from the descriptor's current offset and advances the
// offset by the number of bytes read. Covered pages are served from the
// cache; misses are loaded from the store and inserted. One Access
// event is triggered per call, none for a zero-byte read at or past
// end of file. A store failure leaves offset, cache, and queue
// untouched.
func (e *Engine) Read(ctx context.Context, fd int, buf []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.descriptor(fd)
	if err != nil {
		return 0, err
	}
	if d.mode == O_WRONLY {
		return 0, ErrInvalidArgument
	}
	if len(buf) == 0 {
		return 0, nil
	}

	size, err := e.store.Size(ctx, d.file)
	if err != nil {
		return 0, err
	}
	if d.offset >= size {
		return 0, nil
	}

	n := len(buf)
	if remaining := size - d.offset; int64(n) > remaining {
		n = int(remaining)
	}

	pageSize := int64(e.pages.PageSize())
	firstPage := uint64(d.offset / pageSize)
	lastPage := uint64((d.offset + int64(n) - 1) / pageSize)
	e.pages.Observe(d.file, firstPage, lastPage)

	// Gather every covered page before committing anything, so a failed
	// load makes no cache mutation.
	type loadedPage struct {
		index uint64
		data  []byte
	}
	spans := make([][]byte, 0, lastPage-firstPage+1)
	var loads []loadedPage
	for idx := firstPage; idx <= lastPage; idx++ {
		page, ok := e.pages.GetPage(d.file, idx)
		if !ok {
			data, err := e.store.ReadAt(ctx, d.file, int64(idx)*pageSize, int(pageSize))
			if err != nil {
				return 0, err
			}
			// Short reads at EOF are padded so every cached page is
			// full-size.
			page = make([]byte, pageSize)
			copy(page, data)
			loads = append(loads, loadedPage{index: idx, data: page})
		}
		spans = append(spans, page)
	}
	for _, lp := range loads {
		if err := e.pages.PutPage(d.file, lp.index, lp.data, false); err != nil {
			return 0, err
		}
	}

	copied := 0
	pos := d.offset
	for i, page := range spans {
		idx := firstPage + uint64(i)
		start := int(pos - int64(idx)*pageSize)
		take := int(pageSize) - start
		if take > n-copied {
			take = n - copied
		}
		copy(buf[copied:copied+take], page[start:start+take])
		copied += take
		pos += int64(take)
	}
	d.offset += int64(copied)

	if window := e.pages.ReadaheadWindow(d.file); window > 1 {
		e.prefetch(ctx, d.file, lastPage+1, window-1, size)
	}

	e.events.Trigger(notify.NewEvent(notify.Access, d.file, d.path))
	return copied, nil
}

// prefetch opportunistically warms up to count pages starting at from.
// Readahead must not change correctness, so all failures are ignored.
// Callers hold e.mu.
func (e *Engine) prefetch(ctx context.Context, file store.FileID, from uint64, count int, size int64) {
	pageSize := int64(e.pages.PageSize())
	for i := 0; i < count; i++ {
		idx := from + uint64(i)
		if int64(idx)*pageSize >= size {
			return
		}
		if e.pages.Contains(file, idx) {
			continue
		}
		data, err := e.store.ReadAt(ctx, file, int64(idx)*pageSize, int(pageSize))
		if err != nil {
			logger.Debug("readahead aborted", "file", uint64(file), "page", idx, "error", err)
			return
		}
		if e.pages.PutPage(file, idx, data, false) != nil {
			return
		}
	}
}
