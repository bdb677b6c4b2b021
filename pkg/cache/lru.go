package cache

import (
	"sync"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

// PageCache is the strict-LRU page cache.
//
// Pages live in a preallocated frame arena; recency is a doubly linked list
// threaded through frame indices, so touch and evict are O(1) and there are
// no pointer cycles for the collector to chase. Eviction removes exactly the
// least recently used resident page, ties broken by insertion order.
type PageCache struct {
	mu sync.Mutex

	pageSize int
	frames   []frame
	index    map[pageKey]int
	head     int   // most recently used frame, -1 when empty
	tail     int   // least recently used frame, -1 when empty
	free     []int // unused frame indices

	seq       uint64
	hits      uint64
	misses    uint64
	evictions uint64
	dirty     int

	ra      *tracker
	metrics Metrics
}

// frame is one arena slot holding a single page.
type frame struct {
	key   pageKey
	data  []byte
	dirty bool
	seq   uint64 // last-access sequence number
	prev  int
	next  int
}

// New creates a PageCache holding at most capacity pages of pageSize bytes.
// The metrics sink may be nil.
func New(capacity, pageSize int, metrics Metrics) (*PageCache, error) {
	if capacity < 1 {
		return nil, ErrZeroCapacity
	}
	if pageSize < 1 {
		return nil, ErrInvalidPageSize
	}

	c := &PageCache{
		pageSize: pageSize,
		frames:   make([]frame, capacity),
		index:    make(map[pageKey]int, capacity),
		head:     -1,
		tail:     -1,
		free:     make([]int, 0, capacity),
		ra:       newTracker(),
		metrics:  metrics,
	}

	// Allocate every page buffer up front; frames are reused, never freed.
	for i := range c.frames {
		c.frames[i].data = make([]byte, pageSize)
		c.frames[i].prev = -1
		c.frames[i].next = -1
		c.free = append(c.free, i)
	}

	return c, nil
}

// GetPage returns a copy of the cached page and refreshes its recency.
func (c *PageCache) GetPage(file store.FileID, index uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[pageKey{file, index}]
	if !ok {
		c.misses++
		recordMiss(c.metrics)
		return nil, false
	}

	c.touch(i)
	c.hits++
	recordHit(c.metrics)

	out := make([]byte, c.pageSize)
	copy(out, c.frames[i].data)
	return out, true
}

// PutPage inserts or replaces a page. If the cache is at capacity and the
// key is new, the least recently used page is evicted first.
func (c *PageCache) PutPage(file store.FileID, index uint64, data []byte, dirty bool) error {
	if len(data) > c.pageSize {
		return ErrPageTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := pageKey{file, index}

	if i, ok := c.index[key]; ok {
		// Replace in place
		c.fill(i, data)
		c.setDirty(i, dirty)
		c.touch(i)
		return nil
	}

	i := c.takeFrame()
	c.frames[i].key = key
	c.fill(i, data)
	c.setDirty(i, dirty)
	c.index[key] = i
	c.pushFront(i)
	c.frames[i].seq = c.nextSeq()
	recordResident(c.metrics, len(c.index))
	return nil
}

// UpdatePage patches bytes into a resident page without recency or counter
// side effects. Used by the write path to keep pages coherent with storage.
func (c *PageCache) UpdatePage(file store.FileID, index uint64, offset int, data []byte) bool {
	if offset < 0 || offset+len(data) > c.pageSize {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[pageKey{file, index}]
	if !ok {
		return false
	}
	copy(c.frames[i].data[offset:], data)
	return true
}

// Contains reports residency without touching recency or counters.
func (c *PageCache) Contains(file store.FileID, index uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.index[pageKey{file, index}]
	return ok
}

// InvalidateFile drops every resident page of the file and its access
// pattern state. Idempotent.
func (c *PageCache) InvalidateFile(file store.FileID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, i := range c.index {
		if key.file == file {
			c.removeFrame(key, i)
		}
	}
	c.ra.forget(file)
	recordResident(c.metrics, len(c.index))
}

// InvalidatePage drops a single page if resident. Idempotent.
func (c *PageCache) InvalidatePage(file store.FileID, index uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := pageKey{file, index}
	if i, ok := c.index[key]; ok {
		c.removeFrame(key, i)
		recordResident(c.metrics, len(c.index))
	}
}

// Observe records an access covering [firstPage, lastPage] and returns the
// classified pattern for the file.
func (c *PageCache) Observe(file store.FileID, firstPage, lastPage uint64) AccessPattern {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ra.observe(file, firstPage, lastPage)
}

// ReadaheadWindow returns the suggested read window for the file, in pages.
func (c *PageCache) ReadaheadWindow(file store.FileID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ra.window(file)
}

// PageSize returns the fixed page size in bytes.
func (c *PageCache) PageSize() int {
	return c.pageSize
}

// HitRate returns hits / (hits + misses), or 0 before any access.
func (c *PageCache) HitRate() float64 {
	return c.Stats().HitRate()
}

// Stats returns a snapshot of the cache counters.
func (c *PageCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Resident:  len(c.index),
		Dirty:     c.dirty,
	}
}

// Len returns the number of resident pages.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.index)
}

// ----------------------------------------------------------------------------
// Internals. Callers hold c.mu.
// ----------------------------------------------------------------------------

func (c *PageCache) nextSeq() uint64 {
	c.seq++
	return c.seq
}

// fill copies data into the frame buffer, zero-padding the remainder.
func (c *PageCache) fill(i int, data []byte) {
	n := copy(c.frames[i].data, data)
	clear(c.frames[i].data[n:])
}

func (c *PageCache) setDirty(i int, dirty bool) {
	if c.frames[i].dirty != dirty {
		if dirty {
			c.dirty++
		} else {
			c.dirty--
		}
		c.frames[i].dirty = dirty
	}
}

// takeFrame returns a free frame index, evicting the LRU page if needed.
func (c *PageCache) takeFrame() int {
	if n := len(c.free); n > 0 {
		i := c.free[n-1]
		c.free = c.free[:n-1]
		return i
	}

	// Evict the tail: the least recently used resident page.
	i := c.tail
	key := c.frames[i].key
	c.detach(i)
	c.setDirty(i, false)
	delete(c.index, key)
	c.evictions++
	recordEviction(c.metrics)
	return i
}

// removeFrame unlinks a resident frame and returns it to the free list.
func (c *PageCache) removeFrame(key pageKey, i int) {
	c.detach(i)
	c.setDirty(i, false)
	delete(c.index, key)
	c.free = append(c.free, i)
}

// touch moves a resident frame to the recency head.
func (c *PageCache) touch(i int) {
	c.frames[i].seq = c.nextSeq()
	if c.head == i {
		return
	}
	c.detach(i)
	c.pushFront(i)
}

// detach unlinks a frame from the recency list.
func (c *PageCache) detach(i int) {
	f := &c.frames[i]
	if f.prev != -1 {
		c.frames[f.prev].next = f.next
	} else if c.head == i {
		c.head = f.next
	}
	if f.next != -1 {
		c.frames[f.next].prev = f.prev
	} else if c.tail == i {
		c.tail = f.prev
	}
	f.prev = -1
	f.next = -1
}

// pushFront links a detached frame in as the most recently used.
func (c *PageCache) pushFront(i int) {
	f := &c.frames[i]
	f.prev = -1
	f.next = c.head
	if c.head != -1 {
		c.frames[c.head].prev = i
	}
	c.head = i
	if c.tail == -1 {
		c.tail = i
	}
}
