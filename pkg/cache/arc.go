package cache

import (
	"container/list"
	"sync"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

// ARC is an adaptive replacement page cache.
//
// ARC balances recency and frequency by splitting residents into two lists:
// T1 holds pages seen once recently, T2 holds pages seen at least twice.
// Two ghost lists, B1 and B2, remember the keys of recently evicted pages
// (no data), and hits on them move the adaptive target p, growing whichever
// side the workload favors. Resident count never exceeds capacity.
type ARC struct {
	mu sync.Mutex

	pageSize int
	capacity int

	t1 *list.List // recent residents, front = oldest
	t2 *list.List // frequent residents, front = oldest
	b1 *list.List // ghosts evicted from T1
	b2 *list.List // ghosts evicted from T2

	entries map[pageKey]*arcEntry
	p       int // target size of T1

	hits      uint64
	misses    uint64
	evictions uint64
	dirty     int

	ra      *tracker
	metrics Metrics
}

// arcEntry tracks which list a key lives on. Ghost entries carry no data.
type arcEntry struct {
	list *list.List
	elem *list.Element
	data []byte
	dirt bool
}

// ARCStats extends Stats with the internal ARC list sizes.
type ARCStats struct {
	Stats
	T1 int
	T2 int
	B1 int
	B2 int
	P  int
}

// NewARC creates an ARC cache holding at most capacity pages of pageSize
// bytes. The metrics sink may be nil.
func NewARC(capacity, pageSize int, metrics Metrics) (*ARC, error) {
	if capacity < 1 {
		return nil, ErrZeroCapacity
	}
	if pageSize < 1 {
		return nil, ErrInvalidPageSize
	}

	return &ARC{
		pageSize: pageSize,
		capacity: capacity,
		t1:       list.New(),
		t2:       list.New(),
		b1:       list.New(),
		b2:       list.New(),
		entries:  make(map[pageKey]*arcEntry),
		ra:       newTracker(),
		metrics:  metrics,
	}, nil
}

// GetPage returns a copy of the cached page and promotes it to the
// frequent list.
func (c *ARC) GetPage(file store.FileID, index uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := pageKey{file, index}
	e, ok := c.entries[key]
	if !ok || e.data == nil {
		c.misses++
		recordMiss(c.metrics)
		return nil, false
	}

	c.promote(key, e)
	c.hits++
	recordHit(c.metrics)

	out := make([]byte, c.pageSize)
	copy(out, e.data)
	return out, true
}

// PutPage inserts or replaces a page, running the ARC admission and
// replacement rules for new keys.
func (c *ARC) PutPage(file store.FileID, index uint64, data []byte, dirty bool) error {
	if len(data) > c.pageSize {
		return ErrPageTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := pageKey{file, index}
	e, ok := c.entries[key]

	switch {
	case ok && e.data != nil:
		// Resident: replace the data and promote.
		c.fillEntry(e, data, dirty)
		c.promote(key, e)

	case ok && e.list == c.b1:
		// Ghost hit on B1: the workload favors recency, grow T1's target.
		c.p = min(c.p+c.adaptDelta(c.b1, c.b2), c.capacity)
		c.removeEntry(key, e)
		c.replace(key)
		c.insert(key, c.t2, data, dirty)

	case ok && e.list == c.b2:
		// Ghost hit on B2: the workload favors frequency, shrink T1's target.
		c.p = max(c.p-c.adaptDelta(c.b2, c.b1), 0)
		c.removeEntry(key, e)
		c.replace(key)
		c.insert(key, c.t2, data, dirty)

	default:
		c.admitNew(key, data, dirty)
	}

	recordResident(c.metrics, c.residentLen())
	return nil
}

// adaptDelta returns the step to move p by on a ghost hit on fav.
func (c *ARC) adaptDelta(fav, other *list.List) int {
	if fav.Len() >= other.Len() || fav.Len() == 0 {
		return 1
	}
	return other.Len() / fav.Len()
}

// admitNew inserts a key seen for the first time (not even as a ghost).
func (c *ARC) admitNew(key pageKey, data []byte, dirty bool) {
	l1 := c.t1.Len() + c.b1.Len()

	if l1 == c.capacity {
		if c.t1.Len() < c.capacity {
			// B1 has entries: drop its oldest ghost and make room.
			c.dropOldest(c.b1)
			c.replace(key)
		} else {
			// T1 fills the whole of L1: evict its oldest outright.
			c.evictOldest(c.t1, nil)
		}
	} else {
		total := l1 + c.t2.Len() + c.b2.Len()
		if total >= 2*c.capacity {
			c.dropOldest(c.b2)
		}
		c.replace(key)
	}

	c.insert(key, c.t1, data, dirty)
}

// replace evicts one resident page to a ghost list, choosing T1 or T2
// according to the adaptive target p. No-op while the cache has spare
// capacity, so residents never drop below what the workload could hold.
func (c *ARC) replace(key pageKey) {
	if c.residentLen() < c.capacity {
		return
	}

	inB2 := false
	if e, ok := c.entries[key]; ok && e.list == c.b2 {
		inB2 = true
	}

	if c.t1.Len() > 0 && (c.t1.Len() > c.p || (inB2 && c.t1.Len() == c.p)) {
		c.evictOldest(c.t1, c.b1)
	} else if c.t2.Len() > 0 {
		c.evictOldest(c.t2, c.b2)
	} else if c.t1.Len() > 0 {
		c.evictOldest(c.t1, c.b1)
	}
}

// evictOldest drops the oldest resident of src. When ghosts is non-nil the
// key is remembered there, with the ghost list capped at capacity.
func (c *ARC) evictOldest(src *list.List, ghosts *list.List) {
	front := src.Front()
	if front == nil {
		return
	}
	key := front.Value.(pageKey)
	e := c.entries[key]

	src.Remove(front)
	if e.dirt {
		c.dirty--
	}
	c.evictions++
	recordEviction(c.metrics)

	if ghosts == nil {
		delete(c.entries, key)
		return
	}

	e.data = nil
	e.dirt = false
	e.list = ghosts
	e.elem = ghosts.PushBack(key)

	if ghosts.Len() > c.capacity {
		c.dropOldest(ghosts)
	}
}

// dropOldest forgets the oldest ghost of l entirely.
func (c *ARC) dropOldest(l *list.List) {
	front := l.Front()
	if front == nil {
		return
	}
	key := front.Value.(pageKey)
	l.Remove(front)
	delete(c.entries, key)
}

// insert adds a resident entry at the MRU end of dst.
func (c *ARC) insert(key pageKey, dst *list.List, data []byte, dirty bool) {
	e := &arcEntry{list: dst}
	c.fillEntry(e, data, dirty)
	e.elem = dst.PushBack(key)
	c.entries[key] = e
}

// fillEntry copies data into the entry, zero-padding to the page size.
func (c *ARC) fillEntry(e *arcEntry, data []byte, dirty bool) {
	if e.data == nil {
		e.data = make([]byte, c.pageSize)
	}
	n := copy(e.data, data)
	clear(e.data[n:])

	if e.dirt != dirty {
		if dirty {
			c.dirty++
		} else {
			c.dirty--
		}
		e.dirt = dirty
	}
}

// promote moves a resident entry to the MRU end of T2.
func (c *ARC) promote(key pageKey, e *arcEntry) {
	e.list.Remove(e.elem)
	e.list = c.t2
	e.elem = c.t2.PushBack(key)
}

// removeEntry unlinks an entry from whatever list holds it.
func (c *ARC) removeEntry(key pageKey, e *arcEntry) {
	e.list.Remove(e.elem)
	if e.dirt {
		c.dirty--
	}
	delete(c.entries, key)
}

// UpdatePage patches bytes into a resident page without recency or counter
// side effects.
func (c *ARC) UpdatePage(file store.FileID, index uint64, offset int, data []byte) bool {
	if offset < 0 || offset+len(data) > c.pageSize {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[pageKey{file, index}]
	if !ok || e.data == nil {
		return false
	}
	copy(e.data[offset:], data)
	return true
}

// Contains reports residency without touching recency or counters.
func (c *ARC) Contains(file store.FileID, index uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[pageKey{file, index}]
	return ok && e.data != nil
}

// InvalidateFile drops every entry (resident or ghost) of the file along
// with its access pattern state. Idempotent.
func (c *ARC) InvalidateFile(file store.FileID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if key.file == file {
			c.removeEntry(key, e)
		}
	}
	c.ra.forget(file)
	recordResident(c.metrics, c.residentLen())
}

// InvalidatePage drops a single entry if present. Idempotent.
func (c *ARC) InvalidatePage(file store.FileID, index uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := pageKey{file, index}
	if e, ok := c.entries[key]; ok {
		c.removeEntry(key, e)
		recordResident(c.metrics, c.residentLen())
	}
}

// Observe records an access covering [firstPage, lastPage] and returns the
// classified pattern for the file.
func (c *ARC) Observe(file store.FileID, firstPage, lastPage uint64) AccessPattern {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ra.observe(file, firstPage, lastPage)
}

// ReadaheadWindow returns the suggested read window for the file, in pages.
func (c *ARC) ReadaheadWindow(file store.FileID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ra.window(file)
}

// PageSize returns the fixed page size in bytes.
func (c *ARC) PageSize() int {
	return c.pageSize
}

// HitRate returns hits / (hits + misses), or 0 before any access.
func (c *ARC) HitRate() float64 {
	return c.Stats().HitRate()
}

// Stats returns a snapshot of the cache counters.
func (c *ARC) Stats() Stats {
	return c.DetailedStats().Stats
}

// DetailedStats returns the counters plus the internal ARC list sizes.
func (c *ARC) DetailedStats() ARCStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ARCStats{
		Stats: Stats{
			Hits:      c.hits,
			Misses:    c.misses,
			Evictions: c.evictions,
			Resident:  c.residentLen(),
			Dirty:     c.dirty,
		},
		T1: c.t1.Len(),
		T2: c.t2.Len(),
		B1: c.b1.Len(),
		B2: c.b2.Len(),
		P:  c.p,
	}
}

// Len returns the number of resident pages.
func (c *ARC) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.residentLen()
}

func (c *ARC) residentLen() int {
	return c.t1.Len() + c.t2.Len()
}
