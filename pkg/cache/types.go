// Package cache implements page-granular caching of file data.
//
// The cache sits between the VFS layer and the byte store: reads are served
// from resident pages when possible, and misses are loaded by the caller and
// inserted back. Pages are fixed-size and keyed by (FileID, page index).
//
// Two replacement policies are provided:
//   - PageCache: strict LRU over a preallocated frame arena
//   - ARC: adaptive replacement (recency + frequency with ghost lists)
//
// Both policies track per-file access patterns so the layer above can decide
// how far to read ahead.
//
// Thread Safety:
// All exported methods are safe for concurrent use. Each public operation is
// atomic as a whole; partial eviction states are never observable.
package cache

import (
	"errors"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 4096

var (
	// ErrZeroCapacity is returned when constructing a cache with no room
	// for even a single page.
	ErrZeroCapacity = errors.New("cache: capacity must be at least one page")

	// ErrInvalidPageSize is returned for a non-positive page size.
	ErrInvalidPageSize = errors.New("cache: page size must be positive")

	// ErrPageTooLarge is returned by PutPage when data exceeds the page size.
	ErrPageTooLarge = errors.New("cache: data exceeds page size")
)

// pageKey identifies a cached page.
type pageKey struct {
	file  store.FileID
	index uint64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Resident  int
	Dirty     int
}

// HitRate returns hits / (hits + misses), or 0 before any access.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Pages is the page cache contract consumed by the VFS layer.
//
// GetPage and PutPage operate on copies: the cache never aliases its page
// buffers to callers.
type Pages interface {
	// GetPage returns a copy of the cached page and refreshes its recency.
	// The second return is false on a miss; the caller is expected to load
	// the page from the byte store and insert it with PutPage.
	GetPage(file store.FileID, index uint64) ([]byte, bool)

	// PutPage inserts or replaces a page, evicting if at capacity and the
	// key is new. Data shorter than the page size is zero-padded; data
	// longer than the page size is an error. The dirty flag records pages
	// holding data the store does not have yet; under the engine's
	// write-through policy it is always false.
	PutPage(file store.FileID, index uint64, data []byte, dirty bool) error

	// UpdatePage patches bytes into a resident page at the given offset
	// within the page, without touching recency or hit/miss accounting.
	// Returns false if the page is not resident.
	UpdatePage(file store.FileID, index uint64, offset int, data []byte) bool

	// Contains reports residency without touching recency or counters.
	Contains(file store.FileID, index uint64) bool

	// InvalidateFile drops every resident page of the file along with its
	// access-pattern state. Invalidating an unknown file is a no-op.
	InvalidateFile(file store.FileID)

	// InvalidatePage drops a single page if resident.
	InvalidatePage(file store.FileID, index uint64)

	// Observe records an access covering [firstPage, lastPage] and returns
	// the classified pattern for the file.
	Observe(file store.FileID, firstPage, lastPage uint64) AccessPattern

	// ReadaheadWindow returns the total read window, in pages, suggested
	// for the file's current access pattern (including the requested page).
	ReadaheadWindow(file store.FileID) int

	// PageSize returns the fixed page size in bytes.
	PageSize() int

	// HitRate returns hits / (hits + misses), or 0 before any access.
	HitRate() float64

	// Stats returns a snapshot of the cache counters.
	Stats() Stats

	// Len returns the number of resident pages.
	Len() int
}

// Metrics provides observability hooks for cache operations.
//
// Implementations can export these to Prometheus or keep in-memory counters
// for tests. A nil Metrics disables collection with zero overhead.
type Metrics interface {
	// RecordHit records a page served from the cache
	RecordHit()

	// RecordMiss records a page that had to be loaded from the store
	RecordMiss()

	// RecordEviction records a page evicted to admit another
	RecordEviction()

	// RecordResident records the current resident page count
	RecordResident(count int)
}

func recordHit(m Metrics) {
	if m != nil {
		m.RecordHit()
	}
}

func recordMiss(m Metrics) {
	if m != nil {
		m.RecordMiss()
	}
}

func recordEviction(m Metrics) {
	if m != nil {
		m.RecordEviction()
	}
}

func recordResident(m Metrics, count int) {
	if m != nil {
		m.RecordResident(count)
	}
}
