package cache

import "github.com/unfound-os/unfoundfs/pkg/store"

// AccessPattern classifies how a file is being read.
type AccessPattern int

const (
	// PatternUnknown means too little history to classify.
	PatternUnknown AccessPattern = iota

	// PatternSequential means the current request starts exactly one page
	// after the previous request ended.
	PatternSequential

	// PatternRandom means the request jumped further than
	// randomJumpThreshold pages from the expected next page.
	PatternRandom
)

// String returns the string representation of the pattern.
func (p AccessPattern) String() string {
	switch p {
	case PatternSequential:
		return "Sequential"
	case PatternRandom:
		return "Random"
	default:
		return "Unknown"
	}
}

// Readahead policy constants. A window is the total number of pages worth
// reading for one request, including the requested page itself.
const (
	// randomJumpThreshold is the page distance beyond which an access is
	// considered random rather than a local seek.
	randomJumpThreshold = 4

	windowSequential = 8
	windowRandom     = 1
	windowUnknown    = 2
)

// fileAccess holds the per-file classification state.
type fileAccess struct {
	lastEnd uint64 // ending page index of the previous request
	pattern AccessPattern
}

// tracker re-evaluates the access pattern of each file on every read.
// Callers hold the owning cache's lock; tracker itself is not synchronized.
type tracker struct {
	files map[store.FileID]*fileAccess
}

func newTracker() *tracker {
	return &tracker{files: make(map[store.FileID]*fileAccess)}
}

// observe records an access covering [first, last] and returns the pattern
// classified for this access.
func (t *tracker) observe(file store.FileID, first, last uint64) AccessPattern {
	state, ok := t.files[file]
	if !ok {
		t.files[file] = &fileAccess{lastEnd: last, pattern: PatternUnknown}
		return PatternUnknown
	}

	expected := state.lastEnd + 1
	switch {
	case first == expected:
		state.pattern = PatternSequential
	case distance(first, expected) > randomJumpThreshold:
		state.pattern = PatternRandom
	default:
		// Local seek (re-read or small jump): not enough signal either way.
		state.pattern = PatternUnknown
	}

	state.lastEnd = last
	return state.pattern
}

// window returns the suggested read window for the file's current pattern.
func (t *tracker) window(file store.FileID) int {
	state, ok := t.files[file]
	if !ok {
		return windowUnknown
	}
	switch state.pattern {
	case PatternSequential:
		return windowSequential
	case PatternRandom:
		return windowRandom
	default:
		return windowUnknown
	}
}

// forget drops the classification state for a file.
func (t *tracker) forget(file store.FileID) {
	delete(t.files, file)
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
