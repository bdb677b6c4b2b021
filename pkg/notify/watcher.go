package notify

import (
	"errors"
	"strings"
	"sync"

	"github.com/unfound-os/unfoundfs/internal/logger"
)

var ErrUnknownWatch = errors.New("notify: unknown watch descriptor")

// WatchDescriptor identifies a registered watch.
type WatchDescriptor int32

type watchEntry struct {
	path string
	mask EventType
}

// Watcher filters events against a set of registered path watches.
// A watch matches an event when the event path starts with the watch
// path and the event type is set in the watch mask.
//
// With no watches registered the watcher is transparent: every event
// matches. This keeps the global event stream usable without any
// explicit registration.
type Watcher struct {
	mu      sync.RWMutex
	watches map[WatchDescriptor]watchEntry
	nextWD  WatchDescriptor
}

func NewWatcher() *Watcher {
	return &Watcher{
		watches: make(map[WatchDescriptor]watchEntry),
		nextWD:  1,
	}
}

// AddWatch registers a path prefix with an event mask and returns the
// descriptor identifying the watch.
func (w *Watcher) AddWatch(path string, mask EventType) WatchDescriptor {
	w.mu.Lock()
	defer w.mu.Unlock()

	wd := w.nextWD
	w.nextWD++
	w.watches[wd] = watchEntry{path: path, mask: mask}

	logger.Info("watch added", "wd", int32(wd), "path", path, "mask", uint32(mask))
	return wd
}

// RemoveWatch unregisters a watch. It returns ErrUnknownWatch if the
// descriptor was never issued or has already been removed.
func (w *Watcher) RemoveWatch(wd WatchDescriptor) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watches[wd]; !ok {
		return ErrUnknownWatch
	}
	delete(w.watches, wd)
	logger.Info("watch removed", "wd", int32(wd))
	return nil
}

// Matches reports whether the event passes the registered watches.
func (w *Watcher) Matches(ev Event) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.watches) == 0 {
		return true
	}
	for _, entry := range w.watches {
		if strings.HasPrefix(ev.Path, entry.path) && entry.mask&ev.Type != 0 {
			return true
		}
	}
	return false
}

// Filter returns the events that pass the registered watches. The
// input slice is filtered in place.
func (w *Watcher) Filter(events []Event) []Event {
	w.mu.RLock()
	transparent := len(w.watches) == 0
	w.mu.RUnlock()
	if transparent {
		return events
	}

	kept := events[:0]
	for _, ev := range events {
		if w.Matches(ev) {
			kept = append(kept, ev)
		}
	}
	return kept
}

// WatchCount reports the number of registered watches.
func (w *Watcher) WatchCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.watches)
}
