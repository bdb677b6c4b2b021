// Package notify implements file change notification: a bounded lossy
// event queue fed by the VFS layer, and an optional watch registry for
// filtering events by path prefix and event mask.
//
// The queue is deliberately lossy. When it is full the oldest pending
// event is dropped to make room, so a slow consumer degrades gracefully
// instead of blocking writers or growing without bound.
package notify

import (
	"fmt"
	"time"

	"github.com/unfound-os/unfoundfs/pkg/store"
)

// EventType identifies the kind of file operation an event describes.
// The values are single bits so they compose into watch masks.
type EventType uint32

const (
	Create EventType = 1 << iota
	Modify
	Delete
	Access

	// AllEvents matches every event type in a watch mask.
	AllEvents = Create | Modify | Delete | Access
)

func (t EventType) String() string {
	switch t {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	case Access:
		return "access"
	default:
		return fmt.Sprintf("EventType(%d)", uint32(t))
	}
}

// Event records a single file operation.
type Event struct {
	Type      EventType
	File      store.FileID
	Path      string
	Timestamp time.Time
}

// NewEvent builds an event stamped with the current time.
func NewEvent(typ EventType, file store.FileID, path string) Event {
	return Event{
		Type:      typ,
		File:      file,
		Path:      path,
		Timestamp: time.Now(),
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.Path)
}
