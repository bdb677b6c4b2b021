package notify

import (
	"fmt"
	"testing"
)

func newTestQueue(t *testing.T, capacity int) *Queue {
	t.Helper()
	q, err := NewQueue(capacity, nil)
	if err != nil {
		t.Fatalf("NewQueue(%d) failed: %v", capacity, err)
	}
	return q
}

func TestQueueValidation(t *testing.T) {
	if _, err := NewQueue(0, nil); err != ErrZeroCapacity {
		t.Errorf("NewQueue(0) error = %v, want ErrZeroCapacity", err)
	}
	if _, err := NewQueue(-5, nil); err != ErrZeroCapacity {
		t.Errorf("NewQueue(-5) error = %v, want ErrZeroCapacity", err)
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := newTestQueue(t, 8)

	q.Trigger(NewEvent(Create, 1, "/a"))
	q.Trigger(NewEvent(Modify, 1, "/a"))
	q.Trigger(NewEvent(Delete, 1, "/a"))

	if got := q.PendingCount(); got != 3 {
		t.Fatalf("PendingCount = %d, want 3", got)
	}

	events := q.ReadEvents(10)
	if len(events) != 3 {
		t.Fatalf("ReadEvents returned %d events, want 3", len(events))
	}
	want := []EventType{Create, Modify, Delete}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Errorf("event %d type = %v, want %v", i, ev.Type, want[i])
		}
	}
	if got := q.PendingCount(); got != 0 {
		t.Errorf("PendingCount after drain = %d, want 0", got)
	}
}

func TestQueueReadEventsPartial(t *testing.T) {
	q := newTestQueue(t, 8)
	for i := 0; i < 5; i++ {
		q.Trigger(NewEvent(Modify, 1, fmt.Sprintf("/f%d", i)))
	}

	first := q.ReadEvents(2)
	if len(first) != 2 || first[0].Path != "/f0" || first[1].Path != "/f1" {
		t.Fatalf("first batch = %v", first)
	}
	rest := q.ReadEvents(10)
	if len(rest) != 3 || rest[0].Path != "/f2" {
		t.Fatalf("second batch = %v", rest)
	}
}

func TestQueueReadEventsEmpty(t *testing.T) {
	q := newTestQueue(t, 4)
	if events := q.ReadEvents(10); len(events) != 0 {
		t.Errorf("ReadEvents on empty queue = %v, want none", events)
	}
	if events := q.ReadEvents(0); len(events) != 0 {
		t.Errorf("ReadEvents(0) = %v, want none", events)
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	const capacity = 4
	q := newTestQueue(t, capacity)

	for i := 0; i < capacity+1; i++ {
		q.Trigger(NewEvent(Create, 1, fmt.Sprintf("/f%d", i)))
	}

	if got := q.PendingCount(); got != capacity {
		t.Fatalf("PendingCount = %d, want %d", got, capacity)
	}
	if got := q.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}

	// The retained events are the most recent capacity, still in order.
	events := q.ReadEvents(capacity)
	for i, ev := range events {
		want := fmt.Sprintf("/f%d", i+1)
		if ev.Path != want {
			t.Errorf("event %d path = %q, want %q", i, ev.Path, want)
		}
	}
}

func TestQueueOverflowSustained(t *testing.T) {
	const capacity = 4
	q := newTestQueue(t, capacity)

	for i := 0; i < 100; i++ {
		q.Trigger(NewEvent(Modify, 1, fmt.Sprintf("/f%d", i)))
		if got := q.PendingCount(); got > capacity {
			t.Fatalf("PendingCount = %d after %d triggers, exceeds capacity", got, i+1)
		}
	}
	if got := q.Dropped(); got != 100-capacity {
		t.Errorf("Dropped = %d, want %d", got, 100-capacity)
	}

	events := q.ReadEvents(capacity)
	if events[0].Path != "/f96" || events[capacity-1].Path != "/f99" {
		t.Errorf("retained window = %q..%q, want /f96../f99",
			events[0].Path, events[capacity-1].Path)
	}
}

func TestQueueClear(t *testing.T) {
	q := newTestQueue(t, 4)
	q.Trigger(NewEvent(Create, 1, "/a"))
	q.Trigger(NewEvent(Delete, 1, "/a"))

	q.Clear()

	if got := q.PendingCount(); got != 0 {
		t.Errorf("PendingCount after Clear = %d, want 0", got)
	}
	if events := q.ReadEvents(10); len(events) != 0 {
		t.Errorf("ReadEvents after Clear = %v, want none", events)
	}
}

func TestEventTypeString(t *testing.T) {
	cases := map[EventType]string{
		Create:        "create",
		Modify:        "modify",
		Delete:        "delete",
		Access:        "access",
		EventType(64): "EventType(64)",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("EventType(%d).String() = %q, want %q", uint32(typ), got, want)
		}
	}
}
