package notify

import (
	"errors"
	"sync"

	"github.com/unfound-os/unfoundfs/internal/logger"
)

// DefaultCapacity is the queue capacity used when the configuration
// does not override it.
const DefaultCapacity = 1024

var ErrZeroCapacity = errors.New("notify: queue capacity must be positive")

// Metrics receives counters from a Queue. Implementations must be safe
// for concurrent use. A nil Metrics disables reporting.
type Metrics interface {
	RecordTriggered()
	RecordDropped()
	RecordPending(count int)
}

// Queue is a bounded FIFO of file events. Producers never block: when
// the queue is full, Trigger drops the oldest pending event to make
// room for the new one.
type Queue struct {
	mu      sync.Mutex
	buf     []Event
	head    int // index of the oldest event
	size    int
	dropped uint64

	metrics Metrics
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int, metrics Metrics) (*Queue, error) {
	if capacity <= 0 {
		return nil, ErrZeroCapacity
	}
	return &Queue{
		buf:     make([]Event, capacity),
		metrics: metrics,
	}, nil
}

// Trigger appends an event, evicting the oldest pending event if the
// queue is full. It never fails and never blocks on a consumer.
func (q *Queue) Trigger(ev Event) {
	q.mu.Lock()
	if q.size == len(q.buf) {
		// Full: drop the oldest so the newest always fits.
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.dropped++
		q.recordDropped()
	}
	q.buf[(q.head+q.size)%len(q.buf)] = ev
	q.size++
	pending := q.size
	q.mu.Unlock()

	q.recordTriggered()
	q.recordPending(pending)
	logger.Debug("file event", "type", ev.Type.String(), "path", ev.Path)
}

// ReadEvents removes and returns up to max pending events in arrival
// order. It returns immediately; an empty queue yields an empty slice.
func (q *Queue) ReadEvents(max int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := max
	if n > q.size {
		n = q.size
	}
	if n <= 0 {
		return nil
	}

	out := make([]Event, n)
	for i := range out {
		out[i] = q.buf[q.head]
		q.buf[q.head] = Event{} // release the path string
		q.head = (q.head + 1) % len(q.buf)
	}
	q.size -= n
	q.recordPending(q.size)
	return out
}

// PendingCount reports the number of events waiting to be read.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Dropped reports how many events have been discarded due to overflow
// since the queue was created.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Capacity reports the maximum number of pending events.
func (q *Queue) Capacity() int {
	return len(q.buf)
}

// Clear discards all pending events.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.buf {
		q.buf[i] = Event{}
	}
	q.head = 0
	q.size = 0
	q.recordPending(0)
}

func (q *Queue) recordTriggered() {
	if q.metrics != nil {
		q.metrics.RecordTriggered()
	}
}

func (q *Queue) recordDropped() {
	if q.metrics != nil {
		q.metrics.RecordDropped()
	}
}

func (q *Queue) recordPending(count int) {
	if q.metrics != nil {
		q.metrics.RecordPending(count)
	}
}
