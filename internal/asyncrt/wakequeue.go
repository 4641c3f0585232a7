package asyncrt

import (
	"errors"
	"fmt"
	"sync/atomic"

	"fortio.org/safecast"
)

// DefaultWakeQueueCapacity matches the number of task slots a freshly booted
// kernel is expected to need.
const DefaultWakeQueueCapacity = 100

// ErrWakeQueueFull is returned when a task identity cannot be queued.
var ErrWakeQueueFull = errors.New("wake queue full")

// wakeCell is one slot of the ring. seq tells producers and the consumer
// whose turn the slot is; id is only touched by the side that owns the turn.
type wakeCell struct {
	seq atomic.Uint64
	id  TaskID
}

// WakeQueue is a bounded FIFO of ready task identities.
//
// The storage is allocated once by NewWakeQueue. Push and Pop never block and
// never allocate, so Push may be called from interrupt context while the
// executor is between Pop calls.
type WakeQueue struct {
	cells   []wakeCell
	size    uint64
	limit   uint64
	enq     atomic.Uint64
	deq     atomic.Uint64
	dropped atomic.Uint64
}

// minWakeCells is the smallest ring the sequence scheme can tell apart:
// with one cell a published slot looks free to the next producer.
const minWakeCells = 2

// NewWakeQueue allocates a queue holding up to capacity identities.
func NewWakeQueue(capacity int) (*WakeQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("wake queue capacity must be positive, got %d", capacity)
	}
	limit, err := safecast.Conv[uint64](capacity)
	if err != nil {
		return nil, fmt.Errorf("wake queue capacity: %w", err)
	}
	cells := max(capacity, minWakeCells)
	q := &WakeQueue{
		cells: make([]wakeCell, cells),
		size:  uint64(cells), //nolint:gosec // cells >= capacity > 0
		limit: limit,
	}
	for i := range q.cells {
		q.cells[i].seq.Store(uint64(i)) //nolint:gosec // i < len(cells)
	}
	return q, nil
}

// Push appends id. It returns false without modifying the queue when the
// queue is full.
func (q *WakeQueue) Push(id TaskID) bool {
	if q == nil {
		return false
	}
	pos := q.enq.Load()
	for {
		cell := &q.cells[pos%q.size]
		seq := cell.seq.Load()
		diff := int64(seq - pos) //nolint:gosec // wrapping difference is intended
		switch {
		case diff == 0:
			if int64(pos-q.deq.Load()) >= int64(q.limit) { //nolint:gosec // both stay far below 2^63
				q.dropped.Add(1)
				return false
			}
			if q.enq.CompareAndSwap(pos, pos+1) {
				cell.id = id
				cell.seq.Store(pos + 1)
				return true
			}
			pos = q.enq.Load()
		case diff < 0:
			q.dropped.Add(1)
			return false
		default:
			pos = q.enq.Load()
		}
	}
}

// Pop removes the oldest identity. ok is false when nothing is ready.
func (q *WakeQueue) Pop() (id TaskID, ok bool) {
	if q == nil {
		return 0, false
	}
	pos := q.deq.Load()
	for {
		cell := &q.cells[pos%q.size]
		seq := cell.seq.Load()
		diff := int64(seq - (pos + 1)) //nolint:gosec // wrapping difference is intended
		switch {
		case diff == 0:
			if q.deq.CompareAndSwap(pos, pos+1) {
				id = cell.id
				cell.seq.Store(pos + q.size)
				return id, true
			}
			pos = q.deq.Load()
		case diff < 0:
			return 0, false
		default:
			pos = q.deq.Load()
		}
	}
}

// Len reports the number of queued identities, including pushes that are
// still being published.
func (q *WakeQueue) Len() int {
	if q == nil {
		return 0
	}
	deq := q.deq.Load()
	enq := q.enq.Load()
	if enq <= deq {
		return 0
	}
	n, err := safecast.Conv[int](min(enq-deq, q.limit))
	if err != nil {
		return q.Cap()
	}
	return n
}

// Empty reports whether no identity is queued.
func (q *WakeQueue) Empty() bool {
	return q.Len() == 0
}

// Cap returns the fixed capacity.
func (q *WakeQueue) Cap() int {
	if q == nil {
		return 0
	}
	return int(q.limit) //nolint:gosec // limit came from an int
}

// Dropped returns how many pushes were refused because the queue was full.
func (q *WakeQueue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
