package asyncrt

import "sync/atomic"

// Waker states. A waker moves idle -> queued when it pushes its task,
// running -> notified when woken while its task is being polled, and ends in
// retired once the task completes.
const (
	wakeIdle uint32 = iota
	wakeQueued
	wakeRunning
	wakeNotified
	wakeRetired
)

// Waker is the capability "mark task ID ready". It holds the wake queue and
// the identity only, never the task itself.
//
// Wake is safe from interrupt context: it never blocks and never allocates.
// Waking the same task repeatedly before it is polled queues it once.
type Waker struct {
	id      TaskID
	queue   *WakeQueue
	state   atomic.Uint32
	dropped *atomic.Uint64
}

func newWaker(id TaskID, queue *WakeQueue) *Waker {
	return &Waker{id: id, queue: queue}
}

// ID returns the task identity the waker is bound to.
func (w *Waker) ID() TaskID {
	if w == nil {
		return 0
	}
	return w.id
}

// Clone returns an equivalent waker for the same task.
func (w *Waker) Clone() *Waker {
	return w
}

// Wake schedules the task for another poll.
func (w *Waker) Wake() {
	if w == nil {
		return
	}
	for {
		switch w.state.Load() {
		case wakeIdle:
			if !w.state.CompareAndSwap(wakeIdle, wakeQueued) {
				continue
			}
			if !w.queue.Push(w.id) {
				w.state.CompareAndSwap(wakeQueued, wakeIdle)
				w.countDrop()
			}
			return
		case wakeRunning:
			if w.state.CompareAndSwap(wakeRunning, wakeNotified) {
				return
			}
		default:
			return
		}
	}
}

// Retired reports whether the task behind the waker has completed.
func (w *Waker) Retired() bool {
	return w != nil && w.state.Load() == wakeRetired
}

func (w *Waker) beginPoll() {
	w.state.Store(wakeRunning)
}

// endPoll reports whether the task was woken during its own poll and must be
// queued again.
func (w *Waker) endPoll() bool {
	if w.state.CompareAndSwap(wakeRunning, wakeIdle) {
		return false
	}
	w.state.Store(wakeQueued)
	return true
}

func (w *Waker) requeueFailed() {
	w.state.CompareAndSwap(wakeQueued, wakeIdle)
	w.countDrop()
}

func (w *Waker) countDrop() {
	if w.dropped != nil {
		w.dropped.Add(1)
	}
}

func (w *Waker) retire() {
	w.state.Store(wakeRetired)
}

// wakerCache keeps one waker per live task so repeated suspensions reuse it.
type wakerCache struct {
	queue   *WakeQueue
	dropped *atomic.Uint64
	wakers  map[TaskID]*Waker
}

func newWakerCache(queue *WakeQueue, dropped *atomic.Uint64) *wakerCache {
	return &wakerCache{
		queue:   queue,
		dropped: dropped,
		wakers:  make(map[TaskID]*Waker),
	}
}

func (c *wakerCache) get(id TaskID) *Waker {
	if w, ok := c.wakers[id]; ok {
		return w
	}
	w := newWaker(id, c.queue)
	w.dropped = c.dropped
	c.wakers[id] = w
	return w
}

func (c *wakerCache) release(id TaskID) {
	w, ok := c.wakers[id]
	if !ok {
		return
	}
	w.retire()
	delete(c.wakers, id)
}

func (c *wakerCache) len() int {
	return len(c.wakers)
}
