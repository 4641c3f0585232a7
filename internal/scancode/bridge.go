// Package scancode carries keyboard scancodes from the interrupt handler to
// the task that decodes them.
//
// The interrupt side calls Bridge.Push; the task side reads through the one
// Stream the bridge hands out. A byte is always published before the waiting
// task is woken, and the task registers its waker before its final emptiness
// check, so a byte can never arrive unseen while the task sleeps.
package scancode

import (
	"errors"
	"sync/atomic"

	"ember/internal/asyncrt"
)

// DefaultCapacity is the default number of buffered scancodes.
const DefaultCapacity = 100

// ErrStreamTaken is returned when a second consumer stream is requested.
var ErrStreamTaken = errors.New("scancode stream already taken")

// Config configures a Bridge.
type Config struct {
	Capacity int
	Overflow Overflow
	// OnDrop is called from interrupt context for every byte lost to a full
	// queue. It must not block.
	OnDrop func(b byte)
}

// Bridge is the interrupt-safe handoff between the keyboard interrupt
// handler and the keyboard task.
type Bridge struct {
	ring     *ring
	overflow Overflow
	onDrop   func(b byte)
	waker    asyncrt.AtomicWaker
	taken    atomic.Bool
	pushed   atomic.Uint64
	dropped  atomic.Uint64
}

// NewBridge allocates the scancode queue.
func NewBridge(cfg Config) (*Bridge, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	r, err := newRing(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	return &Bridge{
		ring:     r,
		overflow: cfg.Overflow,
		onDrop:   cfg.OnDrop,
	}, nil
}

// Push queues one scancode and wakes the waiting task. It is called from the
// keyboard interrupt handler only: it never blocks, never allocates and never
// retries.
func (b *Bridge) Push(code byte) {
	if b == nil {
		return
	}
	ok, evicted := b.ring.push(code, b.overflow)
	if ok {
		b.pushed.Add(1)
	}
	if !ok || evicted {
		b.dropped.Add(1)
		if b.onDrop != nil {
			b.onDrop(code)
		}
	}
	b.waker.Wake()
}

// Stream returns the consumer side. Only one stream exists per bridge.
func (b *Bridge) Stream() (*Stream, error) {
	if b == nil {
		return nil, errors.New("nil scancode bridge")
	}
	if !b.taken.CompareAndSwap(false, true) {
		return nil, ErrStreamTaken
	}
	return &Stream{bridge: b}, nil
}

// Len reports the number of buffered scancodes.
func (b *Bridge) Len() int {
	if b == nil {
		return 0
	}
	return b.ring.len()
}

// Cap returns the queue capacity.
func (b *Bridge) Cap() int {
	if b == nil {
		return 0
	}
	return b.ring.capacity()
}

// Pushed returns how many scancodes were accepted.
func (b *Bridge) Pushed() uint64 {
	if b == nil {
		return 0
	}
	return b.pushed.Load()
}

// Dropped returns how many scancodes were lost to a full queue.
func (b *Bridge) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}

// Overflow returns the configured overflow policy.
func (b *Bridge) Overflow() Overflow {
	if b == nil {
		return DropNewest
	}
	return b.overflow
}

// Stream is the task side of a Bridge.
type Stream struct {
	bridge *Bridge
}

// PollNext returns the next scancode, or Pending after registering the
// task's waker with the bridge.
func (s *Stream) PollNext(cx *asyncrt.Context) (byte, asyncrt.Poll) {
	if code, ok := s.bridge.ring.pop(); ok {
		return code, asyncrt.Ready
	}

	s.bridge.waker.Register(cx.Waker())

	// A byte may have landed between the first pop and the registration.
	if code, ok := s.bridge.ring.pop(); ok {
		s.bridge.waker.Take()
		return code, asyncrt.Ready
	}
	return 0, asyncrt.Pending
}
