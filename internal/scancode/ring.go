package scancode

import (
	"fmt"
	"strings"
	"sync/atomic"

	"fortio.org/safecast"
)

// Overflow selects what a full ring does with an incoming byte.
type Overflow uint8

const (
	// DropNewest keeps the queued bytes and discards the incoming one.
	DropNewest Overflow = iota
	// DropOldest discards the oldest queued byte to make room.
	DropOldest
)

// String returns the string representation of Overflow.
func (o Overflow) String() string {
	switch o {
	case DropNewest:
		return "drop-newest"
	case DropOldest:
		return "drop-oldest"
	default:
		return "unknown"
	}
}

// ParseOverflow converts a string to Overflow.
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(s) {
	case "", "drop-newest", "newest":
		return DropNewest, nil
	case "drop-oldest", "oldest":
		return DropOldest, nil
	default:
		return DropNewest, fmt.Errorf("invalid overflow policy: %q (expected: drop-newest|drop-oldest)", s)
	}
}

// ring is a fixed-capacity byte FIFO with one producer and one consumer.
// head is advanced by the consumer, and also by the producer when it evicts
// under DropOldest, so both sides move it with CAS. Slots are atomic so an
// evicting producer never races a consumer reading the same slot.
type ring struct {
	slots []atomic.Uint32
	size  uint64
	head  atomic.Uint64
	tail  atomic.Uint64
}

func newRing(capacity int) (*ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("scancode queue capacity must be positive, got %d", capacity)
	}
	size, err := safecast.Conv[uint64](capacity)
	if err != nil {
		return nil, fmt.Errorf("scancode queue capacity: %w", err)
	}
	return &ring{
		slots: make([]atomic.Uint32, capacity),
		size:  size,
	}, nil
}

// push appends b. evicted is true when an old byte was discarded to make
// room; ok is false when b itself was discarded.
func (r *ring) push(b byte, policy Overflow) (ok, evicted bool) {
	tail := r.tail.Load()
	for tail-r.head.Load() >= r.size {
		if policy != DropOldest {
			return false, false
		}
		head := r.head.Load()
		if tail-head < r.size {
			// The consumer made room meanwhile.
			break
		}
		if r.head.CompareAndSwap(head, head+1) {
			evicted = true
		}
	}
	r.slots[tail%r.size].Store(uint32(b))
	r.tail.Store(tail + 1)
	return true, evicted
}

func (r *ring) pop() (byte, bool) {
	for {
		head := r.head.Load()
		if head == r.tail.Load() {
			return 0, false
		}
		b := byte(r.slots[head%r.size].Load()) //nolint:gosec // slots only hold bytes
		if r.head.CompareAndSwap(head, head+1) {
			return b, true
		}
	}
}

func (r *ring) len() int {
	n, err := safecast.Conv[int](r.tail.Load() - r.head.Load())
	if err != nil {
		return 0
	}
	return n
}

func (r *ring) capacity() int {
	return len(r.slots)
}
