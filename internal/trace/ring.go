package trace

import (
	"io"
	"sync"
)

// RingTracer holds the most recent events in memory. When a run fails the
// CLI dumps it, which shows the interrupts and polls that led up to the
// failure without streaming every event during normal runs.
type RingTracer struct {
	level Level

	mu      sync.RWMutex
	slots   []Event
	written uint64 // total events stored; slot = written % len(slots)
}

// NewRingTracer returns a ring keeping the last size events at level.
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingTracer{level: level, slots: make([]Event, size)}
}

// Emit stores a copy of ev, overwriting the oldest event once full.
func (t *RingTracer) Emit(ev *Event) {
	if ev == nil || !t.level.ShouldEmit(ev.Kind, ev.Scope) {
		return
	}
	stored := *ev
	stored.Seq = NextSeq()

	t.mu.Lock()
	t.slots[t.written%uint64(len(t.slots))] = stored
	t.written++
	t.mu.Unlock()
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	size := uint64(len(t.slots))
	if t.written <= size {
		return append([]Event(nil), t.slots[:t.written]...)
	}
	start := t.written % size
	out := make([]Event, 0, size)
	out = append(out, t.slots[start:]...)
	return append(out, t.slots[:start]...)
}

// Dump writes the snapshot to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }
func (t *RingTracer) Close() error { return nil }
func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
