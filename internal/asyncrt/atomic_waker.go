package asyncrt

import "sync/atomic"

const (
	slotWaiting     uint32 = 0
	slotRegistering uint32 = 1
	slotWaking      uint32 = 2
)

// AtomicWaker is a single waker slot shared between one consumer that
// registers and any number of producers that wake, including interrupt
// handlers. Neither side blocks or allocates.
//
// The zero value is an empty slot.
type AtomicWaker struct {
	state atomic.Uint32
	waker *Waker
}

// Register stores w, replacing any previously registered waker. If a wake
// races with the registration, w is woken immediately instead of being lost.
func (a *AtomicWaker) Register(w *Waker) {
	switch {
	case a.state.CompareAndSwap(slotWaiting, slotRegistering):
		a.waker = w
		if a.state.CompareAndSwap(slotRegistering, slotWaiting) {
			return
		}
		// A producer set slotWaking while we held the slot: deliver its wake.
		pending := a.waker
		a.waker = nil
		a.state.Store(slotWaiting)
		pending.Wake()
	case a.state.Load()&slotWaking != 0:
		// A wake is in flight and may not see w.
		w.Wake()
	default:
		// Concurrent Register calls mean two consumers share the slot.
	}
}

// Take removes and returns the registered waker, or nil.
func (a *AtomicWaker) Take() *Waker {
	if a.state.Or(slotWaking) != slotWaiting {
		return nil
	}
	w := a.waker
	a.waker = nil
	a.state.And(^slotWaking)
	return w
}

// Wake takes the registered waker, if any, and invokes it.
func (a *AtomicWaker) Wake() {
	if w := a.Take(); w != nil {
		w.Wake()
	}
}
