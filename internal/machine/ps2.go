package machine

import (
	"context"
	"sync/atomic"
)

// DefaultInputBuffer is how many scancodes the controller holds before
// Inject blocks.
const DefaultInputBuffer = 256

// PS2 models the keyboard controller: scancodes typed on the keyboard wait
// in its input buffer, and the one being delivered sits in the data port.
type PS2 struct {
	input    chan byte
	data     atomic.Uint32
	injected atomic.Uint64
}

// NewPS2 returns a controller with an input buffer of size n.
func NewPS2(n int) *PS2 {
	if n <= 0 {
		n = DefaultInputBuffer
	}
	return &PS2{input: make(chan byte, n)}
}

// Inject types one scancode, blocking while the input buffer is full.
func (k *PS2) Inject(ctx context.Context, code byte) error {
	select {
	case k.input <- code:
		k.injected.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryInject types one scancode unless the input buffer is full.
func (k *PS2) TryInject(code byte) bool {
	select {
	case k.input <- code:
		k.injected.Add(1)
		return true
	default:
		return false
	}
}

// Pending returns how many scancodes wait in the input buffer.
func (k *PS2) Pending() int {
	return len(k.input)
}

// Injected returns how many scancodes were typed so far.
func (k *PS2) Injected() uint64 {
	return k.injected.Load()
}

func (k *PS2) latch(code byte) {
	k.data.Store(uint32(code))
}

func (k *PS2) readData() byte {
	return byte(k.data.Load()) //nolint:gosec // only bytes are latched
}
