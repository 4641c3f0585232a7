package machine

import (
	"context"
	"sync"
	"sync/atomic"
)

// CPU models the local interrupt flag and the halt instruction of a single
// core.
//
// The interrupt flag is a gate: interrupt delivery has to pass it, and the
// kernel's main context holds it while interrupts are disabled. A halted CPU
// resumes after the next delivered interrupt (or a Kick).
//
// Every time the main context sets the flag it counts a step. The interrupt
// controller can wait for a step so that the main context runs between two
// deliveries, as it would after an iret.
type CPU struct {
	gate    sync.Mutex
	enabled atomic.Bool
	wake    chan struct{}
	halted  atomic.Bool
	halts   atomic.Uint64
	steps   atomic.Uint64
	stepped chan struct{}
}

// NewCPU returns a CPU with interrupts enabled.
func NewCPU() *CPU {
	c := &CPU{
		wake:    make(chan struct{}, 1),
		stepped: make(chan struct{}, 1),
	}
	c.enabled.Store(true)
	return c
}

// DisableInterrupts clears the interrupt flag. A handler that is already
// running finishes first; pending interrupts wait for the flag to be set.
// Only the kernel's main context may call it.
func (c *CPU) DisableInterrupts() {
	if !c.enabled.Load() {
		return
	}
	c.gate.Lock()
	c.enabled.Store(false)
}

// EnableInterrupts sets the interrupt flag.
func (c *CPU) EnableInterrupts() {
	if c.enabled.Load() {
		return
	}
	c.enabled.Store(true)
	c.gate.Unlock()
	c.steps.Add(1)
	select {
	case c.stepped <- struct{}{}:
	default:
	}
}

// EnableAndHalt sets the interrupt flag and waits for an interrupt. An
// interrupt delivered between the two steps still ends the wait because the
// wake signal is latched.
func (c *CPU) EnableAndHalt() {
	c.EnableInterrupts()
	c.halts.Add(1)
	c.halted.Store(true)
	<-c.wake
	c.halted.Store(false)
}

// InterruptsEnabled reports the interrupt flag as seen by the main context.
func (c *CPU) InterruptsEnabled() bool {
	return c.enabled.Load()
}

// Kick ends a halt without delivering an interrupt.
func (c *CPU) Kick() {
	c.signal()
}

// Halted reports whether the CPU is currently halted.
func (c *CPU) Halted() bool {
	return c.halted.Load()
}

// Steps returns how many times the main context has set the interrupt flag.
func (c *CPU) Steps() uint64 {
	return c.steps.Load()
}

// waitStep blocks until the main context has stepped past since.
func (c *CPU) waitStep(ctx context.Context, since uint64) error {
	for c.steps.Load() <= since {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stepped:
		}
	}
	return nil
}

// Halts returns the number of halts so far.
func (c *CPU) Halts() uint64 {
	return c.halts.Load()
}

// interrupt runs h as an interrupt handler: it waits until interrupts are
// enabled, runs h with the flag held, and then wakes a halted CPU.
func (c *CPU) interrupt(h func()) {
	c.gate.Lock()
	h()
	c.gate.Unlock()
	c.signal()
}

func (c *CPU) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
