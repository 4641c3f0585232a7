// Package machine is a hosted stand-in for the hardware the kernel boots on.
//
// It provides a CPU with an interrupt flag and halt, an interrupt controller
// that needs an end-of-interrupt per delivery, and a PS/2 keyboard controller
// whose data port holds the scancode being delivered. Machine.Run drives
// interrupt delivery next to the kernel's main loop.
package machine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"ember/internal/arch"
	"ember/internal/trace"
)

// Config configures a Machine.
type Config struct {
	// InputBuffer bounds the keyboard controller's input buffer.
	InputBuffer int
	// Paced holds each keyboard interrupt until the main context has set
	// the interrupt flag since the previous one. Only set it when the main
	// context drives the CPU, as the executor's idle loop does; otherwise
	// delivery stalls after the first interrupt.
	Paced  bool
	Tracer trace.Tracer
}

// Machine wires the simulated devices together.
type Machine struct {
	cpu    *CPU
	pic    *PIC
	kbd    *PS2
	paced  bool
	tracer trace.Tracer

	mu       sync.Mutex
	handlers [irqLines]arch.IRQHandler

	finished   atomic.Uint64
	delivered  atomic.Uint64
	unhandled  atomic.Uint64
	portWrites atomic.Uint64
}

// New builds a machine with interrupts enabled and no handlers installed.
func New(cfg Config) *Machine {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Machine{
		cpu:    NewCPU(),
		pic:    NewPIC(),
		kbd:    NewPS2(cfg.InputBuffer),
		paced:  cfg.Paced,
		tracer: tracer,
	}
}

// Hardware returns the collaborators the kernel is booted with.
func (m *Machine) Hardware() arch.Hardware {
	return arch.Hardware{
		CPU:   m.cpu,
		Ports: m,
		PIC:   m.pic,
		IDT:   m,
	}
}

// CPU returns the simulated CPU.
func (m *Machine) CPU() *CPU { return m.cpu }

// PIC returns the simulated interrupt controller.
func (m *Machine) PIC() *PIC { return m.pic }

// Keyboard returns the simulated keyboard controller.
func (m *Machine) Keyboard() *PS2 { return m.kbd }

// SetHandler implements arch.InterruptTable.
func (m *Machine) SetHandler(irq uint8, h arch.IRQHandler) {
	if int(irq) >= irqLines {
		return
	}
	m.mu.Lock()
	m.handlers[irq] = h
	m.mu.Unlock()
}

// Inb implements arch.Ports.
func (m *Machine) Inb(port uint16) byte {
	if port == arch.KeyboardDataPort {
		return m.kbd.readData()
	}
	return 0xFF
}

// Outb implements arch.Ports. Writes are accepted and ignored.
func (m *Machine) Outb(uint16, byte) {
	m.portWrites.Add(1)
}

// Type injects scancodes into the keyboard controller.
func (m *Machine) Type(ctx context.Context, codes ...byte) error {
	for _, code := range codes {
		if err := m.kbd.Inject(ctx, code); err != nil {
			return err
		}
	}
	return nil
}

// Settled reports whether every injected scancode has been delivered and
// acknowledged, or dropped for lack of a handler.
func (m *Machine) Settled() bool {
	return m.kbd.Pending() == 0 && m.finished.Load() >= m.kbd.Injected()
}

// Stats is a snapshot of machine counters.
type Stats struct {
	Injected  uint64
	Pending   int
	Delivered uint64
	Unhandled uint64
	EOIs      uint64
	Halts     uint64
	Halted    bool
}

// Stats returns a snapshot of the device counters.
func (m *Machine) Stats() Stats {
	return Stats{
		Injected:  m.kbd.Injected(),
		Pending:   m.kbd.Pending(),
		Delivered: m.delivered.Load(),
		Unhandled: m.unhandled.Load(),
		EOIs:      m.pic.EOIs(),
		Halts:     m.cpu.Halts(),
		Halted:    m.cpu.Halted(),
	}
}

// Run runs kernelMain alongside interrupt delivery until either returns or
// ctx ends. A kernel that stops because ctx ended is not an error.
func (m *Machine) Run(ctx context.Context, kernelMain func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.deliverKeyboard(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return kernelMain(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (m *Machine) handler(irq uint8) arch.IRQHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[irq]
}

// deliverKeyboard raises IRQ1 for every scancode in the controller's input
// buffer, one at a time, waiting for the end-of-interrupt in between. A paced
// machine also waits for the main context to step.
func (m *Machine) deliverKeyboard(ctx context.Context) error {
	for {
		var code byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case code = <-m.kbd.input:
		}
		m.kbd.latch(code)

		h := m.handler(arch.IRQKeyboard)
		if h == nil {
			m.unhandled.Add(1)
			m.finished.Add(1)
			trace.Warn(m.tracer, trace.ScopeIRQ, "irq_unhandled", "irq 1")
			continue
		}
		m.cpu.interrupt(h)
		steps := m.cpu.Steps()
		m.delivered.Add(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.pic.acknowledged(arch.IRQKeyboard):
		}
		m.finished.Add(1)
		if m.paced {
			if err := m.cpu.waitStep(ctx, steps); err != nil {
				return err
			}
		}
	}
}
