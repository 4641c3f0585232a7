// Package kernel boots the executor on top of an arch.Hardware and wires the
// keyboard interrupt to the keyboard task.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"ember/internal/arch"
	"ember/internal/asyncrt"
	"ember/internal/config"
	"ember/internal/console"
	"ember/internal/observ"
	"ember/internal/pckbd"
	"ember/internal/scancode"
	"ember/internal/trace"
)

// ErrIncompleteHardware is returned by Boot when a collaborator is missing.
var ErrIncompleteHardware = errors.New("incomplete hardware")

// Console messages.
const (
	Banner          = "Hello World!"
	WarnQueueFull   = "WARNING: scancode queue full; dropping keyboard input"
	WarnQueueUninit = "WARNING: scancode queue uninitialized"
)

// Options selects queue sizes and keyboard behaviour.
type Options struct {
	WakeQueueCapacity int
	ScancodeCapacity  int
	Overflow          scancode.Overflow
	Layout            pckbd.Layout
	Control           pckbd.HandleControl
}

// DefaultOptions matches config.Default.
func DefaultOptions() Options {
	return Options{
		WakeQueueCapacity: asyncrt.DefaultWakeQueueCapacity,
		ScancodeCapacity:  scancode.DefaultCapacity,
		Overflow:          scancode.DropNewest,
		Layout:            pckbd.US104{},
		Control:           pckbd.Ignore,
	}
}

// OptionsFromConfig converts a loaded config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return DefaultOptions(), nil
	}
	var (
		opts Options
		err  error
	)
	if opts.WakeQueueCapacity, err = cfg.WakeQueueCapacity(); err != nil {
		return Options{}, err
	}
	if opts.ScancodeCapacity, err = cfg.ScancodeCapacity(); err != nil {
		return Options{}, err
	}
	if opts.Overflow, err = cfg.Overflow(); err != nil {
		return Options{}, err
	}
	if opts.Layout, err = cfg.Layout(); err != nil {
		return Options{}, err
	}
	if opts.Control, err = cfg.Control(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Kernel is a booted kernel, ready to run.
type Kernel struct {
	hw      arch.Hardware
	console console.Console
	tracer  trace.Tracer

	exec    *asyncrt.Executor
	bridge  atomic.Pointer[scancode.Bridge]
	printer *scancode.KeypressPrinter

	irqs   atomic.Uint64
	uninit atomic.Uint64
}

// Boot prints the banner, installs the keyboard interrupt handler and spawns
// the example task and the keyboard task. timer may be nil.
func Boot(opts Options, hw arch.Hardware, con console.Console, tracer trace.Tracer, timer *observ.Timer) (*Kernel, error) {
	if hw.CPU == nil || hw.Ports == nil || hw.PIC == nil || hw.IDT == nil {
		return nil, fmt.Errorf("boot: %w", ErrIncompleteHardware)
	}
	if con == nil {
		con = console.Discard
	}
	if tracer == nil {
		tracer = trace.Nop
	}
	k := &Kernel{hw: hw, console: con, tracer: tracer}

	span := trace.Begin(tracer, trace.ScopeKernel, "boot", 0)
	defer span.End("")

	if err := timer.Track("banner", func() error {
		_, err := io.WriteString(con, Banner+"\n")
		return err
	}); err != nil {
		return nil, fmt.Errorf("boot: banner: %w", err)
	}

	_ = timer.Track("interrupts", func() error {
		hw.IDT.SetHandler(arch.IRQKeyboard, k.keyboardInterrupt)
		return nil
	})

	err := timer.Track("executor", func() error {
		var err error
		k.exec, err = asyncrt.NewExecutor(asyncrt.Config{
			WakeQueueCapacity: opts.WakeQueueCapacity,
			CPU:               hw.CPU,
			Tracer:            tracer,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}

	err = timer.Track("spawn", func() error {
		if _, err := k.exec.Go("example", exampleTask(con)); err != nil {
			return err
		}
		printer, err := k.keyboardTask(opts)
		if err != nil {
			return err
		}
		k.printer = printer
		_, err = k.exec.Go("keyboard", printer)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}

	trace.Point(tracer, trace.ScopeKernel, "booted", 0, "")
	return k, nil
}

// keyboardTask allocates the scancode queue and builds the task that drains
// it. The interrupt handler starts using the queue from here on.
func (k *Kernel) keyboardTask(opts Options) (*scancode.KeypressPrinter, error) {
	layout := opts.Layout
	if layout == nil {
		layout = pckbd.US104{}
	}
	bridge, err := scancode.NewBridge(scancode.Config{
		Capacity: opts.ScancodeCapacity,
		Overflow: opts.Overflow,
		OnDrop:   k.scancodeDropped,
	})
	if err != nil {
		return nil, err
	}
	stream, err := bridge.Stream()
	if err != nil {
		return nil, err
	}
	k.bridge.Store(bridge)
	return scancode.NewKeypressPrinter(stream, pckbd.New(layout, opts.Control), k.console), nil
}

// keyboardInterrupt is the IRQ1 handler: one byte from the data port into
// the scancode queue, then acknowledge.
func (k *Kernel) keyboardInterrupt() {
	k.irqs.Add(1)
	code := k.hw.Ports.Inb(arch.KeyboardDataPort)
	if bridge := k.bridge.Load(); bridge != nil {
		bridge.Push(code)
	} else {
		k.uninit.Add(1)
		k.console.Warn(WarnQueueUninit)
		trace.Warn(k.tracer, trace.ScopeIRQ, "scancode_uninitialized", "")
	}
	k.hw.PIC.EndOfInterrupt(arch.IRQKeyboard)
}

func (k *Kernel) scancodeDropped(code byte) {
	k.console.Warn(WarnQueueFull)
	trace.Warn(k.tracer, trace.ScopeIRQ, "scancode_dropped", "0x"+strconv.FormatUint(uint64(code), 16))
}

// exampleTask prints the result of an awaited computation once.
func exampleTask(out io.Writer) asyncrt.Future {
	return asyncrt.FutureFunc(func(*asyncrt.Context) asyncrt.Poll {
		_, _ = fmt.Fprintf(out, "async number: %d\n", asyncNumber()) //nolint:errcheck // console writes are best effort
		return asyncrt.Ready
	})
}

func asyncNumber() int {
	return 42
}

// Run runs the executor forever.
func (k *Kernel) Run() {
	k.exec.Run()
}

// RunContext runs the executor until ctx ends.
func (k *Kernel) RunContext(ctx context.Context) error {
	return k.exec.RunContext(ctx)
}

// Executor returns the kernel's executor.
func (k *Kernel) Executor() *asyncrt.Executor {
	return k.exec
}

// KeyboardTask returns the keyboard task. Its counters may only be read
// while the kernel is not running.
func (k *Kernel) KeyboardTask() *scancode.KeypressPrinter {
	return k.printer
}

// Bridge returns the scancode queue, nil before the keyboard task exists.
func (k *Kernel) Bridge() *scancode.Bridge {
	return k.bridge.Load()
}

// Stats is a snapshot of kernel counters.
type Stats struct {
	Executor         asyncrt.Stats
	KeyboardIRQs     uint64
	UninitIRQs       uint64
	ScancodesQueued  int
	ScancodeCap      int
	ScancodesPushed  uint64
	ScancodesDropped uint64
	ScancodeOverflow scancode.Overflow
}

// Stats returns a snapshot that is safe to take from any goroutine.
func (k *Kernel) Stats() Stats {
	s := Stats{
		Executor:     k.exec.Stats(),
		KeyboardIRQs: k.irqs.Load(),
		UninitIRQs:   k.uninit.Load(),
	}
	if b := k.bridge.Load(); b != nil {
		s.ScancodesQueued = b.Len()
		s.ScancodeCap = b.Cap()
		s.ScancodesPushed = b.Pushed()
		s.ScancodesDropped = b.Dropped()
		s.ScancodeOverflow = b.Overflow()
	}
	return s
}
