// Package arch describes the hardware the kernel core runs on.
//
// The core never touches hardware directly. It talks to a CPU (local
// interrupt flag and halt), an interrupt controller that must be acknowledged
// after every delivery, and I/O ports. A bare-metal build backs these with
// assembly stubs; the hosted build backs them with package machine.
package arch

// IRQ lines and ports used by the core.
const (
	IRQTimer    uint8 = 0
	IRQKeyboard uint8 = 1

	// KeyboardDataPort is the PS/2 controller data port.
	KeyboardDataPort uint16 = 0x60
)

// CPU controls the local interrupt flag of the executing core.
type CPU interface {
	// DisableInterrupts clears the interrupt flag. Interrupts raised while
	// the flag is clear stay pending until it is set again.
	DisableInterrupts()
	// EnableInterrupts sets the interrupt flag.
	EnableInterrupts()
	// EnableAndHalt sets the interrupt flag and waits for the next interrupt
	// as one step: an interrupt that becomes pending in between still ends
	// the wait.
	EnableAndHalt()
	// InterruptsEnabled reports the current state of the interrupt flag.
	InterruptsEnabled() bool
}

// Kicker is implemented by CPUs that can be woken from halt without a device
// interrupt. Hosted machines use it to stop a halted executor.
type Kicker interface {
	Kick()
}

// Ports gives access to the I/O port space.
type Ports interface {
	Inb(port uint16) byte
	Outb(port uint16, val byte)
}

// InterruptController acknowledges delivered interrupts. A line is not
// delivered again until it has been acknowledged.
type InterruptController interface {
	EndOfInterrupt(irq uint8)
}

// IRQHandler runs in interrupt context with interrupts disabled. It must be
// bounded, must not block and must not allocate.
type IRQHandler func()

// InterruptTable installs handlers for IRQ lines.
type InterruptTable interface {
	SetHandler(irq uint8, h IRQHandler)
}

// Hardware bundles the collaborators the kernel is booted with.
type Hardware struct {
	CPU   CPU
	Ports Ports
	PIC   InterruptController
	IDT   InterruptTable
}

// WithoutInterrupts runs fn with the interrupt flag cleared and restores the
// previous state afterwards.
func WithoutInterrupts(cpu CPU, fn func()) {
	if cpu == nil {
		fn()
		return
	}
	enabled := cpu.InterruptsEnabled()
	if enabled {
		cpu.DisableInterrupts()
		defer cpu.EnableInterrupts()
	}
	fn()
}
