package machine

import "sync/atomic"

const irqLines = 16

// PIC models a pair of cascaded 8259 controllers as far as the kernel sees
// them: a line that delivered an interrupt stays in service until the
// handler acknowledges it, and nothing more arrives on that line meanwhile.
type PIC struct {
	eoi  [irqLines]chan struct{}
	eois atomic.Uint64
}

// NewPIC returns a controller with every line idle.
func NewPIC() *PIC {
	p := &PIC{}
	for i := range p.eoi {
		p.eoi[i] = make(chan struct{}, 1)
	}
	return p
}

// EndOfInterrupt acknowledges irq so the line may deliver again.
func (p *PIC) EndOfInterrupt(irq uint8) {
	if int(irq) >= irqLines {
		return
	}
	p.eois.Add(1)
	select {
	case p.eoi[irq] <- struct{}{}:
	default:
	}
}

// EOIs returns how many acknowledgments were received.
func (p *PIC) EOIs() uint64 {
	return p.eois.Load()
}

func (p *PIC) acknowledged(irq uint8) <-chan struct{} {
	return p.eoi[irq]
}
