package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"ember/internal/config"
	"ember/internal/console"
	"ember/internal/kernel"
	"ember/internal/machine"
	"ember/internal/observ"
	"ember/internal/trace"
)

// hosted is a booted kernel on a hosted machine.
type hosted struct {
	machine *machine.Machine
	kernel  *kernel.Kernel
	vga     *console.VGA
	timer   *observ.Timer
}

// boot builds the machine and boots the kernel on it. Kernel output goes to
// the VGA buffer and to out, when out is non-nil.
func boot(ctx context.Context, cfg *config.Config, out console.Console, timings bool) (*hosted, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	tracer := trace.FromContext(ctx)
	inputBuffer, err := cfg.InputBuffer()
	if err != nil {
		return nil, err
	}
	opts, err := kernel.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	h := &hosted{
		machine: machine.New(machine.Config{InputBuffer: inputBuffer, Paced: true, Tracer: tracer}),
		vga:     console.NewVGA(),
	}
	if timings {
		h.timer = observ.NewTimer()
	}
	var con console.Console = h.vga
	if out != nil {
		con = console.Multi{out, h.vga}
	}
	h.kernel, err = kernel.Boot(opts, h.machine.Hardware(), con, tracer, h.timer)
	if err != nil {
		return nil, err
	}
	session.heartbeat.Observe(h.sample)
	return h, nil
}

// sample feeds the heartbeat: enough to tell a parked machine from a
// stuck one.
func (h *hosted) sample() map[string]string {
	ks := h.kernel.Stats()
	ms := h.machine.Stats()
	return map[string]string{
		"live":    strconv.FormatInt(ks.Executor.Live, 10),
		"queued":  strconv.Itoa(ks.Executor.Queued),
		"polls":   strconv.FormatUint(ks.Executor.Polls, 10),
		"halted":  strconv.FormatBool(ks.Executor.Halted),
		"irqs":    strconv.FormatUint(ks.KeyboardIRQs, 10),
		"pending": strconv.Itoa(ms.Pending),
	}
}

// run runs the kernel until ctx ends.
func (h *hosted) run(ctx context.Context) error {
	return h.machine.Run(ctx, h.kernel.RunContext)
}

// idle reports whether every typed scancode has been delivered and consumed
// and the executor is halted with nothing to do.
func (h *hosted) idle() bool {
	if !h.machine.Settled() {
		return false
	}
	st := h.kernel.Stats()
	return st.ScancodesQueued == 0 && st.Executor.Queued == 0 && st.Executor.Halted
}

// waitIdle blocks until the machine has been idle for two samples in a row.
func (h *hosted) waitIdle(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	streak := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if h.idle() {
			streak++
			if streak >= 2 {
				return nil
			}
		} else {
			streak = 0
		}
	}
}

// report prints the boot timings and the final counters.
func (h *hosted) report(w io.Writer) {
	if h.timer != nil {
		fmt.Fprint(w, h.timer.Summary())
	}
	ks := h.kernel.Stats()
	es := ks.Executor
	fmt.Fprintf(w, "executor: %d spawned, %d completed, %d polls, %d halts, %d stale wakeups, %d dropped wakeups\n",
		es.Spawned, es.Completed, es.Polls, es.Halts, es.StaleWakeups, es.DroppedWakeups)
	fmt.Fprintf(w, "keyboard: %d irqs, %d scancodes queued, %d dropped (%s)\n",
		ks.KeyboardIRQs, ks.ScancodesPushed, ks.ScancodesDropped, ks.ScancodeOverflow)
}
