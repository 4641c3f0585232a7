package trace

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

// Sampler reads machine state for a heartbeat event.
type Sampler func() map[string]string

// Heartbeat periodically emits heartbeat events from outside the machine.
// Heartbeats whose sample shows no new polls mean every task is parked.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	sampler  atomic.Pointer[Sampler]
	cancel   context.CancelFunc
	done     chan struct{}
}

// StartHeartbeat starts emitting heartbeats every interval. It returns nil
// when tracing is off or interval is not positive; a nil *Heartbeat is safe
// to use.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.run(ctx)
	return h
}

// Observe attaches a sampler whose sample is added to every following beat.
func (h *Heartbeat) Observe(p Sampler) {
	if h == nil {
		return
	}
	h.sampler.Store(&p)
}

func (h *Heartbeat) run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var beat uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		beat++
		ev := &Event{
			Time:   time.Now(),
			Kind:   KindHeartbeat,
			Scope:  ScopeKernel,
			Name:   "heartbeat",
			Detail: "#" + strconv.FormatUint(beat, 10),
		}
		if p := h.sampler.Load(); p != nil && *p != nil {
			ev.Extra = (*p)()
		}
		h.tracer.Emit(ev)
	}
}

// Stop ends the heartbeat goroutine and waits for it. It may be called more
// than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}
