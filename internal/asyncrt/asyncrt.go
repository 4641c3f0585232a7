package asyncrt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"ember/internal/arch"
	"ember/internal/trace"
)

var (
	// ErrDuplicateTask is returned when a task with the same ID is already live.
	ErrDuplicateTask = errors.New("task with same ID already spawned")
	// ErrNoCPU is returned when the run loop has no CPU to halt.
	ErrNoCPU = errors.New("executor has no CPU to halt")
)

// Executor runs tasks on a single thread in wake-queue FIFO order.
//
// Spawn, Run and RunReady must be called from one goroutine. Wakers may be
// invoked from anywhere, including interrupt handlers.
type Executor struct {
	cfg     Config
	cpu     arch.CPU
	tracer  trace.Tracer
	queue   *WakeQueue
	tasks   map[TaskID]*Task
	wakers  *wakerCache
	current TaskID

	spawned   atomic.Uint64
	polls     atomic.Uint64
	completed atomic.Uint64
	stale     atomic.Uint64
	dropped   atomic.Uint64
	halts     atomic.Uint64
	live      atomic.Int64
	halted    atomic.Bool
}

// Config configures an executor.
type Config struct {
	// WakeQueueCapacity bounds the number of queued wakeups.
	WakeQueueCapacity int
	// CPU is halted while no task is ready. Required by Run and RunContext.
	CPU arch.CPU
	// Tracer receives lifecycle events. Nil means trace.Nop.
	Tracer trace.Tracer
}

// Stats is a snapshot of executor counters. DroppedWakeups counts waker
// pushes refused by a full wake queue; a refused spawn is reported by Spawn
// and not counted there.
type Stats struct {
	Spawned        uint64
	Polls          uint64
	Completed      uint64
	StaleWakeups   uint64
	DroppedWakeups uint64
	Halts          uint64
	Live           int64
	Queued         int
	QueueCap       int
	Halted         bool
}

// NewExecutor constructs an executor and allocates its wake queue.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.WakeQueueCapacity == 0 {
		cfg.WakeQueueCapacity = DefaultWakeQueueCapacity
	}
	queue, err := NewWakeQueue(cfg.WakeQueueCapacity)
	if err != nil {
		return nil, err
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	e := &Executor{
		cfg:    cfg,
		cpu:    cfg.CPU,
		tracer: tracer,
		queue:  queue,
		tasks:  make(map[TaskID]*Task),
	}
	e.wakers = newWakerCache(queue, &e.dropped)
	return e, nil
}

// Spawn registers a task and marks it ready so it is polled at least once.
func (e *Executor) Spawn(task *Task) error {
	if e == nil {
		return errors.New("nil executor")
	}
	if task == nil {
		return errors.New("nil task")
	}
	if _, ok := e.tasks[task.ID]; ok {
		return fmt.Errorf("spawn %d: %w", task.ID, ErrDuplicateTask)
	}
	e.tasks[task.ID] = task
	if !e.queue.Push(task.ID) {
		delete(e.tasks, task.ID)
		return fmt.Errorf("spawn %d: %w", task.ID, ErrWakeQueueFull)
	}
	e.spawned.Add(1)
	e.live.Add(1)
	trace.Point(e.tracer, trace.ScopeExecutor, "spawn", uint64(task.ID), task.Name)
	return nil
}

// Go wraps f in a new task and spawns it.
func (e *Executor) Go(name string, f Future) (TaskID, error) {
	task := NewTask(name, f)
	if err := e.Spawn(task); err != nil {
		return 0, err
	}
	return task.ID, nil
}

// Run polls ready tasks forever, halting the CPU whenever nothing is ready.
func (e *Executor) Run() {
	if e == nil || e.cpu == nil {
		panic(ErrNoCPU)
	}
	for {
		e.RunReady()
		e.sleepIfIdle()
	}
}

// RunContext is Run with a way out: it returns ctx.Err() once ctx is done.
// If the CPU implements arch.Kicker it is kicked out of halt on cancellation.
func (e *Executor) RunContext(ctx context.Context) error {
	if e == nil || e.cpu == nil {
		return ErrNoCPU
	}
	if kicker, ok := e.cpu.(arch.Kicker); ok {
		stop := context.AfterFunc(ctx, kicker.Kick)
		defer stop()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.RunReady()
		if err := ctx.Err(); err != nil {
			return err
		}
		e.sleepIfIdle()
	}
}

// RunReady polls tasks until the wake queue is empty and returns the number
// of identities popped.
func (e *Executor) RunReady() int {
	if e == nil {
		return 0
	}
	n := 0
	for {
		id, ok := e.queue.Pop()
		if !ok {
			return n
		}
		n++
		e.pollTask(id)
	}
}

func (e *Executor) pollTask(id TaskID) {
	task, ok := e.tasks[id]
	if !ok {
		e.stale.Add(1)
		trace.Point(e.tracer, trace.ScopeExecutor, "stale_wakeup", uint64(id), "")
		return
	}

	waker := e.wakers.get(id)
	cx := NewContext(waker)

	e.current = id
	waker.beginPoll()
	span := trace.BeginTask(e.tracer, "poll", uint64(id))
	res := task.poll(cx)
	span.End(res.String())
	e.current = 0
	e.polls.Add(1)

	if res == Ready {
		delete(e.tasks, id)
		e.wakers.release(id)
		e.completed.Add(1)
		e.live.Add(-1)
		trace.Point(e.tracer, trace.ScopeExecutor, "complete", uint64(id), task.Name)
		return
	}
	if waker.endPoll() && !e.queue.Push(id) {
		waker.requeueFailed()
		trace.Warn(e.tracer, trace.ScopeExecutor, "wakeup_dropped", "task "+strconv.FormatUint(uint64(id), 10))
	}
}

// sleepIfIdle halts until the next interrupt when no task is ready. The
// emptiness check runs with interrupts disabled and the CPU re-enables them
// and halts in one step, so a wakeup pushed by an interrupt handler either
// lands before the check or ends the halt.
func (e *Executor) sleepIfIdle() {
	e.cpu.DisableInterrupts()
	if !e.queue.Empty() {
		e.cpu.EnableInterrupts()
		return
	}
	e.halts.Add(1)
	e.halted.Store(true)
	trace.Point(e.tracer, trace.ScopeExecutor, "halt", 0, "")
	e.cpu.EnableAndHalt()
	e.halted.Store(false)
}

// Current returns the ID of the task being polled, or 0 between polls.
func (e *Executor) Current() TaskID {
	if e == nil {
		return 0
	}
	return e.current
}

// Task returns a live task by ID.
func (e *Executor) Task(id TaskID) *Task {
	if e == nil {
		return nil
	}
	return e.tasks[id]
}

// Len reports the number of live tasks.
func (e *Executor) Len() int {
	if e == nil {
		return 0
	}
	return len(e.tasks)
}

// Queue exposes the wake queue.
func (e *Executor) Queue() *WakeQueue {
	if e == nil {
		return nil
	}
	return e.queue
}

// Stats returns a snapshot of the executor counters. It is safe to call from
// any goroutine.
func (e *Executor) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	return Stats{
		Spawned:        e.spawned.Load(),
		Polls:          e.polls.Load(),
		Completed:      e.completed.Load(),
		StaleWakeups:   e.stale.Load(),
		DroppedWakeups: e.dropped.Load(),
		Halts:          e.halts.Load(),
		Live:           e.live.Load(),
		Queued:         e.queue.Len(),
		QueueCap:       e.queue.Cap(),
		Halted:         e.halted.Load(),
	}
}
