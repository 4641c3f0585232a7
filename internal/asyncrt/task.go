package asyncrt

import "sync/atomic"

// TaskID identifies a spawned task.
type TaskID uint64

// taskIDs is the process-wide identity counter. IDs start at 1 so the zero
// value never names a live task.
var taskIDs atomic.Uint64

// NextTaskID returns a fresh task identity.
func NextTaskID() TaskID {
	return TaskID(taskIDs.Add(1))
}

// Poll is the outcome of advancing a future by one step.
type Poll uint8

const (
	// Pending means the future suspended after registering for a wakeup.
	Pending Poll = iota
	// Ready means the future ran to completion.
	Ready
)

// String returns the string representation of Poll.
func (p Poll) String() string {
	switch p {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Future is a suspendable computation with no result value.
//
// Poll advances the computation by one step. A future that returns Pending
// must have handed cx.Waker() to something that will invoke it later,
// otherwise it is never polled again.
type Future interface {
	Poll(cx *Context) Poll
}

// FutureFunc adapts a plain function to Future.
type FutureFunc func(cx *Context) Poll

// Poll calls f(cx).
func (f FutureFunc) Poll(cx *Context) Poll {
	return f(cx)
}

// Context carries the waker of the task being polled.
type Context struct {
	waker *Waker
}

// NewContext builds a poll context around a waker.
func NewContext(w *Waker) *Context {
	return &Context{waker: w}
}

// Waker returns the waker of the task being polled.
func (cx *Context) Waker() *Waker {
	if cx == nil {
		return nil
	}
	return cx.waker
}

// Task stores executor-visible task state.
type Task struct {
	ID     TaskID
	Name   string
	future Future
	polls  uint64
}

// NewTask wraps a future with a fresh identity.
func NewTask(name string, f Future) *Task {
	return &Task{
		ID:     NextTaskID(),
		Name:   name,
		future: f,
	}
}

// Polls reports how many times the task has been polled.
func (t *Task) Polls() uint64 {
	if t == nil {
		return 0
	}
	return t.polls
}

func (t *Task) poll(cx *Context) Poll {
	t.polls++
	if t.future == nil {
		return Ready
	}
	return t.future.Poll(cx)
}
