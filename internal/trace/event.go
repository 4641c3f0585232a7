package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
	// KindWarning is an instant event that is emitted at every enabled level.
	KindWarning
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindWarning:
		return "warning"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeKernel covers boot and shutdown.
	ScopeKernel Scope = iota + 1
	// ScopeExecutor covers task lifecycle and wake queue events.
	ScopeExecutor
	// ScopeIRQ covers interrupt handlers.
	ScopeIRQ
	// ScopeTask covers individual polls.
	ScopeTask
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeKernel:
		return "kernel"
	case ScopeExecutor:
		return "executor"
	case ScopeIRQ:
		return "irq"
	case ScopeTask:
		return "task"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	TaskID   uint64            // task the event concerns (0 if none)
	Name     string            // e.g., "spawn", "poll", "scancode_dropped"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
