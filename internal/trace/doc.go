// Package trace records what the kernel core is doing.
//
// Boot steps, task lifecycle, wakeups and interrupt-side diagnostics are
// emitted as events so a stalled machine can be explained after the fact.
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Warnings only (dropped scancodes, dropped wakeups)
//   - LevelInfo: Kernel boot steps
//   - LevelDetail: Task lifecycle and interrupt delivery
//   - LevelDebug: Every poll and every halt
//
// # Scopes
//
//   - ScopeKernel: Boot and shutdown
//   - ScopeExecutor: Spawn, completion, stale and dropped wakeups
//   - ScopeIRQ: Interrupt handlers
//   - ScopeTask: Individual polls
//
// # Tracers
//
//   - Nop: Zero-overhead tracer when disabled
//   - StreamTracer: Immediate write to output (file/stderr)
//   - RingTracer: Circular buffer for post-mortem dumps
//   - MultiTracer: Combines multiple tracers
//
// Tracers travel through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeKernel, "boot", 0)
//	defer span.End("")
package trace
