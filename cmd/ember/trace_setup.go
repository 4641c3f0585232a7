package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/config"
	"ember/internal/trace"
)

// setupTracing builds the tracer from the [trace] table, overridden by any
// --trace* flag that was set, and attaches it to the command context.
// The returned cleanup dumps the ring to stderr if the command failed.
func setupTracing(cmd *cobra.Command, cfg *config.Config) (func(failed bool), error) {
	flags := cmd.Root().PersistentFlags()
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"trace", &cfg.Trace.Output},
		{"trace-level", &cfg.Trace.Level},
		{"trace-mode", &cfg.Trace.Mode},
		{"trace-format", &cfg.Trace.Format},
		{"trace-heartbeat", &cfg.Trace.Heartbeat},
	}
	for _, o := range overrides {
		if f := flags.Lookup(o.flag); f != nil && f.Changed {
			*o.dst = f.Value.String()
		}
	}
	if flags.Changed("trace-ring-size") {
		ringSize, err := flags.GetInt("trace-ring-size")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
		}
		cfg.Trace.RingSize = int64(ringSize)
	}
	// --trace FILE without a level means "trace the boot".
	if flags.Changed("trace") && !flags.Changed("trace-level") && cfg.Trace.Level == trace.LevelOff.String() {
		cfg.Trace.Level = trace.LevelInfo.String()
	}

	tcfg, err := cfg.TraceConfig()
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	session.heartbeat = trace.StartHeartbeat(tracer, tcfg.Heartbeat)

	return func(failed bool) {
		session.heartbeat.Stop()
		if failed && tcfg.Mode != trace.ModeStream {
			if ring := trace.FindRing(tracer); ring != nil {
				fmt.Fprintln(os.Stderr, "trace ring:")
				if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
					fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
				}
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: close error: %v\n", err)
		}
	}, nil
}
