package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ember/internal/console"
	"ember/internal/tape"
)

var (
	replayRealtime bool
	replayTimings  bool
)

func init() {
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "reproduce the recorded pauses between scancodes")
	replayCmd.Flags().BoolVar(&replayTimings, "timings", false, "print boot timings and counters on exit")
}

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Boot the kernel and play a recorded tape into it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := tape.Load(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		h, err := boot(ctx, session.cfg, console.NewTerminal(cmd.OutOrStdout()), replayTimings)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return h.run(gctx)
		})
		g.Go(func() error {
			if err := tape.Play(gctx, t, h.machine.Keyboard(), replayRealtime); err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			if err := h.waitIdle(gctx); err != nil {
				return err
			}
			cancel()
			return nil
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if replayTimings {
			fmt.Fprintln(cmd.ErrOrStderr(), t)
			h.report(cmd.ErrOrStderr())
		}
		return nil
	},
}
