package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"ember/internal/console"
	"ember/internal/pckbd"
	"ember/internal/tape"
	"ember/internal/ui"
)

var (
	runUI      string
	runRecord  string
	runTimings bool
)

func init() {
	runCmd.Flags().StringVar(&runUI, "ui", "off", "show the machine monitor (auto|on|off)")
	runCmd.Flags().Lookup("ui").NoOptDefVal = string(uiModeOn)
	runCmd.Flags().StringVar(&runRecord, "record", "", "record typed scancodes to a tape file")
	runCmd.Flags().BoolVar(&runTimings, "timings", false, "print boot timings and counters on exit")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the kernel and type into it",
	Long: `Boot the kernel on the hosted machine. Keys come from the terminal in raw
mode (ctrl+c or ctrl+d to stop), from piped stdin (the run ends once the
input has been consumed), or from the monitor with --ui.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mode, err := readUIMode(runUI)
		if err != nil {
			return err
		}
		useTUI := shouldUseTUI(mode)
		stdin, stdinIsFile := cmd.InOrStdin().(*os.File)
		interactive := !useTUI && stdinIsFile && isTerminal(stdin)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if !interactive && !useTUI {
			var stop context.CancelFunc
			ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
		}

		var out console.Console
		if !useTUI {
			out = console.NewTerminal(cmd.OutOrStdout())
		}

		if interactive {
			fd := int(stdin.Fd()) //nolint:gosec // fd fits in int
			state, err := term.MakeRaw(fd)
			if err != nil {
				return fmt.Errorf("failed to enter raw mode: %w", err)
			}
			defer func() {
				_ = term.Restore(fd, state) //nolint:errcheck // best effort on exit
			}()
		}

		h, err := boot(ctx, session.cfg, out, runTimings)
		if err != nil {
			return err
		}

		var rec *tape.Recorder
		var keyboard tape.Injector = h.machine.Keyboard()
		if runRecord != "" {
			rec = tape.NewRecorder(session.cfg.Keyboard.Layout)
			keyboard = rec.Wrap(keyboard)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return h.run(gctx)
		})

		switch {
		case useTUI:
			g.Go(func() error {
				defer cancel()
				return ui.RunMonitor(gctx, ui.MonitorConfig{
					Title:  "ember",
					Screen: h.vga,
					Stats:  func() ui.Stats { return ui.Stats{Kernel: h.kernel.Stats(), Machine: h.machine.Stats()} },
					Type: func(codes []byte) int {
						n := 0
						for _, code := range codes {
							if !h.machine.Keyboard().TryInject(code) {
								break
							}
							if rec != nil {
								rec.Record(code)
							}
							n++
						}
						return n
					},
				})
			})
		case interactive:
			// The read never returns on its own, so it stays out of the group.
			go func() {
				defer cancel()
				_ = typeTerminal(gctx, stdin, keyboard) //nolint:errcheck // ends the run either way
			}()
		default:
			g.Go(func() error {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				for _, code := range pckbd.EncodeString(string(data)) {
					if err := keyboard.Inject(gctx, code); err != nil {
						return err
					}
				}
				if err := h.waitIdle(gctx); err != nil {
					return err
				}
				cancel()
				return nil
			})
		}

		err = g.Wait()
		if interactive {
			fmt.Fprint(cmd.OutOrStdout(), "\r\n")
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if rec != nil {
			if err := tape.Save(runRecord, rec.Tape()); err != nil {
				return fmt.Errorf("failed to save tape: %w", err)
			}
		}
		if runTimings {
			h.report(cmd.ErrOrStderr())
		}
		return nil
	},
}

// typeTerminal reads raw terminal input and types it into the machine until
// ctrl+c or ctrl+d, end of input, or ctx ends.
func typeTerminal(ctx context.Context, in io.Reader, keyboard tape.Injector) error {
	buf := make([]byte, 256)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			codes, quit := terminalScancodes(buf[:n])
			for _, code := range codes {
				if err := keyboard.Inject(ctx, code); err != nil {
					return err
				}
			}
			if quit {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

var csiKeys = map[byte]pckbd.KeyCode{
	'A': pckbd.KeyArrowUp,
	'B': pckbd.KeyArrowDown,
	'C': pckbd.KeyArrowRight,
	'D': pckbd.KeyArrowLeft,
	'H': pckbd.KeyHome,
	'F': pckbd.KeyEnd,
}

// terminalScancodes converts one read of raw terminal input into scancodes.
// quit is set when the input holds ctrl+c or ctrl+d; keys after it are
// dropped.
func terminalScancodes(p []byte) (codes []byte, quit bool) {
	for i := 0; i < len(p); {
		b := p[i]
		if b == 0x03 || b == 0x04 {
			return codes, true
		}
		if b == 0x1B && i+2 < len(p) && p[i+1] == '[' {
			if key, ok := csiKeys[p[i+2]]; ok {
				seq, _ := pckbd.EncodeKey(key)
				codes = append(codes, seq...)
				i += 3
				continue
			}
		}
		r, size := utf8.DecodeRune(p[i:])
		if seq, ok := pckbd.EncodeRune(r); ok {
			codes = append(codes, seq...)
		}
		i += size
	}
	return codes, false
}
