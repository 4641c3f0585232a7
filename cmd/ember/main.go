package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ember/internal/config"
	"ember/internal/trace"
	"ember/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ember",
	Short: "Cooperative kernel executor on a hosted machine",
	Long: `ember boots a small cooperative kernel on a simulated PC: an executor
that halts the CPU while idle, and a keyboard task fed by the keyboard
interrupt through a lock-free scancode queue.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

// session holds what prepare set up for the command being run.
var session struct {
	cfg       *config.Config
	heartbeat *trace.Heartbeat
	cleanup   func(failed bool)
}

// main registers subcommands and persistent flags and executes the root
// command. If command execution returns an error, the process exits with
// status code 1.
func main() {
	rootCmd.Version = version.String()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to ember.toml (default: nearest ember.toml above the working directory)")
	rootCmd.PersistentFlags().String("color", "", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|info|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().String("trace-format", "", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 0, "trace ring capacity")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "trace heartbeat interval (0 disables)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to file")

	err := rootCmd.Execute()
	if session.cleanup != nil {
		session.cleanup(err != nil)
	}
	if err != nil {
		os.Exit(1)
	}
}

// prepare loads the config, applies --color and starts tracing and
// profiling.
func prepare(cmd *cobra.Command, _ []string) error {
	root := cmd.Root()
	path, err := root.PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Resolve(path, ".")
	if err != nil {
		return err
	}
	session.cfg = cfg

	colorMode := cfg.Console.Color
	if f := root.PersistentFlags().Lookup("color"); f != nil && f.Changed {
		colorMode = f.Value.String()
	}
	if err := applyColor(colorMode); err != nil {
		return err
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		stopProfiling()
		return err
	}
	session.cleanup = func(failed bool) {
		cleanup(failed)
		stopProfiling()
	}
	return nil
}

func applyColor(mode string) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
