package console

import (
	"io"
	"sync"

	"github.com/fatih/color"
)

// Console is what the kernel writes to.
type Console interface {
	io.Writer
	// Warn prints a diagnostic line so it stands out from regular output.
	Warn(msg string)
}

// Terminal writes kernel output to a host terminal.
type Terminal struct {
	mu   sync.Mutex
	out  io.Writer
	warn *color.Color
	col  int
}

// NewTerminal wraps out. Warnings are printed in bold red unless colour
// output is disabled (see color.NoColor).
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:  out,
		warn: color.New(color.FgRed, color.Bold),
	}
}

// Write implements io.Writer. Bare newlines are sent as CRLF so output stays
// aligned on a terminal in raw mode.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := 0
	for i, b := range p {
		switch b {
		case '\n':
			if _, err := t.out.Write(p[start:i]); err != nil {
				return start, err
			}
			if _, err := io.WriteString(t.out, "\r\n"); err != nil {
				return i, err
			}
			start = i + 1
			t.col = 0
		case '\b':
			if _, err := t.out.Write(p[start:i]); err != nil {
				return start, err
			}
			if t.col > 0 {
				if _, err := io.WriteString(t.out, "\b \b"); err != nil {
					return i, err
				}
				t.col--
			}
			start = i + 1
		case '\t':
			t.col++
		default:
			if b < 0x20 || b == 0x7F {
				if _, err := t.out.Write(p[start:i]); err != nil {
					return start, err
				}
				if _, err := io.WriteString(t.out, "■"); err != nil {
					return i, err
				}
				start = i + 1
			}
			t.col++
		}
	}
	if _, err := t.out.Write(p[start:]); err != nil {
		return start, err
	}
	return len(p), nil
}

// Warn implements Console.
func (t *Terminal) Warn(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.col != 0 {
		_, _ = io.WriteString(t.out, "\r\n") //nolint:errcheck // best effort
		t.col = 0
	}
	_, _ = t.warn.Fprint(t.out, msg) //nolint:errcheck // best effort
	_, _ = io.WriteString(t.out, "\r\n") //nolint:errcheck // best effort
}

// Multi fans kernel output out to several consoles.
type Multi []Console

// Write implements io.Writer.
func (m Multi) Write(p []byte) (int, error) {
	for _, c := range m {
		if _, err := c.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Warn implements Console.
func (m Multi) Warn(msg string) {
	for _, c := range m {
		c.Warn(msg)
	}
}

// Discard is a console that drops everything.
var Discard Console = discard{}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
func (discard) Warn(string)                 {}
