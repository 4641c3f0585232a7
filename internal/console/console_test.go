package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestVGA_WriteAndScroll(t *testing.T) {
	v := NewVGA()
	if _, err := v.WriteString("Hello World!\nasync number: 42\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if _, err := v.Write([]byte("a")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := v.Lines()
	if len(lines) != Height {
		t.Fatalf("Lines = %d rows, want %d", len(lines), Height)
	}
	want := []string{"Hello World!", "async number: 42", "a"}
	got := lines[Height-3:]
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, want %q", Height-3+i, got[i], want[i])
		}
	}
	if c := v.Cell(Height-1, 0); c.Char != 'a' || c.Color != DefaultColor {
		t.Errorf("cell = %+v", c)
	}
}

func TestVGA_WrapsLongLines(t *testing.T) {
	v := NewVGA()
	v.WriteString(strings.Repeat("x", Width) + "y") //nolint:errcheck // never fails
	if got := v.LastLine(); got != "y" {
		t.Fatalf("last line = %q, want %q", got, "y")
	}
	if got := v.Lines()[Height-2]; got != strings.Repeat("x", Width) {
		t.Fatalf("previous line = %q", got)
	}
}

func TestVGA_ControlCharacters(t *testing.T) {
	v := NewVGA()
	v.WriteString("ab\bc\td") //nolint:errcheck // never fails
	if got, want := v.LastLine(), "ac      d"; got != want {
		t.Fatalf("last line = %q, want %q", got, want)
	}
	v.Clear()
	v.WriteString("é╬\x01€") //nolint:errcheck // never fails
	if got, want := v.LastLine(), "é╬■■"; got != want {
		t.Fatalf("last line = %q, want %q", got, want)
	}
}

func TestVGA_Warn(t *testing.T) {
	v := NewVGA()
	v.WriteString("abc") //nolint:errcheck // never fails
	v.Warn("WARNING: x")
	lines := v.Lines()
	if lines[Height-3] != "abc" || lines[Height-2] != "WARNING: x" || lines[Height-1] != "" {
		t.Fatalf("lines = %q", lines[Height-3:])
	}
	if c := v.Cell(Height-2, 0); c.Color != WarningColor {
		t.Fatalf("warning colour = %#x, want %#x", c.Color, WarningColor)
	}
}

func TestColorCode(t *testing.T) {
	c := NewColorCode(Yellow, Blue)
	if c.Foreground() != Yellow || c.Background() != Blue {
		t.Fatalf("ColorCode %#x splits into %d/%d", c, c.Foreground(), c.Background())
	}
}

func TestTerminal(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = orig }()

	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.Write([]byte("ab\x01\n")) //nolint:errcheck // bytes.Buffer
	term.Write([]byte("x\b\b"))    //nolint:errcheck // bytes.Buffer
	term.Write([]byte("partial"))  //nolint:errcheck // bytes.Buffer
	term.Warn("WARNING: scancode queue full; dropping keyboard input")

	want := "ab■\r\nx\b \bpartial\r\nWARNING: scancode queue full; dropping keyboard input\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestMulti(t *testing.T) {
	v := NewVGA()
	var buf bytes.Buffer
	m := Multi{NewTerminal(&buf), v, Discard}
	if _, err := m.Write([]byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	m.Warn("w")
	if v.Lines()[Height-3] != "hi" || !strings.HasPrefix(buf.String(), "hi\r\n") {
		t.Fatalf("vga = %q, terminal = %q", v.Lines()[Height-3:], buf.String())
	}
}
