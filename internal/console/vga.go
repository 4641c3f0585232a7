// Package console implements the kernel's output devices: an 80x25 VGA text
// buffer and a host terminal writer.
package console

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Text mode dimensions.
const (
	Width  = 80
	Height = 25
)

// unprintable is the CP437 block drawn for characters the font lacks.
const unprintable byte = 0xFE

const tabStop = 8

// Color is one of the 16 VGA text colours.
type Color uint8

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

// ColorCode packs a foreground and background colour into one attribute byte.
type ColorCode uint8

// NewColorCode builds an attribute byte.
func NewColorCode(fg, bg Color) ColorCode {
	return ColorCode(bg<<4 | fg&0x0F)
}

// Foreground returns the foreground colour.
func (c ColorCode) Foreground() Color { return Color(c & 0x0F) }

// Background returns the background colour.
func (c ColorCode) Background() Color { return Color(c >> 4) }

// Cell is one character position of the buffer.
type Cell struct {
	Char  byte
	Color ColorCode
}

// DefaultColor is yellow on black.
var DefaultColor = NewColorCode(Yellow, Black)

// WarningColor is used by Warn.
var WarningColor = NewColorCode(LightRed, Black)

// VGA is a text-mode frame buffer. Output is written on the bottom row; a
// newline scrolls everything up by one row.
type VGA struct {
	mu    sync.Mutex
	cells [Height][Width]Cell
	col   int
	color ColorCode
}

// NewVGA returns a cleared buffer.
func NewVGA() *VGA {
	v := &VGA{color: DefaultColor}
	for row := range v.cells {
		v.clearRow(row)
	}
	return v
}

// SetColor changes the attribute used for subsequent writes.
func (v *VGA) SetColor(c ColorCode) {
	v.mu.Lock()
	v.color = c
	v.mu.Unlock()
}

// Write implements io.Writer. p is UTF-8; runes are stored as CP437.
func (v *VGA) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		v.writeRune(r, v.color)
		i += size
	}
	return len(p), nil
}

// WriteString implements io.StringWriter.
func (v *VGA) WriteString(s string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range s {
		v.writeRune(r, v.color)
	}
	return len(s), nil
}

// Warn writes msg and a newline in WarningColor.
func (v *VGA) Warn(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.col != 0 {
		v.newLine()
	}
	for _, r := range msg {
		v.writeRune(r, WarningColor)
	}
	v.newLine()
}

func (v *VGA) writeRune(r rune, color ColorCode) {
	switch r {
	case '\n':
		v.newLine()
		return
	case '\b':
		if v.col > 0 {
			v.col--
			v.cells[Height-1][v.col] = Cell{Char: ' ', Color: color}
		}
		return
	case '\t':
		next := (v.col/tabStop + 1) * tabStop
		for v.col < next && v.col < Width {
			v.putByte(' ', color)
		}
		return
	}
	v.putByte(encodeRune(r), color)
}

func (v *VGA) putByte(b byte, color ColorCode) {
	if v.col >= Width {
		v.newLine()
	}
	v.cells[Height-1][v.col] = Cell{Char: b, Color: color}
	v.col++
}

func (v *VGA) newLine() {
	for row := 1; row < Height; row++ {
		v.cells[row-1] = v.cells[row]
	}
	v.clearRow(Height - 1)
	v.col = 0
}

func (v *VGA) clearRow(row int) {
	for col := range v.cells[row] {
		v.cells[row][col] = Cell{Char: ' ', Color: v.color}
	}
}

// Clear blanks the whole buffer.
func (v *VGA) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for row := range v.cells {
		v.clearRow(row)
	}
	v.col = 0
}

// Cell returns the cell at row, col.
func (v *VGA) Cell(row, col int) Cell {
	v.mu.Lock()
	defer v.mu.Unlock()
	if row < 0 || row >= Height || col < 0 || col >= Width {
		return Cell{}
	}
	return v.cells[row][col]
}

// Lines returns the screen as UTF-8 text, one string per row, with trailing
// blanks removed.
func (v *VGA) Lines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	lines := make([]string, Height)
	var sb strings.Builder
	for row := range v.cells {
		sb.Reset()
		for _, cell := range v.cells[row] {
			sb.WriteRune(charmap.CodePage437.DecodeByte(cell.Char))
		}
		lines[row] = strings.TrimRight(sb.String(), " ")
	}
	return lines
}

// LastLine returns the bottom row as UTF-8 text.
func (v *VGA) LastLine() string {
	lines := v.Lines()
	return lines[Height-1]
}

// encodeRune maps r to code page 437. Control characters and runes outside
// the code page become the unprintable block.
func encodeRune(r rune) byte {
	if r < 0x20 || r == 0x7F {
		return unprintable
	}
	b, ok := charmap.CodePage437.EncodeRune(r)
	if !ok {
		return unprintable
	}
	return b
}
