package main

import (
	"bytes"
	"testing"

	"ember/internal/pckbd"
)

func TestTerminalScancodes(t *testing.T) {
	up, _ := pckbd.EncodeKey(pckbd.KeyArrowUp)
	a, _ := pckbd.EncodeRune('a')
	enter, _ := pckbd.EncodeRune('\r')

	tests := []struct {
		name  string
		input []byte
		want  []byte
		quit  bool
	}{
		{"letter", []byte("a"), a, false},
		{"enter", []byte("\r"), enter, false},
		{"arrow", []byte("\x1b[A"), up, false},
		{"ctrl-c stops", []byte("a\x03a"), a, true},
		{"ctrl-d stops", []byte{0x04}, nil, true},
		{"unmapped rune skipped", []byte("é"), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, quit := terminalScancodes(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("codes = % x, want % x", got, tt.want)
			}
			if quit != tt.quit {
				t.Errorf("quit = %v, want %v", quit, tt.quit)
			}
		})
	}
}

func TestParseHexArgs(t *testing.T) {
	got, err := parseHexArgs([]string{"1e", "0x9E", "2a1e", "f"})
	if err != nil {
		t.Fatalf("parseHexArgs: %v", err)
	}
	want := []byte{0x1E, 0x9E, 0x2A, 0x1E, 0x0F}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
	if _, err := parseHexArgs([]string{"zz"}); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeOff, "ON": uiModeOn, "auto": uiModeAuto, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Errorf("expected error for invalid mode")
	}
}
