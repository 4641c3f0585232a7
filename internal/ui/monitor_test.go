package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ember/internal/asyncrt"
	"ember/internal/kernel"
)

type fakeScreen []string

func (s fakeScreen) Lines() []string { return s }

func TestKeyScancodes(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []byte
		ok   bool
	}{
		{"letter", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, []byte{0x1E, 0x9E}, true},
		{"shifted", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("A")}, []byte{0x2A, 0x1E, 0x9E, 0xAA}, true},
		{"space", tea.KeyMsg{Type: tea.KeySpace}, []byte{0x39, 0xB9}, true},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, []byte{0x1C, 0x9C}, true},
		{"arrow", tea.KeyMsg{Type: tea.KeyLeft}, []byte{0xE0, 0x4B, 0xE0, 0xCB}, true},
		{"unmapped rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("€")}, nil, false},
		{"unmapped key", tea.KeyMsg{Type: tea.KeyCtrlZ}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyScancodes(tt.msg)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("codes = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestMonitor_TypesIntoMachine(t *testing.T) {
	var typed []byte
	m := NewMonitorModel(MonitorConfig{
		Type: func(codes []byte) int {
			// The controller accepts at most two bytes per call.
			n := min(len(codes), 2)
			typed = append(typed, codes[:n]...)
			return n
		},
	}).(*monitorModel)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("B")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("€")})

	if !bytes.Equal(typed, []byte{0x30, 0xB0, 0x2A, 0x30}) {
		t.Errorf("typed % x", typed)
	}
	if m.typed != 4 || m.rejected != 2 || m.unmapped != 1 {
		t.Errorf("typed=%d rejected=%d unmapped=%d", m.typed, m.rejected, m.unmapped)
	}
	if !strings.Contains(m.View(), "2 rejected by controller") {
		t.Errorf("view does not report rejected keys:\n%s", m.View())
	}
}

func TestMonitor_SamplesOnTick(t *testing.T) {
	m := NewMonitorModel(MonitorConfig{
		Title:  "test",
		Screen: fakeScreen{"Hello World!", "async number: 42"},
		Stats: func() Stats {
			return Stats{Kernel: kernel.Stats{
				Executor:     asyncrt.Stats{Live: 1, Spawned: 2, QueueCap: 100, Halted: true},
				KeyboardIRQs: 5,
				ScancodeCap:  100,
			}}
		},
	}).(*monitorModel)

	_, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	view := m.View()
	for _, want := range []string{"test", "halted", "Hello World!", "async number: 42", "1 live, 2 spawned", "5 irqs"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMonitor_CtrlCQuits(t *testing.T) {
	m := NewMonitorModel(MonitorConfig{}).(*monitorModel)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
	if m.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a long line of text", 10, "a long ..."},
		{"abcdef", 2, "ab"},
		{"whatever", 0, "whatever"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
