// Package ui renders the hosted machine in a Bubble Tea monitor: the VGA
// screen, executor and keyboard counters, and a keyboard that types into the
// machine.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ember/internal/kernel"
	"ember/internal/machine"
	"ember/internal/pckbd"
)

// DefaultRefresh is how often the monitor samples the machine.
const DefaultRefresh = 50 * time.Millisecond

// Screen is the text the monitor shows. console.VGA implements it.
type Screen interface {
	Lines() []string
}

// Stats is what the monitor samples on every refresh.
type Stats struct {
	Kernel  kernel.Stats
	Machine machine.Stats
}

// MonitorConfig wires the monitor to a running machine.
type MonitorConfig struct {
	Title  string
	Screen Screen
	Stats  func() Stats
	// Type hands scancodes to the keyboard controller and returns how many
	// were accepted.
	Type    func(codes []byte) int
	Refresh time.Duration
}

type monitorModel struct {
	cfg      MonitorConfig
	spinner  spinner.Model
	wakeBar  progress.Model
	scanBar  progress.Model
	lines    []string
	stats    Stats
	width    int
	typed    uint64
	rejected uint64
	unmapped uint64
	quitting bool
}

type tickMsg time.Time

// NewMonitorModel returns a Bubble Tea model for the machine monitor.
func NewMonitorModel(cfg MonitorConfig) tea.Model {
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefresh
	}
	if cfg.Title == "" {
		cfg.Title = "ember"
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	wake := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	wake.Width = 40
	scan := progress.New(progress.WithScaledGradient("#FFD700", "#FF4500"), progress.WithoutPercentage())
	scan.Width = 40

	return &monitorModel{
		cfg:     cfg,
		spinner: sp,
		wakeBar: wake,
		scanBar: scan,
		width:   84,
	}
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m *monitorModel) tick() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		m.typeKey(msg)
		return m, nil
	case tickMsg:
		m.sample()
		return m, m.tick()
	case spinner.TickMsg:
		if m.quitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			barWidth := msg.Width - 24
			if barWidth > 60 {
				barWidth = 60
			}
			if barWidth < 10 {
				barWidth = 10
			}
			m.wakeBar.Width = barWidth
			m.scanBar.Width = barWidth
		}
		return m, nil
	}
	return m, nil
}

func (m *monitorModel) sample() {
	if m.cfg.Screen != nil {
		m.lines = m.cfg.Screen.Lines()
	}
	if m.cfg.Stats != nil {
		m.stats = m.cfg.Stats()
	}
}

func (m *monitorModel) typeKey(msg tea.KeyMsg) {
	codes, ok := KeyScancodes(msg)
	if !ok {
		m.unmapped++
		return
	}
	if m.cfg.Type == nil {
		return
	}
	n := m.cfg.Type(codes)
	m.typed += uint64(n)
	if n < len(codes) {
		m.rejected += uint64(len(codes) - n)
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	screenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

func (m *monitorModel) View() string {
	if m.quitting {
		return ""
	}
	ks := m.stats.Kernel
	es := ks.Executor

	state := m.spinner.View() + " running"
	if es.Halted {
		state = "  halted"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", m.cfg.Title, state)))
	b.WriteString("\n")

	b.WriteString(screenStyle.Render(m.screen()))
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s %d live, %d spawned, %d polls, %d halts, %d stale\n",
		labelStyle.Render("tasks    "), es.Live, es.Spawned, es.Polls, es.Halts, es.StaleWakeups)
	fmt.Fprintf(&b, "%s %s %d/%d\n",
		labelStyle.Render("wake q   "), m.wakeBar.ViewAs(fill(es.Queued, es.QueueCap)), es.Queued, es.QueueCap)
	fmt.Fprintf(&b, "%s %s %d/%d %s\n",
		labelStyle.Render("scancodes"), m.scanBar.ViewAs(fill(ks.ScancodesQueued, ks.ScancodeCap)),
		ks.ScancodesQueued, ks.ScancodeCap, ks.ScancodeOverflow)
	fmt.Fprintf(&b, "%s %d irqs, %d pushed, %d typed, %d pending\n",
		labelStyle.Render("keyboard "), ks.KeyboardIRQs, ks.ScancodesPushed, m.typed, m.stats.Machine.Pending)

	if drops := ks.ScancodesDropped + es.DroppedWakeups + m.rejected; drops > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("dropped: %d scancodes, %d wakeups, %d rejected by controller",
			ks.ScancodesDropped, es.DroppedWakeups, m.rejected)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("type to send keys • ctrl+c to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *monitorModel) screen() string {
	width := m.width - 4
	if width > 80 {
		width = 80
	}
	lines := m.lines
	if len(lines) == 0 {
		lines = []string{""}
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = runewidth.FillRight(truncate(line, width), width)
	}
	return strings.Join(out, "\n")
}

func fill(n, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(n) / float64(capacity)
}

// KeyScancodes translates a terminal key press into the scancodes a PC
// keyboard would send for it.
func KeyScancodes(msg tea.KeyMsg) ([]byte, bool) {
	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		runes := msg.Runes
		if msg.Type == tea.KeySpace {
			runes = []rune{' '}
		}
		var out []byte
		for _, r := range runes {
			seq, ok := pckbd.EncodeRune(r)
			if !ok {
				return nil, false
			}
			out = append(out, seq...)
		}
		return out, len(out) > 0
	}
	code, ok := specialKeys[msg.Type]
	if !ok {
		return nil, false
	}
	return pckbd.EncodeKey(code)
}

var specialKeys = map[tea.KeyType]pckbd.KeyCode{
	tea.KeyEnter:     pckbd.KeyEnter,
	tea.KeyBackspace: pckbd.KeyBackspace,
	tea.KeyTab:       pckbd.KeyTab,
	tea.KeyEsc:       pckbd.KeyEscape,
	tea.KeyUp:        pckbd.KeyArrowUp,
	tea.KeyDown:      pckbd.KeyArrowDown,
	tea.KeyLeft:      pckbd.KeyArrowLeft,
	tea.KeyRight:     pckbd.KeyArrowRight,
	tea.KeyHome:      pckbd.KeyHome,
	tea.KeyEnd:       pckbd.KeyEnd,
	tea.KeyPgUp:      pckbd.KeyPageUp,
	tea.KeyPgDown:    pckbd.KeyPageDown,
	tea.KeyDelete:    pckbd.KeyDelete,
	tea.KeyInsert:    pckbd.KeyInsert,
	tea.KeyF1:        pckbd.KeyF1,
	tea.KeyF2:        pckbd.KeyF2,
	tea.KeyF3:        pckbd.KeyF3,
	tea.KeyF4:        pckbd.KeyF4,
	tea.KeyF5:        pckbd.KeyF5,
	tea.KeyF6:        pckbd.KeyF6,
	tea.KeyF7:        pckbd.KeyF7,
	tea.KeyF8:        pckbd.KeyF8,
	tea.KeyF9:        pckbd.KeyF9,
	tea.KeyF10:       pckbd.KeyF10,
	tea.KeyF11:       pckbd.KeyF11,
	tea.KeyF12:       pckbd.KeyF12,
}

// RunMonitor shows the monitor until the user quits or ctx ends.
func RunMonitor(ctx context.Context, cfg MonitorConfig, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(NewMonitorModel(cfg), opts...)
	_, err := program.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	// The tail counts towards width.
	return runewidth.Truncate(value, width, "...")
}
