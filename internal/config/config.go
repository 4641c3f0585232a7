// Package config loads ember.toml, the machine and kernel settings file.
//
//	[executor]
//	wake_queue_capacity = 100
//
//	[keyboard]
//	queue_capacity = 100
//	overflow = "drop-newest"   # or "drop-oldest"
//	layout = "us104"
//	control = "ignore"         # or "map-letters"
//
//	[machine]
//	input_buffer = 256
//
//	[console]
//	color = "auto"             # auto | on | off
//
//	[trace]
//	level = "off"              # off | error | info | detail | debug
//	mode = "stream"            # stream | ring | both
//	output = "-"
//	ring_size = 4096
//	heartbeat = "0s"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"ember/internal/asyncrt"
	"ember/internal/machine"
	"ember/internal/pckbd"
	"ember/internal/scancode"
	"ember/internal/trace"
)

// FileName is the settings file looked up by Find.
const FileName = "ember.toml"

// Config mirrors ember.toml.
type Config struct {
	Executor ExecutorConfig `toml:"executor"`
	Keyboard KeyboardConfig `toml:"keyboard"`
	Machine  MachineConfig  `toml:"machine"`
	Console  ConsoleConfig  `toml:"console"`
	Trace    TraceConfig    `toml:"trace"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// ExecutorConfig is the [executor] table.
type ExecutorConfig struct {
	WakeQueueCapacity int64 `toml:"wake_queue_capacity"`
}

// KeyboardConfig is the [keyboard] table.
type KeyboardConfig struct {
	QueueCapacity int64  `toml:"queue_capacity"`
	Overflow      string `toml:"overflow"`
	Layout        string `toml:"layout"`
	Control       string `toml:"control"`
}

// MachineConfig is the [machine] table.
type MachineConfig struct {
	InputBuffer int64 `toml:"input_buffer"`
}

// ConsoleConfig is the [console] table.
type ConsoleConfig struct {
	Color string `toml:"color"`
}

// TraceConfig is the [trace] table.
type TraceConfig struct {
	Level     string `toml:"level"`
	Mode      string `toml:"mode"`
	Format    string `toml:"format"`
	Output    string `toml:"output"`
	RingSize  int64  `toml:"ring_size"`
	Heartbeat string `toml:"heartbeat"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Executor: ExecutorConfig{WakeQueueCapacity: asyncrt.DefaultWakeQueueCapacity},
		Keyboard: KeyboardConfig{
			QueueCapacity: scancode.DefaultCapacity,
			Overflow:      scancode.DropNewest.String(),
			Layout:        "us104",
			Control:       pckbd.Ignore.String(),
		},
		Machine: MachineConfig{InputBuffer: machine.DefaultInputBuffer},
		Console: ConsoleConfig{Color: "auto"},
		Trace: TraceConfig{
			Level:    trace.LevelOff.String(),
			Mode:     trace.ModeStream.String(),
			Output:   "-",
			RingSize: trace.DefaultRingSize,
		},
	}
}

// Find walks up from startDir looking for ember.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path on top of the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads explicit if set, otherwise the nearest ember.toml above
// startDir, otherwise the defaults.
func Resolve(explicit, startDir string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := c.WakeQueueCapacity(); err != nil {
		return err
	}
	if _, err := c.ScancodeCapacity(); err != nil {
		return err
	}
	if _, err := c.InputBuffer(); err != nil {
		return err
	}
	if _, err := c.Overflow(); err != nil {
		return err
	}
	if _, err := c.Layout(); err != nil {
		return err
	}
	if _, err := c.Control(); err != nil {
		return err
	}
	switch strings.ToLower(c.Console.Color) {
	case "", "auto", "on", "off":
	default:
		return fmt.Errorf("[console].color: invalid value %q (expected: auto|on|off)", c.Console.Color)
	}
	if _, err := c.TraceConfig(); err != nil {
		return err
	}
	return nil
}

// WakeQueueCapacity returns [executor].wake_queue_capacity.
func (c *Config) WakeQueueCapacity() (int, error) {
	return capacity("[executor].wake_queue_capacity", c.Executor.WakeQueueCapacity)
}

// ScancodeCapacity returns [keyboard].queue_capacity.
func (c *Config) ScancodeCapacity() (int, error) {
	return capacity("[keyboard].queue_capacity", c.Keyboard.QueueCapacity)
}

// InputBuffer returns [machine].input_buffer.
func (c *Config) InputBuffer() (int, error) {
	return capacity("[machine].input_buffer", c.Machine.InputBuffer)
}

// Overflow returns [keyboard].overflow.
func (c *Config) Overflow() (scancode.Overflow, error) {
	o, err := scancode.ParseOverflow(c.Keyboard.Overflow)
	if err != nil {
		return o, fmt.Errorf("[keyboard].overflow: %w", err)
	}
	return o, nil
}

// Layout returns [keyboard].layout.
func (c *Config) Layout() (pckbd.Layout, error) {
	l, err := pckbd.LayoutByName(c.Keyboard.Layout)
	if err != nil {
		return nil, fmt.Errorf("[keyboard].layout: %w", err)
	}
	return l, nil
}

// Control returns [keyboard].control.
func (c *Config) Control() (pckbd.HandleControl, error) {
	h, err := pckbd.ParseHandleControl(c.Keyboard.Control)
	if err != nil {
		return h, fmt.Errorf("[keyboard].control: %w", err)
	}
	return h, nil
}

// TraceConfig converts the [trace] table.
func (c *Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, fmt.Errorf("[trace].level: %w", err)
	}
	mode := trace.ModeStream
	if c.Trace.Mode != "" {
		if mode, err = trace.ParseMode(c.Trace.Mode); err != nil {
			return trace.Config{}, fmt.Errorf("[trace].mode: %w", err)
		}
	}
	format, ok := trace.ParseFormat(c.Trace.Format)
	if !ok {
		return trace.Config{}, fmt.Errorf("[trace].format: invalid value %q (expected: auto|text|ndjson)", c.Trace.Format)
	}
	ringSize, err := safecast.Conv[int](c.Trace.RingSize)
	if err != nil || ringSize < 0 {
		return trace.Config{}, fmt.Errorf("[trace].ring_size: invalid value %d", c.Trace.RingSize)
	}
	var heartbeat time.Duration
	if c.Trace.Heartbeat != "" {
		if heartbeat, err = time.ParseDuration(c.Trace.Heartbeat); err != nil {
			return trace.Config{}, fmt.Errorf("[trace].heartbeat: %w", err)
		}
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: c.Trace.Output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	}, nil
}

func capacity(key string, v int64) (int, error) {
	if v <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", key, v)
	}
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
