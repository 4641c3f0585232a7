// Package tape records scancodes typed into the hosted machine and plays them
// back. Tapes are stored as msgpack.
package tape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the Tape format changes.
const schemaVersion uint16 = 1

// ErrVersion is returned when a tape was written by an incompatible version.
var ErrVersion = errors.New("unsupported tape version")

// Event is one scancode and the pause that preceded it.
type Event struct {
	DelayMicros uint32 `msgpack:"d"`
	Scancode    byte   `msgpack:"s"`
}

// Tape is a recorded keyboard session.
type Tape struct {
	Version uint16    `msgpack:"v"`
	ID      string    `msgpack:"id"`
	Created time.Time `msgpack:"created"`
	Layout  string    `msgpack:"layout,omitempty"`
	Events  []Event   `msgpack:"events"`
}

// New returns an empty tape of the current version with a fresh ID.
func New(layout string) *Tape {
	return &Tape{
		Version: schemaVersion,
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		Layout:  layout,
	}
}

// String describes the tape in one line.
func (t *Tape) String() string {
	return fmt.Sprintf("tape %s: %d scancodes over %s", t.ID, len(t.Events), t.Duration())
}

// FromScancodes builds a tape with no pauses.
func FromScancodes(codes []byte) *Tape {
	t := New("")
	t.Events = make([]Event, len(codes))
	for i, code := range codes {
		t.Events[i] = Event{Scancode: code}
	}
	return t
}

// Scancodes returns the recorded bytes in order.
func (t *Tape) Scancodes() []byte {
	out := make([]byte, len(t.Events))
	for i, ev := range t.Events {
		out[i] = ev.Scancode
	}
	return out
}

// Duration is the sum of all recorded pauses.
func (t *Tape) Duration() time.Duration {
	var total time.Duration
	for _, ev := range t.Events {
		total += time.Duration(ev.DelayMicros) * time.Microsecond
	}
	return total
}

// Encode writes t to w.
func Encode(w io.Writer, t *Tape) error {
	return msgpack.NewEncoder(w).Encode(t)
}

// Decode reads a tape from r.
func Decode(r io.Reader) (*Tape, error) {
	var t Tape
	if err := msgpack.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode tape: %w", err)
	}
	if t.Version != schemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, t.Version)
	}
	return &t, nil
}

// Save writes t to path through a temp file and a rename.
func Save(path string, t *Tape) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".tape-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if _, statErr := os.Stat(tmp); statErr == nil {
			_ = os.Remove(tmp) //nolint:errcheck // cleanup after a failed save
		}
	}()
	if err := Encode(f, t); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a tape file.
func Load(path string) (*Tape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // read-only
	}()
	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Injector accepts scancodes. machine.PS2 implements it.
type Injector interface {
	Inject(ctx context.Context, code byte) error
}

// Recorder captures scancodes along with the pauses between them.
type Recorder struct {
	mu   sync.Mutex
	tape *Tape
	last time.Time
	now  func() time.Time
}

// NewRecorder starts an empty recording.
func NewRecorder(layout string) *Recorder {
	return &Recorder{tape: New(layout), now: time.Now}
}

// Record appends code. The first event has no delay.
func (r *Recorder) Record(code byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var delay uint32
	if !r.last.IsZero() {
		delay = micros(now.Sub(r.last))
	}
	r.last = now
	r.tape.Events = append(r.tape.Events, Event{DelayMicros: delay, Scancode: code})
}

// Tape returns a copy of what has been recorded so far.
func (r *Recorder) Tape() *Tape {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := *r.tape
	t.Events = append([]Event(nil), r.tape.Events...)
	return &t
}

// Wrap returns an Injector that records every scancode dst accepts.
func (r *Recorder) Wrap(dst Injector) Injector {
	return recording{rec: r, dst: dst}
}

type recording struct {
	rec *Recorder
	dst Injector
}

func (w recording) Inject(ctx context.Context, code byte) error {
	if err := w.dst.Inject(ctx, code); err != nil {
		return err
	}
	w.rec.Record(code)
	return nil
}

// Play injects every event of t into dst. With realtime set the recorded
// pauses are reproduced, otherwise events go in as fast as dst accepts them.
func Play(ctx context.Context, t *Tape, dst Injector, realtime bool) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for _, ev := range t.Events {
		if realtime && ev.DelayMicros > 0 {
			d := time.Duration(ev.DelayMicros) * time.Microsecond
			if timer == nil {
				timer = time.NewTimer(d)
			} else {
				timer.Reset(d)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := dst.Inject(ctx, ev.Scancode); err != nil {
			return err
		}
	}
	return nil
}

func micros(d time.Duration) uint32 {
	v, err := safecast.Conv[uint32](d.Microseconds())
	if err != nil {
		if d < 0 {
			return 0
		}
		return math.MaxUint32
	}
	return v
}
