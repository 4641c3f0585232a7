package tape

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

type sink struct {
	codes []byte
	at    []time.Time
	fail  byte
}

func (s *sink) Inject(_ context.Context, code byte) error {
	if s.fail != 0 && code == s.fail {
		return errors.New("controller full")
	}
	s.codes = append(s.codes, code)
	s.at = append(s.at, time.Now())
	return nil
}

func TestSaveLoad(t *testing.T) {
	tp := New("us104")
	tp.Events = []Event{{Scancode: 0x1E}, {DelayMicros: 1500, Scancode: 0x9E}}

	path := filepath.Join(t.TempDir(), "session.tape")
	if err := Save(path, tp); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Layout != "us104" || len(got.Events) != 2 || got.Events[1] != tp.Events[1] {
		t.Errorf("loaded %+v, want %+v", got, tp)
	}
	if got.ID != tp.ID || !got.Created.Equal(tp.Created) {
		t.Errorf("identity changed: %s %s, want %s %s", got.ID, got.Created, tp.ID, tp.Created)
	}
	if _, err := uuid.Parse(got.ID); err != nil {
		t.Errorf("tape ID %q is not a UUID: %v", got.ID, err)
	}
	if got.Duration() != 1500*time.Microsecond {
		t.Errorf("Duration = %s", got.Duration())
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".tape-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestDecode_RejectsOtherVersions(t *testing.T) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&Tape{Version: 99}); err != nil {
		t.Fatal(err)
	}
	_, err := Decode(&buf)
	if !errors.Is(err, ErrVersion) {
		t.Fatalf("Decode error = %v, want ErrVersion", err)
	}
	if _, err := Decode(bytes.NewReader([]byte{0xC1})); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestFromScancodes(t *testing.T) {
	codes := []byte{0x2A, 0x1E, 0x9E, 0xAA}
	tp := FromScancodes(codes)
	if !bytes.Equal(tp.Scancodes(), codes) {
		t.Errorf("Scancodes = % x, want % x", tp.Scancodes(), codes)
	}
	if tp.Duration() != 0 {
		t.Errorf("Duration = %s, want 0", tp.Duration())
	}
	if other := FromScancodes(codes); other.ID == tp.ID {
		t.Error("two tapes share an ID")
	}
	if want := "tape " + tp.ID + ": 4 scancodes over 0s"; tp.String() != want {
		t.Errorf("String = %q, want %q", tp.String(), want)
	}
}

func TestRecorder(t *testing.T) {
	now := time.Unix(100, 0)
	rec := NewRecorder("us104")
	rec.now = func() time.Time { return now }

	dst := &sink{fail: 0xFF}
	in := rec.Wrap(dst)
	ctx := context.Background()
	if err := in.Inject(ctx, 0x1E); err != nil {
		t.Fatal(err)
	}
	now = now.Add(20 * time.Millisecond)
	if err := in.Inject(ctx, 0x9E); err != nil {
		t.Fatal(err)
	}
	// Rejected codes are not recorded.
	if err := in.Inject(ctx, 0xFF); err == nil {
		t.Fatal("expected injection error")
	}

	tp := rec.Tape()
	want := []Event{{Scancode: 0x1E}, {DelayMicros: 20000, Scancode: 0x9E}}
	if len(tp.Events) != len(want) {
		t.Fatalf("events = %+v, want %+v", tp.Events, want)
	}
	for i := range want {
		if tp.Events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, tp.Events[i], want[i])
		}
	}
	if !bytes.Equal(dst.codes, []byte{0x1E, 0x9E}) {
		t.Errorf("forwarded % x", dst.codes)
	}

	// The snapshot does not change with later recordings.
	rec.Record(0x30)
	if len(tp.Events) != 2 || len(rec.Tape().Events) != 3 {
		t.Error("Tape should return a copy")
	}
}

func TestPlay(t *testing.T) {
	tp := New("")
	tp.Events = []Event{{Scancode: 1}, {DelayMicros: 30000, Scancode: 2}, {Scancode: 3}}

	fast := &sink{}
	start := time.Now()
	if err := Play(context.Background(), tp, fast, false); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !bytes.Equal(fast.codes, []byte{1, 2, 3}) {
		t.Errorf("played % x", fast.codes)
	}
	if time.Since(start) > 25*time.Millisecond {
		t.Error("fast playback waited for recorded pauses")
	}

	slow := &sink{}
	if err := Play(context.Background(), tp, slow, true); err != nil {
		t.Fatalf("Play realtime: %v", err)
	}
	if gap := slow.at[1].Sub(slow.at[0]); gap < 30*time.Millisecond {
		t.Errorf("realtime gap = %s, want >= 30ms", gap)
	}
}

func TestPlay_StopsOnCancelAndError(t *testing.T) {
	tp := New("")
	tp.Events = []Event{{Scancode: 1}, {DelayMicros: 10_000_000, Scancode: 2}}

	ctx, cancel := context.WithCancel(context.Background())
	dst := &sink{}
	done := make(chan error, 1)
	go func() { done <- Play(ctx, tp, dst, true) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Play = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not stop on cancel")
	}

	failing := &sink{fail: 2}
	tp.Events[1].DelayMicros = 0
	if err := Play(context.Background(), tp, failing, false); err == nil {
		t.Error("expected injection error")
	}
}

func TestMicrosClamps(t *testing.T) {
	if got := micros(-time.Second); got != 0 {
		t.Errorf("micros(-1s) = %d", got)
	}
	if got := micros(2 * time.Hour); got != 1<<32-1 {
		t.Errorf("micros(2h) = %d, want max", got)
	}
	if got := micros(1500 * time.Microsecond); got != 1500 {
		t.Errorf("micros(1.5ms) = %d", got)
	}
}
