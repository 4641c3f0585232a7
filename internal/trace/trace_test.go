package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevel_ShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		kind  Kind
		scope Scope
		want  bool
	}{
		{LevelOff, KindWarning, ScopeKernel, false},
		{LevelError, KindWarning, ScopeIRQ, true},
		{LevelError, KindPoint, ScopeKernel, false},
		{LevelInfo, KindSpanBegin, ScopeKernel, true},
		{LevelInfo, KindPoint, ScopeExecutor, false},
		{LevelInfo, KindHeartbeat, ScopeKernel, true},
		{LevelDetail, KindPoint, ScopeIRQ, true},
		{LevelDetail, KindPoint, ScopeTask, false},
		{LevelDebug, KindPoint, ScopeTask, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.kind, tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s, %s) = %v, want %v", tt.level, tt.kind, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"off", "error", "info", "detail", "debug"} {
		l, err := ParseLevel(strings.ToUpper(name))
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", name, err)
		}
		if l.String() != name {
			t.Errorf("ParseLevel(%q) = %s", name, l)
		}
	}
	if l, err := ParseLevel(""); err != nil || l != LevelOff {
		t.Errorf("empty level = %s, %v; want off", l, err)
	}
	if _, err := ParseLevel("phase"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestParseModeAndFormat(t *testing.T) {
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Errorf("ParseMode(both) = %s, %v", m, err)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if f, ok := ParseFormat("json"); !ok || f != FormatNDJSON {
		t.Errorf("ParseFormat(json) = %d, %v", f, ok)
	}
	if _, ok := ParseFormat("xml"); ok {
		t.Error("ParseFormat(xml) accepted")
	}
}

func TestFormatText(t *testing.T) {
	ev := &Event{
		Time:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Kind:     KindPoint,
		Scope:    ScopeExecutor,
		ParentID: 3,
		TaskID:   7,
		Name:     "wake",
		Detail:   "stale",
		Extra:    map[string]string{"b": "2", "a": "1"},
	}
	got := string(FormatEvent(ev, FormatText))
	want := "[12:00:00.000000] executor   • wake #7 (stale) {a=1, b=2}\n"
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestFormatNDJSON(t *testing.T) {
	ev := &Event{Time: time.Now(), Seq: 9, Kind: KindWarning, Scope: ScopeIRQ, Name: "scancode_dropped", Detail: "0x1e"}
	data := FormatEvent(ev, FormatNDJSON)
	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Fatalf("missing newline: %q", data)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["kind"] != "warning" || decoded["scope"] != "irq" || decoded["name"] != "scancode_dropped" {
		t.Errorf("unexpected event: %v", decoded)
	}
	if _, ok := decoded["task_id"]; ok {
		t.Error("zero task_id should be omitted")
	}
}

func TestRingTracer_KeepsLastEvents(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		ring.Emit(&Event{Kind: KindPoint, Scope: ScopeTask, Name: name})
	}
	events := ring.Snapshot()
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	for i, want := range []string{"c", "d", "e"} {
		if events[i].Name != want {
			t.Errorf("events[%d] = %q, want %q", i, events[i].Name, want)
		}
	}
	if events[0].Seq >= events[2].Seq {
		t.Errorf("sequence not increasing: %d, %d", events[0].Seq, events[2].Seq)
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Errorf("dumped %d lines, want 3", lines)
	}
}

func TestRingTracer_FiltersByLevel(t *testing.T) {
	ring := NewRingTracer(8, LevelInfo)
	ring.Emit(&Event{Kind: KindPoint, Scope: ScopeTask, Name: "poll"})
	ring.Emit(&Event{Kind: KindWarning, Scope: ScopeIRQ, Name: "dropped"})
	events := ring.Snapshot()
	if len(events) != 1 || events[0].Name != "dropped" {
		t.Errorf("events = %+v, want only the warning", events)
	}
}

func TestNew(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Fatalf("off level = %v, %v; want Nop", tr, err)
	}

	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelDebug, Mode: ModeBoth, Output: &buf, RingSize: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ring := FindRing(tr)
	if ring == nil {
		t.Fatal("both mode should carry a ring")
	}
	Point(tr, ScopeTask, "poll", 1, "")
	if len(ring.Snapshot()) != 1 {
		t.Error("ring missed the event")
	}
	if !strings.Contains(buf.String(), "poll #1") {
		t.Errorf("stream output = %q", buf.String())
	}

	stream, err := New(Config{Level: LevelInfo, Mode: ModeStream, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if FindRing(stream) != nil {
		t.Error("stream mode should not carry a ring")
	}

	ringOnly, err := New(Config{Level: LevelInfo, Mode: ModeRing})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := ringOnly.(*RingTracer); !ok {
		t.Errorf("ring mode = %T, want *RingTracer", ringOnly)
	}
	if _, err := New(Config{Level: LevelInfo}); err == nil {
		t.Error("expected error for a missing storage mode")
	}
}

func TestSpan(t *testing.T) {
	ring := NewRingTracer(8, LevelInfo)
	span := Begin(ring, ScopeKernel, "boot", 0)
	span.WithExtra("tasks", "2").End("ok")

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Kind != KindSpanBegin || events[1].Kind != KindSpanEnd {
		t.Errorf("kinds = %s, %s", events[0].Kind, events[1].Kind)
	}
	if events[0].SpanID != events[1].SpanID || events[1].SpanID != span.ID() {
		t.Error("span IDs do not match")
	}
	if events[1].Extra["tasks"] != "2" || events[1].Detail != "ok" {
		t.Errorf("end event = %+v", events[1])
	}

	// Below the level: nothing emitted, End still safe.
	BeginTask(ring, "poll", 1).End("")
	if len(ring.Snapshot()) != 2 {
		t.Error("task span emitted at info level")
	}

	var nilSpan *Span
	if nilSpan.End("") != 0 || nilSpan.ID() != 0 {
		t.Error("nil span should be inert")
	}
}

func TestWarnPassesErrorLevel(t *testing.T) {
	ring := NewRingTracer(8, LevelError)
	Point(ring, ScopeKernel, "booted", 0, "")
	Warn(ring, ScopeIRQ, "scancode_dropped", "0x1e")
	Warn(nil, ScopeIRQ, "ignored", "")
	events := ring.Snapshot()
	if len(events) != 1 || events[0].Name != "scancode_dropped" {
		t.Errorf("events = %+v", events)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Error("empty context should yield Nop")
	}
	ring := NewRingTracer(1, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Error("tracer not carried by context")
	}
}

func TestHeartbeat(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Error("heartbeat on a disabled tracer")
	}
	var nilBeat *Heartbeat
	nilBeat.Observe(func() map[string]string { return nil })
	nilBeat.Stop()

	ring := NewRingTracer(256, LevelError)
	hb := StartHeartbeat(ring, time.Millisecond)
	hb.Observe(func() map[string]string { return map[string]string{"live": "2"} })
	deadline := time.Now().Add(2 * time.Second)
	sampled := func() bool {
		for _, ev := range ring.Snapshot() {
			if ev.Extra["live"] == "2" {
				return true
			}
		}
		return false
	}
	for !sampled() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	events := ring.Snapshot()
	if len(events) == 0 || events[0].Kind != KindHeartbeat {
		t.Fatalf("events = %+v, want heartbeats", events)
	}
	if !sampled() {
		t.Error("no heartbeat carried the sampler output")
	}
}
