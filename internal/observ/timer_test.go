package observ

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeClock advances by step on every call.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimer_Track(t *testing.T) {
	timer := NewTimer()
	timer.now = fakeClock(time.Millisecond)

	if err := timer.Track("banner", func() error { return nil }); err != nil {
		t.Fatalf("Track: %v", err)
	}
	boom := errors.New("boom")
	if err := timer.Track("executor", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Track error = %v, want boom", err)
	}

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(report.Phases))
	}
	if report.Phases[0].Name != "banner" || report.Phases[0].DurationMS != 1 {
		t.Errorf("phase 0 = %+v", report.Phases[0])
	}
	if report.Phases[1].Note != "failed" {
		t.Errorf("phase 1 note = %q, want failed", report.Phases[1].Note)
	}
	if report.TotalMS != 2 {
		t.Errorf("total = %v, want 2", report.TotalMS)
	}

	summary := timer.Summary()
	for _, want := range []string{"boot timings:", "banner", "executor", "// failed", "total"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestTimer_NilSafe(t *testing.T) {
	var timer *Timer
	called := false
	err := timer.Track("spawn", func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if !called {
		t.Error("nil timer must still run the phase")
	}
	timer.End(timer.Begin("x"), "")
	if r := timer.Report(); len(r.Phases) != 0 {
		t.Errorf("nil timer report = %+v", r)
	}
}

func TestTimer_EndOutOfRange(t *testing.T) {
	timer := NewTimer()
	timer.End(5, "ignored")
	timer.End(-1, "ignored")
	if len(timer.Report().Phases) != 0 {
		t.Error("End without Begin recorded a phase")
	}
}
