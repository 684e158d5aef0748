package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("check")
	tm.End(idx, "2 modules")
	tm.End(42, "ignored")
	rep := tm.Report()
	if len(rep.Phases) != 1 || rep.Phases[0].Name != "check" || rep.Phases[0].Note != "2 modules" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if !strings.Contains(tm.Summary(), "// 2 modules") {
		t.Fatalf("summary misses note:\n%s", tm.Summary())
	}
	var nilTimer *Timer
	if nilTimer.Begin("x") != -1 {
		t.Fatal("nil timer must be inert")
	}
}

func TestTimerDurationsAndDoubleEnd(t *testing.T) {
	base := time.Unix(0, 0)
	clock := base
	tm := NewTimer()
	tm.now = func() time.Time { return clock }

	a := tm.Begin("lower")
	clock = clock.Add(3 * time.Millisecond)
	tm.End(a, "")
	clock = clock.Add(time.Millisecond)
	tm.End(a, "late")
	b := tm.Begin("emit")
	clock = clock.Add(2 * time.Millisecond)
	tm.End(b, "")

	rep := tm.Report()
	if rep.Phases[0].DurationMS != 3 || rep.Phases[0].Note != "" || rep.TotalMS != 5 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if !strings.Contains(tm.Summary(), "  total     5.00 ms") {
		t.Fatalf("summary:\n%s", tm.Summary())
	}
}
