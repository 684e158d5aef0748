package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelShouldEmit(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeModule) {
		t.Fatal("phase level must not emit module scope")
	}
	if !LevelDetail.ShouldEmit(ScopeModule) || LevelDetail.ShouldEmit(ScopeDecl) {
		t.Fatal("detail level must emit module but not decl scope")
	}
	if !LevelDebug.ShouldEmit(ScopeDecl) {
		t.Fatal("debug level must emit everything")
	}
}

func TestRingSpanRoundTrip(t *testing.T) {
	ring := NewRingTracer(8, LevelDetail)
	root := Begin(ring, ScopePass, "check", 0)
	child := Begin(ring, ScopeModule, "module:app", root.ID())
	child.WithExtra("decls", "3").End("")
	Begin(ring, ScopeDecl, "proc:main", child.ID()).End("filtered")
	root.End("ok")

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].ParentID != events[0].SpanID {
		t.Fatalf("child span must point at parent: %+v", events[1])
	}
	if events[2].Extra["decls"] != "3" {
		t.Fatalf("missing extra on end event: %+v", events[2])
	}
	if events[3].Kind != KindSpanEnd || events[3].Detail != "ok" {
		t.Fatalf("unexpected last event: %+v", events[3])
	}
}

func TestRingWraps(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeDecl, name, "", 0)
	}
	events := ring.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("unexpected ring contents: %+v", events)
	}
}

func TestStreamTextAndContext(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelPhase, FormatText)
	ctx := WithTracer(context.Background(), st)
	sp := Begin(FromContext(ctx), ScopePass, "emit", 0)
	sp.End("done")
	if buf.Len() != 0 {
		t.Fatal("stream wrote before Flush")
	}
	if err := st.Flush(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "→ emit") || !strings.Contains(out, "← emit (done)") {
		t.Fatalf("unexpected stream output:\n%s", out)
	}
	if FromContext(context.Background()) != Nop {
		t.Fatal("missing tracer must resolve to Nop")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("expected disabled tracer, got %v %v", tr, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLevelNamesRoundTrip(t *testing.T) {
	for _, l := range []Level{LevelOff, LevelError, LevelPhase, LevelDetail, LevelDebug} {
		got, err := ParseLevel(strings.ToUpper(l.String()))
		if err != nil || got != l {
			t.Fatalf("ParseLevel(%s) = %v, %v", l, got, err)
		}
	}
	if LevelError.ShouldEmit(ScopeDriver) {
		t.Fatal("error level admits no spans")
	}
}

func TestMultiFansOutAndNDJSON(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(2, LevelPhase)
	multi := NewMultiTracer(LevelPhase, NewStreamTracer(&buf, LevelPhase, FormatNDJSON), ring, Nop, nil)
	Begin(multi, ScopePass, "lower", 0).End("3 procs")
	if err := multi.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(ring.Snapshot()) != 2 {
		t.Fatalf("ring got %d events", len(ring.Snapshot()))
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"kind":"end"`) || !strings.Contains(lines[1], `"detail":"3 procs"`) {
		t.Fatalf("unexpected ndjson:\n%s", buf.String())
	}
	Point(ring, ScopePass, "x", "", 0)
	if ring.Dropped() != 1 {
		t.Fatalf("dropped = %d", ring.Dropped())
	}
}
