package symbols

import (
	"testing"

	"cursive0/internal/types"
)

func TestPathKeyOfNFC(t *testing.T) {
	composed := PathKeyOf([]string{"caf\u00e9", "Menu"})
	decomposed := PathKeyOf([]string{"cafe\u0301", "Menu"})
	if composed != decomposed {
		t.Fatalf("NFC keys differ: %q vs %q", composed, decomposed)
	}
	if PathKeyOf([]string{"Menu"}) == PathKeyOf([]string{"menu"}) {
		t.Fatalf("case must be preserved")
	}
	if got := PathKeyOf([]string{"a", "b"}); got != "a::b" {
		t.Fatalf("got %q", got)
	}
}

func TestBuiltins(t *testing.T) {
	s := NewSigma()
	RegisterBuiltins(s)
	opts, ok := s.Record([]string{RegionOptionsName})
	if !ok || len(opts.Fields) != 2 {
		t.Fatalf("RegionOptions missing")
	}
	if _, ok := s.LookupClass([]string{HeapAllocatorName}); !ok {
		t.Fatalf("HeapAllocator missing")
	}
	file, ok := s.Modal([]string{FileName})
	if !ok {
		t.Fatalf("File missing")
	}
	open, _, ok := file.State("Open")
	if !ok || open.Methods["close"] == nil {
		t.Fatalf("File@Open.close missing")
	}
	if !types.Equal(open.Methods["close"].Ret, types.MkState(types.Path{FileName}, "Closed")) {
		t.Fatalf("close returns %s", open.Methods["close"].Ret)
	}
	if _, ok := StringMethod("len"); !ok {
		t.Fatalf("string::len missing")
	}
	if len(BuiltinStringProcs()) != 7 {
		t.Fatalf("unexpected builtin string procs")
	}
}

func TestSigmaRejectsDuplicates(t *testing.T) {
	s := NewSigma()
	if !s.AddType(&RecordInfo{Path: types.Path{"P"}}) {
		t.Fatalf("first add failed")
	}
	if s.AddType(&EnumInfo{Path: types.Path{"P"}}) {
		t.Fatalf("duplicate type accepted")
	}
	if s.AddClass(&ClassInfo{Path: types.Path{"P"}}) {
		t.Fatalf("class shadowing a type accepted")
	}
}
