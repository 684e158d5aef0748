package ast

import "testing"

func TestEqualIgnoresSpansAndSeparators(t *testing.T) {
	b := NewBuilder(1)
	x := b.Bin(OpLt, b.Ident("x"), b.Int("1_000"))
	y := b.Bin(OpLt, b.Ident("x"), b.Int("1000"))
	if !Equal(x, y) {
		t.Fatalf("expected structural equality of %s and %s", String(x), String(y))
	}
	if IDOf(x) == IDOf(y) {
		t.Fatalf("builder must allocate distinct ids")
	}
	z := b.Bin(OpLe, b.Ident("x"), b.Int("1000"))
	if Equal(x, z) {
		t.Fatalf("different operators must not be equal")
	}
}

func TestEqualCallsAndFields(t *testing.T) {
	b := NewBuilder(1)
	f1 := b.Call(b.Path("m", "len"), b.Field(b.Ident("s"), "buf"))
	f2 := b.Call(b.Path("m", "len"), b.Field(b.Ident("s"), "buf"))
	if !Equal(f1, f2) {
		t.Fatalf("calls should be equal")
	}
	f3 := b.CallArgs(b.Path("m", "len"), Arg{Moved: true, X: b.Field(b.Ident("s"), "buf")})
	if Equal(f1, f3) {
		t.Fatalf("move argument must differ from copy argument")
	}
}

func TestBuilderSpansIncrease(t *testing.T) {
	b := NewBuilder(3)
	first := b.Ident("a")
	second := b.Ident("b")
	if !first.Span.Precedes(second.Span) || second.Span.Precedes(first.Span) {
		t.Fatalf("spans must be strictly ordered: %v %v", first.Span, second.Span)
	}
	if first.Span.File != 3 {
		t.Fatalf("unexpected file %d", first.Span.File)
	}
	if b.Count() != 2 {
		t.Fatalf("expected 2 nodes, got %d", b.Count())
	}
}

func TestStringAndInspect(t *testing.T) {
	b := NewBuilder(1)
	e := b.Bin(OpAnd,
		b.Bin(OpGe, b.Result(), b.Int("0")),
		b.Bin(OpEq, b.Entry(b.Ident("n")), b.Un(OpNeg, b.Ident("m"))))
	if got, want := String(e), "((@result >= 0) && (@entry(n) == -m))"; got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}
	idents := 0
	Inspect(e, func(x Expr) bool {
		if _, ok := x.(*Ident); ok {
			idents++
		}
		return true
	})
	if idents != 2 {
		t.Fatalf("expected 2 identifiers, got %d", idents)
	}
}

func TestIsPlace(t *testing.T) {
	b := NewBuilder(1)
	if !IsPlace(b.Field(b.Ident("p"), "x")) {
		t.Fatalf("field of ident is a place")
	}
	if IsPlace(b.Int("1")) || IsPlace(b.Move(b.Ident("p"))) {
		t.Fatalf("literal and move are not places")
	}
	root, ok := RootIdent(b.Index(b.Field(b.Ident("arr"), "data"), b.Int("0")))
	if !ok || root.Name != "arr" {
		t.Fatalf("unexpected root %v", root)
	}
}
