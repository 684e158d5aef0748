package types

import (
	"testing"

	"cursive0/internal/ast"
)

func TestPermSubLattice(t *testing.T) {
	perms := []Permission{PermConst, PermUnique, PermShared}
	want := map[[2]Permission]bool{
		{PermConst, PermConst}:   true,
		{PermUnique, PermUnique}: true,
		{PermUnique, PermConst}:  true,
	}
	for _, a := range perms {
		for _, b := range perms {
			if got := PermSub(a, b); got != want[[2]Permission{a, b}] {
				t.Errorf("PermSub(%s, %s) = %v", a, b, got)
			}
		}
	}
}

func TestMkPermNeverNests(t *testing.T) {
	inner := MkPerm(PermUnique, I32)
	outer := MkPerm(PermConst, inner)
	p, ok := outer.(*Perm)
	if !ok || p.Perm != PermConst {
		t.Fatalf("unexpected %s", outer)
	}
	if _, nested := p.Base.(*Perm); nested {
		t.Fatalf("perm nested under perm: %s", outer)
	}
	if !Equal(StripPerm(outer), I32) {
		t.Fatalf("StripPerm(%s) != i32", outer)
	}
}

func TestEqualStructural(t *testing.T) {
	b := ast.NewBuilder(1)
	r1 := &Refine{Base: I32, Pred: b.Bin(ast.OpGt, b.Ident("self"), b.Int("0"))}
	r2 := &Refine{Base: I32, Pred: b.Bin(ast.OpGt, b.Ident("self"), b.Int("0"))}
	cases := []struct {
		a, b Type
		eq   bool
	}{
		{MkTuple(I32, Bool), MkTuple(I32, Bool), true},
		{MkTuple(I32, Bool), MkTuple(Bool, I32), false},
		{MkTuple(), Unit, true},
		{MkArray(U8, 4), MkArray(U8, 4), true},
		{MkArray(U8, 4), MkArray(U8, 5), false},
		{MkNamed("geom", "Point"), MkNamed("geom", "Point"), true},
		{MkState(Path{"File"}, "Open"), MkState(Path{"File"}, "Closed"), false},
		{MkPtr(I32, PtrValid), MkPtr(I32, PtrNoState), false},
		{r1, r2, true},
		{MkString(StrView), MkString(StrManaged), false},
	}
	for i, tc := range cases {
		if got := Equal(tc.a, tc.b); got != tc.eq {
			t.Errorf("case %d: Equal(%s, %s) = %v", i, tc.a, tc.b, got)
		}
		if tc.eq && Key(tc.a) != Key(tc.b) {
			t.Errorf("case %d: equal types with distinct keys %q %q", i, Key(tc.a), Key(tc.b))
		}
	}
}

func TestStringRendering(t *testing.T) {
	f := MkFunc(Unit, FuncParam{Mode: ModeMove, Type: MkNamed("Buf")}, FuncParam{Type: MkPerm(PermUnique, I32)})
	if got, want := f.String(), "(move Buf, unique i32) -> ()"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := MkPtr(U8, PtrNull).String(); got != "Ptr<u8>@Null" {
		t.Fatalf("got %q", got)
	}
}

func TestSubst(t *testing.T) {
	in := &Named{Path: Path{"Box"}, Args: []Type{&TypeParam{Name: "T"}}}
	out := Subst(in, map[string]Type{"T": I64})
	if !Equal(out, &Named{Path: Path{"Box"}, Args: []Type{I64}}) {
		t.Fatalf("Subst = %s", out)
	}
}

func TestIntBits(t *testing.T) {
	if IntBits(USize, 64) != 64 || IntBits(I16, 64) != 16 || IntBits(Bool, 64) != 0 {
		t.Fatalf("unexpected widths")
	}
	if !IsSigned(MkPerm(PermConst, I8)) || IsSigned(U8) {
		t.Fatalf("signedness ignores permission")
	}
}
