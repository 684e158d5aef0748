package verify

import (
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/source"
)

func query(b *ast.Builder) source.Span { return b.Next().Span }

func TestEntTrueAndConst(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	if p := StaticProof(ctx, b.Bool(true), query(b)); !p.Provable || p.Rule != RuleTrue {
		t.Fatalf("true: %+v", p)
	}
	sum := b.Bin(ast.OpEq, b.Bin(ast.OpAdd, b.Int("2"), b.Int("3")), b.Int("5"))
	if p := StaticProof(ctx, sum, query(b)); !p.Provable || p.Rule != RuleConst {
		t.Fatalf("2+3==5: %+v", p)
	}
	divZero := b.Bin(ast.OpEq, b.Bin(ast.OpDiv, b.Int("1"), b.Int("0")), b.Int("0"))
	if StaticProof(ctx, divZero, query(b)).Provable {
		t.Fatalf("division by zero must not fold")
	}
	overflow := b.Bin(ast.OpGt, b.Bin(ast.OpAdd, b.Int("9223372036854775807"), b.Int("1")), b.Int("0"))
	if StaticProof(ctx, overflow, query(b)).Provable {
		t.Fatalf("overflow must not fold")
	}
}

func TestEntFactRespectsDominance(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	early := query(b)
	fact := b.Method(b.Ident("s"), "ready")
	ctx.Add(fact, b.Next().Span)
	q := b.Method(b.Ident("s"), "ready")
	if p := StaticProof(ctx, q, query(b)); !p.Provable || p.Rule != RuleFact {
		t.Fatalf("fact should dominate later query: %+v", p)
	}
	if StaticProof(ctx, q, early).Provable {
		t.Fatalf("fact must not dominate an earlier location")
	}
	other := source.Span{File: 2, Start: 1000, End: 1001}
	if StaticProof(ctx, q, other).Provable {
		t.Fatalf("fact must not dominate another file")
	}
}

func TestAndOr(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	ctx.AddConjuncts(b.Bin(ast.OpAnd, b.Ident("p"), b.Ident("q")), b.Next().Span)
	and := b.Bin(ast.OpAnd, b.Ident("q"), b.Ident("p"))
	if p := StaticProof(ctx, and, query(b)); !p.Provable || p.Rule != RuleAnd {
		t.Fatalf("q && p: %+v", p)
	}
	or := b.Bin(ast.OpOr, b.Ident("r"), b.Ident("p"))
	if p := StaticProof(ctx, or, query(b)); !p.Provable || p.Rule != RuleOr {
		t.Fatalf("r || p: %+v", p)
	}
	missing := b.Bin(ast.OpAnd, b.Ident("p"), b.Ident("r"))
	p := StaticProof(ctx, missing, query(b))
	if p.Provable {
		t.Fatalf("p && r should fail")
	}
	if id, ok := p.Failed.(*ast.Ident); !ok || id.Name != "r" {
		t.Fatalf("failed part should be r, got %v", p.Failed)
	}
}

func TestLinearTransitivity(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	sp := b.Next().Span
	ctx.Add(b.Bin(ast.OpLt, b.Ident("x"), b.Ident("y")), sp)
	ctx.Add(b.Bin(ast.OpLt, b.Ident("y"), b.Ident("z")), sp)
	if p := StaticProof(ctx, b.Bin(ast.OpLt, b.Ident("x"), b.Ident("z")), query(b)); !p.Provable || p.Rule != RuleLinear {
		t.Fatalf("x < z: %+v", p)
	}
	if StaticProof(ctx, b.Bin(ast.OpLt, b.Ident("x"), b.Ident("w")), query(b)).Provable {
		t.Fatalf("x < w has no support")
	}
	// x < y < z gives x <= z - 2
	if !StaticProof(ctx, b.Bin(ast.OpLe, b.Bin(ast.OpAdd, b.Ident("x"), b.Int("2")), b.Ident("z")), query(b)).Provable {
		t.Fatalf("x + 2 <= z should follow")
	}
	if StaticProof(ctx, b.Bin(ast.OpLe, b.Bin(ast.OpAdd, b.Ident("x"), b.Int("3")), b.Ident("z")), query(b)).Provable {
		t.Fatalf("x + 3 <= z must not follow")
	}
}

func TestLinearDifferenceExample(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	sp := b.Next().Span
	ctx.Add(b.Bin(ast.OpLe, b.Bin(ast.OpSub, b.Ident("a"), b.Ident("b")), b.Un(ast.OpNeg, b.Int("1"))), sp)
	ctx.Add(b.Bin(ast.OpLe, b.Bin(ast.OpSub, b.Ident("b"), b.Ident("c")), b.Un(ast.OpNeg, b.Int("1"))), sp)
	ac := func(k string) ast.Expr {
		return b.Bin(ast.OpLe, b.Bin(ast.OpSub, b.Ident("a"), b.Ident("c")), b.Un(ast.OpNeg, b.Int(k)))
	}
	if !StaticProof(ctx, ac("2"), query(b)).Provable {
		t.Fatalf("a - c <= -2 follows from the closure")
	}
	if StaticProof(ctx, ac("3"), query(b)).Provable {
		t.Fatalf("a - c <= -3 is stronger than the closure")
	}
}

func TestLinearEqualityAndBounds(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	sp := b.Next().Span
	ctx.Add(b.Bin(ast.OpEq, b.Field(b.Ident("self"), "len"), b.Int("4")), sp)
	ctx.Add(b.Bin(ast.OpGe, b.Ident("i"), b.Int("0")), sp)
	ctx.Add(b.Bin(ast.OpLt, b.Ident("i"), b.Field(b.Ident("self"), "len")), sp)
	cases := []struct {
		pred ast.Expr
		want bool
	}{
		{b.Bin(ast.OpLe, b.Ident("i"), b.Int("3")), true},
		{b.Bin(ast.OpLt, b.Ident("i"), b.Int("3")), false},
		{b.Bin(ast.OpNe, b.Ident("i"), b.Int("4")), true},
		{b.Bin(ast.OpNe, b.Ident("i"), b.Int("2")), false},
		{b.Un(ast.OpNot, b.Bin(ast.OpGt, b.Ident("i"), b.Int("5"))), true},
		{b.Bin(ast.OpGe, b.Bin(ast.OpMul, b.Int("2"), b.Field(b.Ident("self"), "len")), b.Int("8")), false},
		{b.Bin(ast.OpGe, b.Bin(ast.OpMul, b.Ident("i"), b.Ident("i")), b.Int("0")), false},
		{b.Bin(ast.OpEq, b.Bin(ast.OpSub, b.Ident("i"), b.Ident("i")), b.Int("0")), true},
	}
	for i, tc := range cases {
		if got := StaticProof(ctx, tc.pred, query(b)).Provable; got != tc.want {
			t.Errorf("case %d %s: got %v", i, ast.String(tc.pred), got)
		}
	}
}

func TestInconsistentFactsProveAnything(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	sp := b.Next().Span
	ctx.Add(b.Bin(ast.OpLt, b.Ident("x"), b.Ident("y")), sp)
	ctx.Add(b.Bin(ast.OpLt, b.Ident("y"), b.Ident("x")), sp)
	if !StaticProof(ctx, b.Bin(ast.OpGt, b.Ident("u"), b.Ident("v")), query(b)).Provable {
		t.Fatalf("contradictory facts entail every linear query")
	}
}

func TestScopes(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	ctx.Add(b.Ident("outer"), b.Next().Span)
	ctx.PushScope()
	ctx.Add(b.Ident("inner"), b.Next().Span)
	if ctx.Len() != 2 {
		t.Fatalf("expected 2 facts")
	}
	ctx.PopScope()
	if ctx.Len() != 1 || !StaticProof(ctx, b.Ident("outer"), query(b)).Provable {
		t.Fatalf("inner fact should be gone, outer kept")
	}
	if StaticProof(ctx, b.Ident("inner"), query(b)).Provable {
		t.Fatalf("inner fact leaked")
	}
}

func TestGlobalFactsIgnoreOrder(t *testing.T) {
	b := ast.NewBuilder(1)
	early := query(b)
	ctx := NewProofContext()
	ctx.AddGlobalConjuncts(b.Bin(ast.OpGt, b.Ident("n"), b.Int("0")))
	if !StaticProof(ctx, b.Bin(ast.OpGe, b.Ident("n"), b.Int("0")), early).Provable {
		t.Fatalf("global facts dominate everywhere")
	}
}

func TestSubstAndPurity(t *testing.T) {
	b := ast.NewBuilder(1)
	post := b.Bin(ast.OpGe, b.Result(), b.Entry(b.Ident("n")))
	if !ReferencesResult(post) || !ReferencesEntry(post) {
		t.Fatalf("references not detected")
	}
	got := SubstResult(post, b.Bin(ast.OpAdd, b.Ident("n"), b.Int("1")))
	if ReferencesResult(got) || !ReferencesResult(post) {
		t.Fatalf("substitution must copy, not mutate")
	}
	if s := ast.String(SubstEntry(got)); s != "((n + 1) >= n)" {
		t.Fatalf("got %s", s)
	}
	renamed := SubstIdents(b.Bin(ast.OpLt, b.Ident("x"), b.Ident("y")), map[string]ast.Expr{"x": b.Int("3")})
	if s := ast.String(renamed); s != "(3 < y)" {
		t.Fatalf("got %s", s)
	}
	if ok, _ := IsPure(b.Call(b.Path("len"), b.Ident("v"))); !ok {
		t.Fatalf("procedure calls are pure")
	}
	if ok, bad := IsPure(b.Bin(ast.OpGt, b.Method(b.Ident("v"), "len"), b.Int("0"))); ok || bad == nil {
		t.Fatalf("method calls are treated as impure")
	}
}

func TestHideUntilScopePops(t *testing.T) {
	b := ast.NewBuilder(1)
	ctx := NewProofContext()
	ctx.PushScope()
	ctx.Add(b.Bin(ast.OpGt, b.Ident("x"), b.Int("0")), b.Next().Span)
	ctx.Add(b.Bin(ast.OpGt, b.Ident("y"), b.Int("0")), b.Next().Span)

	ctx.PushScope()
	ctx.Hide("x")
	if n := len(ctx.Facts()); n != 1 || ctx.Len() != 2 {
		t.Fatalf("visible %d of %d facts, want 1 of 2", n, ctx.Len())
	}
	if StaticProof(ctx, b.Bin(ast.OpGe, b.Ident("x"), b.Int("0")), query(b)).Provable {
		t.Fatalf("hidden fact about x was used")
	}
	ctx.PopScope()
	if !StaticProof(ctx, b.Bin(ast.OpGe, b.Ident("x"), b.Int("0")), query(b)).Provable {
		t.Fatalf("fact about x must be visible again after the shadowing scope")
	}
	if !Mentions(b.Bin(ast.OpAdd, b.Ident("a"), b.Ident("x")), "x") || Mentions(b.Ident("xs"), "x") {
		t.Fatalf("Mentions matches whole identifiers only")
	}
}
