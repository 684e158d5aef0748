package lower_test

import (
	"bytes"
	"strings"
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/ir"
	"cursive0/internal/layout"
	"cursive0/internal/lower"
	"cursive0/internal/sema"
)

type lowered struct {
	bag *diag.Bag
	mod *ir.Module
	err error
}

func lowerItems(t *testing.T, items ...ast.Decl) lowered {
	t.Helper()
	bag := diag.NewBag(64)
	rep := diag.BagReporter{Bag: bag}
	opts := sema.Options{Reporter: rep, Target: layout.X86_64LinuxGNU()}
	mod := &ast.Module{Path: []string{"main"}, File: 1, Items: items}
	prog := sema.BuildSigma(&ast.Program{Modules: []*ast.Module{mod}}, opts)
	ctx := prog.Context(mod.Path, opts.Target)
	res := sema.CheckModule(ctx, mod, opts)
	if bag.HasErrors() {
		t.Fatalf("check failed: %v", bag.Items())
	}
	out, err := lower.Module(ctx, mod, res, lower.Options{Reporter: rep})
	return lowered{bag: bag, mod: out, err: err}
}

func dump(t *testing.T, m *ir.Module) string {
	t.Helper()
	var buf bytes.Buffer
	if err := ir.Dump(&buf, m); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	return buf.String()
}

func expectLowered(t *testing.T, got lowered, want ...string) string {
	t.Helper()
	if got.err != nil {
		t.Fatalf("lower: %v", got.err)
	}
	if got.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", got.bag.Items())
	}
	out := dump(t, got.mod)
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("IR lacks %q:\n%s", w, out)
		}
	}
	return out
}

func TestLowersArithmetic(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("a", b.Prim("i32")), b.Param("b", b.Prim("i32"))}
	add := b.Proc("add", params, b.Prim("i32"), b.Block(b.Bin(ast.OpAdd, b.Ident("a"), b.Ident("b"))))
	expectLowered(t, lowerItems(t, add),
		"proc @main::add(a: i32, b: i32) -> i32",
		"%t1 = add i32 $a, $b",
		"return %t1",
	)
}

func TestLiterals(t *testing.T) {
	cases := []struct {
		name string
		ret  string
		expr func(b *ast.Builder) ast.Expr
		want string
	}{
		{"u16", "u16", func(b *ast.Builder) ast.Expr { return b.Int("0x1234") }, "return 4660:u16"},
		{"i8_min", "i8", func(b *ast.Builder) ast.Expr { return b.Un(ast.OpNeg, b.Int("128")) }, "return 128:i8"},
		{"bool", "bool", func(b *ast.Builder) ast.Expr { return b.Bool(true) }, "return true"},
		{"char", "char", func(b *ast.Builder) ast.Expr { return b.Char("A") }, "return 65:char"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := ast.NewBuilder(1)
			p := b.Proc("f", nil, b.Prim(tc.ret), b.Block(tc.expr(b)))
			expectLowered(t, lowerItems(t, p), tc.want)
		})
	}
}

func TestEntryIsMarked(t *testing.T) {
	b := ast.NewBuilder(1)
	main := b.Proc("main", nil, b.Prim("i32"), b.Block(b.Int("0")))
	got := lowerItems(t, main)
	expectLowered(t, got, "proc @main::main() -> i32 entry")
	if e, ok := got.mod.EntryProc(); !ok || e.Symbol != "main::main" {
		t.Fatalf("entry = %v, %v", e, ok)
	}
}

func TestControlFlow(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("n", b.Prim("i32"))}
	body := b.Block(b.Ident("i"),
		b.Var("i", nil, b.Int("0")),
		b.ExprStmt(b.While(b.Bin(ast.OpLt, b.Ident("i"), b.Ident("n")),
			b.Block(nil, b.Assign(b.Ident("i"), b.Bin(ast.OpAdd, b.Ident("i"), b.Int("1")))))),
	)
	count := b.Proc("count", params, b.Prim("i32"), body)
	expectLowered(t, lowerItems(t, count),
		"let $i: i32 = 0:i32",
		"loop {",
		"lt i32 $i, $n",
		"break",
		"$i = %",
		"return $i",
	)
}

func TestIfExpressionMergesThroughLocal(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("x", b.Prim("i32"))}
	body := b.Block(b.If(b.Bin(ast.OpGt, b.Ident("x"), b.Int("0")),
		b.Block(b.Ident("x")), b.Block(b.Int("0"))))
	p := b.Proc("clamp", params, b.Prim("i32"), body)
	expectLowered(t, lowerItems(t, p),
		"let $.if: i32",
		"$.if = $x",
		"} else {",
		"return $.if",
	)
}

func TestCallsCheckPanics(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("x", b.Prim("i32"))}
	id := b.Proc("id", params, b.Prim("i32"), b.Block(b.Ident("x")))
	use := b.Proc("use", nil, b.Prim("i32"), b.Block(b.Call(b.Ident("id"), b.Int("7"))))
	expectLowered(t, lowerItems(t, id, use),
		"call @main::id(7:i32) -> i32",
		"panic-check",
	)
}

func TestForOverRange(t *testing.T) {
	b := ast.NewBuilder(1)
	rng := &ast.RangeExpr{Node: b.Next(), Lo: b.IntSuffix("0", "usize"), Hi: b.IntSuffix("4", "usize")}
	body := b.Block(nil, b.ExprStmt(b.For("k", rng, b.Block(nil, b.Continue()))))
	p := b.Proc("each", nil, b.Unit(), body)
	expectLowered(t, lowerItems(t, p),
		"let $.next: usize",
		"lt usize $.next, 4:usize",
		"let $k: usize = $.next",
		"add usize $.next, 1:usize",
		"continue",
	)
}

func TestMatchOnIntegers(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("x", b.Prim("u8"))}
	m := b.Match(b.Ident("x"),
		ast.Arm{Pattern: &ast.LitPat{Node: b.Next(), Lit: b.Int("1")}, Body: b.Int("10")},
		ast.Arm{Pattern: &ast.WildcardPat{Node: b.Next()}, Body: b.Int("0")},
	)
	p := b.Proc("pick", params, b.Prim("i32"), b.Block(m))
	expectLowered(t, lowerItems(t, p),
		"match $x {",
		"1 =>",
		"_ =>",
		"return $.match",
	)
}

func TestDynamicPostconditionBecomesCheck(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("x", b.Prim("i32"))}
	p := b.Proc("f", params, b.Prim("i32"), b.Block(b.Ident("x")))
	p.Contract = &ast.Contract{Post: b.Bin(ast.OpGt, b.Result(), b.Int("100"))}
	p.Attrs = []ast.Attr{b.Attr("dynamic")}
	expectLowered(t, lowerItems(t, p),
		"gt i32 $x, 100:i32",
		"else panic contract",
	)
}

func TestUnsupportedIsReported(t *testing.T) {
	b := ast.NewBuilder(1)
	tup := b.Proc("pair", nil, b.TupleT(b.Prim("i32"), b.Prim("i32")), b.Block(b.Tuple(b.Int("1"), b.Int("2"))))
	ok := b.Proc("one", nil, b.Prim("i32"), b.Block(b.Int("1")))
	got := lowerItems(t, tup, ok)
	if got.err != nil {
		t.Fatalf("lower: %v", got.err)
	}
	if !got.bag.HasCode(diag.LowerUnsupported) {
		t.Fatalf("want %s, got %v", diag.LowerUnsupported.ID(), got.bag.Items())
	}
	if _, found := got.mod.Proc("main::pair"); found {
		t.Fatal("unsupported procedure was emitted")
	}
	if _, found := got.mod.Proc("main::one"); !found {
		t.Fatal("supported procedure is missing")
	}
}
