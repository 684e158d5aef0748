package sema

import (
	"strings"
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
)

type checked struct {
	bag *diag.Bag
	res Result
}

func checkItems(items ...ast.Decl) checked {
	bag := diag.NewBag(64)
	opts := Options{Reporter: diag.BagReporter{Bag: bag}, Target: layout.X86_64LinuxGNU()}
	mod := &ast.Module{Path: []string{"main"}, File: 1, Items: items}
	prog := BuildSigma(&ast.Program{Modules: []*ast.Module{mod}}, opts)
	res := CheckModule(prog.Context(mod.Path, opts.Target), mod, opts)
	return checked{bag: bag, res: res}
}

func (c checked) codes() []diag.Code {
	var out []diag.Code
	for _, d := range c.bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func expectClean(t *testing.T, c checked) {
	t.Helper()
	if c.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", c.codes())
	}
}

func expectCode(t *testing.T, c checked, code diag.Code) {
	t.Helper()
	if !c.bag.HasCode(code) {
		t.Fatalf("want %s, got %v", code.ID(), c.codes())
	}
}

func withContract(p *ast.Proc, pre, post ast.Expr) *ast.Proc {
	p.Contract = &ast.Contract{Pre: pre, Post: post}
	return p
}

func TestIntegerLiteralRanges(t *testing.T) {
	cases := []struct {
		name string
		ret  string
		text string
		neg  bool
		ok   bool
	}{
		{"u8 max", "u8", "255", false, true},
		{"u8 overflow", "u8", "256", false, false},
		{"i8 min", "i8", "128", true, true},
		{"i8 overflow", "i8", "128", false, false},
		{"hex u16", "u16", "0xFFFF", false, true},
		{"u128 max", "u128", "340282366920938463463374607431768211455", false, true},
		{"u128 overflow", "u128", "340282366920938463463374607431768211456", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := ast.NewBuilder(1)
			var tail ast.Expr = b.Int(tc.text)
			if tc.neg {
				tail = b.Un(ast.OpNeg, tail)
			}
			got := checkItems(b.Proc("f", nil, b.Prim(tc.ret), b.Block(tail)))
			if tc.ok {
				expectClean(t, got)
			} else {
				expectCode(t, got, diag.LiteralOverflow)
			}
		})
	}
}

func TestPostconditionUsesBody(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("x", b.Prim("i32"))}
	post := b.Bin(ast.OpGt, b.Result(), b.Ident("x"))
	body := b.Block(b.Bin(ast.OpAdd, b.Ident("x"), b.Int("1")))
	expectClean(t, checkItems(withContract(b.Proc("inc", params, b.Prim("i32"), body), nil, post)))

	b = ast.NewBuilder(1)
	params = []ast.Param{b.Param("x", b.Prim("i32"))}
	post = b.Bin(ast.OpGt, b.Result(), b.Ident("x"))
	body = b.Block(b.Ident("x"))
	expectCode(t, checkItems(withContract(b.Proc("same", params, b.Prim("i32"), body), nil, post)), diag.PostUnprovable)
}

func TestPreconditionAtCallSite(t *testing.T) {
	for _, tc := range []struct {
		arg string
		ok  bool
	}{{"2", true}, {"0", false}} {
		b := ast.NewBuilder(1)
		params := []ast.Param{b.Param("a", b.Prim("i32")), b.Param("d", b.Prim("i32"))}
		pre := b.Bin(ast.OpNe, b.Ident("d"), b.Int("0"))
		div := withContract(b.Proc("div", params, b.Prim("i32"),
			b.Block(b.Bin(ast.OpDiv, b.Ident("a"), b.Ident("d")))), pre, nil)
		call := b.Proc("g", nil, b.Prim("i32"), b.Block(b.Call(b.Ident("div"), b.Int("4"), b.Int(tc.arg))))
		got := checkItems(div, call)
		if tc.ok {
			expectClean(t, got)
		} else {
			expectCode(t, got, diag.PreUnprovable)
		}
	}
}

func TestLetFactsAndMutability(t *testing.T) {
	b := ast.NewBuilder(1)
	let := b.Let("x", nil, b.Int("5"))
	post := b.Bin(ast.OpGt, b.Result(), b.Int("0"))
	tail := b.Ident("x")
	fixed := withContract(b.Proc("fixed", nil, b.Prim("i32"), b.Block(tail, let)), nil, post)
	expectClean(t, checkItems(fixed))

	b = ast.NewBuilder(1)
	v := b.Var("x", nil, b.Int("5"))
	post = b.Bin(ast.OpGt, b.Result(), b.Int("0"))
	tail = b.Ident("x")
	mutable := withContract(b.Proc("mutable", nil, b.Prim("i32"), b.Block(tail, v)), nil, post)
	expectCode(t, checkItems(mutable), diag.PostUnprovable)
}

func TestBindingRules(t *testing.T) {
	b := ast.NewBuilder(1)
	dup := b.Proc("dup", []ast.Param{b.Param("a", b.Prim("i32")), b.Param("a", b.Prim("i32"))}, nil, b.Block(nil))
	expectCode(t, checkItems(dup), diag.IntroDup)

	b = ast.NewBuilder(1)
	params := []ast.Param{b.Param("a", b.Prim("i32"))}
	shadow := b.Proc("shadow", params, nil, b.Block(nil, b.Let("a", nil, b.Int("1"))))
	expectCode(t, checkItems(shadow), diag.IntroShadowRequired)

	b = ast.NewBuilder(1)
	params = []ast.Param{b.Param("a", b.Prim("i32"))}
	ok := b.Proc("ok", params, nil, b.Block(nil, b.Shadow("a", nil, b.Int("1"))))
	expectClean(t, checkItems(ok))

	b = ast.NewBuilder(1)
	reserved := b.Proc("reserved", nil, nil, b.Block(nil, b.Let("__tmp", nil, b.Int("1"))))
	expectCode(t, checkItems(reserved), diag.IntroReserved)
}

func TestControlFlowErrors(t *testing.T) {
	cases := []struct {
		name string
		code diag.Code
		make func(b *ast.Builder) *ast.Proc
	}{
		{"break outside loop", diag.BreakOutsideLoop, func(b *ast.Builder) *ast.Proc {
			return b.Proc("f", nil, nil, b.Block(nil, b.Break(nil)))
		}},
		{"continue outside loop", diag.ContinueOutsideLoop, func(b *ast.Builder) *ast.Proc {
			return b.Proc("f", nil, nil, b.Block(nil, b.Continue()))
		}},
		{"missing return", diag.ProcBodyExplicitReturn, func(b *ast.Builder) *ast.Proc {
			return b.Proc("f", nil, b.Prim("i32"), b.Block(nil))
		}},
		{"if branches", diag.IfBranchUnify, func(b *ast.Builder) *ast.Proc {
			cond := b.If(b.Bool(true), b.Block(b.Int("1")), b.Block(b.Bool(false)))
			return b.Proc("f", nil, nil, b.Block(nil, b.Let("y", nil, cond)))
		}},
		{"condition type", diag.CondNotBool, func(b *ast.Builder) *ast.Proc {
			cond := b.If(b.Int("1"), b.Block(nil), nil)
			return b.Proc("f", nil, nil, b.Block(nil, b.ExprStmt(cond)))
		}},
		{"break value in while", diag.LoopBreakValue, func(b *ast.Builder) *ast.Proc {
			loop := b.While(b.Bool(true), b.Block(nil, b.Break(b.Int("1"))))
			return b.Proc("f", nil, nil, b.Block(nil, b.ExprStmt(loop)))
		}},
		{"assign immutable", diag.AssignImmutable, func(b *ast.Builder) *ast.Proc {
			let := b.Let("x", nil, b.Int("1"))
			return b.Proc("f", nil, nil, b.Block(nil, let, b.Assign(b.Ident("x"), b.Int("2"))))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := ast.NewBuilder(1)
			expectCode(t, checkItems(tc.make(b)), tc.code)
		})
	}
}

func TestInfiniteLoopBreakType(t *testing.T) {
	b := ast.NewBuilder(1)
	loop := b.Loop(b.Block(nil, b.Break(b.Int("7"))))
	expectClean(t, checkItems(b.Proc("f", nil, b.Prim("i32"), b.Block(loop))))

	b = ast.NewBuilder(1)
	v := b.Var("x", nil, b.Int("0"))
	assign := b.Assign(b.Ident("x"), b.Int("1"))
	loop = b.Loop(b.Block(nil, assign, b.Break(nil)))
	expectClean(t, checkItems(b.Proc("g", nil, nil, b.Block(nil, v, b.ExprStmt(loop)))))
}

func TestRefinedReturn(t *testing.T) {
	positive := func(b *ast.Builder) ast.Type {
		return b.Refine(b.Prim("i32"), b.Bin(ast.OpGt, b.Ident("self"), b.Int("0")))
	}
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("x", positive(b))}
	expectClean(t, checkItems(b.Proc("keep", params, positive(b), b.Block(b.Ident("x")))))

	b = ast.NewBuilder(1)
	params = []ast.Param{b.Param("x", b.Prim("i32"))}
	expectCode(t, checkItems(b.Proc("lose", params, positive(b), b.Block(b.Ident("x")))), diag.RefineUnprovable)
}

func TestContractWellFormed(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("x", b.Prim("i32"))}
	pre := b.Bin(ast.OpGt, b.Result(), b.Int("0"))
	p := withContract(b.Proc("f", params, b.Prim("i32"), b.Block(b.Ident("x"))), pre, nil)
	expectCode(t, checkItems(p), diag.ContractPreResult)

	b = ast.NewBuilder(1)
	params = []ast.Param{b.Param("x", b.Prim("i32"))}
	pre = b.Bin(ast.OpGt, b.Entry(b.Ident("x")), b.Int("0"))
	p = withContract(b.Proc("f", params, b.Prim("i32"), b.Block(b.Ident("x"))), pre, nil)
	expectCode(t, checkItems(p), diag.ContractPreEntry)

	b = ast.NewBuilder(1)
	params = []ast.Param{b.Param("x", b.Prim("i32"))}
	p = withContract(b.Proc("f", params, b.Prim("i32"), b.Block(b.Ident("x"))), b.Ident("x"), nil)
	expectCode(t, checkItems(p), diag.ContractNotBool)

	b = ast.NewBuilder(1)
	params = []ast.Param{b.Param("x", b.Prim("i32"))}
	post := b.Bin(ast.OpEq, b.Result(), b.Entry(b.Ident("x")))
	p = withContract(b.Proc("f", params, b.Prim("i32"), b.Block(b.Ident("x"))), nil, post)
	expectClean(t, checkItems(p))
}

func TestDynamicContractsBecomeObligations(t *testing.T) {
	b := ast.NewBuilder(1)
	params := []ast.Param{b.Param("x", b.Prim("i32"))}
	post := b.Bin(ast.OpGt, b.Result(), b.Int("100"))
	p := withContract(b.Proc("f", params, b.Prim("i32"), b.Block(b.Ident("x"))), nil, post)
	p.Attrs = []ast.Attr{b.Attr("dynamic")}
	got := checkItems(p)
	expectClean(t, got)
	if n := len(got.res.Obligations); n != 1 || got.res.Obligations[0].Kind != ObligationPost {
		t.Fatalf("want one post obligation, got %+v", got.res.Obligations)
	}
}

func colorEnum(b *ast.Builder) *ast.Enum {
	return b.EnumDecl("Color", b.Variant("Red", nil), b.Variant("Green", nil))
}

func TestMatchExhaustive(t *testing.T) {
	arm := func(b *ast.Builder, variant string, v string) ast.Arm {
		return ast.Arm{Pattern: &ast.VariantPat{Node: b.Next(), Variant: variant}, Body: b.Int(v)}
	}
	b := ast.NewBuilder(1)
	en := colorEnum(b)
	params := []ast.Param{b.Param("c", b.Named("Color"))}
	m := b.Match(b.Ident("c"), arm(b, "Red", "1"), arm(b, "Green", "2"))
	expectClean(t, checkItems(en, b.Proc("f", params, b.Prim("i32"), b.Block(m))))

	b = ast.NewBuilder(1)
	en = colorEnum(b)
	params = []ast.Param{b.Param("c", b.Named("Color"))}
	m = b.Match(b.Ident("c"), arm(b, "Red", "1"))
	expectCode(t, checkItems(en, b.Proc("f", params, b.Prim("i32"), b.Block(m))), diag.MatchPattern)

	b = ast.NewBuilder(1)
	en = colorEnum(b)
	params = []ast.Param{b.Param("c", b.Named("Color"))}
	wild := ast.Arm{Pattern: &ast.WildcardPat{Node: b.Next()}, Body: b.Bool(true)}
	m = b.Match(b.Ident("c"), arm(b, "Red", "1"), wild)
	expectCode(t, checkItems(en, b.Proc("f", params, nil, b.Block(nil, b.Let("v", nil, m)))), diag.MatchArmUnify)
}

func TestBehavioralSubtyping(t *testing.T) {
	build := func(implBound string) checked {
		b := ast.NewBuilder(1)
		recv := &ast.Receiver{Perm: ast.PermConst}
		abstract := withContract(&ast.Proc{Node: b.Next(), Name: "area", Recv: recv, Ret: b.Prim("i32")},
			nil, b.Bin(ast.OpGe, b.Result(), b.Int("0")))
		class := &ast.Class{Node: b.Next(), Name: "Shape", Methods: []*ast.Proc{abstract}}

		impl := withContract(b.Proc("area", nil, b.Prim("i32"), b.Block(b.Int("1"))),
			nil, b.Bin(ast.OpGe, b.Result(), b.Int(implBound)))
		impl.Recv = &ast.Receiver{Perm: ast.PermConst}
		rec := b.RecordDecl("Square", b.FieldDecl("side", b.Prim("i32")))
		rec.Methods = []*ast.Proc{impl}
		rec.Implements = [][]string{{"Shape"}}
		return checkItems(class, rec)
	}
	expectClean(t, build("1"))
	expectCode(t, build("-1"), diag.ImplPostWeaker)
}

func TestAliasCycleReported(t *testing.T) {
	b := ast.NewBuilder(1)
	a := b.Alias("A", b.Named("B"))
	c := b.Alias("B", b.Named("A"))
	expectCode(t, checkItems(a, c), diag.TypeAliasRecursive)
}

func TestTypeEnvScopes(t *testing.T) {
	env := NewTypeEnv()
	env.Push()
	if err := env.Intro(Binding{Name: "x"}); err != nil {
		t.Fatalf("intro: %v", err)
	}
	if code, _ := Code(env.Intro(Binding{Name: "x"})); code != diag.IntroDup {
		t.Fatalf("duplicate intro: got %s", code.ID())
	}
	env.Push()
	if code, _ := Code(env.Intro(Binding{Name: "x"})); code != diag.IntroShadowRequired {
		t.Fatalf("outer intro: got %s", code.ID())
	}
	if err := env.Shadow(Binding{Name: "x", Mutable: true}); err != nil {
		t.Fatalf("shadow: %v", err)
	}
	if b, _ := env.Lookup("x"); !b.Mutable {
		t.Fatalf("lookup must find the shadowing binding")
	}
	if code, _ := Code(env.Shadow(Binding{Name: "y"})); code != diag.ShadowUnbound {
		t.Fatalf("shadow of unbound: got %s", code.ID())
	}
	env.Pop()
	if b, _ := env.Lookup("x"); b.Mutable {
		t.Fatalf("pop must restore the outer binding")
	}
}

// accepts runs one checking case; a zero code means the items are clean.
type accepts struct {
	name string
	code diag.Code
	make func(b *ast.Builder) []ast.Decl
}

func runAccepts(t *testing.T, cases []accepts) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := checkItems(tc.make(ast.NewBuilder(1))...)
			if tc.code == diag.UnknownCode {
				expectClean(t, got)
			} else {
				expectCode(t, got, tc.code)
			}
		})
	}
}

func unitProc(b *ast.Builder, params []ast.Param, stmts ...ast.Stmt) []ast.Decl {
	return []ast.Decl{b.Proc("f", params, nil, b.Block(nil, stmts...))}
}

func TestPostconditionWithReturnAndTail(t *testing.T) {
	for _, viaReturn := range []bool{false, true} {
		b := ast.NewBuilder(1)
		post := b.Bin(ast.OpGt, b.Result(), b.Int("0"))
		body := b.Block(b.Ident("x"), b.Let("x", nil, b.Int("5")))
		if viaReturn {
			body = b.Block(nil, b.Let("x", nil, b.Int("5")), b.Return(b.Ident("x")))
		}
		expectClean(t, checkItems(withContract(b.Proc("five", nil, b.Prim("i32"), body), nil, post)))
	}
}

func TestDuplicateDiscriminantNamesVariant(t *testing.T) {
	b := ast.NewBuilder(1)
	got := checkItems(b.EnumDecl("E", b.Variant("A", b.Int("1")), b.Variant("B", b.Int("1"))))
	expectCode(t, got, diag.EnumDiscDup)
	for _, d := range got.bag.Items() {
		if d.Code == diag.EnumDiscDup && (!strings.Contains(d.Message, "variant B") || strings.Contains(d.Message, "%!")) {
			t.Fatalf("message = %q", d.Message)
		}
	}
}

func TestArrayToSliceCoercion(t *testing.T) {
	arr := func(b *ast.Builder) ast.Type { return b.ArrayT(b.Prim("i32"), b.Int("2")) }
	runAccepts(t, []accepts{
		{"literal to slice", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			return unitProc(b, nil, b.Let("s", b.SliceT(b.Prim("i32")), b.Array(b.Int("1"), b.Int("2"))))
		}},
		{"place to slice", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			params := []ast.Param{b.Param("a", arr(b))}
			return unitProc(b, params, b.Let("s", b.SliceT(b.Prim("i32")), b.Ident("a")))
		}},
		{"shared array to const slice", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			params := []ast.Param{b.Param("a", b.PermT(ast.PermShared, arr(b)))}
			want := b.PermT(ast.PermConst, b.SliceT(b.Prim("i32")))
			return unitProc(b, params, b.Let("s", want, b.Ident("a")))
		}},
		{"element mismatch", diag.SubtypeMismatch, func(b *ast.Builder) []ast.Decl {
			params := []ast.Param{b.Param("a", arr(b))}
			return unitProc(b, params, b.Let("s", b.SliceT(b.Prim("bool")), b.Ident("a")))
		}},
	})
}

func TestModalStateWidening(t *testing.T) {
	link := func(b *ast.Builder) *ast.Modal {
		return b.ModalDecl("Link",
			b.State("Some", b.FieldDecl("ptr", b.PtrT(b.Prim("i64"), "Valid"))),
			b.State("None"))
	}
	pair := func(b *ast.Builder) *ast.Modal {
		return b.ModalDecl("Pair",
			b.State("Full", b.FieldDecl("a", b.Prim("i32")), b.FieldDecl("b", b.Prim("i32"))),
			b.State("Empty"))
	}
	widen := func(b *ast.Builder, modal *ast.Modal, state string) []ast.Decl {
		params := []ast.Param{b.Param("x", b.StateT(state, modal.Name))}
		return []ast.Decl{modal, b.Proc("widen", params, b.Named(modal.Name), b.Block(b.Move(b.Ident("x"))))}
	}
	runAccepts(t, []accepts{
		{"niche payload state", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			return widen(b, link(b), "Some")
		}},
		{"niche empty state", diag.ChkSubsumptionModal, func(b *ast.Builder) []ast.Decl {
			return widen(b, link(b), "None")
		}},
		{"tagged modal", diag.ChkSubsumptionModal, func(b *ast.Builder) []ast.Decl {
			return widen(b, pair(b), "Full")
		}},
	})
}

func TestAllocRawRules(t *testing.T) {
	heap := func(b *ast.Builder, p ast.Perm) ast.Type {
		return b.PermT(p, &ast.DynamicType{Node: b.Next(), Class: []string{"HeapAllocator"}})
	}
	alloc := func(b *ast.Builder, p ast.Perm, size string, arg func(*ast.Builder) ast.Expr, unsafe bool) []ast.Decl {
		params := []ast.Param{b.Param("h", heap(b, p)), b.Param("n", b.Prim(size))}
		var call ast.Expr = b.Method(b.Ident("h"), "alloc_raw", arg(b))
		if unsafe {
			call = b.Unsafe(b.Block(call))
		}
		return unitProc(b, params, b.Let("p", nil, call))
	}
	n := func(b *ast.Builder) ast.Expr { return b.Ident("n") }
	runAccepts(t, []accepts{
		{"ok", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			return alloc(b, ast.PermConst, "usize", n, true)
		}},
		{"outside unsafe", diag.AllocRawUnsafe, func(b *ast.Builder) []ast.Decl {
			return alloc(b, ast.PermConst, "usize", n, false)
		}},
		{"unique receiver", diag.AllocRawRecv, func(b *ast.Builder) []ast.Decl {
			return alloc(b, ast.PermUnique, "usize", n, true)
		}},
		{"literal size", diag.AllocRawArgPlace, func(b *ast.Builder) []ast.Decl {
			return alloc(b, ast.PermConst, "usize", func(b *ast.Builder) ast.Expr { return b.Int("8") }, true)
		}},
		{"signed size", diag.AllocRawArgType, func(b *ast.Builder) []ast.Decl {
			return alloc(b, ast.PermConst, "i64", n, true)
		}},
	})
}

func TestNullPointerTyping(t *testing.T) {
	runAccepts(t, []accepts{
		{"unstated pointer", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			return unitProc(b, nil, b.Let("p", b.PtrT(b.Prim("i32"), ""), b.Null()))
		}},
		{"null state", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			return unitProc(b, nil, b.Let("p", b.PtrT(b.Prim("i32"), "Null"), b.Null()))
		}},
		{"valid state", diag.ChkNullPtr, func(b *ast.Builder) []ast.Decl {
			return unitProc(b, nil, b.Let("p", b.PtrT(b.Prim("i32"), "Valid"), b.Null()))
		}},
		{"not a pointer", diag.ChkNullPtr, func(b *ast.Builder) []ast.Decl {
			return unitProc(b, nil, b.Let("p", b.Prim("i32"), b.Null()))
		}},
		{"no expected type", diag.PtrNullInfer, func(b *ast.Builder) []ast.Decl {
			return unitProc(b, nil, b.Let("p", nil, b.Null()))
		}},
	})
}

func TestNonBitcopyPlaceNeedsMove(t *testing.T) {
	rec := func(b *ast.Builder) *ast.Record { return b.RecordDecl("R", b.FieldDecl("a", b.Prim("i32"))) }
	runAccepts(t, []accepts{
		{"copy", diag.ValueUseNonBitcopy, func(b *ast.Builder) []ast.Decl {
			params := []ast.Param{b.Param("r", b.Named("R"))}
			return append([]ast.Decl{rec(b)}, unitProc(b, params, b.Let("y", nil, b.Ident("r")))...)
		}},
		{"move", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			params := []ast.Param{b.Param("r", b.Named("R"))}
			return append([]ast.Decl{rec(b)}, unitProc(b, params, b.Let("y", nil, b.Move(b.Ident("r"))))...)
		}},
	})
}

func TestRegionOptionsCall(t *testing.T) {
	runAccepts(t, []accepts{
		{"no arguments", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			return unitProc(b, nil, b.Let("o", b.Named("RegionOptions"), b.Call(b.Ident("RegionOptions"))))
		}},
		{"with arguments", diag.CallArity, func(b *ast.Builder) []ast.Decl {
			return unitProc(b, nil, b.Let("o", nil, b.Call(b.Ident("RegionOptions"), b.Int("1"))))
		}},
	})
}

func TestLoopTypes(t *testing.T) {
	runAccepts(t, []accepts{
		{"loop without break is never", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			return []ast.Decl{b.Proc("f", nil, b.Prim("i32"), b.Block(b.Loop(b.Block(nil))))}
		}},
		{"while with break is unit", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			loop := b.While(b.Bool(true), b.Block(nil, b.Break(nil)))
			return []ast.Decl{b.Proc("f", nil, nil, b.Block(b.Ident("u"), b.Let("u", nil, loop)))}
		}},
		{"diverging else branch", diag.UnknownCode, func(b *ast.Builder) []ast.Decl {
			pick := b.If(b.Bool(true), b.Block(b.Int("1")), b.Block(nil, b.Continue()))
			loop := b.While(b.Bool(true), b.Block(nil, b.Let("v", b.Prim("i32"), pick)))
			return unitProc(b, nil, b.ExprStmt(loop))
		}},
		{"while is not a value", diag.SubtypeMismatch, func(b *ast.Builder) []ast.Decl {
			loop := b.While(b.Bool(true), b.Block(nil, b.Break(nil)))
			return unitProc(b, nil, b.Let("n", b.Prim("i32"), loop))
		}},
	})
}

func TestNonFinalResultStillUnifies(t *testing.T) {
	b := ast.NewBuilder(1)
	inner := b.Block(nil, b.ResultStmt(b.Int("1")), b.ResultStmt(b.Int("2")))
	got := checkItems(unitProc(b, nil, b.Let("v", b.Prim("i32"), inner))...)
	expectClean(t, got)
	expectCode(t, got, diag.ResultUnreachable)

	b = ast.NewBuilder(1)
	inner = b.Block(nil, b.ResultStmt(b.Int("1")), b.ResultStmt(b.Bool(true)))
	got = checkItems(unitProc(b, nil, b.Let("v", nil, inner))...)
	expectCode(t, got, diag.ResultUnreachable)
	expectCode(t, got, diag.BlockResultUnify)
}

func TestLoopInvariantScope(t *testing.T) {
	run := func(inv func(b *ast.Builder) ast.Expr) checked {
		b := ast.NewBuilder(1)
		loop := b.For("k", &ast.RangeExpr{Node: b.Next(), Lo: b.Int("0"), Hi: b.Int("4")}, b.Block(nil))
		loop.Invariant = inv(b)
		return checkItems(unitProc(b, nil, b.Let("m", nil, b.Int("3")), b.ExprStmt(loop))...)
	}
	expectClean(t, run(func(b *ast.Builder) ast.Expr { return b.Bin(ast.OpGt, b.Ident("m"), b.Int("0")) }))
	expectCode(t, run(func(b *ast.Builder) ast.Expr { return b.Bin(ast.OpGe, b.Ident("k"), b.Int("0")) }), diag.IdentUnbound)
}
