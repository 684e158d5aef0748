package llvm_test

import (
	"errors"
	"strings"
	"testing"

	"cursive0/internal/abi"
	"cursive0/internal/backend/llvm"
	"cursive0/internal/ir"
	"cursive0/internal/types"
)

func emit(t *testing.T, m *ir.Module) string {
	t.Helper()
	mod, err := llvm.EmitModule(m, llvm.Options{})
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	return mod.String()
}

func binaryProc(sym string, op ir.Op, ty types.Type) *ir.Proc {
	a := ir.Local("a", ty)
	b := ir.Local("b", ty)
	res := ir.Temp("t1", ty)
	return &ir.Proc{
		Symbol: sym,
		Params: []ir.Param{{Name: "a", Type: ty}, {Name: "b", Type: ty}},
		Ret:    ty,
		Body: &ir.Seq{Nodes: []ir.Node{
			&ir.Binary{Dst: "t1", Op: op, X: a, Y: b, Type: ty},
			&ir.Return{Value: &res},
		}},
	}
}

func TestArithmeticLowering(t *testing.T) {
	tests := []struct {
		name string
		op   ir.Op
		ty   types.Type
		want []string
	}{
		{name: "signed_add", op: ir.OpAdd, ty: types.I32, want: []string{"@llvm.sadd.with.overflow.i32", "extractvalue"}},
		{name: "unsigned_mul", op: ir.OpMul, ty: types.U64, want: []string{"@llvm.umul.with.overflow.i64"}},
		{name: "signed_div", op: ir.OpDiv, ty: types.I32, want: []string{"sdiv", "freeze"}},
		{name: "unsigned_rem", op: ir.OpRem, ty: types.U8, want: []string{"urem", "freeze"}},
		{name: "shift", op: ir.OpShl, ty: types.U32, want: []string{"shl", "freeze"}},
		{name: "compare", op: ir.OpLt, ty: types.I64, want: []string{"icmp slt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := binaryProc("main::f", tt.op, tt.ty)
			if tt.op.IsComparison() {
				p.Ret = types.Bool
				res := ir.Temp("t1", types.Bool)
				p.Body.(*ir.Seq).Nodes[1] = &ir.Return{Value: &res}
			}
			out := emit(t, &ir.Module{Name: "main", Procs: []*ir.Proc{p}})
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output lacks %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestCheckedArithmeticPanics(t *testing.T) {
	out := emit(t, &ir.Module{Name: "main", Procs: []*ir.Proc{binaryProc("main::add", ir.OpAdd, types.I32)}})
	if !strings.Contains(out, "store { i1, i32 } { i1 true, i32 1 }") {
		t.Fatalf("overflow does not set the panic record:\n%s", out)
	}
	if !strings.Contains(out, "%panic") {
		t.Fatalf("missing panic-out parameter:\n%s", out)
	}
}

func TestMemoryIntrinsics(t *testing.T) {
	dst := ir.Temp("d", &types.RawPtr{Qual: types.RawMut, Elem: types.U8})
	src := ir.Temp("s", &types.RawPtr{Qual: types.RawMut, Elem: types.U8})
	p := &ir.Proc{
		Symbol: "main::copy",
		Ret:    types.Unit,
		Body: &ir.Seq{Nodes: []ir.Node{
			&ir.BindVar{Name: "x", Type: types.U64},
			&ir.BindVar{Name: "y", Type: types.U64},
			&ir.AddrOf{Dst: "d", Local: "x"},
			&ir.AddrOf{Dst: "s", Local: "y"},
			&ir.MemCopy{Dst: dst, Src: src, Size: 8, Align: 8, MayOverlap: true},
			&ir.MemCopy{Dst: dst, Src: src, Size: 8, Align: 8},
			&ir.MemSet{Dst: dst, Byte: 0, Size: 8, Align: 8},
			&ir.Return{},
		}},
	}
	out := emit(t, &ir.Module{Name: "main", Procs: []*ir.Proc{p}})
	for _, w := range []string{"@llvm.memmove.p0i8.p0i8.i64", "@llvm.memcpy.p0i8.p0i8.i64", "@llvm.memset.p0i8.i64"} {
		if !strings.Contains(out, w) {
			t.Errorf("output lacks %s:\n%s", w, out)
		}
	}
}

func TestVTableIsConstant(t *testing.T) {
	m := &ir.Module{
		Name:  "main",
		Procs: []*ir.Proc{binaryProc("main::add", ir.OpAdd, types.I32)},
		VTables: []ir.VTable{{
			Symbol: "main::I32::vt",
			Type:   types.I32,
			Slots:  []string{"main::add"},
		}},
	}
	out := emit(t, m)
	if !strings.Contains(out, "constant { i64, i64, i8*, i8* } { i64 4, i64 4, i8* null") {
		t.Fatalf("vtable layout not emitted:\n%s", out)
	}
}

func TestByRefAttributes(t *testing.T) {
	big := &types.Array{Elem: types.U8, Len: 64}
	p := &ir.Proc{
		Symbol: "main::take",
		Params: []ir.Param{
			{Name: "r", Type: big},
			{Name: "m", Type: big, Mode: types.ModeMove},
		},
		Ret:  types.Unit,
		Body: &ir.Return{},
	}
	out := emit(t, &ir.Module{Name: "main", Procs: []*ir.Proc{p}})
	for _, w := range []string{"readonly", "noalias", "dereferenceable(64)", "nonnull"} {
		if !strings.Contains(out, w) {
			t.Errorf("output lacks %s:\n%s", w, out)
		}
	}
}

func TestMainWrapper(t *testing.T) {
	entry := &ir.Proc{
		Symbol: "main::main",
		Ret:    types.I32,
		Entry:  true,
		Body: &ir.Seq{Nodes: []ir.Node{
			&ir.Return{Value: ptr(ir.ImmInt(types.I32, 0, 4))},
		}},
	}
	fini := &ir.Proc{Symbol: "main::fini", Ret: types.Unit, Body: &ir.Return{}}
	out := emit(t, &ir.Module{Name: "main", Procs: []*ir.Proc{entry, fini}, Deinit: []string{"main::fini"}})
	for _, w := range []string{
		"define i32 @main()",
		"@" + abi.RuntimeContextInit,
		"call void @" + abi.RuntimePanic,
		"main::fini",
	} {
		if !strings.Contains(out, w) {
			t.Errorf("output lacks %q:\n%s", w, out)
		}
	}
}

func TestDispatchRunsSequentially(t *testing.T) {
	p := &ir.Proc{
		Symbol: "main::each",
		Ret:    types.Unit,
		Body: &ir.Seq{Nodes: []ir.Node{
			&ir.Dispatch{
				Index: "i",
				Lo:    ir.ImmInt(types.USize, 0, 8),
				Hi:    ir.ImmInt(types.USize, 4, 8),
				Body:  &ir.Seq{Nodes: []ir.Node{&ir.Continue{}}},
			},
			&ir.Return{},
		}},
	}
	out := emit(t, &ir.Module{Name: "main", Procs: []*ir.Proc{p}})
	if !strings.Contains(out, "icmp ult i64") || !strings.Contains(out, "dispatch.next") {
		t.Fatalf("dispatch loop not emitted:\n%s", out)
	}
}

func TestFailuresAreCollected(t *testing.T) {
	missing := &types.Named{Path: types.Path{"Missing"}}
	p := &ir.Proc{
		Symbol: "main::bad",
		Ret:    types.Unit,
		Body: &ir.Seq{Nodes: []ir.Node{
			&ir.BindVar{Name: "x", Type: missing},
			&ir.Race{Dst: "r"},
			&ir.Return{},
		}},
	}
	mod, err := llvm.EmitModule(&ir.Module{Name: "main", Procs: []*ir.Proc{p}}, llvm.Options{})
	if mod == nil {
		t.Fatal("no module returned")
	}
	if err == nil {
		t.Fatal("expected failures")
	}
	var ce *llvm.CodegenError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a CodegenError", err)
	}
	wantKinds := map[llvm.CodegenErrorKind]bool{llvm.CodegenLayout: false, llvm.CodegenUnsupported: false}
	for _, e := range unwrapAll(err) {
		var c *llvm.CodegenError
		if errors.As(e, &c) {
			if _, ok := wantKinds[c.Kind]; ok {
				wantKinds[c.Kind] = true
			}
			if c.Proc != "main::bad" {
				t.Errorf("failure %v attributed to %q", c, c.Proc)
			}
		}
	}
	for k, seen := range wantKinds {
		if !seen {
			t.Errorf("no %s failure in %v", k, err)
		}
	}
}

func unwrapAll(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func ptr(v ir.Value) *ir.Value { return &v }

func TestZeroOptionsDeclareRuntime(t *testing.T) {
	main := &ir.Proc{Symbol: "main::main", Ret: types.I32, Entry: true, Body: &ir.Seq{Nodes: []ir.Node{
		&ir.Return{Value: ptr(ir.ImmInt(types.I32, 0, 4))},
	}}}
	mod, err := llvm.EmitModule(&ir.Module{Name: "main", Procs: []*ir.Proc{main}}, llvm.Options{})
	if err != nil {
		t.Fatalf("EmitModule with zero options: %v", err)
	}
	out := mod.String()
	for _, w := range []string{"@cursive0_rt_context_init", "define i32 @main()"} {
		if !strings.Contains(out, w) {
			t.Errorf("output lacks %q:\n%s", w, out)
		}
	}
}

func TestFloatToIntIsFrozen(t *testing.T) {
	x := ir.Local("x", types.F64)
	res := ir.Temp("t1", types.I32)
	p := &ir.Proc{
		Symbol: "main::trunc",
		Params: []ir.Param{{Name: "x", Type: types.F64}},
		Ret:    types.I32,
		Body: &ir.Seq{Nodes: []ir.Node{
			&ir.Cast{Dst: "t1", X: x, From: types.F64, To: types.I32},
			&ir.Return{Value: &res},
		}},
	}
	out := emit(t, &ir.Module{Name: "main", Procs: []*ir.Proc{p}})
	for _, w := range []string{"fptosi double", "freeze i32"} {
		if !strings.Contains(out, w) {
			t.Errorf("output lacks %q:\n%s", w, out)
		}
	}
}
