package ir_test

import (
	"bytes"
	"strings"
	"testing"

	"cursive0/internal/ir"
	"cursive0/internal/types"
)

func addProc() *ir.Proc {
	a := ir.Local("a", types.I32)
	b := ir.Local("b", types.I32)
	sum := ir.Temp("t1", types.I32)
	return &ir.Proc{
		Symbol: "main::add",
		Params: []ir.Param{{Name: "a", Type: types.I32}, {Name: "b", Type: types.I32}},
		Ret:    types.I32,
		Body: &ir.Seq{Nodes: []ir.Node{
			&ir.Binary{Dst: "t1", Op: ir.OpAdd, X: a, Y: b, Type: types.I32},
			&ir.Return{Value: &sum},
		}},
	}
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	m := &ir.Module{Name: "main", Procs: []*ir.Proc{addProc()}}
	if err := ir.Validate(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsViolations(t *testing.T) {
	one := ir.ImmInt(types.I32, 1, 4)
	tests := []struct {
		name string
		body ir.Node
		ret  types.Type
		want string
	}{
		{
			name: "break_outside_loop",
			body: &ir.Seq{Nodes: []ir.Node{&ir.Break{}}},
			ret:  types.Unit,
			want: "break outside of a loop",
		},
		{
			name: "temp_used_before_definition",
			body: &ir.Seq{Nodes: []ir.Node{
				&ir.Binary{Dst: "t1", Op: ir.OpAdd, X: ir.Temp("t2", types.I32), Y: one, Type: types.I32},
			}},
			ret:  types.Unit,
			want: "%t2 used before definition",
		},
		{
			name: "temp_defined_twice",
			body: &ir.Seq{Nodes: []ir.Node{
				&ir.Binary{Dst: "t1", Op: ir.OpAdd, X: one, Y: one, Type: types.I32},
				&ir.Binary{Dst: "t1", Op: ir.OpSub, X: one, Y: one, Type: types.I32},
			}},
			ret:  types.Unit,
			want: "%t1 defined twice",
		},
		{
			name: "store_unbound_local",
			body: &ir.StoreVar{Name: "x", Value: one},
			ret:  types.Unit,
			want: "store to unbound local $x",
		},
		{
			name: "return_type",
			body: &ir.Return{Value: &one},
			ret:  types.Bool,
			want: "return of i32 in proc returning bool",
		},
		{
			name: "missing_return_value",
			body: &ir.Return{},
			ret:  types.I32,
			want: "return without value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ir.Module{Name: "main", Procs: []*ir.Proc{{Symbol: "p", Ret: tt.ret, Body: tt.body}}}
			err := ir.Validate(m)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestValidateModuleLevel(t *testing.T) {
	m := &ir.Module{
		Name: "main",
		Procs: []*ir.Proc{
			{Symbol: "rt", Runtime: true, Ret: types.Unit, Body: &ir.Seq{}},
			{Symbol: "a", Entry: true, Ret: types.Unit, Body: &ir.Seq{}},
			{Symbol: "b", Entry: true, Ret: types.Unit, Body: &ir.Seq{}},
		},
		VTables: []ir.VTable{{Symbol: "vt", Slots: []string{"missing"}}},
		Deinit:  []string{"gone"},
	}
	err := ir.Validate(m)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{
		"runtime procedure has a body",
		"2 entry procedures",
		"unknown proc missing",
		"deinit: unknown proc gone",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestLoopScopesBreak(t *testing.T) {
	body := &ir.Loop{Body: &ir.If{
		Cond: ir.ImmBool(true),
		Then: &ir.Break{},
		Else: &ir.Continue{},
	}}
	m := &ir.Module{Name: "main", Procs: []*ir.Proc{{Symbol: "p", Ret: types.Unit, Body: body}}}
	if err := ir.Validate(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestImmediates(t *testing.T) {
	v := ir.ImmInt(types.U16, 0x1234, 2)
	if got, ok := v.Uint64(); !ok || got != 0x1234 {
		t.Fatalf("Uint64 = %#x, %v", got, ok)
	}
	if v.String() != "4660:u16" {
		t.Errorf("String = %q", v.String())
	}
	wide := ir.ImmInt128(types.U128, 1, 2)
	if _, ok := wide.Uint64(); ok {
		t.Errorf("128-bit value with high word should not fit in 64 bits")
	}
	if w := wide.Words(); len(w) != 2 || w[0] != 2 || w[1] != 1 {
		t.Errorf("Words = %v", w)
	}
	if !ir.Unit().IsUnit() || ir.Unit().String() != "()" {
		t.Errorf("unit value rendered as %q", ir.Unit())
	}
	if ir.ImmBool(true).String() != "true" {
		t.Errorf("bool immediate rendered as %q", ir.ImmBool(true))
	}
}

func TestTempsAreFresh(t *testing.T) {
	var temps ir.Temps
	a := temps.New(types.I32)
	b := temps.New(types.I32)
	if a.Name == b.Name {
		t.Fatalf("temporaries share name %q", a.Name)
	}
	if temps.Count() != 2 {
		t.Errorf("Count = %d", temps.Count())
	}
}

func TestWalkPrunes(t *testing.T) {
	body := &ir.Seq{Nodes: []ir.Node{
		&ir.Loop{Body: &ir.Seq{Nodes: []ir.Node{&ir.Break{}}}},
		&ir.Return{},
	}}
	var visited []string
	ir.Walk(body, func(n ir.Node) bool {
		switch n.(type) {
		case *ir.Loop:
			visited = append(visited, "loop")
			return false
		case *ir.Break:
			visited = append(visited, "break")
		case *ir.Return:
			visited = append(visited, "return")
		}
		return true
	})
	if strings.Join(visited, ",") != "loop,return" {
		t.Fatalf("visited %v", visited)
	}
}

func TestDump(t *testing.T) {
	m := &ir.Module{
		Name:  "main",
		Procs: []*ir.Proc{addProc(), {Symbol: "cursive::runtime::panic", Runtime: true, Ret: types.Never}},
	}
	var buf bytes.Buffer
	if err := ir.Dump(&buf, m); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"module main",
		"proc @main::add(a: i32, b: i32) -> i32",
		"%t1 = add i32 $a, $b",
		"return %t1",
		"extern proc @cursive::runtime::panic() -> !",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
