package layout_test

import (
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/layout"
	"cursive0/internal/symbols"
	"cursive0/internal/testkit"
	"cursive0/internal/types"
)

func TestLayoutInvariants(t *testing.T) {
	b := ast.NewBuilder(1)
	field := func(name string, t types.Type) symbols.FieldInfo { return symbols.FieldInfo{Name: name, Type: t} }
	sigma := symbols.NewSigma()
	symbols.RegisterBuiltins(sigma)
	node := types.MkNamed("Node")
	for _, d := range []symbols.TypeDecl{
		&symbols.RecordInfo{Path: types.Path{"Node"}, Fields: []symbols.FieldInfo{field("v", types.I64), field("tag", types.U8)}},
		&symbols.RecordInfo{Path: types.Path{"Packed"}, Attrs: []ast.Attr{b.Attr("packed")},
			Fields: []symbols.FieldInfo{field("a", types.U8), field("b", types.U64)}},
		&symbols.ModalInfo{Path: types.Path{"Link"}, States: []symbols.StateInfo{
			{Name: "Some", Fields: []symbols.FieldInfo{field("ptr", types.MkPtr(node, types.PtrValid))}},
			{Name: "None"},
		}},
		&symbols.ModalInfo{Path: types.Path{"Pair"}, States: []symbols.StateInfo{
			{Name: "Full", Fields: []symbols.FieldInfo{field("a", types.I32), field("b", types.I64)}},
			{Name: "Empty"},
		}},
	} {
		sigma.AddType(d)
	}
	le := layout.New(layout.X86_64LinuxGNU(), sigma)
	testkit.CheckLayoutInvariants(t, le,
		node, types.MkNamed("Packed"), types.MkNamed("Link"), types.MkNamed("Pair"),
		types.MkTuple(types.U8, types.I128, types.Bool),
		types.MkArray(node, 4),
		&types.Union{Members: []types.Type{types.I32, types.Bool, types.Unit}},
		types.MkSlice(types.U8),
	)
}
