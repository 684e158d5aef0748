package layout

import (
	"errors"
	"slices"
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

func field(name string, t types.Type) symbols.FieldInfo {
	return symbols.FieldInfo{Name: name, Type: t}
}

func newTestEngine(decls ...symbols.TypeDecl) *LayoutEngine {
	sigma := symbols.NewSigma()
	symbols.RegisterBuiltins(sigma)
	for _, d := range decls {
		sigma.AddType(d)
	}
	return New(X86_64LinuxGNU(), sigma)
}

func TestRecordLayoutPadding(t *testing.T) {
	e := newTestEngine(
		&symbols.RecordInfo{Path: types.Path{"Point"}, Fields: []symbols.FieldInfo{field("x", types.I32), field("y", types.I32)}},
		&symbols.RecordInfo{Path: types.Path{"Mixed"}, Fields: []symbols.FieldInfo{field("a", types.U8), field("b", types.U32)}},
	)
	cases := []struct {
		path    string
		size    uint64
		align   uint64
		offsets []uint64
	}{
		{"Point", 8, 4, []uint64{0, 4}},
		{"Mixed", 8, 4, []uint64{0, 4}},
	}
	for _, tc := range cases {
		l, err := e.RecordLayoutOf(tc.path)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if l.Size != tc.size || l.Align != tc.align || !slices.Equal(l.FieldOffsets, tc.offsets) {
			t.Fatalf("%s: got size=%d align=%d offsets=%v", tc.path, l.Size, l.Align, l.FieldOffsets)
		}
	}
}

func TestPrimitiveAndPointerLayouts(t *testing.T) {
	e := newTestEngine()
	cases := []struct {
		t     types.Type
		size  uint64
		align uint64
	}{
		{types.Unit, 0, 1},
		{types.Never, 0, 1},
		{types.MkTuple(), 0, 1},
		{types.I128, 16, 16},
		{types.F16, 2, 2},
		{types.Char, 4, 4},
		{types.USize, 8, 8},
		{types.MkPtr(types.MkNamed("Point"), types.PtrValid), 8, 8},
		{&types.RawPtr{Elem: types.U8}, 8, 8},
		{types.MkFunc(types.Unit), 8, 8},
		{types.MkDynamic(symbols.HeapAllocatorName), 16, 8},
		{types.MkSlice(types.U8), 16, 8},
		{types.MkString(types.StrManaged), 24, 8},
		{types.MkString(types.StrView), 16, 8},
		{types.MkString(types.StrNoState), 32, 8},
		{types.MkArray(types.U16, 5), 10, 2},
		{&types.Range{}, 24, 8},
		{types.MkPerm(types.PermUnique, types.I64), 8, 8},
		{types.MkTuple(types.U8, types.U64, types.U8), 24, 8},
	}
	for _, tc := range cases {
		l, err := e.LayoutOf(tc.t)
		if err != nil {
			t.Fatalf("%s: %v", tc.t, err)
		}
		if l.Size != tc.size || l.Align != tc.align {
			t.Errorf("%s: got {%d,%d}, want {%d,%d}", tc.t, l.Size, l.Align, tc.size, tc.align)
		}
	}
}

func TestEnumLayout(t *testing.T) {
	e := newTestEngine(&symbols.EnumInfo{
		Path: types.Path{"E"},
		Variants: []symbols.VariantInfo{
			{Name: "A"},
			{Name: "B", Fields: []symbols.FieldInfo{field("0", types.I32)}},
		},
	})
	l, err := e.LayoutOf(types.MkNamed("E"))
	if err != nil {
		t.Fatal(err)
	}
	if l.Tag == nil || !types.Equal(l.Tag.DiscType, types.U8) {
		t.Fatalf("expected u8 discriminant, got %+v", l.Tag)
	}
	if l.Tag.PayloadSize != 4 || l.Tag.PayloadAlign != 4 || l.Tag.PayloadOffset != 4 {
		t.Fatalf("unexpected payload %+v", l.Tag)
	}
	if l.Size != 8 || l.Align != 4 {
		t.Fatalf("got {%d,%d}", l.Size, l.Align)
	}
}

func TestEnumReprWidensDiscriminant(t *testing.T) {
	b := ast.NewBuilder(1)
	e := newTestEngine(&symbols.EnumInfo{
		Path:     types.Path{"Code"},
		Attrs:    []ast.Attr{b.Attr("repr", b.Ident("u32"))},
		Variants: []symbols.VariantInfo{{Name: "Ok"}, {Name: "Err"}},
	})
	l, err := e.LayoutOf(types.MkNamed("Code"))
	if err != nil {
		t.Fatal(err)
	}
	if l.Size != 4 || !types.Equal(l.Tag.DiscType, types.U32) {
		t.Fatalf("got size %d disc %s", l.Size, l.Tag.DiscType)
	}
}

func TestModalNiche(t *testing.T) {
	elem := types.MkNamed("Node")
	e := newTestEngine(
		&symbols.RecordInfo{Path: types.Path{"Node"}, Fields: []symbols.FieldInfo{field("v", types.I64)}},
		&symbols.ModalInfo{Path: types.Path{"Link"}, States: []symbols.StateInfo{
			{Name: "Some", Fields: []symbols.FieldInfo{field("ptr", types.MkPtr(elem, types.PtrValid))}},
			{Name: "None"},
		}},
		&symbols.ModalInfo{Path: types.Path{"Pair"}, States: []symbols.StateInfo{
			{Name: "Full", Fields: []symbols.FieldInfo{field("a", types.I32), field("b", types.I32)}},
			{Name: "Empty"},
		}},
		&symbols.ModalInfo{Path: types.Path{"Tri"}, States: []symbols.StateInfo{
			{Name: "Some", Fields: []symbols.FieldInfo{field("ptr", types.MkPtr(elem, types.PtrValid))}},
			{Name: "None"},
			{Name: "Gone"},
		}},
	)
	l, err := e.LayoutOf(types.MkNamed("Link"))
	if err != nil {
		t.Fatal(err)
	}
	if !l.Niche || l.Tag != nil || l.Size != 8 {
		t.Fatalf("Link should use the null niche: %+v", l)
	}
	if st, ok := e.PayloadState([]string{"Link"}); !ok || st != "Some" {
		t.Fatalf("PayloadState = %q, %v", st, ok)
	}
	if e.NicheCompatible([]string{"Pair"}) {
		t.Fatalf("two-field payload cannot be niche")
	}
	pair, _ := e.LayoutOf(types.MkNamed("Pair"))
	if pair.Size != 12 || pair.Align != 4 {
		t.Fatalf("Pair tagged layout: {%d,%d}", pair.Size, pair.Align)
	}
	if e.NicheCompatible([]string{"Tri"}) {
		t.Fatalf("one null pattern cannot encode two empty states")
	}
}

func TestUnionNicheOnBool(t *testing.T) {
	e := newTestEngine()
	u := &types.Union{Members: []types.Type{types.Bool, types.Unit}}
	l, err := e.LayoutOf(u)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Niche || l.Size != 1 {
		t.Fatalf("bool|() should be niche: %+v", l)
	}
	u2 := &types.Union{Members: []types.Type{types.I32, types.Bool}}
	l2, _ := e.LayoutOf(u2)
	if l2.Niche || l2.Size != 8 {
		t.Fatalf("i32|bool should be tagged: %+v", l2)
	}
}

func TestPackedAndAlign(t *testing.T) {
	b := ast.NewBuilder(1)
	fields := []symbols.FieldInfo{field("a", types.U8), field("b", types.U32)}
	e := newTestEngine(
		&symbols.RecordInfo{Path: types.Path{"P"}, Attrs: []ast.Attr{b.Attr("packed")}, Fields: fields},
		&symbols.RecordInfo{Path: types.Path{"A"}, Attrs: []ast.Attr{b.Attr("align", b.Int("16"))}, Fields: fields},
		&symbols.RecordInfo{Path: types.Path{"C"}, Attrs: []ast.Attr{b.Attr("packed"), b.Attr("align", b.Int("4"))}, Fields: fields},
	)
	p, err := e.RecordLayoutOf("P")
	if err != nil || p.Size != 5 || p.Align != 1 || !slices.Equal(p.FieldOffsets, []uint64{0, 1}) {
		t.Fatalf("packed: %+v %v", p, err)
	}
	a, err := e.RecordLayoutOf("A")
	if err != nil || a.Size != 16 || a.Align != 16 {
		t.Fatalf("aligned: %+v %v", a, err)
	}
	_, err = e.RecordLayoutOf("C")
	var le *LayoutError
	if !errors.As(err, &le) || le.Kind != LayoutErrAttrConflict {
		t.Fatalf("expected attr conflict, got %v", err)
	}
}

func TestLayoutFailures(t *testing.T) {
	e := newTestEngine(
		&symbols.RecordInfo{Path: types.Path{"Loop"}, Fields: []symbols.FieldInfo{field("next", types.MkNamed("Loop"))}},
	)
	var le *LayoutError
	if _, err := e.LayoutOf(types.MkNamed("Missing")); !errors.As(err, &le) || le.Kind != LayoutErrUnknownPath {
		t.Fatalf("expected unknown path, got %v", err)
	}
	if _, err := e.LayoutOf(types.MkNamed("Loop")); !errors.As(err, &le) || le.Kind != LayoutErrRecursive {
		t.Fatalf("expected recursion error, got %v", err)
	}
	if _, err := e.LayoutOf(&types.Opaque{Class: types.Path{"Iter"}, Origin: 7}); !errors.As(err, &le) || le.Kind != LayoutErrUnresolved {
		t.Fatalf("expected unresolved opaque, got %v", err)
	}
	e.Opaque = func(id ast.NodeID) (types.Type, bool) { return types.U16, id == 7 }
	if l, err := e.LayoutOf(&types.Opaque{Class: types.Path{"Iter"}, Origin: 7}); err != nil || l.Size != 2 {
		t.Fatalf("opaque via resolver: %+v %v", l, err)
	}
}

func TestAliasAndGenerics(t *testing.T) {
	e := newTestEngine(
		&symbols.RecordInfo{Path: types.Path{"Box"}, TypeParams: []string{"T"},
			Fields: []symbols.FieldInfo{field("tag", types.U8), field("v", &types.TypeParam{Name: "T"})}},
		&symbols.AliasInfo{Path: types.Path{"Word"}, Target: types.U64},
	)
	l, err := e.LayoutOf(&types.Named{Path: types.Path{"Box"}, Args: []types.Type{types.MkNamed("Word")}})
	if err != nil {
		t.Fatal(err)
	}
	if l.Size != 16 || !slices.Equal(l.FieldOffsets, []uint64{0, 8}) {
		t.Fatalf("Box<Word>: %+v", l)
	}
}

func TestLayoutMemo(t *testing.T) {
	e := newTestEngine()
	tup := types.MkTuple(types.U8, types.U64)
	for range 2 {
		if _, err := e.LayoutOf(tup); err != nil {
			t.Fatal(err)
		}
	}
	entries, hits := e.CacheStats()
	if entries == 0 || hits == 0 {
		t.Fatalf("entries=%d hits=%d", entries, hits)
	}
	if i686, ok := LookupTarget("i686-linux-gnu"); !ok || i686.PtrBits() != 32 {
		t.Fatalf("i686 = %+v, %v", i686, ok)
	}
}
