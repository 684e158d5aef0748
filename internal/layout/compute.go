package layout

import (
	"math/bits"

	"cursive0/internal/attrs"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

var primLayouts = map[string]TypeLayout{
	"i8": {Size: 1, Align: 1}, "u8": {Size: 1, Align: 1},
	"i16": {Size: 2, Align: 2}, "u16": {Size: 2, Align: 2},
	"i32": {Size: 4, Align: 4}, "u32": {Size: 4, Align: 4},
	"i64": {Size: 8, Align: 8}, "u64": {Size: 8, Align: 8},
	"i128": {Size: 16, Align: 16}, "u128": {Size: 16, Align: 16},
	"f16": {Size: 2, Align: 2}, "f32": {Size: 4, Align: 4}, "f64": {Size: 8, Align: 8},
	"bool": {Size: 1, Align: 1}, "char": {Size: 4, Align: 4},
	"()": {Size: 0, Align: 1}, "!": {Size: 0, Align: 1},
}

func (e *LayoutEngine) computeLayout(t types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	switch x := t.(type) {
	case *types.Prim:
		if x.Name == "usize" || x.Name == "isize" {
			return e.ptrLayout(), nil
		}
		if l, ok := primLayouts[x.Name]; ok {
			return l, nil
		}
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownPath, Type: t}

	case *types.Perm:
		return e.layoutOf(x.Base, state)

	case *types.Refine:
		return e.layoutOf(x.Base, state)

	case *types.Ptr, *types.RawPtr, *types.Func:
		return e.ptrLayout(), nil

	case *types.Dynamic, *types.Slice:
		return e.fatLayout(2), nil

	case *types.Str, *types.Bytes:
		return e.stringLayout(t), nil

	case *types.Tuple:
		return e.sequenceLayout(t, x.Elems, false, state)

	case *types.Array:
		el, err := e.layoutOf(x.Elem, state)
		if err != nil {
			return TypeLayout{}, err
		}
		hi, size := bits.Mul64(el.Size, x.Len)
		if hi != 0 {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrOverflow, Type: t}
		}
		return TypeLayout{Size: size, Align: el.Align}, nil

	case *types.Range:
		return e.sequenceLayout(t, []types.Type{types.U8, types.USize, types.USize}, false, state)

	case *types.Union:
		return e.unionLayout(x, state)

	case *types.Named:
		return e.namedLayout(x, state)

	case *types.ModalState:
		return e.modalStateLayout(x, state)

	case *types.Opaque:
		if e.Opaque != nil {
			if under, ok := e.Opaque(x.Origin); ok {
				return e.layoutOf(under, state)
			}
		}
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolved, Type: t}

	case *types.TypeParam:
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolved, Type: t}
	}
	return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolved, Type: t}
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize == 0 {
		ptrSize = 8
	}
	if ptrAlign == 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

// fatLayout is n pointer-sized words.
func (e *LayoutEngine) fatLayout(n uint64) TypeLayout {
	p := e.ptrLayout()
	return TypeLayout{Size: n * p.Size, Align: p.Align}
}

// stringLayout: Managed is {ptr, len, cap}, View is {ptr, len}, and an
// unknown state is the tagged union of both.
func (e *LayoutEngine) stringLayout(t types.Type) TypeLayout {
	var st types.StrState
	switch x := t.(type) {
	case *types.Str:
		st = x.State
	case *types.Bytes:
		st = x.State
	}
	managed := e.fatLayout(3)
	view := e.fatLayout(2)
	switch st {
	case types.StrManaged:
		return managed
	case types.StrView:
		return view
	}
	return taggedLayout(types.U8, 1, []TypeLayout{managed, view})
}

func roundUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

// sequenceLayout is the C layout: each field at the previous end rounded up
// to its own alignment, total rounded up to the max alignment. packed drops
// all padding.
func (e *LayoutEngine) sequenceLayout(t types.Type, fields []types.Type, packed bool, state *layoutState) (TypeLayout, *LayoutError) {
	if len(fields) == 0 {
		return TypeLayout{Size: 0, Align: 1, FieldOffsets: []uint64{}}, nil
	}
	offsets := make([]uint64, len(fields))
	var size uint64
	var align uint64 = 1
	for i, ft := range fields {
		fl, err := e.layoutOf(ft, state)
		if err != nil {
			return TypeLayout{}, err
		}
		fAlign := max(fl.Align, 1)
		if packed {
			fAlign = 1
		}
		size = roundUp(size, fAlign)
		offsets[i] = size
		var carry uint64
		size, carry = bits.Add64(size, fl.Size, 0)
		if carry != 0 {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrOverflow, Type: t}
		}
		align = max(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{Size: size, Align: align, FieldOffsets: offsets}, nil
}

func fieldTypes(fields []symbols.FieldInfo, env map[string]types.Type) []types.Type {
	out := make([]types.Type, len(fields))
	for i, f := range fields {
		out[i] = types.Subst(f.Type, env)
	}
	return out
}

func genericEnv(params []string, args []types.Type) map[string]types.Type {
	if len(params) == 0 || len(args) == 0 {
		return nil
	}
	env := make(map[string]types.Type, len(params))
	for i, p := range params {
		if i < len(args) {
			env[p] = args[i]
		}
	}
	return env
}

func (e *LayoutEngine) namedLayout(t *types.Named, state *layoutState) (TypeLayout, *LayoutError) {
	if e.Sigma == nil {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownPath, Type: t}
	}
	decl, ok := e.Sigma.LookupType(t.Path)
	if !ok {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownPath, Type: t}
	}
	switch d := decl.(type) {
	case *symbols.RecordInfo:
		return e.recordLayout(t, d, genericEnv(d.TypeParams, t.Args), state)
	case *symbols.EnumInfo:
		return e.enumLayout(t, d, genericEnv(d.TypeParams, t.Args), state)
	case *symbols.ModalInfo:
		return e.modalLayout(t, d, genericEnv(d.TypeParams, t.Args), state)
	case *symbols.AliasInfo:
		if d.Target == nil {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolved, Type: t}
		}
		return e.layoutOf(types.Subst(d.Target, genericEnv(d.TypeParams, t.Args)), state)
	}
	return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownPath, Type: t}
}

func (e *LayoutEngine) recordLayout(t types.Type, rec *symbols.RecordInfo, env map[string]types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	packed := attrs.IsPacked(rec.Attrs)
	alignOverride, hasAlign := attrs.AlignOf(rec.Attrs)
	if packed && hasAlign {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrAttrConflict, Type: t}
	}
	l, err := e.sequenceLayout(t, fieldTypes(rec.Fields, env), packed, state)
	if err != nil {
		return TypeLayout{}, err
	}
	if hasAlign {
		l.Align = max(l.Align, alignOverride)
		l.Size = roundUp(l.Size, l.Align)
	}
	return l, nil
}

func (e *LayoutEngine) modalStateLayout(t *types.ModalState, state *layoutState) (TypeLayout, *LayoutError) {
	if e.Sigma == nil {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownPath, Type: t}
	}
	m, ok := e.Sigma.Modal(t.Path)
	if !ok {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownPath, Type: t}
	}
	st, _, ok := m.State(t.State)
	if !ok {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownPath, Type: t}
	}
	return e.sequenceLayout(t, fieldTypes(st.Fields, genericEnv(m.TypeParams, t.Args)), false, state)
}
