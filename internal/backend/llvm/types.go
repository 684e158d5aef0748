package llvm

import (
	lltypes "github.com/llir/llvm/ir/types"

	"cursive0/internal/layout"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// aggregate is the native struct of a record-like type. Fields maps each
// logical field to its struct index; explicit padding members sit between.
// For tagged types field 0 is the discriminant and field 1 the payload.
type aggregate struct {
	ty     *lltypes.StructType
	fields []int
}

var (
	i8Ptr     = lltypes.NewPointer(lltypes.I8)
	unitType  = lltypes.NewStruct()
	panicType = lltypes.NewStruct(lltypes.I1, lltypes.I32)
)

func intType(bits uint64) *lltypes.IntType {
	switch bits {
	case 1:
		return lltypes.I1
	case 8:
		return lltypes.I8
	case 16:
		return lltypes.I16
	case 32:
		return lltypes.I32
	case 64:
		return lltypes.I64
	case 128:
		return lltypes.I128
	}
	return lltypes.NewInt(bits)
}

func (e *Emitter) usize() *lltypes.IntType { return intType(e.le.Target.PtrBits()) }

func bytesOf(n uint64) lltypes.Type { return lltypes.NewArray(n, lltypes.I8) }

// llType maps t to its native value type. A type without a layout is
// reported once and replaced by i8.
func (e *Emitter) llType(t types.Type) lltypes.Type {
	if t == nil {
		return unitType
	}
	key := types.Key(t)
	if ty, ok := e.typeCache[key]; ok {
		return ty
	}
	ty := e.computeType(t)
	e.typeCache[key] = ty
	return ty
}

func (e *Emitter) computeType(t types.Type) lltypes.Type {
	switch x := t.(type) {
	case *types.Perm:
		return e.llType(x.Base)
	case *types.Refine:
		return e.llType(x.Base)
	case *types.Prim:
		switch {
		case x.Name == "()" || x.Name == "!":
			return unitType
		case x.Name == "bool":
			return lltypes.I1
		case x.Name == "char":
			return lltypes.I32
		case x.Name == "f16":
			return lltypes.Half
		case x.Name == "f32":
			return lltypes.Float
		case x.Name == "f64":
			return lltypes.Double
		case types.IsInteger(x):
			return intType(types.IntBits(x, e.le.Target.PtrBits()))
		}
	case *types.Ptr, *types.RawPtr, *types.Func:
		return i8Ptr
	case *types.Dynamic:
		return lltypes.NewStruct(i8Ptr, i8Ptr)
	case *types.Slice:
		return lltypes.NewStruct(i8Ptr, e.usize())
	case *types.Array:
		return lltypes.NewArray(x.Len, e.llType(x.Elem))
	case *types.Opaque:
		if e.le.Opaque != nil {
			if under, ok := e.le.Opaque(x.Origin); ok {
				return e.llType(under)
			}
		}
	}
	if agg, ok := e.aggregateOf(t); ok {
		return agg.ty
	}
	return lltypes.I8
}

// aggregateOf builds the struct of a tuple, record, modal state, range,
// string, or tagged type from its layout.
func (e *Emitter) aggregateOf(t types.Type) (*aggregate, bool) {
	base := types.StripRefine(t)
	key := types.Key(base)
	if agg, ok := e.aggCache[key]; ok {
		return agg, agg != nil
	}
	l, err := e.le.LayoutOf(base)
	if err != nil {
		e.failf(CodegenLayout, err, "no layout for %s", base)
		e.aggCache[key] = nil
		return nil, false
	}
	var agg *aggregate
	if l.Tag != nil || l.Niche {
		agg = e.taggedStruct(l)
	} else if fts, ok := e.fieldTypes(base); ok {
		agg = e.recordStruct(l, fts)
	}
	if agg == nil {
		e.failf(CodegenUnsupported, nil, "no native type for %s", base)
		e.aggCache[key] = nil
		return nil, false
	}
	if named, ok := base.(*types.Named); ok {
		e.mod.NewTypeDef(named.String(), agg.ty)
	} else if st, ok := base.(*types.ModalState); ok {
		e.mod.NewTypeDef(st.String(), agg.ty)
	}
	e.aggCache[key] = agg
	return agg, true
}

// recordStruct lays fields out at their layout offsets inside a packed
// struct, so the native layout is exactly the computed one.
func (e *Emitter) recordStruct(l layout.TypeLayout, fts []types.Type) *aggregate {
	st := &lltypes.StructType{Packed: true}
	agg := &aggregate{ty: st, fields: make([]int, len(fts))}
	var cur uint64
	for i, ft := range fts {
		off := cur
		if i < len(l.FieldOffsets) {
			off = l.FieldOffsets[i]
		}
		if off > cur {
			st.Fields = append(st.Fields, bytesOf(off-cur))
		}
		agg.fields[i] = len(st.Fields)
		st.Fields = append(st.Fields, e.llType(ft))
		size, err := e.le.SizeOf(ft)
		if err != nil {
			e.failf(CodegenLayout, err, "no layout for field %d", i)
		}
		cur = off + size
	}
	if l.Size > cur {
		st.Fields = append(st.Fields, bytesOf(l.Size-cur))
	}
	return agg
}

// taggedStruct is <{ disc, pad, payload bytes, tail }>; a niche
// representation is opaque bytes.
func (e *Emitter) taggedStruct(l layout.TypeLayout) *aggregate {
	st := &lltypes.StructType{Packed: true}
	if l.Tag == nil {
		st.Fields = []lltypes.Type{bytesOf(l.Size)}
		return &aggregate{ty: st, fields: []int{0, 0}}
	}
	tag := l.Tag
	st.Fields = append(st.Fields, e.llType(tag.DiscType))
	if tag.PayloadOffset > tag.DiscSize {
		st.Fields = append(st.Fields, bytesOf(tag.PayloadOffset-tag.DiscSize))
	}
	payload := len(st.Fields)
	st.Fields = append(st.Fields, bytesOf(tag.PayloadSize))
	if end := tag.PayloadOffset + tag.PayloadSize; l.Size > end {
		st.Fields = append(st.Fields, bytesOf(l.Size-end))
	}
	return &aggregate{ty: st, fields: []int{0, payload}}
}

// fieldTypes lists the logical fields of a record-like type.
func (e *Emitter) fieldTypes(t types.Type) ([]types.Type, bool) {
	switch x := t.(type) {
	case *types.Tuple:
		return x.Elems, true
	case *types.Range:
		return []types.Type{types.U8, types.USize, types.USize}, true
	case *types.Str, *types.Bytes:
		var st types.StrState
		if s, ok := x.(*types.Str); ok {
			st = s.State
		} else {
			st = x.(*types.Bytes).State
		}
		ptr := &types.RawPtr{Qual: types.RawImm, Elem: types.U8}
		if st == types.StrManaged {
			return []types.Type{ptr, types.USize, types.USize}, true
		}
		return []types.Type{ptr, types.USize}, true
	case *types.Named:
		switch d := e.sigma.Types[symbols.PathKeyOf(x.Path)].(type) {
		case *symbols.RecordInfo:
			return substFields(d.Fields, d.TypeParams, x.Args), true
		case *symbols.AliasInfo:
			return e.fieldTypes(types.Subst(d.Target, bind(d.TypeParams, x.Args)))
		}
	case *types.ModalState:
		m, ok := e.sigma.Modal(x.Path)
		if !ok {
			return nil, false
		}
		st, _, ok := m.State(x.State)
		if !ok {
			return nil, false
		}
		return substFields(st.Fields, m.TypeParams, x.Args), true
	}
	return nil, false
}

func bind(params []string, args []types.Type) map[string]types.Type {
	env := make(map[string]types.Type, len(params))
	for i, p := range params {
		if i < len(args) {
			env[p] = args[i]
		}
	}
	return env
}

func substFields(fields []symbols.FieldInfo, params []string, args []types.Type) []types.Type {
	env := bind(params, args)
	out := make([]types.Type, len(fields))
	for i, f := range fields {
		out[i] = types.Subst(f.Type, env)
	}
	return out
}
