package layout

import (
	"fmt"

	"fortio.org/safecast"

	"cursive0/internal/attrs"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// charNiche is the number of u32 bit patterns that are not Unicode scalar values.
const charNiche = 1<<32 - (0x110000 - 0x800)

// DiscTypeFor picks the smallest unsigned type holding maxDisc.
func DiscTypeFor(maxDisc uint64) (types.Type, uint64) {
	switch {
	case maxDisc <= 0xFF:
		return types.U8, 1
	case maxDisc <= 0xFFFF:
		return types.U16, 2
	case maxDisc <= 0xFFFFFFFF:
		return types.U32, 4
	}
	return types.U64, 8
}

// taggedLayout places a discriminant of discSize bytes, then the payload at
// the discriminant rounded up to the payload alignment.
func taggedLayout(discType types.Type, discSize uint64, cases []TypeLayout) TypeLayout {
	var payloadSize uint64
	var payloadAlign uint64 = 1
	for _, c := range cases {
		payloadSize = max(payloadSize, c.Size)
		payloadAlign = max(payloadAlign, c.Align)
	}
	payloadOffset := roundUp(discSize, payloadAlign)
	align := max(discSize, payloadAlign)
	return TypeLayout{
		Size:  roundUp(payloadOffset+payloadSize, align),
		Align: align,
		Tag: &TagInfo{
			DiscType:      discType,
			DiscSize:      discSize,
			PayloadSize:   payloadSize,
			PayloadAlign:  payloadAlign,
			PayloadOffset: payloadOffset,
		},
		Cases: cases,
	}
}

func (e *LayoutEngine) enumLayout(t types.Type, d *symbols.EnumInfo, env map[string]types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	discs, derr := EnumDiscriminants(d.Variants)
	if derr != nil {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrDiscriminant, Type: t, Code: derr.Code, Span: derr.Span}
	}
	discType, discSize := DiscTypeFor(discs.Max)
	if repr, ok := attrs.ReprOf(d.Attrs); ok {
		rt := types.MkPrim(repr)
		if rl, known := primLayouts[repr]; known && types.IsInteger(rt) && rl.Size >= discSize {
			discType, discSize = rt, rl.Size
		}
	}
	cases := make([]TypeLayout, len(d.Variants))
	for i, v := range d.Variants {
		cl, err := e.sequenceLayout(t, fieldTypes(v.Fields, env), false, state)
		if err != nil {
			return TypeLayout{}, err
		}
		cases[i] = cl
	}
	l := taggedLayout(discType, discSize, cases)
	if n, ok := attrs.AlignOf(d.Attrs); ok {
		l.Align = max(l.Align, n)
		l.Size = roundUp(l.Size, l.Align)
	}
	return l, nil
}

func (e *LayoutEngine) modalLayout(t types.Type, m *symbols.ModalInfo, env map[string]types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	cases := make([]TypeLayout, len(m.States))
	fields := make([][]types.Type, len(m.States))
	for i, st := range m.States {
		fields[i] = fieldTypes(st.Fields, env)
		cl, err := e.sequenceLayout(t, fields[i], false, state)
		if err != nil {
			return TypeLayout{}, err
		}
		cases[i] = cl
	}
	return e.nicheOrTagged(cases, fields, state), nil
}

func (e *LayoutEngine) unionLayout(u *types.Union, state *layoutState) (TypeLayout, *LayoutError) {
	cases := make([]TypeLayout, len(u.Members))
	fields := make([][]types.Type, len(u.Members))
	for i, mt := range u.Members {
		cl, err := e.layoutOf(mt, state)
		if err != nil {
			return TypeLayout{}, err
		}
		cases[i] = cl
		fields[i] = []types.Type{mt}
	}
	return e.nicheOrTagged(cases, fields, state), nil
}

func (e *LayoutEngine) nicheOrTagged(cases []TypeLayout, fields [][]types.Type, state *layoutState) TypeLayout {
	if idx, ok := e.nicheCase(cases, fields, state); ok {
		l := cases[idx]
		return TypeLayout{
			Size:         l.Size,
			Align:        l.Align,
			FieldOffsets: l.FieldOffsets,
			Niche:        true,
			NicheCase:    idx,
			Cases:        cases,
		}
	}
	var maxDisc uint64
	if len(cases) > 0 {
		maxDisc = countU64(len(cases) - 1)
	}
	discType, discSize := DiscTypeFor(maxDisc)
	return taggedLayout(discType, discSize, cases)
}

// nicheCase finds the single case with a non-empty payload. The niche is
// usable when that payload is one field whose invalid bit patterns can
// encode every other (empty) case.
func (e *LayoutEngine) nicheCase(cases []TypeLayout, fields [][]types.Type, state *layoutState) (int, bool) {
	informative := -1
	for i, c := range cases {
		if c.Size == 0 {
			continue
		}
		if informative >= 0 {
			return -1, false
		}
		informative = i
	}
	if informative < 0 || len(fields[informative]) != 1 {
		return -1, false
	}
	empties := countU64(len(cases) - 1)
	if empties == 0 {
		return informative, true
	}
	return informative, e.nicheCount(fields[informative][0], state, 0) >= empties
}

// nicheCount is the number of bit patterns of t that no valid value uses.
func (e *LayoutEngine) nicheCount(t types.Type, state *layoutState, depth int) uint64 {
	if depth > 16 {
		return 0
	}
	switch x := t.(type) {
	case *types.Perm:
		return e.nicheCount(x.Base, state, depth+1)
	case *types.Refine:
		return e.nicheCount(x.Base, state, depth+1)
	case *types.Ptr:
		if x.State == types.PtrValid {
			return 1
		}
	case *types.Func, *types.Dynamic:
		return 1
	case *types.Prim:
		switch x.Name {
		case "bool":
			return 254
		case "char":
			return charNiche
		}
	case *types.Named:
		if e.Sigma == nil {
			return 0
		}
		rec, ok := e.Sigma.Record(x.Path)
		if !ok || len(rec.Fields) != 1 {
			return 0
		}
		// single-field records are transparent
		ft := types.Subst(rec.Fields[0].Type, genericEnv(rec.TypeParams, x.Args))
		return e.nicheCount(ft, state, depth+1)
	}
	return 0
}

// NicheCompatible reports whether the modal at path is represented by a
// single payload field without a discriminant.
func (e *LayoutEngine) NicheCompatible(path []string) bool {
	l, err := e.LayoutOf(types.MkNamed(path...))
	return err == nil && l.Niche
}

// PayloadState names the state carrying the payload of a niche modal.
func (e *LayoutEngine) PayloadState(path []string) (string, bool) {
	l, err := e.LayoutOf(types.MkNamed(path...))
	if err != nil || !l.Niche || e.Sigma == nil {
		return "", false
	}
	m, ok := e.Sigma.Modal(path)
	if !ok || l.NicheCase >= len(m.States) {
		return "", false
	}
	return m.States[l.NicheCase].Name, true
}

func countU64(n int) uint64 {
	v, err := safecast.Conv[uint64](n)
	if err != nil {
		panic(fmt.Errorf("layout: case count overflow: %w", err))
	}
	return v
}
