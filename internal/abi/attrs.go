package abi

import (
	"cursive0/internal/layout"
	"cursive0/internal/types"
)

// PtrAttrs are the guarantees attached to a pointer argument. Zero
// Dereferenceable or Align means unknown.
type PtrAttrs struct {
	NoAlias         bool
	ReadOnly        bool
	NonNull         bool
	NoUndef         bool
	Dereferenceable uint64
	Align           uint64
}

func (a PtrAttrs) IsZero() bool { return a == PtrAttrs{} }

// permAttrs maps the permission lattice onto aliasing attributes.
func permAttrs(p types.Permission) PtrAttrs {
	switch p {
	case types.PermUnique:
		return PtrAttrs{NoAlias: true}
	case types.PermConst:
		return PtrAttrs{ReadOnly: true}
	}
	return PtrAttrs{}
}

// AddPtrAttributes derives the attributes of a pointer-typed value of
// type t. Only safe pointers in the Valid state are known to be
// dereferenceable; raw pointers, nullable and expired pointers, and
// pointers without a state carry nothing.
func AddPtrAttributes(le *layout.LayoutEngine, t types.Type) PtrAttrs {
	p, ok := types.StripRefine(t).(*types.Ptr)
	if !ok || p.State != types.PtrValid {
		return PtrAttrs{}
	}
	attrs := PtrAttrs{NonNull: true, NoUndef: true}
	if perm, qualified := p.Elem.(*types.Perm); qualified {
		pa := permAttrs(perm.Perm)
		attrs.NoAlias, attrs.ReadOnly = pa.NoAlias, pa.ReadOnly
	}
	if le == nil {
		return attrs
	}
	if l, err := le.LayoutOf(p.Elem); err == nil {
		attrs.Dereferenceable = l.Size
		attrs.Align = l.Align
	}
	return attrs
}

// refAttributes: the pointer of a by-reference slot always points to a
// live value of t owned by the caller.
func refAttributes(mode types.ParamMode, t types.Type, l layout.TypeLayout) PtrAttrs {
	attrs := PtrAttrs{NonNull: true, NoUndef: true, Dereferenceable: l.Size, Align: l.Align}
	if mode == types.ModeMove {
		attrs.NoAlias = true
		return attrs
	}
	pa := permAttrs(types.PermOf(t))
	attrs.NoAlias, attrs.ReadOnly = pa.NoAlias, pa.ReadOnly
	return attrs
}
