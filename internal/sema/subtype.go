package sema

import (
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// subtype reports whether a <: b. The code names the rule that failed
// when it is more specific than a plain mismatch.
func (c *checker) subtype(a, b types.Type) (bool, diag.Code) {
	if types.Equal(a, b) || types.IsNever(a) {
		return true, diag.UnknownCode
	}
	_, aPerm := a.(*types.Perm)
	_, bPerm := b.(*types.Perm)
	if aPerm || bPerm {
		if !types.PermSub(types.PermOf(a), types.PermOf(b)) {
			return false, diag.SubtypeMismatch
		}
		return c.shapeSub(types.StripPerm(a), types.StripPerm(b))
	}
	return c.shapeSub(a, b)
}

func (c *checker) shapeSub(a, b types.Type) (bool, diag.Code) {
	if types.Equal(a, b) || types.IsNever(a) {
		return true, diag.UnknownCode
	}
	if r, ok := a.(*types.Refine); ok {
		if _, bRef := b.(*types.Refine); !bRef {
			return c.subtype(r.Base, b)
		}
	}
	switch bt := b.(type) {
	case *types.Union:
		if au, ok := a.(*types.Union); ok {
			for _, m := range au.Members {
				if ok, _ := c.shapeSub(m, bt); !ok {
					return false, diag.SubtypeMismatch
				}
			}
			return true, diag.UnknownCode
		}
		for _, m := range bt.Members {
			if ok, _ := c.subtype(a, m); ok {
				return true, diag.UnknownCode
			}
		}
		return false, diag.SubtypeMismatch
	case *types.Dynamic:
		if n, ok := a.(*types.Named); ok && c.ctx.Sigma.Implements(n.Path, bt.Class) {
			return true, diag.UnknownCode
		}
		if o, ok := a.(*types.Opaque); ok && symbols.PathKeyOf(o.Class) == symbols.PathKeyOf(bt.Class) {
			return true, diag.UnknownCode
		}
	case *types.Str:
		if _, ok := a.(*types.Str); ok && bt.State == types.StrNoState {
			return true, diag.UnknownCode
		}
	case *types.Bytes:
		if _, ok := a.(*types.Bytes); ok && bt.State == types.StrNoState {
			return true, diag.UnknownCode
		}
	case *types.Ptr:
		if at, ok := a.(*types.Ptr); ok && bt.State == types.PtrNoState && types.Equal(at.Elem, bt.Elem) {
			return true, diag.UnknownCode
		}
	case *types.Tuple:
		if at, ok := a.(*types.Tuple); ok && len(at.Elems) == len(bt.Elems) {
			for i := range at.Elems {
				if ok, code := c.subtype(at.Elems[i], bt.Elems[i]); !ok {
					return false, code
				}
			}
			return true, diag.UnknownCode
		}
	case *types.Array:
		if at, ok := a.(*types.Array); ok && at.Len == bt.Len {
			return c.subtype(at.Elem, bt.Elem)
		}
	case *types.Named:
		if ms, ok := a.(*types.ModalState); ok && symbols.PathKeyOf(ms.Path) == symbols.PathKeyOf(bt.Path) {
			// a state widens to its modal only when the modal is
			// represented by that state's payload
			if !c.ctx.Layout.NicheCompatible(bt.Path) {
				return false, diag.ChkSubsumptionModal
			}
			if st, ok := c.ctx.Layout.PayloadState(bt.Path); !ok || st != ms.State {
				return false, diag.ChkSubsumptionModal
			}
			return true, diag.UnknownCode
		}
	}
	return false, diag.SubtypeMismatch
}

// unify joins the types of several control-flow exits. Diverging exits
// are ignored. ok is false when two exits disagree.
func unify(list []flowValue) (types.Type, bool) {
	var out types.Type
	for _, v := range list {
		if types.IsNever(v.typ) {
			continue
		}
		if out == nil {
			out = v.typ
			continue
		}
		if !types.Equal(types.StripPerm(out), types.StripPerm(v.typ)) {
			return nil, false
		}
	}
	if out == nil {
		return types.Never, true
	}
	return out, true
}

// isBitcopy reports whether values of t may be copied by naming them.
func (c *checker) isBitcopy(t types.Type) bool {
	switch x := t.(type) {
	case *types.Perm:
		return c.isBitcopy(x.Base)
	case *types.Refine:
		return c.isBitcopy(x.Base)
	case *types.Prim, *types.Ptr, *types.RawPtr, *types.Func, *types.Dynamic, *types.Range:
		return true
	case *types.Str:
		return x.State == types.StrView
	case *types.Bytes:
		return x.State == types.StrView
	case *types.Tuple:
		for _, e := range x.Elems {
			if !c.isBitcopy(e) {
				return false
			}
		}
		return true
	case *types.Array:
		return c.isBitcopy(x.Elem)
	case *types.Named:
		return c.ctx.Sigma.Implements(x.Path, symbols.BitcopyClass)
	}
	return false
}
