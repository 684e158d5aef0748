package types

import (
	"slices"

	"cursive0/internal/ast"
)

// Equal is structural type equality: same shape, same names and paths.
// Refinement predicates compare with ast.Equal; opaque types by origin.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *Prim:
		return x.Name == b.(*Prim).Name
	case *Perm:
		y := b.(*Perm)
		return x.Perm == y.Perm && Equal(x.Base, y.Base)
	case *Ptr:
		y := b.(*Ptr)
		return x.State == y.State && Equal(x.Elem, y.Elem)
	case *RawPtr:
		y := b.(*RawPtr)
		return x.Qual == y.Qual && Equal(x.Elem, y.Elem)
	case *Tuple:
		return listEqual(x.Elems, b.(*Tuple).Elems)
	case *Array:
		y := b.(*Array)
		return x.Len == y.Len && Equal(x.Elem, y.Elem)
	case *Slice:
		return Equal(x.Elem, b.(*Slice).Elem)
	case *Union:
		return listEqual(x.Members, b.(*Union).Members)
	case *Func:
		y := b.(*Func)
		return Equal(x.Ret, y.Ret) && slices.EqualFunc(x.Params, y.Params, func(p, q FuncParam) bool {
			return p.Mode == q.Mode && Equal(p.Type, q.Type)
		})
	case *Str:
		return x.State == b.(*Str).State
	case *Bytes:
		return x.State == b.(*Bytes).State
	case *Dynamic:
		return slices.Equal(x.Class, b.(*Dynamic).Class)
	case *Named:
		y := b.(*Named)
		return slices.Equal(x.Path, y.Path) && listEqual(x.Args, y.Args)
	case *ModalState:
		y := b.(*ModalState)
		return x.State == y.State && slices.Equal(x.Path, y.Path) && listEqual(x.Args, y.Args)
	case *Refine:
		y := b.(*Refine)
		return Equal(x.Base, y.Base) && ast.Equal(x.Pred, y.Pred)
	case *Opaque:
		y := b.(*Opaque)
		return x.Origin == y.Origin && slices.Equal(x.Class, y.Class)
	case *Range:
		return true
	case *TypeParam:
		return x.Name == b.(*TypeParam).Name
	}
	return false
}

func listEqual(a, b []Type) bool {
	return slices.EqualFunc(a, b, Equal)
}

// Key is a canonical string usable as a map key; Equal types share a key.
func Key(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
