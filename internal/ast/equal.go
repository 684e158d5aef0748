package ast

import (
	"slices"
	"strings"
)

// Equal reports structural equality of two expressions. Ids and spans are
// ignored; numeric literal text is compared without `_` separators.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.Kind == y.Kind && x.Suffix == y.Suffix && litText(x) == litText(y)
	case *Ident:
		y, ok := b.(*Ident)
		return ok && x.Name == y.Name
	case *Path:
		y, ok := b.(*Path)
		return ok && slices.Equal(x.Segments, y.Segments)
	case *ResultRef:
		_, ok := b.(*ResultRef)
		return ok
	case *EntryRef:
		y, ok := b.(*EntryRef)
		return ok && Equal(x.X, y.X)
	case *FieldExpr:
		y, ok := b.(*FieldExpr)
		return ok && x.Name == y.Name && Equal(x.X, y.X)
	case *IndexExpr:
		y, ok := b.(*IndexExpr)
		return ok && Equal(x.X, y.X) && Equal(x.Index, y.Index)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.X, y.X) && Equal(x.Y, y.Y)
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.X, y.X)
	case *Call:
		y, ok := b.(*Call)
		return ok && Equal(x.Callee, y.Callee) && argsEqual(x.Args, y.Args)
	case *MethodCall:
		y, ok := b.(*MethodCall)
		return ok && x.Name == y.Name && Equal(x.Recv, y.Recv) && argsEqual(x.Args, y.Args)
	case *TupleExpr:
		y, ok := b.(*TupleExpr)
		return ok && exprsEqual(x.Elems, y.Elems)
	case *ArrayExpr:
		y, ok := b.(*ArrayExpr)
		return ok && exprsEqual(x.Elems, y.Elems)
	case *Move:
		y, ok := b.(*Move)
		return ok && Equal(x.X, y.X)
	case *NullPtr:
		_, ok := b.(*NullPtr)
		return ok
	}
	// блоки, циклы и прочее сравниваем только по идентичности
	return a == b
}

func litText(l *Literal) string {
	if l.Kind == LitInt || l.Kind == LitFloat {
		return strings.ReplaceAll(l.Text, "_", "")
	}
	return l.Text
}

func exprsEqual(a, b []Expr) bool {
	return slices.EqualFunc(a, b, Equal)
}

func argsEqual(a, b []Arg) bool {
	return slices.EqualFunc(a, b, func(x, y Arg) bool {
		return x.Moved == y.Moved && Equal(x.X, y.X)
	})
}
