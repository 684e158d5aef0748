package verify

import (
	"cursive0/internal/ast"
)

// Rewrite rebuilds e bottom-up, replacing any node for which f returns
// true. Untouched subtrees are shared.
func Rewrite(e ast.Expr, f func(ast.Expr) (ast.Expr, bool)) ast.Expr {
	if e == nil {
		return nil
	}
	if r, ok := f(e); ok {
		return r
	}
	switch x := e.(type) {
	case *ast.Binary:
		l, r := Rewrite(x.X, f), Rewrite(x.Y, f)
		if l == x.X && r == x.Y {
			return x
		}
		return &ast.Binary{Node: x.Node, Op: x.Op, X: l, Y: r}
	case *ast.Unary:
		in := Rewrite(x.X, f)
		if in == x.X {
			return x
		}
		return &ast.Unary{Node: x.Node, Op: x.Op, X: in}
	case *ast.EntryRef:
		in := Rewrite(x.X, f)
		if in == x.X {
			return x
		}
		return &ast.EntryRef{Node: x.Node, X: in}
	case *ast.FieldExpr:
		in := Rewrite(x.X, f)
		if in == x.X {
			return x
		}
		return &ast.FieldExpr{Node: x.Node, X: in, Name: x.Name}
	case *ast.IndexExpr:
		a, i := Rewrite(x.X, f), Rewrite(x.Index, f)
		if a == x.X && i == x.Index {
			return x
		}
		return &ast.IndexExpr{Node: x.Node, X: a, Index: i}
	case *ast.Call:
		callee := Rewrite(x.Callee, f)
		args, changed := rewriteArgs(x.Args, f)
		if callee == x.Callee && !changed {
			return x
		}
		return &ast.Call{Node: x.Node, Callee: callee, Args: args}
	case *ast.MethodCall:
		recv := Rewrite(x.Recv, f)
		args, changed := rewriteArgs(x.Args, f)
		if recv == x.Recv && !changed {
			return x
		}
		return &ast.MethodCall{Node: x.Node, Recv: recv, Name: x.Name, Args: args}
	case *ast.TupleExpr:
		elems, changed := rewriteList(x.Elems, f)
		if !changed {
			return x
		}
		return &ast.TupleExpr{Node: x.Node, Elems: elems}
	case *ast.ArrayExpr:
		elems, changed := rewriteList(x.Elems, f)
		if !changed {
			return x
		}
		return &ast.ArrayExpr{Node: x.Node, Elems: elems}
	case *ast.Cast:
		in := Rewrite(x.X, f)
		if in == x.X {
			return x
		}
		return &ast.Cast{Node: x.Node, X: in, To: x.To}
	}
	return e
}

func rewriteList(list []ast.Expr, f func(ast.Expr) (ast.Expr, bool)) ([]ast.Expr, bool) {
	out := make([]ast.Expr, len(list))
	changed := false
	for i, el := range list {
		out[i] = Rewrite(el, f)
		changed = changed || out[i] != el
	}
	return out, changed
}

func rewriteArgs(args []ast.Arg, f func(ast.Expr) (ast.Expr, bool)) ([]ast.Arg, bool) {
	out := make([]ast.Arg, len(args))
	changed := false
	for i, a := range args {
		out[i] = ast.Arg{Moved: a.Moved, X: Rewrite(a.X, f)}
		changed = changed || out[i].X != a.X
	}
	return out, changed
}

// SubstResult replaces every @result with with.
func SubstResult(e ast.Expr, with ast.Expr) ast.Expr {
	return Rewrite(e, func(n ast.Expr) (ast.Expr, bool) {
		if _, ok := n.(*ast.ResultRef); ok {
			return with, true
		}
		return nil, false
	})
}

// SubstIdents replaces free identifiers by name.
func SubstIdents(e ast.Expr, env map[string]ast.Expr) ast.Expr {
	if len(env) == 0 {
		return e
	}
	return Rewrite(e, func(n ast.Expr) (ast.Expr, bool) {
		if id, ok := n.(*ast.Ident); ok {
			if r, ok := env[id.Name]; ok {
				return r, true
			}
		}
		return nil, false
	})
}

// SubstEntry replaces @entry(x) with x itself, used where entry and
// current values coincide (at procedure entry).
func SubstEntry(e ast.Expr) ast.Expr {
	return Rewrite(e, func(n ast.Expr) (ast.Expr, bool) {
		if en, ok := n.(*ast.EntryRef); ok {
			return SubstEntry(en.X), true
		}
		return nil, false
	})
}

func contains(e ast.Expr, pred func(ast.Expr) bool) bool {
	found := false
	ast.Inspect(e, func(n ast.Expr) bool {
		if found {
			return false
		}
		if pred(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

func ReferencesResult(e ast.Expr) bool {
	return contains(e, func(n ast.Expr) bool {
		_, ok := n.(*ast.ResultRef)
		return ok
	})
}

func ReferencesEntry(e ast.Expr) bool {
	return contains(e, func(n ast.Expr) bool {
		_, ok := n.(*ast.EntryRef)
		return ok
	})
}
