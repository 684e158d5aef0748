package verify

import "cursive0/internal/ast"

// IsPure reports whether a contract predicate is free of observable
// effects, returning the first offending node otherwise. Every method call
// counts as possibly mutating its receiver; plain procedure calls do not.
func IsPure(e ast.Expr) (bool, ast.Expr) {
	var bad ast.Expr
	ast.Inspect(e, func(n ast.Expr) bool {
		if bad != nil {
			return false
		}
		switch n.(type) {
		case *ast.MethodCall, *ast.Move, *ast.Block, *ast.Loop, *ast.Unsafe, *ast.Match:
			bad = n
			return false
		}
		return true
	})
	return bad == nil, bad
}
