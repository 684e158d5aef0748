package lower

import (
	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/types"
)

// match lowers a match on an integer, bool or char scrutinee into a
// switch. The first catch-all arm becomes the default; arms after it
// are unreachable and dropped.
func (l *procLowerer) match(x *ast.Match) (ir.Value, error) {
	t, err := l.typeOf(x)
	if err != nil {
		return ir.Value{}, err
	}
	st, err := l.typeOf(x.Scrutinee)
	if err != nil {
		return ir.Value{}, err
	}
	base := bare(st)
	if !types.IsInteger(base) && !types.IsBool(base) && !types.IsPrim(base, "char") {
		return ir.Value{}, unsupportedf(x.Span, "match on %s", st)
	}
	scr, err := l.expr(x.Scrutinee)
	if err != nil {
		return ir.Value{}, err
	}
	res := ""
	if valued(t) {
		res = l.scratch("match", t)
	}
	node := &ir.Match{Scrutinee: scr}
	seen := make(map[uint64]bool)
	left := true
	for _, arm := range x.Arms {
		if arm.Guard != nil {
			return ir.Value{}, unsupportedf(ast.SpanOf(arm.Guard), "match guards")
		}
		switch p := arm.Pattern.(type) {
		case *ast.LitPat:
			v, err := l.literal(p.Lit, base, false)
			if err != nil {
				return ir.Value{}, err
			}
			key, ok := v.Uint64()
			if !ok {
				return ir.Value{}, unsupportedf(p.Span, "128-bit match patterns")
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			body, armLeft, err := l.merge(res, func() (ir.Value, error) { return l.expr(arm.Body) })
			if err != nil {
				return ir.Value{}, err
			}
			left = left && armLeft
			node.Cases = append(node.Cases, ir.Case{Value: key, Body: body})
		case *ast.WildcardPat, *ast.BindPat:
			body, armLeft, err := l.merge(res, func() (ir.Value, error) {
				l.push()
				defer l.pop()
				if b, ok := p.(*ast.BindPat); ok {
					l.bind(b.Name, st, &scr)
				}
				return l.expr(arm.Body)
			})
			if err != nil {
				return ir.Value{}, err
			}
			left = left && armLeft
			node.Default = body
		default:
			return ir.Value{}, unsupportedf(ast.SpanOf(arm.Pattern), "this pattern")
		}
		if node.Default != nil {
			break
		}
	}
	l.emit(node)
	if left {
		l.diverged = true
	}
	if res == "" {
		return ir.Unit(), nil
	}
	return ir.Local(res, t), nil
}
