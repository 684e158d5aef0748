package verify

import (
	"math"
	"slices"

	"cursive0/internal/ast"
)

// zeroVar stands for the constant 0 in difference constraints.
const zeroVar = "__zero"

// linExpr is Σ coef·atom + konst.
type linExpr struct {
	terms map[string]int64
	konst int64
}

func constLin(k int64) linExpr { return linExpr{terms: map[string]int64{}, konst: k} }

func atomLin(key string) linExpr { return linExpr{terms: map[string]int64{key: 1}} }

func (l linExpr) isConst() bool { return len(l.terms) == 0 }

func addLin(a, b linExpr, sign int64) (linExpr, bool) {
	out := linExpr{terms: make(map[string]int64, len(a.terms)+len(b.terms))}
	for k, c := range a.terms {
		out.terms[k] = c
	}
	for k, c := range b.terms {
		sc, ok := mulInt64(c, sign)
		if !ok {
			return linExpr{}, false
		}
		sum, ok := addInt64(out.terms[k], sc)
		if !ok {
			return linExpr{}, false
		}
		if sum == 0 {
			delete(out.terms, k)
		} else {
			out.terms[k] = sum
		}
	}
	kb, ok := mulInt64(b.konst, sign)
	if !ok {
		return linExpr{}, false
	}
	out.konst, ok = addInt64(a.konst, kb)
	return out, ok
}

func scaleLin(a linExpr, k int64) (linExpr, bool) {
	out := linExpr{terms: make(map[string]int64, len(a.terms))}
	if k != 0 {
		for key, c := range a.terms {
			v, ok := mulInt64(c, k)
			if !ok {
				return linExpr{}, false
			}
			out.terms[key] = v
		}
	}
	var ok bool
	out.konst, ok = mulInt64(a.konst, k)
	return out, ok
}

// linearize collects terms of an integer expression. Products are linear
// only when one side folds to a constant.
func linearize(e ast.Expr) (linExpr, bool) {
	switch x := e.(type) {
	case *ast.Literal:
		if x.Kind != ast.LitInt {
			return linExpr{}, false
		}
		v, ok := parseInt64(x.Text)
		if !ok {
			return linExpr{}, false
		}
		return constLin(v), true
	case *ast.Ident, *ast.Path, *ast.FieldExpr, *ast.ResultRef, *ast.EntryRef, *ast.Call, *ast.IndexExpr:
		return atomLin(ast.String(e)), true
	case *ast.Unary:
		inner, ok := linearize(x.X)
		if !ok {
			return linExpr{}, false
		}
		switch x.Op {
		case ast.OpNeg:
			return scaleLin(inner, -1)
		case ast.OpPos:
			return inner, true
		}
		return linExpr{}, false
	case *ast.Binary:
		l, ok := linearize(x.X)
		if !ok {
			return linExpr{}, false
		}
		r, ok := linearize(x.Y)
		if !ok {
			return linExpr{}, false
		}
		switch x.Op {
		case ast.OpAdd:
			return addLin(l, r, 1)
		case ast.OpSub:
			return addLin(l, r, -1)
		case ast.OpMul:
			if l.isConst() {
				return scaleLin(r, l.konst)
			}
			if r.isConst() {
				return scaleLin(l, r.konst)
			}
		}
		return linExpr{}, false
	}
	return linExpr{}, false
}

// relation is `expr op 0`.
type relation struct {
	expr linExpr
	op   ast.BinOp
}

func negateRel(op ast.BinOp) ast.BinOp {
	switch op {
	case ast.OpEq:
		return ast.OpNe
	case ast.OpNe:
		return ast.OpEq
	case ast.OpLt:
		return ast.OpGe
	case ast.OpLe:
		return ast.OpGt
	case ast.OpGt:
		return ast.OpLe
	case ast.OpGe:
		return ast.OpLt
	}
	return op
}

func toRelation(pred ast.Expr) (relation, bool) {
	switch x := pred.(type) {
	case *ast.Unary:
		if x.Op != ast.OpNot {
			return relation{}, false
		}
		r, ok := toRelation(x.X)
		if !ok {
			return relation{}, false
		}
		r.op = negateRel(r.op)
		return r, true
	case *ast.Binary:
		if !x.Op.IsComparison() {
			return relation{}, false
		}
		l, ok := linearize(x.X)
		if !ok {
			return relation{}, false
		}
		r, ok := linearize(x.Y)
		if !ok {
			return relation{}, false
		}
		diff, ok := addLin(l, r, -1)
		if !ok {
			return relation{}, false
		}
		return relation{expr: diff, op: x.Op}, true
	}
	return relation{}, false
}

// leZero lowers a relation into conjunctive `E <= 0` forms. `!=` has none.
func leZero(r relation) ([]linExpr, bool) {
	e := r.expr
	switch r.op {
	case ast.OpLe:
		return []linExpr{e}, true
	case ast.OpLt:
		plus1, ok := addLin(e, constLin(1), 1)
		return []linExpr{plus1}, ok
	case ast.OpGe:
		neg, ok := scaleLin(e, -1)
		return []linExpr{neg}, ok
	case ast.OpGt:
		neg, ok := scaleLin(e, -1)
		if !ok {
			return nil, false
		}
		plus1, ok := addLin(neg, constLin(1), 1)
		return []linExpr{plus1}, ok
	case ast.OpEq:
		neg, ok := scaleLin(e, -1)
		return []linExpr{e, neg}, ok
	}
	return nil, false
}

// diffConstraint is x - y <= c.
type diffConstraint struct {
	x, y string
	c    int64
}

// toDiff reduces `E <= 0` to x - y <= c. Zero-variable forms report their
// truth value through isConst.
func toDiff(e linExpr) (d diffConstraint, isConst bool, ok bool) {
	if e.konst == math.MinInt64 {
		return diffConstraint{}, false, false
	}
	switch len(e.terms) {
	case 0:
		return diffConstraint{c: e.konst}, true, true
	case 1:
		for v, c := range e.terms {
			switch c {
			case 1:
				return diffConstraint{x: v, y: zeroVar, c: -e.konst}, false, true
			case -1:
				return diffConstraint{x: zeroVar, y: v, c: -e.konst}, false, true
			}
		}
	case 2:
		var pos, neg string
		for v, c := range e.terms {
			switch c {
			case 1:
				pos = v
			case -1:
				neg = v
			default:
				return diffConstraint{}, false, false
			}
		}
		if pos == "" || neg == "" {
			return diffConstraint{}, false, false
		}
		return diffConstraint{x: pos, y: neg, c: -e.konst}, false, true
	}
	return diffConstraint{}, false, false
}

const inf = math.MaxInt64

// diffGraph is the all-pairs closure of a set of difference constraints.
type diffGraph struct {
	index map[string]int
	dist  [][]int64
	// inconsistent is set when the facts contain a negative cycle.
	inconsistent bool
}

func buildGraph(cons []diffConstraint, extra ...string) *diffGraph {
	names := []string{zeroVar}
	seen := map[string]bool{zeroVar: true}
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			names = append(names, v)
		}
	}
	for _, c := range cons {
		add(c.x)
		add(c.y)
	}
	for _, v := range extra {
		add(v)
	}
	// sorted so the closure is independent of map iteration order
	slices.Sort(names[1:])
	g := &diffGraph{index: make(map[string]int, len(names))}
	for i, n := range names {
		g.index[n] = i
	}
	n := len(names)
	g.dist = make([][]int64, n)
	for i := range g.dist {
		g.dist[i] = make([]int64, n)
		for j := range g.dist[i] {
			g.dist[i][j] = inf
		}
		g.dist[i][i] = 0
	}
	// x - y <= c is an edge y -> x of weight c
	for _, c := range cons {
		from, to := g.index[c.y], g.index[c.x]
		g.dist[from][to] = min(g.dist[from][to], c.c)
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if g.dist[i][k] == inf {
				continue
			}
			for j := 0; j < n; j++ {
				if g.dist[k][j] == inf {
					continue
				}
				sum, ok := addInt64(g.dist[i][k], g.dist[k][j])
				if !ok {
					if g.dist[i][k] < 0 {
						sum = math.MinInt64
					} else {
						continue
					}
				}
				if sum < g.dist[i][j] {
					g.dist[i][j] = sum
				}
			}
		}
	}
	for i := 0; i < n; i++ {
		if g.dist[i][i] < 0 {
			g.inconsistent = true
			break
		}
	}
	return g
}

// entails reports whether x - y <= c follows from the graph.
func (g *diffGraph) entails(d diffConstraint) bool {
	if g.inconsistent {
		return true
	}
	if d.x == d.y {
		return d.c >= 0
	}
	from, okY := g.index[d.y]
	to, okX := g.index[d.x]
	if !okX || !okY {
		return false
	}
	dist := g.dist[from][to]
	return dist != inf && dist <= d.c
}

// factConstraints turns dominating facts into difference constraints,
// skipping anything outside the fragment.
func factConstraints(facts []ast.Expr) []diffConstraint {
	var out []diffConstraint
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		if b, ok := e.(*ast.Binary); ok && b.Op == ast.OpAnd {
			walk(b.X)
			walk(b.Y)
			return
		}
		rel, ok := toRelation(e)
		if !ok {
			return
		}
		forms, ok := leZero(rel)
		if !ok {
			return
		}
		for _, f := range forms {
			d, isConst, ok := toDiff(f)
			if !ok {
				continue
			}
			if isConst {
				if d.c > 0 {
					// a false constant fact: 0 -> 0 with negative weight
					out = append(out, diffConstraint{x: zeroVar, y: zeroVar, c: -1})
				}
				continue
			}
			out = append(out, d)
		}
	}
	for _, f := range facts {
		walk(f)
	}
	return out
}

// proveLinear is the Ent-Linear rule.
func proveLinear(facts []ast.Expr, pred ast.Expr) bool {
	rel, ok := toRelation(pred)
	if !ok {
		return false
	}
	cons := factConstraints(facts)
	if rel.op == ast.OpNe {
		lt := relation{expr: rel.expr, op: ast.OpLt}
		gt := relation{expr: rel.expr, op: ast.OpGt}
		return proveForms(cons, lt) || proveForms(cons, gt)
	}
	return proveForms(cons, rel)
}

func proveForms(cons []diffConstraint, rel relation) bool {
	forms, ok := leZero(rel)
	if !ok {
		return false
	}
	var queries []diffConstraint
	for _, f := range forms {
		d, isConst, ok := toDiff(f)
		if !ok {
			return false
		}
		if isConst {
			if d.c > 0 {
				// constant query is false unless the facts are inconsistent
				if !buildGraph(cons).inconsistent {
					return false
				}
			}
			continue
		}
		queries = append(queries, d)
	}
	if len(queries) == 0 {
		return true
	}
	var extra []string
	for _, q := range queries {
		extra = append(extra, q.x, q.y)
	}
	g := buildGraph(cons, extra...)
	for _, q := range queries {
		if !g.entails(q) {
			return false
		}
	}
	return true
}
