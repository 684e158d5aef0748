package lower

import (
	"fmt"

	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/sema"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// local is a source binding and the IR local it lives in.
type local struct {
	name string
	typ  types.Type
	// val, when set, replaces the local: parameters of a contract bound
	// to argument values.
	val *ir.Value
}

type loopCtx struct {
	// result receives break values; "" when the loop has none.
	result string
}

type procLowerer struct {
	m    *moduleLowerer
	info *symbols.ProcInfo

	temps  ir.Temps
	nodes  []ir.Node
	scopes []map[string]local
	used   map[string]int
	loops  []loopCtx
	// diverged is set once the current sequence has left through
	// return, break or continue; the rest of it is not lowered.
	diverged bool

	pre  map[source.Span]bool
	post bool
}

func newProcLowerer(m *moduleLowerer, info *symbols.ProcInfo) *procLowerer {
	l := &procLowerer{
		m:    m,
		info: info,
		used: make(map[string]int),
		pre:  make(map[source.Span]bool),
	}
	for _, ob := range m.res.Obligations {
		if symbols.PathKeyOf(ob.Proc) != symbols.PathKeyOf(info.Path) {
			continue
		}
		switch ob.Kind {
		case sema.ObligationPre:
			l.pre[ob.Span] = true
		case sema.ObligationPost:
			l.post = true
		}
	}
	return l
}

func (l *procLowerer) emit(n ir.Node) { l.nodes = append(l.nodes, n) }

// sub lowers f into a fresh sequence. The divergence of the enclosing
// sequence is untouched; the returned flag says whether the new one left.
func (l *procLowerer) sub(f func() error) (ir.Node, bool, error) {
	saved, savedDiv := l.nodes, l.diverged
	l.nodes, l.diverged = nil, false
	err := f()
	seq, div := &ir.Seq{Nodes: l.nodes}, l.diverged
	l.nodes, l.diverged = saved, savedDiv
	return seq, div, err
}

func (l *procLowerer) push() { l.scopes = append(l.scopes, map[string]local{}) }
func (l *procLowerer) pop()  { l.scopes = l.scopes[:len(l.scopes)-1] }

func (l *procLowerer) lookup(name string) (local, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if b, ok := l.scopes[i][name]; ok {
			return b, true
		}
	}
	return local{}, false
}

// fresh returns a procedure-unique local name for a source name.
func (l *procLowerer) fresh(name string) string {
	n := l.used[name]
	l.used[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s.%d", name, n+1)
}

func (l *procLowerer) bindParam(name string, t types.Type) {
	l.used[name]++
	l.scopes[len(l.scopes)-1][name] = local{name: name, typ: t}
}

// bind introduces a local initialised with init.
func (l *procLowerer) bind(name string, t types.Type, init *ir.Value) string {
	irName := l.fresh(name)
	l.emit(&ir.BindVar{Name: irName, Type: t, Init: init})
	l.scopes[len(l.scopes)-1][name] = local{name: irName, typ: t}
	return irName
}

// scratch introduces an unnamed local for merging control flow.
func (l *procLowerer) scratch(prefix string, t types.Type) string {
	name := l.fresh("." + prefix)
	l.emit(&ir.BindVar{Name: name, Type: t})
	return name
}

func (l *procLowerer) typeOf(e ast.Expr) (types.Type, error) {
	if t, ok := l.m.res.ExprTypes[ast.IDOf(e)]; ok {
		return t, nil
	}
	if id, ok := e.(*ast.Ident); ok {
		if b, bound := l.lookup(id.Name); bound {
			return b.typ, nil
		}
	}
	return nil, unsupportedf(ast.SpanOf(e), "expression %s has no recorded type", ast.String(e))
}

func bare(t types.Type) types.Type { return types.StripRefine(types.StripPerm(t)) }

// valued reports whether a construct of type t produces a value that
// must be merged across branches.
func valued(t types.Type) bool {
	b := bare(t)
	return !types.IsUnit(b) && !types.IsNever(b)
}

// ret returns v, checking the postcondition first when it was left to
// run time.
func (l *procLowerer) ret(v ir.Value, at source.Span) error {
	if l.post && l.info.Post != nil {
		if err := l.contract(l.info.Post, map[string]ir.Value{resultName: v}, at); err != nil {
			return err
		}
	}
	if types.IsUnit(bare(l.info.Ret)) {
		l.emit(&ir.Return{})
	} else {
		l.emit(&ir.Return{Value: &v})
	}
	l.diverged = true
	return nil
}

// resultName binds @result while a postcondition is lowered.
const resultName = "@result"

// contract lowers pred with the given names bound to values and panics
// with PanicContract when it does not hold.
func (l *procLowerer) contract(pred ast.Expr, bind map[string]ir.Value, at source.Span) error {
	l.push()
	defer l.pop()
	for name, v := range bind {
		v := v
		l.scopes[len(l.scopes)-1][name] = local{typ: v.Type, val: &v}
	}
	cond, err := l.expr(pred)
	if err != nil {
		return err
	}
	l.emit(&ir.Check{Cond: cond, Code: ir.PanicContract, Span: at})
	return nil
}
