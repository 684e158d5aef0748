package lower

import (
	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/sema"
	"cursive0/internal/types"
)

// block lowers b in a new scope.
func (l *procLowerer) block(b *ast.Block) (ir.Value, error) {
	l.push()
	defer l.pop()
	return l.blockIn(b)
}

// blockIn lowers b in the current scope. A result statement is only
// supported as the last statement, where it is the block value.
func (l *procLowerer) blockIn(b *ast.Block) (ir.Value, error) {
	for i, st := range b.Stmts {
		if l.diverged {
			return ir.Unit(), nil
		}
		if r, ok := st.(*ast.Result); ok {
			if i != len(b.Stmts)-1 || b.Tail != nil {
				return ir.Value{}, unsupportedf(r.Span, "result before the end of a block")
			}
			return l.expr(r.Value)
		}
		if err := l.stmt(st); err != nil {
			return ir.Value{}, err
		}
	}
	if b.Tail == nil || l.diverged {
		return ir.Unit(), nil
	}
	return l.expr(b.Tail)
}

func (l *procLowerer) stmt(st ast.Stmt) error {
	switch s := st.(type) {
	case *ast.Let:
		return l.let(s)
	case *ast.Assign:
		id, ok := s.Target.(*ast.Ident)
		if !ok {
			return unsupportedf(s.Span, "assignment to %s", ast.String(s.Target))
		}
		b, ok := l.lookup(id.Name)
		if !ok || b.val != nil {
			return unsupportedf(s.Span, "assignment to %s", id.Name)
		}
		v, err := l.expr(s.Value)
		if err != nil {
			return err
		}
		l.emit(&ir.StoreVar{Name: b.name, Value: v})
		return nil
	case *ast.ExprStmt:
		_, err := l.expr(s.X)
		return err
	case *ast.Return:
		v := ir.Unit()
		if s.Value != nil {
			var err error
			if v, err = l.expr(s.Value); err != nil {
				return err
			}
		}
		if l.diverged {
			return nil
		}
		return l.ret(v, s.Span)
	case *ast.Break:
		if len(l.loops) == 0 {
			return unsupportedf(s.Span, "break outside of a loop")
		}
		if s.Value != nil {
			v, err := l.expr(s.Value)
			if err != nil {
				return err
			}
			if res := l.loops[len(l.loops)-1].result; res != "" && !l.diverged {
				l.emit(&ir.StoreVar{Name: res, Value: v})
			}
		}
		l.emit(&ir.Break{})
		l.diverged = true
		return nil
	case *ast.Continue:
		l.emit(&ir.Continue{})
		l.diverged = true
		return nil
	}
	return unsupportedf(ast.SpanOf(st), "statement")
}

func (l *procLowerer) let(s *ast.Let) error {
	v, err := l.expr(s.Init)
	if err != nil {
		return err
	}
	var t types.Type
	if s.Type != nil {
		if t, err = sema.LowerType(l.m.ctx, s.Type, nil); err != nil {
			return unsupportedf(s.Span, "%v", err)
		}
	} else if t, err = l.typeOf(s.Init); err != nil {
		return err
	}
	if l.diverged {
		return nil
	}
	l.bind(s.Name, t, &v)
	return nil
}

// merge lowers a branch and stores its value into res unless it left.
func (l *procLowerer) merge(res string, f func() (ir.Value, error)) (ir.Node, bool, error) {
	return l.sub(func() error {
		v, err := f()
		if err != nil {
			return err
		}
		if res != "" && !l.diverged {
			l.emit(&ir.StoreVar{Name: res, Value: v})
		}
		return nil
	})
}

func (l *procLowerer) ifExpr(x *ast.If) (ir.Value, error) {
	t, err := l.typeOf(x)
	if err != nil {
		return ir.Value{}, err
	}
	cond, err := l.expr(x.Cond)
	if err != nil {
		return ir.Value{}, err
	}
	res := ""
	if x.Else != nil && valued(t) {
		res = l.scratch("if", t)
	}
	then, thenLeft, err := l.merge(res, func() (ir.Value, error) { return l.block(x.Then) })
	if err != nil {
		return ir.Value{}, err
	}
	node := &ir.If{Cond: cond, Then: then}
	elseLeft := false
	if x.Else != nil {
		node.Else, elseLeft, err = l.merge(res, func() (ir.Value, error) { return l.expr(x.Else) })
		if err != nil {
			return ir.Value{}, err
		}
	}
	l.emit(node)
	if thenLeft && elseLeft {
		l.diverged = true
	}
	if res == "" {
		return ir.Unit(), nil
	}
	return ir.Local(res, t), nil
}

func (l *procLowerer) loop(x *ast.Loop) (ir.Value, error) {
	t, err := l.typeOf(x)
	if err != nil {
		return ir.Value{}, err
	}
	l.push()
	defer l.pop()
	ctx := loopCtx{}
	if x.Kind == ast.LoopInfinite && valued(t) {
		ctx.result = l.scratch("loop", t)
	}

	var head func() error
	switch x.Kind {
	case ast.LoopCond:
		head = func() error {
			c, err := l.expr(x.Cond)
			if err != nil {
				return err
			}
			l.emit(&ir.If{Cond: c, Else: &ir.Break{}})
			return nil
		}
	case ast.LoopIter:
		if head, err = l.rangeHead(x); err != nil {
			return ir.Value{}, err
		}
	}

	l.loops = append(l.loops, ctx)
	body, _, err := l.sub(func() error {
		if head != nil {
			if err := head(); err != nil {
				return err
			}
		}
		_, err := l.block(x.Body)
		return err
	})
	l.loops = l.loops[:len(l.loops)-1]
	if err != nil {
		return ir.Value{}, err
	}
	l.emit(&ir.Loop{Body: body})
	if types.IsNever(bare(t)) {
		l.diverged = true
	}
	if ctx.result == "" {
		return ir.Unit(), nil
	}
	return ir.Local(ctx.result, t), nil
}

// rangeHead evaluates the bounds of `for x in lo..hi` once and returns
// the per-iteration head: leave when next >= hi, bind x, advance next.
// Advancing before the body keeps continue correct.
func (l *procLowerer) rangeHead(x *ast.Loop) (func() error, error) {
	r, ok := x.Iter.(*ast.RangeExpr)
	if !ok || r.Inclusive || r.Lo == nil || r.Hi == nil {
		return nil, unsupportedf(ast.SpanOf(x.Iter), "iteration over %s", ast.String(x.Iter))
	}
	lo, err := l.expr(r.Lo)
	if err != nil {
		return nil, err
	}
	hi, err := l.expr(r.Hi)
	if err != nil {
		return nil, err
	}
	next := l.scratch("next", types.USize)
	l.emit(&ir.StoreVar{Name: next, Value: lo})
	one, err := l.intImm(types.USize, 0, 1)
	if err != nil {
		return nil, err
	}
	return func() error {
		cur := ir.Local(next, types.USize)
		more := l.temps.New(types.Bool)
		l.emit(&ir.Binary{Dst: more.Name, Op: ir.OpLt, X: cur, Y: hi, Type: types.USize})
		l.emit(&ir.If{Cond: more, Else: &ir.Break{}})
		l.bind(x.Binding, types.USize, &cur)
		step := l.temps.New(types.USize)
		l.emit(&ir.Binary{Dst: step.Name, Op: ir.OpAdd, X: cur, Y: one, Type: types.USize})
		l.emit(&ir.StoreVar{Name: next, Value: step})
		return nil
	}, nil
}
