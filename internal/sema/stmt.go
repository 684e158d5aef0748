package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/types"
	"cursive0/internal/verify"
)

// stmtOutcome is what folding one statement contributes to its block.
type stmtOutcome struct {
	result   *flowValue
	diverges bool
}

// checkBlock folds the statements of b in a fresh scope. The block type
// is the unified type of its result statements when it has any, the
// type of the tail otherwise, ! when the last statement diverges and ()
// in every other case.
func (c *checker) checkBlock(env *TypeEnv, b *ast.Block, want types.Type, procBody bool) (types.Type, error) {
	env.Push()
	c.facts.PushScope()
	c.blocks = append(c.blocks, &blockFrame{expected: want, procBody: procBody})
	defer func() {
		c.blocks = c.blocks[:len(c.blocks)-1]
		c.facts.PopScope()
		env.Pop()
	}()

	var results []flowValue
	diverges := false
	for i, st := range b.Stmts {
		out, err := c.checkStmt(env, st)
		if err != nil {
			return nil, err
		}
		if out.result != nil {
			results = append(results, *out.result)
			if i != len(b.Stmts)-1 || b.Tail != nil {
				c.warn(diag.ResultUnreachable, ast.SpanOf(st), "statements after result are unreachable")
			}
		}
		diverges = out.diverges
	}
	if len(results) > 0 {
		if b.Tail != nil {
			if _, err := c.infer(env, b.Tail); err != nil {
				return nil, err
			}
		}
		t, ok := unify(results)
		if !ok {
			return nil, failf(diag.BlockResultUnify, results[len(results)-1].span,
				"block results disagree: %s and %s", results[0].typ, results[len(results)-1].typ)
		}
		return t, nil
	}
	var (
		t   types.Type
		err error
	)
	switch {
	case b.Tail != nil && want != nil:
		t, err = c.check(env, b.Tail, want)
	case b.Tail != nil:
		t, err = c.infer(env, b.Tail)
	case diverges:
		t = types.Never
	default:
		t = types.Unit
	}
	// the body's facts are still in scope here
	if err == nil && procBody && c.bodyExit != nil {
		err = c.bodyExit(b.Tail, t)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c *checker) checkStmt(env *TypeEnv, st ast.Stmt) (stmtOutcome, error) {
	switch s := st.(type) {
	case *ast.Let:
		return stmtOutcome{}, c.checkLet(env, s)
	case *ast.Assign:
		return stmtOutcome{}, c.checkAssign(env, s)
	case *ast.ExprStmt:
		t, err := c.infer(env, s.X)
		if err != nil {
			return stmtOutcome{}, err
		}
		return stmtOutcome{diverges: types.IsNever(t)}, nil
	case *ast.Return:
		return stmtOutcome{diverges: true}, c.checkReturn(env, s)
	case *ast.Result:
		frame := c.blocks[len(c.blocks)-1]
		var (
			t   types.Type
			err error
		)
		if frame.expected != nil {
			t, err = c.check(env, s.Value, frame.expected)
		} else {
			t, err = c.infer(env, s.Value)
		}
		if err != nil {
			return stmtOutcome{}, err
		}
		if frame.procBody {
			if err := c.checkPost(s.Value, s.Span); err != nil {
				return stmtOutcome{}, err
			}
		}
		return stmtOutcome{result: &flowValue{typ: t, span: s.Span}}, nil
	case *ast.Break:
		if len(c.loops) == 0 {
			return stmtOutcome{}, failf(diag.BreakOutsideLoop, s.Span, "break outside of a loop")
		}
		loop := c.loops[len(c.loops)-1]
		if s.Value == nil {
			loop.voidBreak = true
			return stmtOutcome{diverges: true}, nil
		}
		if loop.kind != ast.LoopInfinite {
			return stmtOutcome{}, failf(diag.LoopBreakValue, s.Span, "only infinite loops can break with a value")
		}
		t, err := c.infer(env, s.Value)
		if err != nil {
			return stmtOutcome{}, err
		}
		loop.breaks = append(loop.breaks, flowValue{typ: t, span: s.Span})
		return stmtOutcome{diverges: true}, nil
	case *ast.Continue:
		if len(c.loops) == 0 {
			return stmtOutcome{}, failf(diag.ContinueOutsideLoop, s.Span, "continue outside of a loop")
		}
		return stmtOutcome{diverges: true}, nil
	}
	return stmtOutcome{}, failf(diag.UnknownCode, ast.SpanOf(st), "unsupported statement")
}

func (c *checker) checkLet(env *TypeEnv, s *ast.Let) error {
	var t types.Type
	if s.Type != nil {
		lt, err := c.lowerType(s.Type)
		if err != nil {
			return err
		}
		if _, err := c.check(env, s.Init, lt); err != nil {
			return err
		}
		t = lt
	} else {
		it, err := c.infer(env, s.Init)
		if err != nil {
			return err
		}
		t = it
	}
	b := Binding{Name: s.Name, Type: t, Mutable: s.Mutable, Span: s.Span}
	if s.Shadow {
		if err := env.Shadow(b); err != nil {
			return err
		}
		c.facts.Hide(s.Name)
	} else if err := env.Intro(b); err != nil {
		return err
	}
	if s.Mutable {
		return nil
	}
	self := &ast.Ident{Node: ast.Node{Span: s.Span}, Name: s.Name}
	if r, _, ok := refineOf(t); ok {
		c.addFact(env, verify.SubstIdents(r.Pred, map[string]ast.Expr{"self": self}), s.Span)
	}
	if base := types.StripRefine(t); types.IsInteger(base) || types.IsBool(base) {
		if pure, _ := verify.IsPure(s.Init); pure {
			c.addFact(env, &ast.Binary{Node: ast.Node{Span: s.Span}, Op: ast.OpEq, X: self, Y: s.Init}, s.Span)
		}
	}
	return nil
}

// addFact records the conjuncts of pred that do not mention mutable
// bindings; those may change before the fact is used.
func (c *checker) addFact(env *TypeEnv, pred ast.Expr, span source.Span) {
	for _, conj := range verify.Conjuncts(pred) {
		if c.mentionsMutable(env, conj) {
			continue
		}
		c.facts.Add(conj, span)
	}
}

func (c *checker) mentionsMutable(env *TypeEnv, e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Expr) bool {
		if id, ok := n.(*ast.Ident); ok {
			if b, bound := env.Lookup(id.Name); bound && b.Mutable {
				found = true
			}
		}
		return !found
	})
	return found
}

func (c *checker) checkAssign(env *TypeEnv, s *ast.Assign) error {
	if !ast.IsPlace(s.Target) {
		return failf(diag.AssignImmutable, ast.SpanOf(s.Target), "cannot assign to this expression")
	}
	t, err := c.inferPlace(env, s.Target)
	if err != nil {
		return err
	}
	if !c.assignable(env, s.Target) {
		return failf(diag.AssignImmutable, ast.SpanOf(s.Target), "%s is not mutable", ast.String(s.Target))
	}
	_, err = c.check(env, s.Value, types.StripPerm(t))
	return err
}

// assignable: the root binding is declared mutable or reached through a
// unique permission.
func (c *checker) assignable(env *TypeEnv, target ast.Expr) bool {
	if u, ok := target.(*ast.Unary); ok && u.Op == ast.OpDeref {
		return true
	}
	root, ok := ast.RootIdent(target)
	if !ok {
		return false
	}
	b, ok := env.Lookup(root.Name)
	if !ok {
		return false
	}
	return b.Mutable || types.PermOf(b.Type) == types.PermUnique && target != ast.Expr(root)
}

func (c *checker) checkIf(env *TypeEnv, x *ast.If, want types.Type) (types.Type, error) {
	if _, err := c.check(env, x.Cond, types.Bool); err != nil {
		if code, _ := Code(err); code == diag.SubtypeMismatch {
			return nil, failf(diag.CondNotBool, ast.SpanOf(x.Cond), "condition must be bool")
		}
		return nil, err
	}
	cond := ast.SpanOf(x.Cond)

	c.facts.PushScope()
	c.addFact(env, x.Cond, cond)
	var thenWant types.Type
	if x.Else != nil {
		thenWant = want
	}
	thenT, err := c.checkBlock(env, x.Then, thenWant, false)
	c.facts.PopScope()
	if err != nil {
		return nil, err
	}
	if x.Else == nil {
		if !types.IsUnit(thenT) && !types.IsNever(thenT) {
			return nil, failf(diag.IfBranchUnify, x.Then.Span, "if without else must have type (), found %s", thenT)
		}
		return types.Unit, nil
	}
	c.facts.PushScope()
	c.addFact(env, &ast.Unary{Node: ast.Node{Span: cond}, Op: ast.OpNot, X: x.Cond}, cond)
	var elseT types.Type
	switch e := x.Else.(type) {
	case *ast.Block:
		elseT, err = c.checkBlock(env, e, want, false)
	default:
		elseT, err = c.synth(env, e, want)
	}
	c.facts.PopScope()
	if err != nil {
		return nil, err
	}
	t, ok := unify([]flowValue{{typ: thenT}, {typ: elseT}})
	if !ok {
		return nil, failf(diag.IfBranchUnify, x.Span, "if branches have types %s and %s", thenT, elseT)
	}
	return t, nil
}

func (c *checker) loopInvariant(env *TypeEnv, x *ast.Loop) error {
	if x.Invariant == nil {
		return nil
	}
	return c.checkLoopInvariant(env, x)
}

// checkLoop types a loop. Conditional and iterator loops are (); an
// infinite loop is ! without breaks, () with bare breaks and the unified
// break type otherwise.
func (c *checker) checkLoop(env *TypeEnv, x *ast.Loop) (types.Type, error) {
	env.Push()
	c.facts.PushScope()
	defer func() {
		c.facts.PopScope()
		env.Pop()
	}()
	switch x.Kind {
	case ast.LoopCond:
		if _, err := c.check(env, x.Cond, types.Bool); err != nil {
			if code, _ := Code(err); code == diag.SubtypeMismatch {
				return nil, failf(diag.CondNotBool, ast.SpanOf(x.Cond), "loop condition must be bool")
			}
			return nil, err
		}
		if err := c.loopInvariant(env, x); err != nil {
			return nil, err
		}
	case ast.LoopIter:
		it, err := c.infer(env, x.Iter)
		if err != nil {
			return nil, err
		}
		var elem types.Type
		switch t := types.StripRefine(it).(type) {
		case *types.Array:
			elem = t.Elem
		case *types.Slice:
			elem = t.Elem
		case *types.Range:
			elem = types.USize
		default:
			return nil, failf(diag.LoopIter, ast.SpanOf(x.Iter), "%s is not iterable", it)
		}
		// the invariant sees the environment before the loop binding
		if err := c.loopInvariant(env, x); err != nil {
			return nil, err
		}
		if err := env.Intro(Binding{Name: x.Binding, Type: elem, Span: ast.SpanOf(x.Iter)}); err != nil {
			return nil, err
		}
	default:
		if err := c.loopInvariant(env, x); err != nil {
			return nil, err
		}
	}
	frame := &loopFrame{kind: x.Kind}
	c.loops = append(c.loops, frame)
	_, err := c.checkBlock(env, x.Body, nil, false)
	c.loops = c.loops[:len(c.loops)-1]
	if err != nil {
		return nil, err
	}
	if x.Kind != ast.LoopInfinite {
		return types.Unit, nil
	}
	switch {
	case len(frame.breaks) == 0 && !frame.voidBreak:
		return types.Never, nil
	case len(frame.breaks) == 0:
		return types.Unit, nil
	case frame.voidBreak:
		return nil, failf(diag.LoopBreakUnify, x.Span, "loop breaks both with and without a value")
	}
	t, ok := unify(frame.breaks)
	if !ok {
		return nil, failf(diag.LoopBreakUnify, frame.breaks[len(frame.breaks)-1].span,
			"loop breaks with %s and %s", frame.breaks[0].typ, frame.breaks[len(frame.breaks)-1].typ)
	}
	return t, nil
}
