package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/attrs"
	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
	"cursive0/internal/verify"
)

// prove runs the static prover at location at. In a dynamic context an
// unprovable predicate becomes a run-time obligation instead of an error.
func (c *checker) prove(pred ast.Expr, at source.Span, kind ObligationKind, code diag.Code, dynamic bool) error {
	proof := verify.StaticProof(c.facts, pred, at)
	if proof.Provable {
		return nil
	}
	if dynamic || (c.proc != nil && c.proc.dynamic) {
		ob := Obligation{Kind: kind, Pred: pred, Span: at}
		if c.proc != nil {
			ob.Proc = c.proc.info.Path
		}
		c.obligations = append(c.obligations, ob)
		return nil
	}
	f := failf(code, at, "cannot prove %s", ast.String(pred))
	if proof.Failed != nil && proof.Failed != pred {
		f.withNote(ast.SpanOf(proof.Failed), "unproven: "+ast.String(proof.Failed))
	}
	return f
}

func (c *checker) proveRefine(r *types.Refine, e ast.Expr) error {
	pred := verify.SubstIdents(r.Pred, map[string]ast.Expr{"self": e})
	return c.prove(pred, ast.SpanOf(e), ObligationRefine, diag.RefineUnprovable, false)
}

// ownerGenerics returns the type parameters of the declaration that owns p.
func (c *checker) ownerGenerics(p *symbols.ProcInfo) ([]string, bool) {
	if p.Owner == nil {
		return nil, false
	}
	switch d := c.lookupDecl(p.Owner).(type) {
	case *symbols.RecordInfo:
		return d.TypeParams, attrs.HasAttribute(d.Attrs, attrs.Dynamic)
	case *symbols.EnumInfo:
		return d.TypeParams, attrs.HasAttribute(d.Attrs, attrs.Dynamic)
	case *symbols.ModalInfo:
		return d.TypeParams, attrs.HasAttribute(d.Attrs, attrs.Dynamic)
	}
	return nil, false
}

// checkProc checks one procedure or method body against its signature
// and contract.
func (c *checker) checkProc(info *symbols.ProcInfo) error {
	d := info.Decl
	if d == nil || d.Body == nil {
		return nil
	}
	generics, ownerDynamic := c.ownerGenerics(info)
	c.setGenerics(generics)
	c.proc = &procFrame{
		info:    info,
		ret:     info.Ret,
		dynamic: ownerDynamic || attrs.HasAttribute(info.Attrs, attrs.Dynamic),
	}
	c.facts = verify.NewProofContext()
	defer func() { c.proc = nil }()

	env := NewTypeEnv()
	env.Push()
	var entry []string
	if info.Self != nil {
		if err := env.Intro(Binding{Name: "self", Type: info.Self, Span: d.Span}); err != nil {
			return err
		}
		entry = append(entry, "self")
	}
	for i, p := range info.Params {
		if err := env.Intro(Binding{Name: p.Name, Type: p.Type, Span: d.Params[i].Span}); err != nil {
			return err
		}
		entry = append(entry, p.Name)
	}
	if err := c.checkContract(env, info); err != nil {
		return err
	}
	if info.Pre != nil {
		c.facts.AddGlobalConjuncts(info.Pre)
	}
	for _, name := range entry {
		b, _ := env.Lookup(name)
		id := &ast.Ident{Node: ast.Node{Span: b.Span}, Name: name}
		if r, _, ok := refineOf(b.Type); ok {
			c.facts.AddGlobalConjuncts(verify.SubstIdents(r.Pred, map[string]ast.Expr{"self": id}))
		}
		c.facts.AddGlobal(&ast.Binary{Op: ast.OpEq, X: &ast.EntryRef{X: id}, Y: id})
	}

	if err := checkExplicitReturn(d, info.Ret); err != nil {
		return err
	}
	var want types.Type = info.Ret
	if _, opaque := info.Ret.(*types.Opaque); opaque {
		want = nil
	}
	c.bodyExit = func(tail ast.Expr, t types.Type) error {
		switch {
		case tail != nil:
			if o, opaque := info.Ret.(*types.Opaque); opaque {
				if err := c.bindOpaque(o, t, ast.SpanOf(tail)); err != nil {
					return err
				}
			}
			return c.checkPost(tail, ast.SpanOf(tail))
		case types.IsUnit(info.Ret) && !endsInReturn(d.Body):
			unit := &ast.TupleExpr{Node: ast.Node{Span: d.Body.Span}}
			return c.checkPost(unit, d.Body.Span)
		}
		return nil
	}
	defer func() { c.bodyExit = nil }()
	_, err := c.checkBlock(env, d.Body, want, true)
	return err
}

func endsInReturn(b *ast.Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[len(b.Stmts)-1].(*ast.Return)
	return ok
}

// checkExplicitReturn: a procedure returning a value ends in a tail
// expression or a return statement, whatever the control flow.
func checkExplicitReturn(d *ast.Proc, ret types.Type) error {
	if types.IsUnit(ret) {
		return nil
	}
	if d.Body.Tail != nil || endsInReturn(d.Body) {
		return nil
	}
	return failf(diag.ProcBodyExplicitReturn, d.Body.Span,
		"%s returns %s but its body ends without a tail expression or return", d.Name, ret)
}

func (c *checker) checkReturn(env *TypeEnv, s *ast.Return) error {
	if c.proc == nil {
		return failf(diag.ReturnOutsideProc, s.Span, "return outside of a procedure")
	}
	ret := c.proc.ret
	if s.Value == nil {
		if !types.IsUnit(ret) {
			return failf(diag.ReturnType, s.Span, "missing return value of type %s", ret)
		}
		return c.checkPost(&ast.TupleExpr{Node: ast.Node{Span: s.Span}}, s.Span)
	}
	if o, opaque := ret.(*types.Opaque); opaque {
		t, err := c.infer(env, s.Value)
		if err != nil {
			return err
		}
		if err := c.bindOpaque(o, t, ast.SpanOf(s.Value)); err != nil {
			return err
		}
		return c.checkPost(s.Value, s.Span)
	}
	if _, err := c.check(env, s.Value, ret); err != nil {
		if code, _ := Code(err); code == diag.SubtypeMismatch {
			var f *failure
			asFailure(err, &f)
			return failf(diag.ReturnType, f.span, "%s", f.msg)
		}
		return err
	}
	return c.checkPost(s.Value, s.Span)
}

// bindOpaque records the concrete type behind an opaque return. Every
// return of the procedure must agree on it.
func (c *checker) bindOpaque(o *types.Opaque, t types.Type, span source.Span) error {
	concrete := types.StripPerm(t)
	if types.IsNever(concrete) {
		return nil
	}
	if ok, _ := c.subtype(concrete, &types.Dynamic{Class: o.Class}); !ok {
		return failf(diag.SubtypeMismatch, span, "%s does not implement %s", t, o.Class)
	}
	if prev, ok := c.ctx.Opaque[o.Origin]; ok {
		if !types.Equal(prev, concrete) {
			return failf(diag.ReturnType, span, "opaque return is %s here but %s elsewhere", concrete, prev)
		}
		return nil
	}
	c.ctx.Opaque[o.Origin] = concrete
	return nil
}

// checkPost proves the postcondition with @result bound to value.
func (c *checker) checkPost(value ast.Expr, at source.Span) error {
	if c.proc == nil || c.proc.info.Post == nil {
		return nil
	}
	pred := verify.SubstResult(c.proc.info.Post, value)
	return c.prove(pred, at, ObligationPost, diag.PostUnprovable, false)
}

// checkContract: preconditions see neither @result nor @entry; both
// clauses are pure boolean expressions.
func (c *checker) checkContract(env *TypeEnv, info *symbols.ProcInfo) error {
	c.inContract = true
	defer func() {
		c.inContract = false
		c.resultType = nil
	}()
	if pre := info.Pre; pre != nil {
		if verify.ReferencesResult(pre) {
			return failf(diag.ContractPreResult, ast.SpanOf(pre), "precondition refers to @result")
		}
		if verify.ReferencesEntry(pre) {
			return failf(diag.ContractPreEntry, ast.SpanOf(pre), "precondition refers to @entry")
		}
		if err := c.checkPredicate(env, pre); err != nil {
			return err
		}
	}
	if post := info.Post; post != nil {
		c.resultType = info.Ret
		if err := c.checkPredicate(env, post); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkPredicate(env *TypeEnv, pred ast.Expr) error {
	if pure, bad := verify.IsPure(pred); !pure {
		return failf(diag.ContractImpure, ast.SpanOf(bad), "contract clauses must be pure")
	}
	t, err := c.inferPredicate(env, pred)
	if err != nil {
		return err
	}
	if !types.IsBool(types.StripRefine(t)) {
		return failf(diag.ContractNotBool, ast.SpanOf(pred), "contract clause has type %s, want bool", t)
	}
	return nil
}

// inferPredicate types a predicate; names are observed, never copied.
func (c *checker) inferPredicate(env *TypeEnv, pred ast.Expr) (types.Type, error) {
	if id, ok := pred.(*ast.Ident); ok {
		return c.inferPlace(env, id)
	}
	return c.infer(env, pred)
}

func (c *checker) checkLoopInvariant(env *TypeEnv, x *ast.Loop) error {
	inv := x.Invariant
	if verify.ReferencesResult(inv) {
		return failf(diag.ContractPreResult, ast.SpanOf(inv), "loop invariant refers to @result")
	}
	saved := c.resultType
	c.resultType = nil
	err := c.checkPredicate(env, inv)
	c.resultType = saved
	if err != nil {
		return err
	}
	at := ast.SpanOf(inv)
	if err := c.prove(inv, at, ObligationInvariant, diag.InvariantUnprovable, false); err != nil {
		return err
	}
	c.addFact(env, inv, at)
	return nil
}
