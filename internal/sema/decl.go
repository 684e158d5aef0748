package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
	"cursive0/internal/verify"
)

func (c *checker) checkRecord(d *ast.Record) ([]*symbols.ProcInfo, error) {
	decl, ok := c.ctx.resolveType([]string{d.Name})
	if !ok {
		return nil, nil
	}
	r, ok := decl.(*symbols.RecordInfo)
	if !ok || r.Decl != d {
		return nil, nil
	}
	c.setGenerics(r.TypeParams)
	if d.Invariant != nil {
		if verify.ReferencesResult(d.Invariant) {
			return nil, failf(diag.ContractPreResult, ast.SpanOf(d.Invariant), "record invariant refers to @result")
		}
		env := NewTypeEnv()
		self := &types.Named{Path: r.Path, Args: genericArgs(r.TypeParams)}
		if err := env.Intro(Binding{Name: "self", Type: self, Span: d.Span}); err != nil {
			return nil, err
		}
		if err := c.checkPredicate(env, d.Invariant); err != nil {
			return nil, err
		}
	}
	if err := c.checkBitcopyFields(r.Implements, r.Fields, d.Span); err != nil {
		return nil, err
	}
	if err := c.checkImplements(r.Path, r.Implements, r.Methods, d.Span); err != nil {
		return nil, err
	}
	var checked []*symbols.ProcInfo
	for _, m := range d.Methods {
		info, ok := r.Methods[m.Name]
		if !ok || info.Decl != m {
			continue
		}
		c.resetDecl()
		c.setGenerics(r.TypeParams)
		if err := c.checkProc(info); err != nil {
			return checked, err
		}
		checked = append(checked, info)
	}
	return checked, nil
}

// checkBitcopyFields: a Bitcopy record is made of Bitcopy fields only.
func (c *checker) checkBitcopyFields(classes []types.Path, fields []symbols.FieldInfo, span source.Span) error {
	declared := false
	for _, cl := range classes {
		if symbols.PathKeyOf(cl) == symbols.PathKeyOf(symbols.BitcopyClass) {
			declared = true
		}
	}
	if !declared {
		return nil
	}
	for _, f := range fields {
		if !c.isBitcopy(f.Type) {
			return failf(diag.SubtypeMismatch, f.Span, "field %s of type %s is not Bitcopy", f.Name, f.Type)
		}
	}
	return nil
}

func (c *checker) checkModal(d *ast.Modal) ([]*symbols.ProcInfo, error) {
	decl, ok := c.ctx.resolveType([]string{d.Name})
	if !ok {
		return nil, nil
	}
	m, ok := decl.(*symbols.ModalInfo)
	if !ok || m.Decl != d {
		return nil, nil
	}
	var checked []*symbols.ProcInfo
	for i, st := range d.States {
		state := &m.States[i]
		for _, p := range st.Methods {
			info, ok := state.Methods[p.Name]
			if !ok || info.Decl != p {
				continue
			}
			c.resetDecl()
			if err := c.checkProc(info); err != nil {
				return checked, err
			}
			checked = append(checked, info)
		}
	}
	return checked, nil
}

// checkClass checks the default bodies of a class.
func (c *checker) checkClass(d *ast.Class) ([]*symbols.ProcInfo, error) {
	cl, ok := c.ctx.resolveClass([]string{d.Name})
	if !ok || cl.Decl != d {
		return nil, nil
	}
	var checked []*symbols.ProcInfo
	for _, name := range cl.Order {
		info := cl.Methods[name]
		if info.Decl == nil || info.Decl.Body == nil {
			continue
		}
		c.resetDecl()
		if err := c.checkProc(info); err != nil {
			return checked, err
		}
		checked = append(checked, info)
	}
	return checked, nil
}

// checkImplements verifies that the type at path provides every abstract
// method of each class it declares, with the class signature, a
// precondition no stronger and a postcondition no weaker.
func (c *checker) checkImplements(path types.Path, classes []types.Path, methods map[string]*symbols.ProcInfo, span source.Span) error {
	for _, cp := range classes {
		cl, ok := c.ctx.Sigma.LookupClass(cp)
		if !ok {
			return failf(diag.TypeUnknownPath, span, "unknown class %s", cp)
		}
		for _, name := range cl.Order {
			want := cl.Methods[name]
			impl, ok := methods[name]
			if !ok {
				if want.Decl != nil && want.Decl.Body != nil {
					continue
				}
				return failf(diag.MethodUnknown, span, "%s does not implement %s::%s", path, cp, name)
			}
			if err := c.matchSignature(want, impl); err != nil {
				return err
			}
			if err := c.behavioralSubtype(want, impl); err != nil {
				return err
			}
		}
	}
	return nil
}

func implSpan(p *symbols.ProcInfo) source.Span {
	if p.Decl != nil {
		return p.Decl.Span
	}
	return source.Span{}
}

func (c *checker) matchSignature(want, impl *symbols.ProcInfo) error {
	at := implSpan(impl)
	if (want.Self == nil) != (impl.Self == nil) ||
		want.Self != nil && types.PermOf(want.Self) != types.PermOf(impl.Self) {
		return failf(diag.SubtypeMismatch, at, "%s: receiver does not match %s", impl.Name, want.Path)
	}
	if len(want.Params) != len(impl.Params) {
		return failf(diag.SubtypeMismatch, at, "%s takes %d parameters, class %s declares %d",
			impl.Name, len(impl.Params), want.Path, len(want.Params))
	}
	for i := range want.Params {
		w, g := want.Params[i], impl.Params[i]
		if w.Mode != g.Mode || !types.Equal(w.Type, g.Type) {
			return failf(diag.SubtypeMismatch, at, "%s: parameter %s is %s, class declares %s",
				impl.Name, g.Name, g.Type, w.Type)
		}
	}
	if !types.Equal(want.Ret, impl.Ret) {
		return failf(diag.SubtypeMismatch, at, "%s returns %s, class declares %s", impl.Name, impl.Ret, want.Ret)
	}
	return nil
}

// behavioralSubtype proves pre_class => pre_impl and post_impl =>
// post_class with class parameters renamed to the implementation's.
func (c *checker) behavioralSubtype(want, impl *symbols.ProcInfo) error {
	rename := make(map[string]ast.Expr, len(want.Params))
	for i, p := range want.Params {
		if p.Name != impl.Params[i].Name {
			rename[p.Name] = &ast.Ident{Name: impl.Params[i].Name}
		}
	}
	at := implSpan(impl)
	saved := c.facts
	defer func() { c.facts = saved }()

	if impl.Pre != nil {
		c.facts = verify.NewProofContext()
		if want.Pre != nil {
			c.facts.AddGlobalConjuncts(verify.SubstIdents(want.Pre, rename))
		}
		if proof := verify.StaticProof(c.facts, impl.Pre, at); !proof.Provable {
			return failf(diag.ImplPreStronger, at, "precondition of %s is stronger than %s", impl.Path, want.Path).
				withNote(ast.SpanOf(impl.Pre), ast.String(impl.Pre))
		}
	}
	if want.Post != nil {
		c.facts = verify.NewProofContext()
		if impl.Post != nil {
			c.facts.AddGlobalConjuncts(impl.Post)
		}
		post := verify.SubstIdents(want.Post, rename)
		if proof := verify.StaticProof(c.facts, post, at); !proof.Provable {
			return failf(diag.ImplPostWeaker, at, "postcondition of %s is weaker than %s", impl.Path, want.Path).
				withNote(ast.SpanOf(want.Post), ast.String(want.Post))
		}
	}
	return nil
}
