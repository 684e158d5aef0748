package sema

import (
	"strconv"

	"cursive0/internal/ast"
	"cursive0/internal/attrs"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
	"cursive0/internal/symbols"
	"cursive0/internal/trace"
	"cursive0/internal/types"
)

// Program is the populated symbol table together with one scope context
// per module.
type Program struct {
	Sigma    *symbols.Sigma
	Contexts map[string]*ScopeContext
}

// Context returns the scope context of a module, creating a throwaway
// one for unknown paths.
func (p *Program) Context(path []string, target layout.Target) *ScopeContext {
	if ctx, ok := p.Contexts[symbols.PathKeyOf(path)]; ok {
		return ctx
	}
	return NewScopeContext(path, p.Sigma, target)
}

type sigmaBuilder struct {
	sigma    *symbols.Sigma
	opts     Options
	contexts map[string]*ScopeContext
	aliases  []*symbols.AliasInfo
	lowering map[string]bool
	failed   map[string]bool
}

// BuildSigma registers every declaration of prog. Names are entered
// first so that signatures may refer to any declaration regardless of
// order; signatures and fields are lowered second.
func BuildSigma(prog *ast.Program, opts Options) *Program {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Attrs == nil {
		opts.Attrs = attrs.Default()
	}
	if opts.Messages == nil {
		opts.Messages = diag.DefaultMessages
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	span := trace.Begin(opts.Tracer, trace.ScopePass, "sigma", opts.ParentSpan)
	defer span.End("")

	b := &sigmaBuilder{
		sigma:    symbols.NewSigma(),
		opts:     opts,
		contexts: make(map[string]*ScopeContext),
		lowering: make(map[string]bool),
		failed:   make(map[string]bool),
	}
	symbols.RegisterBuiltins(b.sigma)
	for _, mod := range prog.Modules {
		b.contexts[symbols.PathKeyOf(mod.Path)] = NewScopeContext(mod.Path, b.sigma, opts.Target)
	}
	for _, mod := range prog.Modules {
		for _, item := range mod.Items {
			b.register(mod, item)
		}
	}
	b.failed = aliasCycles(b.aliases, b.aliasContext, b.report)
	for _, a := range b.aliases {
		if a.Target == nil && !b.failed[symbols.PathKeyOf(a.Path)] {
			if err := b.lowerAlias(a); err != nil {
				b.report(asFail(err))
			}
		}
	}
	for _, mod := range prog.Modules {
		ctx := b.contexts[symbols.PathKeyOf(mod.Path)]
		for _, item := range mod.Items {
			if err := b.lowerDecl(ctx, item); err != nil {
				b.report(asFail(err))
			}
		}
	}
	return &Program{Sigma: b.sigma, Contexts: b.contexts}
}

func asFail(err error) *failure {
	var f *failure
	if asFailure(err, &f) {
		return f
	}
	return failf(diag.UnknownCode, ast.SpanOf(nil), "%v", err)
}

func (b *sigmaBuilder) report(f *failure) {
	bld := diag.ReportError(b.opts.Reporter, f.code, f.span, diag.Format(b.opts.Messages, f.code, f.msg))
	for _, n := range f.notes {
		bld.WithNote(n.Span, n.Msg)
	}
	bld.Emit()
}

func (b *sigmaBuilder) aliasContext(a *symbols.AliasInfo) *ScopeContext {
	if ctx, ok := b.contexts[symbols.PathKeyOf(aliasModule(a))]; ok {
		return ctx
	}
	return NewScopeContext(aliasModule(a), b.sigma, b.opts.Target)
}

func (b *sigmaBuilder) checker(ctx *ScopeContext) *checker {
	c := newChecker(ctx, b.opts)
	c.aliasHook = b.lowerAlias
	return c
}

func (b *sigmaBuilder) lowerAlias(a *symbols.AliasInfo) error {
	key := symbols.PathKeyOf(a.Path)
	if b.failed[key] || b.lowering[key] {
		return failf(diag.TypeAliasRecursive, a.Decl.Span, "alias %s is recursive", a.Path)
	}
	b.lowering[key] = true
	defer delete(b.lowering, key)
	c := b.checker(b.aliasContext(a))
	c.setGenerics(a.TypeParams)
	t, err := c.lowerType(a.Decl.Type)
	if err != nil {
		b.failed[key] = true
		return err
	}
	a.Target = t
	return nil
}

func (b *sigmaBuilder) dup(span ast.Any, path types.Path) {
	b.report(failf(diag.DeclDup, ast.SpanOf(span), "%s is declared twice", path))
}

func qualified(mod *ast.Module, name ...string) types.Path {
	out := make(types.Path, 0, len(mod.Path)+len(name))
	out = append(out, mod.Path...)
	return append(out, name...)
}

func (b *sigmaBuilder) register(mod *ast.Module, item ast.Decl) {
	rep := b.opts.Reporter
	switch d := item.(type) {
	case *ast.Record:
		b.opts.Attrs.Validate(rep, d.Attrs, attrs.TargetRecord)
		info := &symbols.RecordInfo{
			Path: qualified(mod, d.Name), Decl: d, TypeParams: d.TypeParams,
			Attrs: d.Attrs, Methods: map[string]*symbols.ProcInfo{},
		}
		seen := map[string]bool{}
		for _, f := range d.Fields {
			if seen[f.Name] {
				b.report(failf(diag.RecordFieldDup, f.Span, "field %s repeated in %s", f.Name, info.Path))
				continue
			}
			seen[f.Name] = true
		}
		if !b.sigma.AddType(info) {
			b.dup(d, info.Path)
			return
		}
		for _, m := range d.Methods {
			b.registerMethod(info.Path, "", m, info.Methods)
		}
	case *ast.Enum:
		b.opts.Attrs.Validate(rep, d.Attrs, attrs.TargetEnum)
		info := &symbols.EnumInfo{Path: qualified(mod, d.Name), Decl: d, TypeParams: d.TypeParams, Attrs: d.Attrs}
		seen := map[string]bool{}
		for _, v := range d.Variants {
			if seen[v.Name] {
				b.report(failf(diag.EnumVariantDup, v.Span, "variant %s repeated in %s", v.Name, info.Path))
				continue
			}
			seen[v.Name] = true
		}
		if !b.sigma.AddType(info) {
			b.dup(d, info.Path)
		}
	case *ast.Modal:
		b.opts.Attrs.Validate(rep, d.Attrs, attrs.TargetModal)
		info := &symbols.ModalInfo{Path: qualified(mod, d.Name), Decl: d, TypeParams: d.TypeParams, Attrs: d.Attrs}
		seen := map[string]bool{}
		for _, st := range d.States {
			if seen[st.Name] {
				b.report(failf(diag.ModalStateDup, st.Span, "state @%s repeated in %s", st.Name, info.Path))
				continue
			}
			seen[st.Name] = true
			info.States = append(info.States, symbols.StateInfo{
				Name: st.Name, Methods: map[string]*symbols.ProcInfo{}, Span: st.Span,
			})
		}
		if !b.sigma.AddType(info) {
			b.dup(d, info.Path)
			return
		}
		for _, st := range d.States {
			si, _, ok := info.State(st.Name)
			if !ok {
				continue
			}
			for _, m := range st.Methods {
				b.registerMethod(info.Path, st.Name, m, si.Methods)
			}
		}
	case *ast.TypeAlias:
		info := &symbols.AliasInfo{Path: qualified(mod, d.Name), Decl: d, TypeParams: d.TypeParams}
		if !b.sigma.AddType(info) {
			b.dup(d, info.Path)
			return
		}
		b.aliases = append(b.aliases, info)
	case *ast.Class:
		info := &symbols.ClassInfo{Path: qualified(mod, d.Name), Decl: d, Methods: map[string]*symbols.ProcInfo{}}
		if !b.sigma.AddClass(info) {
			b.dup(d, info.Path)
			return
		}
		for _, m := range d.Methods {
			p := &symbols.ProcInfo{Path: append(append(types.Path{}, info.Path...), m.Name), Name: m.Name, Decl: m, Owner: info.Path, Attrs: m.Attrs}
			if !info.AddMethod(p) {
				b.dup(m, p.Path)
			}
		}
	case *ast.Proc:
		b.opts.Attrs.Validate(rep, d.Attrs, attrs.TargetProc)
		p := &symbols.ProcInfo{Path: qualified(mod, d.Name), Name: d.Name, Decl: d, Attrs: d.Attrs}
		if !b.sigma.AddProc(p) {
			b.dup(d, p.Path)
		}
	}
}

func (b *sigmaBuilder) registerMethod(owner types.Path, state string, m *ast.Proc, into map[string]*symbols.ProcInfo) {
	b.opts.Attrs.Validate(b.opts.Reporter, m.Attrs, attrs.TargetProc)
	path := append(types.Path{}, owner...)
	if state != "" {
		path = append(path, "@"+state)
	}
	path = append(path, m.Name)
	p := &symbols.ProcInfo{Path: path, Name: m.Name, Decl: m, Owner: owner, State: state, Attrs: m.Attrs}
	if _, dup := into[m.Name]; dup {
		b.dup(m, path)
		return
	}
	into[m.Name] = p
	b.sigma.AddProc(p)
}

func genericArgs(params []string) []types.Type {
	if len(params) == 0 {
		return nil
	}
	out := make([]types.Type, len(params))
	for i, p := range params {
		out[i] = &types.TypeParam{Name: p}
	}
	return out
}

func (b *sigmaBuilder) lowerDecl(ctx *ScopeContext, item ast.Decl) error {
	c := b.checker(ctx)
	switch d := item.(type) {
	case *ast.Record:
		info, ok := ctx.Sigma.Record(ctx.qualify([]string{d.Name}))
		if !ok || info.Decl != d {
			return nil
		}
		c.setGenerics(d.TypeParams)
		seen := map[string]bool{}
		for _, f := range d.Fields {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			ft, err := c.lowerType(f.Type)
			if err != nil {
				return err
			}
			info.Fields = append(info.Fields, symbols.FieldInfo{Name: f.Name, Type: ft, Span: f.Span})
		}
		impls, err := b.classPaths(ctx, d.Implements, d)
		if err != nil {
			return err
		}
		info.Implements = impls
		self := &types.Named{Path: info.Path, Args: genericArgs(d.TypeParams)}
		for _, m := range d.Methods {
			if p, ok := info.Methods[m.Name]; ok && p.Decl == m {
				if err := c.lowerSignature(p, self); err != nil {
					return err
				}
			}
		}
	case *ast.Enum:
		info, ok := ctx.Sigma.Enum(ctx.qualify([]string{d.Name}))
		if !ok || info.Decl != d {
			return nil
		}
		c.setGenerics(d.TypeParams)
		seen := map[string]bool{}
		for _, v := range d.Variants {
			if seen[v.Name] {
				continue
			}
			seen[v.Name] = true
			vi := symbols.VariantInfo{Name: v.Name, Disc: v.Disc, Span: v.Span, Named: len(v.Fields) > 0}
			for i, pt := range v.Payload {
				t, err := c.lowerType(pt)
				if err != nil {
					return err
				}
				vi.Fields = append(vi.Fields, symbols.FieldInfo{Name: strconv.Itoa(i), Type: t, Span: ast.SpanOf(pt)})
			}
			for _, f := range v.Fields {
				t, err := c.lowerType(f.Type)
				if err != nil {
					return err
				}
				vi.Fields = append(vi.Fields, symbols.FieldInfo{Name: f.Name, Type: t, Span: f.Span})
			}
			info.Variants = append(info.Variants, vi)
		}
		if _, derr := layout.EnumDiscriminants(info.Variants); derr != nil {
			return failf(derr.Code, derr.Span, "variant %s of %s", info.Variants[derr.Variant].Name, info.Path)
		}
		impls, err := b.classPaths(ctx, d.Implements, d)
		if err != nil {
			return err
		}
		info.Implements = impls
	case *ast.Modal:
		info, ok := ctx.Sigma.Modal(ctx.qualify([]string{d.Name}))
		if !ok || info.Decl != d {
			return nil
		}
		c.setGenerics(d.TypeParams)
		for _, st := range d.States {
			si, _, ok := info.State(st.Name)
			if !ok || len(si.Fields) > 0 {
				continue
			}
			for _, f := range st.Fields {
				t, err := c.lowerType(f.Type)
				if err != nil {
					return err
				}
				si.Fields = append(si.Fields, symbols.FieldInfo{Name: f.Name, Type: t, Span: f.Span})
			}
		}
		for _, st := range d.States {
			si, _, ok := info.State(st.Name)
			if !ok {
				continue
			}
			self := &types.ModalState{Path: info.Path, State: st.Name, Args: genericArgs(d.TypeParams)}
			for _, m := range st.Methods {
				if p, ok := si.Methods[m.Name]; ok && p.Decl == m {
					if err := c.lowerSignature(p, self); err != nil {
						return err
					}
				}
			}
		}
	case *ast.Class:
		info, ok := ctx.Sigma.LookupClass(ctx.qualify([]string{d.Name}))
		if !ok || info.Decl != d {
			return nil
		}
		self := &types.Dynamic{Class: info.Path}
		for _, name := range info.Order {
			if err := c.lowerSignature(info.Methods[name], self); err != nil {
				return err
			}
		}
	case *ast.Proc:
		info, ok := ctx.Sigma.LookupProc(ctx.qualify([]string{d.Name}))
		if !ok || info.Decl != d {
			return nil
		}
		return c.lowerSignature(info, nil)
	}
	return nil
}

func (b *sigmaBuilder) classPaths(ctx *ScopeContext, list [][]string, at ast.Any) ([]types.Path, error) {
	var out []types.Path
	for _, p := range list {
		cl, ok := ctx.resolveClass(p)
		if !ok {
			return nil, failf(diag.TypeUnknownPath, ast.SpanOf(at), "unknown class %s", types.Path(p))
		}
		out = append(out, cl.Path)
	}
	return out, nil
}

// lowerSignature fills the parameter and return types of p. self is the
// receiver's base type; a receiver without permission takes self by value.
func (c *checker) lowerSignature(p *symbols.ProcInfo, self types.Type) error {
	d := p.Decl
	if d.Recv != nil && self != nil {
		if d.Recv.Perm == 0 {
			p.Self = self
		} else {
			p.Self = &types.Perm{Perm: lowerPerm(d.Recv.Perm), Base: self}
		}
	}
	p.Params = p.Params[:0]
	for _, prm := range d.Params {
		t, err := c.lowerType(prm.Type)
		if err != nil {
			return err
		}
		mode := types.ModeCopy
		if prm.Move {
			mode = types.ModeMove
		}
		p.Params = append(p.Params, symbols.ParamInfo{Name: prm.Name, Mode: mode, Type: t})
	}
	p.Ret = types.Unit
	if d.Ret != nil {
		t, err := c.lowerType(d.Ret)
		if err != nil {
			return err
		}
		p.Ret = t
	}
	if d.Contract != nil {
		p.Pre, p.Post = d.Contract.Pre, d.Contract.Post
	}
	return nil
}
