// Package lower translates checked procedures into the IR.
//
// The lowering covers the scalar core of the language: literals, locals,
// let and assignment, checked arithmetic, comparisons, if, match on
// scalars, loops with break and continue, direct calls, return and
// result. Everything else is reported as Lower-Unsupported and the
// procedure is left out of the module.
package lower

import (
	"fmt"

	"cursive0/internal/abi"
	"cursive0/internal/ast"
	"cursive0/internal/attrs"
	"cursive0/internal/diag"
	"cursive0/internal/ir"
	"cursive0/internal/sema"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/trace"
	"cursive0/internal/types"
)

// Options configures Module.
type Options struct {
	Reporter   diag.Reporter
	Messages   diag.Messages
	Tracer     trace.Tracer
	ParentSpan uint64
}

// unsupported is a construct outside the lowered subset.
type unsupported struct {
	span source.Span
	msg  string
}

func (u *unsupported) Error() string { return u.msg }

func unsupportedf(span source.Span, format string, args ...any) error {
	return &unsupported{span: span, msg: fmt.Sprintf(format, args...)}
}

type moduleLowerer struct {
	ctx     *sema.ScopeContext
	res     sema.Result
	opts    Options
	out     *ir.Module
	runtime []abi.RuntimeSymbol
	// declared holds the runtime symbols already added to out.
	declared map[string]bool
}

// Module lowers the procedures of mod that passed checking. The returned
// error reports malformed IR, which is a bug in the lowering itself;
// unsupported constructs only produce diagnostics.
func Module(ctx *sema.ScopeContext, mod *ast.Module, res sema.Result, opts Options) (*ir.Module, error) {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Messages == nil {
		opts.Messages = diag.DefaultMessages
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	name := types.Path(mod.Path).String()
	span := trace.Begin(opts.Tracer, trace.ScopeModule, "lower "+name, opts.ParentSpan)
	m := &moduleLowerer{
		ctx:      ctx,
		res:      res,
		opts:     opts,
		out:      &ir.Module{Name: name},
		runtime:  abi.RuntimeTable(ctx.Sigma),
		declared: make(map[string]bool),
	}
	entry := m.pickEntry()
	skipped := 0
	for _, info := range res.Checked {
		if info.Decl == nil || info.Decl.Body == nil {
			continue
		}
		p, err := m.proc(info)
		if err != nil {
			m.report(err)
			skipped++
			continue
		}
		p.Entry = info == entry
		m.out.Procs = append(m.out.Procs, p)
	}
	span.End(fmt.Sprintf("%d procs, %d skipped", len(m.out.Procs), skipped))
	if err := ir.Validate(m.out); err != nil {
		return m.out, fmt.Errorf("lower %s: %w", name, err)
	}
	return m.out, nil
}

// pickEntry returns the procedure wrapped by the native main: the first
// one marked @[entry], otherwise a free procedure named main.
func (m *moduleLowerer) pickEntry() *symbols.ProcInfo {
	var byName *symbols.ProcInfo
	for _, info := range m.res.Checked {
		if attrs.HasAttribute(info.Attrs, attrs.Entry) {
			return info
		}
		if byName == nil && info.Owner == nil && info.Name == "main" {
			byName = info
		}
	}
	return byName
}

func (m *moduleLowerer) report(err error) {
	if u, ok := err.(*unsupported); ok {
		diag.ReportError(m.opts.Reporter, diag.LowerUnsupported, u.span,
			diag.Format(m.opts.Messages, diag.LowerUnsupported, u.msg)).Emit()
		return
	}
	diag.ReportError(m.opts.Reporter, diag.LowerUnsupported, source.Span{}, err.Error()).Emit()
}

// useRuntime adds the declaration of a runtime procedure once.
func (m *moduleLowerer) useRuntime(r abi.RuntimeSymbol) {
	if m.declared[r.Symbol] {
		return
	}
	m.declared[r.Symbol] = true
	params := make([]ir.Param, len(r.Params))
	for i, p := range r.Params {
		params[i] = ir.Param{Name: p.Name, Type: p.Type, Mode: p.Mode}
	}
	m.out.Procs = append(m.out.Procs, &ir.Proc{
		Symbol:  r.Symbol,
		Path:    r.Path,
		Params:  params,
		Ret:     r.Ret,
		Runtime: true,
	})
}

func (m *moduleLowerer) proc(info *symbols.ProcInfo) (*ir.Proc, error) {
	ds := trace.Begin(m.opts.Tracer, trace.ScopeDecl, info.Path.String(), m.opts.ParentSpan)
	defer ds.End("")

	l := newProcLowerer(m, info)
	params := abi.ProcParams(info)
	out := &ir.Proc{
		Symbol: abi.SymbolFor(info),
		Path:   info.Path,
		Params: make([]ir.Param, len(params)),
		Ret:    info.Ret,
		Span:   info.Decl.Span,
	}
	l.push()
	for i, p := range params {
		out.Params[i] = ir.Param{Name: p.Name, Type: p.Type, Mode: p.Mode}
		l.bindParam(p.Name, p.Type)
	}
	v, err := l.block(info.Decl.Body)
	if err != nil {
		return nil, err
	}
	if !l.diverged {
		if err := l.ret(v, info.Decl.Body.Span); err != nil {
			return nil, err
		}
	}
	l.pop()
	out.Body = &ir.Seq{Nodes: l.nodes}
	return out, nil
}
