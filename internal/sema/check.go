package sema

import (
	"fmt"

	"cursive0/internal/ast"
	"cursive0/internal/attrs"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/trace"
	"cursive0/internal/types"
	"cursive0/internal/verify"
)

// Options configures a semantic check.
type Options struct {
	Reporter diag.Reporter
	Messages diag.Messages
	Attrs    *attrs.Registry
	Target   layout.Target
	Tracer   trace.Tracer
	// ParentSpan links trace spans to the caller's span.
	ParentSpan uint64
}

// ObligationKind classifies a proof deferred to run time.
type ObligationKind uint8

const (
	ObligationPre ObligationKind = iota + 1
	ObligationPost
	ObligationInvariant
	ObligationRefine
)

func (k ObligationKind) String() string {
	switch k {
	case ObligationPre:
		return "pre"
	case ObligationPost:
		return "post"
	case ObligationInvariant:
		return "invariant"
	case ObligationRefine:
		return "refine"
	}
	return "?"
}

// Obligation is a predicate that could not be proven statically in a
// dynamic context and must be checked when the program runs.
type Obligation struct {
	Kind ObligationKind
	Proc types.Path
	Pred ast.Expr
	Span source.Span
}

// Result is the outcome of checking one module.
type Result struct {
	ExprTypes   map[ast.NodeID]types.Type
	Opaque      map[ast.NodeID]types.Type
	Obligations []Obligation
	// Checked lists the procedures that passed, in declaration order.
	Checked []*symbols.ProcInfo
	Failed  int
}

type procFrame struct {
	info    *symbols.ProcInfo
	ret     types.Type
	dynamic bool
}

type loopFrame struct {
	kind      ast.LoopKind
	breaks    []flowValue
	voidBreak bool
}

type blockFrame struct {
	expected types.Type
	// procBody marks the outermost block of a procedure; its results are
	// returns for contract purposes.
	procBody bool
}

type flowValue struct {
	typ  types.Type
	span source.Span
}

type checker struct {
	ctx         *ScopeContext
	opts        Options
	generics    map[string]bool
	proc        *procFrame
	facts       *verify.ProofContext
	loops       []*loopFrame
	blocks      []*blockFrame
	unsafeDepth int
	// resultType is the type of @result while a postcondition is typed.
	resultType  types.Type
	inContract  bool
	obligations []Obligation
	aliasHook   func(*symbols.AliasInfo) error
	// bodyExit runs when a procedure body falls off its end, before the
	// body scope is popped. tail is nil for a body without one.
	bodyExit func(tail ast.Expr, t types.Type) error
}

func newChecker(ctx *ScopeContext, opts Options) *checker {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Messages == nil {
		opts.Messages = diag.DefaultMessages
	}
	if opts.Attrs == nil {
		opts.Attrs = attrs.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &checker{ctx: ctx, opts: opts, generics: map[string]bool{}, facts: verify.NewProofContext()}
}

// report emits the diagnostic carried by err.
func (c *checker) report(err error) {
	var f *failure
	if !asFailure(err, &f) {
		diag.ReportError(c.opts.Reporter, diag.UnknownCode, source.Span{}, err.Error()).Emit()
		return
	}
	b := diag.ReportError(c.opts.Reporter, f.code, f.span, diag.Format(c.opts.Messages, f.code, f.msg))
	for _, n := range f.notes {
		b.WithNote(n.Span, n.Msg)
	}
	b.Emit()
}

func (c *checker) warn(code diag.Code, span source.Span, format string, args ...any) {
	diag.ReportWarning(c.opts.Reporter, code, span, diag.Format(c.opts.Messages, code, fmt.Sprintf(format, args...))).Emit()
}

// CheckModule type-checks every declaration of mod against sigma. A
// failing declaration is reported and skipped; the rest are still checked.
func CheckModule(ctx *ScopeContext, mod *ast.Module, opts Options) Result {
	c := newChecker(ctx, opts)
	span := trace.Begin(c.opts.Tracer, trace.ScopeModule, "check "+types.Path(mod.Path).String(), opts.ParentSpan)
	res := Result{ExprTypes: ctx.ExprTypes, Opaque: ctx.Opaque}
	for _, item := range mod.Items {
		ds := trace.Begin(c.opts.Tracer, trace.ScopeDecl, item.DeclName(), span.ID())
		checked, err := c.checkDecl(item)
		if err != nil {
			c.report(err)
			res.Failed++
			ds.End("failed")
			continue
		}
		res.Checked = append(res.Checked, checked...)
		ds.End("")
	}
	res.Obligations = c.obligations
	span.End(fmt.Sprintf("%d decls, %d failed", len(mod.Items), res.Failed))
	return res
}

func (c *checker) checkDecl(item ast.Decl) ([]*symbols.ProcInfo, error) {
	c.resetDecl()
	switch d := item.(type) {
	case *ast.Proc:
		info, ok := c.ctx.ResolveProc([]string{d.Name})
		if !ok || info.Decl != d {
			return nil, nil
		}
		if err := c.checkProc(info); err != nil {
			return nil, err
		}
		return []*symbols.ProcInfo{info}, nil
	case *ast.Record:
		return c.checkRecord(d)
	case *ast.Enum:
		rec, ok := c.ctx.resolveType([]string{d.Name})
		if !ok {
			return nil, nil
		}
		e, ok := rec.(*symbols.EnumInfo)
		if !ok {
			return nil, nil
		}
		return nil, c.checkImplements(e.Path, e.Implements, nil, d.Span)
	case *ast.Modal:
		return c.checkModal(d)
	case *ast.Class:
		return c.checkClass(d)
	}
	return nil, nil
}

func (c *checker) resetDecl() {
	c.generics = map[string]bool{}
	c.proc = nil
	c.facts = verify.NewProofContext()
	c.loops = nil
	c.blocks = nil
	c.unsafeDepth = 0
	c.resultType = nil
	c.inContract = false
}
