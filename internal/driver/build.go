package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	llir "github.com/llir/llvm/ir"

	"cursive0/internal/ast"
	"cursive0/internal/backend/llvm"
	"cursive0/internal/diag"
	"cursive0/internal/ir"
	"cursive0/internal/layout"
	"cursive0/internal/lower"
	"cursive0/internal/observ"
	"cursive0/internal/prof"
	"cursive0/internal/project"
	"cursive0/internal/source"
	"cursive0/internal/trace"
	"cursive0/internal/types"
)

// ErrCheckFailed is returned by Build when checking reported errors.
var ErrCheckFailed = errors.New("program has errors")

// BuildResult carries every artifact Build produced, including partial
// ones when a later phase failed.
type BuildResult struct {
	Check   *Result
	IR      *ir.Module
	LLVM    *llir.Module
	Timings observ.Report
}

// Bag is the merged diagnostics of all phases.
func (b *BuildResult) Bag() *diag.Bag {
	if b == nil || b.Check == nil {
		return nil
	}
	return b.Check.Bag
}

// Build checks prog, lowers every module into one IR module and emits
// it. Lowering and codegen failures become diagnostics; the procedures
// that did not fail are still emitted.
func Build(ctx context.Context, prog *ast.Program, cfg project.Config) (_ *BuildResult, err error) {
	timer := observ.NewTimer()
	out := &BuildResult{}
	defer func() { out.Timings = timer.Report() }()

	session, err := prof.Start(cfg.Debug.CPUProfile, cfg.Debug.MemProfile)
	if err != nil {
		return out, err
	}
	defer func() {
		if stopErr := session.Stop(); err == nil {
			err = stopErr
		}
	}()

	ctx, closeTrace, err := WithConfiguredTracer(ctx, cfg)
	if err != nil {
		return out, err
	}
	defer func() {
		if closeErr := closeTrace(); err == nil {
			err = closeErr
		}
	}()

	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeDriver, "build", trace.ParentFromContext(ctx))
	defer root.End("")
	ctx = trace.WithParent(ctx, root.ID())

	idx := timer.Begin("check")
	res, err := check(ctx, prog, cfg, checkOptions{fresh: true})
	if err != nil {
		timer.End(idx, "aborted")
		return out, err
	}
	out.Check = res
	timer.End(idx, fmt.Sprintf("%d modules", len(res.Modules)))
	if res.Bag.HasErrors() {
		return out, ErrCheckFailed
	}

	idx = timer.Begin("lower")
	span := trace.Begin(tracer, trace.ScopePass, "lower", root.ID())
	lowerBag := diag.NewBag(cfg.Check.MaxDiagnostics)
	merged, err := lowerAll(res, lowerBag, tracer, span.ID())
	span.End(fmt.Sprintf("%d procs", len(merged.Procs)))
	timer.End(idx, fmt.Sprintf("%d procs", len(merged.Procs)))
	out.IR = merged
	if err != nil {
		res.Bag.Merge(lowerBag)
		return out, err
	}

	idx = timer.Begin("emit")
	span = trace.Begin(tracer, trace.ScopePass, "emit", root.ID())
	var debug io.Writer
	if cfg.DebugObj() {
		debug = os.Stderr
	}
	mod, emitErr := llvm.EmitModule(merged, llvm.Options{Layout: programLayout(res, cfg.LayoutTarget()), Debug: debug})
	out.LLVM = mod
	failures := reportCodegen(lowerBag, emitErr)
	span.End(fmt.Sprintf("%d failures", failures))
	timer.End(idx, fmt.Sprintf("%d failures", failures))

	res.Bag.Merge(lowerBag)
	res.Bag.Sort()
	res.Bag.Dedup()
	return out, nil
}

// lowerAll lowers each checked module and concatenates the results.
// Runtime declarations shared by several modules are kept once, and only
// the first entry procedure stays marked.
func lowerAll(res *Result, bag *diag.Bag, tracer trace.Tracer, parent uint64) (*ir.Module, error) {
	merged := &ir.Module{Name: "program"}
	seen := make(map[string]bool)
	hasEntry := false
	var errs []error
	for _, r := range res.Modules {
		m, err := lower.Module(r.Ctx, r.Module, r.Sema, lower.Options{
			Reporter:   diag.BagReporter{Bag: bag},
			Tracer:     tracer,
			ParentSpan: parent,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, p := range m.Procs {
			if seen[p.Symbol] {
				if p.Runtime {
					continue
				}
				errs = append(errs, fmt.Errorf("duplicate symbol %s in %s", p.Symbol, m.Name))
				continue
			}
			seen[p.Symbol] = true
			if p.Entry {
				if hasEntry {
					diag.ReportWarning(diag.BagReporter{Bag: bag}, diag.LowerUnsupported, source.Span{File: r.Module.File},
						fmt.Sprintf("second entry procedure %s ignored", p.Path)).Emit()
					p.Entry = false
				}
				hasEntry = true
			}
			merged.Procs = append(merged.Procs, p)
		}
		merged.Globals = append(merged.Globals, m.Globals...)
		merged.VTables = append(merged.VTables, m.VTables...)
		merged.Deinit = append(merged.Deinit, m.Deinit...)
	}
	if len(errs) > 0 {
		return merged, errors.Join(errs...)
	}
	return merged, ir.Validate(merged)
}

// programLayout is a layout engine over the shared sigma that resolves
// opaque returns through the context of any module.
func programLayout(res *Result, target layout.Target) *layout.LayoutEngine {
	le := layout.New(target, res.Program.Sigma)
	le.Opaque = func(origin ast.NodeID) (types.Type, bool) {
		for _, r := range res.Modules {
			if r.Ctx == nil {
				continue
			}
			if t, ok := r.Ctx.Opaque[origin]; ok {
				return t, true
			}
		}
		return nil, false
	}
	return le
}

// reportCodegen turns the joined emitter failures into diagnostics.
func reportCodegen(bag *diag.Bag, err error) int {
	if err == nil {
		return 0
	}
	var list []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		list = j.Unwrap()
	} else {
		list = []error{err}
	}
	rep := diag.BagReporter{Bag: bag}
	for _, e := range list {
		code := diag.CodegenFailure
		var ce *llvm.CodegenError
		if errors.As(e, &ce) && ce.Kind == llvm.CodegenABI {
			code = diag.ABIClassify
		}
		diag.ReportError(rep, code, source.Span{}, diag.Format(diag.DefaultMessages, code, e.Error())).Emit()
	}
	return len(list)
}
