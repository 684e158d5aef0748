// Package driver runs the checker over a program in parallel and drives
// the build pipeline.
package driver

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/project"
	"cursive0/internal/sema"
	"cursive0/internal/source"
	"cursive0/internal/trace"
)

// ModuleResult is the outcome of checking one module.
type ModuleResult struct {
	Module *ast.Module
	Ctx    *sema.ScopeContext
	// Sema is empty when Cached is set.
	Sema   sema.Result
	Cached bool
	Bag    *diag.Bag
}

// Result holds the merged diagnostics and the per-module outcomes in
// program order.
type Result struct {
	Program *sema.Program
	Bag     *diag.Bag
	Modules []ModuleResult
}

func (r *Result) HasErrors() bool { return r.Bag.HasErrors() }

type checkOptions struct {
	// fresh forces a real check of modules whose cached entry is clean,
	// for callers that need the typing results.
	fresh bool
}

// Check builds sigma once and checks every module on a bounded pool of
// workers. The tracer is taken from ctx.
func Check(ctx context.Context, prog *ast.Program, cfg project.Config) (*Result, error) {
	return check(ctx, prog, cfg, checkOptions{})
}

func check(ctx context.Context, prog *ast.Program, cfg project.Config, co checkOptions) (*Result, error) {
	if prog == nil {
		prog = &ast.Program{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	tracer := trace.FromContext(ctx)
	parent := trace.ParentFromContext(ctx)
	target := cfg.LayoutTarget()
	max := cfg.Check.MaxDiagnostics

	var cache *DiskCache
	if cfg.Cache.Dir != "" {
		var err error
		if cache, err = OpenDiskCache(cfg.Cache.Dir); err != nil {
			return nil, err
		}
	}

	sigmaBag := diag.NewBag(max)
	span := trace.Begin(tracer, trace.ScopePass, "sigma", parent)
	sp := sema.BuildSigma(prog, sema.Options{
		Reporter:   diag.BagReporter{Bag: sigmaBag},
		Target:     target,
		Tracer:     tracer,
		ParentSpan: span.ID(),
	})
	span.End(fmt.Sprintf("%d modules", len(prog.Modules)))

	span = trace.Begin(tracer, trace.ScopePass, "check", parent)
	results := make([]ModuleResult, len(prog.Modules))
	if len(prog.Modules) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(cfg.Workers(), len(prog.Modules)))
		for i, mod := range prog.Modules {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = checkModule(mod, prog, sp, cache, cfg, co, tracer, span.ID())
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			span.End("canceled")
			return nil, err
		}
	}

	bag := diag.NewBag(max)
	bag.Merge(sigmaBag)
	cached := 0
	for _, r := range results {
		bag.Merge(r.Bag)
		if r.Cached {
			cached++
		}
	}
	bag.Sort()
	bag.Dedup()
	span.End(fmt.Sprintf("%d diagnostics, %d cached", bag.Len(), cached))
	return &Result{Program: sp, Bag: bag, Modules: results}, nil
}

// checkModule runs on a worker. Sigma is only read here; the scope
// context and the bag belong to this module alone.
func checkModule(mod *ast.Module, prog *ast.Program, sp *sema.Program, cache *DiskCache,
	cfg project.Config, co checkOptions, tracer trace.Tracer, parent uint64) ModuleResult {
	bag := diag.NewBag(cfg.Check.MaxDiagnostics)
	target := cfg.LayoutTarget()
	res := ModuleResult{Module: mod, Ctx: sp.Context(mod.Path, target), Bag: bag}

	// Cache failures go to ioBag so they are never cached themselves.
	ioBag := diag.NewBag(cfg.Check.MaxDiagnostics)
	defer bag.Merge(ioBag)
	key, keyed := Digest{}, false
	if cache != nil {
		key, keyed = cacheKey(mod, prog, target.Triple)
	}
	if keyed {
		var payload DiskPayload
		hit, err := cache.Get(key, &payload)
		switch {
		case err != nil:
			cacheWarning(ioBag, mod, err)
		case hit && (payload.Broken || !co.fresh):
			payload.restore(mod.File, bag)
			res.Cached = true
			trace.Point(tracer, trace.ScopeModule, "cache hit", pathString(mod.Path), parent)
			return res
		}
	}

	res.Sema = sema.CheckModule(res.Ctx, mod, sema.Options{
		Reporter:   diag.Dedup(diag.BagReporter{Bag: bag}),
		Target:     target,
		Tracer:     tracer,
		ParentSpan: parent,
	})
	if keyed {
		if err := cache.Put(key, toPayload(mod, bag)); err != nil {
			cacheWarning(ioBag, mod, err)
		}
	}
	return res
}

func cacheWarning(bag *diag.Bag, mod *ast.Module, err error) {
	diag.ReportWarning(diag.BagReporter{Bag: bag}, diag.CacheIO, source.Span{File: mod.File},
		diag.Format(diag.DefaultMessages, diag.CacheIO, err.Error())).Emit()
}

func pathString(p []string) string {
	return strings.Join(p, "::")
}
