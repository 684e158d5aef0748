package sema

import (
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// CollectAliasDeps lists the aliases a type expression refers to
// structurally. Dynamic types are indirections and are not followed.
func CollectAliasDeps(ctx *ScopeContext, t ast.Type) []*symbols.AliasInfo {
	var out []*symbols.AliasInfo
	var walk func(ast.Type)
	walk = func(t ast.Type) {
		switch x := t.(type) {
		case *ast.PermType:
			walk(x.Base)
		case *ast.PtrType:
			walk(x.Elem)
		case *ast.RawPtrType:
			walk(x.Elem)
		case *ast.TupleType:
			for _, e := range x.Elems {
				walk(e)
			}
		case *ast.ArrayType:
			walk(x.Elem)
		case *ast.SliceType:
			walk(x.Elem)
		case *ast.UnionType:
			for _, m := range x.Members {
				walk(m)
			}
		case *ast.FuncType:
			for _, p := range x.Params {
				walk(p.Type)
			}
			if x.Ret != nil {
				walk(x.Ret)
			}
		case *ast.RefineType:
			walk(x.Base)
		case *ast.ModalStateType:
			for _, a := range x.Args {
				walk(a)
			}
		case *ast.PathType:
			if d, ok := ctx.resolveType(x.Path); ok {
				if a, ok := d.(*symbols.AliasInfo); ok {
					out = append(out, a)
				}
			}
			for _, a := range x.Args {
				walk(a)
			}
		}
	}
	walk(t)
	return out
}

// aliasCycles reports every alias that sits on a cycle. Each cycle is
// reported once, at the alias where the search re-entered it.
func aliasCycles(aliases []*symbols.AliasInfo, ctxFor func(*symbols.AliasInfo) *ScopeContext, rep func(*failure)) map[string]bool {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(aliases))
	bad := make(map[string]bool)
	var stack []*symbols.AliasInfo
	var visit func(a *symbols.AliasInfo)
	visit = func(a *symbols.AliasInfo) {
		key := symbols.PathKeyOf(a.Path)
		switch color[key] {
		case grey:
			start := 0
			for i, s := range stack {
				if symbols.PathKeyOf(s.Path) == key {
					start = i
				}
			}
			cycle := make([]string, 0, len(stack)-start+1)
			for _, s := range stack[start:] {
				cycle = append(cycle, s.Path.String())
				bad[symbols.PathKeyOf(s.Path)] = true
			}
			cycle = append(cycle, a.Path.String())
			f := failf(diag.TypeAliasRecursive, a.Decl.Span, "alias %s is recursive", a.Path)
			f.withNote(a.Decl.Span, "cycle: "+strings.Join(cycle, " -> "))
			rep(f)
			return
		case black:
			return
		}
		color[key] = grey
		stack = append(stack, a)
		for _, dep := range CollectAliasDeps(ctxFor(a), a.Decl.Type) {
			visit(dep)
		}
		stack = stack[:len(stack)-1]
		color[key] = black
	}
	for _, a := range aliases {
		visit(a)
	}
	return bad
}

func aliasModule(a *symbols.AliasInfo) types.Path {
	if len(a.Path) == 0 {
		return nil
	}
	return a.Path[:len(a.Path)-1]
}
