package sema

import (
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// ReservedPrefix marks identifiers owned by the compiler.
const ReservedPrefix = "__"

// Binding is one local name.
type Binding struct {
	Name    string
	Type    types.Type
	Mutable bool
	Span    source.Span
}

// TypeEnv is the stack of lexical scopes of one procedure body.
type TypeEnv struct {
	scopes []map[string]Binding
}

func NewTypeEnv() *TypeEnv {
	return &TypeEnv{scopes: []map[string]Binding{{}}}
}

func (e *TypeEnv) Push() { e.scopes = append(e.scopes, map[string]Binding{}) }

func (e *TypeEnv) Pop() {
	if len(e.scopes) > 1 {
		e.scopes = e.scopes[:len(e.scopes)-1]
	}
}

func (e *TypeEnv) Depth() int { return len(e.scopes) }

// Lookup searches scopes from the innermost outwards.
func (e *TypeEnv) Lookup(name string) (Binding, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if b, ok := e.scopes[i][name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

func (e *TypeEnv) inCurrent(name string) (Binding, bool) {
	b, ok := e.scopes[len(e.scopes)-1][name]
	return b, ok
}

func (e *TypeEnv) inOuter(name string) bool {
	for i := len(e.scopes) - 2; i >= 0; i-- {
		if _, ok := e.scopes[i][name]; ok {
			return true
		}
	}
	return false
}

// Intro binds a fresh name in the current scope. Rebinding in the same
// scope is a duplicate; hiding an outer binding needs the shadow form.
func (e *TypeEnv) Intro(b Binding) error {
	if strings.HasPrefix(b.Name, ReservedPrefix) {
		return failf(diag.IntroReserved, b.Span, "%q uses a reserved prefix", b.Name)
	}
	if prev, ok := e.inCurrent(b.Name); ok {
		return failf(diag.IntroDup, b.Span, "%q is already bound in this scope", b.Name).
			withNote(prev.Span, "previous binding")
	}
	if e.inOuter(b.Name) {
		return failf(diag.IntroShadowRequired, b.Span, "%q hides an outer binding; use shadow let", b.Name)
	}
	e.scopes[len(e.scopes)-1][b.Name] = b
	return nil
}

// Shadow rebinds a name that exists in an enclosing scope.
func (e *TypeEnv) Shadow(b Binding) error {
	if strings.HasPrefix(b.Name, ReservedPrefix) {
		return failf(diag.IntroReserved, b.Span, "%q uses a reserved prefix", b.Name)
	}
	if prev, ok := e.inCurrent(b.Name); ok {
		return failf(diag.IntroDup, b.Span, "%q is already bound in this scope", b.Name).
			withNote(prev.Span, "previous binding")
	}
	if !e.inOuter(b.Name) {
		return failf(diag.ShadowUnbound, b.Span, "nothing named %q to shadow", b.Name)
	}
	e.scopes[len(e.scopes)-1][b.Name] = b
	return nil
}

// ScopeContext is the per-worker checking context. Sigma is shared and
// read-only; the layout engine and side tables belong to one worker.
type ScopeContext struct {
	ModulePath types.Path
	Sigma      *symbols.Sigma
	Layout     *layout.LayoutEngine
	// Opaque memoizes the underlying type of each opaque return, keyed by
	// the node id of the return type. Entries are written once.
	Opaque    map[ast.NodeID]types.Type
	ExprTypes map[ast.NodeID]types.Type
}

func NewScopeContext(modulePath types.Path, sigma *symbols.Sigma, target layout.Target) *ScopeContext {
	ctx := &ScopeContext{
		ModulePath: modulePath,
		Sigma:      sigma,
		Opaque:     make(map[ast.NodeID]types.Type),
		ExprTypes:  make(map[ast.NodeID]types.Type),
	}
	ctx.Layout = layout.New(target, sigma)
	ctx.Layout.Opaque = ctx.resolveOpaque
	return ctx
}

func (c *ScopeContext) resolveOpaque(id ast.NodeID) (types.Type, bool) {
	t, ok := c.Opaque[id]
	return t, ok
}

func (c *ScopeContext) record(e ast.Expr, t types.Type) {
	if id := ast.IDOf(e); id.IsValid() {
		c.ExprTypes[id] = t
	}
}

// qualify returns the module-local full path of a relative path.
func (c *ScopeContext) qualify(path []string) types.Path {
	out := make(types.Path, 0, len(c.ModulePath)+len(path))
	out = append(out, c.ModulePath...)
	return append(out, path...)
}

// resolveType finds a type declaration, first module-relative then absolute.
func (c *ScopeContext) resolveType(path []string) (symbols.TypeDecl, bool) {
	if d, ok := c.Sigma.LookupType(c.qualify(path)); ok {
		return d, true
	}
	return c.Sigma.LookupType(path)
}

func (c *ScopeContext) resolveClass(path []string) (*symbols.ClassInfo, bool) {
	if cl, ok := c.Sigma.LookupClass(c.qualify(path)); ok {
		return cl, true
	}
	return c.Sigma.LookupClass(path)
}

// ResolveProc looks path up inside the module first, then globally.
func (c *ScopeContext) ResolveProc(path []string) (*symbols.ProcInfo, bool) {
	if p, ok := c.Sigma.LookupProc(c.qualify(path)); ok {
		return p, true
	}
	return c.Sigma.LookupProc(path)
}
