package verify

import (
	"cursive0/internal/ast"
	"cursive0/internal/source"
)

// Fact is a predicate assumed true from Span onward.
type Fact struct {
	Pred  ast.Expr
	Span  source.Span
	Scope int
	// Global facts dominate every query; used for assumptions that do
	// not live in the body being checked.
	Global bool
	// hidden is the scope that shadowed a name the fact mentions, 0 if visible.
	hidden int
}

// FactDominates: same file, at or before the query. This is textual order,
// not control-flow dominance.
func FactDominates(f Fact, at source.Span) bool {
	return f.Global || f.Span.Precedes(at)
}

// ProofContext is an ordered list of facts with nested scopes.
type ProofContext struct {
	facts []Fact
	scope int
}

func NewProofContext() *ProofContext {
	return &ProofContext{}
}

// Add records pred as a fact at span in the current scope.
func (c *ProofContext) Add(pred ast.Expr, span source.Span) {
	if pred == nil {
		return
	}
	c.facts = append(c.facts, Fact{Pred: pred, Span: span, Scope: c.scope})
}

// AddGlobal records a fact usable at any location.
func (c *ProofContext) AddGlobal(pred ast.Expr) {
	if pred == nil {
		return
	}
	c.facts = append(c.facts, Fact{Pred: pred, Span: ast.SpanOf(pred), Scope: c.scope, Global: true})
}

// AddConjuncts splits pred on && and records each operand.
func (c *ProofContext) AddConjuncts(pred ast.Expr, span source.Span) {
	for _, p := range Conjuncts(pred) {
		c.Add(p, span)
	}
}

// AddGlobalConjuncts is AddConjuncts for global facts.
func (c *ProofContext) AddGlobalConjuncts(pred ast.Expr) {
	for _, p := range Conjuncts(pred) {
		c.AddGlobal(p)
	}
}

// PushScope opens a nested scope and returns its depth.
func (c *ProofContext) PushScope() int {
	c.scope++
	return c.scope
}

// PopScope discards facts of the innermost scope.
func (c *ProofContext) PopScope() {
	if c.scope == 0 {
		return
	}
	out := c.facts[:0]
	for _, f := range c.facts {
		if f.Scope < c.scope {
			if f.hidden >= c.scope {
				f.hidden = 0
			}
			out = append(out, f)
		}
	}
	c.facts = out
	c.scope--
}

// Facts returns the visible facts in insertion order.
func (c *ProofContext) Facts() []Fact {
	if c == nil {
		return nil
	}
	out := make([]Fact, 0, len(c.facts))
	for _, f := range c.facts {
		if f.hidden == 0 {
			out = append(out, f)
		}
	}
	return out
}

// Hide masks every fact that mentions name until the current scope is
// popped. Used when a binding is shadowed.
func (c *ProofContext) Hide(name string) {
	for i := range c.facts {
		if c.facts[i].hidden == 0 && Mentions(c.facts[i].Pred, name) {
			c.facts[i].hidden = c.scope
		}
	}
}

// Mentions reports whether e refers to the identifier name.
func Mentions(e ast.Expr, name string) bool {
	return contains(e, func(n ast.Expr) bool {
		id, ok := n.(*ast.Ident)
		return ok && id.Name == name
	})
}

func (c *ProofContext) Len() int { return len(c.facts) }

// Clone returns an independent copy.
func (c *ProofContext) Clone() *ProofContext {
	if c == nil {
		return NewProofContext()
	}
	return &ProofContext{facts: append([]Fact(nil), c.facts...), scope: c.scope}
}

// Conjuncts flattens nested && into its operands.
func Conjuncts(pred ast.Expr) []ast.Expr {
	if pred == nil {
		return nil
	}
	if b, ok := pred.(*ast.Binary); ok && b.Op == ast.OpAnd {
		return append(Conjuncts(b.X), Conjuncts(b.Y)...)
	}
	return []ast.Expr{pred}
}
