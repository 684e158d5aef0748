package verify

import (
	"cursive0/internal/ast"
	"cursive0/internal/source"
)

// Rule names the entailment rule that decided a proof.
type Rule uint8

const (
	RuleNone Rule = iota
	RuleTrue
	RuleConst
	RuleFact
	RuleAnd
	RuleOr
	RuleLinear
)

func (r Rule) String() string {
	switch r {
	case RuleTrue:
		return "Ent-True"
	case RuleConst:
		return "Ent-Const"
	case RuleFact:
		return "Ent-Fact"
	case RuleAnd:
		return "Ent-And"
	case RuleOr:
		return "Ent-Or"
	case RuleLinear:
		return "Ent-Linear"
	}
	return "unprovable"
}

// Proof is the outcome of StaticProof.
type Proof struct {
	Provable bool
	Rule     Rule
	// Failed is the innermost sub-predicate that could not be proven.
	Failed ast.Expr
}

// StaticProof decides whether pred holds at location at, given the facts of
// ctx that dominate at.
func StaticProof(ctx *ProofContext, pred ast.Expr, at source.Span) Proof {
	var facts []ast.Expr
	for _, f := range ctx.Facts() {
		if FactDominates(f, at) {
			facts = append(facts, f.Pred)
		}
	}
	return prove(facts, pred, 0)
}

// maxDepth bounds recursion over pathological && / || nests.
const maxDepth = 64

func prove(facts []ast.Expr, pred ast.Expr, depth int) Proof {
	if pred == nil || depth > maxDepth {
		return Proof{Failed: pred}
	}
	if lit, ok := pred.(*ast.Literal); ok && lit.Kind == ast.LitBool && lit.Text == "true" {
		return Proof{Provable: true, Rule: RuleTrue}
	}
	if v, ok := foldConst(pred); ok && v.isBool && v.b {
		return Proof{Provable: true, Rule: RuleConst}
	}
	for _, f := range facts {
		if ast.Equal(f, pred) {
			return Proof{Provable: true, Rule: RuleFact}
		}
	}
	if b, ok := pred.(*ast.Binary); ok {
		switch b.Op {
		case ast.OpAnd:
			l := prove(facts, b.X, depth+1)
			if !l.Provable {
				return l
			}
			r := prove(facts, b.Y, depth+1)
			if !r.Provable {
				return r
			}
			return Proof{Provable: true, Rule: RuleAnd}
		case ast.OpOr:
			if prove(facts, b.X, depth+1).Provable || prove(facts, b.Y, depth+1).Provable {
				return Proof{Provable: true, Rule: RuleOr}
			}
		}
	}
	if proveLinear(facts, pred) {
		return Proof{Provable: true, Rule: RuleLinear}
	}
	return Proof{Failed: pred}
}
