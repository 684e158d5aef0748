// Package verify is the static prover used for contracts and refinements.
//
// It does not attempt general theorem proving. A predicate is provable when
// one of a fixed list of entailment rules applies, tried in order:
// literal true, constant folding, a structurally equal dominating fact,
// conjunction/disjunction, and linear integer arithmetic via
// difference constraints closed with Floyd-Warshall.
package verify
