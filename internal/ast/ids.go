package ast

import "cursive0/internal/source"

// NodeID is a stable per-program node identity assigned at parse time.
// Side tables (expression types, opaque memo) are keyed by it.
type NodeID uint32

const NoNodeID NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNodeID }

// Node is embedded by every AST node.
type Node struct {
	ID   NodeID
	Span source.Span
}

func (n Node) node() Node { return n }

// Any is implemented by every node kind.
type Any interface {
	node() Node
}

// IDOf returns the node id of n, NoNodeID for nil.
func IDOf(n Any) NodeID {
	if n == nil {
		return NoNodeID
	}
	return n.node().ID
}

// SpanOf returns the source span of n.
func SpanOf(n Any) source.Span {
	if n == nil {
		return source.Span{}
	}
	return n.node().Span
}
