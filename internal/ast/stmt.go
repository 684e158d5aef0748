package ast

// Stmt is the sealed set of statements.
type Stmt interface {
	Any
	stmtNode()
}

// Let introduces a binding; Shadow marks the explicit `shadow let` form.
type Let struct {
	Node
	Name    string
	Mutable bool
	Shadow  bool
	Type    Type
	Init    Expr
}

type Assign struct {
	Node
	Target Expr
	Value  Expr
}

type ExprStmt struct {
	Node
	X Expr
}

type Return struct {
	Node
	Value Expr
}

// Result yields the value of the innermost block.
type Result struct {
	Node
	Value Expr
}

type Break struct {
	Node
	Value Expr
}

type Continue struct{ Node }

func (*Let) stmtNode()      {}
func (*Assign) stmtNode()   {}
func (*ExprStmt) stmtNode() {}
func (*Return) stmtNode()   {}
func (*Result) stmtNode()   {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
