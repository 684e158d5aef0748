package ast

// Expr is the sealed set of expression nodes.
type Expr interface {
	Any
	exprNode()
}

type LitKind uint8

const (
	LitInt LitKind = iota + 1
	LitFloat
	LitBool
	LitChar
	LitString
)

func (k LitKind) String() string {
	switch k {
	case LitInt:
		return "int"
	case LitFloat:
		return "float"
	case LitBool:
		return "bool"
	case LitChar:
		return "char"
	case LitString:
		return "string"
	}
	return "?"
}

// Literal keeps the source text; Suffix is split off by the parser ("u8", "f32").
type Literal struct {
	Node
	Kind   LitKind
	Text   string
	Suffix string
}

type Ident struct {
	Node
	Name string
}

// Path is a qualified name such as `geom::area` or `Color::Red`.
type Path struct {
	Node
	Segments []string
}

// ResultRef is `@result` inside a postcondition.
type ResultRef struct{ Node }

// EntryRef is `@entry(X)`: the value of X on procedure entry.
type EntryRef struct {
	Node
	X Expr
}

type TupleExpr struct {
	Node
	Elems []Expr
}

type ArrayExpr struct {
	Node
	Elems []Expr
}

type BinOp uint8

const (
	OpAdd BinOp = iota + 1
	OpSub
	OpMul
	OpDiv
	OpRem
	OpShl
	OpShr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binOpText = map[BinOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpShl: "<<", OpShr: ">>", OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||",
}

func (op BinOp) String() string {
	if s, ok := binOpText[op]; ok {
		return s
	}
	return "?"
}

// IsComparison reports ==, !=, <, <=, >, >=.
func (op BinOp) IsComparison() bool { return op >= OpEq && op <= OpGe }

// IsArith reports + - * / % << >>.
func (op BinOp) IsArith() bool { return op >= OpAdd && op <= OpShr }

func (op BinOp) IsBitwise() bool { return op >= OpBitAnd && op <= OpBitXor }

func (op BinOp) IsLogical() bool { return op == OpAnd || op == OpOr }

type Binary struct {
	Node
	Op   BinOp
	X, Y Expr
}

type UnOp uint8

const (
	OpNeg UnOp = iota + 1
	OpPos
	OpNot
	OpDeref
	OpAddrOf
)

func (op UnOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpPos:
		return "+"
	case OpNot:
		return "!"
	case OpDeref:
		return "*"
	case OpAddrOf:
		return "&"
	}
	return "?"
}

type Unary struct {
	Node
	Op UnOp
	X  Expr
}

// Arg is a call argument; Moved marks `move x`.
type Arg struct {
	Moved bool
	X     Expr
}

type Call struct {
	Node
	Callee Expr
	Args   []Arg
}

type MethodCall struct {
	Node
	Recv Expr
	Name string
	Args []Arg
}

// FieldExpr is `x.name`; tuple fields use decimal names.
type FieldExpr struct {
	Node
	X    Expr
	Name string
}

type IndexExpr struct {
	Node
	X, Index Expr
}

type Block struct {
	Node
	Stmts []Stmt
	Tail  Expr
}

// If has Else nil, *Block or *If.
type If struct {
	Node
	Cond Expr
	Then *Block
	Else Expr
}

type LoopKind uint8

const (
	LoopInfinite LoopKind = iota + 1
	LoopCond
	LoopIter
)

type Loop struct {
	Node
	Kind      LoopKind
	Cond      Expr   // LoopCond
	Binding   string // LoopIter
	Iter      Expr   // LoopIter
	Invariant Expr
	Body      *Block
}

type Move struct {
	Node
	X Expr
}

// NullPtr is the `Ptr::null()` literal.
type NullPtr struct{ Node }

type Unsafe struct {
	Node
	Body *Block
}

type Cast struct {
	Node
	X  Expr
	To Type
}

type FieldInit struct {
	Name  string
	Value Expr
}

// RecordLit builds a record or a modal state value: `Point{x: 1, y: 2}`.
type RecordLit struct {
	Node
	Type   Type
	Fields []FieldInit
}

type Arm struct {
	Pattern Pattern
	Guard   Expr
	Body    Expr
}

type Match struct {
	Node
	Scrutinee Expr
	Arms      []Arm
}

type SizeOf struct {
	Node
	Type Type
}

type AlignOf struct {
	Node
	Type Type
}

type RangeExpr struct {
	Node
	Lo, Hi    Expr
	Inclusive bool
}

func (*Literal) exprNode()    {}
func (*Ident) exprNode()      {}
func (*Path) exprNode()       {}
func (*ResultRef) exprNode()  {}
func (*EntryRef) exprNode()   {}
func (*TupleExpr) exprNode()  {}
func (*ArrayExpr) exprNode()  {}
func (*Binary) exprNode()     {}
func (*Unary) exprNode()      {}
func (*Call) exprNode()       {}
func (*MethodCall) exprNode() {}
func (*FieldExpr) exprNode()  {}
func (*IndexExpr) exprNode()  {}
func (*Block) exprNode()      {}
func (*If) exprNode()         {}
func (*Loop) exprNode()       {}
func (*Move) exprNode()       {}
func (*NullPtr) exprNode()    {}
func (*Unsafe) exprNode()     {}
func (*Cast) exprNode()       {}
func (*RecordLit) exprNode()  {}
func (*Match) exprNode()      {}
func (*SizeOf) exprNode()     {}
func (*AlignOf) exprNode()    {}
func (*RangeExpr) exprNode()  {}

// IsPlace reports whether e denotes a memory location.
func IsPlace(e Expr) bool {
	switch x := e.(type) {
	case *Ident:
		return true
	case *FieldExpr:
		return IsPlace(x.X)
	case *IndexExpr:
		return IsPlace(x.X)
	case *Unary:
		return x.Op == OpDeref
	}
	return false
}

// RootIdent returns the identifier a place expression is rooted at.
func RootIdent(e Expr) (*Ident, bool) {
	switch x := e.(type) {
	case *Ident:
		return x, true
	case *FieldExpr:
		return RootIdent(x.X)
	case *IndexExpr:
		return RootIdent(x.X)
	}
	return nil, false
}
