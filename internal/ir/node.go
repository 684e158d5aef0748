package ir

import (
	"cursive0/internal/source"
	"cursive0/internal/types"
)

// Node is the closed set of IR nodes. Children are owned by their parent
// and the tree never contains cycles.
type Node interface {
	irNode()
}

// Op is a binary or unary operator.
type Op uint8

const (
	OpAdd Op = iota + 1
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
	OpNeg
	OpNot
)

var opNames = [...]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem",
	OpShl: "shl", OpShr: "shr", OpBitAnd: "and", OpBitOr: "or", OpBitXor: "xor",
	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpNeg: "neg", OpNot: "not",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "op?"
}

// Checked reports whether the operator traps on overflow or undefined
// operands instead of producing poison.
func (op Op) Checked() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpShl, OpShr, OpNeg:
		return true
	}
	return false
}

func (op Op) IsComparison() bool { return op >= OpEq && op <= OpGe }

// PanicCode is the code stored in the panic record.
type PanicCode uint32

const (
	PanicNone PanicCode = iota
	PanicOverflow
	PanicDivZero
	PanicShift
	PanicBounds
	PanicNullDeref
	PanicContract
	PanicPoisoned
	PanicUnreachable
)

func (c PanicCode) String() string {
	switch c {
	case PanicNone:
		return "none"
	case PanicOverflow:
		return "overflow"
	case PanicDivZero:
		return "div-zero"
	case PanicShift:
		return "shift"
	case PanicBounds:
		return "bounds"
	case PanicNullDeref:
		return "null-deref"
	case PanicContract:
		return "contract"
	case PanicPoisoned:
		return "poisoned"
	case PanicUnreachable:
		return "unreachable"
	}
	return "panic?"
}

type Seq struct{ Nodes []Node }

// BindVar introduces a stack local, optionally initialised.
type BindVar struct {
	Name string
	Type types.Type
	Init *Value
}

type StoreVar struct {
	Name  string
	Value Value
}

// Callee is either a symbol or a function-typed value.
type Callee struct {
	Symbol string
	Value  *Value
}

// Call invokes a procedure. Dst is empty when the result is unused or
// unit. Panics is set for callees that take the panic-out parameter.
type Call struct {
	Dst    string
	Callee Callee
	Args   []Value
	Ret    types.Type
	Panics bool
	Span   source.Span
}

type If struct {
	Cond Value
	Then Node
	Else Node
}

// Loop repeats Body until a Break.
type Loop struct{ Body Node }

type Break struct{}

type Continue struct{}

type Case struct {
	Value uint64
	Body  Node
}

// Match switches on an integer discriminant.
type Match struct {
	Scrutinee Value
	Cases     []Case
	Default   Node
}

// Alloc reserves storage for Type; a nil Region means the stack.
type Alloc struct {
	Dst    string
	Type   types.Type
	Region *Value
}

// Binary applies Op to operands of Type. Comparisons yield bool.
type Binary struct {
	Dst  string
	Op   Op
	X, Y Value
	Type types.Type
}

type Unary struct {
	Dst  string
	Op   Op
	X    Value
	Type types.Type
}

type Cast struct {
	Dst      string
	X        Value
	From, To types.Type
}

type Load struct {
	Dst  string
	Addr Value
	Type types.Type
}

type Store struct {
	Addr  Value
	Value Value
}

type AddrOf struct {
	Dst   string
	Local string
}

// FieldAddr computes the address of field Index of the aggregate at Base.
type FieldAddr struct {
	Dst   string
	Base  Value
	Agg   types.Type
	Index int
}

// IndexAddr computes &Base[Index] after checking Index < Len.
type IndexAddr struct {
	Dst   string
	Base  Value
	Elem  types.Type
	Index Value
	Len   Value
}

// MemCopy copies Size bytes; MayOverlap selects the move intrinsic.
type MemCopy struct {
	Dst, Src   Value
	Size       uint64
	Align      uint64
	MayOverlap bool
}

type MemSet struct {
	Dst   Value
	Byte  uint8
	Size  uint64
	Align uint64
}

// Check panics with Code unless Cond holds.
type Check struct {
	Cond Value
	Code PanicCode
	Span source.Span
}

type Panic struct {
	Code PanicCode
	Span source.Span
}

// ClearPanic resets the panic record before a call.
type ClearPanic struct{}

// PanicCheck returns early when the callee left the panic flag set.
type PanicCheck struct{}

// Poison marks a module as failed during initialisation.
type Poison struct{ Module string }

// CheckPoison panics when Module was poisoned.
type CheckPoison struct{ Module string }

type Return struct{ Value *Value }

// Parallel runs Body in a structured scope; results of spawned children
// are collected into the tuple Result.
type Parallel struct {
	Cancel *Value
	Body   Node
	Result string
}

type Spawn struct {
	Dst    string
	Callee string
	Args   []Value
}

type Wait struct {
	Dst    string
	Handle Value
	Type   types.Type
}

type Reduction struct {
	Op  Op
	Acc string
}

// Dispatch is a parallel for over [Lo, Hi).
type Dispatch struct {
	Index   string
	Lo, Hi  Value
	Ordered bool
	Chunk   *Value
	Reduce  *Reduction
	Body    Node
}

type Yield struct {
	Value   *Value
	Release bool
}

// Race runs Arms concurrently; the first RaceReturn wins.
type Race struct {
	Dst  string
	Arms []Node
}

type RaceReturn struct{ Value Value }

type All struct {
	Dst     string
	Handles []Value
}

func (*Seq) irNode()         {}
func (*BindVar) irNode()     {}
func (*StoreVar) irNode()    {}
func (*Call) irNode()        {}
func (*If) irNode()          {}
func (*Loop) irNode()        {}
func (*Break) irNode()       {}
func (*Continue) irNode()    {}
func (*Match) irNode()       {}
func (*Alloc) irNode()       {}
func (*Binary) irNode()      {}
func (*Unary) irNode()       {}
func (*Cast) irNode()        {}
func (*Load) irNode()        {}
func (*Store) irNode()       {}
func (*AddrOf) irNode()      {}
func (*FieldAddr) irNode()   {}
func (*IndexAddr) irNode()   {}
func (*MemCopy) irNode()     {}
func (*MemSet) irNode()      {}
func (*Check) irNode()       {}
func (*Panic) irNode()       {}
func (*ClearPanic) irNode()  {}
func (*PanicCheck) irNode()  {}
func (*Poison) irNode()      {}
func (*CheckPoison) irNode() {}
func (*Return) irNode()      {}
func (*Parallel) irNode()    {}
func (*Spawn) irNode()       {}
func (*Wait) irNode()        {}
func (*Dispatch) irNode()    {}
func (*Yield) irNode()       {}
func (*Race) irNode()        {}
func (*RaceReturn) irNode()  {}
func (*All) irNode()         {}

// Children returns the direct child nodes of n.
func Children(n Node) []Node {
	switch x := n.(type) {
	case *Seq:
		return x.Nodes
	case *If:
		return nonNil(x.Then, x.Else)
	case *Loop:
		return nonNil(x.Body)
	case *Match:
		out := make([]Node, 0, len(x.Cases)+1)
		for _, c := range x.Cases {
			out = append(out, c.Body)
		}
		return append(out, nonNil(x.Default)...)
	case *Parallel:
		return nonNil(x.Body)
	case *Dispatch:
		return nonNil(x.Body)
	case *Race:
		return x.Arms
	}
	return nil
}

func nonNil(list ...Node) []Node {
	out := list[:0]
	for _, n := range list {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Walk visits n depth-first in pre-order; returning false from f prunes
// the subtree.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, f)
	}
}
