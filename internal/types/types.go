package types

import (
	"cursive0/internal/ast"
	"cursive0/internal/source"
)

// Type is an immutable type value; equality is structural (see Equal).
type Type interface {
	Kind() Kind
	String() string
	sealed()
}

// Path is a qualified declaration name.
type Path []string

type Prim struct{ Name string }

type Perm struct {
	Perm Permission
	Base Type
}

type PtrState uint8

const (
	PtrNoState PtrState = iota
	PtrValid
	PtrNull
	PtrExpired
)

func (s PtrState) String() string {
	switch s {
	case PtrValid:
		return "Valid"
	case PtrNull:
		return "Null"
	case PtrExpired:
		return "Expired"
	}
	return ""
}

type Ptr struct {
	Elem  Type
	State PtrState
}

type RawQual uint8

const (
	RawImm RawQual = iota
	RawMut
)

type RawPtr struct {
	Qual RawQual
	Elem Type
}

type Tuple struct{ Elems []Type }

type Array struct {
	Elem Type
	Len  uint64
}

type Slice struct{ Elem Type }

type Union struct{ Members []Type }

type ParamMode uint8

const (
	ModeCopy ParamMode = iota
	ModeMove
)

type FuncParam struct {
	Mode ParamMode
	Type Type
}

type Func struct {
	Params []FuncParam
	Ret    Type
}

// StrState is the ownership state of string and bytes values.
type StrState uint8

const (
	StrNoState StrState = iota
	StrManaged
	StrView
)

func (s StrState) String() string {
	switch s {
	case StrManaged:
		return "Managed"
	case StrView:
		return "View"
	}
	return ""
}

type Str struct{ State StrState }

type Bytes struct{ State StrState }

// Dynamic is a `$Class` trait object.
type Dynamic struct{ Class Path }

// Named references a record, enum or modal declaration by path.
type Named struct {
	Path Path
	Args []Type
}

type ModalState struct {
	Path  Path
	State string
	Args  []Type
}

// Refine carries its predicate as syntax, with `self` naming the value.
type Refine struct {
	Base Type
	Pred ast.Expr
}

// Opaque is the `opaque Class` return type; Origin keys the underlying-type memo.
type Opaque struct {
	Class  Path
	Origin ast.NodeID
	Span   source.Span
}

type Range struct{}

// TypeParam is an unsubstituted generic parameter.
type TypeParam struct{ Name string }

func (*Prim) Kind() Kind       { return KindPrim }
func (*Perm) Kind() Kind       { return KindPerm }
func (*Ptr) Kind() Kind        { return KindPtr }
func (*RawPtr) Kind() Kind     { return KindRawPtr }
func (*Tuple) Kind() Kind      { return KindTuple }
func (*Array) Kind() Kind      { return KindArray }
func (*Slice) Kind() Kind      { return KindSlice }
func (*Union) Kind() Kind      { return KindUnion }
func (*Func) Kind() Kind       { return KindFunc }
func (*Str) Kind() Kind        { return KindString }
func (*Bytes) Kind() Kind      { return KindBytes }
func (*Dynamic) Kind() Kind    { return KindDynamic }
func (*Named) Kind() Kind      { return KindPath }
func (*ModalState) Kind() Kind { return KindModalState }
func (*Refine) Kind() Kind     { return KindRefine }
func (*Opaque) Kind() Kind     { return KindOpaque }
func (*Range) Kind() Kind      { return KindRange }
func (*TypeParam) Kind() Kind  { return KindTypeParam }

func (*Prim) sealed()       {}
func (*Perm) sealed()       {}
func (*Ptr) sealed()        {}
func (*RawPtr) sealed()     {}
func (*Tuple) sealed()      {}
func (*Array) sealed()      {}
func (*Slice) sealed()      {}
func (*Union) sealed()      {}
func (*Func) sealed()       {}
func (*Str) sealed()        {}
func (*Bytes) sealed()      {}
func (*Dynamic) sealed()    {}
func (*Named) sealed()      {}
func (*ModalState) sealed() {}
func (*Refine) sealed()     {}
func (*Opaque) sealed()     {}
func (*Range) sealed()      {}
func (*TypeParam) sealed()  {}
