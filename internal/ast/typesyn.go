package ast

// Type is the surface syntax of types.
type Type interface {
	Any
	typeNode()
}

type Perm uint8

const (
	PermConst Perm = iota + 1
	PermUnique
	PermShared
)

type PrimType struct {
	Node
	Name string
}

type PermType struct {
	Node
	Perm Perm
	Base Type
}

// PtrType is `Ptr<T>` or `Ptr<T>@State`.
type PtrType struct {
	Node
	Elem  Type
	State string
}

type RawPtrType struct {
	Node
	Mut  bool
	Elem Type
}

type TupleType struct {
	Node
	Elems []Type
}

type ArrayType struct {
	Node
	Elem Type
	Len  Expr
}

type SliceType struct {
	Node
	Elem Type
}

type UnionType struct {
	Node
	Members []Type
}

type FuncParamType struct {
	Move bool
	Type Type
}

type FuncType struct {
	Node
	Params []FuncParamType
	Ret    Type
}

type StringType struct {
	Node
	State string
}

type BytesType struct {
	Node
	State string
}

// DynamicType is `$Class`.
type DynamicType struct {
	Node
	Class []string
}

type PathType struct {
	Node
	Path []string
	Args []Type
}

type ModalStateType struct {
	Node
	Path  []string
	State string
	Args  []Type
}

// RefineType is `T where { pred }` with `self` bound to the value.
type RefineType struct {
	Node
	Base Type
	Pred Expr
}

// OpaqueType is the `opaque Class` return type.
type OpaqueType struct {
	Node
	Class []string
}

type RangeType struct{ Node }

func (*PrimType) typeNode()       {}
func (*PermType) typeNode()       {}
func (*PtrType) typeNode()        {}
func (*RawPtrType) typeNode()     {}
func (*TupleType) typeNode()      {}
func (*ArrayType) typeNode()      {}
func (*SliceType) typeNode()      {}
func (*UnionType) typeNode()      {}
func (*FuncType) typeNode()       {}
func (*StringType) typeNode()     {}
func (*BytesType) typeNode()      {}
func (*DynamicType) typeNode()    {}
func (*PathType) typeNode()       {}
func (*ModalStateType) typeNode() {}
func (*RefineType) typeNode()     {}
func (*OpaqueType) typeNode()     {}
func (*RangeType) typeNode()      {}
