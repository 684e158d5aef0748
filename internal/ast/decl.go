package ast

import "cursive0/internal/source"

// Decl is the sealed set of top-level declarations.
type Decl interface {
	Any
	declNode()
	DeclName() string
}

type Field struct {
	Node
	Name string
	Type Type
}

type Record struct {
	Node
	Name       string
	TypeParams []string
	Attrs      []Attr
	Fields     []Field
	Invariant  Expr
	Methods    []*Proc
	Implements [][]string
}

// Variant has either a positional Payload or named Fields, never both.
type Variant struct {
	Node
	Name    string
	Disc    Expr
	Payload []Type
	Fields  []Field
}

type Enum struct {
	Node
	Name       string
	TypeParams []string
	Attrs      []Attr
	Variants   []Variant
	Implements [][]string
}

// State is one state of a modal type. Transitions are methods whose
// return type names another state of the same modal.
type State struct {
	Node
	Name    string
	Fields  []Field
	Methods []*Proc
}

type Modal struct {
	Node
	Name       string
	TypeParams []string
	Attrs      []Attr
	States     []State
}

type TypeAlias struct {
	Node
	Name       string
	TypeParams []string
	Type       Type
}

// Class is a capability/trait declaration; methods with a nil Body are abstract.
type Class struct {
	Node
	Name    string
	Methods []*Proc
}

type Param struct {
	Node
	Name string
	Move bool
	Type Type
}

// Receiver is the implicit `self` of a method.
type Receiver struct {
	Perm Perm
}

type Contract struct {
	Pre  Expr
	Post Expr
	Span source.Span
}

type Proc struct {
	Node
	Name     string
	Attrs    []Attr
	Recv     *Receiver
	Params   []Param
	Ret      Type
	Contract *Contract
	Body     *Block
}

func (d *Record) DeclName() string    { return d.Name }
func (d *Enum) DeclName() string      { return d.Name }
func (d *Modal) DeclName() string     { return d.Name }
func (d *TypeAlias) DeclName() string { return d.Name }
func (d *Class) DeclName() string     { return d.Name }
func (d *Proc) DeclName() string      { return d.Name }

func (*Record) declNode()    {}
func (*Enum) declNode()      {}
func (*Modal) declNode()     {}
func (*TypeAlias) declNode() {}
func (*Class) declNode()     {}
func (*Proc) declNode()      {}

// Module is one source module of a program.
type Module struct {
	Path  []string
	File  source.FileID
	Items []Decl
	// Digest identifies the module contents for caching; zero disables caching.
	Digest [32]byte
}

type Program struct {
	Modules []*Module
}
