package ast

import (
	"fortio.org/safecast"

	"cursive0/internal/source"
)

// Builder hands out node ids and strictly increasing spans, mirroring the
// order in which a parser would produce nodes within one file.
type Builder struct {
	File   source.FileID
	nextID NodeID
	offset uint32
}

func NewBuilder(file source.FileID) *Builder {
	return &Builder{File: file}
}

// Next allocates the Node header for a new node.
func (b *Builder) Next() Node {
	b.nextID++
	if b.nextID == NoNodeID {
		panic("ast: node id overflow")
	}
	start := b.offset
	b.offset += 2
	return Node{ID: b.nextID, Span: source.Span{File: b.File, Start: start, End: start + 1}}
}

// Count returns the number of nodes allocated so far.
func (b *Builder) Count() int {
	n, err := safecast.Conv[int](b.nextID)
	if err != nil {
		panic(err)
	}
	return n
}

func (b *Builder) Int(text string) *Literal {
	return &Literal{Node: b.Next(), Kind: LitInt, Text: text}
}

func (b *Builder) IntSuffix(text, suffix string) *Literal {
	return &Literal{Node: b.Next(), Kind: LitInt, Text: text, Suffix: suffix}
}

func (b *Builder) Float(text string) *Literal {
	return &Literal{Node: b.Next(), Kind: LitFloat, Text: text}
}

func (b *Builder) Bool(v bool) *Literal {
	text := "false"
	if v {
		text = "true"
	}
	return &Literal{Node: b.Next(), Kind: LitBool, Text: text}
}

func (b *Builder) Str(text string) *Literal {
	return &Literal{Node: b.Next(), Kind: LitString, Text: text}
}

func (b *Builder) Char(text string) *Literal {
	return &Literal{Node: b.Next(), Kind: LitChar, Text: text}
}

func (b *Builder) Ident(name string) *Ident {
	return &Ident{Node: b.Next(), Name: name}
}

func (b *Builder) Path(segs ...string) *Path {
	return &Path{Node: b.Next(), Segments: segs}
}

func (b *Builder) Result() *ResultRef { return &ResultRef{Node: b.Next()} }

func (b *Builder) Entry(x Expr) *EntryRef { return &EntryRef{Node: b.Next(), X: x} }

func (b *Builder) Bin(op BinOp, x, y Expr) *Binary {
	return &Binary{Node: b.Next(), Op: op, X: x, Y: y}
}

func (b *Builder) Un(op UnOp, x Expr) *Unary {
	return &Unary{Node: b.Next(), Op: op, X: x}
}

func (b *Builder) Tuple(elems ...Expr) *TupleExpr {
	return &TupleExpr{Node: b.Next(), Elems: elems}
}

func (b *Builder) Array(elems ...Expr) *ArrayExpr {
	return &ArrayExpr{Node: b.Next(), Elems: elems}
}

// Call builds a call with copy-mode arguments.
func (b *Builder) Call(callee Expr, args ...Expr) *Call {
	out := &Call{Callee: callee}
	for _, a := range args {
		out.Args = append(out.Args, Arg{X: a})
	}
	out.Node = b.Next()
	return out
}

func (b *Builder) CallArgs(callee Expr, args ...Arg) *Call {
	return &Call{Node: b.Next(), Callee: callee, Args: args}
}

func (b *Builder) Method(recv Expr, name string, args ...Expr) *MethodCall {
	out := &MethodCall{Recv: recv, Name: name}
	for _, a := range args {
		out.Args = append(out.Args, Arg{X: a})
	}
	out.Node = b.Next()
	return out
}

func (b *Builder) Field(x Expr, name string) *FieldExpr {
	return &FieldExpr{Node: b.Next(), X: x, Name: name}
}

func (b *Builder) Index(x, idx Expr) *IndexExpr {
	return &IndexExpr{Node: b.Next(), X: x, Index: idx}
}

func (b *Builder) Block(tail Expr, stmts ...Stmt) *Block {
	return &Block{Node: b.Next(), Stmts: stmts, Tail: tail}
}

func (b *Builder) If(cond Expr, then *Block, els Expr) *If {
	return &If{Node: b.Next(), Cond: cond, Then: then, Else: els}
}

func (b *Builder) Loop(body *Block) *Loop {
	return &Loop{Node: b.Next(), Kind: LoopInfinite, Body: body}
}

func (b *Builder) While(cond Expr, body *Block) *Loop {
	return &Loop{Node: b.Next(), Kind: LoopCond, Cond: cond, Body: body}
}

func (b *Builder) For(binding string, iter Expr, body *Block) *Loop {
	return &Loop{Node: b.Next(), Kind: LoopIter, Binding: binding, Iter: iter, Body: body}
}

func (b *Builder) Move(x Expr) *Move { return &Move{Node: b.Next(), X: x} }

func (b *Builder) Null() *NullPtr { return &NullPtr{Node: b.Next()} }

func (b *Builder) Unsafe(body *Block) *Unsafe { return &Unsafe{Node: b.Next(), Body: body} }

func (b *Builder) Cast(x Expr, to Type) *Cast { return &Cast{Node: b.Next(), X: x, To: to} }

func (b *Builder) RecordLit(t Type, fields ...FieldInit) *RecordLit {
	return &RecordLit{Node: b.Next(), Type: t, Fields: fields}
}

func (b *Builder) Match(scrut Expr, arms ...Arm) *Match {
	return &Match{Node: b.Next(), Scrutinee: scrut, Arms: arms}
}

func (b *Builder) SizeOf(t Type) *SizeOf { return &SizeOf{Node: b.Next(), Type: t} }

func (b *Builder) AlignOf(t Type) *AlignOf { return &AlignOf{Node: b.Next(), Type: t} }

func (b *Builder) Let(name string, t Type, init Expr) *Let {
	return &Let{Node: b.Next(), Name: name, Type: t, Init: init}
}

func (b *Builder) Var(name string, t Type, init Expr) *Let {
	return &Let{Node: b.Next(), Name: name, Mutable: true, Type: t, Init: init}
}

func (b *Builder) Shadow(name string, t Type, init Expr) *Let {
	return &Let{Node: b.Next(), Name: name, Shadow: true, Type: t, Init: init}
}

func (b *Builder) Assign(target, value Expr) *Assign {
	return &Assign{Node: b.Next(), Target: target, Value: value}
}

func (b *Builder) ExprStmt(x Expr) *ExprStmt { return &ExprStmt{Node: b.Next(), X: x} }

func (b *Builder) Return(v Expr) *Return { return &Return{Node: b.Next(), Value: v} }

func (b *Builder) ResultStmt(v Expr) *Result { return &Result{Node: b.Next(), Value: v} }

func (b *Builder) Break(v Expr) *Break { return &Break{Node: b.Next(), Value: v} }

func (b *Builder) Continue() *Continue { return &Continue{Node: b.Next()} }

func (b *Builder) Prim(name string) *PrimType { return &PrimType{Node: b.Next(), Name: name} }

func (b *Builder) Unit() *PrimType { return b.Prim("()") }

func (b *Builder) PermT(p Perm, base Type) *PermType {
	return &PermType{Node: b.Next(), Perm: p, Base: base}
}

func (b *Builder) PtrT(elem Type, state string) *PtrType {
	return &PtrType{Node: b.Next(), Elem: elem, State: state}
}

func (b *Builder) TupleT(elems ...Type) *TupleType {
	return &TupleType{Node: b.Next(), Elems: elems}
}

func (b *Builder) ArrayT(elem Type, n Expr) *ArrayType {
	return &ArrayType{Node: b.Next(), Elem: elem, Len: n}
}

func (b *Builder) SliceT(elem Type) *SliceType { return &SliceType{Node: b.Next(), Elem: elem} }

func (b *Builder) Named(segs ...string) *PathType { return &PathType{Node: b.Next(), Path: segs} }

func (b *Builder) StateT(state string, segs ...string) *ModalStateType {
	return &ModalStateType{Node: b.Next(), Path: segs, State: state}
}

func (b *Builder) Refine(base Type, pred Expr) *RefineType {
	return &RefineType{Node: b.Next(), Base: base, Pred: pred}
}

func (b *Builder) Param(name string, t Type) Param {
	return Param{Node: b.Next(), Name: name, Type: t}
}

func (b *Builder) FieldDecl(name string, t Type) Field {
	return Field{Node: b.Next(), Name: name, Type: t}
}

func (b *Builder) Proc(name string, params []Param, ret Type, body *Block) *Proc {
	return &Proc{Node: b.Next(), Name: name, Params: params, Ret: ret, Body: body}
}

func (b *Builder) RecordDecl(name string, fields ...Field) *Record {
	return &Record{Node: b.Next(), Name: name, Fields: fields}
}

func (b *Builder) Variant(name string, disc Expr, payload ...Type) Variant {
	return Variant{Node: b.Next(), Name: name, Disc: disc, Payload: payload}
}

func (b *Builder) EnumDecl(name string, variants ...Variant) *Enum {
	return &Enum{Node: b.Next(), Name: name, Variants: variants}
}

func (b *Builder) State(name string, fields ...Field) State {
	return State{Node: b.Next(), Name: name, Fields: fields}
}

func (b *Builder) ModalDecl(name string, states ...State) *Modal {
	return &Modal{Node: b.Next(), Name: name, States: states}
}

func (b *Builder) Alias(name string, t Type) *TypeAlias {
	return &TypeAlias{Node: b.Next(), Name: name, Type: t}
}

func (b *Builder) Attr(name string, args ...Expr) Attr {
	return Attr{Name: name, Args: args, Span: b.Next().Span}
}
