package ast

// Inspect walks e depth-first, calling f for every sub-expression. When f
// returns false the children of that node are skipped. Statements inside
// blocks are visited through their expressions.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch x := e.(type) {
	case *EntryRef:
		Inspect(x.X, f)
	case *TupleExpr:
		for _, el := range x.Elems {
			Inspect(el, f)
		}
	case *ArrayExpr:
		for _, el := range x.Elems {
			Inspect(el, f)
		}
	case *Binary:
		Inspect(x.X, f)
		Inspect(x.Y, f)
	case *Unary:
		Inspect(x.X, f)
	case *Call:
		Inspect(x.Callee, f)
		for _, a := range x.Args {
			Inspect(a.X, f)
		}
	case *MethodCall:
		Inspect(x.Recv, f)
		for _, a := range x.Args {
			Inspect(a.X, f)
		}
	case *FieldExpr:
		Inspect(x.X, f)
	case *IndexExpr:
		Inspect(x.X, f)
		Inspect(x.Index, f)
	case *Block:
		inspectBlock(x, f)
	case *If:
		Inspect(x.Cond, f)
		if x.Then != nil {
			Inspect(x.Then, f)
		}
		Inspect(x.Else, f)
	case *Loop:
		Inspect(x.Cond, f)
		Inspect(x.Iter, f)
		Inspect(x.Invariant, f)
		if x.Body != nil {
			Inspect(x.Body, f)
		}
	case *Move:
		Inspect(x.X, f)
	case *Unsafe:
		if x.Body != nil {
			Inspect(x.Body, f)
		}
	case *Cast:
		Inspect(x.X, f)
	case *RecordLit:
		for _, fi := range x.Fields {
			Inspect(fi.Value, f)
		}
	case *Match:
		Inspect(x.Scrutinee, f)
		for _, arm := range x.Arms {
			Inspect(arm.Guard, f)
			Inspect(arm.Body, f)
		}
	case *RangeExpr:
		Inspect(x.Lo, f)
		Inspect(x.Hi, f)
	}
}

func inspectBlock(b *Block, f func(Expr) bool) {
	for _, st := range b.Stmts {
		switch s := st.(type) {
		case *Let:
			Inspect(s.Init, f)
		case *Assign:
			Inspect(s.Target, f)
			Inspect(s.Value, f)
		case *ExprStmt:
			Inspect(s.X, f)
		case *Return:
			Inspect(s.Value, f)
		case *Result:
			Inspect(s.Value, f)
		case *Break:
			Inspect(s.Value, f)
		}
	}
	Inspect(b.Tail, f)
}
