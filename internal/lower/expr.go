package lower

import (
	"cursive0/internal/abi"
	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/sema"
	"cursive0/internal/types"
)

var binOps = map[ast.BinOp]ir.Op{
	ast.OpAdd: ir.OpAdd, ast.OpSub: ir.OpSub, ast.OpMul: ir.OpMul,
	ast.OpDiv: ir.OpDiv, ast.OpRem: ir.OpRem, ast.OpShl: ir.OpShl, ast.OpShr: ir.OpShr,
	ast.OpBitAnd: ir.OpBitAnd, ast.OpBitOr: ir.OpBitOr, ast.OpBitXor: ir.OpBitXor,
	ast.OpEq: ir.OpEq, ast.OpNe: ir.OpNe, ast.OpLt: ir.OpLt,
	ast.OpLe: ir.OpLe, ast.OpGt: ir.OpGt, ast.OpGe: ir.OpGe,
}

// expr lowers e and returns the operand holding its value.
func (l *procLowerer) expr(e ast.Expr) (ir.Value, error) {
	switch x := e.(type) {
	case *ast.Literal:
		t, err := l.typeOf(x)
		if err != nil {
			return ir.Value{}, err
		}
		return l.literal(x, bare(t), false)
	case *ast.Ident:
		return l.ident(x)
	case *ast.ResultRef:
		b, ok := l.lookup(resultName)
		if !ok || b.val == nil {
			return ir.Value{}, unsupportedf(x.Span, "@result outside of a postcondition")
		}
		return *b.val, nil
	case *ast.EntryRef:
		// Parameters are immutable, so their entry value is their value.
		return l.expr(x.X)
	case *ast.TupleExpr:
		if len(x.Elems) == 0 {
			return ir.Unit(), nil
		}
		return ir.Value{}, unsupportedf(x.Span, "tuple values")
	case *ast.Binary:
		return l.binary(x)
	case *ast.Unary:
		return l.unary(x)
	case *ast.Call:
		return l.call(x)
	case *ast.Block:
		l.push()
		defer l.pop()
		return l.blockIn(x)
	case *ast.Unsafe:
		l.push()
		defer l.pop()
		return l.blockIn(x.Body)
	case *ast.If:
		return l.ifExpr(x)
	case *ast.Loop:
		return l.loop(x)
	case *ast.Match:
		return l.match(x)
	case *ast.Move:
		return l.expr(x.X)
	case *ast.Cast:
		return l.cast(x)
	case *ast.SizeOf:
		return l.layoutConst(x, x.Type, false)
	case *ast.AlignOf:
		return l.layoutConst(x, x.Type, true)
	}
	return ir.Value{}, unsupportedf(ast.SpanOf(e), "%s", describe(e))
}

func describe(e ast.Expr) string {
	switch e.(type) {
	case *ast.MethodCall:
		return "method calls"
	case *ast.FieldExpr:
		return "field access"
	case *ast.IndexExpr:
		return "indexing"
	case *ast.ArrayExpr:
		return "array values"
	case *ast.RecordLit:
		return "record literals"
	case *ast.NullPtr:
		return "pointers"
	case *ast.RangeExpr:
		return "range values outside of a loop"
	case *ast.Path:
		return "procedure values"
	}
	return "this expression"
}

func (l *procLowerer) ident(x *ast.Ident) (ir.Value, error) {
	b, ok := l.lookup(x.Name)
	if !ok {
		return ir.Value{}, unsupportedf(x.Span, "procedure value %s", x.Name)
	}
	if b.val != nil {
		return *b.val, nil
	}
	return ir.Local(b.name, b.typ), nil
}

func (l *procLowerer) binary(x *ast.Binary) (ir.Value, error) {
	if x.Op.IsLogical() {
		return l.logical(x)
	}
	op, ok := binOps[x.Op]
	if !ok {
		return ir.Value{}, unsupportedf(x.Span, "operator %s", x.Op)
	}
	lhs, err := l.expr(x.X)
	if err != nil {
		return ir.Value{}, err
	}
	rhs, err := l.expr(x.Y)
	if err != nil {
		return ir.Value{}, err
	}
	xt, err := l.typeOf(x.X)
	if err != nil {
		return ir.Value{}, err
	}
	operand := bare(xt)
	rt := operand
	if op.IsComparison() {
		rt = types.Bool
	}
	dst := l.temps.New(rt)
	l.emit(&ir.Binary{Dst: dst.Name, Op: op, X: lhs, Y: rhs, Type: operand})
	return dst, nil
}

// logical evaluates the right operand only when the left one does not
// decide the result.
func (l *procLowerer) logical(x *ast.Binary) (ir.Value, error) {
	lhs, err := l.expr(x.X)
	if err != nil {
		return ir.Value{}, err
	}
	res := l.scratch("cond", types.Bool)
	l.emit(&ir.StoreVar{Name: res, Value: lhs})
	cond := lhs
	if x.Op == ast.OpOr {
		cond = l.temps.New(types.Bool)
		l.emit(&ir.Unary{Dst: cond.Name, Op: ir.OpNot, X: lhs, Type: types.Bool})
	}
	then, _, err := l.sub(func() error {
		rhs, err := l.expr(x.Y)
		if err != nil {
			return err
		}
		l.emit(&ir.StoreVar{Name: res, Value: rhs})
		return nil
	})
	if err != nil {
		return ir.Value{}, err
	}
	l.emit(&ir.If{Cond: cond, Then: then})
	return ir.Local(res, types.Bool), nil
}

func (l *procLowerer) unary(x *ast.Unary) (ir.Value, error) {
	t, err := l.typeOf(x)
	if err != nil {
		return ir.Value{}, err
	}
	switch x.Op {
	case ast.OpPos:
		return l.expr(x.X)
	case ast.OpNeg:
		if lit, ok := x.X.(*ast.Literal); ok && lit.Kind == ast.LitInt && types.IsInteger(bare(t)) {
			return l.literal(lit, bare(t), true)
		}
		v, err := l.expr(x.X)
		if err != nil {
			return ir.Value{}, err
		}
		dst := l.temps.New(bare(t))
		l.emit(&ir.Unary{Dst: dst.Name, Op: ir.OpNeg, X: v, Type: bare(t)})
		return dst, nil
	case ast.OpNot:
		v, err := l.expr(x.X)
		if err != nil {
			return ir.Value{}, err
		}
		dst := l.temps.New(bare(t))
		l.emit(&ir.Unary{Dst: dst.Name, Op: ir.OpNot, X: v, Type: bare(t)})
		return dst, nil
	}
	return ir.Value{}, unsupportedf(x.Span, "operator %s", x.Op)
}

func (l *procLowerer) call(x *ast.Call) (ir.Value, error) {
	var segs []string
	switch c := x.Callee.(type) {
	case *ast.Ident:
		if _, bound := l.lookup(c.Name); !bound {
			segs = []string{c.Name}
		}
	case *ast.Path:
		segs = c.Segments
	}
	if segs == nil {
		return ir.Value{}, unsupportedf(x.Span, "calls through values")
	}
	info, ok := l.m.ctx.ResolveProc(segs)
	if !ok || info.Self != nil {
		return ir.Value{}, unsupportedf(x.Span, "call of %s", types.Path(segs))
	}
	args := make([]ir.Value, len(x.Args))
	for i, a := range x.Args {
		v, err := l.expr(a.X)
		if err != nil {
			return ir.Value{}, err
		}
		args[i] = v
	}
	if l.pre[x.Span] && info.Pre != nil {
		bind := make(map[string]ir.Value, len(args))
		for i, p := range info.Params {
			bind[p.Name] = args[i]
		}
		if err := l.contract(info.Pre, bind, x.Span); err != nil {
			return ir.Value{}, err
		}
	}
	ret, err := l.typeOf(x)
	if err != nil {
		ret = info.Ret
	}
	sym := abi.SymbolFor(info)
	panics := true
	if info.Builtin {
		r, ok := abi.LookupRuntime(l.m.runtime, sym)
		if !ok {
			return ir.Value{}, unsupportedf(x.Span, "builtin %s has no runtime symbol", info.Path)
		}
		l.m.useRuntime(r)
		panics = r.Panics
	}
	dst := l.temps.New(ret)
	l.emit(&ir.Call{Dst: dst.Name, Callee: ir.Callee{Symbol: sym}, Args: args, Ret: ret, Panics: panics, Span: x.Span})
	if panics {
		l.emit(&ir.PanicCheck{})
	}
	if types.IsNever(bare(ret)) {
		l.emit(&ir.Panic{Code: ir.PanicUnreachable, Span: x.Span})
		l.diverged = true
		return ir.Unit(), nil
	}
	if types.IsUnit(bare(ret)) {
		return ir.Unit(), nil
	}
	return dst, nil
}

func (l *procLowerer) cast(x *ast.Cast) (ir.Value, error) {
	v, err := l.expr(x.X)
	if err != nil {
		return ir.Value{}, err
	}
	from, err := l.typeOf(x.X)
	if err != nil {
		return ir.Value{}, err
	}
	to, err := l.typeOf(x)
	if err != nil {
		return ir.Value{}, err
	}
	from, to = bare(from), bare(to)
	if !scalar(from) || !scalar(to) {
		return ir.Value{}, unsupportedf(x.Span, "cast from %s to %s", from, to)
	}
	dst := l.temps.New(to)
	l.emit(&ir.Cast{Dst: dst.Name, X: v, From: from, To: to})
	return dst, nil
}

func scalar(t types.Type) bool {
	return types.IsNumeric(t) || types.IsBool(t) || types.IsPrim(t, "char")
}

// layoutConst is sizeof(T) or alignof(T) as a usize immediate.
func (l *procLowerer) layoutConst(e ast.Expr, t ast.Type, align bool) (ir.Value, error) {
	lt, err := sema.LowerType(l.m.ctx, t, nil)
	if err != nil {
		return ir.Value{}, unsupportedf(ast.SpanOf(e), "%v", err)
	}
	tl, err := l.m.ctx.Layout.LayoutOf(lt)
	if err != nil {
		return ir.Value{}, unsupportedf(ast.SpanOf(e), "%v", err)
	}
	n := tl.Size
	if align {
		n = tl.Align
	}
	return l.intImm(types.USize, 0, n)
}
