package sema

import (
	"strconv"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// infer synthesizes the type of e in a value context.
func (c *checker) infer(env *TypeEnv, e ast.Expr) (types.Type, error) {
	return c.synth(env, e, nil)
}

// check types e against want, applying subsumption.
func (c *checker) check(env *TypeEnv, e ast.Expr, want types.Type) (types.Type, error) {
	t, err := c.synth(env, e, want)
	if err != nil {
		return nil, err
	}
	return c.accept(e, t, want)
}

// accept decides whether a value of type t produced by e may be used
// where want is expected. Rules are tried in order: plain subtyping,
// array to slice, const-wrapped slice, then refinement.
func (c *checker) accept(e ast.Expr, t, want types.Type) (types.Type, error) {
	ok, code := c.subtype(t, want)
	if ok {
		return t, nil
	}
	if arr, isArr := types.StripPerm(t).(*types.Array); isArr {
		var slice types.Type = types.MkSlice(arr.Elem)
		if p, has := t.(*types.Perm); has {
			slice = &types.Perm{Perm: p.Perm, Base: slice}
		}
		if ok, _ := c.subtype(slice, want); ok {
			return slice, nil
		}
		wrapped := &types.Perm{Perm: types.PermConst, Base: types.MkSlice(arr.Elem)}
		if ok, _ := c.subtype(wrapped, want); ok {
			return wrapped, nil
		}
	}
	if !ast.IsPlace(e) {
		// fresh values take whatever permission the context asks for
		if _, has := want.(*types.Perm); has {
			if ok, _ := c.subtype(types.StripPerm(t), types.StripPerm(want)); ok {
				return want, nil
			}
		}
	}
	if r, perm, isRef := refineOf(want); isRef {
		var inner types.Type = r.Base
		if perm != 0 {
			inner = &types.Perm{Perm: perm, Base: r.Base}
		}
		if _, err := c.accept(e, t, inner); err != nil {
			return nil, err
		}
		if err := c.proveRefine(r, e); err != nil {
			return nil, err
		}
		return want, nil
	}
	if code == diag.ChkSubsumptionModal {
		return nil, failf(code, ast.SpanOf(e), "%s does not widen to %s", t, want)
	}
	return nil, failf(diag.SubtypeMismatch, ast.SpanOf(e), "expected %s, found %s", want, t)
}

func refineOf(t types.Type) (*types.Refine, types.Permission, bool) {
	switch x := t.(type) {
	case *types.Refine:
		return x, 0, true
	case *types.Perm:
		if r, ok := x.Base.(*types.Refine); ok {
			return r, x.Perm, true
		}
	}
	return nil, 0, false
}

func (c *checker) synth(env *TypeEnv, e ast.Expr, want types.Type) (types.Type, error) {
	t, err := c.synthExpr(env, e, want)
	if err != nil {
		return nil, err
	}
	c.ctx.record(e, t)
	return t, nil
}

func (c *checker) synthExpr(env *TypeEnv, e ast.Expr, want types.Type) (types.Type, error) {
	switch x := e.(type) {
	case *ast.Literal:
		return c.checkLiteral(x, want, false)
	case *ast.Ident:
		b, ok := env.Lookup(x.Name)
		if !ok {
			if p, ok := c.ctx.ResolveProc([]string{x.Name}); ok && p.Self == nil {
				return p.Sig(), nil
			}
			return nil, failf(diag.IdentUnbound, x.Span, "%s is not bound", x.Name)
		}
		if !c.isBitcopy(b.Type) {
			return nil, failf(diag.ValueUseNonBitcopy, x.Span, "%s has type %s, which is not Bitcopy; use move", x.Name, b.Type)
		}
		return b.Type, nil
	case *ast.Path:
		return c.synthPath(x)
	case *ast.ResultRef:
		if c.resultType == nil {
			return nil, failf(diag.ContractPreResult, x.Span, "@result is only available in postconditions")
		}
		return c.resultType, nil
	case *ast.EntryRef:
		if c.resultType == nil {
			return nil, failf(diag.ContractPreEntry, x.Span, "@entry is only available in postconditions")
		}
		return c.inferPlace(env, x.X)
	case *ast.TupleExpr:
		if len(x.Elems) == 0 {
			return types.Unit, nil
		}
		var hints []types.Type
		if wt, ok := types.StripRefine(orNil(want)).(*types.Tuple); ok && len(wt.Elems) == len(x.Elems) {
			hints = wt.Elems
		}
		elems := make([]types.Type, len(x.Elems))
		for i, el := range x.Elems {
			var h types.Type
			if hints != nil {
				h = hints[i]
			}
			t, err := c.synth(env, el, h)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return types.MkTuple(elems...), nil
	case *ast.ArrayExpr:
		return c.synthArray(env, x, want)
	case *ast.Binary:
		return c.synthBinary(env, x, want)
	case *ast.Unary:
		return c.synthUnary(env, x, want)
	case *ast.Call:
		return c.synthCall(env, x)
	case *ast.MethodCall:
		return c.synthMethodCall(env, x)
	case *ast.FieldExpr:
		base, err := c.inferPlace(env, x.X)
		if err != nil {
			return nil, err
		}
		return c.fieldType(base, x.Name, x.Span)
	case *ast.IndexExpr:
		return c.synthIndex(env, x)
	case *ast.Block:
		return c.checkBlock(env, x, want, false)
	case *ast.If:
		return c.checkIf(env, x, want)
	case *ast.Loop:
		return c.checkLoop(env, x)
	case *ast.Move:
		if !ast.IsPlace(x.X) {
			return nil, failf(diag.CallMoveUnexpected, x.Span, "only places can be moved")
		}
		return c.inferPlace(env, x.X)
	case *ast.NullPtr:
		return c.synthNull(x, want)
	case *ast.Unsafe:
		c.unsafeDepth++
		defer func() { c.unsafeDepth-- }()
		return c.checkBlock(env, x.Body, want, false)
	case *ast.Cast:
		return c.synthCast(env, x)
	case *ast.RecordLit:
		return c.synthRecordLit(env, x)
	case *ast.Match:
		return c.checkMatch(env, x, want)
	case *ast.SizeOf:
		return c.synthLayoutQuery(x.Type, x.Span)
	case *ast.AlignOf:
		return c.synthLayoutQuery(x.Type, x.Span)
	case *ast.RangeExpr:
		if x.Lo != nil {
			if _, err := c.checkIndexType(env, x.Lo); err != nil {
				return nil, err
			}
		}
		if x.Hi != nil {
			if _, err := c.checkIndexType(env, x.Hi); err != nil {
				return nil, err
			}
		}
		return &types.Range{}, nil
	}
	return nil, failf(diag.UnknownCode, ast.SpanOf(e), "unsupported expression")
}

func orNil(t types.Type) types.Type {
	if t == nil {
		return types.Unit
	}
	return t
}

// inferPlace types e as a place. Naming a binding here does not copy it.
func (c *checker) inferPlace(env *TypeEnv, e ast.Expr) (types.Type, error) {
	switch x := e.(type) {
	case *ast.Ident:
		b, ok := env.Lookup(x.Name)
		if !ok {
			return c.synth(env, e, nil)
		}
		c.ctx.record(e, b.Type)
		return b.Type, nil
	case *ast.FieldExpr:
		base, err := c.inferPlace(env, x.X)
		if err != nil {
			return nil, err
		}
		t, err := c.fieldType(base, x.Name, x.Span)
		if err != nil {
			return nil, err
		}
		c.ctx.record(e, t)
		return t, nil
	case *ast.IndexExpr:
		return c.synth(env, e, nil)
	}
	return c.synth(env, e, nil)
}

func (c *checker) synthPath(x *ast.Path) (types.Type, error) {
	if p, ok := c.ctx.ResolveProc(x.Segments); ok && p.Self == nil {
		return p.Sig(), nil
	}
	if n := len(x.Segments); n >= 2 {
		if en, ok := c.enumOf(x.Segments[:n-1]); ok {
			v, _, ok := en.Variant(x.Segments[n-1])
			if !ok {
				return nil, failf(diag.IdentUnbound, x.Span, "%s has no variant %s", en.Path, x.Segments[n-1])
			}
			if len(v.Fields) != 0 {
				return nil, failf(diag.CallArity, x.Span, "variant %s carries a payload", v.Name)
			}
			return &types.Named{Path: en.Path}, nil
		}
	}
	return nil, failf(diag.IdentUnbound, x.Span, "%s is not bound", types.Path(x.Segments))
}

func (c *checker) enumOf(path []string) (*symbols.EnumInfo, bool) {
	d, ok := c.ctx.resolveType(path)
	if !ok {
		return nil, false
	}
	en, ok := d.(*symbols.EnumInfo)
	return en, ok
}

func genericEnv(params []string, args []types.Type) map[string]types.Type {
	if len(params) == 0 || len(params) != len(args) {
		return nil
	}
	env := make(map[string]types.Type, len(params))
	for i, p := range params {
		env[p] = args[i]
	}
	return env
}

func substOpt(t types.Type, env map[string]types.Type) types.Type {
	if env == nil {
		return t
	}
	return types.Subst(t, env)
}

// fieldType resolves `base.name`.
func (c *checker) fieldType(base types.Type, name string, span source.Span) (types.Type, error) {
	switch b := types.StripRefine(base).(type) {
	case *types.Named:
		d, ok := c.ctx.Sigma.LookupType(b.Path)
		if !ok {
			break
		}
		switch d := d.(type) {
		case *symbols.RecordInfo:
			f, _, ok := d.Field(name)
			if !ok {
				return nil, failf(diag.FieldUnknown, span, "%s has no field %s", b.Path, name)
			}
			return substOpt(f.Type, genericEnv(d.TypeParams, b.Args)), nil
		case *symbols.ModalInfo:
			return nil, failf(diag.ModalFieldNoState, span, "field %s of %s needs a known state", name, b.Path)
		}
	case *types.ModalState:
		m, ok := c.ctx.Sigma.Modal(b.Path)
		if !ok {
			break
		}
		st, _, _ := m.State(b.State)
		if st == nil {
			break
		}
		f, ok := st.Field(name)
		if !ok {
			return nil, failf(diag.FieldUnknown, span, "%s@%s has no field %s", b.Path, b.State, name)
		}
		return substOpt(f.Type, genericEnv(m.TypeParams, b.Args)), nil
	case *types.Tuple:
		for i, el := range b.Elems {
			if name == tupleFieldName(i) {
				return el, nil
			}
		}
	}
	return nil, failf(diag.FieldUnknown, span, "%s has no field %s", base, name)
}

func (c *checker) synthIndex(env *TypeEnv, x *ast.IndexExpr) (types.Type, error) {
	base, err := c.inferPlace(env, x.X)
	if err != nil {
		return nil, err
	}
	if _, err := c.checkIndexType(env, x.Index); err != nil {
		return nil, err
	}
	switch b := types.StripRefine(base).(type) {
	case *types.Array:
		if lit, ok := x.Index.(*ast.Literal); ok {
			if v, ok := layout.ParseIntLiteral(lit.Text); ok && v >= b.Len {
				return nil, failf(diag.IndexInvalid, lit.Span, "index %d out of bounds for length %d", v, b.Len)
			}
		}
		return b.Elem, nil
	case *types.Slice:
		return b.Elem, nil
	}
	return nil, failf(diag.IndexInvalid, x.Span, "%s cannot be indexed", base)
}

// checkIndexType requires an integer index; bare literals default to usize.
func (c *checker) checkIndexType(env *TypeEnv, e ast.Expr) (types.Type, error) {
	t, err := c.synth(env, e, types.USize)
	if err != nil {
		return nil, err
	}
	if !types.IsInteger(types.StripRefine(t)) {
		return nil, failf(diag.IndexInvalid, ast.SpanOf(e), "index has type %s, want an integer", t)
	}
	return t, nil
}

func (c *checker) synthArray(env *TypeEnv, x *ast.ArrayExpr, want types.Type) (types.Type, error) {
	var hint types.Type
	switch w := types.StripRefine(orNil(want)).(type) {
	case *types.Array:
		hint = w.Elem
	case *types.Slice:
		hint = w.Elem
	}
	if len(x.Elems) == 0 {
		if hint == nil {
			return nil, failf(diag.TypeWF, x.Span, "cannot infer the element type of an empty array")
		}
		return types.MkArray(hint, 0), nil
	}
	elem, err := c.synth(env, x.Elems[0], hint)
	if err != nil {
		return nil, err
	}
	for _, el := range x.Elems[1:] {
		t, err := c.synth(env, el, elem)
		if err != nil {
			return nil, err
		}
		if !types.Equal(types.StripPerm(t), types.StripPerm(elem)) {
			return nil, failf(diag.SubtypeMismatch, ast.SpanOf(el), "array element has type %s, want %s", t, elem)
		}
	}
	return types.MkArray(elem, uint64(len(x.Elems))), nil
}

func (c *checker) synthNull(x *ast.NullPtr, want types.Type) (types.Type, error) {
	if want == nil {
		return nil, failf(diag.PtrNullInfer, x.Span, "type of null pointer cannot be inferred")
	}
	switch w := types.StripRefine(want).(type) {
	case *types.Ptr:
		if w.State != types.PtrNoState && w.State != types.PtrNull {
			return nil, failf(diag.ChkNullPtr, x.Span, "null pointer where %s is expected", want)
		}
		return types.MkPtr(w.Elem, types.PtrNull), nil
	case *types.RawPtr:
		return w, nil
	}
	return nil, failf(diag.ChkNullPtr, x.Span, "null pointer where %s is expected", want)
}

func (c *checker) synthLayoutQuery(t ast.Type, span source.Span) (types.Type, error) {
	lt, err := c.lowerType(t)
	if err != nil {
		return nil, err
	}
	if _, lerr := c.ctx.Layout.LayoutOf(lt); lerr != nil {
		return nil, layoutFailure(lerr, span)
	}
	return types.USize, nil
}

func (c *checker) synthCast(env *TypeEnv, x *ast.Cast) (types.Type, error) {
	from, err := c.infer(env, x.X)
	if err != nil {
		return nil, err
	}
	to, err := c.lowerType(x.To)
	if err != nil {
		return nil, err
	}
	f, t := types.StripRefine(from), types.StripRefine(to)
	switch {
	case types.IsNumeric(f) && types.IsNumeric(t):
	case types.IsBool(f) && types.IsInteger(t):
	case types.IsPrim(f, "char") && types.IsPrim(t, "u32"):
	case types.IsPrim(f, "u8") && types.IsPrim(t, "char"):
	case isPtrLike(f) && isRaw(t):
		if c.unsafeDepth == 0 {
			return nil, failf(diag.CastInvalid, x.Span, "pointer casts need an unsafe block")
		}
	default:
		return nil, failf(diag.CastInvalid, x.Span, "cannot cast %s to %s", from, to)
	}
	return to, nil
}

func isPtrLike(t types.Type) bool {
	switch t.(type) {
	case *types.Ptr, *types.RawPtr:
		return true
	}
	return false
}

func isRaw(t types.Type) bool {
	_, ok := t.(*types.RawPtr)
	return ok
}

func isLiteralish(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.Literal:
		return x.Suffix == "" && (x.Kind == ast.LitInt || x.Kind == ast.LitFloat)
	case *ast.Unary:
		return x.Op == ast.OpNeg && isLiteralish(x.X)
	}
	return false
}

// synthOperands types both sides of a binary operator so that an
// unsuffixed literal adopts the type of the other side.
func (c *checker) synthOperands(env *TypeEnv, x, y ast.Expr, hint types.Type) (types.Type, types.Type, error) {
	if isLiteralish(x) && !isLiteralish(y) {
		ty, err := c.synth(env, y, hint)
		if err != nil {
			return nil, nil, err
		}
		tx, err := c.synth(env, x, types.StripRefine(ty))
		return tx, ty, err
	}
	tx, err := c.synth(env, x, hint)
	if err != nil {
		return nil, nil, err
	}
	ty, err := c.synth(env, y, types.StripRefine(tx))
	return tx, ty, err
}

func (c *checker) synthBinary(env *TypeEnv, x *ast.Binary, want types.Type) (types.Type, error) {
	switch {
	case x.Op.IsLogical():
		if _, err := c.check(env, x.X, types.Bool); err != nil {
			return nil, err
		}
		if _, err := c.check(env, x.Y, types.Bool); err != nil {
			return nil, err
		}
		return types.Bool, nil
	case x.Op == ast.OpShl || x.Op == ast.OpShr:
		tx, err := c.synth(env, x.X, numericHint(want))
		if err != nil {
			return nil, err
		}
		ty, err := c.synth(env, x.Y, types.U32)
		if err != nil {
			return nil, err
		}
		if !types.IsInteger(types.StripRefine(tx)) || !types.IsInteger(types.StripRefine(ty)) {
			return nil, failf(diag.BinaryOperand, x.Span, "%s needs integer operands, found %s and %s", x.Op, tx, ty)
		}
		return types.StripRefine(tx), nil
	}
	var hint types.Type
	if !x.Op.IsComparison() {
		hint = numericHint(want)
	}
	tx, ty, err := c.synthOperands(env, x.X, x.Y, hint)
	if err != nil {
		return nil, err
	}
	a, b := types.StripRefine(tx), types.StripRefine(ty)
	if !types.Equal(a, b) {
		return nil, failf(diag.BinaryOperand, x.Span, "operands of %s have types %s and %s", x.Op, tx, ty)
	}
	switch {
	case x.Op.IsComparison():
		if x.Op == ast.OpEq || x.Op == ast.OpNe {
			if !comparable(a) {
				return nil, failf(diag.BinaryOperand, x.Span, "%s values cannot be compared", a)
			}
		} else if !types.IsNumeric(a) && !types.IsPrim(a, "char") {
			return nil, failf(diag.BinaryOperand, x.Span, "%s values are not ordered", a)
		}
		return types.Bool, nil
	case x.Op.IsBitwise():
		if !types.IsInteger(a) && !types.IsBool(a) {
			return nil, failf(diag.BinaryOperand, x.Span, "%s needs integer or bool operands, found %s", x.Op, a)
		}
		return a, nil
	default:
		if !types.IsNumeric(a) {
			return nil, failf(diag.BinaryOperand, x.Span, "%s needs numeric operands, found %s", x.Op, a)
		}
		return a, nil
	}
}

func numericHint(want types.Type) types.Type {
	if want == nil {
		return nil
	}
	if b := types.StripRefine(want); types.IsNumeric(b) {
		return b
	}
	return nil
}

func comparable(t types.Type) bool {
	switch x := t.(type) {
	case *types.Prim:
		return !types.IsUnit(x) && !types.IsNever(x)
	case *types.Ptr, *types.RawPtr:
		return true
	case *types.Named:
		return true
	}
	return false
}

func (c *checker) synthUnary(env *TypeEnv, x *ast.Unary, want types.Type) (types.Type, error) {
	switch x.Op {
	case ast.OpNeg:
		if lit, ok := x.X.(*ast.Literal); ok {
			t, err := c.checkLiteral(lit, want, true)
			if err != nil {
				return nil, err
			}
			c.ctx.record(lit, t)
			if !types.IsSigned(t) && !types.IsFloat(t) {
				return nil, failf(diag.UnaryOperand, x.Span, "cannot negate %s", t)
			}
			return t, nil
		}
		t, err := c.synth(env, x.X, numericHint(want))
		if err != nil {
			return nil, err
		}
		b := types.StripRefine(t)
		if !types.IsSigned(b) && !types.IsFloat(b) {
			return nil, failf(diag.UnaryOperand, x.Span, "cannot negate %s", t)
		}
		return b, nil
	case ast.OpPos:
		t, err := c.synth(env, x.X, numericHint(want))
		if err != nil {
			return nil, err
		}
		if !types.IsNumeric(types.StripRefine(t)) {
			return nil, failf(diag.UnaryOperand, x.Span, "unary + needs a number, found %s", t)
		}
		return types.StripRefine(t), nil
	case ast.OpNot:
		t, err := c.synth(env, x.X, want)
		if err != nil {
			return nil, err
		}
		b := types.StripRefine(t)
		if !types.IsBool(b) && !types.IsInteger(b) {
			return nil, failf(diag.UnaryOperand, x.Span, "! needs bool or an integer, found %s", t)
		}
		return b, nil
	case ast.OpDeref:
		t, err := c.synth(env, x.X, nil)
		if err != nil {
			return nil, err
		}
		switch p := types.StripRefine(t).(type) {
		case *types.Ptr:
			if p.State == types.PtrNull || p.State == types.PtrExpired {
				return nil, failf(diag.UnaryOperand, x.Span, "dereference of %s", t)
			}
			return p.Elem, nil
		case *types.RawPtr:
			if c.unsafeDepth == 0 {
				return nil, failf(diag.UnaryOperand, x.Span, "raw pointer dereference needs an unsafe block")
			}
			return p.Elem, nil
		}
		return nil, failf(diag.UnaryOperand, x.Span, "cannot dereference %s", t)
	case ast.OpAddrOf:
		if !ast.IsPlace(x.X) {
			return nil, failf(diag.UnaryOperand, x.Span, "& needs a place")
		}
		t, err := c.inferPlace(env, x.X)
		if err != nil {
			return nil, err
		}
		return types.MkPtr(types.StripPerm(t), types.PtrValid), nil
	}
	return nil, failf(diag.UnaryOperand, x.Span, "unknown operator")
}

func tupleFieldName(i int) string { return strconv.Itoa(i) }
