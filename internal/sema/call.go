package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/attrs"
	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
	"cursive0/internal/verify"
)

func (c *checker) synthCall(env *TypeEnv, x *ast.Call) (types.Type, error) {
	var segs []string
	switch callee := x.Callee.(type) {
	case *ast.Ident:
		if _, bound := env.Lookup(callee.Name); !bound {
			segs = []string{callee.Name}
		}
	case *ast.Path:
		segs = callee.Segments
	}
	if segs != nil {
		if len(segs) == 1 && segs[0] == symbols.RegionOptionsName {
			if len(x.Args) != 0 {
				return nil, failf(diag.CallArity, x.Span, "RegionOptions() takes no arguments")
			}
			c.ctx.record(x.Callee, types.MkNamed(symbols.RegionOptionsName))
			return types.MkNamed(symbols.RegionOptionsName), nil
		}
		if p, ok := c.ctx.ResolveProc(segs); ok && p.Self == nil {
			c.ctx.record(x.Callee, p.Sig())
			return c.callProc(env, p, nil, nil, x.Args, x.Span)
		}
		if n := len(segs); n >= 2 {
			if en, ok := c.enumOf(segs[:n-1]); ok {
				return c.callVariant(env, en, segs[n-1], x)
			}
		}
	}
	ft, err := c.inferPlace(env, x.Callee)
	if err != nil {
		return nil, err
	}
	fn, ok := types.StripRefine(ft).(*types.Func)
	if !ok {
		return nil, failf(diag.CallCallee, ast.SpanOf(x.Callee), "%s is not callable", ft)
	}
	if len(fn.Params) != len(x.Args) {
		return nil, failf(diag.CallArity, x.Span, "expected %d arguments, got %d", len(fn.Params), len(x.Args))
	}
	for i, a := range x.Args {
		if err := c.checkArg(env, a, fn.Params[i].Mode, fn.Params[i].Type); err != nil {
			return nil, err
		}
	}
	return fn.Ret, nil
}

func (c *checker) callVariant(env *TypeEnv, en *symbols.EnumInfo, name string, x *ast.Call) (types.Type, error) {
	v, _, ok := en.Variant(name)
	if !ok {
		return nil, failf(diag.IdentUnbound, x.Span, "%s has no variant %s", en.Path, name)
	}
	if len(v.Fields) != len(x.Args) {
		return nil, failf(diag.CallArity, x.Span, "variant %s takes %d values, got %d", name, len(v.Fields), len(x.Args))
	}
	for i, a := range x.Args {
		if err := c.checkArg(env, a, types.ModeCopy, v.Fields[i].Type); err != nil {
			return nil, err
		}
	}
	return &types.Named{Path: en.Path}, nil
}

// checkArg types one argument against a parameter. Moved arguments and
// permission-qualified parameters take places without copying them.
func (c *checker) checkArg(env *TypeEnv, a ast.Arg, mode types.ParamMode, want types.Type) error {
	span := ast.SpanOf(a.X)
	if mode == types.ModeMove && !a.Moved {
		return failf(diag.CallMoveMissing, span, "argument must be passed with move")
	}
	if mode == types.ModeCopy && a.Moved {
		return failf(diag.CallMoveUnexpected, span, "parameter does not take ownership")
	}
	inner := a.X
	if _, isPerm := want.(*types.Perm); (isPerm || a.Moved || isDynamicT(want)) && ast.IsPlace(inner) {
		t, err := c.inferPlace(env, inner)
		if err != nil {
			return err
		}
		_, err = c.accept(inner, t, want)
		return err
	}
	_, err := c.check(env, inner, want)
	return err
}

func isDynamicT(t types.Type) bool {
	_, ok := types.StripPerm(t).(*types.Dynamic)
	return ok
}

// callProc checks arguments and the callee's precondition at the call
// site. self is the receiver expression of a method call.
func (c *checker) callProc(env *TypeEnv, p *symbols.ProcInfo, self ast.Expr, generics map[string]types.Type, args []ast.Arg, span source.Span) (types.Type, error) {
	if len(args) != len(p.Params) {
		return nil, failf(diag.CallArity, span, "%s expects %d arguments, got %d", p.Path, len(p.Params), len(args))
	}
	for i, a := range args {
		if err := c.checkArg(env, a, p.Params[i].Mode, substOpt(p.Params[i].Type, generics)); err != nil {
			return nil, err
		}
	}
	if p.Pre != nil {
		bind := make(map[string]ast.Expr, len(args)+1)
		for i, a := range args {
			bind[p.Params[i].Name] = a.X
		}
		if self != nil {
			bind["self"] = self
		}
		pre := verify.SubstIdents(p.Pre, bind)
		dynamic := attrs.HasAttribute(p.Attrs, attrs.Dynamic)
		if err := c.prove(pre, span, ObligationPre, diag.PreUnprovable, dynamic); err != nil {
			return nil, err
		}
	}
	return substOpt(p.Ret, generics), nil
}

func (c *checker) synthMethodCall(env *TypeEnv, x *ast.MethodCall) (types.Type, error) {
	recvT, err := c.inferPlace(env, x.Recv)
	if err != nil {
		return nil, err
	}
	base := types.StripRefine(recvT)
	if dyn, ok := base.(*types.Dynamic); ok && x.Name == "alloc_raw" &&
		symbols.PathKeyOf(dyn.Class) == symbols.HeapAllocatorName {
		return c.checkAllocRaw(env, x, recvT)
	}
	m, generics, err := c.lookupMethod(base, x.Name, x.Span)
	if err != nil {
		return nil, err
	}
	if m.Self == nil {
		return nil, failf(diag.MethodUnknown, x.Span, "%s is a static procedure, not a method", m.Path)
	}
	if types.PermOf(m.Self) == types.PermUnique && types.PermOf(recvT) != types.PermUnique {
		return nil, failf(diag.SubtypeMismatch, ast.SpanOf(x.Recv), "%s needs a unique receiver, found %s", x.Name, recvT)
	}
	return c.callProc(env, m, x.Recv, generics, x.Args, x.Span)
}

func (c *checker) lookupMethod(base types.Type, name string, span source.Span) (*symbols.ProcInfo, map[string]types.Type, error) {
	switch b := base.(type) {
	case *types.Named:
		switch d := c.lookupDecl(b.Path).(type) {
		case *symbols.RecordInfo:
			if m, ok := d.Methods[name]; ok {
				return m, genericEnv(d.TypeParams, b.Args), nil
			}
			if m, ok := c.classDefault(d.Implements, name); ok {
				return m, nil, nil
			}
		case *symbols.EnumInfo:
			if m, ok := c.classDefault(d.Implements, name); ok {
				return m, nil, nil
			}
		case *symbols.ModalInfo:
			return nil, nil, failf(diag.ModalFieldNoState, span, "method %s of %s needs a known state", name, b.Path)
		}
	case *types.ModalState:
		if m, ok := c.ctx.Sigma.Modal(b.Path); ok {
			if st, _, ok := m.State(b.State); ok {
				if p, ok := st.Methods[name]; ok {
					return p, genericEnv(m.TypeParams, b.Args), nil
				}
			}
		}
	case *types.Dynamic:
		if cl, ok := c.ctx.Sigma.LookupClass(b.Class); ok {
			if p, ok := cl.Methods[name]; ok {
				return p, nil, nil
			}
		}
	case *types.Opaque:
		if cl, ok := c.ctx.Sigma.LookupClass(b.Class); ok {
			if p, ok := cl.Methods[name]; ok {
				return p, nil, nil
			}
		}
	case *types.Str:
		if p, ok := symbols.StringMethod(name); ok {
			return p, nil, nil
		}
	case *types.Bytes:
		if p, ok := symbols.BytesMethod(name); ok {
			return p, nil, nil
		}
	}
	return nil, nil, failf(diag.MethodUnknown, span, "%s has no method %s", base, name)
}

func (c *checker) lookupDecl(path types.Path) symbols.TypeDecl {
	d, _ := c.ctx.Sigma.LookupType(path)
	return d
}

// classDefault finds a method with a body in one of the implemented classes.
func (c *checker) classDefault(classes []types.Path, name string) (*symbols.ProcInfo, bool) {
	for _, cp := range classes {
		cl, ok := c.ctx.Sigma.LookupClass(cp)
		if !ok {
			continue
		}
		if p, ok := cl.Methods[name]; ok && p.Decl != nil && p.Decl.Body != nil {
			return p, true
		}
	}
	return nil, false
}

// checkAllocRaw applies the raw allocation rules in their fixed order:
// unsafe context, receiver, arity, place argument, argument type.
func (c *checker) checkAllocRaw(env *TypeEnv, x *ast.MethodCall, recvT types.Type) (types.Type, error) {
	if c.unsafeDepth == 0 {
		return nil, failf(diag.AllocRawUnsafe, x.Span, "alloc_raw needs an unsafe block")
	}
	if types.PermOf(recvT) != types.PermConst {
		return nil, failf(diag.AllocRawRecv, ast.SpanOf(x.Recv), "alloc_raw receiver must be const $HeapAllocator, found %s", recvT)
	}
	if len(x.Args) != 1 {
		return nil, failf(diag.AllocRawArity, x.Span, "alloc_raw takes 1 argument, got %d", len(x.Args))
	}
	arg := x.Args[0]
	if arg.Moved || !ast.IsPlace(arg.X) {
		return nil, failf(diag.AllocRawArgPlace, ast.SpanOf(arg.X), "alloc_raw size must be a place")
	}
	t, err := c.inferPlace(env, arg.X)
	if err != nil {
		return nil, err
	}
	at := types.StripRefine(t)
	if !types.IsInteger(at) || types.IsSigned(at) ||
		types.IntBits(at, c.ctx.Layout.Target.PtrBits()) > c.ctx.Layout.Target.PtrBits() {
		return nil, failf(diag.AllocRawArgType, ast.SpanOf(arg.X), "alloc_raw size has type %s, want usize", t)
	}
	return &types.RawPtr{Qual: types.RawMut, Elem: types.U8}, nil
}

func (c *checker) synthRecordLit(env *TypeEnv, x *ast.RecordLit) (types.Type, error) {
	t, err := c.lowerType(x.Type)
	if err != nil {
		return nil, err
	}
	var fields []symbols.FieldInfo
	var generics map[string]types.Type
	var rec *symbols.RecordInfo
	switch lt := t.(type) {
	case *types.Named:
		switch d := c.lookupDecl(lt.Path).(type) {
		case *symbols.RecordInfo:
			rec, fields, generics = d, d.Fields, genericEnv(d.TypeParams, lt.Args)
		case *symbols.ModalInfo:
			return nil, failf(diag.ModalFieldNoState, x.Span, "%s literal needs a state", lt.Path)
		default:
			return nil, failf(diag.RecordLitInvalid, x.Span, "%s is not a record", t)
		}
	case *types.ModalState:
		m, _ := c.ctx.Sigma.Modal(lt.Path)
		st, _, _ := m.State(lt.State)
		fields, generics = st.Fields, genericEnv(m.TypeParams, lt.Args)
	default:
		return nil, failf(diag.RecordLitInvalid, x.Span, "%s is not a record", t)
	}
	seen := make(map[string]bool, len(x.Fields))
	values := make(map[string]ast.Expr, len(x.Fields))
	for _, init := range x.Fields {
		if seen[init.Name] {
			return nil, failf(diag.RecordLitInvalid, ast.SpanOf(init.Value), "field %s given twice", init.Name)
		}
		seen[init.Name] = true
		var ft types.Type
		for _, f := range fields {
			if f.Name == init.Name {
				ft = f.Type
			}
		}
		if ft == nil {
			return nil, failf(diag.RecordLitInvalid, ast.SpanOf(init.Value), "%s has no field %s", t, init.Name)
		}
		if _, err := c.check(env, init.Value, substOpt(ft, generics)); err != nil {
			return nil, err
		}
		values[init.Name] = init.Value
	}
	for _, f := range fields {
		if !seen[f.Name] {
			return nil, failf(diag.RecordLitInvalid, x.Span, "field %s missing", f.Name)
		}
	}
	if rec != nil && rec.Decl != nil && rec.Decl.Invariant != nil {
		inv := substSelfFields(rec.Decl.Invariant, values)
		dynamic := attrs.HasAttribute(rec.Attrs, attrs.Dynamic)
		if err := c.prove(inv, x.Span, ObligationInvariant, diag.InvariantUnprovable, dynamic); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// substSelfFields replaces `self.f` by the value given for f.
func substSelfFields(pred ast.Expr, values map[string]ast.Expr) ast.Expr {
	return verify.Rewrite(pred, func(e ast.Expr) (ast.Expr, bool) {
		fe, ok := e.(*ast.FieldExpr)
		if !ok {
			return nil, false
		}
		id, ok := fe.X.(*ast.Ident)
		if !ok || id.Name != "self" {
			return nil, false
		}
		v, ok := values[fe.Name]
		return v, ok
	})
}
