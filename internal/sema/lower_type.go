package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
	"cursive0/internal/verify"
)

// LowerType lowers surface type syntax in the module of ctx. typeParams
// are the generic names in scope.
func LowerType(ctx *ScopeContext, t ast.Type, typeParams []string) (types.Type, error) {
	c := newChecker(ctx, Options{})
	c.setGenerics(typeParams)
	return c.lowerType(t)
}

func (c *checker) setGenerics(names []string) {
	c.generics = make(map[string]bool, len(names))
	for _, n := range names {
		c.generics[n] = true
	}
}

// lowerType lowers and then checks well-formedness.
func (c *checker) lowerType(t ast.Type) (types.Type, error) {
	lt, err := c.lowerTypeRaw(t)
	if err != nil {
		return nil, err
	}
	if err := c.typeWF(lt, t); err != nil {
		return nil, err
	}
	return lt, nil
}

func (c *checker) lowerList(list []ast.Type) ([]types.Type, error) {
	out := make([]types.Type, 0, len(list))
	for _, t := range list {
		lt, err := c.lowerTypeRaw(t)
		if err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, nil
}

func ptrState(name string) (types.PtrState, bool) {
	switch name {
	case "":
		return types.PtrNoState, true
	case "Valid":
		return types.PtrValid, true
	case "Null":
		return types.PtrNull, true
	case "Expired":
		return types.PtrExpired, true
	}
	return types.PtrNoState, false
}

func strState(name string) (types.StrState, bool) {
	switch name {
	case "":
		return types.StrNoState, true
	case "Managed":
		return types.StrManaged, true
	case "View":
		return types.StrView, true
	}
	return types.StrNoState, false
}

func lowerPerm(p ast.Perm) types.Permission {
	switch p {
	case ast.PermUnique:
		return types.PermUnique
	case ast.PermShared:
		return types.PermShared
	}
	return types.PermConst
}

func (c *checker) lowerTypeRaw(t ast.Type) (types.Type, error) {
	span := ast.SpanOf(t)
	switch x := t.(type) {
	case *ast.PrimType:
		if !types.IsPrimName(x.Name) {
			return nil, failf(diag.TypeUnknownPath, span, "unknown primitive %q", x.Name)
		}
		return types.MkPrim(x.Name), nil
	case *ast.PermType:
		if _, nested := x.Base.(*ast.PermType); nested {
			return nil, failf(diag.TypeWF, span, "permission applied twice")
		}
		base, err := c.lowerTypeRaw(x.Base)
		if err != nil {
			return nil, err
		}
		return &types.Perm{Perm: lowerPerm(x.Perm), Base: base}, nil
	case *ast.PtrType:
		st, ok := ptrState(x.State)
		if !ok {
			return nil, failf(diag.ModalStateUnknown, span, "pointer has no state @%s", x.State)
		}
		elem, err := c.lowerTypeRaw(x.Elem)
		if err != nil {
			return nil, err
		}
		return types.MkPtr(elem, st), nil
	case *ast.RawPtrType:
		elem, err := c.lowerTypeRaw(x.Elem)
		if err != nil {
			return nil, err
		}
		q := types.RawImm
		if x.Mut {
			q = types.RawMut
		}
		return &types.RawPtr{Qual: q, Elem: elem}, nil
	case *ast.TupleType:
		elems, err := c.lowerList(x.Elems)
		if err != nil {
			return nil, err
		}
		return types.MkTuple(elems...), nil
	case *ast.ArrayType:
		elem, err := c.lowerTypeRaw(x.Elem)
		if err != nil {
			return nil, err
		}
		n, err := c.constLen(x.Len)
		if err != nil {
			return nil, err
		}
		return types.MkArray(elem, n), nil
	case *ast.SliceType:
		elem, err := c.lowerTypeRaw(x.Elem)
		if err != nil {
			return nil, err
		}
		return types.MkSlice(elem), nil
	case *ast.UnionType:
		members, err := c.lowerList(x.Members)
		if err != nil {
			return nil, err
		}
		return &types.Union{Members: members}, nil
	case *ast.FuncType:
		params := make([]types.FuncParam, 0, len(x.Params))
		for _, p := range x.Params {
			pt, err := c.lowerTypeRaw(p.Type)
			if err != nil {
				return nil, err
			}
			mode := types.ModeCopy
			if p.Move {
				mode = types.ModeMove
			}
			params = append(params, types.FuncParam{Mode: mode, Type: pt})
		}
		ret := types.Unit
		if x.Ret != nil {
			var err error
			if ret, err = c.lowerTypeRaw(x.Ret); err != nil {
				return nil, err
			}
		}
		return &types.Func{Params: params, Ret: ret}, nil
	case *ast.StringType:
		st, ok := strState(x.State)
		if !ok {
			return nil, failf(diag.ModalStateUnknown, span, "string has no state @%s", x.State)
		}
		return types.MkString(st), nil
	case *ast.BytesType:
		st, ok := strState(x.State)
		if !ok {
			return nil, failf(diag.ModalStateUnknown, span, "bytes has no state @%s", x.State)
		}
		return types.MkBytes(st), nil
	case *ast.DynamicType:
		cl, ok := c.ctx.resolveClass(x.Class)
		if !ok {
			return nil, failf(diag.TypeUnknownPath, span, "unknown class %s", types.Path(x.Class))
		}
		return &types.Dynamic{Class: cl.Path}, nil
	case *ast.PathType:
		return c.lowerPath(x)
	case *ast.ModalStateType:
		d, ok := c.ctx.resolveType(x.Path)
		if !ok {
			return nil, failf(diag.TypeUnknownPath, span, "unknown type %s", types.Path(x.Path))
		}
		m, ok := d.(*symbols.ModalInfo)
		if !ok {
			return nil, failf(diag.ModalStateUnknown, span, "%s is not a modal type", types.Path(x.Path))
		}
		if _, _, ok := m.State(x.State); !ok {
			return nil, failf(diag.ModalStateUnknown, span, "%s has no state @%s", m.Path, x.State)
		}
		args, err := c.lowerGenericArgs(m.TypeParams, x.Args, m.Path, x)
		if err != nil {
			return nil, err
		}
		return &types.ModalState{Path: m.Path, State: x.State, Args: args}, nil
	case *ast.RefineType:
		base, err := c.lowerTypeRaw(x.Base)
		if err != nil {
			return nil, err
		}
		if err := c.checkRefinePred(base, x.Pred); err != nil {
			return nil, err
		}
		return &types.Refine{Base: base, Pred: x.Pred}, nil
	case *ast.OpaqueType:
		cl, ok := c.ctx.resolveClass(x.Class)
		if !ok {
			return nil, failf(diag.TypeUnknownPath, span, "unknown class %s", types.Path(x.Class))
		}
		return &types.Opaque{Class: cl.Path, Origin: x.ID, Span: span}, nil
	case *ast.RangeType:
		return &types.Range{}, nil
	}
	return nil, failf(diag.TypeWF, span, "unsupported type syntax")
}

func (c *checker) lowerGenericArgs(params []string, args []ast.Type, path types.Path, at ast.Any) ([]types.Type, error) {
	if len(params) != len(args) {
		return nil, failf(diag.TypeGenericArity, ast.SpanOf(at),
			"%s expects %d type arguments, got %d", path, len(params), len(args))
	}
	return c.lowerList(args)
}

func (c *checker) lowerPath(x *ast.PathType) (types.Type, error) {
	span := x.Span
	if len(x.Path) == 1 && c.generics[x.Path[0]] {
		if len(x.Args) != 0 {
			return nil, failf(diag.TypeGenericArity, span, "type parameter %s takes no arguments", x.Path[0])
		}
		return &types.TypeParam{Name: x.Path[0]}, nil
	}
	d, ok := c.ctx.resolveType(x.Path)
	if !ok {
		if _, isClass := c.ctx.resolveClass(x.Path); isClass {
			return nil, failf(diag.TypeWF, span, "class %s used as a type; write $%s", types.Path(x.Path), types.Path(x.Path))
		}
		return nil, failf(diag.TypeUnknownPath, span, "unknown type %s", types.Path(x.Path))
	}
	switch d := d.(type) {
	case *symbols.RecordInfo:
		args, err := c.lowerGenericArgs(d.TypeParams, x.Args, d.Path, x)
		if err != nil {
			return nil, err
		}
		return &types.Named{Path: d.Path, Args: args}, nil
	case *symbols.EnumInfo:
		args, err := c.lowerGenericArgs(d.TypeParams, x.Args, d.Path, x)
		if err != nil {
			return nil, err
		}
		return &types.Named{Path: d.Path, Args: args}, nil
	case *symbols.ModalInfo:
		args, err := c.lowerGenericArgs(d.TypeParams, x.Args, d.Path, x)
		if err != nil {
			return nil, err
		}
		return &types.Named{Path: d.Path, Args: args}, nil
	case *symbols.AliasInfo:
		args, err := c.lowerGenericArgs(d.TypeParams, x.Args, d.Path, x)
		if err != nil {
			return nil, err
		}
		if d.Target == nil && c.aliasHook != nil {
			if err := c.aliasHook(d); err != nil {
				return nil, err
			}
		}
		if d.Target == nil {
			return nil, failf(diag.TypeAliasRecursive, span, "alias %s cannot be resolved", d.Path)
		}
		if len(args) == 0 {
			return d.Target, nil
		}
		env := make(map[string]types.Type, len(args))
		for i, p := range d.TypeParams {
			env[p] = args[i]
		}
		return types.Subst(d.Target, env), nil
	}
	return nil, failf(diag.TypeUnknownPath, span, "unknown type %s", types.Path(x.Path))
}

// typeWF rejects degenerate shapes that lowering lets through.
func (c *checker) typeWF(t types.Type, at ast.Any) error {
	span := ast.SpanOf(at)
	switch x := t.(type) {
	case *types.Perm:
		if _, nested := x.Base.(*types.Perm); nested {
			return failf(diag.TypeWF, span, "permission applied twice")
		}
		return c.typeWF(x.Base, at)
	case *types.Ptr:
		if types.IsNever(x.Elem) {
			return failf(diag.TypeWF, span, "pointer to !")
		}
		return c.typeWF(x.Elem, at)
	case *types.RawPtr:
		return c.typeWF(x.Elem, at)
	case *types.Tuple:
		for _, e := range x.Elems {
			if err := c.typeWF(e, at); err != nil {
				return err
			}
		}
	case *types.Array:
		if types.IsNever(x.Elem) {
			return failf(diag.TypeWF, span, "array of !")
		}
		return c.typeWF(x.Elem, at)
	case *types.Slice:
		if types.IsNever(x.Elem) {
			return failf(diag.TypeWF, span, "slice of !")
		}
		return c.typeWF(x.Elem, at)
	case *types.Union:
		if len(x.Members) < 2 {
			return failf(diag.TypeWF, span, "union needs at least two members")
		}
		for i, m := range x.Members {
			for _, prev := range x.Members[:i] {
				if types.Equal(prev, m) {
					return failf(diag.TypeWF, span, "union member %s repeated", m)
				}
			}
			if err := c.typeWF(m, at); err != nil {
				return err
			}
		}
	case *types.Func:
		for _, p := range x.Params {
			if err := c.typeWF(p.Type, at); err != nil {
				return err
			}
		}
		return c.typeWF(x.Ret, at)
	case *types.Named:
		for _, a := range x.Args {
			if err := c.typeWF(a, at); err != nil {
				return err
			}
		}
	case *types.ModalState:
		for _, a := range x.Args {
			if err := c.typeWF(a, at); err != nil {
				return err
			}
		}
	case *types.Refine:
		return c.typeWF(x.Base, at)
	}
	return nil
}

// checkRefinePred types pred as a pure boolean over `self`.
func (c *checker) checkRefinePred(base types.Type, pred ast.Expr) error {
	env := NewTypeEnv()
	env.scopes[0]["self"] = Binding{Name: "self", Type: base, Span: ast.SpanOf(pred)}
	t, err := c.infer(env, pred)
	if err != nil {
		var f *failure
		if asFailure(err, &f) {
			return failf(diag.TypeRefinePred, f.span, "%s", f.msg)
		}
		return err
	}
	if !types.IsBool(types.StripRefine(t)) {
		return failf(diag.TypeRefinePred, ast.SpanOf(pred), "refinement predicate has type %s, want bool", t)
	}
	if pure, bad := verify.IsPure(pred); !pure {
		return failf(diag.TypeRefinePred, ast.SpanOf(bad), "refinement predicate must be pure")
	}
	return nil
}
