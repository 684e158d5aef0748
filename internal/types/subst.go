package types

// Subst replaces type parameters by name. Types without parameters are
// returned as is.
func Subst(t Type, env map[string]Type) Type {
	if len(env) == 0 || t == nil {
		return t
	}
	switch x := t.(type) {
	case *TypeParam:
		if r, ok := env[x.Name]; ok {
			return r
		}
		return x
	case *Perm:
		return MkPerm(x.Perm, Subst(x.Base, env))
	case *Ptr:
		return &Ptr{Elem: Subst(x.Elem, env), State: x.State}
	case *RawPtr:
		return &RawPtr{Qual: x.Qual, Elem: Subst(x.Elem, env)}
	case *Tuple:
		return &Tuple{Elems: substList(x.Elems, env)}
	case *Array:
		return &Array{Elem: Subst(x.Elem, env), Len: x.Len}
	case *Slice:
		return &Slice{Elem: Subst(x.Elem, env)}
	case *Union:
		return &Union{Members: substList(x.Members, env)}
	case *Func:
		params := make([]FuncParam, len(x.Params))
		for i, p := range x.Params {
			params[i] = FuncParam{Mode: p.Mode, Type: Subst(p.Type, env)}
		}
		return &Func{Params: params, Ret: Subst(x.Ret, env)}
	case *Named:
		return &Named{Path: x.Path, Args: substList(x.Args, env)}
	case *ModalState:
		return &ModalState{Path: x.Path, State: x.State, Args: substList(x.Args, env)}
	case *Refine:
		return &Refine{Base: Subst(x.Base, env), Pred: x.Pred}
	}
	return t
}

func substList(list []Type, env map[string]Type) []Type {
	if list == nil {
		return nil
	}
	out := make([]Type, len(list))
	for i, t := range list {
		out[i] = Subst(t, env)
	}
	return out
}
