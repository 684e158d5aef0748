package sema

import (
	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
	"cursive0/internal/verify"
)

// coverage tracks which constructors unguarded arms have matched.
type coverage struct {
	total    int
	seen     map[string]bool
	catchAll bool
}

func (cv *coverage) exhaustive() bool {
	return cv.catchAll || cv.total > 0 && len(cv.seen) == cv.total
}

func (c *checker) checkMatch(env *TypeEnv, x *ast.Match, want types.Type) (types.Type, error) {
	scrT, err := c.inferPlace(env, x.Scrutinee)
	if err != nil {
		return nil, err
	}
	if len(x.Arms) == 0 {
		return nil, failf(diag.MatchPattern, x.Span, "match has no arms")
	}
	base := types.StripRefine(types.StripPerm(scrT))
	cv := &coverage{seen: map[string]bool{}}
	switch b := base.(type) {
	case *types.Named:
		switch d := c.lookupDecl(b.Path).(type) {
		case *symbols.EnumInfo:
			cv.total = len(d.Variants)
		case *symbols.ModalInfo:
			cv.total = len(d.States)
		}
	default:
		if types.IsBool(base) {
			cv.total = 2
		}
	}
	pureScrutinee, _ := verify.IsPure(x.Scrutinee)

	var flows []flowValue
	for _, arm := range x.Arms {
		env.Push()
		c.facts.PushScope()
		t, err := c.checkArm(env, x, arm, scrT, base, want, cv, pureScrutinee)
		c.facts.PopScope()
		env.Pop()
		if err != nil {
			return nil, err
		}
		flows = append(flows, flowValue{typ: t, span: ast.SpanOf(arm.Body)})
	}
	if !cv.exhaustive() {
		return nil, failf(diag.MatchPattern, x.Span, "match on %s is not exhaustive", scrT)
	}
	t, ok := unify(flows)
	if !ok {
		last := flows[len(flows)-1]
		return nil, failf(diag.MatchArmUnify, last.span, "match arms have types %s and %s", flows[0].typ, last.typ)
	}
	return t, nil
}

func (c *checker) checkArm(env *TypeEnv, x *ast.Match, arm ast.Arm, scrT, base, want types.Type, cv *coverage, pureScrutinee bool) (types.Type, error) {
	key, err := c.bindPattern(env, arm.Pattern, scrT, base, pureScrutinee, x.Scrutinee)
	if err != nil {
		return nil, err
	}
	if arm.Guard != nil {
		if pure, bad := verify.IsPure(arm.Guard); !pure {
			return nil, failf(diag.MatchPattern, ast.SpanOf(bad), "match guards must be pure")
		}
		if _, err := c.check(env, arm.Guard, types.Bool); err != nil {
			if code, _ := Code(err); code == diag.SubtypeMismatch {
				return nil, failf(diag.CondNotBool, ast.SpanOf(arm.Guard), "match guard must be bool")
			}
			return nil, err
		}
		c.addFact(env, arm.Guard, ast.SpanOf(arm.Guard))
	} else if key == "" {
		cv.catchAll = true
	} else {
		cv.seen[key] = true
	}
	if want != nil {
		return c.check(env, arm.Body, want)
	}
	return c.infer(env, arm.Body)
}

// bindPattern introduces the bindings of p and returns the constructor
// it covers; "" means every value.
func (c *checker) bindPattern(env *TypeEnv, p ast.Pattern, scrT, base types.Type, pureScrutinee bool, scr ast.Expr) (string, error) {
	switch pt := p.(type) {
	case *ast.WildcardPat:
		return "", nil
	case *ast.BindPat:
		return "", env.Intro(Binding{Name: pt.Name, Type: scrT, Span: pt.Span})
	case *ast.LitPat:
		lt, err := c.checkLiteral(pt.Lit, base, false)
		if err != nil {
			return "", err
		}
		if ok, _ := c.subtype(lt, base); !ok {
			return "", failf(diag.MatchPattern, pt.Span, "pattern of type %s cannot match %s", lt, scrT)
		}
		if pureScrutinee && (types.IsInteger(base) || types.IsBool(base)) {
			c.addFact(env, &ast.Binary{Node: ast.Node{Span: pt.Span}, Op: ast.OpEq, X: scr, Y: pt.Lit}, pt.Span)
		}
		if types.IsBool(base) {
			return pt.Lit.Text, nil
		}
		// Integer and character literals never cover the whole type.
		return "lit:" + pt.Lit.Text + "#", nil
	case *ast.VariantPat:
		named, ok := base.(*types.Named)
		var en *symbols.EnumInfo
		if ok {
			en, ok = c.lookupDecl(named.Path).(*symbols.EnumInfo)
		}
		if !ok {
			return "", failf(diag.MatchPattern, pt.Span, "variant pattern on non-enum %s", scrT)
		}
		v, _, ok := en.Variant(pt.Variant)
		if !ok {
			return "", failf(diag.MatchPattern, pt.Span, "%s has no variant %s", en.Path, pt.Variant)
		}
		if len(pt.Binds) != 0 && len(pt.Binds) != len(v.Fields) {
			return "", failf(diag.MatchPattern, pt.Span, "variant %s has %d fields, pattern binds %d",
				pt.Variant, len(v.Fields), len(pt.Binds))
		}
		gen := genericEnv(en.TypeParams, named.Args)
		for i, name := range pt.Binds {
			if name == "_" {
				continue
			}
			ft := substOpt(v.Fields[i].Type, gen)
			if err := env.Intro(Binding{Name: name, Type: ft, Span: pt.Span}); err != nil {
				return "", err
			}
		}
		return v.Name, nil
	case *ast.StatePat:
		var path types.Path
		var args []types.Type
		switch b := base.(type) {
		case *types.Named:
			path, args = b.Path, b.Args
		case *types.ModalState:
			if b.State != pt.State {
				return "", failf(diag.MatchPattern, pt.Span, "%s can never be in state @%s", scrT, pt.State)
			}
			path, args = b.Path, b.Args
		}
		m, ok := c.lookupDecl(path).(*symbols.ModalInfo)
		if path == nil || !ok {
			return "", failf(diag.MatchPattern, pt.Span, "state pattern on non-modal %s", scrT)
		}
		st, _, ok := m.State(pt.State)
		if !ok {
			return "", failf(diag.ModalStateUnknown, pt.Span, "%s has no state @%s", m.Path, pt.State)
		}
		gen := genericEnv(m.TypeParams, args)
		for _, name := range pt.Binds {
			f, ok := st.Field(name)
			if !ok {
				return "", failf(diag.FieldUnknown, pt.Span, "state @%s has no field %s", pt.State, name)
			}
			if err := env.Intro(Binding{Name: name, Type: substOpt(f.Type, gen), Span: pt.Span}); err != nil {
				return "", err
			}
		}
		if _, single := base.(*types.ModalState); single {
			return "", nil
		}
		return "@" + st.Name, nil
	}
	return "", failf(diag.MatchPattern, ast.SpanOf(p), "unsupported pattern")
}
