package sema

import (
	"strconv"
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
	"cursive0/internal/types"
)

// checkLiteral types a literal. want may be nil; an unsuffixed numeric
// literal takes a compatible expected type and defaults otherwise.
// negated is set for the operand of a unary minus.
func (c *checker) checkLiteral(lit *ast.Literal, want types.Type, negated bool) (types.Type, error) {
	var base types.Type
	if want != nil {
		base = types.StripRefine(want)
	}
	switch lit.Kind {
	case ast.LitBool:
		return types.Bool, nil
	case ast.LitChar:
		return types.Char, nil
	case ast.LitString:
		return types.MkString(types.StrView), nil
	case ast.LitFloat:
		t := types.F64
		switch {
		case lit.Suffix != "":
			if !types.IsFloat(types.MkPrim(lit.Suffix)) {
				return nil, failf(diag.LiteralSuffix, lit.Span, "%q is not a float suffix", lit.Suffix)
			}
			t = types.MkPrim(lit.Suffix)
		case base != nil && types.IsFloat(base):
			t = base
		}
		if _, err := strconv.ParseFloat(strings.ReplaceAll(lit.Text, "_", ""), 64); err != nil {
			return nil, failf(diag.LiteralOverflow, lit.Span, "float literal %s out of range", lit.Text)
		}
		return t, nil
	case ast.LitInt:
		t := types.I32
		switch {
		case lit.Suffix != "":
			s := types.MkPrim(lit.Suffix)
			if !types.IsPrimName(lit.Suffix) || !types.IsNumeric(s) {
				return nil, failf(diag.LiteralSuffix, lit.Span, "%q is not a numeric suffix", lit.Suffix)
			}
			t = s
		case base != nil && types.IsNumeric(base):
			t = base
		}
		hi, lo, ok := layout.ParseIntLiteral128(lit.Text)
		if !ok {
			return nil, failf(diag.LiteralOverflow, lit.Span, "integer literal %s out of range", lit.Text)
		}
		if types.IsFloat(t) {
			return t, nil
		}
		if !c.intFits(t, hi, lo, negated) {
			sign := ""
			if negated {
				sign = "-"
			}
			return nil, failf(diag.LiteralOverflow, lit.Span, "%s%s does not fit in %s", sign, lit.Text, t)
		}
		return t, nil
	}
	return nil, failf(diag.LiteralSuffix, lit.Span, "unknown literal")
}

// intFits checks a magnitude against the range of t.
func (c *checker) intFits(t types.Type, hi, lo uint64, negated bool) bool {
	n := types.IntBits(t, c.ctx.Layout.Target.PtrBits())
	if n == 0 {
		return false
	}
	if !types.IsSigned(t) {
		if negated && (hi != 0 || lo != 0) {
			return false
		}
		return lessPow2(hi, lo, n)
	}
	if lessPow2(hi, lo, n-1) {
		return true
	}
	return negated && isPow2(hi, lo, n-1)
}

// lessPow2 reports (hi, lo) < 2^k.
func lessPow2(hi, lo uint64, k uint64) bool {
	switch {
	case k >= 128:
		return true
	case k >= 64:
		return hi < uint64(1)<<(k-64)
	default:
		return hi == 0 && lo < uint64(1)<<k
	}
}

func isPow2(hi, lo uint64, k uint64) bool {
	switch {
	case k >= 128:
		return false
	case k >= 64:
		return lo == 0 && hi == uint64(1)<<(k-64)
	default:
		return hi == 0 && lo == uint64(1)<<k
	}
}
