package sema

import (
	"errors"
	"math/bits"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/layout"
	"cursive0/internal/source"
)

// constLen evaluates an array length. Lengths are closed usize
// expressions over literals, sizeof and alignof.
func (c *checker) constLen(e ast.Expr) (uint64, error) {
	if e == nil {
		return 0, failf(diag.ConstLenInvalid, source.Span{}, "array length missing")
	}
	v, err := c.constEval(e)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (c *checker) constEval(e ast.Expr) (uint64, error) {
	span := ast.SpanOf(e)
	switch x := e.(type) {
	case *ast.Literal:
		if x.Kind != ast.LitInt {
			return 0, failf(diag.ConstLenInvalid, span, "array length must be an integer")
		}
		if x.Suffix != "" && x.Suffix != "usize" {
			return 0, failf(diag.TypeArrayLen, span, "array length must be usize, got %s", x.Suffix)
		}
		v, ok := layout.ParseIntLiteral(x.Text)
		if !ok {
			return 0, failf(diag.TypeArrayLen, span, "array length %s out of range", x.Text)
		}
		return v, nil
	case *ast.Unary:
		if x.Op == ast.OpNeg {
			return 0, failf(diag.TypeArrayLen, span, "array length must not be negative")
		}
	case *ast.Binary:
		a, err := c.constEval(x.X)
		if err != nil {
			return 0, err
		}
		b, err := c.constEval(x.Y)
		if err != nil {
			return 0, err
		}
		switch x.Op {
		case ast.OpAdd:
			sum, carry := bits.Add64(a, b, 0)
			if carry != 0 {
				return 0, failf(diag.TypeArrayLen, span, "array length overflows")
			}
			return sum, nil
		case ast.OpSub:
			diff, borrow := bits.Sub64(a, b, 0)
			if borrow != 0 {
				return 0, failf(diag.TypeArrayLen, span, "array length must not be negative")
			}
			return diff, nil
		case ast.OpMul:
			hi, lo := bits.Mul64(a, b)
			if hi != 0 {
				return 0, failf(diag.TypeArrayLen, span, "array length overflows")
			}
			return lo, nil
		case ast.OpDiv, ast.OpRem:
			if b == 0 {
				return 0, failf(diag.ConstLenInvalid, span, "division by zero in array length")
			}
			if x.Op == ast.OpDiv {
				return a / b, nil
			}
			return a % b, nil
		}
	case *ast.SizeOf, *ast.AlignOf:
		var tt ast.Type
		if s, ok := x.(*ast.SizeOf); ok {
			tt = s.Type
		} else {
			tt = x.(*ast.AlignOf).Type
		}
		lt, err := c.lowerType(tt)
		if err != nil {
			return 0, err
		}
		l, lerr := c.ctx.Layout.LayoutOf(lt)
		if lerr != nil {
			return 0, layoutFailure(lerr, span)
		}
		if _, ok := x.(*ast.SizeOf); ok {
			return l.Size, nil
		}
		return l.Align, nil
	}
	return 0, failf(diag.ConstLenInvalid, span, "array length is not a constant expression")
}

// layoutFailure converts a layout error into a checker failure at span.
func layoutFailure(err error, span source.Span) *failure {
	var le *layout.LayoutError
	if errors.As(err, &le) {
		return failf(le.DiagCode(), span, "%s", le.Error())
	}
	return failf(diag.LayoutUnknown, span, "%v", err)
}
