package lower

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/ir"
	"cursive0/internal/layout"
	"cursive0/internal/types"
)

// literal encodes lit as an immediate of type t. negated folds a leading
// minus into the value so that the minimum of a signed type is
// representable.
func (l *procLowerer) literal(lit *ast.Literal, t types.Type, negated bool) (ir.Value, error) {
	switch lit.Kind {
	case ast.LitBool:
		return ir.ImmBool(lit.Text == "true"), nil
	case ast.LitChar:
		r, _, _, err := strconv.UnquoteChar(lit.Text, '\'')
		if err != nil {
			return ir.Value{}, unsupportedf(lit.Span, "character literal %q", lit.Text)
		}
		return ir.ImmInt(types.Char, uint64(r), 4), nil
	case ast.LitInt:
		hi, lo, ok := layout.ParseIntLiteral128(lit.Text)
		if !ok {
			return ir.Value{}, unsupportedf(lit.Span, "integer literal %s", lit.Text)
		}
		if types.IsFloat(t) {
			f, err := strconv.ParseFloat(strings.ReplaceAll(lit.Text, "_", ""), 64)
			if err != nil {
				return ir.Value{}, unsupportedf(lit.Span, "integer literal %s as %s", lit.Text, t)
			}
			return l.floatImm(lit, t, f, negated)
		}
		if negated {
			hi, lo = ^hi, ^lo
			lo++
			if lo == 0 {
				hi++
			}
		}
		return l.intImm(t, hi, lo)
	case ast.LitFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(lit.Text, "_", ""), 64)
		if err != nil {
			return ir.Value{}, unsupportedf(lit.Span, "float literal %s", lit.Text)
		}
		return l.floatImm(lit, t, f, negated)
	}
	return ir.Value{}, unsupportedf(lit.Span, "%s literals", lit.Kind)
}

// intImm truncates the 128-bit value (hi, lo) to the size of t.
func (l *procLowerer) intImm(t types.Type, hi, lo uint64) (ir.Value, error) {
	size, err := l.m.ctx.Layout.SizeOf(t)
	if err != nil {
		return ir.Value{}, unsupportedf(l.info.Decl.Span, "%v", err)
	}
	if size > 8 {
		return ir.ImmInt128(t, hi, lo), nil
	}
	return ir.ImmInt(t, lo, size), nil
}

func (l *procLowerer) floatImm(lit *ast.Literal, t types.Type, f float64, negated bool) (ir.Value, error) {
	if negated {
		f = -f
	}
	switch types.FloatBits(t) {
	case 32:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(f)))
		return ir.Imm(t, buf[:]), nil
	case 64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		return ir.Imm(t, buf[:]), nil
	}
	return ir.Value{}, unsupportedf(lit.Span, "%s literals", t)
}
