package layout

import (
	"math"
	"math/bits"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/symbols"
)

// Discriminants are the values assigned to enum variants in order.
type Discriminants struct {
	Values []uint64
	Max    uint64
}

// DiscError is a discriminant assignment failure at a variant.
type DiscError struct {
	Code diag.Code
	Span source.Span
	// Variant is the index of the offending variant.
	Variant int
}

func (e *DiscError) Error() string { return e.Code.ID() }

// EnumDiscriminants assigns discriminants: explicit non-negative integer
// literals are taken as is, omitted ones continue from the previous value
// (0 for the first). Values must fit in 64 bits and be pairwise distinct.
func EnumDiscriminants(variants []symbols.VariantInfo) (Discriminants, *DiscError) {
	out := Discriminants{Values: make([]uint64, 0, len(variants))}
	seen := make(map[uint64]int, len(variants))
	var prev uint64
	for i, v := range variants {
		var value uint64
		if v.Disc == nil {
			if i > 0 {
				if prev == math.MaxUint64 {
					return Discriminants{}, &DiscError{Code: diag.EnumDiscInvalid, Span: v.Span, Variant: i}
				}
				value = prev + 1
			}
		} else {
			val, code, ok := discLiteral(v.Disc)
			if !ok {
				return Discriminants{}, &DiscError{Code: code, Span: ast.SpanOf(v.Disc), Variant: i}
			}
			value = val
		}
		if _, dup := seen[value]; dup {
			sp := v.Span
			if v.Disc != nil {
				sp = ast.SpanOf(v.Disc)
			}
			return Discriminants{}, &DiscError{Code: diag.EnumDiscDup, Span: sp, Variant: i}
		}
		seen[value] = i
		out.Values = append(out.Values, value)
		out.Max = max(out.Max, value)
		prev = value
	}
	return out, nil
}

func discLiteral(e ast.Expr) (uint64, diag.Code, bool) {
	switch x := e.(type) {
	case *ast.Literal:
		if x.Kind != ast.LitInt {
			return 0, diag.EnumDiscNotInt, false
		}
		v, ok := ParseIntLiteral(x.Text)
		if !ok {
			return 0, diag.EnumDiscInvalid, false
		}
		return v, diag.UnknownCode, true
	case *ast.Unary:
		if x.Op == ast.OpNeg {
			if lit, ok := x.X.(*ast.Literal); ok && (lit.Kind == ast.LitInt || lit.Kind == ast.LitFloat) {
				if lit.Kind == ast.LitFloat {
					return 0, diag.EnumDiscNotInt, false
				}
				if v, ok := ParseIntLiteral(lit.Text); ok && v == 0 {
					return 0, diag.UnknownCode, true
				}
				return 0, diag.EnumDiscNegative, false
			}
		}
	}
	return 0, diag.EnumDiscNotInt, false
}

// ParseIntLiteral parses decimal, 0x, 0o and 0b literals with `_`
// separators. Values above math.MaxUint64 are rejected.
func ParseIntLiteral(text string) (uint64, bool) {
	hi, lo, ok := ParseIntLiteral128(text)
	if !ok || hi != 0 {
		return 0, false
	}
	return lo, true
}

// ParseIntLiteral128 accumulates digits into 128 bits so that range checks
// against 64-bit and 128-bit types are exact.
func ParseIntLiteral128(text string) (hi, lo uint64, ok bool) {
	base := uint64(10)
	digits := text
	if len(text) > 2 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			base, digits = 16, text[2:]
		case 'o', 'O':
			base, digits = 8, text[2:]
		case 'b', 'B':
			base, digits = 2, text[2:]
		}
	}
	seenDigit := false
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c == '_' {
			continue
		}
		d, isDigit := digitValue(c)
		if !isDigit || d >= base {
			return 0, 0, false
		}
		seenDigit = true
		// (hi, lo) = (hi, lo) * base + d
		h1, l1 := bits.Mul64(lo, base)
		h2, h2lo := bits.Mul64(hi, base)
		if h2 != 0 {
			return 0, 0, false
		}
		var carry uint64
		hi, carry = bits.Add64(h2lo, h1, 0)
		if carry != 0 {
			return 0, 0, false
		}
		lo, carry = bits.Add64(l1, d, 0)
		hi, carry = bits.Add64(hi, 0, carry)
		if carry != 0 {
			return 0, 0, false
		}
	}
	if !seenDigit {
		return 0, 0, false
	}
	return hi, lo, true
}

func digitValue(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}
