package verify

import (
	"math"
	"strconv"
	"strings"

	"cursive0/internal/ast"
)

type constVal struct {
	isBool bool
	b      bool
	i      int64
}

// parseInt64 accepts the literal syntax of the language: optional
// 0x/0o/0b prefix and `_` separators. A leading zero is decimal.
func parseInt64(text string) (int64, bool) {
	text = strings.ReplaceAll(text, "_", "")
	base := 10
	if len(text) > 2 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			base, text = 16, text[2:]
		case 'o', 'O':
			base, text = 8, text[2:]
		case 'b', 'B':
			base, text = 2, text[2:]
		}
	}
	v, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// foldConst evaluates a closed literal expression with signed 64-bit
// arithmetic. Overflow and division by zero fail evaluation.
func foldConst(e ast.Expr) (constVal, bool) {
	switch x := e.(type) {
	case *ast.Literal:
		switch x.Kind {
		case ast.LitBool:
			return constVal{isBool: true, b: x.Text == "true"}, true
		case ast.LitInt:
			v, ok := parseInt64(x.Text)
			return constVal{i: v}, ok
		}
		return constVal{}, false
	case *ast.Unary:
		v, ok := foldConst(x.X)
		if !ok {
			return constVal{}, false
		}
		switch x.Op {
		case ast.OpNot:
			if v.isBool {
				return constVal{isBool: true, b: !v.b}, true
			}
		case ast.OpNeg:
			if !v.isBool && v.i != math.MinInt64 {
				return constVal{i: -v.i}, true
			}
		case ast.OpPos:
			if !v.isBool {
				return v, true
			}
		}
		return constVal{}, false
	case *ast.Binary:
		l, ok := foldConst(x.X)
		if !ok {
			return constVal{}, false
		}
		// short-circuit keeps `false && (1/0 == 0)` foldable
		if l.isBool && x.Op == ast.OpAnd && !l.b {
			return l, true
		}
		if l.isBool && x.Op == ast.OpOr && l.b {
			return l, true
		}
		r, ok := foldConst(x.Y)
		if !ok || l.isBool != r.isBool {
			return constVal{}, false
		}
		if l.isBool {
			return foldBool(x.Op, l.b, r.b)
		}
		return foldInt(x.Op, l.i, r.i)
	}
	return constVal{}, false
}

func foldBool(op ast.BinOp, a, b bool) (constVal, bool) {
	switch op {
	case ast.OpAnd:
		return constVal{isBool: true, b: a && b}, true
	case ast.OpOr:
		return constVal{isBool: true, b: a || b}, true
	case ast.OpEq:
		return constVal{isBool: true, b: a == b}, true
	case ast.OpNe:
		return constVal{isBool: true, b: a != b}, true
	}
	return constVal{}, false
}

func foldInt(op ast.BinOp, a, b int64) (constVal, bool) {
	switch op {
	case ast.OpAdd:
		v, ok := addInt64(a, b)
		return constVal{i: v}, ok
	case ast.OpSub:
		v, ok := subInt64(a, b)
		return constVal{i: v}, ok
	case ast.OpMul:
		v, ok := mulInt64(a, b)
		return constVal{i: v}, ok
	case ast.OpDiv:
		if b == 0 || (a == math.MinInt64 && b == -1) {
			return constVal{}, false
		}
		return constVal{i: a / b}, true
	case ast.OpRem:
		if b == 0 || (a == math.MinInt64 && b == -1) {
			return constVal{}, false
		}
		return constVal{i: a % b}, true
	case ast.OpEq:
		return constVal{isBool: true, b: a == b}, true
	case ast.OpNe:
		return constVal{isBool: true, b: a != b}, true
	case ast.OpLt:
		return constVal{isBool: true, b: a < b}, true
	case ast.OpLe:
		return constVal{isBool: true, b: a <= b}, true
	case ast.OpGt:
		return constVal{isBool: true, b: a > b}, true
	case ast.OpGe:
		return constVal{isBool: true, b: a >= b}, true
	}
	return constVal{}, false
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

func subInt64(a, b int64) (int64, bool) {
	if b == math.MinInt64 {
		if a >= 0 {
			return 0, false
		}
		return a - b, true
	}
	return addInt64(a, -b)
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, true
}
