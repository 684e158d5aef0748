package llvm

import (
	"fmt"
	"math/big"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	cir "cursive0/internal/ir"
	"cursive0/internal/types"
)

func (fe *funcEmitter) binary(x *cir.Binary) value.Value {
	ty := fe.e.llType(x.Type)
	l := fe.coerce(fe.value(x.X), ty)
	r := fe.value(x.Y)
	if x.Op != cir.OpShl && x.Op != cir.OpShr {
		r = fe.coerce(r, ty)
	}
	if types.IsFloat(x.Type) {
		return fe.floatBinary(x.Op, l, r)
	}
	it, ok := ty.(*lltypes.IntType)
	if !ok {
		if x.Op == cir.OpEq || x.Op == cir.OpNe {
			return fe.pointerCompare(x.Op, l, r)
		}
		fe.e.failf(CodegenUnsupported, nil, "%s on %s", x.Op, x.Type)
		return constant.NewUndef(ty)
	}
	signed := types.IsSigned(x.Type)
	switch x.Op {
	case cir.OpAdd, cir.OpSub, cir.OpMul:
		return fe.overflowing(x.Op, it, signed, l, r)
	case cir.OpDiv, cir.OpRem:
		return fe.division(x.Op, it, signed, l, r)
	case cir.OpShl, cir.OpShr:
		return fe.shift(x.Op, it, signed, l, fe.coerce(r, it))
	case cir.OpBitAnd:
		return fe.cur.NewAnd(l, r)
	case cir.OpBitOr:
		return fe.cur.NewOr(l, r)
	case cir.OpBitXor:
		return fe.cur.NewXor(l, r)
	}
	if x.Op.IsComparison() {
		return fe.cur.NewICmp(intPred(x.Op, signed), l, r)
	}
	fe.e.failf(CodegenInvalid, nil, "binary operator %s", x.Op)
	return constant.NewUndef(ty)
}

func intPred(op cir.Op, signed bool) enum.IPred {
	switch op {
	case cir.OpEq:
		return enum.IPredEQ
	case cir.OpNe:
		return enum.IPredNE
	case cir.OpLt:
		if signed {
			return enum.IPredSLT
		}
		return enum.IPredULT
	case cir.OpLe:
		if signed {
			return enum.IPredSLE
		}
		return enum.IPredULE
	case cir.OpGt:
		if signed {
			return enum.IPredSGT
		}
		return enum.IPredUGT
	}
	if signed {
		return enum.IPredSGE
	}
	return enum.IPredUGE
}

func (fe *funcEmitter) pointerCompare(op cir.Op, l, r value.Value) value.Value {
	usize := fe.e.usize()
	li := fe.coerce(l, usize)
	ri := fe.coerce(r, usize)
	if op == cir.OpEq {
		return fe.cur.NewICmp(enum.IPredEQ, li, ri)
	}
	return fe.cur.NewICmp(enum.IPredNE, li, ri)
}

func (fe *funcEmitter) floatBinary(op cir.Op, l, r value.Value) value.Value {
	switch op {
	case cir.OpAdd:
		return fe.cur.NewFAdd(l, r)
	case cir.OpSub:
		return fe.cur.NewFSub(l, r)
	case cir.OpMul:
		return fe.cur.NewFMul(l, r)
	case cir.OpDiv:
		return fe.cur.NewFDiv(l, r)
	case cir.OpRem:
		return fe.cur.NewFRem(l, r)
	case cir.OpEq:
		return fe.cur.NewFCmp(enum.FPredOEQ, l, r)
	case cir.OpNe:
		return fe.cur.NewFCmp(enum.FPredUNE, l, r)
	case cir.OpLt:
		return fe.cur.NewFCmp(enum.FPredOLT, l, r)
	case cir.OpLe:
		return fe.cur.NewFCmp(enum.FPredOLE, l, r)
	case cir.OpGt:
		return fe.cur.NewFCmp(enum.FPredOGT, l, r)
	case cir.OpGe:
		return fe.cur.NewFCmp(enum.FPredOGE, l, r)
	}
	fe.e.failf(CodegenUnsupported, nil, "float operator %s", op)
	return constant.NewUndef(l.Type())
}

// overflowing emits op through the with.overflow intrinsic and panics
// when the overflow bit is set.
func (fe *funcEmitter) overflowing(op cir.Op, it *lltypes.IntType, signed bool, l, r value.Value) value.Value {
	name := map[cir.Op]string{cir.OpAdd: "add", cir.OpSub: "sub", cir.OpMul: "mul"}[op]
	sign := "u"
	if signed {
		sign = "s"
	}
	fn := fe.e.overflowIntrinsic(sign+name, it)
	pair := fe.cur.NewCall(fn, l, r)
	result := fe.cur.NewExtractValue(pair, 0)
	overflow := fe.cur.NewExtractValue(pair, 1)
	fe.guard(fe.cur.NewXor(overflow, constant.True), cir.PanicOverflow)
	return result
}

// division checks the divisor and signed overflow, then freezes the
// result so poison operands cannot leak past the check.
func (fe *funcEmitter) division(op cir.Op, it *lltypes.IntType, signed bool, l, r value.Value) value.Value {
	zero := constant.NewInt(it, 0)
	fe.guard(fe.cur.NewICmp(enum.IPredNE, r, zero), cir.PanicDivZero)
	if signed {
		minusOne := constant.NewInt(it, -1)
		minVal := constant.NewInt(it, 0)
		minVal.X = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(it.BitSize-1)))
		isMin := fe.cur.NewICmp(enum.IPredEQ, l, minVal)
		isNeg := fe.cur.NewICmp(enum.IPredEQ, r, minusOne)
		both := fe.cur.NewAnd(isMin, isNeg)
		fe.guard(fe.cur.NewXor(both, constant.True), cir.PanicOverflow)
	}
	var v value.Value
	switch {
	case op == cir.OpDiv && signed:
		v = fe.cur.NewSDiv(l, r)
	case op == cir.OpDiv:
		v = fe.cur.NewUDiv(l, r)
	case signed:
		v = fe.cur.NewSRem(l, r)
	default:
		v = fe.cur.NewURem(l, r)
	}
	return fe.freeze(v)
}

// shift panics when the amount reaches the operand width.
func (fe *funcEmitter) shift(op cir.Op, it *lltypes.IntType, signed bool, l, r value.Value) value.Value {
	width := intConst(it, it.BitSize)
	fe.guard(fe.cur.NewICmp(enum.IPredULT, r, width), cir.PanicShift)
	var v value.Value
	switch {
	case op == cir.OpShl:
		v = fe.cur.NewShl(l, r)
	case signed:
		v = fe.cur.NewAShr(l, r)
	default:
		v = fe.cur.NewLShr(l, r)
	}
	return fe.freeze(v)
}

func (fe *funcEmitter) unary(x *cir.Unary) value.Value {
	ty := fe.e.llType(x.Type)
	v := fe.coerce(fe.value(x.X), ty)
	switch x.Op {
	case cir.OpNot:
		if it, ok := ty.(*lltypes.IntType); ok {
			if it.BitSize == 1 {
				return fe.cur.NewXor(v, constant.True)
			}
			return fe.cur.NewXor(v, constant.NewInt(it, -1))
		}
	case cir.OpNeg:
		if types.IsFloat(x.Type) {
			return fe.cur.NewFNeg(v)
		}
		if it, ok := ty.(*lltypes.IntType); ok {
			return fe.overflowing(cir.OpSub, it, types.IsSigned(x.Type), constant.NewInt(it, 0), v)
		}
	}
	fe.e.failf(CodegenUnsupported, nil, "%s on %s", x.Op, x.Type)
	return constant.NewUndef(ty)
}

// overflowIntrinsic declares llvm.<op>.with.overflow.iN once.
func (e *Emitter) overflowIntrinsic(op string, it *lltypes.IntType) *llir.Func {
	name := fmt.Sprintf("llvm.%s.with.overflow.i%d", op, it.BitSize)
	if fn, ok := e.intrinsics[name]; ok {
		return fn
	}
	fn := e.mod.NewFunc(name, lltypes.NewStruct(it, lltypes.I1),
		llir.NewParam("a", it), llir.NewParam("b", it))
	e.intrinsics[name] = fn
	return fn
}
