package llvm

import (
	"math"
	"math/big"
	"slices"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	cir "cursive0/internal/ir"
	"cursive0/internal/types"
)

// freeze pins a possibly poisoned result; Block has no builder for it.
func (fe *funcEmitter) freeze(v value.Value) value.Value {
	inst := llir.NewInstFreeze(v)
	fe.cur.Insts = append(fe.cur.Insts, inst)
	return inst
}

func intConst(t *lltypes.IntType, v uint64) *constant.Int {
	return uintConst(t, v)
}

// value materialises an IR operand in the current block.
func (fe *funcEmitter) value(v cir.Value) value.Value {
	switch v.Kind {
	case cir.ValueTemp:
		if t, ok := fe.temps[v.Name]; ok {
			return t
		}
		fe.e.failf(CodegenInvalid, nil, "undefined temporary %%%s", v.Name)
		return constant.NewUndef(fe.e.llType(v.Type))
	case cir.ValueLocal:
		s, ok := fe.locals[v.Name]
		if !ok {
			fe.e.failf(CodegenInvalid, nil, "unbound local $%s", v.Name)
			return constant.NewUndef(fe.e.llType(v.Type))
		}
		ty := fe.e.llType(s.ty)
		if s.ptr == nil {
			return constant.NewZeroInitializer(ty)
		}
		return fe.cur.NewLoad(ty, fe.ptrTo(s.ptr, ty))
	case cir.ValueSymbol:
		return fe.symbolValue(v)
	}
	ty := fe.e.llType(v.Type)
	if c, ok := fe.e.constant(v, ty); ok {
		return c
	}
	fe.e.failf(CodegenUnsupported, nil, "immediate %s of type %s", v, v.Type)
	return constant.NewUndef(ty)
}

// symbolValue: procedures and pointer-typed globals yield an i8*
// address, other globals their contents.
func (fe *funcEmitter) symbolValue(v cir.Value) value.Value {
	if info, ok := fe.e.funcs[v.Name]; ok {
		return constant.NewBitCast(info.fn, i8Ptr)
	}
	g, ok := fe.e.globals[v.Name]
	if !ok {
		fe.e.failf(CodegenInvalid, nil, "unknown symbol @%s", v.Name)
		return constant.NewNull(i8Ptr)
	}
	switch types.StripRefine(v.Type).(type) {
	case nil, *types.Ptr, *types.RawPtr:
		return constant.NewBitCast(g, i8Ptr)
	}
	return fe.cur.NewLoad(g.ContentType, g)
}

// constant decodes an immediate's little-endian bytes as ty.
func (e *Emitter) constant(v cir.Value, ty lltypes.Type) (constant.Constant, bool) {
	switch t := ty.(type) {
	case *lltypes.IntType:
		return intFromBytes(t, v.Bytes), true
	case *lltypes.FloatType:
		bits := new(big.Int).SetBytes(littleToBig(v.Bytes)).Uint64()
		switch t.Kind {
		case lltypes.FloatKindHalf:
			return constant.NewFloat(t, halfToFloat(uint16(bits))), true
		case lltypes.FloatKindFloat:
			return constant.NewFloat(t, float64(math.Float32frombits(uint32(bits)))), true
		case lltypes.FloatKindDouble:
			return constant.NewFloat(t, math.Float64frombits(bits)), true
		}
		return nil, false
	case *lltypes.PointerType:
		if allZero(v.Bytes) {
			return constant.NewNull(t), true
		}
		return constant.NewIntToPtr(intFromBytes(e.usize(), v.Bytes), t), true
	}
	if allZero(v.Bytes) {
		return constant.NewZeroInitializer(ty), true
	}
	return nil, false
}

func littleToBig(b []byte) []byte {
	out := slices.Clone(b)
	slices.Reverse(out)
	return out
}

// intFromBytes reads a two's complement value of t's width.
func intFromBytes(t *lltypes.IntType, b []byte) *constant.Int {
	x := new(big.Int).SetBytes(littleToBig(b))
	width := uint(t.BitSize)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), width), big.NewInt(1))
	x.And(x, mask)
	if width > 1 && x.Bit(int(width-1)) == 1 {
		x.Sub(x, new(big.Int).Lsh(big.NewInt(1), width))
	}
	c := constant.NewInt(t, 0)
	c.X = x
	return c
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// halfToFloat decodes an IEEE binary16 bit pattern.
func halfToFloat(h uint16) float64 {
	sign := 1.0
	if h&0x8000 != 0 {
		sign = -1
	}
	exp := int(h>>10) & 0x1f
	frac := float64(h & 0x3ff)
	switch exp {
	case 0:
		return sign * math.Ldexp(frac, -24)
	case 0x1f:
		if frac == 0 {
			return math.Inf(int(sign))
		}
		return math.NaN()
	}
	return sign * math.Ldexp(1+frac/1024, exp-15)
}

// coerce adjusts the representation of v to want. Semantic conversions
// are explicit Cast nodes; this only bridges pointer and width mismatches.
func (fe *funcEmitter) coerce(v value.Value, want lltypes.Type) value.Value {
	have := v.Type()
	if have.Equal(want) {
		return v
	}
	switch w := want.(type) {
	case *lltypes.PointerType:
		switch have.(type) {
		case *lltypes.PointerType:
			return fe.cur.NewBitCast(v, w)
		case *lltypes.IntType:
			return fe.cur.NewIntToPtr(v, w)
		}
	case *lltypes.IntType:
		switch h := have.(type) {
		case *lltypes.IntType:
			if h.BitSize > w.BitSize {
				return fe.cur.NewTrunc(v, w)
			}
			return fe.cur.NewZExt(v, w)
		case *lltypes.PointerType:
			return fe.cur.NewPtrToInt(v, w)
		}
	}
	fe.e.failf(CodegenInvalid, nil, "cannot use %s as %s", have, want)
	return constant.NewUndef(want)
}

// ptrTo views v as a pointer to elem.
func (fe *funcEmitter) ptrTo(v value.Value, elem lltypes.Type) value.Value {
	return fe.coerce(v, lltypes.NewPointer(elem))
}

func (fe *funcEmitter) bytePtr(v value.Value) value.Value {
	return fe.coerce(v, i8Ptr)
}
