package llvm

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"cursive0/internal/types"
)

// cast converts v from one scalar type to another. Float to integer
// conversions are frozen: out-of-range inputs give poison otherwise.
func (fe *funcEmitter) cast(v value.Value, from, to types.Type) value.Value {
	src := fe.e.llType(from)
	dst := fe.e.llType(to)
	v = fe.coerce(v, src)
	if src.Equal(dst) {
		return v
	}
	switch d := dst.(type) {
	case *lltypes.IntType:
		switch s := src.(type) {
		case *lltypes.IntType:
			switch {
			case d.BitSize == 1:
				return fe.cur.NewICmp(enum.IPredNE, v, constant.NewInt(s, 0))
			case s.BitSize > d.BitSize:
				return fe.cur.NewTrunc(v, d)
			case types.IsSigned(from) && s.BitSize > 1:
				return fe.cur.NewSExt(v, d)
			}
			return fe.cur.NewZExt(v, d)
		case *lltypes.FloatType:
			if types.IsSigned(to) {
				return fe.freeze(fe.cur.NewFPToSI(v, d))
			}
			return fe.freeze(fe.cur.NewFPToUI(v, d))
		case *lltypes.PointerType:
			return fe.cur.NewPtrToInt(v, d)
		}
	case *lltypes.FloatType:
		switch src.(type) {
		case *lltypes.IntType:
			if types.IsSigned(from) {
				return fe.cur.NewSIToFP(v, d)
			}
			return fe.cur.NewUIToFP(v, d)
		case *lltypes.FloatType:
			if types.FloatBits(from) > types.FloatBits(to) {
				return fe.cur.NewFPTrunc(v, d)
			}
			return fe.cur.NewFPExt(v, d)
		}
	case *lltypes.PointerType:
		switch src.(type) {
		case *lltypes.PointerType:
			return fe.cur.NewBitCast(v, d)
		case *lltypes.IntType:
			return fe.cur.NewIntToPtr(v, d)
		}
	}
	fe.e.failf(CodegenUnsupported, nil, "cast from %s to %s", from, to)
	return constant.NewUndef(dst)
}
