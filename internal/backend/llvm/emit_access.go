package llvm

import (
	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"cursive0/internal/abi"
	cir "cursive0/internal/ir"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

var regionAlloc = abi.SymbolFor(&symbols.ProcInfo{
	Path:    types.Path{symbols.RegionName, "@Active", "alloc"},
	Builtin: true,
})

func (fe *funcEmitter) emitAlloc(x *cir.Alloc) {
	ty := fe.e.llType(x.Type)
	if x.Region == nil {
		fe.temps[x.Dst] = fe.alloca(ty)
		return
	}
	info, ok := fe.e.funcs[regionAlloc]
	if !ok {
		fe.e.failf(CodegenInvalid, nil, "region allocation without runtime support")
		fe.temps[x.Dst] = constant.NewNull(lltypes.NewPointer(ty))
		return
	}
	size, err := fe.e.le.SizeOf(x.Type)
	if err != nil {
		fe.e.failf(CodegenLayout, err, "region allocation of %s", x.Type)
	}
	args := []argVal{fe.argOf(*x.Region), {v: intConst(fe.e.usize(), size)}}
	raw := fe.callWith(info, info.fn, args)
	fe.temps[x.Dst] = fe.ptrTo(raw, ty)
}

func (fe *funcEmitter) fieldAddr(x *cir.FieldAddr) value.Value {
	agg, ok := fe.e.aggregateOf(x.Agg)
	if !ok {
		return constant.NewNull(i8Ptr)
	}
	if x.Index < 0 || x.Index >= len(agg.fields) {
		fe.e.failf(CodegenInvalid, nil, "field %d of %s", x.Index, x.Agg)
		return constant.NewNull(i8Ptr)
	}
	base := fe.ptrTo(fe.value(x.Base), agg.ty)
	zero := constant.NewInt(lltypes.I32, 0)
	idx := constant.NewInt(lltypes.I32, int64(agg.fields[x.Index]))
	return fe.cur.NewGetElementPtr(agg.ty, base, zero, idx)
}

// indexAddr checks Index < Len before computing the element address.
func (fe *funcEmitter) indexAddr(x *cir.IndexAddr) value.Value {
	usize := fe.e.usize()
	idx := fe.coerce(fe.value(x.Index), usize)
	n := fe.coerce(fe.value(x.Len), usize)
	fe.guard(fe.cur.NewICmp(enum.IPredULT, idx, n), cir.PanicBounds)
	elem := fe.e.llType(x.Elem)
	base := fe.ptrTo(fe.value(x.Base), elem)
	return fe.cur.NewGetElementPtr(elem, base, idx)
}

// memCopy always goes through an intrinsic; possibly overlapping ranges
// use memmove.
func (fe *funcEmitter) memCopy(x *cir.MemCopy) {
	name := "llvm.memcpy.p0i8.p0i8.i64"
	if x.MayOverlap {
		name = "llvm.memmove.p0i8.p0i8.i64"
	}
	fn := fe.e.memIntrinsic(name, i8Ptr)
	dst := llir.NewArg(fe.bytePtr(fe.value(x.Dst)), alignAttr(x.Align)...)
	src := llir.NewArg(fe.bytePtr(fe.value(x.Src)), alignAttr(x.Align)...)
	fe.cur.NewCall(fn, dst, src, intConst(lltypes.I64, x.Size), constant.False)
}

func (fe *funcEmitter) memSet(x *cir.MemSet) {
	fn := fe.e.memIntrinsic("llvm.memset.p0i8.i64", lltypes.I8)
	dst := llir.NewArg(fe.bytePtr(fe.value(x.Dst)), alignAttr(x.Align)...)
	fe.cur.NewCall(fn, dst, intConst(lltypes.I8, uint64(x.Byte)), intConst(lltypes.I64, x.Size), constant.False)
}

func alignAttr(n uint64) []llir.ParamAttribute {
	if n <= 1 {
		return nil
	}
	return []llir.ParamAttribute{llir.Align(n)}
}

// memIntrinsic declares void name(i8*, second, i64, i1).
func (e *Emitter) memIntrinsic(name string, second lltypes.Type) *llir.Func {
	if fn, ok := e.intrinsics[name]; ok {
		return fn
	}
	fn := e.mod.NewFunc(name, lltypes.Void,
		llir.NewParam("dst", i8Ptr),
		llir.NewParam("src", second),
		llir.NewParam("len", lltypes.I64),
		llir.NewParam("volatile", lltypes.I1))
	e.intrinsics[name] = fn
	return fn
}
