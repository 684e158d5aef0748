package llvm

import (
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"cursive0/internal/abi"
	cir "cursive0/internal/ir"
	"cursive0/internal/types"
)

// argVal is one logical argument. addr, when set, is existing storage
// holding the value, used instead of a spill for by-reference slots.
type argVal struct {
	v    value.Value
	addr value.Value
}

func (fe *funcEmitter) call(x *cir.Call) {
	var (
		info   *funcInfo
		callee value.Value
	)
	if x.Callee.Value != nil {
		info = fe.e.indirectInfo(x.Callee.Value.Type)
		if info != nil {
			fnPtr := lltypes.NewPointer(info.sig)
			callee = fe.coerce(fe.value(*x.Callee.Value), fnPtr)
		}
	} else if fi, ok := fe.e.funcs[x.Callee.Symbol]; ok {
		info, callee = fi, fi.fn
	} else {
		fe.e.failf(CodegenInvalid, nil, "call to unknown procedure %s", x.Callee.Symbol)
	}
	if info == nil {
		if x.Dst != "" {
			fe.temps[x.Dst] = constant.NewUndef(fe.e.llType(x.Ret))
		}
		return
	}
	args := make([]argVal, len(x.Args))
	for i, a := range x.Args {
		args[i] = fe.argOf(a)
	}
	res := fe.callWith(info, callee, args)
	if x.Dst != "" {
		fe.temps[x.Dst] = res
	}
}

// argOf evaluates a and remembers the slot of a local operand.
func (fe *funcEmitter) argOf(a cir.Value) argVal {
	av := argVal{v: fe.value(a)}
	if a.Kind == cir.ValueLocal {
		if s, ok := fe.locals[a.Name]; ok && s.ptr != nil {
			av.addr = s.ptr
		}
	}
	return av
}

// callWith emits a call following info's convention and returns the
// logical result.
func (fe *funcEmitter) callWith(info *funcInfo, callee value.Value, args []argVal) value.Value {
	ci := info.abi
	var phys []value.Value
	var retSlot value.Value
	if ci.HasSRet() {
		rt := fe.e.llType(ci.Ret.Type)
		retSlot = fe.alloca(rt)
		phys = append(phys, retSlot)
	}
	for i, a := range ci.Params {
		if i >= len(args) {
			fe.e.failf(CodegenInvalid, nil, "call passes %d arguments, callee takes %d", len(args), len(ci.Params))
			break
		}
		ty := fe.e.llType(a.Type)
		switch a.Kind {
		case abi.PassByValue:
			phys = append(phys, fe.coerce(args[i].v, ty))
		case abi.PassByRef:
			addr := args[i].addr
			if addr == nil {
				spill := fe.alloca(ty)
				fe.cur.NewStore(fe.coerce(args[i].v, ty), spill)
				addr = spill
			}
			phys = append(phys, fe.ptrTo(addr, ty))
		}
	}
	if ci.Panics {
		if fe.panicOut == nil {
			fe.e.failf(CodegenInvalid, nil, "call needs a panic record")
			phys = append(phys, constant.NewNull(lltypes.NewPointer(panicType)))
		} else {
			phys = append(phys, fe.panicOut)
		}
	}
	call := fe.cur.NewCall(callee, phys...)
	if info.noReturn {
		fe.cur.NewUnreachable()
		fe.afterTerm()
		return constant.NewUndef(fe.e.llType(ci.Ret.Type))
	}
	switch ci.Ret.Kind {
	case abi.PassSRet:
		return fe.cur.NewLoad(fe.e.llType(ci.Ret.Type), retSlot)
	case abi.PassByValue:
		return call
	}
	return constant.NewZeroInitializer(fe.e.llType(ci.Ret.Type))
}

// indirectInfo classifies a function type for calls through a value.
func (e *Emitter) indirectInfo(t types.Type) *funcInfo {
	ft, ok := types.StripRefine(t).(*types.Func)
	if !ok {
		e.failf(CodegenInvalid, nil, "call through non-function %s", t)
		return nil
	}
	key := types.Key(ft)
	if info, ok := e.indirect[key]; ok {
		return info
	}
	params := make([]abi.Param, len(ft.Params))
	for i, p := range ft.Params {
		params[i] = abi.Param{Mode: p.Mode, Type: p.Type}
	}
	ci, err := abi.ComputeCallABI(e.le, e.cl, params, ft.Ret, true)
	if err != nil {
		e.abiFailure(ft.String(), params, ft.Ret, err)
		return nil
	}
	var sig []lltypes.Type
	if ci.HasSRet() {
		sig = append(sig, lltypes.NewPointer(e.llType(ci.Ret.Type)))
	}
	for _, a := range ci.Params {
		if ty, ok := e.physType(a); ok {
			sig = append(sig, ty)
		}
	}
	sig = append(sig, lltypes.NewPointer(panicType))
	info := &funcInfo{sig: lltypes.NewFunc(e.retType(ci), sig...), abi: ci, params: params}
	e.indirect[key] = info
	return info
}
