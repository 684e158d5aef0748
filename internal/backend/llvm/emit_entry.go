package llvm

import (
	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"cursive0/internal/abi"
	cir "cursive0/internal/ir"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// emitMainWrapper defines the native i32 main: it builds the root
// Context, runs the entry procedure, hands an escaped panic to the
// runtime and otherwise runs the deinitialisers before returning.
func (e *Emitter) emitMainWrapper(entry *cir.Proc, deinit []string) {
	e.curProc = "main"
	defer func() { e.curProc = "" }()
	user, ok := e.funcs[entry.Symbol]
	if !ok {
		e.failf(CodegenInvalid, nil, "entry procedure %s is not declared", entry.Symbol)
		return
	}
	fn := e.mod.NewFunc("main", lltypes.I32)
	info := &funcInfo{fn: fn, sig: fn.Sig}
	fe := e.newFuncEmitter(fn, entry, info)
	first := fe.cur

	rec := fe.alloca(panicType)
	fe.cur.NewStore(constant.NewZeroInitializer(panicType), rec)
	fe.panicOut = rec

	var ctx value.Value
	if ci, ok := e.funcs[abi.RuntimeContextInit]; ok {
		ctx = fe.callWith(ci, ci.fn, nil)
	}
	args := make([]argVal, len(user.params))
	for i, p := range user.params {
		if isContext(p.Type) && ctx != nil {
			args[i] = argVal{v: ctx}
			continue
		}
		args[i] = argVal{v: constant.NewZeroInitializer(e.llType(p.Type))}
	}
	res := fe.callWith(user, user.fn, args)

	pass := fe.newBlock("ok")
	fail := fe.newBlock("panic")
	fe.cur.NewCondBr(fe.panicFlag(), fail, pass)

	fe.cur = fail
	code := fe.panicCode()
	if rt, ok := e.funcs[abi.RuntimePanic]; ok {
		fe.cur.NewCall(rt.fn, code)
	}
	fe.cur.NewUnreachable()

	fe.cur = pass
	for _, sym := range deinit {
		d, ok := e.funcs[sym]
		if !ok {
			e.failf(CodegenInvalid, nil, "unknown deinitialiser %s", sym)
			continue
		}
		fe.callWith(d, d.fn, nil)
	}
	fe.cur.NewRet(exitCode(fe, res, user.abi))
	fe.entry.NewBr(first)
	closeBlocks(fn)
}

// exitCode is the entry result as an i32; unit results exit with 0.
func exitCode(fe *funcEmitter, res value.Value, ci abi.CallABI) value.Value {
	if ci.Ret.Kind == abi.PassIgnore || res == nil {
		return constant.NewInt(lltypes.I32, 0)
	}
	if _, ok := res.Type().(*lltypes.IntType); !ok {
		return constant.NewInt(lltypes.I32, 0)
	}
	return fe.coerce(res, lltypes.I32)
}

func isContext(t types.Type) bool {
	n, ok := types.StripRefine(types.StripPerm(t)).(*types.Named)
	return ok && len(n.Path) == 1 && n.Path[0] == symbols.ContextName
}

func closeBlocks(fn *llir.Func) {
	for _, b := range fn.Blocks {
		if b.Term == nil {
			b.NewUnreachable()
		}
	}
}
