package llvm

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	cir "cursive0/internal/ir"
)

// concurrency emits structured-concurrency nodes on the calling thread:
// a parallel block runs its body in order, spawn is a direct call and a
// dispatch is a counted loop. Races have no sequential meaning.
func (fe *funcEmitter) concurrency(n cir.Node) {
	switch x := n.(type) {
	case *cir.Parallel:
		if x.Cancel != nil {
			fe.value(*x.Cancel)
		}
		fe.node(x.Body)
		if x.Result != "" {
			fe.temps[x.Result] = constant.NewZeroInitializer(unitType)
		}
	case *cir.Spawn:
		info, ok := fe.e.funcs[x.Callee]
		if !ok {
			fe.e.failf(CodegenInvalid, nil, "spawn of unknown procedure %s", x.Callee)
			fe.temps[x.Dst] = constant.NewZeroInitializer(unitType)
			return
		}
		args := make([]argVal, len(x.Args))
		for i, a := range x.Args {
			args[i] = fe.argOf(a)
		}
		fe.temps[x.Dst] = fe.callWith(info, info.fn, args)
	case *cir.Wait:
		fe.temps[x.Dst] = fe.coerce(fe.value(x.Handle), fe.e.llType(x.Type))
	case *cir.Dispatch:
		fe.dispatch(x)
	case *cir.Yield:
		if x.Value != nil {
			fe.value(*x.Value)
		}
	case *cir.All:
		fe.temps[x.Dst] = fe.collect(x.Handles)
	case *cir.Race:
		fe.e.failf(CodegenUnsupported, nil, "race")
		fe.temps[x.Dst] = constant.NewZeroInitializer(unitType)
	case *cir.RaceReturn:
		fe.e.failf(CodegenUnsupported, nil, "race return")
	default:
		fe.e.failf(CodegenInvalid, nil, "unknown node %T", n)
	}
}

// dispatch runs Body for Index in [Lo, Hi).
func (fe *funcEmitter) dispatch(x *cir.Dispatch) {
	lo := fe.value(x.Lo)
	it, ok := lo.Type().(*lltypes.IntType)
	if !ok {
		fe.e.failf(CodegenInvalid, nil, "dispatch over non-integer range")
		return
	}
	hi := fe.coerce(fe.value(x.Hi), it)
	idx := fe.alloca(it)
	fe.cur.NewStore(lo, idx)
	fe.locals[x.Index] = slot{ptr: idx, ty: x.Lo.Type}

	head := fe.newBlock("dispatch")
	body := fe.newBlock("dispatch.body")
	step := fe.newBlock("dispatch.next")
	exit := fe.newBlock("dispatch.end")
	fe.cur.NewBr(head)

	fe.cur = head
	i := fe.cur.NewLoad(it, idx)
	fe.cur.NewCondBr(fe.cur.NewICmp(enum.IPredULT, i, hi), body, exit)

	fe.cur = body
	fe.loops = append(fe.loops, loopTargets{brk: exit, cont: step})
	fe.node(x.Body)
	fe.loops = fe.loops[:len(fe.loops)-1]
	if !fe.terminated() {
		fe.cur.NewBr(step)
	}

	fe.cur = step
	next := fe.cur.NewAdd(fe.cur.NewLoad(it, idx), constant.NewInt(it, 1))
	fe.cur.NewStore(next, idx)
	fe.cur.NewBr(head)
	fe.cur = exit
}

// collect packs handle results into a literal struct.
func (fe *funcEmitter) collect(handles []cir.Value) value.Value {
	vals := make([]value.Value, len(handles))
	fields := make([]lltypes.Type, len(handles))
	for i, h := range handles {
		vals[i] = fe.value(h)
		fields[i] = vals[i].Type()
	}
	st := lltypes.NewStruct(fields...)
	var agg value.Value = constant.NewUndef(st)
	for i, v := range vals {
		agg = fe.cur.NewInsertValue(agg, v, uint64(i))
	}
	return agg
}
