package llvm

import (
	"fmt"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"cursive0/internal/abi"
	cir "cursive0/internal/ir"
	"cursive0/internal/types"
)

// slot is the storage of a local. A nil ptr means a zero-sized local.
type slot struct {
	ptr value.Value
	ty  types.Type
}

type loopTargets struct {
	brk, cont *llir.Block
}

type funcEmitter struct {
	e    *Emitter
	proc *cir.Proc
	info *funcInfo
	fn   *llir.Func

	// entry holds the allocas and falls through to the first body block.
	entry *llir.Block
	cur   *llir.Block

	locals   map[string]slot
	temps    map[string]value.Value
	loops    []loopTargets
	sret     value.Value
	panicOut value.Value
	nblocks  int
}

func (e *Emitter) newFuncEmitter(fn *llir.Func, proc *cir.Proc, info *funcInfo) *funcEmitter {
	fe := &funcEmitter{
		e:      e,
		proc:   proc,
		info:   info,
		fn:     fn,
		locals: make(map[string]slot),
		temps:  make(map[string]value.Value),
	}
	fe.entry = fn.NewBlock("entry")
	fe.cur = fe.newBlock("body")
	return fe
}

func (e *Emitter) emitProc(p *cir.Proc) {
	info, ok := e.funcs[p.Symbol]
	if !ok {
		return
	}
	e.curProc = p.Symbol
	defer func() { e.curProc = "" }()
	fe := e.newFuncEmitter(info.fn, p, info)
	first := fe.cur
	fe.bindParams()
	fe.node(p.Body)
	fe.finish(first)
}

func (fe *funcEmitter) newBlock(name string) *llir.Block {
	fe.nblocks++
	return fe.fn.NewBlock(fmt.Sprintf("%s.%d", name, fe.nblocks))
}

func (fe *funcEmitter) terminated() bool { return fe.cur.Term != nil }

// afterTerm moves emission to a fresh unreachable block.
func (fe *funcEmitter) afterTerm() {
	fe.cur = fe.newBlock("dead")
}

func (fe *funcEmitter) bindParams() {
	params := fe.fn.Params
	idx := 0
	if fe.info.abi.HasSRet() {
		fe.sret = params[0]
		idx++
	}
	for i, a := range fe.info.abi.Params {
		name := fe.info.params[i].Name
		switch a.Kind {
		case abi.PassIgnore:
			fe.locals[name] = slot{ty: a.Type}
		case abi.PassByValue:
			ptr := fe.alloca(fe.e.llType(a.Type))
			fe.cur.NewStore(params[idx], ptr)
			fe.locals[name] = slot{ptr: ptr, ty: a.Type}
			idx++
		case abi.PassByRef:
			fe.locals[name] = slot{ptr: params[idx], ty: a.Type}
			idx++
		}
	}
	if fe.info.abi.Panics && idx < len(params) {
		fe.panicOut = params[len(params)-1]
	}
}

// alloca reserves stack storage in the entry block.
func (fe *funcEmitter) alloca(ty lltypes.Type) *llir.InstAlloca {
	return fe.entry.NewAlloca(ty)
}

// finish closes the entry block and terminates every open block.
func (fe *funcEmitter) finish(first *llir.Block) {
	fe.entry.NewBr(first)
	for _, b := range fe.fn.Blocks {
		if b.Term != nil {
			continue
		}
		if b == fe.cur && fe.retVoid() {
			b.NewRet(nil)
			continue
		}
		b.NewUnreachable()
	}
}

func (fe *funcEmitter) retVoid() bool {
	return fe.fn.Sig.RetType.Equal(lltypes.Void)
}

// node emits n into the current block.
func (fe *funcEmitter) node(n cir.Node) {
	switch x := n.(type) {
	case nil:
	case *cir.Seq:
		for _, c := range x.Nodes {
			fe.node(c)
		}
	case *cir.BindVar:
		fe.bindVar(x)
	case *cir.StoreVar:
		fe.storeVar(x)
	case *cir.Call:
		fe.call(x)
	case *cir.If:
		fe.emitIf(x)
	case *cir.Loop:
		fe.emitLoop(x)
	case *cir.Break:
		if len(fe.loops) == 0 {
			fe.e.failf(CodegenInvalid, nil, "break outside of a loop")
			return
		}
		fe.cur.NewBr(fe.loops[len(fe.loops)-1].brk)
		fe.afterTerm()
	case *cir.Continue:
		if len(fe.loops) == 0 {
			fe.e.failf(CodegenInvalid, nil, "continue outside of a loop")
			return
		}
		fe.cur.NewBr(fe.loops[len(fe.loops)-1].cont)
		fe.afterTerm()
	case *cir.Match:
		fe.emitMatch(x)
	case *cir.Alloc:
		fe.emitAlloc(x)
	case *cir.Binary:
		fe.temps[x.Dst] = fe.binary(x)
	case *cir.Unary:
		fe.temps[x.Dst] = fe.unary(x)
	case *cir.Cast:
		fe.temps[x.Dst] = fe.cast(fe.value(x.X), x.From, x.To)
	case *cir.Load:
		elem := fe.e.llType(x.Type)
		fe.temps[x.Dst] = fe.cur.NewLoad(elem, fe.ptrTo(fe.value(x.Addr), elem))
	case *cir.Store:
		v := fe.value(x.Value)
		fe.cur.NewStore(v, fe.ptrTo(fe.value(x.Addr), v.Type()))
	case *cir.AddrOf:
		fe.temps[x.Dst] = fe.addrOfLocal(x.Local)
	case *cir.FieldAddr:
		fe.temps[x.Dst] = fe.fieldAddr(x)
	case *cir.IndexAddr:
		fe.temps[x.Dst] = fe.indexAddr(x)
	case *cir.MemCopy:
		fe.memCopy(x)
	case *cir.MemSet:
		fe.memSet(x)
	case *cir.Check:
		fe.guard(fe.value(x.Cond), x.Code)
	case *cir.Panic:
		fe.panicWith(x.Code)
	case *cir.ClearPanic:
		if fe.panicOut != nil {
			fe.cur.NewStore(constant.NewZeroInitializer(panicType), fe.panicOut)
		}
	case *cir.PanicCheck:
		fe.panicCheck()
	case *cir.Poison:
		fe.cur.NewStore(constant.True, fe.e.poisonFlag(x.Module))
	case *cir.CheckPoison:
		flag := fe.cur.NewLoad(lltypes.I1, fe.e.poisonFlag(x.Module))
		fe.guard(fe.cur.NewXor(flag, constant.True), cir.PanicPoisoned)
	case *cir.Return:
		fe.emitReturn(x)
	default:
		fe.concurrency(n)
	}
}

func (fe *funcEmitter) bindVar(x *cir.BindVar) {
	size, err := fe.e.le.SizeOf(x.Type)
	if err != nil {
		fe.e.failf(CodegenLayout, err, "local %s", x.Name)
	}
	if size == 0 {
		fe.locals[x.Name] = slot{ty: x.Type}
		return
	}
	ty := fe.e.llType(x.Type)
	ptr := fe.alloca(ty)
	fe.locals[x.Name] = slot{ptr: ptr, ty: x.Type}
	if x.Init != nil {
		fe.cur.NewStore(fe.coerce(fe.value(*x.Init), ty), ptr)
	}
}

func (fe *funcEmitter) storeVar(x *cir.StoreVar) {
	s, ok := fe.locals[x.Name]
	if !ok {
		fe.e.failf(CodegenInvalid, nil, "store to unbound local %s", x.Name)
		return
	}
	v := fe.value(x.Value)
	if s.ptr == nil {
		return
	}
	ty := fe.e.llType(s.ty)
	fe.cur.NewStore(fe.coerce(v, ty), fe.ptrTo(s.ptr, ty))
}

func (fe *funcEmitter) addrOfLocal(name string) value.Value {
	s, ok := fe.locals[name]
	if !ok {
		fe.e.failf(CodegenInvalid, nil, "address of unbound local %s", name)
		return constant.NewNull(i8Ptr)
	}
	if s.ptr == nil {
		ptr := fe.alloca(unitType)
		fe.locals[name] = slot{ptr: ptr, ty: s.ty}
		return ptr
	}
	return s.ptr
}

func (fe *funcEmitter) emitIf(x *cir.If) {
	cond := fe.coerce(fe.value(x.Cond), lltypes.I1)
	then := fe.newBlock("then")
	merge := fe.newBlock("endif")
	els := merge
	if x.Else != nil {
		els = fe.newBlock("else")
	}
	fe.cur.NewCondBr(cond, then, els)

	fe.cur = then
	fe.node(x.Then)
	if !fe.terminated() {
		fe.cur.NewBr(merge)
	}
	if x.Else != nil {
		fe.cur = els
		fe.node(x.Else)
		if !fe.terminated() {
			fe.cur.NewBr(merge)
		}
	}
	fe.cur = merge
}

func (fe *funcEmitter) emitLoop(x *cir.Loop) {
	body := fe.newBlock("loop")
	exit := fe.newBlock("endloop")
	fe.cur.NewBr(body)
	fe.cur = body
	fe.loops = append(fe.loops, loopTargets{brk: exit, cont: body})
	fe.node(x.Body)
	fe.loops = fe.loops[:len(fe.loops)-1]
	if !fe.terminated() {
		fe.cur.NewBr(body)
	}
	fe.cur = exit
}

func (fe *funcEmitter) emitMatch(x *cir.Match) {
	scr := fe.value(x.Scrutinee)
	it, ok := scr.Type().(*lltypes.IntType)
	if !ok {
		fe.e.failf(CodegenInvalid, nil, "match on non-integer %s", scr.Type())
		return
	}
	merge := fe.newBlock("endmatch")
	def := fe.newBlock("default")
	cases := make([]*llir.Case, 0, len(x.Cases))
	blocks := make([]*llir.Block, len(x.Cases))
	for i, c := range x.Cases {
		blocks[i] = fe.newBlock("case")
		cases = append(cases, llir.NewCase(intConst(it, c.Value), blocks[i]))
	}
	fe.cur.NewSwitch(scr, def, cases...)
	for i, c := range x.Cases {
		fe.cur = blocks[i]
		fe.node(c.Body)
		if !fe.terminated() {
			fe.cur.NewBr(merge)
		}
	}
	fe.cur = def
	if x.Default == nil {
		fe.cur.NewUnreachable()
	} else {
		fe.node(x.Default)
		if !fe.terminated() {
			fe.cur.NewBr(merge)
		}
	}
	fe.cur = merge
}

func (fe *funcEmitter) emitReturn(x *cir.Return) {
	ci := fe.info.abi
	switch {
	case x.Value == nil || ci.Ret.Kind == abi.PassIgnore:
		if x.Value != nil {
			fe.value(*x.Value)
		}
		fe.retDefault()
	case ci.HasSRet():
		ty := fe.e.llType(ci.Ret.Type)
		fe.cur.NewStore(fe.coerce(fe.value(*x.Value), ty), fe.sret)
		fe.cur.NewRet(nil)
	default:
		fe.cur.NewRet(fe.coerce(fe.value(*x.Value), fe.fn.Sig.RetType))
	}
	fe.afterTerm()
}

// retDefault returns without a meaningful value: void, or undef.
func (fe *funcEmitter) retDefault() {
	if fe.retVoid() {
		fe.cur.NewRet(nil)
		return
	}
	fe.cur.NewRet(constant.NewUndef(fe.fn.Sig.RetType))
}

// panicWith stores {true, code} into the panic record and returns.
func (fe *funcEmitter) panicWith(code cir.PanicCode) {
	if fe.panicOut == nil {
		fe.e.failf(CodegenInvalid, nil, "panic without a panic record")
		fe.cur.NewUnreachable()
		fe.afterTerm()
		return
	}
	rec := constant.NewStruct(panicType, constant.True, constant.NewInt(lltypes.I32, int64(code)))
	fe.cur.NewStore(rec, fe.panicOut)
	fe.retDefault()
	fe.afterTerm()
}

// guard continues when ok holds and panics with code otherwise.
func (fe *funcEmitter) guard(ok value.Value, code cir.PanicCode) {
	pass := fe.newBlock("ok")
	fail := fe.newBlock("panic")
	fe.cur.NewCondBr(fe.coerce(ok, lltypes.I1), pass, fail)
	fe.cur = fail
	fe.panicWith(code)
	fe.cur = pass
}

// panicCheck propagates a panic left by the last call.
func (fe *funcEmitter) panicCheck() {
	if fe.panicOut == nil {
		return
	}
	flag := fe.panicFlag()
	pass := fe.newBlock("ok")
	prop := fe.newBlock("propagate")
	fe.cur.NewCondBr(flag, prop, pass)
	fe.cur = prop
	fe.retDefault()
	fe.cur = pass
}

func (fe *funcEmitter) panicFlag() value.Value {
	zero := constant.NewInt(lltypes.I32, 0)
	ptr := fe.cur.NewGetElementPtr(panicType, fe.panicOut, zero, zero)
	return fe.cur.NewLoad(lltypes.I1, ptr)
}

func (fe *funcEmitter) panicCode() value.Value {
	zero := constant.NewInt(lltypes.I32, 0)
	one := constant.NewInt(lltypes.I32, 1)
	ptr := fe.cur.NewGetElementPtr(panicType, fe.panicOut, zero, one)
	return fe.cur.NewLoad(lltypes.I32, ptr)
}
