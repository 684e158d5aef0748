// Package llvm lowers the IR into an LLVM module.
package llvm

import (
	"io"
	"os"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"

	"cursive0/internal/abi"
	cir "cursive0/internal/ir"
	"cursive0/internal/layout"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// Options configure EmitModule.
type Options struct {
	Layout     *layout.LayoutEngine
	Classifier abi.Classifier
	// Debug receives the signature dump of ABI failures. When nil, the
	// dump goes to stderr if CURSIVE0_DEBUG_OBJ is set.
	Debug io.Writer
}

// funcInfo is a declared native function and its call convention.
type funcInfo struct {
	// fn is nil for signatures of indirect calls.
	fn       *llir.Func
	sig      *lltypes.FuncType
	abi      abi.CallABI
	params   []abi.Param
	noReturn bool
}

type Emitter struct {
	le    *layout.LayoutEngine
	sigma *symbols.Sigma
	cl    abi.Classifier
	debug io.Writer

	mod        *llir.Module
	funcs      map[string]*funcInfo
	indirect   map[string]*funcInfo
	globals    map[string]*llir.Global
	intrinsics map[string]*llir.Func
	poison     map[string]*llir.Global
	typeCache  map[string]lltypes.Type
	aggCache   map[string]*aggregate
	runtime    []abi.RuntimeSymbol

	curProc  string
	failures []*CodegenError
}

// EmitModule translates m. Failures do not stop emission: each one is
// recorded, a placeholder is emitted, and the joined failures are
// returned together with the module.
func EmitModule(m *cir.Module, opts Options) (*llir.Module, error) {
	e := newEmitter(opts)
	if m == nil {
		return e.mod, nil
	}
	e.declareRuntime()
	for _, p := range m.Procs {
		e.declareProc(p)
	}
	for _, g := range m.Globals {
		e.emitGlobal(g)
	}
	for _, vt := range m.VTables {
		e.emitVTable(vt)
	}
	for _, p := range m.Procs {
		if !p.Runtime {
			e.emitProc(p)
		}
	}
	if entry, ok := m.EntryProc(); ok {
		e.emitMainWrapper(entry, m.Deinit)
	}
	return e.mod, e.joinFailures()
}

// builtinSigma is the universe the runtime declarations are classified
// against when the caller supplies no program.
func builtinSigma() *symbols.Sigma {
	sg := symbols.NewSigma()
	symbols.RegisterBuiltins(sg)
	return sg
}

func newEmitter(opts Options) *Emitter {
	le := opts.Layout
	if le == nil {
		le = layout.New(layout.X86_64LinuxGNU(), builtinSigma())
	}
	debug := opts.Debug
	if debug == nil && abi.DebugEnabled() {
		debug = os.Stderr
	}
	e := &Emitter{
		le:         le,
		sigma:      le.Sigma,
		cl:         opts.Classifier,
		debug:      debug,
		mod:        llir.NewModule(),
		funcs:      make(map[string]*funcInfo),
		indirect:   make(map[string]*funcInfo),
		globals:    make(map[string]*llir.Global),
		intrinsics: make(map[string]*llir.Func),
		poison:     make(map[string]*llir.Global),
		typeCache:  make(map[string]lltypes.Type),
		aggCache:   make(map[string]*aggregate),
	}
	if e.sigma == nil {
		e.sigma = builtinSigma()
		le.Sigma = e.sigma
	}
	if e.cl == nil {
		e.cl = abi.SysV{}
	}
	e.mod.TargetTriple = le.Target.Triple
	return e
}

// declareRuntime declares the whole runtime interface with the same
// classification as user code.
func (e *Emitter) declareRuntime() {
	e.runtime = abi.RuntimeTable(e.sigma)
	for _, r := range e.runtime {
		e.declare(r.Symbol, r.Params, r.Ret, r.Panics, r.NoReturn)
	}
}

func (e *Emitter) declareProc(p *cir.Proc) {
	if _, done := e.funcs[p.Symbol]; done {
		return
	}
	params := make([]abi.Param, len(p.Params))
	for i, prm := range p.Params {
		params[i] = abi.Param{Name: prm.Name, Mode: prm.Mode, Type: prm.Type}
	}
	panics := true
	noReturn := false
	if p.Runtime {
		if r, ok := abi.LookupRuntime(e.runtime, p.Symbol); ok {
			panics, noReturn = r.Panics, r.NoReturn
		}
	}
	e.declare(p.Symbol, params, p.Ret, panics, noReturn)
}

// declare creates the native function of a signature. The physical order
// is [sret] params... [panic-out].
func (e *Emitter) declare(symbol string, params []abi.Param, ret types.Type, panics, noReturn bool) *funcInfo {
	if info, ok := e.funcs[symbol]; ok {
		return info
	}
	prev := e.curProc
	e.curProc = symbol
	defer func() { e.curProc = prev }()

	ci, err := abi.ComputeCallABI(e.le, e.cl, params, ret, panics)
	if err != nil {
		e.abiFailure(symbol, params, ret, err)
		ci = fallbackABI(params, panics)
	}
	var llParams []*llir.Param
	if ci.HasSRet() {
		p := llir.NewParam("ret", lltypes.NewPointer(e.llType(ci.Ret.Type)))
		p.Attrs = paramAttrs(ci.Ret.Attrs)
		llParams = append(llParams, p)
	}
	for i, a := range ci.Params {
		ty, ok := e.physType(a)
		if !ok {
			continue
		}
		p := llir.NewParam(params[i].Name, ty)
		p.Attrs = paramAttrs(a.Attrs)
		llParams = append(llParams, p)
	}
	if ci.Panics {
		p := llir.NewParam("panic", lltypes.NewPointer(panicType))
		p.Attrs = paramAttrs(abi.PtrAttrs{NoAlias: true, NonNull: true, Dereferenceable: 8, Align: 4})
		llParams = append(llParams, p)
	}
	fn := e.mod.NewFunc(symbol, e.retType(ci), llParams...)
	if noReturn {
		fn.FuncAttrs = append(fn.FuncAttrs, enum.FuncAttrNoReturn)
	}
	info := &funcInfo{fn: fn, sig: fn.Sig, abi: ci, params: params, noReturn: noReturn}
	e.funcs[symbol] = info
	return info
}

func (e *Emitter) abiFailure(symbol string, params []abi.Param, ret types.Type, err error) {
	e.ReportCodegenFailure(&CodegenError{Kind: CodegenABI, Proc: symbol, Msg: "cannot classify signature", Err: err})
	if e.debug != nil {
		abi.DumpFailure(e.debug, symbol, params, ret, err)
	}
}

// fallbackABI passes everything by reference so the declaration still
// exists for callers.
func fallbackABI(params []abi.Param, panics bool) abi.CallABI {
	ci := abi.CallABI{Panics: panics, Ret: abi.ArgInfo{Kind: abi.PassIgnore, Type: types.Unit}}
	for _, p := range params {
		ci.Params = append(ci.Params, abi.ArgInfo{Kind: abi.PassByRef, Type: p.Type})
	}
	return ci
}

// physType is the native type of a classified parameter; ignored
// parameters have none.
func (e *Emitter) physType(a abi.ArgInfo) (lltypes.Type, bool) {
	switch a.Kind {
	case abi.PassByValue:
		return e.llType(a.Type), true
	case abi.PassByRef:
		return lltypes.NewPointer(e.llType(a.Type)), true
	}
	return nil, false
}

func (e *Emitter) retType(ci abi.CallABI) lltypes.Type {
	if ci.Ret.Kind == abi.PassByValue {
		return e.llType(ci.Ret.Type)
	}
	return lltypes.Void
}

func paramAttrs(a abi.PtrAttrs) []llir.ParamAttribute {
	var out []llir.ParamAttribute
	if a.NoAlias {
		out = append(out, enum.ParamAttrNoAlias)
	}
	if a.NonNull {
		out = append(out, enum.ParamAttrNonNull)
	}
	if a.NoUndef {
		out = append(out, enum.ParamAttrNoUndef)
	}
	if a.ReadOnly {
		out = append(out, enum.ParamAttrReadOnly)
	}
	if a.Dereferenceable > 0 {
		out = append(out, llir.Dereferenceable{N: a.Dereferenceable})
	}
	if a.Align > 0 {
		out = append(out, llir.Align(a.Align))
	}
	return out
}

func (e *Emitter) emitGlobal(g cir.Global) {
	e.curProc = g.Symbol
	defer func() { e.curProc = "" }()
	ty := e.llType(g.Type)
	var init constant.Constant = constant.NewZeroInitializer(ty)
	if g.Init != nil {
		if c, ok := e.constant(*g.Init, ty); ok {
			init = c
		}
	}
	e.globals[g.Symbol] = e.mod.NewGlobalDef(g.Symbol, init)
}

// emitVTable writes {size, align, drop, slots...} as a constant global.
func (e *Emitter) emitVTable(vt cir.VTable) {
	e.curProc = vt.Symbol
	defer func() { e.curProc = "" }()
	l, err := e.le.LayoutOf(vt.Type)
	if err != nil {
		e.failf(CodegenLayout, err, "vtable type %s", vt.Type)
	}
	usize := e.usize()
	fields := []lltypes.Type{usize, usize, i8Ptr}
	elems := []constant.Constant{
		uintConst(usize, l.Size),
		uintConst(usize, l.Align),
		e.funcPtr(vt.Drop),
	}
	for _, slot := range vt.Slots {
		fields = append(fields, i8Ptr)
		elems = append(elems, e.funcPtr(slot))
	}
	st := lltypes.NewStruct(fields...)
	g := e.mod.NewGlobalDef(vt.Symbol, constant.NewStruct(st, elems...))
	g.Immutable = true
	e.globals[vt.Symbol] = g
}

// funcPtr is symbol as an i8* constant, null for "".
func (e *Emitter) funcPtr(symbol string) constant.Constant {
	if symbol == "" {
		return constant.NewNull(i8Ptr)
	}
	info, ok := e.funcs[symbol]
	if !ok {
		e.failf(CodegenInvalid, nil, "unknown procedure %s", symbol)
		return constant.NewNull(i8Ptr)
	}
	return constant.NewBitCast(info.fn, i8Ptr)
}

func uintConst(t *lltypes.IntType, v uint64) *constant.Int {
	c := constant.NewInt(t, 0)
	c.X.SetUint64(v)
	return c
}

// poisonFlag is the module's initialisation failure flag.
func (e *Emitter) poisonFlag(module string) *llir.Global {
	if g, ok := e.poison[module]; ok {
		return g
	}
	g := e.mod.NewGlobalDef("cursive0.poison."+module, constant.False)
	e.poison[module] = g
	return g
}
