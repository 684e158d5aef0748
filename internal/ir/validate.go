package ir

import (
	"errors"
	"fmt"

	"cursive0/internal/types"
)

// Validate checks the structural invariants of m. Every violation is
// reported; the result is nil when there are none.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	symbols := make(map[string]bool, len(m.Procs))
	entries := 0
	for _, p := range m.Procs {
		if p == nil {
			continue
		}
		if symbols[p.Symbol] {
			errs = append(errs, fmt.Errorf("proc %s: duplicate symbol", p.Symbol))
		}
		symbols[p.Symbol] = true
		if p.Entry {
			entries++
		}
		if err := validateProc(p); err != nil {
			errs = append(errs, fmt.Errorf("proc %s: %w", p.Symbol, err))
		}
	}
	if entries > 1 {
		errs = append(errs, fmt.Errorf("module %s: %d entry procedures", m.Name, entries))
	}
	for _, vt := range m.VTables {
		for i, slot := range vt.Slots {
			if !symbols[slot] {
				errs = append(errs, fmt.Errorf("vtable %s: slot %d refers to unknown proc %s", vt.Symbol, i, slot))
			}
		}
		if vt.Drop != "" && !symbols[vt.Drop] {
			errs = append(errs, fmt.Errorf("vtable %s: unknown drop proc %s", vt.Symbol, vt.Drop))
		}
	}
	for _, name := range m.Deinit {
		if !symbols[name] {
			errs = append(errs, fmt.Errorf("deinit: unknown proc %s", name))
		}
	}
	return errors.Join(errs...)
}

func validateProc(p *Proc) error {
	if p.Runtime {
		if p.Body != nil {
			return errors.New("runtime procedure has a body")
		}
		return nil
	}
	if p.Body == nil {
		return errors.New("missing body")
	}
	v := &procValidator{
		proc:   p,
		temps:  map[string]bool{},
		locals: map[string]bool{},
	}
	for _, prm := range p.Params {
		v.locals[prm.Name] = true
	}
	v.node(p.Body, 0)
	return errors.Join(v.errs...)
}

type procValidator struct {
	proc   *Proc
	temps  map[string]bool
	locals map[string]bool
	errs   []error
}

func (v *procValidator) errorf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *procValidator) use(vals ...Value) {
	for _, val := range vals {
		switch val.Kind {
		case ValueTemp:
			if !v.temps[val.Name] {
				v.errorf("%%%s used before definition", val.Name)
			}
		case ValueLocal:
			if !v.locals[val.Name] {
				v.errorf("$%s used before binding", val.Name)
			}
		}
	}
}

func (v *procValidator) useOpt(val *Value) {
	if val != nil {
		v.use(*val)
	}
}

func (v *procValidator) def(name string) {
	if name == "" {
		return
	}
	if v.temps[name] {
		v.errorf("%%%s defined twice", name)
	}
	v.temps[name] = true
}

// node checks n; loops counts the enclosing loops.
func (v *procValidator) node(n Node, loops int) {
	switch x := n.(type) {
	case nil:
	case *Seq:
		for _, c := range x.Nodes {
			v.node(c, loops)
		}
	case *BindVar:
		v.useOpt(x.Init)
		v.locals[x.Name] = true
	case *StoreVar:
		if !v.locals[x.Name] {
			v.errorf("store to unbound local $%s", x.Name)
		}
		v.use(x.Value)
	case *Call:
		v.useOpt(x.Callee.Value)
		if x.Callee.Value == nil && x.Callee.Symbol == "" {
			v.errorf("call without callee")
		}
		v.use(x.Args...)
		v.def(x.Dst)
	case *If:
		v.use(x.Cond)
		v.node(x.Then, loops)
		v.node(x.Else, loops)
	case *Loop:
		v.node(x.Body, loops+1)
	case *Break:
		if loops == 0 {
			v.errorf("break outside of a loop")
		}
	case *Continue:
		if loops == 0 {
			v.errorf("continue outside of a loop")
		}
	case *Match:
		v.use(x.Scrutinee)
		seen := map[uint64]bool{}
		for _, c := range x.Cases {
			if seen[c.Value] {
				v.errorf("match: duplicate case %d", c.Value)
			}
			seen[c.Value] = true
			v.node(c.Body, loops)
		}
		v.node(x.Default, loops)
	case *Alloc:
		v.useOpt(x.Region)
		v.def(x.Dst)
	case *Binary:
		v.use(x.X, x.Y)
		v.def(x.Dst)
	case *Unary:
		v.use(x.X)
		v.def(x.Dst)
	case *Cast:
		v.use(x.X)
		v.def(x.Dst)
	case *Load:
		v.use(x.Addr)
		v.def(x.Dst)
	case *Store:
		v.use(x.Addr, x.Value)
	case *AddrOf:
		if !v.locals[x.Local] {
			v.errorf("address of unbound local $%s", x.Local)
		}
		v.def(x.Dst)
	case *FieldAddr:
		v.use(x.Base)
		if x.Index < 0 {
			v.errorf("negative field index %d", x.Index)
		}
		v.def(x.Dst)
	case *IndexAddr:
		v.use(x.Base, x.Index, x.Len)
		v.def(x.Dst)
	case *MemCopy:
		v.use(x.Dst, x.Src)
	case *MemSet:
		v.use(x.Dst)
	case *Check:
		v.use(x.Cond)
	case *Return:
		v.useOpt(x.Value)
		v.checkReturn(x)
	case *Parallel:
		v.useOpt(x.Cancel)
		v.node(x.Body, 0)
		v.def(x.Result)
	case *Spawn:
		v.use(x.Args...)
		v.def(x.Dst)
	case *Wait:
		v.use(x.Handle)
		v.def(x.Dst)
	case *Dispatch:
		v.use(x.Lo, x.Hi)
		v.useOpt(x.Chunk)
		if x.Reduce != nil && !v.locals[x.Reduce.Acc] {
			v.errorf("dispatch reduces into unbound local $%s", x.Reduce.Acc)
		}
		v.locals[x.Index] = true
		v.node(x.Body, 1)
	case *Yield:
		v.useOpt(x.Value)
	case *Race:
		for _, arm := range x.Arms {
			v.node(arm, 0)
		}
		v.def(x.Dst)
	case *RaceReturn:
		v.use(x.Value)
	case *All:
		v.use(x.Handles...)
		v.def(x.Dst)
	case *Panic, *ClearPanic, *PanicCheck, *Poison, *CheckPoison:
	default:
		v.errorf("unknown node %T", n)
	}
}

func (v *procValidator) checkReturn(r *Return) {
	ret := v.proc.Ret
	if r.Value == nil {
		if ret != nil && !types.IsUnit(ret) && !types.IsNever(ret) {
			v.errorf("return without value in proc returning %s", ret)
		}
		return
	}
	if ret == nil || r.Value.Type == nil {
		return
	}
	if !types.Equal(bare(r.Value.Type), bare(ret)) {
		v.errorf("return of %s in proc returning %s", r.Value.Type, ret)
	}
}

func bare(t types.Type) types.Type { return types.StripRefine(t) }
