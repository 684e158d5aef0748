package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable form of m, one node per line.
func Dump(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	p := &printer{w: w}
	p.line(0, "module %s", m.Name)
	for _, g := range m.Globals {
		init := "zero"
		if g.Init != nil {
			init = g.Init.String()
		}
		p.line(1, "global @%s: %s = %s", g.Symbol, g.Type, init)
	}
	for _, vt := range m.VTables {
		p.line(1, "vtable @%s: %s for %s drop=%s slots=[%s]",
			vt.Symbol, vt.Class, vt.Type, orDash(vt.Drop), strings.Join(vt.Slots, ", "))
	}
	for _, proc := range m.Procs {
		params := make([]string, len(proc.Params))
		for i, prm := range proc.Params {
			params[i] = fmt.Sprintf("%s: %s", prm.Name, prm.Type)
		}
		flags := ""
		if proc.Entry {
			flags = " entry"
		}
		if proc.Runtime {
			p.line(1, "extern proc @%s(%s) -> %s", proc.Symbol, strings.Join(params, ", "), proc.Ret)
			continue
		}
		p.line(1, "proc @%s(%s) -> %s%s", proc.Symbol, strings.Join(params, ", "), proc.Ret, flags)
		p.node(2, proc.Body)
	}
	if len(m.Deinit) > 0 {
		p.line(1, "deinit [%s]", strings.Join(m.Deinit, ", "))
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func values(list []Value) string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = v.String()
	}
	return strings.Join(out, ", ")
}

func optValue(v *Value) string {
	if v == nil {
		return ""
	}
	return " " + v.String()
}

func (p *printer) node(d int, n Node) {
	switch x := n.(type) {
	case nil:
	case *Seq:
		for _, c := range x.Nodes {
			p.node(d, c)
		}
	case *BindVar:
		init := ""
		if x.Init != nil {
			init = " = " + x.Init.String()
		}
		p.line(d, "let $%s: %s%s", x.Name, x.Type, init)
	case *StoreVar:
		p.line(d, "$%s = %s", x.Name, x.Value)
	case *Call:
		callee := "@" + x.Callee.Symbol
		if x.Callee.Value != nil {
			callee = x.Callee.Value.String()
		}
		dst := ""
		if x.Dst != "" {
			dst = "%" + x.Dst + " = "
		}
		p.line(d, "%scall %s(%s) -> %s", dst, callee, values(x.Args), x.Ret)
	case *If:
		p.line(d, "if %s {", x.Cond)
		p.node(d+1, x.Then)
		if x.Else != nil {
			p.line(d, "} else {")
			p.node(d+1, x.Else)
		}
		p.line(d, "}")
	case *Loop:
		p.line(d, "loop {")
		p.node(d+1, x.Body)
		p.line(d, "}")
	case *Break:
		p.line(d, "break")
	case *Continue:
		p.line(d, "continue")
	case *Match:
		p.line(d, "match %s {", x.Scrutinee)
		for _, c := range x.Cases {
			p.line(d+1, "%d =>", c.Value)
			p.node(d+2, c.Body)
		}
		if x.Default != nil {
			p.line(d+1, "_ =>")
			p.node(d+2, x.Default)
		}
		p.line(d, "}")
	case *Alloc:
		where := "stack"
		if x.Region != nil {
			where = x.Region.String()
		}
		p.line(d, "%%%s = alloc %s in %s", x.Dst, x.Type, where)
	case *Binary:
		p.line(d, "%%%s = %s %s %s, %s", x.Dst, x.Op, x.Type, x.X, x.Y)
	case *Unary:
		p.line(d, "%%%s = %s %s %s", x.Dst, x.Op, x.Type, x.X)
	case *Cast:
		p.line(d, "%%%s = cast %s %s to %s", x.Dst, x.From, x.X, x.To)
	case *Load:
		p.line(d, "%%%s = load %s %s", x.Dst, x.Type, x.Addr)
	case *Store:
		p.line(d, "store %s, %s", x.Value, x.Addr)
	case *AddrOf:
		p.line(d, "%%%s = addr $%s", x.Dst, x.Local)
	case *FieldAddr:
		p.line(d, "%%%s = field %s %s.%d", x.Dst, x.Agg, x.Base, x.Index)
	case *IndexAddr:
		p.line(d, "%%%s = index %s %s[%s] len %s", x.Dst, x.Elem, x.Base, x.Index, x.Len)
	case *MemCopy:
		op := "memcpy"
		if x.MayOverlap {
			op = "memmove"
		}
		p.line(d, "%s %s, %s, %d align %d", op, x.Dst, x.Src, x.Size, x.Align)
	case *MemSet:
		p.line(d, "memset %s, %d, %d align %d", x.Dst, x.Byte, x.Size, x.Align)
	case *Check:
		p.line(d, "check %s else panic %s", x.Cond, x.Code)
	case *Panic:
		p.line(d, "panic %s", x.Code)
	case *ClearPanic:
		p.line(d, "clear-panic")
	case *PanicCheck:
		p.line(d, "panic-check")
	case *Poison:
		p.line(d, "poison %s", x.Module)
	case *CheckPoison:
		p.line(d, "check-poison %s", x.Module)
	case *Return:
		p.line(d, "return%s", optValue(x.Value))
	case *Parallel:
		p.line(d, "%%%s = parallel%s {", x.Result, optValue(x.Cancel))
		p.node(d+1, x.Body)
		p.line(d, "}")
	case *Spawn:
		p.line(d, "%%%s = spawn @%s(%s)", x.Dst, x.Callee, values(x.Args))
	case *Wait:
		p.line(d, "%%%s = wait %s", x.Dst, x.Handle)
	case *Dispatch:
		extra := ""
		if x.Ordered {
			extra += " ordered"
		}
		if x.Chunk != nil {
			extra += " chunk" + optValue(x.Chunk)
		}
		if x.Reduce != nil {
			extra += fmt.Sprintf(" reduce %s into $%s", x.Reduce.Op, x.Reduce.Acc)
		}
		p.line(d, "dispatch $%s in %s..%s%s {", x.Index, x.Lo, x.Hi, extra)
		p.node(d+1, x.Body)
		p.line(d, "}")
	case *Yield:
		rel := ""
		if x.Release {
			rel = " release"
		}
		p.line(d, "yield%s%s", rel, optValue(x.Value))
	case *Race:
		p.line(d, "%%%s = race {", x.Dst)
		for _, arm := range x.Arms {
			p.line(d+1, "arm {")
			p.node(d+2, arm)
			p.line(d+1, "}")
		}
		p.line(d, "}")
	case *RaceReturn:
		p.line(d, "race-return %s", x.Value)
	case *All:
		p.line(d, "%%%s = all(%s)", x.Dst, values(x.Handles))
	default:
		p.line(d, "<%T>", n)
	}
}
