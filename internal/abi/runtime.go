package abi

import (
	"slices"
	"strings"

	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// Runtime entry points that are not builtin methods.
const (
	RuntimePrefix      = "cursive0_rt_"
	RuntimePanic       = RuntimePrefix + "panic"
	RuntimeContextInit = RuntimePrefix + "context_init"
)

// RuntimeSymbol is one externally provided procedure.
type RuntimeSymbol struct {
	Symbol   string
	Path     types.Path
	Params   []Param
	Ret      types.Type
	Panics   bool
	NoReturn bool
}

// Mangle is the linkage name of a user procedure.
func Mangle(path types.Path) string {
	return strings.Join(path, "::")
}

// SymbolFor is the linkage name of p; builtins resolve into the runtime.
func SymbolFor(p *symbols.ProcInfo) string {
	if !p.Builtin {
		return Mangle(p.Path)
	}
	parts := make([]string, 0, len(p.Path))
	for _, seg := range p.Path {
		parts = append(parts, strings.TrimPrefix(seg, "@"))
	}
	return RuntimePrefix + strings.Join(parts, "_")
}

// ProcParams flattens the receiver and parameters of p. A receiver
// without a permission is consumed by the call.
func ProcParams(p *symbols.ProcInfo) []Param {
	out := make([]Param, 0, len(p.Params)+1)
	if p.Self != nil {
		mode := types.ModeCopy
		if _, qualified := p.Self.(*types.Perm); !qualified {
			mode = types.ModeMove
		}
		out = append(out, Param{Name: "self", Mode: mode, Type: p.Self})
	}
	for _, prm := range p.Params {
		out = append(out, Param{Name: prm.Name, Mode: prm.Mode, Type: prm.Type})
	}
	return out
}

func runtimeProc(p *symbols.ProcInfo) RuntimeSymbol {
	return RuntimeSymbol{
		Symbol: SymbolFor(p),
		Path:   p.Path,
		Params: ProcParams(p),
		Ret:    p.Ret,
		Panics: true,
	}
}

// RuntimeTable lists the runtime interface in a fixed order: panic and
// context setup, string and bytes builtins, region lifecycle, capability
// classes, then the File and DirIter state machines.
func RuntimeTable(sigma *symbols.Sigma) []RuntimeSymbol {
	out := []RuntimeSymbol{
		{
			Symbol:   RuntimePanic,
			Path:     types.Path{"panic"},
			Params:   []Param{{Name: "code", Type: types.U32}},
			Ret:      types.Never,
			NoReturn: true,
		},
		{
			Symbol: RuntimeContextInit,
			Path:   types.Path{"context_init"},
			Ret:    types.MkNamed(symbols.ContextName),
		},
	}
	for _, p := range symbols.BuiltinStringProcs() {
		out = append(out, runtimeProc(p))
	}
	if sigma == nil {
		return out
	}
	if p, ok := sigma.LookupProc([]string{symbols.RegionName, "new_scoped"}); ok {
		out = append(out, runtimeProc(p))
	}
	out = append(out, modalProcs(sigma, symbols.RegionName)...)
	for _, name := range []string{symbols.HeapAllocatorName, symbols.FileSystemName} {
		cl, ok := sigma.LookupClass([]string{name})
		if !ok {
			continue
		}
		for _, m := range cl.Order {
			out = append(out, runtimeProc(cl.Methods[m]))
		}
	}
	out = append(out, modalProcs(sigma, symbols.FileName)...)
	out = append(out, modalProcs(sigma, symbols.DirIterName)...)
	return out
}

func modalProcs(sigma *symbols.Sigma, name string) []RuntimeSymbol {
	m, ok := sigma.Modal([]string{name})
	if !ok {
		return nil
	}
	var out []RuntimeSymbol
	for i := range m.States {
		names := make([]string, 0, len(m.States[i].Methods))
		for n := range m.States[i].Methods {
			names = append(names, n)
		}
		slices.Sort(names)
		for _, n := range names {
			out = append(out, runtimeProc(m.States[i].Methods[n]))
		}
	}
	return out
}

// LookupRuntime finds a runtime symbol by linkage name.
func LookupRuntime(table []RuntimeSymbol, symbol string) (RuntimeSymbol, bool) {
	for _, r := range table {
		if r.Symbol == symbol {
			return r, true
		}
	}
	return RuntimeSymbol{}, false
}
