package ir

import (
	"fmt"

	"fortio.org/safecast"

	"cursive0/internal/source"
	"cursive0/internal/types"
)

type Param struct {
	Name string
	Type types.Type
	Mode types.ParamMode
}

// Proc is one lowered procedure. Symbol is its linkage name.
type Proc struct {
	Symbol string
	Path   types.Path
	Params []Param
	Ret    types.Type
	Body   Node
	// Entry marks the user entry point wrapped by the native main.
	Entry bool
	// Runtime procedures are provided externally and have no Body.
	Runtime bool
	Span    source.Span
}

// VTable is the dispatch table of Type as an implementation of Class.
// Slots follow the class method order.
type VTable struct {
	Symbol string
	Class  types.Path
	Type   types.Type
	Drop   string
	Slots  []string
}

type Global struct {
	Symbol string
	Type   types.Type
	Init   *Value
}

type Module struct {
	Name    string
	Procs   []*Proc
	VTables []VTable
	Globals []Global
	// Deinit lists procedures run by the entry wrapper after main returns,
	// in order.
	Deinit []string
}

func (m *Module) Proc(symbol string) (*Proc, bool) {
	for _, p := range m.Procs {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return nil, false
}

// EntryProc returns the procedure marked as entry.
func (m *Module) EntryProc() (*Proc, bool) {
	for _, p := range m.Procs {
		if p.Entry {
			return p, true
		}
	}
	return nil, false
}

// Temps hands out temporary names for one procedure.
type Temps struct {
	next uint32
}

func (t *Temps) New(ty types.Type) Value {
	return Temp(t.Name(), ty)
}

func (t *Temps) Name() string {
	t.next++
	if t.next == 0 {
		panic("ir: temporary counter overflow")
	}
	return fmt.Sprintf("t%d", t.next)
}

// Count returns the number of temporaries created so far.
func (t *Temps) Count() int {
	n, err := safecast.Conv[int](t.next)
	if err != nil {
		panic(err)
	}
	return n
}
