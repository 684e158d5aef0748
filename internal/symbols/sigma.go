package symbols

import (
	"maps"
	"slices"

	"cursive0/internal/ast"
	"cursive0/internal/source"
	"cursive0/internal/types"
)

type FieldInfo struct {
	Name string
	Type types.Type
	Span source.Span
}

// TypeDecl is the sealed set of declarations stored in Sigma.Types.
type TypeDecl interface {
	DeclPath() types.Path
	typeDecl()
}

type RecordInfo struct {
	Path       types.Path
	Decl       *ast.Record
	TypeParams []string
	Attrs      []ast.Attr
	Fields     []FieldInfo
	Implements []types.Path
	Methods    map[string]*ProcInfo
	Builtin    bool
}

type VariantInfo struct {
	Name string
	Disc ast.Expr
	// Fields of a positional payload are named "0", "1", ...
	Fields []FieldInfo
	Named  bool
	Span   source.Span
}

type EnumInfo struct {
	Path       types.Path
	Decl       *ast.Enum
	TypeParams []string
	Attrs      []ast.Attr
	Variants   []VariantInfo
	Implements []types.Path
}

type StateInfo struct {
	Name    string
	Fields  []FieldInfo
	Methods map[string]*ProcInfo
	Span    source.Span
}

type ModalInfo struct {
	Path       types.Path
	Decl       *ast.Modal
	TypeParams []string
	Attrs      []ast.Attr
	States     []StateInfo
	Builtin    bool
}

type AliasInfo struct {
	Path       types.Path
	Decl       *ast.TypeAlias
	TypeParams []string
	Target     types.Type
}

func (r *RecordInfo) DeclPath() types.Path { return r.Path }
func (e *EnumInfo) DeclPath() types.Path   { return e.Path }
func (m *ModalInfo) DeclPath() types.Path  { return m.Path }
func (a *AliasInfo) DeclPath() types.Path  { return a.Path }

func (*RecordInfo) typeDecl() {}
func (*EnumInfo) typeDecl()   {}
func (*ModalInfo) typeDecl()  {}
func (*AliasInfo) typeDecl()  {}

// Field returns the named field of a record.
func (r *RecordInfo) Field(name string) (FieldInfo, int, bool) {
	for i, f := range r.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return FieldInfo{}, -1, false
}

func (e *EnumInfo) Variant(name string) (*VariantInfo, int, bool) {
	for i := range e.Variants {
		if e.Variants[i].Name == name {
			return &e.Variants[i], i, true
		}
	}
	return nil, -1, false
}

func (m *ModalInfo) State(name string) (*StateInfo, int, bool) {
	for i := range m.States {
		if m.States[i].Name == name {
			return &m.States[i], i, true
		}
	}
	return nil, -1, false
}

func (s *StateInfo) Field(name string) (FieldInfo, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldInfo{}, false
}

type ParamInfo struct {
	Name string
	Mode types.ParamMode
	Type types.Type
}

// ProcInfo is a procedure or method signature with its contract.
type ProcInfo struct {
	Path   types.Path
	Name   string
	Decl   *ast.Proc
	Owner  types.Path // nil for free procedures
	State  string     // modal state owning the method, if any
	Self   types.Type // receiver type, nil for free procedures
	Params []ParamInfo
	Ret    types.Type
	Pre    ast.Expr
	Post   ast.Expr
	Attrs  []ast.Attr
	// Builtin procedures are provided by the runtime.
	Builtin bool
}

// Sig is the callable type of the procedure without its receiver.
func (p *ProcInfo) Sig() *types.Func {
	params := make([]types.FuncParam, len(p.Params))
	for i, prm := range p.Params {
		params[i] = types.FuncParam{Mode: prm.Mode, Type: prm.Type}
	}
	return &types.Func{Params: params, Ret: p.Ret}
}

type ClassInfo struct {
	Path    types.Path
	Decl    *ast.Class
	Methods map[string]*ProcInfo
	// Order lists method names in declaration order; it fixes vtable slots.
	Order   []string
	Builtin bool
}

// Sigma is the global symbol table. It is filled once before checking and
// read concurrently afterwards.
type Sigma struct {
	Types   map[string]TypeDecl
	Classes map[string]*ClassInfo
	Procs   map[string]*ProcInfo
}

func NewSigma() *Sigma {
	return &Sigma{
		Types:   make(map[string]TypeDecl),
		Classes: make(map[string]*ClassInfo),
		Procs:   make(map[string]*ProcInfo),
	}
}

// AddType registers d; it returns false when the key is taken.
func (s *Sigma) AddType(d TypeDecl) bool {
	key := PathKeyOf(d.DeclPath())
	if _, dup := s.Types[key]; dup {
		return false
	}
	if _, dup := s.Classes[key]; dup {
		return false
	}
	s.Types[key] = d
	return true
}

func (s *Sigma) AddClass(c *ClassInfo) bool {
	key := PathKeyOf(c.Path)
	if _, dup := s.Classes[key]; dup {
		return false
	}
	if _, dup := s.Types[key]; dup {
		return false
	}
	s.Classes[key] = c
	return true
}

func (s *Sigma) AddProc(p *ProcInfo) bool {
	key := PathKeyOf(p.Path)
	if _, dup := s.Procs[key]; dup {
		return false
	}
	s.Procs[key] = p
	return true
}

func (s *Sigma) LookupType(path []string) (TypeDecl, bool) {
	d, ok := s.Types[PathKeyOf(path)]
	return d, ok
}

func (s *Sigma) LookupClass(path []string) (*ClassInfo, bool) {
	c, ok := s.Classes[PathKeyOf(path)]
	return c, ok
}

func (s *Sigma) LookupProc(path []string) (*ProcInfo, bool) {
	p, ok := s.Procs[PathKeyOf(path)]
	return p, ok
}

func (s *Sigma) Record(path []string) (*RecordInfo, bool) {
	d, ok := s.LookupType(path)
	if !ok {
		return nil, false
	}
	r, ok := d.(*RecordInfo)
	return r, ok
}

func (s *Sigma) Enum(path []string) (*EnumInfo, bool) {
	d, ok := s.LookupType(path)
	if !ok {
		return nil, false
	}
	e, ok := d.(*EnumInfo)
	return e, ok
}

func (s *Sigma) Modal(path []string) (*ModalInfo, bool) {
	d, ok := s.LookupType(path)
	if !ok {
		return nil, false
	}
	m, ok := d.(*ModalInfo)
	return m, ok
}

// SortedProcKeys returns procedure keys in a stable order.
func (s *Sigma) SortedProcKeys() []string {
	return slices.Sorted(maps.Keys(s.Procs))
}

// SortedClassKeys returns class keys in a stable order.
func (s *Sigma) SortedClassKeys() []string {
	return slices.Sorted(maps.Keys(s.Classes))
}

// Implements reports whether the type at path declares class.
func (s *Sigma) Implements(path []string, class []string) bool {
	want := PathKeyOf(class)
	var list []types.Path
	switch d := s.Types[PathKeyOf(path)].(type) {
	case *RecordInfo:
		list = d.Implements
	case *EnumInfo:
		list = d.Implements
	default:
		return false
	}
	for _, p := range list {
		if PathKeyOf(p) == want {
			return true
		}
	}
	return false
}
