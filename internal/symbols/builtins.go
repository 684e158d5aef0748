package symbols

import (
	"cursive0/internal/types"
)

// Builtin declaration names.
const (
	RegionOptionsName = "RegionOptions"
	HeapAllocatorName = "HeapAllocator"
	FileSystemName    = "FileSystem"
	RegionName        = "Region"
	FileName          = "File"
	DirIterName       = "DirIter"
	ContextName       = "Context"
)

// BitcopyClass is the marker class of freely copyable types.
var BitcopyClass = types.Path{"Bitcopy"}

func constSelf(t types.Type) types.Type { return types.MkPerm(types.PermConst, t) }

func uniqueSelf(t types.Type) types.Type { return types.MkPerm(types.PermUnique, t) }

func param(name string, t types.Type) ParamInfo { return ParamInfo{Name: name, Type: t} }

func builtinMethod(owner types.Path, state, name string, self types.Type, ret types.Type, params ...ParamInfo) *ProcInfo {
	path := append(append(types.Path{}, owner...), name)
	if state != "" {
		path = append(append(types.Path{}, owner...), "@"+state, name)
	}
	return &ProcInfo{
		Path:    path,
		Name:    name,
		Owner:   owner,
		State:   state,
		Self:    self,
		Params:  params,
		Ret:     ret,
		Builtin: true,
	}
}

// RegisterBuiltins adds the builtin universe to s.
func RegisterBuiltins(s *Sigma) {
	view := types.MkString(types.StrView)
	managed := types.MkString(types.StrManaged)
	bytePtr := &types.RawPtr{Qual: types.RawMut, Elem: types.U8}

	s.AddClass(&ClassInfo{Path: BitcopyClass, Methods: map[string]*ProcInfo{}, Builtin: true})

	s.AddType(&RecordInfo{
		Path: types.Path{RegionOptionsName},
		Fields: []FieldInfo{
			{Name: "stack_size", Type: types.USize},
			{Name: "name", Type: view},
		},
		Implements: []types.Path{BitcopyClass},
		Methods:    map[string]*ProcInfo{},
		Builtin:    true,
	})

	heapPath := types.Path{HeapAllocatorName}
	heapSelf := constSelf(types.MkDynamic(HeapAllocatorName))
	heap := &ClassInfo{Path: heapPath, Methods: map[string]*ProcInfo{}, Builtin: true}
	heap.add(builtinMethod(heapPath, "", "alloc_raw", heapSelf, bytePtr, param("size", types.USize)))
	heap.add(builtinMethod(heapPath, "", "dealloc_raw", heapSelf, types.Unit,
		param("ptr", bytePtr), param("size", types.USize)))
	s.AddClass(heap)

	fsPath := types.Path{FileSystemName}
	fsSelf := constSelf(types.MkDynamic(FileSystemName))
	fs := &ClassInfo{Path: fsPath, Methods: map[string]*ProcInfo{}, Builtin: true}
	fs.add(builtinMethod(fsPath, "", "open_read", fsSelf, types.MkState(types.Path{FileName}, "Open"), param("path", view)))
	fs.add(builtinMethod(fsPath, "", "open_write", fsSelf, types.MkState(types.Path{FileName}, "Open"), param("path", view)))
	fs.add(builtinMethod(fsPath, "", "exists", fsSelf, types.Bool, param("path", view)))
	fs.add(builtinMethod(fsPath, "", "read_dir", fsSelf, types.MkState(types.Path{DirIterName}, "Open"), param("path", view)))
	s.AddClass(fs)

	handle := []FieldInfo{{Name: "handle", Type: types.USize}}

	regionPath := types.Path{RegionName}
	active := types.MkState(regionPath, "Active")
	frozen := types.MkState(regionPath, "Frozen")
	region := &ModalInfo{
		Path: regionPath,
		States: []StateInfo{
			{Name: "Active", Fields: handle, Methods: map[string]*ProcInfo{}},
			{Name: "Frozen", Fields: handle, Methods: map[string]*ProcInfo{}},
		},
		Builtin: true,
	}
	region.States[0].add(builtinMethod(regionPath, "Active", "alloc", uniqueSelf(active), bytePtr, param("size", types.USize)))
	region.States[0].add(builtinMethod(regionPath, "Active", "reset_unchecked", uniqueSelf(active), types.Unit))
	region.States[0].add(builtinMethod(regionPath, "Active", "freeze", active, frozen))
	region.States[0].add(builtinMethod(regionPath, "Active", "free_unchecked", active, types.Unit))
	region.States[1].add(builtinMethod(regionPath, "Frozen", "thaw", frozen, active))
	region.States[1].add(builtinMethod(regionPath, "Frozen", "free_unchecked", frozen, types.Unit))
	s.AddType(region)
	s.AddProc(&ProcInfo{
		Path:    types.Path{RegionName, "new_scoped"},
		Name:    "new_scoped",
		Owner:   regionPath,
		Params:  []ParamInfo{param("options", types.MkNamed(RegionOptionsName))},
		Ret:     active,
		Builtin: true,
	})

	filePath := types.Path{FileName}
	open := types.MkState(filePath, "Open")
	closed := types.MkState(filePath, "Closed")
	file := &ModalInfo{
		Path: filePath,
		States: []StateInfo{
			{Name: "Open", Fields: handle, Methods: map[string]*ProcInfo{}},
			{Name: "Closed", Methods: map[string]*ProcInfo{}},
		},
		Builtin: true,
	}
	file.States[0].add(builtinMethod(filePath, "Open", "read_all", constSelf(open), managed))
	file.States[0].add(builtinMethod(filePath, "Open", "write", uniqueSelf(open), types.Unit, param("data", view)))
	file.States[0].add(builtinMethod(filePath, "Open", "close", open, closed))
	s.AddType(file)

	dirPath := types.Path{DirIterName}
	dirOpen := types.MkState(dirPath, "Open")
	dir := &ModalInfo{
		Path: dirPath,
		States: []StateInfo{
			{Name: "Open", Fields: handle, Methods: map[string]*ProcInfo{}},
			{Name: "Closed", Methods: map[string]*ProcInfo{}},
		},
		Builtin: true,
	}
	dir.States[0].add(builtinMethod(dirPath, "Open", "next", uniqueSelf(dirOpen), managed))
	dir.States[0].add(builtinMethod(dirPath, "Open", "close", dirOpen, types.MkState(dirPath, "Closed")))
	s.AddType(dir)

	s.AddType(&RecordInfo{
		Path: types.Path{ContextName},
		Fields: []FieldInfo{
			{Name: "heap", Type: types.MkDynamic(HeapAllocatorName)},
			{Name: "fs", Type: types.MkDynamic(FileSystemName)},
		},
		Methods: map[string]*ProcInfo{},
		Builtin: true,
	})
}

func (c *ClassInfo) add(p *ProcInfo) {
	c.Methods[p.Name] = p
	c.Order = append(c.Order, p.Name)
}

func (st *StateInfo) add(p *ProcInfo) {
	st.Methods[p.Name] = p
}

// AddMethod registers a class method keeping declaration order.
func (c *ClassInfo) AddMethod(p *ProcInfo) bool {
	if _, dup := c.Methods[p.Name]; dup {
		return false
	}
	c.add(p)
	return true
}

var (
	stringMethods = map[string]*ProcInfo{}
	bytesMethods  = map[string]*ProcInfo{}
)

func init() {
	str := types.MkString(types.StrNoState)
	view := types.MkString(types.StrView)
	managed := types.MkString(types.StrManaged)
	for _, p := range []*ProcInfo{
		builtinMethod(types.Path{"string"}, "", "len", constSelf(str), types.USize),
		builtinMethod(types.Path{"string"}, "", "as_view", constSelf(str), view),
		builtinMethod(types.Path{"string"}, "", "to_managed", constSelf(str), managed,
			param("heap", constSelf(types.MkDynamic(HeapAllocatorName)))),
		builtinMethod(types.Path{"string"}, "", "drop_managed", managed, types.Unit),
	} {
		stringMethods[p.Name] = p
	}
	bstr := types.MkBytes(types.StrNoState)
	for _, p := range []*ProcInfo{
		builtinMethod(types.Path{"bytes"}, "", "len", constSelf(bstr), types.USize),
		builtinMethod(types.Path{"bytes"}, "", "as_view", constSelf(bstr), types.MkBytes(types.StrView)),
		builtinMethod(types.Path{"bytes"}, "", "drop_managed", types.MkBytes(types.StrManaged), types.Unit),
	} {
		bytesMethods[p.Name] = p
	}
}

// StringMethod looks up a builtin method on string values.
func StringMethod(name string) (*ProcInfo, bool) {
	p, ok := stringMethods[name]
	return p, ok
}

// BytesMethod looks up a builtin method on bytes values.
func BytesMethod(name string) (*ProcInfo, bool) {
	p, ok := bytesMethods[name]
	return p, ok
}

// BuiltinStringProcs returns the builtin string and bytes methods in a stable order.
func BuiltinStringProcs() []*ProcInfo {
	out := make([]*ProcInfo, 0, len(stringMethods)+len(bytesMethods))
	for _, name := range []string{"len", "as_view", "to_managed", "drop_managed"} {
		out = append(out, stringMethods[name])
	}
	for _, name := range []string{"len", "as_view", "drop_managed"} {
		out = append(out, bytesMethods[name])
	}
	return out
}
