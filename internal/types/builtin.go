package types

// Primitive names with fixed layouts.
var primNames = map[string]struct{}{
	"i8": {}, "i16": {}, "i32": {}, "i64": {}, "i128": {}, "isize": {},
	"u8": {}, "u16": {}, "u32": {}, "u64": {}, "u128": {}, "usize": {},
	"f16": {}, "f32": {}, "f64": {},
	"bool": {}, "char": {}, "()": {}, "!": {},
}

// IsPrimName reports whether name spells a primitive type.
func IsPrimName(name string) bool {
	_, ok := primNames[name]
	return ok
}

var (
	Unit  Type = &Prim{Name: "()"}
	Never Type = &Prim{Name: "!"}
	Bool  Type = &Prim{Name: "bool"}
	Char  Type = &Prim{Name: "char"}
	I8    Type = &Prim{Name: "i8"}
	I16   Type = &Prim{Name: "i16"}
	I32   Type = &Prim{Name: "i32"}
	I64   Type = &Prim{Name: "i64"}
	I128  Type = &Prim{Name: "i128"}
	U8    Type = &Prim{Name: "u8"}
	U16   Type = &Prim{Name: "u16"}
	U32   Type = &Prim{Name: "u32"}
	U64   Type = &Prim{Name: "u64"}
	U128  Type = &Prim{Name: "u128"}
	USize Type = &Prim{Name: "usize"}
	ISize Type = &Prim{Name: "isize"}
	F16   Type = &Prim{Name: "f16"}
	F32   Type = &Prim{Name: "f32"}
	F64   Type = &Prim{Name: "f64"}
)

// MkPrim returns the primitive named name.
func MkPrim(name string) Type { return &Prim{Name: name} }

// MkPerm qualifies base with p, replacing any permission already on base.
func MkPerm(p Permission, base Type) Type {
	return &Perm{Perm: p, Base: StripPerm(base)}
}

// MkTuple builds a tuple; the empty tuple is the unit type.
func MkTuple(elems ...Type) Type {
	if len(elems) == 0 {
		return Unit
	}
	return &Tuple{Elems: elems}
}

func MkPtr(elem Type, st PtrState) Type { return &Ptr{Elem: elem, State: st} }

func MkArray(elem Type, n uint64) Type { return &Array{Elem: elem, Len: n} }

func MkSlice(elem Type) Type { return &Slice{Elem: elem} }

func MkNamed(path ...string) Type { return &Named{Path: path} }

func MkState(path Path, state string) Type { return &ModalState{Path: path, State: state} }

func MkFunc(ret Type, params ...FuncParam) Type { return &Func{Params: params, Ret: ret} }

func MkString(st StrState) Type { return &Str{State: st} }

func MkBytes(st StrState) Type { return &Bytes{State: st} }

func MkDynamic(class ...string) Type { return &Dynamic{Class: class} }
