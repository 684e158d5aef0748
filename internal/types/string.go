package types

import (
	"strconv"
	"strings"

	"cursive0/internal/ast"
)

func (p Path) String() string { return strings.Join(p, "::") }

func (t *Prim) String() string { return t.Name }

func (t *Perm) String() string { return t.Perm.String() + " " + t.Base.String() }

func (t *Ptr) String() string {
	s := "Ptr<" + t.Elem.String() + ">"
	if t.State != PtrNoState {
		s += "@" + t.State.String()
	}
	return s
}

func (t *RawPtr) String() string {
	if t.Qual == RawMut {
		return "*mut " + t.Elem.String()
	}
	return "*imm " + t.Elem.String()
}

func (t *Tuple) String() string {
	s := "(" + joinTypes(t.Elems, ", ")
	if len(t.Elems) == 1 {
		s += ","
	}
	return s + ")"
}

func (t *Array) String() string {
	return "[" + t.Elem.String() + "; " + strconv.FormatUint(t.Len, 10) + "]"
}

func (t *Slice) String() string { return "[" + t.Elem.String() + "]" }

func (t *Union) String() string { return joinTypes(t.Members, " | ") }

func (t *Func) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, p := range t.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Mode == ModeMove {
			sb.WriteString("move ")
		}
		sb.WriteString(p.Type.String())
	}
	sb.WriteString(") -> ")
	sb.WriteString(t.Ret.String())
	return sb.String()
}

func (t *Str) String() string {
	if t.State == StrNoState {
		return "string"
	}
	return "string@" + t.State.String()
}

func (t *Bytes) String() string {
	if t.State == StrNoState {
		return "bytes"
	}
	return "bytes@" + t.State.String()
}

func (t *Dynamic) String() string { return "$" + t.Class.String() }

func (t *Named) String() string { return t.Path.String() + genericSuffix(t.Args) }

func (t *ModalState) String() string {
	return t.Path.String() + genericSuffix(t.Args) + "@" + t.State
}

func (t *Refine) String() string {
	return t.Base.String() + " where {" + ast.String(t.Pred) + "}"
}

func (t *Opaque) String() string {
	return "opaque " + t.Class.String() + "#" + strconv.FormatUint(uint64(t.Origin), 10)
}

func (*Range) String() string { return "Range" }

func (t *TypeParam) String() string { return t.Name }

func genericSuffix(args []Type) string {
	if len(args) == 0 {
		return ""
	}
	return "<" + joinTypes(args, ", ") + ">"
}

func joinTypes(list []Type, sep string) string {
	parts := make([]string, len(list))
	for i, t := range list {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}
