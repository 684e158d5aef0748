package types

import "fmt"

// Kind enumerates the variants of Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPrim
	KindPerm
	KindPtr
	KindRawPtr
	KindTuple
	KindArray
	KindSlice
	KindUnion
	KindFunc
	KindString
	KindBytes
	KindDynamic
	KindPath
	KindModalState
	KindRefine
	KindOpaque
	KindRange
	KindTypeParam
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindPrim:       "prim",
	KindPerm:       "perm",
	KindPtr:        "ptr",
	KindRawPtr:     "rawptr",
	KindTuple:      "tuple",
	KindArray:      "array",
	KindSlice:      "slice",
	KindUnion:      "union",
	KindFunc:       "func",
	KindString:     "string",
	KindBytes:      "bytes",
	KindDynamic:    "dynamic",
	KindPath:       "path",
	KindModalState: "modal-state",
	KindRefine:     "refine",
	KindOpaque:     "opaque",
	KindRange:      "range",
	KindTypeParam:  "type-param",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}
