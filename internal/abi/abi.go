// Package abi decides how values cross procedure boundaries: by value, by
// reference through an opaque pointer, or through a hidden struct-return
// pointer. Zero-sized values are not passed at all.
package abi

import (
	"fmt"
	"strings"

	"cursive0/internal/layout"
	"cursive0/internal/types"
)

// PassKind is the physical passing convention of one value.
type PassKind uint8

const (
	// PassIgnore: the value is zero-sized and has no physical slot.
	PassIgnore PassKind = iota
	PassByValue
	// PassByRef passes a pointer to caller-owned storage.
	PassByRef
	// PassSRet returns through a hidden first pointer parameter.
	PassSRet
)

func (k PassKind) String() string {
	switch k {
	case PassIgnore:
		return "ignore"
	case PassByValue:
		return "value"
	case PassByRef:
		return "ref"
	case PassSRet:
		return "sret"
	}
	return fmt.Sprintf("PassKind(%d)", k)
}

// Param is one logical parameter of a signature.
type Param struct {
	Name string
	Mode types.ParamMode
	Type types.Type
}

// ArgInfo is the classification of one parameter or of the return value.
type ArgInfo struct {
	Kind  PassKind
	Type  types.Type
	Size  uint64
	Align uint64
	// Attrs apply to the physical pointer for by-ref and sret slots, and
	// to pointer-typed by-value parameters.
	Attrs PtrAttrs
}

// CallABI is the physical shape of a call.
type CallABI struct {
	Params []ArgInfo
	Ret    ArgInfo
	// Panics adds the panic-out pointer as the last physical parameter.
	Panics bool
}

// HasSRet reports whether the first physical parameter is the return slot.
func (c CallABI) HasSRet() bool { return c.Ret.Kind == PassSRet }

// PhysicalParams counts the parameters of the lowered function,
// including the hidden sret and panic-out pointers.
func (c CallABI) PhysicalParams() int {
	n := 0
	if c.HasSRet() {
		n++
	}
	for _, p := range c.Params {
		if p.Kind != PassIgnore {
			n++
		}
	}
	if c.Panics {
		n++
	}
	return n
}

func (c CallABI) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, p := range c.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", p.Kind, p.Type)
	}
	if c.Panics {
		if len(c.Params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("panic-out")
	}
	fmt.Fprintf(&sb, ") -> %s %s", c.Ret.Kind, c.Ret.Type)
	return sb.String()
}

// ComputeCallABI classifies params and ret with cl, using le for sizes.
// The first failing slot stops classification.
func ComputeCallABI(le *layout.LayoutEngine, cl Classifier, params []Param, ret types.Type, panics bool) (CallABI, error) {
	if cl == nil {
		cl = SysV{}
	}
	out := CallABI{Params: make([]ArgInfo, 0, len(params)), Panics: panics}
	for i, p := range params {
		l, err := le.LayoutOf(p.Type)
		if err != nil {
			return CallABI{}, &Error{Kind: ErrLayout, Slot: i, Name: p.Name, Type: p.Type, Err: err}
		}
		info := ArgInfo{Type: p.Type, Size: l.Size, Align: l.Align}
		if l.Size == 0 {
			info.Kind = PassIgnore
		} else {
			info.Kind = cl.Param(p.Mode, p.Type, l)
		}
		switch info.Kind {
		case PassIgnore, PassByValue:
			info.Attrs = AddPtrAttributes(le, p.Type)
		case PassByRef:
			info.Attrs = refAttributes(p.Mode, p.Type, l)
		default:
			return CallABI{}, &Error{Kind: ErrClassify, Slot: i, Name: p.Name, Type: p.Type,
				Err: fmt.Errorf("parameter classified as %s", info.Kind)}
		}
		out.Params = append(out.Params, info)
	}

	if ret == nil {
		ret = types.Unit
	}
	l, err := le.LayoutOf(ret)
	if err != nil {
		return CallABI{}, &Error{Kind: ErrLayout, Slot: SlotReturn, Type: ret, Err: err}
	}
	out.Ret = ArgInfo{Type: ret, Size: l.Size, Align: l.Align}
	if l.Size == 0 {
		return out, nil
	}
	out.Ret.Kind = cl.Return(ret, l)
	switch out.Ret.Kind {
	case PassByValue:
	case PassSRet:
		out.Ret.Attrs = PtrAttrs{NoAlias: true, NonNull: true, Dereferenceable: l.Size, Align: l.Align}
	default:
		return CallABI{}, &Error{Kind: ErrClassify, Slot: SlotReturn, Type: ret,
			Err: fmt.Errorf("return classified as %s", out.Ret.Kind)}
	}
	return out, nil
}
