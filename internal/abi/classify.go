package abi

import (
	"cursive0/internal/layout"
	"cursive0/internal/types"
)

// Classifier chooses the passing convention of a sized value. Zero-sized
// values never reach it.
type Classifier interface {
	Param(mode types.ParamMode, t types.Type, l layout.TypeLayout) PassKind
	Return(t types.Type, l layout.TypeLayout) PassKind
}

// DefaultMaxDirect is the largest value passed in registers.
const DefaultMaxDirect = 16

// SysV approximates the x86-64 System V rules: anything up to two
// eightbytes travels directly, larger values go through memory.
type SysV struct {
	MaxDirect uint64
}

func (s SysV) limit() uint64 {
	if s.MaxDirect == 0 {
		return DefaultMaxDirect
	}
	return s.MaxDirect
}

func (s SysV) Param(_ types.ParamMode, t types.Type, l layout.TypeLayout) PassKind {
	if scalar(t) || l.Size <= s.limit() {
		return PassByValue
	}
	return PassByRef
}

func (s SysV) Return(t types.Type, l layout.TypeLayout) PassKind {
	if scalar(t) || l.Size <= s.limit() {
		return PassByValue
	}
	return PassSRet
}

// scalar types travel directly whatever their size.
func scalar(t types.Type) bool {
	switch types.StripRefine(t).(type) {
	case *types.Prim, *types.Ptr, *types.RawPtr, *types.Func:
		return true
	}
	return false
}

// ClassifierFunc adapts a single function to Classifier.
type ClassifierFunc func(ret bool, mode types.ParamMode, t types.Type, l layout.TypeLayout) PassKind

func (f ClassifierFunc) Param(mode types.ParamMode, t types.Type, l layout.TypeLayout) PassKind {
	return f(false, mode, t, l)
}

func (f ClassifierFunc) Return(t types.Type, l layout.TypeLayout) PassKind {
	return f(true, types.ModeCopy, t, l)
}
