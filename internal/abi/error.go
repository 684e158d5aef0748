package abi

import (
	"fmt"

	"cursive0/internal/types"
)

type ErrorKind uint8

const (
	// ErrLayout: a slot type has no layout.
	ErrLayout ErrorKind = iota + 1
	// ErrClassify: the classifier returned a kind that is invalid for the slot.
	ErrClassify
)

// SlotReturn is the Slot of the return value.
const SlotReturn = -1

// Error is an ABI classification failure for one slot of a signature.
type Error struct {
	Kind ErrorKind
	Slot int
	Name string
	Type types.Type
	Err  error
}

func (e *Error) Error() string {
	where := "return value"
	if e.Slot != SlotReturn {
		where = fmt.Sprintf("parameter %d", e.Slot)
		if e.Name != "" {
			where += " (" + e.Name + ")"
		}
	}
	ty := "?"
	if e.Type != nil {
		ty = e.Type.String()
	}
	return fmt.Sprintf("abi: %s of type %s: %v", where, ty, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
