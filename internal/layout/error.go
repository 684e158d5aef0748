package layout

import (
	"fmt"
	"strings"

	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/types"
)

// LayoutErrorKind enumerates the reasons a layout is unknown.
type LayoutErrorKind uint8

const (
	LayoutErrUnknownPath LayoutErrorKind = iota + 1
	LayoutErrRecursive
	LayoutErrUnresolved
	LayoutErrAttrConflict
	LayoutErrOverflow
	LayoutErrDiscriminant
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.Type
	Cycle []string // for LayoutErrRecursive
	// for LayoutErrDiscriminant
	Code diag.Code
	Span source.Span
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := "?"
	if e.Type != nil {
		name = e.Type.String()
	}
	switch e.Kind {
	case LayoutErrUnknownPath:
		return fmt.Sprintf("no declaration for %s", name)
	case LayoutErrRecursive:
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrUnresolved:
		return fmt.Sprintf("type %s has no concrete layout", name)
	case LayoutErrAttrConflict:
		return fmt.Sprintf("packed conflicts with align on %s", name)
	case LayoutErrOverflow:
		return fmt.Sprintf("size of %s overflows", name)
	case LayoutErrDiscriminant:
		return fmt.Sprintf("invalid discriminants in %s: %s", name, e.Code.ID())
	default:
		return fmt.Sprintf("layout error kind=%d type %s", e.Kind, name)
	}
}

// DiagCode maps the error to a diagnostic code.
func (e *LayoutError) DiagCode() diag.Code {
	switch e.Kind {
	case LayoutErrAttrConflict:
		return diag.LayoutAttrConflict
	case LayoutErrRecursive:
		return diag.TypeAliasRecursive
	case LayoutErrDiscriminant:
		return e.Code
	}
	return diag.LayoutUnknown
}
