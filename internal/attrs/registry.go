// Package attrs holds the attribute registry. A Registry is built
// explicitly and passed to the passes that need it.
package attrs

import (
	"slices"
	"strconv"
	"strings"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
)

// Target describes the declaration kinds an attribute may be applied to.
type Target uint8

const (
	TargetNone   Target = 0
	TargetProc   Target = 1 << iota // procedures and methods
	TargetRecord                    // record declarations
	TargetEnum                      // enum declarations
	TargetModal                     // modal declarations
)

const TargetType = TargetRecord | TargetEnum | TargetModal

// Spec describes one attribute.
type Spec struct {
	Name    string
	Targets Target
	// Args is the exact argument count, -1 for any.
	Args int
}

func (s Spec) Allows(t Target) bool { return s.Targets&t != 0 }

// Known attribute names.
const (
	Dynamic = "dynamic"
	Repr    = "repr"
	Align   = "align"
	Packed  = "packed"
	Entry   = "entry"
	Inline  = "inline"
	Cold    = "cold"
)

type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds a registry from specs; later specs replace earlier ones.
func NewRegistry(specs ...Spec) *Registry {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		r.specs[s.Name] = s
	}
	return r
}

// Default returns the registry of the builtin attributes.
func Default() *Registry {
	return NewRegistry(
		Spec{Name: Dynamic, Targets: TargetProc | TargetType, Args: 0},
		Spec{Name: Repr, Targets: TargetType, Args: 1},
		Spec{Name: Align, Targets: TargetType, Args: 1},
		Spec{Name: Packed, Targets: TargetRecord, Args: 0},
		Spec{Name: Entry, Targets: TargetProc, Args: 0},
		Spec{Name: Inline, Targets: TargetProc, Args: -1},
		Spec{Name: Cold, Targets: TargetProc, Args: 0},
	)
}

// Lookup returns the spec for name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	if r == nil {
		return Spec{}, false
	}
	s, ok := r.specs[name]
	return s, ok
}

// Names lists registered attributes in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for name := range r.specs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// HasAttribute reports whether list contains an attribute named name.
func HasAttribute(list []ast.Attr, name string) bool {
	_, ok := ast.FindAttr(list, name)
	return ok
}

// Validate checks names, targets and argument counts, and the
// packed/align conflict. It returns false if anything was reported.
func (r *Registry) Validate(rep diag.Reporter, list []ast.Attr, target Target) bool {
	ok := true
	for _, a := range list {
		spec, known := r.Lookup(a.Name)
		if !known {
			diag.ReportError(rep, diag.AttrUnknown, a.Span, "unknown attribute "+a.Name).Emit()
			ok = false
			continue
		}
		if !spec.Allows(target) {
			diag.ReportError(rep, diag.AttrTarget, a.Span, "attribute "+a.Name+" is not allowed here").Emit()
			ok = false
			continue
		}
		if spec.Args >= 0 && len(a.Args) != spec.Args {
			diag.ReportError(rep, diag.AttrTarget, a.Span,
				"attribute "+a.Name+" expects "+strconv.Itoa(spec.Args)+" argument(s)").Emit()
			ok = false
		}
	}
	if HasAttribute(list, Packed) && HasAttribute(list, Align) {
		a, _ := ast.FindAttr(list, Align)
		diag.ReportError(rep, diag.LayoutAttrConflict, a.Span, "packed and align cannot be combined").Emit()
		ok = false
	}
	return ok
}

// AlignOf returns the value of an `align(N)` attribute. N must be a
// positive power of two.
func AlignOf(list []ast.Attr) (uint64, bool) {
	a, ok := ast.FindAttr(list, Align)
	if !ok || len(a.Args) != 1 {
		return 0, false
	}
	lit, ok := a.Args[0].(*ast.Literal)
	if !ok || lit.Kind != ast.LitInt {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.ReplaceAll(lit.Text, "_", ""), 0, 64)
	if err != nil || n == 0 || n&(n-1) != 0 {
		return 0, false
	}
	return n, true
}

// IsPacked reports a `packed` attribute.
func IsPacked(list []ast.Attr) bool { return HasAttribute(list, Packed) }

// ReprOf returns the identifier argument of `repr(X)`.
func ReprOf(list []ast.Attr) (string, bool) {
	a, ok := ast.FindAttr(list, Repr)
	if !ok || len(a.Args) != 1 {
		return "", false
	}
	if id, ok := a.Args[0].(*ast.Ident); ok {
		return id.Name, true
	}
	return "", false
}
