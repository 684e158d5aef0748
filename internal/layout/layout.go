package layout

import (
	"cursive0/internal/ast"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  uint64
	Align uint64

	// Tuple, record and range:
	FieldOffsets []uint64

	// Enum, modal, union and unknown-state string/bytes:
	Tag *TagInfo
	// Niche is set when the value is represented by its single informative
	// payload field with no discriminant.
	Niche bool
	// NicheCase is the index of the informative case when Niche is set.
	NicheCase int
	// Cases holds the payload layout of each variant, state or member, in
	// declaration order.
	Cases []TypeLayout
}

// TagInfo describes an explicit discriminant followed by a payload.
type TagInfo struct {
	DiscType      types.Type
	DiscSize      uint64
	PayloadSize   uint64
	PayloadAlign  uint64
	PayloadOffset uint64
}

// OpaqueResolver yields the inferred underlying type of an opaque return.
type OpaqueResolver func(origin ast.NodeID) (types.Type, bool)

// LayoutEngine computes memory layout for types. It is not safe for
// concurrent use; create one per worker.
type LayoutEngine struct {
	Target Target
	Sigma  *symbols.Sigma
	Opaque OpaqueResolver

	cache *memo
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, sigma *symbols.Sigma) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		Sigma:  sigma,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []string
	index map[string]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		index: make(map[string]int, 16),
	}
}

// LayoutOf computes and caches the layout of a type. Failures are not cached.
func (e *LayoutEngine) LayoutOf(t types.Type) (TypeLayout, error) {
	if e.cache == nil {
		e.cache = newCache()
	}
	l, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return TypeLayout{}, err
	}
	return l, nil
}

func (e *LayoutEngine) layoutOf(t types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	if t == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	key := types.Key(t)
	if cached, ok := e.cache.get(key); ok {
		return cached, nil
	}
	if idx, ok := state.index[key]; ok {
		cycle := append(append([]string(nil), state.stack[idx:]...), key)
		return TypeLayout{}, &LayoutError{Kind: LayoutErrRecursive, Type: t, Cycle: cycle}
	}

	state.index[key] = len(state.stack)
	state.stack = append(state.stack, key)
	l, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, key)

	if err == nil {
		e.cache.put(key, l)
	}
	return l, err
}

// SizeOf returns the size of a type in bytes.
func (e *LayoutEngine) SizeOf(t types.Type) (uint64, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t types.Type) (uint64, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a record or tuple field.
func (e *LayoutEngine) FieldOffset(t types.Type, fieldIdx int) (uint64, error) {
	l, err := e.LayoutOf(t)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}

// RecordLayoutOf is LayoutOf for a declared record path.
func (e *LayoutEngine) RecordLayoutOf(path ...string) (TypeLayout, error) {
	return e.LayoutOf(types.MkNamed(path...))
}
