// Package testkit holds invariant checkers shared by the package tests.
package testkit

import (
	"strconv"
	"strings"
	"testing"

	"cursive0/internal/attrs"
	"cursive0/internal/layout"
	"cursive0/internal/types"
)

// CheckLayoutInvariants computes the layout of each type and fails tb
// unless:
//   - the alignment is a power of two and divides the size;
//   - field offsets are non-decreasing and every field fits in the value;
//   - each field of a tuple or non-generic unpacked record is aligned.
//
// Case payloads are checked recursively for the first two properties.
func CheckLayoutInvariants(tb testing.TB, le *layout.LayoutEngine, ts ...types.Type) {
	tb.Helper()
	for _, t := range ts {
		l, err := le.LayoutOf(t)
		if err != nil {
			tb.Errorf("layout of %s: %v", t, err)
			continue
		}
		checkShape(tb, t.String(), l)
		fields, aligned := fieldTypes(le, t)
		if fields == nil || len(fields) != len(l.FieldOffsets) {
			continue
		}
		for i, ft := range fields {
			fl, err := le.LayoutOf(ft)
			if err != nil {
				tb.Errorf("%s: field %d: %v", t, i, err)
				continue
			}
			off := l.FieldOffsets[i]
			if off+fl.Size > l.Size {
				tb.Errorf("%s: field %d at %d+%d overruns size %d", t, i, off, fl.Size, l.Size)
			}
			if aligned && off%fl.Align != 0 {
				tb.Errorf("%s: field %d at %d is not %d-aligned", t, i, off, fl.Align)
			}
		}
	}
}

func checkShape(tb testing.TB, name string, l layout.TypeLayout) {
	tb.Helper()
	if l.Align == 0 || l.Align&(l.Align-1) != 0 {
		tb.Errorf("%s: align %d is not a power of two", name, l.Align)
		return
	}
	if l.Size%l.Align != 0 {
		tb.Errorf("%s: size %d is not a multiple of align %d", name, l.Size, l.Align)
	}
	for i := 1; i < len(l.FieldOffsets); i++ {
		if l.FieldOffsets[i] < l.FieldOffsets[i-1] {
			tb.Errorf("%s: offsets %v are not monotone", name, l.FieldOffsets)
			break
		}
	}
	if tag := l.Tag; tag != nil && tag.PayloadOffset+tag.PayloadSize > l.Size {
		tb.Errorf("%s: payload at %d+%d overruns size %d", name, tag.PayloadOffset, tag.PayloadSize, l.Size)
	}
	for i, c := range l.Cases {
		checkShape(tb, name+"#"+strconv.Itoa(i), c)
	}
}

// fieldTypes returns the field types of tuples and records. aligned is
// false for packed records.
func fieldTypes(le *layout.LayoutEngine, t types.Type) ([]types.Type, bool) {
	switch x := t.(type) {
	case *types.Tuple:
		return x.Elems, true
	case *types.Named:
		if le.Sigma == nil || len(x.Args) > 0 {
			return nil, false
		}
		rec, ok := le.Sigma.Record(x.Path)
		if !ok || len(rec.TypeParams) > 0 {
			return nil, false
		}
		out := make([]types.Type, len(rec.Fields))
		for i, f := range rec.Fields {
			out[i] = f.Type
		}
		return out, !attrs.HasAttribute(rec.Attrs, attrs.Packed)
	}
	return nil, false
}

// CheckDeterministic runs f n times and fails tb when any run differs
// from the first, reporting the first differing line.
func CheckDeterministic(tb testing.TB, n int, f func() string) {
	tb.Helper()
	want := f()
	for run := 1; run < n; run++ {
		got := f()
		if got == want {
			continue
		}
		gl, wl := strings.Split(got, "\n"), strings.Split(want, "\n")
		for i := range max(len(gl), len(wl)) {
			var g, w string
			if i < len(gl) {
				g = gl[i]
			}
			if i < len(wl) {
				w = wl[i]
			}
			if g != w {
				tb.Fatalf("run %d differs at line %d:\n got %q\nwant %q", run+1, i+1, g, w)
				return
			}
		}
	}
}
