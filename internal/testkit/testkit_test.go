package testkit

import (
	"fmt"
	"testing"

	"cursive0/internal/layout"
	"cursive0/internal/symbols"
	"cursive0/internal/types"
)

// recorder captures failures instead of failing the test.
type recorder struct {
	testing.TB
	errs []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}

func (r *recorder) Fatalf(format string, args ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}

func TestLayoutInvariantsHoldForCoreTypes(t *testing.T) {
	sigma := symbols.NewSigma()
	symbols.RegisterBuiltins(sigma)
	sigma.AddType(&symbols.RecordInfo{Path: types.Path{"R"}, Fields: []symbols.FieldInfo{
		{Name: "a", Type: types.U8}, {Name: "b", Type: types.U64}, {Name: "c", Type: types.U16},
	}})
	le := layout.New(layout.X86_64LinuxGNU(), sigma)
	CheckLayoutInvariants(t, le,
		types.Unit, types.Bool, types.I128, types.USize,
		types.MkTuple(types.U8, types.I32, types.U8),
		types.MkArray(types.U16, 3),
		types.MkNamed("R"),
	)
}

func TestLayoutInvariantsReportUnknownTypes(t *testing.T) {
	le := layout.New(layout.X86_64LinuxGNU(), symbols.NewSigma())
	r := &recorder{TB: t}
	CheckLayoutInvariants(r, le, types.MkNamed("Missing"))
	if len(r.errs) != 1 {
		t.Fatalf("errors = %v", r.errs)
	}
}

func TestCheckDeterministic(t *testing.T) {
	CheckDeterministic(t, 3, func() string { return "a\nb" })

	n := 0
	r := &recorder{TB: t}
	CheckDeterministic(r, 2, func() string {
		n++
		return fmt.Sprintf("same\nrun %d", n)
	})
	if len(r.errs) != 1 {
		t.Fatalf("errors = %v", r.errs)
	}
}
