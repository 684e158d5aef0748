package llvm

import (
	"errors"
	"fmt"
)

type CodegenErrorKind uint8

const (
	// CodegenLayout: a type has no layout.
	CodegenLayout CodegenErrorKind = iota + 1
	// CodegenABI: a signature could not be classified.
	CodegenABI
	// CodegenUnsupported: the node has no native lowering.
	CodegenUnsupported
	// CodegenInvalid: the IR is malformed.
	CodegenInvalid
)

func (k CodegenErrorKind) String() string {
	switch k {
	case CodegenLayout:
		return "layout"
	case CodegenABI:
		return "abi"
	case CodegenUnsupported:
		return "unsupported"
	case CodegenInvalid:
		return "invalid"
	}
	return fmt.Sprintf("CodegenErrorKind(%d)", k)
}

// CodegenError is one failure recorded while emitting. The emitter keeps
// going with a placeholder after each one.
type CodegenError struct {
	Kind CodegenErrorKind
	Proc string
	Msg  string
	Err  error
}

func (e *CodegenError) Error() string {
	where := ""
	if e.Proc != "" {
		where = e.Proc + ": "
	}
	if e.Err != nil {
		return fmt.Sprintf("codegen %s: %s%s: %v", e.Kind, where, e.Msg, e.Err)
	}
	return fmt.Sprintf("codegen %s: %s%s", e.Kind, where, e.Msg)
}

func (e *CodegenError) Unwrap() error { return e.Err }

// ReportCodegenFailure records err against the procedure being emitted.
func (e *Emitter) ReportCodegenFailure(err *CodegenError) {
	if err.Proc == "" && e.curProc != "" {
		err.Proc = e.curProc
	}
	e.failures = append(e.failures, err)
}

func (e *Emitter) failf(kind CodegenErrorKind, cause error, format string, args ...any) {
	e.ReportCodegenFailure(&CodegenError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause})
}

// Failures returns the recorded errors in emission order.
func (e *Emitter) Failures() []*CodegenError { return e.failures }

func (e *Emitter) joinFailures() error {
	if len(e.failures) == 0 {
		return nil
	}
	errs := make([]error, len(e.failures))
	for i, f := range e.failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
