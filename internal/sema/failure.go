package sema

import (
	"errors"
	"fmt"

	"cursive0/internal/diag"
	"cursive0/internal/source"
)

// failure aborts checking of the current declaration. It carries the
// diagnostic that is reported once the declaration unwinds.
type failure struct {
	code  diag.Code
	span  source.Span
	msg   string
	notes []diag.Note
}

func (f *failure) Error() string {
	if f.msg == "" {
		return f.code.ID()
	}
	return f.code.ID() + ": " + f.msg
}

func (f *failure) withNote(sp source.Span, msg string) *failure {
	f.notes = append(f.notes, diag.Note{Span: sp, Msg: msg})
	return f
}

func failf(code diag.Code, span source.Span, format string, args ...any) *failure {
	return &failure{code: code, span: span, msg: fmt.Sprintf(format, args...)}
}

// Code extracts the diagnostic code of a checker error.
func Code(err error) (diag.Code, bool) {
	var f *failure
	if errors.As(err, &f) {
		return f.code, true
	}
	return diag.UnknownCode, false
}

func asFailure(err error, f **failure) bool { return errors.As(err, f) }
