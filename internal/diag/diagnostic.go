package diag

import (
	"cursive0/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

// ID returns the stable identifier of the diagnostic's code.
func (d Diagnostic) ID() string {
	return d.Code.ID()
}

func (d Diagnostic) Error() string {
	return d.Code.ID() + ": " + d.Message
}
