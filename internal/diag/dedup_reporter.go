package diag

import "cursive0/internal/source"

type dedupKey struct {
	code Code
	sev  Severity
	span source.Span
	msg  string
}

// DedupReporter forwards each distinct diagnostic once. Two reports are
// the same when code, severity, primary span and message all match.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

func Dedup(next Reporter) *DedupReporter {
	if next == nil {
		next = NopReporter{}
	}
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	k := dedupKey{code, sev, primary, msg}
	if _, dup := r.seen[k]; dup {
		return
	}
	r.seen[k] = struct{}{}
	r.next.Report(code, sev, primary, msg, notes)
}

// Suppressed reports whether a diagnostic like this one was forwarded.
func (r *DedupReporter) Suppressed(d Diagnostic) bool {
	_, ok := r.seen[dedupKey{d.Code, d.Severity, d.Primary, d.Message}]
	return ok
}
