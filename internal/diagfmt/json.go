package diagfmt

import (
	"encoding/json"
	"io"

	"cursive0/internal/diag"
	"cursive0/internal/source"
)

// Position is a 1-based line and column.
type Position struct {
	Line uint32 `json:"line"`
	Col  uint32 `json:"col"`
}

// Location is a byte range with optional resolved positions.
type Location struct {
	File  string    `json:"file"`
	Bytes [2]uint32 `json:"bytes"`
	Start *Position `json:"start,omitempty"`
	End   *Position `json:"end,omitempty"`
}

type NoteRecord struct {
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

type Record struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location Location     `json:"location"`
	Notes    []NoteRecord `json:"notes,omitempty"`
}

// Report is the document written by JSON. Truncated counts the
// diagnostics left out by JSONOpts.Max or by the bag limit.
type Report struct {
	Diagnostics []Record `json:"diagnostics"`
	Count       int      `json:"count"`
	Truncated   int      `json:"truncated,omitempty"`
}

type locator struct {
	fs   *source.FileSet
	opts JSONOpts
}

func (l locator) at(span source.Span) Location {
	loc := Location{
		File:  formatPath(l.fs.Get(span.File), l.opts.PathMode, l.opts.BaseDir),
		Bytes: [2]uint32{span.Start, span.End},
	}
	if l.opts.IncludePositions {
		s, e := l.fs.Resolve(span)
		loc.Start = &Position{s.Line, s.Col}
		loc.End = &Position{e.Line, e.Col}
	}
	return loc
}

// BuildReport converts bag without serializing it.
func BuildReport(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) Report {
	items := bag.Items()
	if opts.Max > 0 && len(items) > opts.Max {
		items = items[:opts.Max]
	}
	l := locator{fs: fs, opts: opts}
	rep := Report{Diagnostics: make([]Record, 0, len(items))}
	for _, d := range items {
		r := Record{Severity: d.Severity.String(), Code: d.ID(), Message: d.Message, Location: l.at(d.Primary)}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				r.Notes = append(r.Notes, NoteRecord{Message: n.Msg, Location: l.at(n.Span)})
			}
		}
		rep.Diagnostics = append(rep.Diagnostics, r)
	}
	rep.Count = len(rep.Diagnostics)
	rep.Truncated = bag.Len() - rep.Count + bag.Dropped()
	return rep
}

func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildReport(bag, fs, opts))
}
