package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"cursive0/internal/diag"
	"cursive0/internal/source"
)

type palette struct {
	err, warn, info, note, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgBlue, color.Bold),
		note:  color.New(color.FgCyan),
		caret: color.New(color.FgGreen, color.Bold),
		bold:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes each diagnostic of bag as
//
//	<path>:<line>:<col>: <SEV> <ID>: <message>
//
// followed by the source line and a caret underline of the span, then
// its notes when ShowNotes is set. bag is expected to be sorted.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	for _, d := range bag.Items() {
		if err := writeHeader(w, fs, d, opts, pal); err != nil {
			return err
		}
		if err := writeExcerpt(w, fs, d.Primary, opts, pal); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			loc := location(fs, n.Span, opts)
			if _, err := fmt.Fprintf(w, "  %s %s: %s\n", pal.note.Sprint("note"), loc, n.Msg); err != nil {
				return err
			}
			if err := writeExcerpt(w, fs, n.Span, opts, pal); err != nil {
				return err
			}
		}
	}
	return nil
}

// Short writes one line per diagnostic, without source excerpts.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	for _, d := range bag.Items() {
		if err := writeHeader(w, fs, d, opts, pal); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, fs *source.FileSet, d diag.Diagnostic, opts PrettyOpts, pal palette) error {
	_, err := fmt.Fprintf(w, "%s: %s %s: %s\n",
		location(fs, d.Primary, opts),
		pal.severity(d.Severity).Sprint(d.Severity.String()),
		pal.bold.Sprint(d.ID()),
		d.Message)
	return err
}

func location(fs *source.FileSet, sp source.Span, opts PrettyOpts) string {
	f := fs.Get(sp.File)
	if f == nil || sp == (source.Span{}) {
		return "<unknown>"
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", formatPath(f, opts.PathMode, opts.BaseDir), start.Line, start.Col)
}

// writeExcerpt prints the first line of sp and underlines the part of it
// the span covers. Columns are measured in display cells.
func writeExcerpt(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts, pal palette) error {
	f := fs.Get(sp.File)
	if f == nil || sp == (source.Span{}) {
		return nil
	}
	start, end := fs.Resolve(sp)
	line := f.GetLine(start.Line)
	tab := opts.TabWidth
	if tab <= 0 {
		tab = 4
	}
	from := min(int(start.Col-1), len(line))
	to := len(line)
	if end.Line == start.Line {
		to = min(int(end.Col-1), len(line))
	}
	to = max(to, from)

	gutter := fmt.Sprintf("%d", start.Line)
	pad := strings.Repeat(" ", len(gutter))
	expanded := expandTabs(line, tab)
	if _, err := fmt.Fprintf(w, " %s | %s\n", gutter, expanded); err != nil {
		return err
	}
	offset := width(line[:from], tab)
	span := max(width(line[:to], tab)-offset, 1)
	_, err := fmt.Fprintf(w, " %s | %s%s\n", pad, strings.Repeat(" ", offset),
		pal.caret.Sprint("^"+strings.Repeat("~", span-1)))
	return err
}

func expandTabs(s string, tab int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tab - col%tab
			sb.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		sb.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return sb.String()
}

func width(s string, tab int) int {
	return runewidth.StringWidth(expandTabs(s, tab))
}
