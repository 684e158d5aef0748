package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"cursive0/internal/diag"
	"cursive0/internal/source"
)

func oneDiag(d diag.Diagnostic) *diag.Bag {
	bag := diag.NewBag(8)
	bag.Add(d)
	return bag
}

func TestPrettyHeaderAndCaret(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("src/main.c0", []byte("procedure f() -> i32 {\n    result nope\n}\n"))
	// "nope" starts at byte 34.
	bag := oneDiag(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.IdentUnbound,
		Message:  "unbound identifier nope",
		Primary:  source.Span{File: id, Start: 34, End: 38},
	})
	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	want := []string{
		"src/main.c0:2:12: ERROR " + diag.IdentUnbound.ID() + ": unbound identifier nope",
		" 2 |     result nope",
		"   |            ^~~~",
	}
	for i, w := range want {
		if i >= len(lines) || lines[i] != w {
			t.Fatalf("line %d:\n got %q\nwant %q\nfull:\n%s", i, lines[i], w, buf.String())
		}
	}
}

func TestCaretAccountsForWideRunes(t *testing.T) {
	fs := source.NewFileSet()
	src := "let 名前 = bad\n"
	start := uint32(strings.Index(src, "bad"))
	id := fs.AddVirtual("w.c0", []byte(src))
	bag := oneDiag(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.IdentUnbound, Message: "m",
		Primary: source.Span{File: id, Start: start, End: start + 3}})
	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	// "let " is 4 cells, the two ideographs 4 more, " = " 3.
	want := "   | " + strings.Repeat(" ", 11) + "^~~"
	if lines[2] != want {
		t.Fatalf("caret line = %q, want %q", lines[2], want)
	}
}

func TestTabsAreExpanded(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("t.c0", []byte("\tx\n"))
	bag := oneDiag(diag.Diagnostic{Severity: diag.SevError, Code: diag.IdentUnbound, Message: "m",
		Primary: source.Span{File: id, Start: 1, End: 2}})
	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{TabWidth: 2}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	if lines[1] != " 1 |   x" || lines[2] != "   |   ^" {
		t.Fatalf("unexpected excerpt:\n%s", buf.String())
	}
}

func TestShortAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("/very/long/absolute/path/to/some/nested/directory/file.c0", []byte("a\nb\n"))
	bag := oneDiag(diag.Diagnostic{
		Severity: diag.SevError, Code: diag.DeclDup, Message: "duplicate",
		Primary: source.Span{File: id, Start: 2, End: 3},
		Notes:   []diag.Note{{Span: source.Span{File: id, Start: 0, End: 1}, Msg: "first here"}},
	})
	var short bytes.Buffer
	if err := Short(&short, bag, fs, PrettyOpts{}); err != nil {
		t.Fatal(err)
	}
	if got := short.String(); got != "file.c0:2:1: ERROR "+diag.DeclDup.ID()+": duplicate\n" {
		t.Fatalf("Short = %q", got)
	}
	var pretty bytes.Buffer
	if err := Pretty(&pretty, bag, fs, PrettyOpts{ShowNotes: true, PathMode: PathModeBasename}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(pretty.String(), "note file.c0:1:1: first here") {
		t.Fatalf("note missing:\n%s", pretty.String())
	}
}

func TestColorIsOptional(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("c.c0", []byte("x\n"))
	bag := oneDiag(diag.Diagnostic{Severity: diag.SevError, Code: diag.IdentUnbound, Message: "m",
		Primary: source.Span{File: id, Start: 0, End: 1}})
	var plain, colored bytes.Buffer
	if err := Short(&plain, bag, fs, PrettyOpts{}); err != nil {
		t.Fatal(err)
	}
	if err := Short(&colored, bag, fs, PrettyOpts{Color: true}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain output has escapes: %q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored output has no escapes: %q", colored.String())
	}
}

func TestJSON(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("j.c0", []byte("ab\ncd\n"))
	bag := oneDiag(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.CacheIO, Message: "m",
		Primary: source.Span{File: id, Start: 3, End: 5}})
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true}); err != nil {
		t.Fatal(err)
	}
	var out Report
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	loc := out.Diagnostics[0].Location
	if out.Diagnostics[0].Code != diag.CacheIO.ID() || loc.Bytes != [2]uint32{3, 5} ||
		*loc.Start != (Position{2, 1}) || *loc.End != (Position{2, 3}) {
		t.Fatalf("unexpected %+v", out.Diagnostics[0])
	}
}

func TestJSONTruncates(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(2)
	for range 3 {
		bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.IntroDup})
	}
	rep := BuildReport(bag, fs, JSONOpts{Max: 1})
	if rep.Count != 1 || rep.Truncated != 2 {
		t.Fatalf("count=%d truncated=%d", rep.Count, rep.Truncated)
	}
	if rep.Diagnostics[0].Location.File != "<unknown>" || rep.Diagnostics[0].Location.Start != nil {
		t.Fatalf("location = %+v", rep.Diagnostics[0].Location)
	}
}
