// Package diagfmt renders diagnostics for people and tools.
package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short or relative paths and shortens long absolute
	// ones to their base name.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	// PathModeRelative is relative to PrettyOpts.BaseDir, or the working
	// directory when that is empty.
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures Pretty and Short.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseDir   string
	ShowNotes bool
	// TabWidth expands tabs in the source excerpt; 0 means 4.
	TabWidth int
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	BaseDir          string
	Max              int // truncates the output, not the Bag
	IncludeNotes     bool
}
