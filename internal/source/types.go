package source

// FileID is the index of a file in its FileSet.
type FileID uint32

// FileFlags records how a file's content was obtained.
type FileFlags uint8

const (
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

func (f FileFlags) Has(flag FileFlags) bool { return f&flag != 0 }

type File struct {
	ID      FileID
	Path    string
	Content []byte
	// LineIdx holds the byte offset of every '\n' in Content.
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based line and byte column.
type LineCol struct {
	Line uint32
	Col  uint32
}
