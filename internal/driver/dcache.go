package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/source"
	"cursive0/internal/version"
)

// Increment when DiskPayload changes shape.
const diskCacheSchemaVersion uint16 = 1

// Digest keys a cache entry.
type Digest = [32]byte

// DiskCache stores the diagnostics of checked modules by key.
// Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one cached module check.
type DiskPayload struct {
	Schema uint16
	Path   string
	Broken bool
	Diags  []CachedDiagnostic
}

// CachedDiagnostic stores the code by its stable id, so renumbering codes
// does not corrupt old entries.
type CachedDiagnostic struct {
	Severity string
	Code     string
	Message  string
	Primary  CachedSpan
	Notes    []CachedNote
}

type CachedNote struct {
	Span CachedSpan
	Msg  string
}

// CachedSpan records whether the span lies in the module's own file,
// since file ids are only stable within one run.
type CachedSpan struct {
	Own   bool
	File  uint32
	Start uint32
	End   uint32
}

// OpenDiskCache opens or creates a cache rooted at dir.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		return nil, errors.New("empty cache directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "mods", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and atomically writes a payload.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if renamed {
			return
		}
		if rmErr := os.Remove(f.Name()); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}
	renamed = true
	return nil
}

// Get reads a payload. A missing entry or one written by another schema
// version is a miss.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("corrupt cache entry %x: %w", key[:8], err)
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "mods"))
}

// cacheKey mixes the module digest with the digests of every module of
// the program, the compiler build and the target, since a module's diagnostics depend on the
// declarations it can see. ok is false when any digest is zero.
func cacheKey(mod *ast.Module, prog *ast.Program, triple string) (Digest, bool) {
	var zero Digest
	if mod.Digest == zero {
		return zero, false
	}
	h := sha256.New()
	fmt.Fprintf(h, "cursive0-cache:%d:%s:%s\n", diskCacheSchemaVersion, version.CacheTag(), triple)
	h.Write(mod.Digest[:])
	for _, m := range prog.Modules {
		if m.Digest == zero {
			return zero, false
		}
		h.Write(m.Digest[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, true
}

func toPayload(mod *ast.Module, bag *diag.Bag) *DiskPayload {
	p := &DiskPayload{
		Schema: diskCacheSchemaVersion,
		Path:   pathString(mod.Path),
		Broken: bag.HasErrors(),
		Diags:  make([]CachedDiagnostic, 0, bag.Len()),
	}
	for _, d := range bag.Items() {
		cd := CachedDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Primary:  toCachedSpan(mod.File, d.Primary),
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Span: toCachedSpan(mod.File, n.Span), Msg: n.Msg})
		}
		p.Diags = append(p.Diags, cd)
	}
	return p
}

func toCachedSpan(own source.FileID, sp source.Span) CachedSpan {
	return CachedSpan{Own: sp.File == own, File: uint32(sp.File), Start: sp.Start, End: sp.End}
}

// restore replays a payload into bag, rebinding own-file spans to file.
func (p *DiskPayload) restore(file source.FileID, bag *diag.Bag) {
	for _, cd := range p.Diags {
		code, ok := diag.ParseCode(cd.Code)
		if !ok {
			code = diag.UnknownCode
		}
		sev, ok := diag.ParseSeverity(cd.Severity)
		if !ok {
			sev = diag.SevError
		}
		d := diag.Diagnostic{
			Severity: sev,
			Code:     code,
			Message:  cd.Message,
			Primary:  cd.Primary.span(file),
		}
		for _, n := range cd.Notes {
			d.Notes = append(d.Notes, diag.Note{Span: n.Span.span(file), Msg: n.Msg})
		}
		bag.Add(d)
	}
}

func (s CachedSpan) span(file source.FileID) source.Span {
	f := source.FileID(s.File)
	if s.Own {
		f = file
	}
	return source.Span{File: f, Start: s.Start, End: s.End}
}
