package driver

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/project"
	"cursive0/internal/source"
	"cursive0/internal/testkit"
	"cursive0/internal/trace"
)

// module builds a module in its own file whose procedure either returns
// a literal or an unbound name.
func module(name string, file source.FileID, broken bool) *ast.Module {
	b := ast.NewBuilder(file)
	var tail ast.Expr = b.Int("0")
	if broken {
		tail = b.Ident("missing")
	}
	p := b.Proc("f", nil, b.Prim("i32"), b.Block(tail))
	return &ast.Module{
		Path:   []string{name},
		File:   file,
		Items:  []ast.Decl{p},
		Digest: sha256.Sum256([]byte(fmt.Sprintf("%s:%v", name, broken))),
	}
}

func program(mods ...*ast.Module) *ast.Program {
	return &ast.Program{Modules: mods}
}

func signature(bag *diag.Bag) string {
	var sb strings.Builder
	for _, d := range bag.Items() {
		fmt.Fprintf(&sb, "%s@%d:%d-%d;", d.ID(), d.Primary.File, d.Primary.Start, d.Primary.End)
	}
	return sb.String()
}

func TestCheckKeepsProgramOrder(t *testing.T) {
	cfg := project.DefaultConfig()
	cfg.Check.Jobs = 4
	prog := program(module("a", 1, true), module("b", 2, false), module("c", 3, true))
	res, err := Check(context.Background(), prog, cfg)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := res.Modules[i].Module.Path[0]; got != want {
			t.Fatalf("module %d = %s, want %s", i, got, want)
		}
	}
	if !res.Bag.HasCode(diag.IdentUnbound) {
		t.Fatalf("missing %s: %v", diag.IdentUnbound.ID(), res.Bag.Items())
	}
	if res.Modules[1].Bag.HasErrors() {
		t.Fatalf("clean module has errors: %v", res.Modules[1].Bag.Items())
	}
	items := res.Bag.Items()
	for i := 1; i < len(items); i++ {
		if items[i].Primary.File < items[i-1].Primary.File {
			t.Fatalf("diagnostics are not sorted: %v", items)
		}
	}
}

func TestCheckIsDeterministicAcrossJobs(t *testing.T) {
	var mods []*ast.Module
	for i := range 8 {
		mods = append(mods, module(fmt.Sprintf("m%d", i), source.FileID(i+1), i%2 == 0))
	}
	var want string
	for _, jobs := range []int{1, 3, 8} {
		cfg := project.DefaultConfig()
		cfg.Check.Jobs = jobs
		res, err := Check(context.Background(), program(mods...), cfg)
		if err != nil {
			t.Fatalf("jobs=%d: %v", jobs, err)
		}
		got := signature(res.Bag)
		if want == "" {
			want = got
			continue
		}
		if got != want {
			t.Fatalf("jobs=%d:\n got %s\nwant %s", jobs, got, want)
		}
	}
}

func TestCheckHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Check(ctx, program(module("a", 1, false)), project.DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCheckRejectsInvalidConfig(t *testing.T) {
	cfg := project.DefaultConfig()
	cfg.Target.PointerAlign = 3
	if _, err := Check(context.Background(), program(), cfg); !errors.Is(err, project.ErrPointerAlign) {
		t.Fatalf("err = %v", err)
	}
}

func TestDiskCacheReplaysDiagnostics(t *testing.T) {
	cfg := project.DefaultConfig()
	cfg.Cache.Dir = t.TempDir()
	first, err := Check(context.Background(), program(module("a", 1, true), module("b", 2, false)), cfg)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for _, m := range first.Modules {
		if m.Cached {
			t.Fatalf("%v cached on a cold cache", m.Module.Path)
		}
	}
	// Same contents in other files: own-file spans follow the module.
	second, err := Check(context.Background(), program(module("a", 5, true), module("b", 6, false)), cfg)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for _, m := range second.Modules {
		if !m.Cached {
			t.Fatalf("%v missed a warm cache", m.Module.Path)
		}
	}
	if !second.Bag.HasCode(diag.IdentUnbound) {
		t.Fatalf("replayed diagnostics lost: %v", second.Bag.Items())
	}
	for _, d := range second.Bag.Items() {
		if d.Primary.File != 5 {
			t.Fatalf("span not rebound: %+v", d.Primary)
		}
	}
}

func TestDiskCacheSchemaMismatchIsMiss(t *testing.T) {
	c, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Digest{1}
	if err := c.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion + 1, Path: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var out DiskPayload
	if hit, err := c.Get(key, &out); err != nil || hit {
		t.Fatalf("Get = %v, %v; want a miss", hit, err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
}

func TestZeroDigestDisablesCache(t *testing.T) {
	mod := module("a", 1, false)
	mod.Digest = Digest{}
	if _, ok := cacheKey(mod, program(mod), "x"); ok {
		t.Fatal("zero digest produced a key")
	}
	other := module("b", 2, false)
	k1, _ := cacheKey(other, program(other), "x86_64-linux-gnu")
	k2, _ := cacheKey(other, program(other, module("c", 3, false)), "x86_64-linux-gnu")
	if k1 == k2 {
		t.Fatal("key ignores the rest of the program")
	}
}

func TestBuildEmitsEntryWrapper(t *testing.T) {
	b := ast.NewBuilder(1)
	main := b.Proc("main", nil, b.Prim("i32"), b.Block(b.Int("0")))
	mod := &ast.Module{Path: []string{"app"}, File: 1, Items: []ast.Decl{main}}

	ring := trace.NewRingTracer(64, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	out, err := Build(ctx, program(mod), project.DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v (%v)", err, out.Bag().Items())
	}
	if out.Bag().HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", out.Bag().Items())
	}
	text := out.LLVM.String()
	for _, want := range []string{"define i32 @main()", "app::main"} {
		if !strings.Contains(text, want) {
			t.Errorf("module lacks %q:\n%s", want, text)
		}
	}
	var phases []string
	for _, p := range out.Timings.Phases {
		phases = append(phases, p.Name)
	}
	if got := strings.Join(phases, ","); got != "check,lower,emit" {
		t.Fatalf("phases = %s", got)
	}
	names := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		names[ev.Name] = true
	}
	for _, want := range []string{"build", "sigma", "check", "lower", "emit"} {
		if !names[want] {
			t.Errorf("no %q span in trace", want)
		}
	}
}

func TestBuildStopsOnCheckErrors(t *testing.T) {
	out, err := Build(context.Background(), program(module("a", 1, true)), project.DefaultConfig())
	if !errors.Is(err, ErrCheckFailed) {
		t.Fatalf("err = %v", err)
	}
	if out.LLVM != nil || out.IR != nil {
		t.Fatal("emitted a program with errors")
	}
	if len(out.Timings.Phases) != 1 {
		t.Fatalf("phases = %+v", out.Timings.Phases)
	}
}

func TestBuildOutputIsDeterministic(t *testing.T) {
	testkit.CheckDeterministic(t, 3, func() string {
		var mods []*ast.Module
		for i := range 4 {
			b := ast.NewBuilder(source.FileID(i + 1))
			params := []ast.Param{b.Param("x", b.Prim("i32"))}
			p := b.Proc("f", params, b.Prim("i32"), b.Block(b.Bin(ast.OpMul, b.Ident("x"), b.Int("3"))))
			mods = append(mods, &ast.Module{Path: []string{fmt.Sprintf("m%d", i)}, File: source.FileID(i + 1), Items: []ast.Decl{p}})
		}
		cfg := project.DefaultConfig()
		cfg.Check.Jobs = 4
		out, err := Build(context.Background(), program(mods...), cfg)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return out.LLVM.String()
	})
}

func TestBuildWritesConfiguredTrace(t *testing.T) {
	b := ast.NewBuilder(1)
	main := b.Proc("main", nil, b.Prim("i32"), b.Block(b.Int("0")))
	mod := &ast.Module{Path: []string{"app"}, File: 1, Items: []ast.Decl{main}}

	cfg := project.DefaultConfig()
	cfg.Trace = project.TraceConfig{Level: "phase", Format: "ndjson", Output: filepath.Join(t.TempDir(), "trace.ndjson")}
	if _, err := Build(context.Background(), program(mod), cfg); err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := os.ReadFile(cfg.Trace.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"name":"build"`) {
		t.Fatalf("trace file lacks the build span:\n%s", data)
	}
}
