package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[check]\njobs = 3\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.Check.Jobs != 3 || cfg.Workers() != 3 {
		t.Fatalf("jobs = %d", cfg.Check.Jobs)
	}
	if cfg.Check.MaxDiagnostics != def.Check.MaxDiagnostics {
		t.Fatalf("max_diagnostics = %d, want %d", cfg.Check.MaxDiagnostics, def.Check.MaxDiagnostics)
	}
	if cfg.LayoutTarget() != def.LayoutTarget() {
		t.Fatalf("target = %+v", cfg.LayoutTarget())
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		is   error
	}{
		{"zero_pointer", "[target]\ntriple = \"x\"\npointer_size = 0\n", "", ErrPointerSize},
		{"odd_align", "[target]\ntriple = \"x\"\npointer_align = 6\n", "", ErrPointerAlign},
		{"no_triple", "[target]\npointer_size = 4\n", "", ErrTripleMissing},
		{"bad_level", "[trace]\nlevel = \"loud\"\n", "invalid trace level", nil},
		{"bad_format", "[trace]\nformat = \"xml\"\n", "format", nil},
		{"unknown_key", "[check]\nthreads = 2\n", "unknown keys: check.threads", nil},
		{"syntax", "[check\n", "failed to parse TOML", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.body)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("error %v is not %v", err, tc.is)
			}
			if tc.want != "" && !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q lacks %q", err, tc.want)
			}
		})
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := FindConfig(nested)
	if err != nil || !ok {
		t.Fatalf("FindConfig: %v, %v", ok, err)
	}
	if got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}

func TestDiscoverWithoutFile(t *testing.T) {
	cfg, path, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if path != "" && !strings.HasSuffix(path, FileName) {
		t.Fatalf("path = %q", path)
	}
	if path == "" && cfg != DefaultConfig() {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestDebugObjFromEnv(t *testing.T) {
	t.Setenv("CURSIVE0_DEBUG_OBJ", "1")
	if !DefaultConfig().DebugObj() {
		t.Fatal("env var ignored")
	}
}

func TestKnownTripleFillsPointer(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[target]\ntriple = \"i686-linux-gnu\"\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Target.PointerSize != 4 || cfg.Target.PointerAlign != 4 {
		t.Fatalf("target = %+v", cfg.Target)
	}
}
