// Package project loads cursive0.toml.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"cursive0/internal/abi"
	"cursive0/internal/layout"
	"cursive0/internal/trace"
)

// FileName is the configuration file looked up by FindConfig.
const FileName = "cursive0.toml"

type TargetConfig struct {
	Triple       string `toml:"triple"`
	PointerSize  uint64 `toml:"pointer_size"`
	PointerAlign uint64 `toml:"pointer_align"`
}

type CheckConfig struct {
	MaxDiagnostics int `toml:"max_diagnostics"`
	// Jobs bounds the number of modules checked at once; 0 means GOMAXPROCS.
	Jobs int `toml:"jobs"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

type CacheConfig struct {
	// Dir holds the diagnostic cache; empty disables it.
	Dir string `toml:"dir"`
}

type DebugConfig struct {
	Obj bool `toml:"obj"`
	// Profile paths for driver.Build; empty disables each.
	CPUProfile string `toml:"cpu_profile"`
	MemProfile string `toml:"mem_profile"`
}

// Config is the decoded cursive0.toml.
type Config struct {
	Target TargetConfig `toml:"target"`
	Check  CheckConfig  `toml:"check"`
	Trace  TraceConfig  `toml:"trace"`
	Cache  CacheConfig  `toml:"cache"`
	Debug  DebugConfig  `toml:"debug"`
}

var (
	// ErrPointerSize: [target].pointer_size is zero.
	ErrPointerSize = errors.New("[target].pointer_size must be positive")
	// ErrPointerAlign: [target].pointer_align is not a power of two.
	ErrPointerAlign = errors.New("[target].pointer_align must be a power of two")
	// ErrTripleMissing: [target] is present without a triple.
	ErrTripleMissing = errors.New("missing [target].triple")
)

func DefaultConfig() Config {
	t := layout.X86_64LinuxGNU()
	return Config{
		Target: TargetConfig{Triple: t.Triple, PointerSize: t.PtrSize, PointerAlign: t.PtrAlign},
		Check:  CheckConfig{MaxDiagnostics: 256},
		Trace:  TraceConfig{Level: "off", Format: "text", Output: "-"},
	}
}

// LoadConfig decodes path over the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("target") && !meta.IsDefined("target", "triple") {
		return Config{}, fmt.Errorf("%s: %w", path, ErrTripleMissing)
	}
	// a known triple supplies pointer properties the file leaves out
	if known, ok := layout.LookupTarget(cfg.Target.Triple); ok && meta.IsDefined("target", "triple") {
		if !meta.IsDefined("target", "pointer_size") {
			cfg.Target.PointerSize = known.PtrSize
		}
		if !meta.IsDefined("target", "pointer_align") {
			cfg.Target.PointerAlign = known.PtrAlign
		}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Target.PointerSize == 0 {
		errs = append(errs, ErrPointerSize)
	}
	if a := c.Target.PointerAlign; a == 0 || a&(a-1) != 0 {
		errs = append(errs, ErrPointerAlign)
	}
	if c.Check.MaxDiagnostics < 0 {
		errs = append(errs, fmt.Errorf("[check].max_diagnostics must not be negative, got %d", c.Check.MaxDiagnostics))
	}
	if c.Check.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[check].jobs must not be negative, got %d", c.Check.Jobs))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) LayoutTarget() layout.Target {
	return layout.Target{Triple: c.Target.Triple, PtrSize: c.Target.PointerSize, PtrAlign: c.Target.PointerAlign}
}

// Workers is the effective job count.
func (c Config) Workers() int {
	if c.Check.Jobs <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Check.Jobs
}

// DebugObj reports whether ABI failures dump their signatures.
func (c Config) DebugObj() bool {
	return c.Debug.Obj || abi.DebugEnabled()
}

// TracerConfig converts the [trace] section, already validated.
func (c Config) TracerConfig() trace.Config {
	level, _ := trace.ParseLevel(c.Trace.Level)
	format, _ := trace.ParseFormat(c.Trace.Format)
	return trace.Config{Level: level, Format: format, OutputPath: c.Trace.Output}
}

// FindConfig walks up from startDir to locate cursive0.toml.
func FindConfig(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest cursive0.toml above startDir, or the
// defaults when there is none.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return DefaultConfig(), "", nil
	}
	cfg, err := LoadConfig(path)
	return cfg, path, err
}
