package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives events. Emit must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

type Config struct {
	Level  Level
	Format Format
	// Output takes precedence over OutputPath. An empty path or "-" is
	// stderr.
	Output     io.Writer
	OutputPath string
	// RingSize > 0 also keeps the last RingSize events in memory.
	RingSize int
}

// New builds the tracer described by cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	w := cfg.Output
	if w == nil {
		var err error
		if w, err = openPath(cfg.OutputPath); err != nil {
			return nil, err
		}
	}
	var t Tracer = NewStreamTracer(w, cfg.Level, cfg.Format)
	if cfg.RingSize > 0 {
		t = NewMultiTracer(cfg.Level, t, NewRingTracer(cfg.RingSize, cfg.Level))
	}
	return t, nil
}

func openPath(p string) (io.Writer, error) {
	if p == "" || p == "-" {
		return os.Stderr, nil
	}
	f, err := os.Create(p) // #nosec G304 -- user-selected trace file
	if err != nil {
		return nil, fmt.Errorf("trace output %s: %w", p, err)
	}
	return f, nil
}

var formatNames = map[string]Format{"": FormatText, "text": FormatText, "ndjson": FormatNDJSON, "json": FormatNDJSON}

func ParseFormat(s string) (Format, error) {
	if f, ok := formatNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return FormatText, fmt.Errorf("invalid trace format %q (want text or ndjson)", s)
}
