package trace

import (
	"bufio"
	"io"
	"os"
	"sync"
)

// StreamTracer formats each event as it arrives. Output is buffered and
// reaches w on Flush or Close.
type StreamTracer struct {
	mu     sync.Mutex
	dst    io.Writer
	buf    *bufio.Writer
	level  Level
	format Format
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{dst: w, buf: bufio.NewWriter(w), level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev == nil {
		return
	}
	ev.Seq = nextSeq()
	line := FormatEvent(ev, t.format)
	t.mu.Lock()
	_, _ = t.buf.Write(line) //nolint:errcheck // tracing never fails a build
	t.mu.Unlock()
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Flush()
}

// Close flushes and then closes the destination unless it is a standard
// stream.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	switch t.dst {
	case io.Writer(os.Stdout), io.Writer(os.Stderr):
		return nil
	}
	if c, ok := t.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
