package trace

import "errors"

// MultiTracer forwards every event to each of its sinks.
type MultiTracer struct {
	level Level
	sinks []Tracer
}

// NewMultiTracer drops nil and Nop sinks.
func NewMultiTracer(level Level, sinks ...Tracer) *MultiTracer {
	live := make([]Tracer, 0, len(sinks))
	for _, s := range sinks {
		if s != nil && s != Nop {
			live = append(live, s)
		}
	}
	return &MultiTracer{level: level, sinks: live}
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, s := range t.sinks {
		// sinks may stamp their own Seq
		cp := *ev
		s.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error { return t.each(Tracer.Flush) }

func (t *MultiTracer) Close() error { return t.each(Tracer.Close) }

func (t *MultiTracer) each(f func(Tracer) error) error {
	var errs []error
	for _, s := range t.sinks {
		if err := f(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level { return t.level }

func (t *MultiTracer) Enabled() bool { return t.level > LevelOff && len(t.sinks) > 0 }
