package driver

import (
	"context"

	"cursive0/internal/project"
	"cursive0/internal/trace"
)

// WithConfiguredTracer attaches the tracer described by cfg's [trace]
// section unless ctx already carries one. The returned close function
// flushes it and is never nil.
func WithConfiguredTracer(ctx context.Context, cfg project.Config) (context.Context, func() error, error) {
	noop := func() error { return nil }
	if trace.FromContext(ctx) != trace.Nop {
		return ctx, noop, nil
	}
	t, err := trace.New(cfg.TracerConfig())
	if err != nil {
		return ctx, noop, err
	}
	if !t.Enabled() {
		return ctx, noop, nil
	}
	return trace.WithTracer(ctx, t), t.Close, nil
}
