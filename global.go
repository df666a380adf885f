package nodetracer

import (
	"context"
	"sync"
)

// Process-wide default tracer for quick scripts. The dependency-injected
// Tracer from New remains the primary construction path; this layer is
// deliberately separate state with an explicit init/reset lifecycle.
var (
	defaultMu     sync.Mutex
	defaultTracer *Tracer
)

// Init configures the process default tracer, replacing any previous
// one. The previous default, if any, is closed.
func Init(opts ...Option) (*Tracer, error) {
	t, err := New(opts...)
	if err != nil {
		return nil, err
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultTracer != nil {
		defaultTracer.Close()
	}
	defaultTracer = t
	return t, nil
}

// Default returns the process default tracer, constructing one with
// default options on first use.
func Default() *Tracer {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultTracer == nil {
		// DefaultConfig always validates.
		defaultTracer, _ = New()
	}
	return defaultTracer
}

// Reset discards the process default tracer. Primarily for tests.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultTracer != nil {
		defaultTracer.Close()
		defaultTracer = nil
	}
}

// StartTrace begins a trace on the process default tracer.
func StartTrace(ctx context.Context, name string) (context.Context, *Span, error) {
	return Default().StartTrace(ctx, name)
}

// Trace runs fn inside a scoped trace on the process default tracer.
func Trace(ctx context.Context, name string, fn func(context.Context, *Span) error) error {
	return Default().Trace(ctx, name, fn)
}
