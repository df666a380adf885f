package nodetracer

import (
	"context"
)

// Traced wraps fn so that, when a trace is active in the calling
// branch, the call runs inside a span named name; with no active trace
// the function is invoked unmodified and no span is created. The
// scoped-exit guarantees of Span apply: an error return marks the node
// failed and still propagates.
func Traced[T any](name, nodeType string, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		b := bundleFromContext(ctx)
		if b == nil {
			return fn(ctx)
		}
		var out T
		err := b.tracer.Span(ctx, name, nodeType, func(ctx context.Context, _ *Span) error {
			var ferr error
			out, ferr = fn(ctx)
			return ferr
		})
		return out, err
	}
}

// TracedOutput is Traced plus recording of the return value on the
// span's output under the key "return_value" (subject to the tracer's
// capture level and size limits).
func TracedOutput[T any](name, nodeType string, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		b := bundleFromContext(ctx)
		if b == nil {
			return fn(ctx)
		}
		var out T
		err := b.tracer.Span(ctx, name, nodeType, func(ctx context.Context, span *Span) error {
			var ferr error
			out, ferr = fn(ctx)
			if ferr == nil {
				_ = span.Output(Fields{"return_value": out})
			}
			return ferr
		})
		return out, err
	}
}
