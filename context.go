package nodetracer

import (
	"context"
)

// bundleKeyType is a private type for context keys to avoid collisions.
type bundleKeyType string

const bundleKey bundleKeyType = "nodetracer"

// bundle holds the tracer, graph and current span together so each
// span open costs a single context allocation.
//
// Context values are immutable, which is exactly the fork semantics the
// runtime needs: handing a context to N goroutines gives each branch
// its own snapshot of the current span, and nothing a branch does can
// leak into its siblings or its parent. Joins need no reconciliation
// for the same reason.
type bundle struct {
	tracer *Tracer
	graph  *TraceGraph
	span   *Span
}

func contextWithBundle(ctx context.Context, b *bundle) context.Context {
	return context.WithValue(ctx, bundleKey, b)
}

func bundleFromContext(ctx context.Context) *bundle {
	if ctx == nil {
		return nil
	}
	b, _ := ctx.Value(bundleKey).(*bundle)
	return b
}

// SpanFromContext extracts the current span for this execution branch.
// Returns nil if no trace is active.
func SpanFromContext(ctx context.Context) *Span {
	if b := bundleFromContext(ctx); b != nil {
		return b.span
	}
	return nil
}

// TraceFromContext extracts the active trace graph, or nil.
func TraceFromContext(ctx context.Context) *TraceGraph {
	if b := bundleFromContext(ctx); b != nil {
		return b.graph
	}
	return nil
}
