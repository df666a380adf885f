package nodetracer

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// Hook observes trace lifecycle events. Node callbacks receive a deep
// snapshot of the node taken at event time; OnTraceCompleted receives
// the finalized (immutable) graph.
//
// Hooks are best-effort observers: a panic inside a callback is caught
// at the dispatch boundary, logged as a warning, and skipped for that
// event only. The trace and all other hooks are unaffected. Each event
// is delivered exactly once, in registration order, on the branch that
// triggered it.
//
// Embed NullHook to implement a subset of the callbacks.
type Hook interface {
	OnNodeStarted(ctx context.Context, node Node)
	OnNodeCompleted(ctx context.Context, node Node)
	OnNodeFailed(ctx context.Context, node Node)
	OnTraceCompleted(ctx context.Context, trace *TraceGraph)
}

// NullHook is a no-op Hook, meant for embedding.
type NullHook struct{}

func (NullHook) OnNodeStarted(context.Context, Node)           {}
func (NullHook) OnNodeCompleted(context.Context, Node)         {}
func (NullHook) OnNodeFailed(context.Context, Node)            {}
func (NullHook) OnTraceCompleted(context.Context, *TraceGraph) {}

// dispatcher fans lifecycle events out to an ordered hook sequence.
// The hook set is fixed at tracer construction, so dispatch needs no
// locking of its own.
type dispatcher struct {
	hooks []Hook
}

// empty reports whether dispatch would be a no-op. Checked by callers
// before taking node snapshots so zero hooks costs nothing.
func (d *dispatcher) empty() bool { return len(d.hooks) == 0 }

func (d *dispatcher) nodeStarted(ctx context.Context, node Node) {
	for i, h := range d.hooks {
		d.safeCall(ctx, i, "on_node_started", func() { h.OnNodeStarted(ctx, node) })
	}
}

func (d *dispatcher) nodeCompleted(ctx context.Context, node Node) {
	for i, h := range d.hooks {
		d.safeCall(ctx, i, "on_node_completed", func() { h.OnNodeCompleted(ctx, node) })
	}
}

func (d *dispatcher) nodeFailed(ctx context.Context, node Node) {
	for i, h := range d.hooks {
		d.safeCall(ctx, i, "on_node_failed", func() { h.OnNodeFailed(ctx, node) })
	}
}

func (d *dispatcher) traceCompleted(ctx context.Context, trace *TraceGraph) {
	for i, h := range d.hooks {
		d.safeCall(ctx, i, "on_trace_completed", func() { h.OnTraceCompleted(ctx, trace) })
	}
}

func (d *dispatcher) safeCall(ctx context.Context, idx int, event string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			clog.WarnContextf(ctx, "nodetracer: hook %d panicked during %s: %v", idx, event, r)
		}
	}()
	call()
}
