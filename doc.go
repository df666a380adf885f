// Package nodetracer is a capture engine for agent-execution tracing:
// it records the steps a branching, retrying, parallel program takes as
// a typed, temporal, directed graph so the run can be inspected after
// the fact.
//
// Core Components:.
//   - Tracer: capture entry point; owns config, storage, hooks, clock.
//   - Span: live handle to an open node; operations legal only while open.
//   - TraceGraph: the full record of one trace - nodes, edges, metadata.
//   - Hook: best-effort lifecycle observer, isolated from failure.
//   - Backend: pluggable persistence for finalized graphs.
//
// Basic Usage:.
//
//	tracer, err := nodetracer.New(
//		nodetracer.WithStorage(storage.NewFileStore("./traces")),
//	)
//	defer tracer.Close()
//
//	err = tracer.Trace(ctx, "weather_agent", func(ctx context.Context, root *nodetracer.Span) error {
//		return tracer.Span(ctx, "classify_intent", "decision", func(ctx context.Context, span *nodetracer.Span) error {
//			span.Output(nodetracer.Fields{"intent": "weather_lookup", "confidence": 0.95})
//			return nil
//		})
//	})
//
// Context Propagation:.
//
// The current span rides the context. Opening a child span returns a new
// context with the child bound; handing a context to N goroutines gives
// each concurrent branch its own snapshot, so siblings never observe
// each other's current span and joins need no reconciliation.
//
// Thread Safety:.
//
// Tracer and Span are safe for concurrent use. Every mutation of a
// shared TraceGraph is serialized through one lock, so concurrent
// opens, closes and records never interleave into a torn graph state,
// and insertion order reflects true arrival order across branches.
//
// Failure Transparency:.
//
// Tracing never becomes the reason the host program fails: recording
// calls substitute placeholders for unserializable values, hook panics
// are caught and logged, and a storage failure at trace completion is
// logged and dropped rather than raised.
package nodetracer
