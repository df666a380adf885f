package nodetracer

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Tracer is the capture engine's entry point. It owns configuration,
// the storage backend, the hook set, and the clock; it never calls a
// model or drives orchestration - it only observes.
//
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for readability over memory
type Tracer struct {
	config     Config
	redacts    []*regexp.Regexp
	storage    Backend
	hooks      dispatcher
	clock      clockz.Clock
	traceIDs   *idPool
	nodeIDs    *idPool
	idPoolOnce sync.Once
}

// Option configures a Tracer at construction.
type Option func(*Tracer)

// WithConfig sets the tracer configuration. Invalid configuration
// fails New.
func WithConfig(cfg Config) Option {
	return func(t *Tracer) { t.config = cfg }
}

// WithStorage sets the backend that receives each finalized trace.
// Without one, finalized traces are handed to hooks only.
func WithStorage(b Backend) Option {
	return func(t *Tracer) { t.storage = b }
}

// WithHooks appends lifecycle observers, dispatched in registration
// order.
func WithHooks(hooks ...Hook) Option {
	return func(t *Tracer) { t.hooks.hooks = append(t.hooks.hooks, hooks...) }
}

// WithClock injects a clock. Enables deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(t *Tracer) { t.clock = clock }
}

// New creates a tracer. Malformed configuration is a caller error and
// fails here rather than at capture time.
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		config: DefaultConfig(),
		clock:  clockz.RealClock,
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.config.Validate(); err != nil {
		return nil, err
	}
	redacts, err := t.config.compileRedactPatterns()
	if err != nil {
		return nil, err
	}
	t.redacts = redacts
	return t, nil
}

// Close shuts down the tracer's background resources. Traces started
// from this tracer are unaffected; call after the last span closes.
func (t *Tracer) Close() {
	if t.traceIDs != nil {
		t.traceIDs.Close()
	}
	if t.nodeIDs != nil {
		t.nodeIDs.Close()
	}
}

// StartTrace begins a new trace: a fresh TraceGraph whose root node is
// named name and starts StatusRunning. The returned context carries the
// root span as the current span for this branch; pass it (or a context
// derived from it) to StartSpan to build the tree.
//
// The caller owns closure: root status does not resolve until End or
// Fail is called on the returned span, which also finalizes the trace
// and hands it to storage. Use Trace for a scoped variant with
// guaranteed closure on every exit path.
func (t *Tracer) StartTrace(ctx context.Context, name string) (context.Context, *Span, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ensureIDPools()

	graph, err := NewTraceGraph(t.traceIDs.Get(), name, t.clock.Now())
	if err != nil {
		return ctx, nil, err
	}
	node, err := NewNode(t.nodeIDs.Get(), graph.traceID, name, "trace")
	if err != nil {
		return ctx, nil, err
	}
	node.StartTime = graph.startTime
	if err := graph.AddNode(node); err != nil {
		return ctx, nil, err
	}

	span := &Span{tracer: t, graph: graph, node: node, root: true}
	newCtx := contextWithBundle(ctx, &bundle{tracer: t, graph: graph, span: span})
	span.ctx = newCtx

	if !t.hooks.empty() {
		t.hooks.nodeStarted(newCtx, span.Record())
	}
	return newCtx, span, nil
}

// StartSpan opens a child node under the branch's current span. Opening
// a span with no active trace is a caller error, reported as
// ErrNoActiveTrace.
func (t *Tracer) StartSpan(ctx context.Context, name, nodeType string) (context.Context, *Span, error) {
	b := bundleFromContext(ctx)
	if b == nil {
		return ctx, nil, ErrNoActiveTrace
	}
	t.ensureIDPools()

	graph := b.graph
	parent := b.span.node
	node, err := NewNode(t.nodeIDs.Get(), graph.traceID, name, nodeType)
	if err != nil {
		return ctx, nil, err
	}
	node.ParentID = parent.ID
	node.Depth = parent.Depth + 1
	node.StartTime = t.clock.Now()
	if err := graph.AddNode(node); err != nil {
		return ctx, nil, err
	}

	span := &Span{tracer: t, graph: graph, node: node}
	newCtx := contextWithBundle(ctx, &bundle{tracer: t, graph: graph, span: span})
	span.ctx = newCtx

	if !t.hooks.empty() {
		t.hooks.nodeStarted(newCtx, span.Record())
	}
	return newCtx, span, nil
}

// Trace runs fn inside a new trace with the scoped-exit guarantee: on
// a normal return the root resolves to StatusCompleted (unless already
// set); on an error return or a panic it resolves to StatusFailed with
// the fault recorded, and the error (or panic) propagates to the
// caller unchanged. In every case the trace is finalized and handed to
// storage before Trace returns.
func (t *Tracer) Trace(ctx context.Context, name string, fn func(context.Context, *Span) error) error {
	ctx, span, err := t.StartTrace(ctx, name)
	if err != nil {
		return err
	}
	return runScoped(ctx, span, fn)
}

// Span runs fn inside a child span with the same exit guarantees as
// Trace. It requires an active trace in ctx.
func (t *Tracer) Span(ctx context.Context, name, nodeType string, fn func(context.Context, *Span) error) error {
	ctx, span, err := t.StartSpan(ctx, name, nodeType)
	if err != nil {
		return err
	}
	return runScoped(ctx, span, fn)
}

func runScoped(ctx context.Context, span *Span, fn func(context.Context, *Span) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			span.closeQuiet(fmt.Errorf("panic: %v", r), true)
			panic(r)
		}
		if err != nil {
			span.closeQuiet(err, true)
		} else {
			span.closeQuiet(nil, false)
		}
	}()
	return fn(ctx, span)
}

// ensureIDPools initializes ID pools if not already created.
func (t *Tracer) ensureIDPools() {
	t.idPoolOnce.Do(func() {
		// Pool size based on number of CPUs for contention balance.
		poolSize := runtime.NumCPU() * 100
		t.traceIDs = newIDPool(poolSize, 16, func() string {
			return hex.EncodeToString([]byte(t.clock.Now().Format(time.RFC3339Nano)))
		})
		t.nodeIDs = newIDPool(poolSize, 8, func() string {
			return hex.EncodeToString([]byte(t.clock.Now().Format("15:04:05.000000")))
		})
	})
}
