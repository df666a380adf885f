package nodetracer

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
)

// Span is the live, mutable handle to an open node. Operations are
// legal only while the span is open; calling one after close returns
// ErrSpanClosed, and calling one after the owning trace finalized
// returns ErrTraceFinalized. Link is the exception - edges may be
// added until the trace is finalized.
//
// Safe for concurrent use: every mutation is serialized through the
// owning graph's lock.
type Span struct {
	tracer *Tracer
	graph  *TraceGraph
	node   *Node
	ctx    context.Context
	root   bool
	closed bool // guarded by graph.mu
}

// ID returns the node id this span is recording into.
func (s *Span) ID() string { return s.node.ID }

// TraceID returns the id of the owning trace.
func (s *Span) TraceID() string { return s.graph.traceID }

// Name returns the node name.
func (s *Span) Name() string { return s.node.Name }

// Graph returns the owning trace graph.
func (s *Span) Graph() *TraceGraph { return s.graph }

// Closed reports whether the span has closed.
func (s *Span) Closed() bool {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	return s.closed
}

// Status returns the node's current status.
func (s *Span) Status() Status {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	return s.node.Status
}

// Record returns a deep snapshot of the underlying node.
func (s *Span) Record() Node {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	return s.node.snapshot()
}

// Input merges key/value pairs into the node's input mapping. Last
// write wins per key. Values that cannot be represented in the wire
// format are replaced with a placeholder; oversized strings are
// truncated per the tracer config. Never fails for ordinary data.
func (s *Span) Input(fields Fields) error {
	return s.record(fields, s.tracer.config.MaxInputSize, func(n *Node) *Fields { return &n.Input })
}

// Output merges key/value pairs into the node's output mapping, with
// the same recording pipeline as Input.
func (s *Span) Output(fields Fields) error {
	return s.record(fields, s.tracer.config.MaxOutputSize, func(n *Node) *Fields { return &n.Output })
}

func (s *Span) record(fields Fields, limit int, target func(*Node) *Fields) error {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	if s.graph.finalized {
		return ErrTraceFinalized
	}
	if s.closed {
		return ErrSpanClosed
	}
	if s.tracer.config.CaptureLevel == CaptureMinimal {
		return nil
	}
	prepared := prepareFields(fields, limit, s.tracer.redacts)
	if len(prepared) == 0 {
		return nil
	}
	dst := target(s.node)
	if *dst == nil {
		*dst = make(Fields, len(prepared))
	}
	for k, v := range prepared {
		(*dst)[k] = v
	}
	return nil
}

// Metadata merges key/value pairs into the node's metadata mapping.
// Metadata is captured at every capture level and is never truncated,
// but redaction and serializability substitution still apply.
func (s *Span) Metadata(fields Fields) error {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	if s.graph.finalized {
		return ErrTraceFinalized
	}
	if s.closed {
		return ErrSpanClosed
	}
	prepared := prepareFields(fields, 0, s.tracer.redacts)
	if len(prepared) == 0 {
		return nil
	}
	if s.node.Metadata == nil {
		s.node.Metadata = make(Fields, len(prepared))
	}
	for k, v := range prepared {
		s.node.Metadata[k] = v
	}
	return nil
}

// Annotate appends a free-text note to the node's annotation sequence.
func (s *Span) Annotate(message string) error {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	if s.graph.finalized {
		return ErrTraceFinalized
	}
	if s.closed {
		return ErrSpanClosed
	}
	s.node.Annotations = append(s.node.Annotations, message)
	return nil
}

// SetStatus overrides the terminal status the span would otherwise
// resolve to at close. Legal only while the span is open. A fault
// exiting a scoped body still forces StatusFailed.
func (s *Span) SetStatus(status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	if s.graph.finalized {
		return ErrTraceFinalized
	}
	if s.closed {
		return ErrSpanClosed
	}
	s.node.Status = status
	return nil
}

// Link adds a typed edge from this span's node to the target's node.
// Legal any time before the owning trace is finalized, including after
// either span has closed.
func (s *Span) Link(target *Span, edgeType EdgeType) error {
	return s.LinkNote(target, edgeType, "")
}

// LinkNote is Link with a free-text note on the edge.
func (s *Span) LinkNote(target *Span, edgeType EdgeType, note string) error {
	if target == nil {
		return consistencyErrorf("link target must not be nil")
	}
	if target.graph != s.graph {
		return consistencyErrorf("cannot link across traces %q and %q", s.graph.traceID, target.graph.traceID)
	}
	e, err := NewEdge(s.node.ID, target.node.ID, edgeType, note)
	if err != nil {
		return err
	}
	return s.graph.AddEdge(e)
}

// End closes the span. The status resolves to StatusCompleted unless it
// was already moved off StatusRunning. Closing the root span finalizes
// the trace, hands it to storage, and fires OnTraceCompleted.
func (s *Span) End() error { return s.close(nil, false) }

// Fail closes the span with StatusFailed, recording err on the node.
func (s *Span) Fail(err error) error { return s.close(err, true) }

func (s *Span) close(err error, forceFail bool) error {
	s.graph.mu.Lock()
	if s.graph.finalized {
		// The trace already closed under this span: its node keeps the
		// state it was persisted with, and no lifecycle event may fire
		// after OnTraceCompleted.
		s.graph.mu.Unlock()
		return ErrTraceFinalized
	}
	if s.closed {
		s.graph.mu.Unlock()
		return ErrSpanClosed
	}
	s.closed = true

	end := s.tracer.clock.Now()
	s.node.EndTime = &end
	d := float64(end.Sub(s.node.StartTime)) / float64(time.Millisecond)
	if d < 0 {
		d = 0
	}
	s.node.DurationMS = &d

	switch {
	case forceFail:
		s.node.Status = StatusFailed
		if err != nil {
			s.node.Error = err.Error()
			s.node.ErrorType = fmt.Sprintf("%T", err)
		}
	case s.node.Status == StatusRunning:
		s.node.Status = StatusCompleted
	}

	failed := s.node.Status == StatusFailed
	dispatch := !s.tracer.hooks.empty()
	var snap Node
	if dispatch {
		snap = s.node.snapshot()
	}
	s.graph.mu.Unlock()

	if dispatch {
		if failed {
			s.tracer.hooks.nodeFailed(s.ctx, snap)
		} else {
			s.tracer.hooks.nodeCompleted(s.ctx, snap)
		}
	}

	if s.root {
		s.finalizeTrace(end)
	}
	return nil
}

// finalizeTrace closes the graph for mutation, persists it, and fires
// OnTraceCompleted. Persistence runs outside the graph lock; a save
// failure is logged and never surfaces into the traced program.
func (s *Span) finalizeTrace(end time.Time) {
	s.graph.finalize(end)

	// The capture pipeline must survive the caller's deadline: a
	// cancelled branch still gets its trace persisted.
	ctx := context.WithoutCancel(s.ctx)
	if s.tracer.storage != nil {
		if err := s.tracer.storage.Save(ctx, s.graph); err != nil {
			clog.WarnContextf(ctx, "nodetracer: failed to save trace %s, trace data dropped: %v",
				s.graph.traceID, err)
		}
	}
	s.tracer.hooks.traceCompleted(ctx, s.graph)
}

// closeQuiet is the scoped-exit path: it tolerates a body that already
// closed the span manually.
func (s *Span) closeQuiet(err error, forceFail bool) {
	_ = s.close(err, forceFail)
}
