package nodetracer

import (
	"sort"
	"sync"
	"time"
)

// SchemaVersion is the wire format version this build writes.
const SchemaVersion = "0.1.0"

// TraceGraph is the aggregate record of one trace: an ordered node
// collection, a typed edge collection, and trace-level metadata. It is
// the single resource shared across concurrent branches of a trace;
// every structural and per-node mutation goes through its mutex, so no
// branch ever observes a half-written node. Once the root span closes
// the graph is finalized and all mutation is rejected.
//
//nolint:govet // Field order optimized for readability over memory
type TraceGraph struct {
	mu            sync.Mutex
	traceID       string
	name          string
	schemaVersion string
	rootID        string
	nodes         []*Node
	index         map[string]*Node
	edges         []Edge
	startTime     time.Time
	endTime       *time.Time
	metadata      Fields
	finalized     bool
	seq           int
}

// NewTraceGraph constructs an empty, open graph.
func NewTraceGraph(traceID, name string, start time.Time) (*TraceGraph, error) {
	if traceID == "" {
		return nil, consistencyErrorf("trace id must not be empty")
	}
	return &TraceGraph{
		traceID:       traceID,
		name:          name,
		schemaVersion: SchemaVersion,
		index:         make(map[string]*Node),
		metadata:      make(Fields),
		startTime:     start,
	}, nil
}

func (g *TraceGraph) TraceID() string       { return g.traceID }
func (g *TraceGraph) Name() string          { return g.name }
func (g *TraceGraph) SchemaVersion() string { return g.schemaVersion }
func (g *TraceGraph) StartTime() time.Time  { return g.startTime }

// RootID returns the id of the root node, or "" before one is added.
func (g *TraceGraph) RootID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rootID
}

// EndTime returns the trace end time, nil while the trace is open.
func (g *TraceGraph) EndTime() *time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.endTime == nil {
		return nil
	}
	end := *g.endTime
	return &end
}

// DurationMS returns the whole-trace duration, nil while open.
func (g *TraceGraph) DurationMS() *float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.endTime == nil {
		return nil
	}
	d := float64(g.endTime.Sub(g.startTime)) / float64(time.Millisecond)
	if d < 0 {
		d = 0
	}
	return &d
}

// Finalized reports whether the root span has closed.
func (g *TraceGraph) Finalized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finalized
}

// Len returns the number of nodes in the graph.
func (g *TraceGraph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Node returns the node with the given id, or nil.
func (g *TraceGraph) Node(id string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.index[id]
}

// Root returns the root node, or nil for an empty graph.
func (g *TraceGraph) Root() *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.index[g.rootID]
}

// Nodes returns the nodes in insertion order. The slice is a copy; the
// nodes are shared and must be treated as read-only by callers.
func (g *TraceGraph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edge collection.
func (g *TraceGraph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Children returns the direct children of a node, ordered by arrival.
func (g *TraceGraph) Children(id string) []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*Node
	for _, n := range g.nodes {
		if n.ParentID == id && n.ID != id {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// Metadata returns a copy of the trace-level metadata.
func (g *TraceGraph) Metadata() Fields {
	g.mu.Lock()
	defer g.mu.Unlock()
	return copyFields(g.metadata)
}

// SetMetadata merges trace-level metadata. Last write wins per key.
func (g *TraceGraph) SetMetadata(fields Fields) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		return ErrTraceFinalized
	}
	for k, v := range fields {
		g.metadata[k] = v
	}
	return nil
}

// AddNode inserts a node. The insertion order recorded in the graph is
// the true arrival order across branches. A node with an empty ParentID
// is the root; only one is permitted, and every other node's parent
// must already exist in the graph.
func (g *TraceGraph) AddNode(n *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		return ErrTraceFinalized
	}
	if n.TraceID != g.traceID {
		return consistencyErrorf("node %q belongs to trace %q, not %q", n.ID, n.TraceID, g.traceID)
	}
	if _, ok := g.index[n.ID]; ok {
		return consistencyErrorf("duplicate node id %q", n.ID)
	}
	if n.ParentID == "" {
		if g.rootID != "" {
			return consistencyErrorf("trace %q already has root %q", g.traceID, g.rootID)
		}
		g.rootID = n.ID
	} else if _, ok := g.index[n.ParentID]; !ok {
		return consistencyErrorf("node %q references unknown parent %q", n.ID, n.ParentID)
	}
	n.Sequence = g.seq
	g.seq++
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = n
	return nil
}

// AddEdge inserts a typed edge. Both endpoints must already exist.
// Legal any time before finalization, including after both endpoint
// spans have closed.
func (g *TraceGraph) AddEdge(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		return ErrTraceFinalized
	}
	if _, err := ParseEdgeType(string(e.Type)); err != nil {
		return err
	}
	if _, ok := g.index[e.SourceID]; !ok {
		return consistencyErrorf("edge source %q not in trace %q", e.SourceID, g.traceID)
	}
	if _, ok := g.index[e.TargetID]; !ok {
		return consistencyErrorf("edge target %q not in trace %q", e.TargetID, g.traceID)
	}
	g.edges = append(g.edges, e)
	return nil
}

// finalize closes the graph for mutation. Idempotent.
func (g *TraceGraph) finalize(end time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		return
	}
	g.endTime = &end
	g.finalized = true
}

// markLoaded restores bookkeeping on a graph rebuilt from its wire
// form. Loaded graphs are always finalized.
func (g *TraceGraph) markLoaded(schemaVersion string, end *time.Time, seq int) {
	g.schemaVersion = schemaVersion
	g.endTime = end
	g.seq = seq
	g.finalized = true
}
