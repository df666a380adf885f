package nodetracer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/chainguard-dev/clog"
)

// wireGraph is the persisted document: one per trace. The reader is
// forward-compatible - unknown top-level or per-node fields are
// ignored, and a schema version this build does not know produces a
// warning, never a load failure.
//
//nolint:govet // Field order matches document layout
type wireGraph struct {
	SchemaVersion string     `json:"schema_version"`
	TraceID       string     `json:"trace_id"`
	Name          string     `json:"name,omitempty"`
	RootID        string     `json:"root_id,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	DurationMS    *float64   `json:"duration_ms,omitempty"`
	Metadata      Fields     `json:"metadata,omitempty"`
	Nodes         []*Node    `json:"nodes"`
	Edges         []Edge     `json:"edges"`
}

// MarshalGraph serializes a graph to its versioned wire form.
func MarshalGraph(g *TraceGraph) ([]byte, error) {
	g.mu.Lock()
	w := wireGraph{
		SchemaVersion: g.schemaVersion,
		TraceID:       g.traceID,
		Name:          g.name,
		RootID:        g.rootID,
		StartTime:     g.startTime,
		Metadata:      copyFields(g.metadata),
		Nodes:         make([]*Node, len(g.nodes)),
		Edges:         make([]Edge, len(g.edges)),
	}
	copy(w.Nodes, g.nodes)
	copy(w.Edges, g.edges)
	if g.endTime != nil {
		end := *g.endTime
		w.EndTime = &end
		d := float64(end.Sub(g.startTime)) / float64(time.Millisecond)
		if d < 0 {
			d = 0
		}
		w.DurationMS = &d
	}
	g.mu.Unlock()

	b, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("nodetracer: marshal trace %q: %w", w.TraceID, err)
	}
	return b, nil
}

// UnmarshalGraph rebuilds a graph from its wire form. A structurally
// invalid document fails with a DeserializationError; no partial graph
// is ever returned. Loaded graphs are finalized.
func UnmarshalGraph(ctx context.Context, data []byte) (*TraceGraph, error) {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, deserializationErrorf(err, "invalid trace document")
	}
	if w.TraceID == "" {
		return nil, deserializationErrorf(nil, "missing trace_id")
	}
	if len(w.Nodes) == 0 {
		return nil, deserializationErrorf(nil, "trace %q contains no nodes", w.TraceID)
	}
	if w.SchemaVersion != SchemaVersion {
		clog.WarnContextf(ctx, "nodetracer: trace %s has schema version %q, reader knows %q; unrecognized fields will be ignored",
			w.TraceID, w.SchemaVersion, SchemaVersion)
	}

	for _, n := range w.Nodes {
		if n == nil || n.ID == "" {
			return nil, deserializationErrorf(nil, "trace %q: node missing id", w.TraceID)
		}
		if n.Name == "" {
			return nil, deserializationErrorf(nil, "trace %q: node %q missing name", w.TraceID, n.ID)
		}
		if _, err := ParseStatus(string(n.Status)); err != nil {
			return nil, deserializationErrorf(err, "trace %q: node %q", w.TraceID, n.ID)
		}
		if n.TraceID == "" {
			n.TraceID = w.TraceID
		}
	}

	g, err := NewTraceGraph(w.TraceID, w.Name, w.StartTime)
	if err != nil {
		return nil, deserializationErrorf(err, "rebuilding trace")
	}
	if w.Metadata != nil {
		g.metadata = copyFields(w.Metadata)
	}

	// Insert in recorded arrival order so parents precede children and
	// the graph's own invariant checks apply.
	nodes := make([]*Node, len(w.Nodes))
	copy(nodes, w.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Sequence < nodes[j].Sequence })
	maxSeq := 0
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, deserializationErrorf(err, "trace %q", w.TraceID)
		}
		if n.Sequence > maxSeq {
			maxSeq = n.Sequence
		}
	}
	if w.RootID != "" && w.RootID != g.rootID {
		return nil, deserializationErrorf(nil, "trace %q: root_id %q does not match root node %q",
			w.TraceID, w.RootID, g.rootID)
	}
	for _, e := range w.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, deserializationErrorf(err, "trace %q", w.TraceID)
		}
	}

	g.markLoaded(w.SchemaVersion, w.EndTime, maxSeq+1)
	return g, nil
}
