package nodetracer

import (
	"errors"
	"testing"
	"time"
)

func testNode(t *testing.T, id, traceID, parentID string) *Node {
	t.Helper()
	n, err := NewNode(id, traceID, "node-"+id, "tool_call")
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}
	n.ParentID = parentID
	return n
}

func TestNewNodeValidation(t *testing.T) {
	cases := []struct {
		name                         string
		id, traceID, nodeName, ntype string
		wantErr                      bool
	}{
		{"valid", "n1", "t1", "fetch", "tool_call", false},
		{"empty id", "", "t1", "fetch", "tool_call", true},
		{"empty trace id", "n1", "", "fetch", "tool_call", true},
		{"empty name", "n1", "t1", "", "tool_call", true},
		{"empty type defaults", "n1", "t1", "fetch", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := NewNode(tc.id, tc.traceID, tc.nodeName, tc.ntype)
			if tc.wantErr {
				var gce *GraphConsistencyError
				if !errors.As(err, &gce) {
					t.Errorf("Expected GraphConsistencyError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewNode failed: %v", err)
			}
			if n.Status != StatusRunning {
				t.Errorf("Expected running, got %s", n.Status)
			}
			if tc.ntype == "" && n.Type != DefaultNodeType {
				t.Errorf("Expected default type, got %s", n.Type)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"running", "completed", "failed"} {
		if _, err := ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q) failed: %v", s, err)
		}
	}
	for _, s := range []string{"", "RUNNING", "pending", "cancelled"} {
		if _, err := ParseStatus(s); err == nil {
			t.Errorf("Expected error for status %q", s)
		}
	}
	if StatusRunning.Terminal() {
		t.Error("running must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
}

func TestParseEdgeType(t *testing.T) {
	for _, s := range []string{"caused_by", "data_flow", "branched_from", "retry_of", "fallback_of"} {
		if _, err := ParseEdgeType(s); err != nil {
			t.Errorf("ParseEdgeType(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseEdgeType("depends_on"); err == nil {
		t.Error("Expected error for unknown edge type")
	}
}

func TestGraphSingleRoot(t *testing.T) {
	g, err := NewTraceGraph("t1", "run", time.Now())
	if err != nil {
		t.Fatalf("NewTraceGraph failed: %v", err)
	}

	if err := g.AddNode(testNode(t, "r1", "t1", "")); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	var gce *GraphConsistencyError
	if err := g.AddNode(testNode(t, "r2", "t1", "")); !errors.As(err, &gce) {
		t.Errorf("Expected GraphConsistencyError for second root, got %v", err)
	}
	if g.RootID() != "r1" {
		t.Errorf("Expected root r1, got %s", g.RootID())
	}
}

func TestGraphRejectsUnknownParent(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())
	_ = g.AddNode(testNode(t, "r1", "t1", ""))

	var gce *GraphConsistencyError
	if err := g.AddNode(testNode(t, "n1", "t1", "ghost")); !errors.As(err, &gce) {
		t.Errorf("Expected GraphConsistencyError for unknown parent, got %v", err)
	}
}

func TestGraphRejectsDuplicateID(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())
	_ = g.AddNode(testNode(t, "r1", "t1", ""))

	var gce *GraphConsistencyError
	if err := g.AddNode(testNode(t, "r1", "t1", "r1")); !errors.As(err, &gce) {
		t.Errorf("Expected GraphConsistencyError for duplicate id, got %v", err)
	}
}

func TestGraphRejectsForeignNode(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())

	var gce *GraphConsistencyError
	if err := g.AddNode(testNode(t, "r1", "other", "")); !errors.As(err, &gce) {
		t.Errorf("Expected GraphConsistencyError for foreign trace id, got %v", err)
	}
}

func TestGraphSequenceAssignment(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())
	_ = g.AddNode(testNode(t, "r1", "t1", ""))
	_ = g.AddNode(testNode(t, "a", "t1", "r1"))
	_ = g.AddNode(testNode(t, "b", "t1", "r1"))

	for i, n := range g.Nodes() {
		if n.Sequence != i {
			t.Errorf("Node %s: expected sequence %d, got %d", n.ID, i, n.Sequence)
		}
	}
	children := g.Children("r1")
	if len(children) != 2 || children[0].ID != "a" || children[1].ID != "b" {
		t.Errorf("Expected arrival-ordered children [a b], got %v", children)
	}
}

func TestGraphEdgeEndpoints(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())
	_ = g.AddNode(testNode(t, "r1", "t1", ""))
	_ = g.AddNode(testNode(t, "a", "t1", "r1"))

	e, err := NewEdge("a", "r1", EdgeCausedBy, "")
	if err != nil {
		t.Fatalf("NewEdge failed: %v", err)
	}
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	var gce *GraphConsistencyError
	if err := g.AddEdge(Edge{SourceID: "a", TargetID: "ghost", Type: EdgeDataFlow}); !errors.As(err, &gce) {
		t.Errorf("Expected GraphConsistencyError for missing target, got %v", err)
	}
	if err := g.AddEdge(Edge{SourceID: "a", TargetID: "r1", Type: "bogus"}); !errors.As(err, &gce) {
		t.Errorf("Expected GraphConsistencyError for bogus type, got %v", err)
	}
}

func TestGraphEdgesDoNotAlterTree(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())
	_ = g.AddNode(testNode(t, "r1", "t1", ""))
	_ = g.AddNode(testNode(t, "a", "t1", "r1"))
	_ = g.AddNode(testNode(t, "b", "t1", "r1"))
	_ = g.AddEdge(Edge{SourceID: "b", TargetID: "a", Type: EdgeRetryOf})

	// b stays a child of the root regardless of its retry edge to a.
	if got := g.Node("b").ParentID; got != "r1" {
		t.Errorf("Expected parent r1, got %s", got)
	}
	if kids := g.Children("a"); len(kids) != 0 {
		t.Errorf("Expected no children under a, got %v", kids)
	}
}

func TestGraphFinalizeRejectsMutation(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())
	_ = g.AddNode(testNode(t, "r1", "t1", ""))

	end := time.Now()
	g.finalize(end)
	g.finalize(end.Add(time.Hour)) // idempotent, first end wins

	if !g.Finalized() {
		t.Error("Expected finalized")
	}
	if got := g.EndTime(); got == nil || !got.Equal(end) {
		t.Errorf("Expected first end time to win, got %v", got)
	}
	if err := g.AddNode(testNode(t, "late", "t1", "r1")); !errors.Is(err, ErrTraceFinalized) {
		t.Errorf("Expected ErrTraceFinalized, got %v", err)
	}
	if err := g.AddEdge(Edge{SourceID: "r1", TargetID: "r1", Type: EdgeDataFlow}); !errors.Is(err, ErrTraceFinalized) {
		t.Errorf("Expected ErrTraceFinalized, got %v", err)
	}
	if err := g.SetMetadata(Fields{"k": 1}); !errors.Is(err, ErrTraceFinalized) {
		t.Errorf("Expected ErrTraceFinalized, got %v", err)
	}
}

func TestGraphMetadata(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())
	if err := g.SetMetadata(Fields{"env": "prod", "region": "eu"}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if err := g.SetMetadata(Fields{"region": "us"}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}

	md := g.Metadata()
	if md["env"] != "prod" || md["region"] != "us" {
		t.Errorf("Expected merged metadata, got %v", md)
	}
	md["env"] = "mutated"
	if g.Metadata()["env"] != "prod" {
		t.Error("Expected Metadata to return a copy")
	}
}

func TestGraphDurationOpenTrace(t *testing.T) {
	g, _ := NewTraceGraph("t1", "run", time.Now())
	if g.DurationMS() != nil {
		t.Error("Expected nil duration while open")
	}
	if g.EndTime() != nil {
		t.Error("Expected nil end time while open")
	}
}
