package nodetracer

import (
	"time"
)

// Status is the lifecycle state of a Node.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus validates a wire-format status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusRunning, StatusCompleted, StatusFailed:
		return Status(s), nil
	}
	return "", consistencyErrorf("unknown status %q", s)
}

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Fields is a bag of key/value pairs recorded on a node.
type Fields map[string]any

// Node is one traced step. Nodes are mutated only through the span that
// owns them and become immutable once that span closes.
//
//nolint:govet // Field order matches JSON serialization order
type Node struct {
	ID          string     `json:"id"`
	TraceID     string     `json:"trace_id"`
	ParentID    string     `json:"parent_id,omitempty"`
	Sequence    int        `json:"sequence"`
	Depth       int        `json:"depth"`
	Name        string     `json:"name"`
	Type        string     `json:"node_type"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	DurationMS  *float64   `json:"duration_ms,omitempty"`
	Input       Fields     `json:"input,omitempty"`
	Output      Fields     `json:"output,omitempty"`
	Metadata    Fields     `json:"metadata,omitempty"`
	Annotations []string   `json:"annotations,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorType   string     `json:"error_type,omitempty"`
}

// DefaultNodeType is used when a caller does not classify a span.
const DefaultNodeType = "custom"

// NewNode validates and constructs a node in the running state.
// An empty nodeType defaults to DefaultNodeType.
func NewNode(id, traceID, name, nodeType string) (*Node, error) {
	if id == "" {
		return nil, consistencyErrorf("node id must not be empty")
	}
	if traceID == "" {
		return nil, consistencyErrorf("node %q: trace id must not be empty", id)
	}
	if name == "" {
		return nil, consistencyErrorf("node %q: name must not be empty", id)
	}
	if nodeType == "" {
		nodeType = DefaultNodeType
	}
	return &Node{
		ID:      id,
		TraceID: traceID,
		Name:    name,
		Type:    nodeType,
		Status:  StatusRunning,
	}, nil
}

// Root reports whether the node is the root of its trace.
func (n *Node) Root() bool { return n.ParentID == "" }

// snapshot returns a deep copy safe to hand to hooks while the original
// is still being mutated. Caller must hold the graph lock.
func (n *Node) snapshot() Node {
	c := *n
	c.Input = copyFields(n.Input)
	c.Output = copyFields(n.Output)
	c.Metadata = copyFields(n.Metadata)
	if n.Annotations != nil {
		c.Annotations = append([]string(nil), n.Annotations...)
	}
	if n.EndTime != nil {
		end := *n.EndTime
		c.EndTime = &end
	}
	if n.DurationMS != nil {
		d := *n.DurationMS
		c.DurationMS = &d
	}
	return c
}

func copyFields(f Fields) Fields {
	if f == nil {
		return nil
	}
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}
