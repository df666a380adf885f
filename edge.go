package nodetracer

// EdgeType classifies the relationship an Edge records.
type EdgeType string

const (
	EdgeCausedBy     EdgeType = "caused_by"
	EdgeDataFlow     EdgeType = "data_flow"
	EdgeBranchedFrom EdgeType = "branched_from"
	EdgeRetryOf      EdgeType = "retry_of"
	EdgeFallbackOf   EdgeType = "fallback_of"
)

// ParseEdgeType validates a wire-format edge type value.
func ParseEdgeType(s string) (EdgeType, error) {
	switch EdgeType(s) {
	case EdgeCausedBy, EdgeDataFlow, EdgeBranchedFrom, EdgeRetryOf, EdgeFallbackOf:
		return EdgeType(s), nil
	}
	return "", consistencyErrorf("unknown edge type %q", s)
}

// Edge is a typed, directed relationship between two nodes of the same
// trace. Edges annotate the parent/child tree implied by ParentID; they
// never alter it.
type Edge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	Type     EdgeType `json:"edge_type"`
	Note     string   `json:"note,omitempty"`
}

// NewEdge validates and constructs an edge. Whether the endpoints exist
// is checked by the owning graph on insertion.
func NewEdge(sourceID, targetID string, edgeType EdgeType, note string) (Edge, error) {
	if sourceID == "" || targetID == "" {
		return Edge{}, consistencyErrorf("edge endpoints must not be empty")
	}
	if _, err := ParseEdgeType(string(edgeType)); err != nil {
		return Edge{}, err
	}
	return Edge{SourceID: sourceID, TargetID: targetID, Type: edgeType, Note: note}, nil
}
