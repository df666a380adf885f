package nodetracer

import (
	"context"
)

// Backend persists finalized trace graphs. Any conforming
// implementation (in-memory map, JSON-file directory, database) is
// pluggable without runtime changes; see the storage package for the
// stock ones.
//
// The runtime calls Save exactly once per trace, after finalization
// and outside the graph's critical section. A Save failure does not
// roll back or corrupt the in-memory graph and never re-raises into
// the traced program.
type Backend interface {
	// Save persists the graph, overwriting any existing trace with
	// the same id.
	Save(ctx context.Context, trace *TraceGraph) error

	// Load retrieves a trace by id. An unknown id yields an error
	// matching ErrTraceNotFound; a corrupt document yields a
	// DeserializationError, never a partially built graph.
	Load(ctx context.Context, traceID string) (*TraceGraph, error)

	// ListTraces returns the ids of all persisted traces.
	ListTraces(ctx context.Context) ([]string, error)
}
