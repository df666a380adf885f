// Package storage provides the stock nodetracer.Backend
// implementations: an in-memory map and a JSON-file directory.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kallemickelborg/nodetracer"
)

// MemoryStore keeps finalized traces in memory. Good for tests and
// short-lived scripts. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	traces map[string]*nodetracer.TraceGraph
}

var _ nodetracer.Backend = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{traces: make(map[string]*nodetracer.TraceGraph)}
}

// Save stores the graph, overwriting any trace with the same id.
func (s *MemoryStore) Save(_ context.Context, trace *nodetracer.TraceGraph) error {
	if trace == nil {
		return fmt.Errorf("storage: cannot save nil trace")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces[trace.TraceID()] = trace
	return nil
}

// Load returns the stored graph for the id, or ErrTraceNotFound.
func (s *MemoryStore) Load(_ context.Context, traceID string) (*nodetracer.TraceGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.traces[traceID]
	if !ok {
		return nil, fmt.Errorf("storage: trace %q: %w", traceID, nodetracer.ErrTraceNotFound)
	}
	return g, nil
}

// ListTraces returns the stored trace ids, sorted for determinism.
func (s *MemoryStore) ListTraces(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.traces))
	for id := range s.traces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
