package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kallemickelborg/nodetracer"
)

// FileStore writes each trace as <dir>/<trace_id>.json. The directory
// is created on construction; a non-writable path fails immediately.
type FileStore struct {
	dir string
}

var _ nodetracer.Backend = (*FileStore)(nil)

// NewFileStore creates the directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create trace directory %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory traces are written to.
func (s *FileStore) Dir() string { return s.dir }

// Save serializes the graph and overwrites any existing file for the
// same trace id.
func (s *FileStore) Save(_ context.Context, trace *nodetracer.TraceGraph) error {
	if trace == nil {
		return fmt.Errorf("storage: cannot save nil trace")
	}
	b, err := nodetracer.MarshalGraph(trace)
	if err != nil {
		return fmt.Errorf("storage: serialize trace %q: %w", trace.TraceID(), err)
	}
	path := s.path(trace.TraceID())
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("storage: write %q: %w", path, err)
	}
	return nil
}

// Load reads and deserializes one trace. A missing file yields
// ErrTraceNotFound; a corrupt one surfaces the DeserializationError.
func (s *FileStore) Load(ctx context.Context, traceID string) (*nodetracer.TraceGraph, error) {
	path := s.path(traceID)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: trace %q: %w", traceID, nodetracer.ErrTraceNotFound)
		}
		return nil, fmt.Errorf("storage: read %q: %w", path, err)
	}
	g, err := nodetracer.UnmarshalGraph(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("storage: load %q: %w", path, err)
	}
	return g, nil
}

// ListTraces returns the ids of all traces in the directory, sorted.
func (s *FileStore) ListTraces(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", s.dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) path(traceID string) string {
	return filepath.Join(s.dir, traceID+".json")
}
