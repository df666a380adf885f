package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/kallemickelborg/nodetracer"
)

// Summary is the machine-readable digest of one trace.
type Summary struct {
	TraceID        string         `json:"trace_id"`
	Name           string         `json:"name"`
	SchemaVersion  string         `json:"schema_version"`
	DurationMS     *float64       `json:"duration_ms"`
	NodeCount      int            `json:"node_count"`
	EdgeCount      int            `json:"edge_count"`
	StatusCounts   map[string]int `json:"status_counts"`
	NodeTypeCounts map[string]int `json:"node_type_counts"`
}

// Summarize computes the digest of a graph.
func Summarize(g *nodetracer.TraceGraph) Summary {
	s := Summary{
		TraceID:       g.TraceID(),
		Name:          g.Name(),
		SchemaVersion: g.SchemaVersion(),
		DurationMS:    g.DurationMS(),
		EdgeCount:     len(g.Edges()),
		StatusCounts: map[string]int{
			string(nodetracer.StatusRunning):   0,
			string(nodetracer.StatusCompleted): 0,
			string(nodetracer.StatusFailed):    0,
		},
		NodeTypeCounts: make(map[string]int),
	}
	for _, n := range g.Nodes() {
		s.NodeCount++
		s.StatusCounts[string(n.Status)]++
		s.NodeTypeCounts[n.Type]++
	}
	return s
}

// WriteJSON emits the summary as a single JSON line.
func (s Summary) WriteJSON(w io.Writer) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("render: marshal summary: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
		return err
	}
	return nil
}

// WriteTables emits the summary header plus status and node-type count
// tables.
func (s Summary) WriteTables(w io.Writer) error {
	fmt.Fprintf(w, "Trace ID: %s\n", s.TraceID)
	name := s.Name
	if name == "" {
		name = "<unnamed>"
	}
	fmt.Fprintf(w, "Name: %s\n", name)
	fmt.Fprintf(w, "Schema: %s\n", s.SchemaVersion)
	fmt.Fprintf(w, "Duration: %s\n", durationLabel(s.DurationMS))
	fmt.Fprintf(w, "Nodes: %d\n", s.NodeCount)
	fmt.Fprintf(w, "Edges: %d\n", s.EdgeCount)

	if err := writeCountTable(w, "Status", s.StatusCounts); err != nil {
		return err
	}
	return writeCountTable(w, "Node Type", s.NodeTypeCounts)
}

func writeCountTable(w io.Writer, label string, counts map[string]int) error {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := newSummaryTable([]string{label, "Count"}, w)
	for _, k := range keys {
		if err := table.Append([]string{k, fmt.Sprintf("%d", counts[k])}); err != nil {
			return fmt.Errorf("render: table row: %w", err)
		}
	}
	return table.Render()
}

// newSummaryTable creates a table writer with consistent formatting
// for summary output.
func newSummaryTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 80,
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
	)
}
