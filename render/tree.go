// Package render turns a finalized, loaded TraceGraph into
// human-readable output: an indented tree at selectable verbosity, and
// a compact summary in table or JSON form.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kallemickelborg/nodetracer"
)

// Verbosity selects how much node detail the tree renderer emits.
type Verbosity string

const (
	// Minimal shows structure and status only.
	Minimal Verbosity = "minimal"
	// Standard adds node types, durations and errors.
	Standard Verbosity = "standard"
	// Full adds recorded input/output/metadata and annotations.
	Full Verbosity = "full"
)

// ParseVerbosity validates a verbosity flag value.
func ParseVerbosity(s string) (Verbosity, error) {
	switch Verbosity(s) {
	case Minimal, Standard, Full:
		return Verbosity(s), nil
	}
	return "", fmt.Errorf("render: unknown verbosity %q", s)
}

// DefaultMaxValueChars is the character budget applied to rendered
// field values before elision.
const DefaultMaxValueChars = 120

// Options configures the tree renderer.
type Options struct {
	Verbosity Verbosity
	// MaxValueChars elides rendered values past this budget. Zero
	// means DefaultMaxValueChars.
	MaxValueChars int
}

// Tree writes an indented tree for the graph, walking parent/child
// relationships. Typed edges appear as inline annotations on their
// target node.
func Tree(w io.Writer, g *nodetracer.TraceGraph, opts Options) error {
	if opts.Verbosity == "" {
		opts.Verbosity = Standard
	}
	if opts.MaxValueChars <= 0 {
		opts.MaxValueChars = DefaultMaxValueChars
	}

	if _, err := fmt.Fprintf(w, "Trace: %s (%s)\n", traceLabel(g), durationLabel(g.DurationMS())); err != nil {
		return err
	}

	root := g.Root()
	if root == nil {
		return nil
	}
	edgesIn := edgesByTarget(g)
	return writeNode(w, g, root, "", true, opts, edgesIn)
}

func traceLabel(g *nodetracer.TraceGraph) string {
	if g.Name() != "" {
		return g.Name()
	}
	return g.TraceID()
}

func durationLabel(d *float64) string {
	if d == nil {
		return "ongoing"
	}
	return fmt.Sprintf("%.0fms", *d)
}

func edgesByTarget(g *nodetracer.TraceGraph) map[string][]nodetracer.Edge {
	out := make(map[string][]nodetracer.Edge)
	for _, e := range g.Edges() {
		out[e.TargetID] = append(out[e.TargetID], e)
	}
	return out
}

func writeNode(w io.Writer, g *nodetracer.TraceGraph, n *nodetracer.Node, prefix string, last bool, opts Options, edgesIn map[string][]nodetracer.Edge) error {
	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	line := nodeLine(g, n, opts, edgesIn[n.ID])
	if _, err := fmt.Fprintf(w, "%s%s%s\n", prefix, connector, line); err != nil {
		return err
	}

	if opts.Verbosity == Full {
		if err := writeDetail(w, n, childPrefix, opts.MaxValueChars); err != nil {
			return err
		}
	}

	children := g.Children(n.ID)
	for i, c := range children {
		if err := writeNode(w, g, c, childPrefix, i == len(children)-1, opts, edgesIn); err != nil {
			return err
		}
	}
	return nil
}

func nodeLine(g *nodetracer.TraceGraph, n *nodetracer.Node, opts Options, inbound []nodetracer.Edge) string {
	var sb strings.Builder
	if opts.Verbosity == Minimal {
		sb.WriteString(n.Name)
		sb.WriteString(" ")
		sb.WriteString(statusGlyph(n.Status))
	} else {
		duration := "running"
		if n.DurationMS != nil {
			duration = fmt.Sprintf("%.0fms", *n.DurationMS)
		}
		fmt.Fprintf(&sb, "[%s] %s (%s) %s", n.Type, n.Name, duration, statusGlyph(n.Status))
		if n.Error != "" && opts.Verbosity == Standard {
			fmt.Fprintf(&sb, " error: %s", n.Error)
		}
	}
	for _, e := range inbound {
		source := e.SourceID
		if sn := g.Node(e.SourceID); sn != nil {
			source = sn.Name
		}
		fmt.Fprintf(&sb, " [%s ⟵ %s]", e.Type, source)
	}
	return sb.String()
}

func writeDetail(w io.Writer, n *nodetracer.Node, prefix string, budget int) error {
	for _, section := range []struct {
		label  string
		fields nodetracer.Fields
	}{
		{"input", n.Input},
		{"output", n.Output},
		{"metadata", n.Metadata},
	} {
		if len(section.fields) == 0 {
			continue
		}
		keys := make([]string, 0, len(section.fields))
		for k := range section.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := elide(fmt.Sprintf("%v", section.fields[k]), budget)
			if _, err := fmt.Fprintf(w, "%s%s.%s: %s\n", prefix, section.label, k, v); err != nil {
				return err
			}
		}
	}
	for _, a := range n.Annotations {
		if _, err := fmt.Fprintf(w, "%sannotation: %q\n", prefix, elide(a, budget)); err != nil {
			return err
		}
	}
	if n.Error != "" {
		if _, err := fmt.Fprintf(w, "%serror: %s: %s\n", prefix, n.ErrorType, elide(n.Error, budget)); err != nil {
			return err
		}
	}
	return nil
}

// elide caps a rendered value at the character budget, cutting on a
// rune boundary.
func elide(s string, budget int) string {
	if budget <= 0 || utf8.RuneCountInString(s) <= budget {
		return s
	}
	for i := range s {
		if budget == 0 {
			return s[:i] + "…"
		}
		budget--
	}
	return s
}

func statusGlyph(s nodetracer.Status) string {
	switch s {
	case nodetracer.StatusCompleted:
		return "✓"
	case nodetracer.StatusFailed:
		return "✗"
	case nodetracer.StatusRunning:
		return "…"
	}
	return "·"
}
