// Package graph renders the place catalog's connection graph as Graphviz
// DOT for offline inspection.
package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tripweaver/tripweaver/store"
)

var typeColors = map[string]string{
	"city":     "lightblue",
	"landmark": "lightyellow",
	"dish":     "lightpink",
	"activity": "lightgreen",
}

// WriteDOT renders the places and their connections. Edges pointing at
// unknown targets are kept; Graphviz will synthesize the node.
func WriteDOT(w io.Writer, places []*store.Place) error {
	sorted := make([]*store.Place, len(places))
	copy(sorted, places)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var sb strings.Builder
	sb.WriteString("digraph places {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=filled];\n")

	for _, p := range sorted {
		color := typeColors[p.Type]
		if color == "" {
			color = "lightgray"
		}
		fmt.Fprintf(&sb, "  %q [label=%q, fillcolor=%q];\n", p.ID, p.Name, color)
	}
	for _, p := range sorted {
		for _, c := range p.Connections {
			if c.Relation != "" {
				fmt.Fprintf(&sb, "  %q -> %q [label=%q];\n", p.ID, c.Target, c.Relation)
			} else {
				fmt.Fprintf(&sb, "  %q -> %q;\n", p.ID, c.Target)
			}
		}
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
