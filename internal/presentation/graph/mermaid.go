// Package graph renders the workflow topology as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/cognito/internal/runtime"
)

// GraphOverlay contains walk data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFor builds an overlay from a walk's history and next node.
func OverlayFor(history []string, current string) *GraphOverlay {
	return &GraphOverlay{VisitedNodes: history, CurrentNode: current}
}

// GenerateMermaid produces a Mermaid flowchart of g.
// Shapes:
//   - entry: ((circle))
//   - nodes that can suspend for approval: [[subroutine]]
//   - exhausted (synthesis) node: {{hexagon}}
//   - default: [rectangle]
//
// Retry edges are dotted, fallbacks are thick.
func GenerateMermaid(g *runtime.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range g.Nodes() {
		opener, closer := "[", "]"
		switch {
		case id == g.Entry():
			opener, closer = "((", "))"
		case g.Gated(id):
			opener, closer = "[[", "]]"
		case id == g.Exhausted():
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(id), opener, id, closer)
	}
	fmt.Fprintf(&sb, "    %s((\"end\"))\n", sanitizeMermaidID(runtime.End))

	for _, e := range g.Edges() {
		from, to := sanitizeMermaidID(e.From), sanitizeMermaidID(e.To)
		label := strings.ReplaceAll(e.Label, "\"", "'")
		switch {
		case e.Retry:
			fmt.Fprintf(&sb, "    %s -. \"%s (retry)\" .-> %s\n", from, label, to)
		case e.Fallback:
			fmt.Fprintf(&sb, "    %s == \"fallback\" ==> %s\n", from, to)
		case label != "":
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, label, to)
		default:
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", "$", "_", " ", "_").Replace(id)
}
