// Package tui renders walk results for a terminal.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/cognito"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// When the renderer cannot be built, text passes through unchanged.
func NewRenderer(width int) func(string) string {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(markdown string) string { return markdown }
	}
	return func(markdown string) string {
		out, err := r.Render(markdown)
		if err != nil {
			return markdown
		}
		return out
	}
}

// PlainRenderer leaves markdown as is, for pipes and tests.
func PlainRenderer(markdown string) string { return markdown }

// AnswerMarkdown formats a walk result. A suspended walk shows the action awaiting review.
func AnswerMarkdown(a *cognito.Answer) string {
	var sb strings.Builder
	if a.Suspended() {
		call := a.PendingApproval.ToolCall
		fmt.Fprintf(&sb, "## Approval required\n\n")
		fmt.Fprintf(&sb, "The **%s** specialist wants to run the critical tool `%s`.\n\n", a.SpecialistUsed.Title(), call.Name)
		if len(call.Args) > 0 {
			sb.WriteString("| argument | value |\n|---|---|\n")
			for _, k := range sortedKeys(call.Args) {
				fmt.Fprintf(&sb, "| %s | %v |\n", k, call.Args[k])
			}
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Walk `%s`\n", a.WalkID)
		return sb.String()
	}

	sb.WriteString(a.FinalAnswer)
	sb.WriteString("\n\n---\n\n")
	fmt.Fprintf(&sb, "- specialist: `%s`\n", a.SpecialistUsed)
	fmt.Fprintf(&sb, "- risk: %.2f\n", a.RiskScore)
	fmt.Fprintf(&sb, "- revisions: %d\n", a.Iterations)
	fmt.Fprintf(&sb, "- audit: `%s`\n", a.AuditHash)
	return sb.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
