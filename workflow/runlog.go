// ABOUTME: Renders a state's append-only run log as markdown for inspection pages
// ABOUTME: and CLI output.
package workflow

import (
	"fmt"
	"strings"
)

// RenderRunLog produces a markdown account of the run so far: one section per
// log entry, with outstanding context requests and the terminal outcome.
func RenderRunLog(s *WorkflowState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", s.RunID)
	fmt.Fprintf(&b, "**Request:** %s\n\n", s.UserPrompt)

	for _, entry := range s.RunLog {
		fmt.Fprintf(&b, "## %s — %s\n\n", entry.Step, entry.Timestamp.Format("15:04:05"))
		fmt.Fprintf(&b, "%s\n\n", entry.Summary)
		writeRequested(&b, entry.Requested)
	}

	if len(s.ErrorHistory) > 0 {
		b.WriteString("## Errors\n\n")
		for _, rec := range s.ErrorHistory {
			fmt.Fprintf(&b, "- `%s` %s\n", rec.Category, rec.Message)
		}
		b.WriteString("\n")
	}

	switch {
	case s.IsComplete && s.Error != "":
		fmt.Fprintf(&b, "**Outcome:** failed — %s\n", s.Error)
	case s.IsComplete:
		b.WriteString("**Outcome:** completed\n")
	default:
		fmt.Fprintf(&b, "**Outcome:** in progress at %s\n", s.CurrentStep)
	}
	return b.String()
}

func writeRequested(b *strings.Builder, r RequestedContext) {
	if r.Empty() {
		return
	}
	b.WriteString("Requested context:\n\n")
	for _, id := range r.NodeIDs {
		fmt.Fprintf(b, "- node `%s`\n", id)
	}
	for _, a := range r.Assets {
		fmt.Fprintf(b, "- asset `%s`: %s\n", a.Type, a.Description)
	}
	for _, q := range r.Questions {
		fmt.Fprintf(b, "- question: %s\n", q)
	}
	b.WriteString("\n")
}
