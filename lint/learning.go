// ABOUTME: Renders accumulated validation defects into one ordered, numbered remediation
// ABOUTME: document that seeds the next generation attempt's prompt.
package lint

import (
	"fmt"
	"strings"
)

// noIssuesLearning is returned when validation found nothing to fix.
const noIssuesLearning = "No issues found. The previous script passed validation."

// RenderLearning turns defects into a human-readable remediation document:
// one numbered entry per defect with problem, suggested fix, and the offending
// code fragment. Errors are listed before warnings.
func RenderLearning(errors, warnings []Defect) string {
	if len(errors) == 0 && len(warnings) == 0 {
		return noIssuesLearning
	}

	var b strings.Builder
	b.WriteString("Fix the following issues before regenerating:\n")

	n := 0
	for _, d := range append(append([]Defect{}, errors...), warnings...) {
		n++
		fmt.Fprintf(&b, "\n%d. [%s] %s\n", n, d.Kind, d.Message)
		if d.Fix != "" {
			fmt.Fprintf(&b, "   Fix: %s\n", d.Fix)
		}
		if d.Fragment != "" {
			fmt.Fprintf(&b, "   Code: %s\n", d.Fragment)
		}
	}
	return b.String()
}
