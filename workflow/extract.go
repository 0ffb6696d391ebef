// ABOUTME: Pulls executable script text out of free-form model output and applies
// ABOUTME: deterministic guards before the script is handed to validation.
package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// codeBlockPattern matches fenced code blocks with an optional language tag.
	codeBlockPattern = regexp.MustCompile("(?s)```(?:javascript|js|typescript|ts)?\\s*\\n(.*?)```")

	// insertChildPattern matches parent.insertChild(index, node) calls so the
	// index can be clamped to the child count at runtime.
	insertChildPattern = regexp.MustCompile(`(\w[\w.]*)\.insertChild\(\s*([^,]+?)\s*,\s*([^)]+?)\s*\)`)
)

// safeInsertHelper clamps an insert index to the parent's child count.
// Prepended once when any insertChild rewrite happens.
const safeInsertHelper = `function __clampInsert(parent, index, node) {
  parent.insertChild(Math.max(0, Math.min(index, parent.children.length)), node);
}
`

// placeholderSubstitutions maps placeholder identifiers the model sometimes
// leaves in scripts to concrete values.
var placeholderSubstitutions = map[string]string{
	`"YOUR_FONT_FAMILY"`: `"Inter"`,
	`"YOUR_FONT_STYLE"`:  `"Regular"`,
	`"YOUR_TEXT_HERE"`:   `"Text"`,
	`"NODE_ID_HERE"`:     `""`,
	`YOUR_WIDTH`:         `100`,
	`YOUR_HEIGHT`:        `100`,
}

// ExtractScript pulls the script out of a model response. Fenced code blocks
// win; otherwise a line heuristic keeps lines that look like statements. The
// result has guards applied. Returns "" when nothing script-like is present.
func ExtractScript(content string) string {
	var script string
	if m := codeBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		script = m[1]
	} else {
		script = filterCodeLines(content)
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return ""
	}
	return applyGuards(script)
}

// filterCodeLines keeps lines that carry statement tokens or start with an
// ASCII letter, dropping markdown markers, bullets, and blank prose.
func filterCodeLines(content string) string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if looksLikeCode(trimmed) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func looksLikeCode(line string) bool {
	if strings.ContainsAny(line, "=(){};") {
		return true
	}
	c := line[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// applyGuards runs the deterministic post-processing passes: placeholder
// substitution and bounds-checked insert-at-index rewriting.
func applyGuards(script string) string {
	for placeholder, value := range placeholderSubstitutions {
		script = strings.ReplaceAll(script, placeholder, value)
	}

	rewritten := false
	script = insertChildPattern.ReplaceAllStringFunc(script, func(call string) string {
		m := insertChildPattern.FindStringSubmatch(call)
		if m == nil {
			return call
		}
		rewritten = true
		return fmt.Sprintf("__clampInsert(%s, %s, %s)", m[1], m[2], m[3])
	})
	if rewritten {
		script = safeInsertHelper + "\n" + script
	}
	return script
}
