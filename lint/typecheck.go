// ABOUTME: Lightweight type/semantic check of a generated script against the declared
// ABOUTME: API surface, with ignore-list filtering for diagnostics the runtime tolerates.
package lint

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// figma.<method>( direct call through the system namespace
	figmaCallPattern = regexp.MustCompile(`\bfigma\.([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

	// <ident>.<prop> = assignment (single =, not == or =>)
	propAssignPattern = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\.([A-Za-z_][A-Za-z0-9_]*)\s*=(?:[^=>]|$)`)

	// obj["key"] = dynamic bracket-notation assignment
	bracketAssignPattern = regexp.MustCompile(`\[\s*["'][^"']+["']\s*\]\s*=[^=]`)

	awaitPattern = regexp.MustCompile(`\bawait\b`)
	asyncPattern = regexp.MustCompile(`\basync\b`)
)

// figmaNamespaceProps are non-call accesses through the namespace that are
// always legal and never subject to the method allow-list.
var figmaNamespaceProps = map[string]bool{
	"currentPage": true, "root": true, "viewport": true, "ui": true,
	"mixed": true, "variables": true, "editorType": true, "skipInvisibleInstanceChildren": true,
}

// TypeCheck runs the semantic layer: namespace method allow-list, node property
// declarations, await placement, and brace balance. Diagnostics matching the
// surface's ignore-list are suppressed.
func TypeCheck(surface *Surface, script string) []Defect {
	var defects []Defect

	if d := checkBalance(script); d != nil {
		defects = append(defects, *d)
	}

	scriptIsAsync := asyncPattern.MatchString(script)

	lines := strings.Split(script, "\n")
	for i, line := range lines {
		lineNo := i + 1

		for _, m := range figmaCallPattern.FindAllStringSubmatch(line, -1) {
			method := m[1]
			if surface.AllowsMethod(method) || figmaNamespaceProps[method] {
				continue
			}
			defects = append(defects, Defect{
				Kind:     KindFigmaAPI,
				Severity: SeverityError,
				Rule:     "system-namespace-allowlist",
				Message:  fmt.Sprintf("figma.%s is not a declared API method", method),
				Fragment: strings.TrimSpace(line),
				Fix:      "use a method from the declared figma API surface",
				Line:     lineNo,
			})
		}

		// Dynamic bracket-notation assignment is on the ignore-list: the
		// runtime accepts it even though the checker cannot prove the key.
		if bracketAssignPattern.MatchString(line) {
			continue
		}

		for _, m := range propAssignPattern.FindAllStringSubmatch(line, -1) {
			prop := m[1]
			if surface.KnownProp(prop) {
				continue
			}
			msg := fmt.Sprintf("property %q is not declared on any node type", prop)
			if surface.Ignorable(msg) || surface.Ignorable(prop) {
				continue
			}
			defects = append(defects, Defect{
				Kind:     KindType,
				Severity: SeverityError,
				Rule:     "declared-node-properties",
				Message:  msg,
				Fragment: strings.TrimSpace(line),
				Fix:      "assign only properties declared for the node type",
				Line:     lineNo,
			})
		}

		if awaitPattern.MatchString(line) && !scriptIsAsync {
			defects = append(defects, Defect{
				Kind:     KindSyntax,
				Severity: SeverityError,
				Rule:     "await-outside-async",
				Message:  "await used outside an async function",
				Fragment: strings.TrimSpace(line),
				Fix:      "wrap the await in an async function",
				Line:     lineNo,
			})
		}
	}

	return defects
}

// checkBalance verifies braces and parens pair up, ignoring string and
// template literal contents.
func checkBalance(script string) *Defect {
	braces, parens := 0, 0
	var inString byte
	escaped := false

	for i := 0; i < len(script); i++ {
		ch := script[i]
		if escaped {
			escaped = false
			continue
		}
		if inString != 0 {
			if ch == '\\' {
				escaped = true
			} else if ch == inString {
				inString = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			inString = ch
		case '{':
			braces++
		case '}':
			braces--
		case '(':
			parens++
		case ')':
			parens--
		}
		if braces < 0 || parens < 0 {
			break
		}
	}

	if braces != 0 || parens != 0 {
		return &Defect{
			Kind:     KindSyntax,
			Severity: SeverityError,
			Rule:     "balanced-delimiters",
			Message:  "unbalanced braces or parentheses",
			Fix:      "check that every { and ( has a matching close",
		}
	}
	return nil
}
