// ABOUTME: Domain pattern rules for generated scripts: regex scanning plus structural
// ABOUTME: traversal of color literals. Each rule accumulates defects independently.
package lint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rule is one domain pattern check applied to a whole script.
type Rule interface {
	Name() string
	Apply(script string) []Defect
}

// DefaultRules returns the built-in domain rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		&layoutSizingAfterAttachRule{},
		&colorFormatRule{},
	}
}

// --- layout sizing after attach ---

var (
	attachPattern = regexp.MustCompile(`\.(?:appendChild|insertChild)\(\s*(?:\d+\s*,\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*\)`)
	sizingPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.(layoutSizingHorizontal|layoutSizingVertical)\s*=`)
)

// layoutSizingAfterAttachRule flags layout-sizing assignments on a variable
// that an earlier statement already attached to a parent.
type layoutSizingAfterAttachRule struct{}

func (r *layoutSizingAfterAttachRule) Name() string { return "layout-sizing-after-attach" }

func (r *layoutSizingAfterAttachRule) Apply(script string) []Defect {
	var defects []Defect
	attached := make(map[string]bool)

	for i, line := range strings.Split(script, "\n") {
		for _, m := range sizingPattern.FindAllStringSubmatch(line, -1) {
			if attached[m[1]] {
				defects = append(defects, Defect{
					Kind:     KindFigmaAPIErr,
					Severity: SeverityError,
					Rule:     r.Name(),
					Message:  fmt.Sprintf("%s set on %q after it was attached to a parent", m[2], m[1]),
					Fragment: strings.TrimSpace(line),
					Fix:      "set layout sizing before appendChild, or re-read the node after attach",
					Line:     i + 1,
				})
			}
		}
		for _, m := range attachPattern.FindAllStringSubmatch(line, -1) {
			attached[m[1]] = true
		}
	}
	return defects
}

// --- color literal format ---

var (
	objectLiteralPattern = regexp.MustCompile(`\{[^{}]*\}`)
	redKeyPattern        = regexp.MustCompile(`\br\s*:`)
	greenKeyPattern      = regexp.MustCompile(`\bg\s*:`)
	blueKeyPattern       = regexp.MustCompile(`\bb\s*:`)
	alphaKeyPattern      = regexp.MustCompile(`\ba\s*:`)
	channelPattern       = regexp.MustCompile(`\b([rgb])\s*:\s*(-?\d+(?:\.\d+)?)`)
)

// isColorLiteral reports whether a flat object literal carries all three of
// the r, g, b keys, in any order.
func isColorLiteral(literal string) bool {
	return redKeyPattern.MatchString(literal) &&
		greenKeyPattern.MatchString(literal) &&
		blueKeyPattern.MatchString(literal)
}

// colorFormatRule traverses object literals carrying r, g, and b keys in any
// order: the alpha key must be absent (opacity is a separate node property)
// and each channel must stay in [0,1].
type colorFormatRule struct{}

func (r *colorFormatRule) Name() string { return "color-literal-format" }

func (r *colorFormatRule) Apply(script string) []Defect {
	var defects []Defect

	for i, line := range strings.Split(script, "\n") {
		for _, literal := range objectLiteralPattern.FindAllString(line, -1) {
			if !isColorLiteral(literal) {
				continue
			}
			if alphaKeyPattern.MatchString(literal) {
				defects = append(defects, Defect{
					Kind:     KindColorFormat,
					Severity: SeverityError,
					Rule:     r.Name(),
					Message:  "color literal carries an alpha key; use {r,g,b} and set opacity separately",
					Fragment: literal,
					Fix:      "remove the \"a\" key from the color literal",
					Line:     i + 1,
				})
				// Alpha is the headline defect for this literal; range
				// checks would only restate the same fix.
				continue
			}
			for _, m := range channelPattern.FindAllStringSubmatch(literal, -1) {
				v, err := strconv.ParseFloat(m[2], 64)
				if err != nil {
					continue
				}
				if v < 0 || v > 1 {
					defects = append(defects, Defect{
						Kind:     KindColorFormat,
						Severity: SeverityError,
						Rule:     r.Name(),
						Message:  fmt.Sprintf("color channel %q = %s is outside [0,1]; channels are normalized, not 0-255", m[1], m[2]),
						Fragment: literal,
						Fix:      "divide 0-255 channel values by 255",
						Line:     i + 1,
					})
				}
			}
		}
	}
	return defects
}
