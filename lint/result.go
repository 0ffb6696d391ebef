// ABOUTME: Defect, severity, and result types for the generated-script validator.
// ABOUTME: Error kinds are a fixed enumeration shared with the workflow retry loop.
package lint

import "fmt"

// Kind identifies the class of a validation defect.
type Kind string

const (
	KindSyntax      Kind = "SYNTAX_ERROR"
	KindType        Kind = "TYPE_ERROR"
	KindFigmaAPIErr Kind = "FIGMA_API_ERROR"
	KindColorFormat Kind = "COLOR_FORMAT"
	KindFigmaAPI    Kind = "FIGMA_API"
	KindValidation  Kind = "VALIDATION_ERROR"
)

// Severity represents diagnostic severity level.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns a human-readable name for the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Defect is one validation finding against a generated script.
type Defect struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule,omitempty"`
	Message  string   `json:"message"`
	Fragment string   `json:"fragment,omitempty"` // offending code fragment
	Fix      string   `json:"fix,omitempty"`      // suggested fix
	Line     int      `json:"line,omitempty"`     // 1-based, 0 when unknown
}

// Result is the validator's full output for one script.
type Result struct {
	Errors   []Defect `json:"errors"`
	Warnings []Defect `json:"warnings"`

	// Learning is the rendered remediation document fed into the next
	// generation attempt. Always populated, even on success.
	Learning string `json:"learning"`
}

// OK reports validation success. Warnings never block.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}
