// ABOUTME: Validator service combining the type/semantic check, domain pattern rules,
// ABOUTME: and the learning-context generator into one layered pipeline.
package lint

import (
	"fmt"
	"strings"
)

// Validator decides whether a generated script is safe to execute. It is
// constructor-injected into the workflow engine, carries no mutable state
// after construction, and is safe for concurrent use.
type Validator struct {
	surface *Surface
	rules   []Rule
}

// NewValidator creates a Validator with the given surface and rules.
// Nil arguments select the defaults.
func NewValidator(surface *Surface, rules []Rule) *Validator {
	if surface == nil {
		surface = NewSurface()
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Validator{surface: surface, rules: rules}
}

// Validate runs the full pipeline. All layers accumulate defects; nothing
// short-circuits. If any layer panics, the result degrades to the minimal
// fallback check instead of failing the whole run.
func (v *Validator) Validate(script string) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result = v.Fallback(script)
		}
	}()

	var errs, warns []Defect

	for _, d := range TypeCheck(v.surface, script) {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		} else {
			warns = append(warns, d)
		}
	}

	for _, rule := range v.rules {
		for _, d := range rule.Apply(script) {
			if d.Severity == SeverityError {
				errs = append(errs, d)
			} else {
				warns = append(warns, d)
			}
		}
	}

	return &Result{
		Errors:   errs,
		Warnings: warns,
		Learning: RenderLearning(errs, warns),
	}
}

// Fallback is the degraded check used when the full pipeline is unavailable:
// the script must contain at least one call through the system namespace and
// must not use await outside an async function.
func (v *Validator) Fallback(script string) *Result {
	var errs []Defect

	if !strings.Contains(script, "figma.") {
		errs = append(errs, Defect{
			Kind:     KindValidation,
			Severity: SeverityError,
			Rule:     "fallback-minimal",
			Message:  "script contains no figma API calls",
			Fix:      "the script must operate on the document through the figma API",
		})
	}

	if awaitPattern.MatchString(script) && !asyncPattern.MatchString(script) {
		errs = append(errs, Defect{
			Kind:     KindSyntax,
			Severity: SeverityError,
			Rule:     "fallback-minimal",
			Message:  "await used outside an async function",
			Fix:      "wrap the await in an async function",
		})
	}

	return &Result{
		Errors:   errs,
		Learning: RenderLearning(errs, nil),
	}
}

// Describe returns a short one-line summary of a result for run logs.
func Describe(r *Result) string {
	if r.OK() {
		return "validation passed"
	}
	kinds := make([]string, 0, len(r.Errors))
	seen := make(map[Kind]bool)
	for _, d := range r.Errors {
		if !seen[d.Kind] {
			seen[d.Kind] = true
			kinds = append(kinds, string(d.Kind))
		}
	}
	return fmt.Sprintf("validation found %d error(s): %s", len(r.Errors), strings.Join(kinds, ", "))
}
