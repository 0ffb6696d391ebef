// ABOUTME: Error recovery: categorizes failures, detects recurrence patterns over the
// ABOUTME: error history, and picks a recovery strategy with a resume step.
package workflow

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCategory classifies where in the workflow a failure originated.
type ErrorCategory string

const (
	CategoryPlanning   ErrorCategory = "planning"
	CategoryDesign     ErrorCategory = "figma-design"
	CategoryGeneration ErrorCategory = "generation"
	CategoryValidation ErrorCategory = "validation"
	CategoryExecution  ErrorCategory = "execution"
	CategoryUnknown    ErrorCategory = "unknown"
)

// ErrorPattern describes how the current failure relates to the history.
type ErrorPattern string

const (
	PatternFirstError         ErrorPattern = "first_error"
	PatternIsolatedError      ErrorPattern = "isolated_error"
	PatternRecurringError     ErrorPattern = "recurring_error"
	PatternPersistentFailures ErrorPattern = "persistent_failures"
)

// RecoveryStrategy is the action handleError decides on.
type RecoveryStrategy string

const (
	StrategyAbort             RecoveryStrategy = "abort"
	StrategyPartialRecovery   RecoveryStrategy = "partial_recovery"
	StrategyRetryWithLearning RecoveryStrategy = "retry_with_learning"
)

// persistentFailureCount is the error-history size at which recovery gives up
// on targeted retries and treats the run as persistently failing.
const persistentFailureCount = 5

// recurringCategoryCount: more than this many errors in one category marks the
// failure as recurring.
const recurringCategoryCount = 2

// RecoveryDecision is the outcome of one handleError pass.
type RecoveryDecision struct {
	Category ErrorCategory    `json:"category"`
	Pattern  ErrorPattern     `json:"pattern"`
	Strategy RecoveryStrategy `json:"strategy"`
	Resume   Step             `json:"resume,omitempty"`
	Learning string           `json:"learning,omitempty"`
}

// CategorizeError maps a failure message onto the workflow stage it most
// likely came from, by keyword.
func CategorizeError(message string) ErrorCategory {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "plan"):
		return CategoryPlanning
	case strings.Contains(lower, "design"):
		return CategoryDesign
	case strings.Contains(lower, "generat") || strings.Contains(lower, "code block") || strings.Contains(lower, "empty script"):
		return CategoryGeneration
	case strings.Contains(lower, "valid") || strings.Contains(lower, "syntax") || strings.Contains(lower, "type error"):
		return CategoryValidation
	case strings.Contains(lower, "execut") || strings.Contains(lower, "sandbox") || strings.Contains(lower, "figma"):
		return CategoryExecution
	default:
		return CategoryUnknown
	}
}

// DetectPattern classifies the current failure against the full error history,
// which already includes the current error as its last entry.
func DetectPattern(history []ErrorRecord, current ErrorCategory) ErrorPattern {
	if len(history) <= 1 {
		return PatternFirstError
	}
	if len(history) >= persistentFailureCount {
		return PatternPersistentFailures
	}
	sameCategory := 0
	for _, rec := range history {
		if rec.Category == current {
			sameCategory++
		}
	}
	if sameCategory > recurringCategoryCount {
		return PatternRecurringError
	}
	return PatternIsolatedError
}

// Decide runs the full recovery pipeline for the state's current Error:
// records it, categorizes, detects the pattern, and picks a strategy with a
// resume step. The error history is append-only; Decide never rewrites
// earlier entries.
func Decide(s *WorkflowState) RecoveryDecision {
	category := CategorizeError(s.Error)

	rec := ErrorRecord{
		Message:   s.Error,
		Category:  category,
		Timestamp: time.Now().UTC(),
	}
	if s.Generation != nil {
		rec.Script = s.Generation.Script
	}
	s.ErrorHistory = append(s.ErrorHistory, rec)

	pattern := DetectPattern(s.ErrorHistory, category)

	d := RecoveryDecision{Category: category, Pattern: pattern}

	switch {
	case pattern == PatternPersistentFailures || s.RetryCount >= s.MaxRetries:
		d.Strategy = StrategyAbort

	case category == CategoryExecution && s.RetryCount > 1:
		// The script ran but only partly succeeded; keep what landed and
		// re-check against the plan rather than regenerating from scratch.
		// Without a plan and script in hand there is nothing to recover.
		if s.Plan != nil && s.Generation != nil {
			d.Strategy = StrategyPartialRecovery
			d.Resume = StepVerify
		} else {
			d.Strategy = StrategyAbort
		}

	case pattern == PatternFirstError || pattern == PatternIsolatedError:
		d.Strategy = StrategyRetryWithLearning
		d.Resume = resumeStepFor(category)
		d.Learning = remediationFor(category, s.Error)

	default:
		d.Strategy = StrategyAbort
	}
	return d
}

// resumeStepFor maps a failure category to the step a learning retry restarts from.
func resumeStepFor(category ErrorCategory) Step {
	switch category {
	case CategoryPlanning, CategoryDesign:
		return StepPlanning
	case CategoryGeneration, CategoryValidation:
		return StepGenerate
	case CategoryExecution:
		return StepGenerate
	default:
		return StepPlanning
	}
}

// remediationFor renders category-specific guidance injected into the retry prompt.
func remediationFor(category ErrorCategory, message string) string {
	var advice string
	switch category {
	case CategoryPlanning:
		advice = "Produce a simpler plan with fewer, smaller todos and explicit target nodes."
	case CategoryDesign:
		advice = "Keep the design specs minimal: one frame per todo, no nested parent chains."
	case CategoryGeneration:
		advice = "Emit only executable code with no prose, and close every block you open."
	case CategoryValidation:
		advice = "Use only documented API methods and RGB color objects with channels in [0, 1]."
	case CategoryExecution:
		advice = "Guard every node lookup against null and load fonts before setting text."
	default:
		advice = "Retry with a more conservative approach."
	}
	return fmt.Sprintf("Previous attempt failed (%s): %s\n%s", category, message, advice)
}

// ApplyDecision mutates the state according to the decision and returns the
// next step. Abort is terminal: the error text is preserved and the run ends.
func ApplyDecision(s *WorkflowState, d RecoveryDecision) Step {
	switch d.Strategy {
	case StrategyAbort:
		s.IsComplete = true
		return StepEnd

	case StrategyPartialRecovery:
		s.PartialRetry = true
		s.Error = ""
		return d.Resume

	default:
		s.RetryCount++
		s.Error = ""
		if d.Learning != "" {
			s.Learning = appendLearning(s.Learning, d.Learning)
		}
		s.SuccessPatterns = append(s.SuccessPatterns, SuccessPattern{
			Pattern:   "avoid: " + firstLine(d.Learning),
			Negative:  true,
			Timestamp: time.Now().UTC(),
		})
		return d.Resume
	}
}

func appendLearning(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "\n\n" + addition
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
