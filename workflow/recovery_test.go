// ABOUTME: Tests for error categorization, recurrence pattern detection, and the
// ABOUTME: strategy decisions of the recovery engine.
package workflow

import (
	"strings"
	"testing"

	"github.com/draftforge/canvasflow/plan"
)

func TestCategorizeError(t *testing.T) {
	cases := []struct {
		message string
		want    ErrorCategory
	}{
		{"planning request failed: timeout", CategoryPlanning},
		{"figma-design produced an invalid design set", CategoryDesign},
		{"generation produced an empty script", CategoryGeneration},
		{"validation failed after 4 attempts", CategoryValidation},
		{"execution failed: node not found", CategoryExecution},
		{"something odd happened", CategoryUnknown},
	}
	for _, tc := range cases {
		if got := CategorizeError(tc.message); got != tc.want {
			t.Errorf("CategorizeError(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}

func TestDetectPatternFirstError(t *testing.T) {
	history := []ErrorRecord{{Category: CategoryValidation}}
	if got := DetectPattern(history, CategoryValidation); got != PatternFirstError {
		t.Errorf("got %s, want first_error", got)
	}
}

func TestDetectPatternRecurring(t *testing.T) {
	history := []ErrorRecord{
		{Category: CategoryValidation},
		{Category: CategoryValidation},
		{Category: CategoryValidation},
	}
	if got := DetectPattern(history, CategoryValidation); got != PatternRecurringError {
		t.Errorf("got %s, want recurring_error", got)
	}
}

func TestDetectPatternIsolated(t *testing.T) {
	history := []ErrorRecord{
		{Category: CategoryPlanning},
		{Category: CategoryExecution},
	}
	if got := DetectPattern(history, CategoryExecution); got != PatternIsolatedError {
		t.Errorf("got %s, want isolated_error", got)
	}
}

func TestDetectPatternPersistentAcrossMixedCategories(t *testing.T) {
	// Five consecutive errors, mixed categories, must read as persistent even
	// though no single category recurs more than twice.
	history := []ErrorRecord{
		{Category: CategoryPlanning},
		{Category: CategoryGeneration},
		{Category: CategoryValidation},
		{Category: CategoryExecution},
		{Category: CategoryUnknown},
	}
	if got := DetectPattern(history, CategoryUnknown); got != PatternPersistentFailures {
		t.Errorf("got %s, want persistent_failures", got)
	}
}

func TestDecideFirstErrorRetriesWithLearning(t *testing.T) {
	s := &WorkflowState{Error: "validation failed: bad color", MaxRetries: 3}
	d := Decide(s)

	if d.Strategy != StrategyRetryWithLearning {
		t.Fatalf("strategy = %s", d.Strategy)
	}
	if d.Category != CategoryValidation || d.Pattern != PatternFirstError {
		t.Errorf("category=%s pattern=%s", d.Category, d.Pattern)
	}
	if d.Resume != StepGenerate {
		t.Errorf("resume = %s, want generate", d.Resume)
	}
	if !strings.Contains(d.Learning, "bad color") {
		t.Errorf("learning should carry the failure: %q", d.Learning)
	}
}

func TestDecideExecutionFirstErrorResumesAtGenerate(t *testing.T) {
	// A first execution failure regenerates the script against the reported
	// canvas state; the plan and design are still sound, so no replanning.
	s := &WorkflowState{Error: "execution failed: node not found", MaxRetries: 3}

	d := Decide(s)

	if d.Strategy != StrategyRetryWithLearning {
		t.Fatalf("strategy = %s", d.Strategy)
	}
	if d.Category != CategoryExecution || d.Pattern != PatternFirstError {
		t.Errorf("category=%s pattern=%s", d.Category, d.Pattern)
	}
	if d.Resume != StepGenerate {
		t.Errorf("resume = %s, want generate", d.Resume)
	}
}

func TestDecideAbortsWhenRetriesExhausted(t *testing.T) {
	s := &WorkflowState{Error: "validation failed again", MaxRetries: 3, RetryCount: 3}
	if d := Decide(s); d.Strategy != StrategyAbort {
		t.Errorf("strategy = %s, want abort", d.Strategy)
	}
}

func TestDecideAbortsOnPersistentFailures(t *testing.T) {
	s := &WorkflowState{Error: "generation produced an empty script", MaxRetries: 10}
	for i := 0; i < 4; i++ {
		s.ErrorHistory = append(s.ErrorHistory, ErrorRecord{Category: CategoryUnknown})
	}
	if d := Decide(s); d.Strategy != StrategyAbort {
		t.Errorf("strategy = %s, want abort", d.Strategy)
	}
}

func TestDecidePartialRecoveryForExecutionWithArtifacts(t *testing.T) {
	s := &WorkflowState{
		Error:      "execution failed: partial run",
		MaxRetries: 4,
		RetryCount: 2,
		Plan:       &plan.Plan{Todos: []plan.TodoItem{{ID: "t1"}}},
		Generation: &GenerationResult{Script: "figma.createFrame();"},
	}
	d := Decide(s)
	if d.Strategy != StrategyPartialRecovery {
		t.Fatalf("strategy = %s, want partial_recovery", d.Strategy)
	}
	if d.Resume != StepVerify {
		t.Errorf("resume = %s, want verify", d.Resume)
	}
}

func TestDecideAbortsOnRecurringCategory(t *testing.T) {
	s := &WorkflowState{Error: "validation failed once more", MaxRetries: 10}
	s.ErrorHistory = []ErrorRecord{
		{Category: CategoryValidation},
		{Category: CategoryValidation},
		{Category: CategoryValidation},
	}
	d := Decide(s)
	if d.Pattern != PatternRecurringError {
		t.Fatalf("pattern = %s", d.Pattern)
	}
	if d.Strategy != StrategyAbort {
		t.Errorf("strategy = %s, want abort", d.Strategy)
	}
}

func TestDecidePartialRecoveryNeedsArtifacts(t *testing.T) {
	s := &WorkflowState{Error: "execution failed: partial run", MaxRetries: 4, RetryCount: 2}
	if d := Decide(s); d.Strategy != StrategyAbort {
		t.Errorf("strategy = %s, want abort without plan and script", d.Strategy)
	}
}

func TestDecideRecordsErrorHistoryAppendOnly(t *testing.T) {
	s := &WorkflowState{Error: "planning request failed", MaxRetries: 3}
	Decide(s)
	s.Error = "planning request failed again"
	Decide(s)

	if len(s.ErrorHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(s.ErrorHistory))
	}
	if s.ErrorHistory[0].Message != "planning request failed" {
		t.Errorf("first entry rewritten: %+v", s.ErrorHistory[0])
	}
}

func TestApplyDecisionRetryMutatesState(t *testing.T) {
	s := &WorkflowState{Error: "validation failed", MaxRetries: 3}
	d := RecoveryDecision{
		Strategy: StrategyRetryWithLearning,
		Resume:   StepGenerate,
		Learning: "Previous attempt failed (validation): bad color\nUse RGB objects.",
	}

	next := ApplyDecision(s, d)
	if next != StepGenerate {
		t.Errorf("next = %s", next)
	}
	if s.RetryCount != 1 || s.Error != "" {
		t.Errorf("retryCount=%d error=%q", s.RetryCount, s.Error)
	}
	if !strings.Contains(s.Learning, "bad color") {
		t.Errorf("learning not applied: %q", s.Learning)
	}

	foundNegative := false
	for _, sp := range s.SuccessPatterns {
		if sp.Negative && strings.HasPrefix(sp.Pattern, "avoid:") {
			foundNegative = true
		}
	}
	if !foundNegative {
		t.Error("expected a negative success pattern entry")
	}
}

func TestApplyDecisionAbortIsTerminal(t *testing.T) {
	s := &WorkflowState{Error: "gave up"}
	if next := ApplyDecision(s, RecoveryDecision{Strategy: StrategyAbort}); next != StepEnd {
		t.Errorf("next = %s", next)
	}
	if !s.IsComplete || s.Error != "gave up" {
		t.Errorf("complete=%v error=%q", s.IsComplete, s.Error)
	}
}

func TestApplyDecisionPartialRecovery(t *testing.T) {
	s := &WorkflowState{Error: "execution failed"}
	next := ApplyDecision(s, RecoveryDecision{Strategy: StrategyPartialRecovery, Resume: StepVerify})
	if next != StepVerify || !s.PartialRetry || s.Error != "" {
		t.Errorf("next=%s partial=%v error=%q", next, s.PartialRetry, s.Error)
	}
}
