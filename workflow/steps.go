// ABOUTME: The individual workflow step implementations: blueprint, planning, design,
// ABOUTME: generate, validate, execute, verify, and handleError.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/draftforge/canvasflow/lint"
	"github.com/draftforge/canvasflow/llm"
	"github.com/draftforge/canvasflow/plan"
	"github.com/draftforge/canvasflow/verify"
)

// lowConfidenceThreshold: planner output below this confidence is replaced by
// the deterministic fallback plan.
const lowConfidenceThreshold = 0.3

// executionReportAssetType names the asset the execute step requests from the caller.
const executionReportAssetType = "execution-report"

// stepBlueprint derives the in-scope screens from the canvas snapshot. Selected
// top-level frames become existing screens; with nothing selected, one new
// screen is synthesized from the request. New screens surface open questions
// back to the caller.
func (e *Engine) stepBlueprint(ctx context.Context, s *WorkflowState) (Step, string, error) {
	bp := &plan.Blueprint{}
	for _, n := range s.Snapshot.Selection {
		bp.Screens = append(bp.Screens, plan.Screen{
			Name:   n.Name,
			Kind:   "existing",
			NodeID: n.ID,
		})
	}
	if len(bp.Screens) == 0 {
		bp.Screens = append(bp.Screens, plan.Screen{
			Name:     screenNameFromPrompt(s.UserPrompt),
			Kind:     "new",
			Synopsis: s.UserPrompt,
		})
		bp.OpenQuestions = append(bp.OpenQuestions,
			"Should the new screen follow an existing frame's styling, or start fresh?")
	}
	s.Blueprint = bp

	s.Requested.Questions = append(s.Requested.Questions, bp.OpenQuestions...)
	summary := fmt.Sprintf("blueprint: %d screen(s)", len(bp.Screens))
	return StepPlanning, summary, nil
}

// stepPlanning asks the model for a structured plan. Unparseable or
// low-confidence output degrades to a deterministic single-todo plan rather
// than failing the run.
func (e *Engine) stepPlanning(ctx context.Context, s *WorkflowState) (Step, string, error) {
	resp, err := e.completion.Complete(ctx, llm.Request{
		Messages: buildPlannerMessages(s),
		Model:    e.config.Model,
		Timeout:  e.config.StepTimeout,
	})
	if err != nil {
		s.Error = fmt.Sprintf("planning request failed: %v", err)
		return StepHandleError, s.Error, nil
	}

	p := parsePlan(resp.Text)
	if p == nil || len(p.Todos) == 0 || p.Confidence < lowConfidenceThreshold {
		p = fallbackPlan(s.UserPrompt)
	}
	p.Normalize()
	s.Plan = p

	summary := fmt.Sprintf("plan: %d todo(s), %d scenario(s), confidence %.2f",
		len(p.Todos), len(p.Scenarios), p.Confidence)
	return StepDesign, summary, nil
}

func parsePlan(text string) *plan.Plan {
	raw := llm.ExtractJSON(text)
	if raw == "" {
		return nil
	}
	var p plan.Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil
	}
	return &p
}

// fallbackPlan is the deterministic plan used when the planner output is
// unusable: a single create todo derived from the request.
func fallbackPlan(prompt string) *plan.Plan {
	return &plan.Plan{
		Confidence: lowConfidenceThreshold,
		Summary:    "fallback plan",
		Todos: []plan.TodoItem{{
			Task: prompt,
			Type: plan.TodoCreate,
		}},
	}
}

// stepDesign elaborates each planned todo into a concrete node spec. Requires
// a plan; unusable designer output degrades to synthesized per-todo designs.
func (e *Engine) stepDesign(ctx context.Context, s *WorkflowState) (Step, string, error) {
	if s.Plan == nil || len(s.Plan.Todos) == 0 {
		s.Error = "figma-design requires a plan but none is present"
		return StepHandleError, s.Error, nil
	}

	resp, err := e.completion.Complete(ctx, llm.Request{
		Messages: buildDesignerMessages(s),
		Model:    e.config.Model,
		Timeout:  e.config.StepTimeout,
	})
	if err != nil {
		s.Error = fmt.Sprintf("figma-design request failed: %v", err)
		return StepHandleError, s.Error, nil
	}

	ds := parseDesignSet(resp.Text)
	if ds == nil || len(ds.Designs) == 0 {
		ds = synthesizeDesigns(s.Plan)
	}
	ds.Normalize(s.Plan)
	if err := ds.Validate(s.Plan); err != nil {
		s.Error = fmt.Sprintf("figma-design produced an invalid design set: %v", err)
		return StepHandleError, s.Error, nil
	}
	s.Design = ds

	summary := fmt.Sprintf("design: %d spec(s) for %d todo(s)", len(ds.Designs), len(s.Plan.Todos))
	return StepGenerate, summary, nil
}

func parseDesignSet(text string) *plan.DesignSet {
	raw := llm.ExtractJSON(text)
	if raw == "" {
		return nil
	}
	var ds plan.DesignSet
	if err := json.Unmarshal([]byte(raw), &ds); err != nil {
		return nil
	}
	return &ds
}

// synthesizeDesigns builds one minimal frame spec per todo from the task text.
func synthesizeDesigns(p *plan.Plan) *plan.DesignSet {
	ds := &plan.DesignSet{}
	for _, t := range p.Todos {
		ds.Designs = append(ds.Designs, plan.TodoDesign{
			TodoID:   t.ID,
			Name:     t.Task,
			NodeType: "FRAME",
		})
	}
	return ds
}

// stepGenerate asks the model for the script implementing the plan and design,
// then extracts and guards it.
func (e *Engine) stepGenerate(ctx context.Context, s *WorkflowState) (Step, string, error) {
	if s.Plan == nil || s.Design == nil {
		s.Error = "generate requires a plan and design set"
		return StepHandleError, s.Error, nil
	}

	resp, err := e.completion.Complete(ctx, llm.Request{
		Messages: buildGeneratorMessages(s),
		Model:    e.config.Model,
		Timeout:  e.config.StepTimeout,
	})
	if err != nil {
		s.Error = fmt.Sprintf("generation request failed: %v", err)
		return StepHandleError, s.Error, nil
	}

	script := ExtractScript(resp.Text)
	if script == "" {
		s.Error = "generation produced an empty script"
		return StepHandleError, s.Error, nil
	}
	s.Generation = &GenerationResult{Script: script, Raw: resp.Text}

	summary := fmt.Sprintf("generated script (%d bytes)", len(script))
	return StepValidate, summary, nil
}

// stepValidate runs the code validator. Defects feed the learning context and
// loop back to generate while the retry budget lasts; an exhausted budget goes
// to error handling instead of executing a known-bad script.
func (e *Engine) stepValidate(ctx context.Context, s *WorkflowState) (Step, string, error) {
	if s.Generation == nil {
		s.Error = "validate requires a generated script"
		return StepHandleError, s.Error, nil
	}

	result := e.validator.Validate(s.Generation.Script)
	s.Validation = result

	if result.OK() {
		return StepExecute, lint.Describe(result), nil
	}

	if s.RetryCount < s.MaxRetries {
		s.RetryCount++
		s.Learning = appendLearning(s.Learning, result.Learning)
		summary := fmt.Sprintf("%s; retrying generation (%d/%d)", lint.Describe(result), s.RetryCount, s.MaxRetries)
		return StepGenerate, summary, nil
	}

	s.Error = fmt.Sprintf("validation failed after %d attempts: %s", s.RetryCount+1, lint.Describe(result))
	return StepHandleError, s.Error, nil
}

// stepExecute hands the validated script to the caller and requests the
// resulting execution report. The engine never runs the script itself.
func (e *Engine) stepExecute(ctx context.Context, s *WorkflowState) (Step, string, error) {
	if s.Generation == nil {
		s.Error = "execute requires a validated script"
		return StepHandleError, s.Error, nil
	}

	s.Requested.Assets = append(s.Requested.Assets, AssetRequest{
		Type:        executionReportAssetType,
		Description: "run the script and return the execution report",
	})
	return StepVerify, "awaiting execution report", nil
}

// stepVerify reconciles the plan against the execution report. Missing report:
// re-request and hold. Below-threshold match: one partial retry back through
// generation with the gap as learning; after that the run completes with the
// gap recorded.
func (e *Engine) stepVerify(ctx context.Context, s *WorkflowState) (Step, string, error) {
	if s.Plan == nil {
		s.Error = "verify requires a plan but none is present"
		return StepHandleError, s.Error, nil
	}

	report := s.Collected.ExecutionReport
	if report == nil {
		s.Requested.Assets = append(s.Requested.Assets, AssetRequest{
			Type:        executionReportAssetType,
			Description: "execution report not yet received",
		})
		return StepVerify, "still awaiting execution report", nil
	}
	if report.Error != nil {
		s.Error = fmt.Sprintf("execution failed: %s", report.Error.Message)
		return StepHandleError, s.Error, nil
	}
	s.Execution = report

	vr := verify.Match(s.Plan, s.Design, report)
	summary := fmt.Sprintf("verified %d/%d todo(s) (%.0f%%)", vr.Matched, vr.Total, vr.Ratio*100)

	if vr.Ratio >= e.config.VerifyThreshold {
		return StepComplete, summary, nil
	}

	if s.VerifyRetryCount < e.config.VerifyMaxRetries {
		s.VerifyRetryCount++
		s.PartialRetry = true
		s.Learning = appendLearning(s.Learning, verifyGapLearning(vr))
		// Consume the stale report so the retried script gets a fresh one.
		s.Collected.ExecutionReport = nil
		return StepGenerate, summary + "; retrying unmatched todos", nil
	}

	return StepComplete, summary + "; completing with recorded gap", nil
}

func verifyGapLearning(vr *verify.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verification matched %d of %d todos. Unsatisfied:\n", vr.Matched, vr.Total)
	for _, item := range vr.Items {
		if item.Matched {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", item.TodoID, item.Reason)
	}
	return b.String()
}

// stepHandleError runs the recovery engine over the current error.
func (e *Engine) stepHandleError(ctx context.Context, s *WorkflowState) (Step, string, error) {
	if s.Error == "" {
		// Nothing to recover from; treat as a completed run.
		return StepComplete, "handleError invoked with no error", nil
	}

	failure := s.Error
	decision := Decide(s)
	next := ApplyDecision(s, decision)

	summary := fmt.Sprintf("recovery: category=%s pattern=%s strategy=%s",
		decision.Category, decision.Pattern, decision.Strategy)
	if decision.Strategy == StrategyAbort {
		s.Error = fmt.Sprintf("%s (after %d retries)", failure, s.RetryCount)
		return StepEnd, summary, nil
	}
	return next, summary, nil
}

// screenNameFromPrompt derives a short screen name from the request text.
func screenNameFromPrompt(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return "New Screen"
	}
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}
