// ABOUTME: WorkflowState: the single unit of continuation threaded through every step.
// ABOUTME: Serializes to plain JSON since callers hold it between step invocations.
package workflow

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/draftforge/canvasflow/lint"
	"github.com/draftforge/canvasflow/llm"
	"github.com/draftforge/canvasflow/plan"
)

// Step identifies one state of the workflow state machine.
type Step string

const (
	StepBlueprint   Step = "product-blueprint"
	StepPlanning    Step = "planning"
	StepDesign      Step = "figma-design"
	StepGenerate    Step = "generate"
	StepValidate    Step = "validate"
	StepExecute     Step = "execute"
	StepVerify      Step = "verify"
	StepHandleError Step = "handleError"
	StepComplete    Step = "complete"
	StepEnd         Step = "__end__"
)

// KnownStep reports whether s is one of the enumerated workflow steps.
func KnownStep(s Step) bool {
	switch s {
	case StepBlueprint, StepPlanning, StepDesign, StepGenerate, StepValidate,
		StepExecute, StepVerify, StepHandleError, StepComplete, StepEnd:
		return true
	}
	return false
}

// NodeRef is a lightweight reference to a node on the design surface.
type NodeRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// ContextSnapshot captures the design surface as the caller saw it when the
// request was made.
type ContextSnapshot struct {
	PageName  string    `json:"pageName,omitempty"`
	Selection []NodeRef `json:"selection,omitempty"`
	Nodes     []NodeRef `json:"nodes,omitempty"`
}

// AssetRequest asks the caller for one external artifact.
type AssetRequest struct {
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
}

// RequestedContext describes what external data the next step needs.
// An empty-of-all-three value means "no outstanding requests".
type RequestedContext struct {
	NodeIDs   []string       `json:"nodeIds,omitempty"`
	Assets    []AssetRequest `json:"assets,omitempty"`
	Questions []string       `json:"questions,omitempty"`
}

// Empty reports whether there are no outstanding requests.
func (r RequestedContext) Empty() bool {
	return len(r.NodeIDs) == 0 && len(r.Assets) == 0 && len(r.Questions) == 0
}

// NodeDetail is caller-supplied detail for one requested node.
type NodeDetail struct {
	ID    string      `json:"id"`
	Name  string      `json:"name,omitempty"`
	Type  string      `json:"type,omitempty"`
	Props []plan.Prop `json:"props,omitempty"`
}

// AssetPayload is one caller-supplied asset answering an AssetRequest.
type AssetPayload struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data string `json:"data,omitempty"`
}

// CollectedContext accumulates everything the caller has supplied across
// continue calls: node details, assets, answers, and the execution report.
type CollectedContext struct {
	NodeDetails     []NodeDetail          `json:"nodeDetails,omitempty"`
	Assets          []AssetPayload        `json:"assets,omitempty"`
	Answers         []string              `json:"answers,omitempty"`
	ExecutionReport *plan.ExecutionReport `json:"executionReport,omitempty"`
}

// ContextUpdate is the per-call payload merged into CollectedContext before a
// step runs.
type ContextUpdate struct {
	NodeDetails     []NodeDetail          `json:"nodeDetails,omitempty"`
	Assets          []AssetPayload        `json:"assets,omitempty"`
	Answers         []string              `json:"answers,omitempty"`
	ExecutionReport *plan.ExecutionReport `json:"executionReport,omitempty"`
}

// RunLogEntry is one append-only audit line: written once, never mutated.
type RunLogEntry struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Step      Step             `json:"step"`
	Summary   string           `json:"summary"`
	Requested RequestedContext `json:"requested,omitempty"`
}

// ErrorRecord is one entry of the append-only error history.
type ErrorRecord struct {
	Message   string        `json:"message"`
	Category  ErrorCategory `json:"category"`
	Script    string        `json:"script,omitempty"` // code snapshot at failure time
	Timestamp time.Time     `json:"timestamp"`
}

// SuccessPattern records guidance derived from a recovery decision. Negative
// entries ("avoid: ...") bias later generation attempts away from a mistake.
type SuccessPattern struct {
	Pattern   string    `json:"pattern"`
	Negative  bool      `json:"negative"`
	Timestamp time.Time `json:"timestamp"`
}

// GenerationResult is the generate step's output.
type GenerationResult struct {
	Script string `json:"script"`
	Raw    string `json:"raw,omitempty"` // model response before extraction
}

// WorkflowState is the single unit of continuation: created once per user
// request, threaded through every step call, serialized and handed to/from
// the caller between steps. The orchestrator owns it exclusively during a
// step; no component may assume in-process persistence across steps.
type WorkflowState struct {
	RunID string `json:"runId"`

	// Input
	UserPrompt          string          `json:"userPrompt"`
	Snapshot            ContextSnapshot `json:"contextSnapshot,omitempty"`
	ConversationHistory []llm.Message   `json:"conversationHistory,omitempty"`

	// Per-step results
	Blueprint  *plan.Blueprint       `json:"blueprint,omitempty"`
	Plan       *plan.Plan            `json:"plan,omitempty"`
	Design     *plan.DesignSet       `json:"design,omitempty"`
	Generation *GenerationResult     `json:"generation,omitempty"`
	Validation *lint.Result          `json:"validation,omitempty"`
	Execution  *plan.ExecutionReport `json:"executionReport,omitempty"`

	// Control
	CurrentStep      Step          `json:"currentStep"`
	RetryCount       int           `json:"retryCount"`
	MaxRetries       int           `json:"maxRetries"`
	PartialRetry     bool          `json:"partialRetry"`
	VerifyRetryCount int           `json:"verifyRetryCount"`
	StepHistory      []Step        `json:"stepHistory,omitempty"`
	RunLog           []RunLogEntry `json:"runLog,omitempty"`

	// Learning
	Learning        string           `json:"learning,omitempty"`
	ErrorHistory    []ErrorRecord    `json:"errorHistory,omitempty"`
	SuccessPatterns []SuccessPattern `json:"successPatterns,omitempty"`

	// Requested/collected context
	Requested RequestedContext `json:"requestedContext"`
	Collected CollectedContext `json:"collectedContext,omitempty"`

	// Terminal
	Error      string `json:"error,omitempty"`
	IsComplete bool   `json:"isComplete"`
}

// NewState creates a fresh WorkflowState for one user request.
func NewState(userPrompt string, snapshot ContextSnapshot, history []llm.Message, maxRetries int) *WorkflowState {
	return &WorkflowState{
		RunID:               ulid.MustNew(ulid.Now(), rand.Reader).String(),
		UserPrompt:          userPrompt,
		Snapshot:            snapshot,
		ConversationHistory: history,
		CurrentStep:         StepBlueprint,
		MaxRetries:          maxRetries,
	}
}

// AppendLog writes one run-log entry for the given step, snapshotting the
// current outstanding context requests.
func (s *WorkflowState) AppendLog(step Step, summary string) {
	s.RunLog = append(s.RunLog, RunLogEntry{
		ID:        ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Timestamp: time.Now().UTC(),
		Step:      step,
		Summary:   summary,
		Requested: s.Requested,
	})
}

// MergeUpdate folds a caller-supplied context update into the collected context.
func (s *WorkflowState) MergeUpdate(update *ContextUpdate) {
	if update == nil {
		return
	}
	s.Collected.NodeDetails = append(s.Collected.NodeDetails, update.NodeDetails...)
	s.Collected.Assets = append(s.Collected.Assets, update.Assets...)
	s.Collected.Answers = append(s.Collected.Answers, update.Answers...)
	if update.ExecutionReport != nil {
		s.Collected.ExecutionReport = update.ExecutionReport
	}
}

// ClearRequested drops outstanding context requests once they have been
// consumed, so stale requests are not re-surfaced to the caller.
func (s *WorkflowState) ClearRequested() {
	s.Requested = RequestedContext{}
}

// Marshal serializes the state for hand-off to the caller.
func (s *WorkflowState) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState reconstructs a WorkflowState from its serialized form.
func UnmarshalState(data []byte) (*WorkflowState, error) {
	var s WorkflowState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
