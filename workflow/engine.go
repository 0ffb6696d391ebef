// ABOUTME: The workflow engine: step dispatch, the fixed transition table, bounded
// ABOUTME: drivers, and the event stream for observers.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/draftforge/canvasflow/lint"
	"github.com/draftforge/canvasflow/llm"
)

// Default control budgets.
const (
	DefaultMaxRetries       = 3
	DefaultVerifyThreshold  = 0.8
	DefaultVerifyMaxRetries = 1
	DefaultStepTimeout      = 2 * time.Minute
)

// maxDriverIterations bounds Run: a run that has not reached a terminal step
// after this many step executions is stopped as a safety-limit failure.
const maxDriverIterations = 20

// maxStepIterations bounds the total number of steps any single state may
// accumulate across resumed runs, catching cycles the driver cap cannot see.
const maxStepIterations = 25

// Config carries the tunable budgets of the engine.
type Config struct {
	Model            string
	MaxRetries       int
	VerifyThreshold  float64
	VerifyMaxRetries int
	StepTimeout      time.Duration
}

// DefaultConfig returns the standard budgets.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       DefaultMaxRetries,
		VerifyThreshold:  DefaultVerifyThreshold,
		VerifyMaxRetries: DefaultVerifyMaxRetries,
		StepTimeout:      DefaultStepTimeout,
	}
}

// EventType identifies one engine lifecycle event.
type EventType string

const (
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventRunCompleted  EventType = "run.completed"
	EventRunFailed     EventType = "run.failed"
)

// Event is one engine lifecycle notification.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"runId"`
	Step      Step      `json:"step,omitempty"`
	Next      Step      `json:"next,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler observes engine events. Handlers run synchronously; keep them fast.
type EventHandler func(Event)

// StepResult is the explicit outcome of one step execution. The executed step
// and the chosen successor are returned to the caller rather than inferred
// from state mutation.
type StepResult struct {
	Step      Step             `json:"step"`
	Next      Step             `json:"nextStep"`
	Summary   string           `json:"summary"`
	Completed bool             `json:"completed"`
	Requested RequestedContext `json:"requestedContext"`
	Error     string           `json:"error,omitempty"`
}

// Engine drives WorkflowState through the step state machine. The completion
// service and validator are injected at construction and never replaced.
type Engine struct {
	completion llm.CompletionService
	validator  *lint.Validator
	config     Config
	handler    EventHandler
}

// NewEngine creates an engine. A nil validator selects the default validation
// pipeline; zero config fields take their defaults.
func NewEngine(completion llm.CompletionService, validator *lint.Validator, cfg Config, handler EventHandler) *Engine {
	if validator == nil {
		validator = lint.NewValidator(nil, nil)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.VerifyThreshold <= 0 {
		cfg.VerifyThreshold = DefaultVerifyThreshold
	}
	if cfg.VerifyMaxRetries <= 0 {
		cfg.VerifyMaxRetries = DefaultVerifyMaxRetries
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	return &Engine{
		completion: completion,
		validator:  validator,
		config:     cfg,
		handler:    handler,
	}
}

// Start creates a fresh state for one user request. A previousError from an
// earlier aborted run is unwound into the new state's learning context.
func (e *Engine) Start(userPrompt string, snapshot ContextSnapshot, history []llm.Message, previousError string) *WorkflowState {
	s := NewState(userPrompt, snapshot, history, e.config.MaxRetries)
	if previousError != "" {
		s.Learning = UnwindPreviousError(previousError)
	}
	return s
}

// ExecuteStep merges the caller's context update, runs the state's current
// step, and advances to the successor. It returns the explicit result; the
// error return is reserved for defects in the engine itself, never for
// workflow-level failures (those route through handleError).
func (e *Engine) ExecuteStep(ctx context.Context, s *WorkflowState, update *ContextUpdate) (*StepResult, error) {
	if s.IsComplete {
		return &StepResult{
			Step:      s.CurrentStep,
			Next:      StepEnd,
			Summary:   "run already complete",
			Completed: true,
			Error:     s.Error,
		}, nil
	}
	if len(s.StepHistory) >= maxStepIterations {
		s.Error = fmt.Sprintf("workflow exceeded safety limit of %d steps", maxStepIterations)
		s.IsComplete = true
		e.emit(Event{Type: EventRunFailed, RunID: s.RunID, Step: s.CurrentStep, Summary: s.Error})
		return &StepResult{Step: s.CurrentStep, Next: StepEnd, Summary: s.Error, Completed: true, Error: s.Error}, nil
	}

	s.MergeUpdate(update)
	s.ClearRequested()

	step := s.CurrentStep
	e.emit(Event{Type: EventStepStarted, RunID: s.RunID, Step: step})

	next, summary, err := e.dispatch(ctx, s, step)
	if err != nil {
		return nil, err
	}

	s.StepHistory = append(s.StepHistory, step)
	s.AppendLog(step, summary)
	s.CurrentStep = next

	result := &StepResult{
		Step:      step,
		Next:      next,
		Summary:   summary,
		Requested: s.Requested,
	}

	switch next {
	case StepComplete:
		s.IsComplete = true
		s.CurrentStep = StepEnd
		result.Completed = true
		e.emit(Event{Type: EventRunCompleted, RunID: s.RunID, Step: step, Summary: summary})
	case StepEnd:
		s.IsComplete = true
		result.Completed = true
		result.Error = s.Error
		e.emit(Event{Type: EventRunFailed, RunID: s.RunID, Step: step, Summary: summary})
	default:
		e.emit(Event{Type: EventStepCompleted, RunID: s.RunID, Step: step, Next: next, Summary: summary})
	}
	return result, nil
}

// dispatch routes one step to its implementation. The switch is exhaustive
// over the step enum; an unknown step is an engine defect.
func (e *Engine) dispatch(ctx context.Context, s *WorkflowState, step Step) (Step, string, error) {
	switch step {
	case StepBlueprint:
		return e.stepBlueprint(ctx, s)
	case StepPlanning:
		return e.stepPlanning(ctx, s)
	case StepDesign:
		return e.stepDesign(ctx, s)
	case StepGenerate:
		return e.stepGenerate(ctx, s)
	case StepValidate:
		return e.stepValidate(ctx, s)
	case StepExecute:
		return e.stepExecute(ctx, s)
	case StepVerify:
		return e.stepVerify(ctx, s)
	case StepHandleError:
		return e.stepHandleError(ctx, s)
	case StepComplete, StepEnd:
		return StepEnd, "terminal", nil
	default:
		return StepEnd, "", fmt.Errorf("unknown workflow step %q", step)
	}
}

// Run drives the state until it completes, requests external context, or hits
// the driver safety limit. Callers that can answer context requests should
// call ExecuteStep directly instead.
func (e *Engine) Run(ctx context.Context, s *WorkflowState) (*StepResult, error) {
	var last *StepResult
	for i := 0; i < maxDriverIterations; i++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		result, err := e.ExecuteStep(ctx, s, nil)
		if err != nil {
			return last, err
		}
		last = result

		if result.Completed {
			return result, nil
		}
		if !result.Requested.Empty() {
			// The caller must supply context before the run can continue.
			return result, nil
		}
	}

	s.Error = fmt.Sprintf("workflow exceeded safety limit of %d iterations", maxDriverIterations)
	s.IsComplete = true
	e.emit(Event{Type: EventRunFailed, RunID: s.RunID, Step: s.CurrentStep, Summary: s.Error})
	return &StepResult{
		Step:      s.CurrentStep,
		Next:      StepEnd,
		Summary:   s.Error,
		Completed: true,
		Error:     s.Error,
	}, nil
}

func (e *Engine) emit(ev Event) {
	if e.handler == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	e.handler(ev)
}
