// ABOUTME: HTTP surface: the step invocation API, run listing/inspection, and the
// ABOUTME: rendered run-log page.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"

	"github.com/draftforge/canvasflow/llm"
	"github.com/draftforge/canvasflow/store"
	"github.com/draftforge/canvasflow/workflow"
)

// Server exposes the workflow engine over HTTP. Every step invocation is
// stateless from the server's perspective: the full state travels in the
// request/response or is loaded from the store by run id.
type Server struct {
	engine *workflow.Engine
	store  *store.Store
	md     goldmark.Markdown
	logger *log.Logger
}

// New creates a server. The store may be nil, in which case runs are not
// persisted and every continue call must carry inline state.
func New(engine *workflow.Engine, st *store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		engine: engine,
		store:  st,
		md:     goldmark.New(),
		logger: logger,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/step", s.handleStep)
	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{id}", s.handleGetRun)
	r.Get("/runs/{id}/log", s.handleRunLog)
	return r
}

// stepRequest is the step invocation payload.
type stepRequest struct {
	Action string `json:"action"` // "start" or "continue"

	// start
	Prompt        string                   `json:"prompt,omitempty"`
	Snapshot      workflow.ContextSnapshot `json:"contextSnapshot,omitempty"`
	History       []llm.Message            `json:"conversationHistory,omitempty"`
	PreviousError string                   `json:"previousError,omitempty"`

	// continue
	RunID         string                  `json:"runId,omitempty"`
	State         json.RawMessage         `json:"state,omitempty"`
	ContextUpdate *workflow.ContextUpdate `json:"contextUpdate,omitempty"`
}

// stepResponse mirrors one step execution back to the caller.
type stepResponse struct {
	Success   bool                      `json:"success"`
	Completed bool                      `json:"completed"`
	RunID     string                    `json:"runId,omitempty"`
	Step      workflow.Step             `json:"step,omitempty"`
	NextStep  workflow.Step             `json:"nextStep,omitempty"`
	Summary   string                    `json:"summary,omitempty"`
	Requested workflow.RequestedContext `json:"requestedContext"`
	State     *workflow.WorkflowState   `json:"state,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
	Error     string                    `json:"error,omitempty"`
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var st *workflow.WorkflowState
	switch req.Action {
	case "start":
		if req.Prompt == "" {
			s.writeError(w, http.StatusBadRequest, "start requires a prompt")
			return
		}
		st = s.engine.Start(req.Prompt, req.Snapshot, req.History, req.PreviousError)

	case "continue":
		var err error
		st, err = s.resolveState(r, &req)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

	default:
		s.writeError(w, http.StatusBadRequest, "action must be \"start\" or \"continue\"")
		return
	}

	result, err := s.engine.ExecuteStep(r.Context(), st, req.ContextUpdate)
	if err != nil {
		s.logger.Printf("step execution failed: run=%s step=%s err=%v", st.RunID, st.CurrentStep, err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.SaveRun(r.Context(), st); err != nil {
			s.logger.Printf("persist run %s: %v", st.RunID, err)
		}
		s.recordTurns(r.Context(), st, &req, result)
	}

	s.writeJSON(w, http.StatusOK, stepResponse{
		Success:   result.Error == "",
		Completed: result.Completed,
		RunID:     st.RunID,
		Step:      result.Step,
		NextStep:  result.Next,
		Summary:   result.Summary,
		Requested: result.Requested,
		State:     st,
		Timestamp: time.Now().UTC(),
		Error:     result.Error,
	})
}

// recordTurns appends the conversation turns produced by one step invocation:
// the user prompt when a run starts, then the step summary. Persistence
// failures are logged, not surfaced; the step already succeeded.
func (s *Server) recordTurns(ctx context.Context, st *workflow.WorkflowState, req *stepRequest, result *workflow.StepResult) {
	if req.Action == "start" {
		if err := s.store.AppendTurn(ctx, st.RunID, string(llm.RoleUser), req.Prompt); err != nil {
			s.logger.Printf("record user turn for run %s: %v", st.RunID, err)
		}
	}
	text := result.Summary
	if text == "" {
		text = string(result.Step)
	}
	if err := s.store.AppendTurn(ctx, st.RunID, string(llm.RoleAssistant), text); err != nil {
		s.logger.Printf("record assistant turn for run %s: %v", st.RunID, err)
	}
}

// resolveState picks the state for a continue call: inline state wins, then
// the store by run id.
func (s *Server) resolveState(r *http.Request, req *stepRequest) (*workflow.WorkflowState, error) {
	if len(req.State) > 0 {
		st, err := workflow.UnmarshalState(req.State)
		if err != nil {
			return nil, errors.New("invalid state payload: " + err.Error())
		}
		return st, nil
	}
	if req.RunID != "" && s.store != nil {
		st, err := s.store.LoadRun(r.Context(), req.RunID)
		if err != nil {
			return nil, errors.New("load run: " + err.Error())
		}
		return st, nil
	}
	return nil, errors.New("continue requires state or a runId")
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "run persistence is disabled")
		return
	}
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadRunOrFail(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// handleRunLog renders the run log as an HTML page.
func (s *Server) handleRunLog(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadRunOrFail(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(workflow.RenderRunLog(st)), &buf); err != nil {
		s.writeError(w, http.StatusInternalServerError, "render run log: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) loadRunOrFail(w http.ResponseWriter, r *http.Request) (*workflow.WorkflowState, bool) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "run persistence is disabled")
		return nil, false
	}
	st, err := s.store.LoadRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return st, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, stepResponse{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Error:     msg,
	})
}
