// ABOUTME: HTTP tests for the step API and run pages using httptest and a scripted
// ABOUTME: completion service.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/draftforge/canvasflow/llm"
	"github.com/draftforge/canvasflow/store"
	"github.com/draftforge/canvasflow/workflow"
)

type cannedService struct{}

func (cannedService) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	var system string
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			system = m.Text
			break
		}
	}
	switch {
	case strings.Contains(system, "planning assistant"):
		return &llm.Response{Text: `{"confidence": 0.9, "todos": [{"id": "t1", "task": "Create Button", "type": "create"}]}`}, nil
	case strings.Contains(system, "design assistant"):
		return &llm.Response{Text: `{"designs": [{"todoId": "t1", "name": "Button", "nodeType": "FRAME"}]}`}, nil
	default:
		return &llm.Response{Text: "```js\nconst f = figma.createFrame();\n```"}, nil
	}
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine := workflow.NewEngine(cannedService{}, nil, workflow.Config{}, nil)
	return New(engine, st, nil), st
}

func postStep(t *testing.T, h http.Handler, body any) stepResponse {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/step", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp stepResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response (%d): %v", rec.Code, err)
	}
	return resp
}

func TestStepStartAndContinueByRunID(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	resp := postStep(t, h, map[string]any{
		"action": "start",
		"prompt": "create a button",
		"contextSnapshot": map[string]any{
			"selection": []map[string]any{{"id": "0:1", "name": "Home", "type": "FRAME"}},
		},
	})
	if !resp.Success || resp.Step != workflow.StepBlueprint || resp.NextStep != workflow.StepPlanning {
		t.Fatalf("start response = %+v", resp)
	}
	if resp.RunID == "" || resp.State == nil {
		t.Fatal("start response must carry run id and state")
	}

	resp = postStep(t, h, map[string]any{"action": "continue", "runId": resp.RunID})
	if !resp.Success || resp.Step != workflow.StepPlanning {
		t.Fatalf("continue response = %+v", resp)
	}
}

func TestStepRecordsConversationTurns(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Router()

	resp := postStep(t, h, map[string]any{"action": "start", "prompt": "create a button"})
	postStep(t, h, map[string]any{"action": "continue", "runId": resp.RunID})

	turns, err := st.Turns(context.Background(), resp.RunID)
	if err != nil {
		t.Fatalf("load turns: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("turns = %d, want 3 (user prompt + two step summaries): %+v", len(turns), turns)
	}
	if turns[0].Role != "user" || turns[0].Text != "create a button" {
		t.Errorf("turns[0] = %+v", turns[0])
	}
	if turns[1].Role != "assistant" || !strings.Contains(turns[1].Text, "blueprint") {
		t.Errorf("turns[1] = %+v", turns[1])
	}
	if turns[2].Role != "assistant" || !strings.Contains(turns[2].Text, "plan") {
		t.Errorf("turns[2] = %+v", turns[2])
	}
}

func TestStepContinueWithInlineState(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	resp := postStep(t, h, map[string]any{"action": "start", "prompt": "create a button"})
	state, err := json.Marshal(resp.State)
	if err != nil {
		t.Fatal(err)
	}

	next := postStep(t, h, map[string]any{"action": "continue", "state": json.RawMessage(state)})
	if !next.Success || next.Step != workflow.StepPlanning {
		t.Fatalf("continue = %+v", next)
	}
}

func TestStepRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	if resp := postStep(t, h, map[string]any{"action": "start"}); resp.Success || resp.Error == "" {
		t.Errorf("missing prompt accepted: %+v", resp)
	}
	if resp := postStep(t, h, map[string]any{"action": "continue"}); resp.Success {
		t.Errorf("continue without state accepted: %+v", resp)
	}
	if resp := postStep(t, h, map[string]any{"action": "restart"}); resp.Success {
		t.Errorf("unknown action accepted: %+v", resp)
	}
}

func TestGetRunAndRunLogPage(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	resp := postStep(t, h, map[string]any{"action": "start", "prompt": "create a button"})

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get run: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/runs/"+resp.RunID+"/log", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("run log: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<h1>") {
		t.Errorf("log page not rendered as HTML: %q", rec.Body.String()[:min(200, rec.Body.Len())])
	}
}

func TestListRuns(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	postStep(t, h, map[string]any{"action": "start", "prompt": "one"})
	postStep(t, h, map[string]any{"action": "start", "prompt": "two"})

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}

	var body struct {
		Runs []store.RunSummary `json:"runs"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Runs) != 2 {
		t.Errorf("runs = %d, want 2", len(body.Runs))
	}
}

func TestRunNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}
