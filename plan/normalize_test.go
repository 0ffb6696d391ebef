// ABOUTME: Tests for plan and design-set normalization: id back-fill, aliasing, default
// ABOUTME: scenarios, coverage computation, and parent cycle detection.
package plan

import (
	"strings"
	"testing"
)

func TestNormalizeAssignsSyntheticIDs(t *testing.T) {
	p := &Plan{Todos: []TodoItem{{Task: "Create a button"}, {Task: "Style it"}}}
	p.Normalize()

	for i, todo := range p.Todos {
		if todo.ID == "" {
			t.Errorf("todo %d has empty id after normalize", i)
		}
		if !strings.HasPrefix(todo.ID, "todo-") {
			t.Errorf("todo %d id %q missing todo- prefix", i, todo.ID)
		}
		if todo.Ordinal != i {
			t.Errorf("todo %d ordinal = %d", i, todo.Ordinal)
		}
	}
}

func TestNormalizePreservesExistingIDs(t *testing.T) {
	p := &Plan{Todos: []TodoItem{{ID: "t1", Task: "x"}}}
	p.Normalize()
	if p.Todos[0].ID != "t1" {
		t.Errorf("id changed to %q", p.Todos[0].ID)
	}
}

func TestNormalizeBackfillsTargetAliasBothWays(t *testing.T) {
	p := &Plan{Todos: []TodoItem{
		{ID: "a", Task: "x", TargetNodeID: "10:1"},
		{ID: "b", Task: "y", NodeID: "10:2"},
	}}
	p.Normalize()

	if p.Todos[0].NodeID != "10:1" {
		t.Errorf("legacy alias not back-filled: %q", p.Todos[0].NodeID)
	}
	if p.Todos[1].TargetNodeID != "10:2" {
		t.Errorf("primary alias not back-filled: %q", p.Todos[1].TargetNodeID)
	}
}

func TestNormalizeDefaultsScenario(t *testing.T) {
	p := &Plan{Todos: []TodoItem{{ID: "a", Task: "x"}}}
	p.Normalize()

	if p.ScenarioID != DefaultScenarioID {
		t.Errorf("plan scenario = %q", p.ScenarioID)
	}
	if len(p.Scenarios) != 1 {
		t.Fatalf("expected one synthesized scenario, got %d", len(p.Scenarios))
	}
	if p.Todos[0].ScenarioID != DefaultScenarioID {
		t.Errorf("todo scenario = %q", p.Todos[0].ScenarioID)
	}
}

func TestNormalizeUsesFirstScenarioAsDefault(t *testing.T) {
	p := &Plan{
		Scenarios: []ScenarioSpec{{ID: "s1", Name: "Primary"}},
		Todos:     []TodoItem{{ID: "a", Task: "x"}},
	}
	p.Normalize()
	if p.Todos[0].ScenarioID != "s1" {
		t.Errorf("todo scenario = %q, want s1", p.Todos[0].ScenarioID)
	}
}

func TestNormalizeUnknownTodoTypeDefaultsToCreate(t *testing.T) {
	p := &Plan{Todos: []TodoItem{{ID: "a", Task: "x", Type: "explode"}}}
	p.Normalize()
	if p.Todos[0].Type != TodoCreate {
		t.Errorf("type = %q, want create", p.Todos[0].Type)
	}
}

func TestDesignSetCoverageComputed(t *testing.T) {
	p := &Plan{
		Scenarios: []ScenarioSpec{{ID: "s1", Strategy: "variants"}},
		Todos: []TodoItem{
			{ID: "a", ScenarioID: "s1"},
			{ID: "b", ScenarioID: "s1"},
		},
	}
	d := &DesignSet{Designs: []TodoDesign{{TodoID: "a", NodeType: "FRAME", Name: "Card"}}}
	d.Normalize(p)

	if len(d.Coverage) != 1 {
		t.Fatalf("coverage entries = %d", len(d.Coverage))
	}
	c := d.Coverage[0]
	if c.Designed != 1 || c.Total != 2 || c.Strategy != "variants" {
		t.Errorf("coverage = %+v", c)
	}
}

func TestDesignSetValidateUnknownTodo(t *testing.T) {
	p := &Plan{Todos: []TodoItem{{ID: "a"}}}
	d := &DesignSet{Designs: []TodoDesign{{TodoID: "missing"}}}
	if err := d.Validate(p); err == nil {
		t.Fatal("expected error for unknown todo reference")
	}
}

func TestDesignSetValidateParentCycle(t *testing.T) {
	p := &Plan{Todos: []TodoItem{{ID: "a"}, {ID: "b"}}}
	d := &DesignSet{Designs: []TodoDesign{
		{TodoID: "a", Parent: &ParentRef{TodoID: "b"}},
		{TodoID: "b", Parent: &ParentRef{TodoID: "a"}},
	}}
	err := d.Validate(p)
	if err == nil {
		t.Fatal("expected parent cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error %q does not mention cycle", err)
	}
}

func TestDesignSetValidateAcceptsChain(t *testing.T) {
	p := &Plan{Todos: []TodoItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	d := &DesignSet{Designs: []TodoDesign{
		{TodoID: "a"},
		{TodoID: "b", Parent: &ParentRef{TodoID: "a"}},
		{TodoID: "c", Parent: &ParentRef{TodoID: "b"}},
	}}
	if err := d.Validate(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecutionReportDeleted(t *testing.T) {
	r := &ExecutionReport{DeletedNodeIDs: []string{"1:2", "1:3"}}
	if !r.Deleted("1:2") {
		t.Error("expected 1:2 deleted")
	}
	if r.Deleted("9:9") {
		t.Error("did not expect 9:9 deleted")
	}
}
