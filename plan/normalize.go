// ABOUTME: Normalization of planner and designer output: synthetic ids, target-node alias
// ABOUTME: back-fill, default scenario assignment, and design reference validation.
package plan

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultScenarioID is assigned when the planner names no scenario at all.
const DefaultScenarioID = "scenario-default"

// Normalize repairs a plan in place so downstream steps can rely on its shape:
// every TODO has an id, an ordinal, a known type, a scenario id, and both
// target-node alias fields populated when either is set. At least one scenario
// always exists afterwards.
func (p *Plan) Normalize() {
	if p.ScenarioID == "" {
		if len(p.Scenarios) > 0 {
			p.ScenarioID = p.Scenarios[0].ID
		} else {
			p.ScenarioID = DefaultScenarioID
		}
	}

	if len(p.Scenarios) == 0 {
		p.Scenarios = []ScenarioSpec{{ID: p.ScenarioID, Name: "Default"}}
	}

	for i := range p.Todos {
		t := &p.Todos[i]
		if t.ID == "" {
			t.ID = "todo-" + uuid.NewString()
		}
		t.Ordinal = i
		if !KnownTodoType(t.Type) {
			t.Type = TodoCreate
		}
		if t.ScenarioID == "" {
			t.ScenarioID = p.ScenarioID
		}
		backfillAlias(&t.TargetNodeID, &t.NodeID)
	}
}

// Normalize repairs a design set in place: alias back-fill plus coverage
// computation against the given plan when the model supplied none.
func (d *DesignSet) Normalize(p *Plan) {
	for i := range d.Designs {
		backfillAlias(&d.Designs[i].TargetNodeID, &d.Designs[i].NodeID)
	}
	if len(d.Coverage) == 0 && p != nil {
		d.Coverage = computeCoverage(d, p)
	}
}

// backfillAlias copies whichever of the two alias fields is set into the other.
func backfillAlias(primary, legacy *string) {
	if *primary == "" && *legacy != "" {
		*primary = *legacy
	}
	if *legacy == "" && *primary != "" {
		*legacy = *primary
	}
}

// computeCoverage counts designed TODOs per scenario.
func computeCoverage(d *DesignSet, p *Plan) []ScenarioCoverage {
	strategies := make(map[string]string, len(p.Scenarios))
	order := make([]string, 0, len(p.Scenarios))
	for _, s := range p.Scenarios {
		strategies[s.ID] = s.Strategy
		order = append(order, s.ID)
	}

	totals := make(map[string]int)
	designed := make(map[string]int)
	for _, t := range p.Todos {
		totals[t.ScenarioID]++
		if d.DesignFor(t.ID) != nil {
			designed[t.ScenarioID]++
		}
	}

	coverage := make([]ScenarioCoverage, 0, len(order))
	for _, id := range order {
		coverage = append(coverage, ScenarioCoverage{
			ScenarioID: id,
			Strategy:   strategies[id],
			Designed:   designed[id],
			Total:      totals[id],
		})
	}
	return coverage
}

// Validate checks the design set's references against the plan: every design's
// todoId must name an existing TODO, and parent.todoId chains must not cycle.
func (d *DesignSet) Validate(p *Plan) error {
	for i := range d.Designs {
		if p.TodoByID(d.Designs[i].TodoID) == nil {
			return fmt.Errorf("design %d references unknown todo %q", i, d.Designs[i].TodoID)
		}
	}
	return d.checkParentCycles()
}

// checkParentCycles walks parent.todoId references from each design, failing
// if any chain revisits a design.
func (d *DesignSet) checkParentCycles() error {
	for i := range d.Designs {
		seen := map[string]bool{d.Designs[i].TodoID: true}
		current := &d.Designs[i]
		for current.Parent != nil && current.Parent.TodoID != "" {
			next := d.DesignFor(current.Parent.TodoID)
			if next == nil {
				break
			}
			if seen[next.TodoID] {
				return fmt.Errorf("parent cycle detected through todo %q", next.TodoID)
			}
			seen[next.TodoID] = true
			current = next
		}
	}
	return nil
}
