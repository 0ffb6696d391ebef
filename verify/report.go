// ABOUTME: Consolidated execution summary: created/modified/deleted entries annotated
// ABOUTME: with the owning TODO and scenario. This is the externally visible result.
package verify

import "github.com/draftforge/canvasflow/plan"

// Entry is one node-level line of the consolidated report.
type Entry struct {
	NodeID     string `json:"nodeId"`
	Name       string `json:"name,omitempty"`
	TodoID     string `json:"todoId,omitempty"` // empty when no TODO claimed the node
	ScenarioID string `json:"scenarioId,omitempty"`
}

// ConsolidatedReport annotates the raw execution report with TODO attributions.
type ConsolidatedReport struct {
	Created  []Entry `json:"created,omitempty"`
	Modified []Entry `json:"modified,omitempty"`
	Deleted  []Entry `json:"deleted,omitempty"`
}

// consolidate builds the annotated report from the raw report and the
// per-TODO attributions.
func consolidate(p *plan.Plan, report *plan.ExecutionReport, items []ItemResult) ConsolidatedReport {
	owner := make(map[string]ItemResult, len(items))
	for _, item := range items {
		if item.Matched && item.NodeID != "" {
			owner[item.NodeID] = item
		}
	}

	var out ConsolidatedReport
	for _, n := range report.CreatedNodes {
		e := Entry{NodeID: n.ID, Name: n.Name}
		if item, ok := owner[n.ID]; ok {
			e.TodoID = item.TodoID
			e.ScenarioID = item.ScenarioID
		}
		out.Created = append(out.Created, e)
	}
	for _, n := range report.UpdatedNodes {
		e := Entry{NodeID: n.ID, Name: n.Name}
		if item, ok := owner[n.ID]; ok {
			e.TodoID = item.TodoID
			e.ScenarioID = item.ScenarioID
		}
		out.Modified = append(out.Modified, e)
	}
	for _, id := range report.DeletedNodeIDs {
		e := Entry{NodeID: id}
		if item, ok := owner[id]; ok {
			e.TodoID = item.TodoID
			e.ScenarioID = item.ScenarioID
		}
		out.Deleted = append(out.Deleted, e)
	}
	return out
}
