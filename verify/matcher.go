// ABOUTME: Reconciles a plan's TODO list against an execution report to decide which
// ABOUTME: TODOs were actually fulfilled, attributing each node to at most one TODO.
package verify

import (
	"fmt"
	"strings"

	"github.com/draftforge/canvasflow/plan"
)

// ItemResult records the verification outcome for one TODO.
type ItemResult struct {
	TodoID     string `json:"todoId"`
	ScenarioID string `json:"scenarioId,omitempty"`
	Matched    bool   `json:"matched"`
	NodeID     string `json:"nodeId,omitempty"` // the node attributed to this TODO
	Reason     string `json:"reason,omitempty"` // unmatched explanation
}

// Result is the matcher's full output for one plan/report pair.
type Result struct {
	Items   []ItemResult `json:"items"`
	Matched int          `json:"matched"`
	Total   int          `json:"total"`
	Ratio   float64      `json:"ratio"` // matched / max(total, 1)

	Report ConsolidatedReport `json:"report"`
}

// MissingTodoIDs returns the ids of TODOs that found no satisfying evidence.
func (r *Result) MissingTodoIDs() []string {
	var missing []string
	for _, item := range r.Items {
		if !item.Matched {
			missing = append(missing, item.TodoID)
		}
	}
	return missing
}

// expectedPropHints maps a TODO type to the changed-property names that count
// as evidence the TODO was realized.
var expectedPropHints = map[plan.TodoType][]string{
	plan.TodoStyle: {"fills", "text", "effects", "variables", "strokes"},
	plan.TodoModify: {
		"name", "x", "y", "width", "height", "layout", "characters",
		"fills", "strokes", "opacity", "cornerRadius", "visible",
	},
}

// Match reconciles the plan's TODOs against the execution report in declaration
// order. Later TODOs may depend on earlier attributions (parent resolution).
// design may be nil when the figma-design step produced nothing.
func Match(p *plan.Plan, design *plan.DesignSet, report *plan.ExecutionReport) *Result {
	m := &matcher{
		design:   design,
		report:   report,
		claimed:  make(map[string]bool),
		resolved: make(map[string]string),
	}

	result := &Result{Total: len(p.Todos)}
	for i := range p.Todos {
		item := m.matchTodo(&p.Todos[i])
		if item.Matched {
			result.Matched++
		}
		result.Items = append(result.Items, item)
	}

	denom := result.Total
	if denom < 1 {
		denom = 1
	}
	result.Ratio = float64(result.Matched) / float64(denom)
	result.Report = consolidate(p, report, result.Items)
	return result
}

type matcher struct {
	design  *plan.DesignSet
	report  *plan.ExecutionReport
	claimed map[string]bool
	// resolved maps a matched create TODO's id to the node id it produced,
	// so later TODOs can resolve parent-by-todo references.
	resolved map[string]string
}

func (m *matcher) matchTodo(t *plan.TodoItem) ItemResult {
	item := ItemResult{TodoID: t.ID, ScenarioID: t.ScenarioID}

	switch t.Type {
	case plan.TodoDelete:
		m.matchDelete(t, &item)
	case plan.TodoModify, plan.TodoStyle:
		m.matchUpdate(t, &item)
	default:
		m.matchCreate(t, &item)
	}
	return item
}

// matchDelete succeeds iff the target node id appears in DeletedNodeIDs.
func (m *matcher) matchDelete(t *plan.TodoItem, item *ItemResult) {
	target := t.Target()
	if target == "" {
		item.Reason = "delete todo names no target node"
		return
	}
	if m.report.Deleted(target) {
		item.Matched = true
		item.NodeID = target
		return
	}
	item.Reason = fmt.Sprintf("expected node %s not deleted", target)
}

// matchUpdate handles modify and style TODOs against updated nodes.
func (m *matcher) matchUpdate(t *plan.TodoItem, item *ItemResult) {
	hints := t.ExpectedProps
	if len(hints) == 0 {
		hints = expectedPropHints[t.Type]
	}

	// Exact target-id match first, gated on the changed-property hint set.
	if target := t.Target(); target != "" {
		for i := range m.report.UpdatedNodes {
			n := &m.report.UpdatedNodes[i]
			if n.ID != target || m.claimed[n.ID] {
				continue
			}
			if !propsIntersect(n.ChangedProps, hints) {
				item.Reason = "changed properties did not include expected property"
				continue
			}
			if !variantPropsMatch(t.ExpectedVariantProps, n.VariantProps) {
				item.Reason = "variant properties did not match"
				continue
			}
			m.claim(t, item, n.ID)
			return
		}
	}

	// Fallback: case-insensitive substring match on node name among
	// unclaimed updated nodes.
	if name := m.candidateName(t); name != "" {
		for i := range m.report.UpdatedNodes {
			n := &m.report.UpdatedNodes[i]
			if m.claimed[n.ID] || !nameMatches(name, n.Name) {
				continue
			}
			if !propsIntersect(n.ChangedProps, hints) {
				continue
			}
			if !variantPropsMatch(t.ExpectedVariantProps, n.VariantProps) {
				item.Reason = "variant properties did not match"
				continue
			}
			m.claim(t, item, n.ID)
			return
		}
	}

	if item.Reason == "" {
		item.Reason = "expected node not updated"
	}
}

// matchCreate handles create TODOs (and any type without dedicated handling)
// against created nodes.
func (m *matcher) matchCreate(t *plan.TodoItem, item *ItemResult) {
	expectedParent := m.expectedParentID(t)

	// Name-based match among unclaimed created nodes, constrained to the
	// expected parent when the design specifies one.
	if name := m.candidateName(t); name != "" {
		for i := range m.report.CreatedNodes {
			n := &m.report.CreatedNodes[i]
			if m.claimed[n.ID] || !nameMatches(name, n.Name) {
				continue
			}
			if expectedParent != "" && n.ParentID != expectedParent {
				item.Reason = "created node is under an unexpected parent"
				continue
			}
			if !variantPropsMatch(t.ExpectedVariantProps, n.VariantProps) {
				item.Reason = "variant properties did not match"
				continue
			}
			m.claim(t, item, n.ID)
			return
		}
	}

	// Fallback: direct target-node-id match.
	if target := t.Target(); target != "" {
		for i := range m.report.CreatedNodes {
			n := &m.report.CreatedNodes[i]
			if n.ID == target && !m.claimed[n.ID] {
				m.claim(t, item, n.ID)
				return
			}
		}
	}

	if item.Reason == "" {
		item.Reason = "expected node not created"
	}
}

func (m *matcher) claim(t *plan.TodoItem, item *ItemResult, nodeID string) {
	item.Matched = true
	item.NodeID = nodeID
	item.Reason = ""
	m.claimed[nodeID] = true
	m.resolved[t.ID] = nodeID
}

// candidateName picks the name to match against: the design's node name when
// one exists, otherwise the TODO's task text.
func (m *matcher) candidateName(t *plan.TodoItem) string {
	if m.design != nil {
		if d := m.design.DesignFor(t.ID); d != nil && d.Name != "" {
			return d.Name
		}
	}
	return t.Task
}

// expectedParentID resolves the parent constraint from the design: either an
// explicit existing-node id or an earlier TODO's already-resolved created node.
func (m *matcher) expectedParentID(t *plan.TodoItem) string {
	if m.design == nil {
		return ""
	}
	d := m.design.DesignFor(t.ID)
	if d == nil || d.Parent == nil {
		return ""
	}
	if d.Parent.NodeID != "" {
		return d.Parent.NodeID
	}
	if d.Parent.TodoID != "" {
		return m.resolved[d.Parent.TodoID]
	}
	return ""
}

// nameMatches is a case-insensitive substring comparison in either direction.
func nameMatches(want, got string) bool {
	w := strings.ToLower(strings.TrimSpace(want))
	g := strings.ToLower(strings.TrimSpace(got))
	if w == "" || g == "" {
		return false
	}
	return strings.Contains(g, w) || strings.Contains(w, g)
}

// propsIntersect reports whether any changed property matches a hint,
// case-insensitively. An empty hint set accepts any change.
func propsIntersect(changed, hints []string) bool {
	if len(hints) == 0 {
		return len(changed) > 0
	}
	for _, c := range changed {
		for _, h := range hints {
			if strings.EqualFold(c, h) {
				return true
			}
		}
	}
	return false
}

// variantPropsMatch requires every expected entry to match the node's reported
// variant properties, case-insensitively on both name and value. No
// expectations always passes.
func variantPropsMatch(expected, got []plan.Prop) bool {
	for _, want := range expected {
		found := false
		for _, have := range got {
			if strings.EqualFold(want.Name, have.Name) && strings.EqualFold(want.Value, have.Value) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
