// ABOUTME: Core data model for plans, scenarios, TODO items, and per-TODO design decisions.
// ABOUTME: Every type round-trips through plain JSON since workflow state crosses the bridge boundary.
package plan

// TodoType classifies the kind of work a TODO item represents.
type TodoType string

const (
	TodoCreate   TodoType = "create"
	TodoModify   TodoType = "modify"
	TodoDelete   TodoType = "delete"
	TodoStyle    TodoType = "style"
	TodoCheck    TodoType = "check"
	TodoFind     TodoType = "find"
	TodoValidate TodoType = "validate"
)

// KnownTodoType reports whether t is one of the recognized TODO types.
func KnownTodoType(t TodoType) bool {
	switch t {
	case TodoCreate, TodoModify, TodoDelete, TodoStyle, TodoCheck, TodoFind, TodoValidate:
		return true
	}
	return false
}

// Prop is an explicit key/value pair. Used instead of a map for anything that
// crosses the serialization boundary, so ordering and round-tripping stay stable.
type Prop struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TodoItem is one atomic unit of planned work: create/modify/delete/style one node.
type TodoItem struct {
	ID      string   `json:"id"`
	Ordinal int      `json:"ordinal"`
	Task    string   `json:"task"`
	Type    TodoType `json:"type"`

	// TargetNodeID and NodeID are aliases for the same reference. Planner output
	// historically used either field; normalization back-fills them bidirectionally.
	TargetNodeID string `json:"targetNodeId,omitempty"`
	NodeID       string `json:"nodeId,omitempty"`

	ScenarioID string `json:"scenarioId,omitempty"`

	// ExpectedProps hints which node properties this TODO is expected to touch.
	ExpectedProps []string `json:"expectedProps,omitempty"`

	// ExpectedVariantProps, when present, must all match the executed node's
	// reported variant properties for verification to accept a candidate.
	ExpectedVariantProps []Prop `json:"expectedVariantProps,omitempty"`

	DependsOn []string `json:"dependsOn,omitempty"`
}

// Target returns the node reference for this TODO, preferring TargetNodeID.
func (t *TodoItem) Target() string {
	if t.TargetNodeID != "" {
		return t.TargetNodeID
	}
	return t.NodeID
}

// ScenarioSpec names one variant/branch of the overall design output.
type ScenarioSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Strategy    string `json:"strategy,omitempty"` // e.g. "variants", "pages"
	Description string `json:"description,omitempty"`
}

// Plan is the planner's structured output: scenarios plus an ordered TODO list.
type Plan struct {
	ScenarioID string         `json:"scenarioId,omitempty"` // default scenario for TODOs that name none
	Scenarios  []ScenarioSpec `json:"scenarios,omitempty"`
	Todos      []TodoItem     `json:"todos"`
	Summary    string         `json:"summary,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
}

// TodoByID returns the TODO with the given id, or nil.
func (p *Plan) TodoByID(id string) *TodoItem {
	for i := range p.Todos {
		if p.Todos[i].ID == id {
			return &p.Todos[i]
		}
	}
	return nil
}

// ParentRef places a designed node under a parent: either another TODO's
// created node (TodoID) or an existing node in the document (NodeID).
type ParentRef struct {
	TodoID string `json:"todoId,omitempty"`
	NodeID string `json:"nodeId,omitempty"`
}

// LayoutSpec describes the layout portion of a node design.
type LayoutSpec struct {
	Mode    string  `json:"mode,omitempty"` // "horizontal", "vertical", "none"
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
	Padding float64 `json:"padding,omitempty"`
	Spacing float64 `json:"spacing,omitempty"`
	Sizing  string  `json:"sizing,omitempty"` // "fixed", "hug", "fill"
}

// StyleSpec describes the visual portion of a node design.
type StyleSpec struct {
	Fill         string  `json:"fill,omitempty"` // hex color
	Stroke       string  `json:"stroke,omitempty"`
	CornerRadius float64 `json:"cornerRadius,omitempty"`
	FontSize     float64 `json:"fontSize,omitempty"`
	FontWeight   string  `json:"fontWeight,omitempty"`
	TextColor    string  `json:"textColor,omitempty"`
}

// TodoDesign elaborates one TODO into a concrete node specification.
type TodoDesign struct {
	TodoID   string     `json:"todoId"`
	NodeType string     `json:"nodeType"` // "FRAME", "TEXT", "COMPONENT", ...
	Name     string     `json:"name"`
	Layout   LayoutSpec `json:"layout,omitempty"`
	Style    StyleSpec  `json:"style,omitempty"`
	Parent   *ParentRef `json:"parent,omitempty"`

	// VariantProps are the component variant values the designed node should carry.
	VariantProps []Prop `json:"variantProps,omitempty"`

	// TargetNodeID/NodeID carry the same alias pair as TodoItem.
	TargetNodeID string `json:"targetNodeId,omitempty"`
	NodeID       string `json:"nodeId,omitempty"`
}

// ScenarioCoverage summarizes how many of a scenario's TODOs have designs.
type ScenarioCoverage struct {
	ScenarioID string `json:"scenarioId"`
	Strategy   string `json:"strategy,omitempty"`
	Designed   int    `json:"designed"`
	Total      int    `json:"total"`
}

// DesignSet is the figma-design step's output: one design per TODO plus
// per-scenario coverage totals.
type DesignSet struct {
	Designs  []TodoDesign       `json:"designs"`
	Coverage []ScenarioCoverage `json:"coverage,omitempty"`
}

// DesignFor returns the design for the given TODO id, or nil.
func (d *DesignSet) DesignFor(todoID string) *TodoDesign {
	for i := range d.Designs {
		if d.Designs[i].TodoID == todoID {
			return &d.Designs[i]
		}
	}
	return nil
}

// Screen is one in-scope screen or flow derived during the product-blueprint step.
type Screen struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"` // "existing" or "new"
	NodeID   string `json:"nodeId,omitempty"`
	Synopsis string `json:"synopsis,omitempty"`
}

// Blueprint is the product-blueprint step's structured outline.
type Blueprint struct {
	Screens       []Screen `json:"screens"`
	OpenQuestions []string `json:"openQuestions,omitempty"`
}
