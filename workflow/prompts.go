// ABOUTME: Prompt construction for the planner, designer, and code generator calls.
// ABOUTME: Keeps all model-facing text in one place so steps stay mechanical.
package workflow

import (
	"fmt"
	"strings"

	"github.com/draftforge/canvasflow/llm"
	"github.com/draftforge/canvasflow/plan"
)

const plannerSystemPrompt = `You are a design planning assistant. Break the user's request into a
JSON plan: {"confidence": 0..1, "scenarios": [{"id", "title"}], "todos": [{"id", "task",
"type": "create|modify|delete|style|check|find|validate", "targetNodeId", "scenarioId",
"expectedProps": [...], "dependsOn": [...]}]}.
Respond with the JSON object only.`

const designerSystemPrompt = `You are a UI design assistant. For each todo, produce a concrete node spec:
{"designs": [{"todoId", "name", "nodeType", "parent": {"todoId" or "nodeId"},
"layout": {"mode", "width", "height", "padding", "spacing"},
"style": {"fills", "cornerRadius", "fontFamily", "fontSize"},
"variantProps": [{"name", "value"}]}]}.
Respond with the JSON object only.`

const generatorSystemPrompt = `You write scripts against the Figma plugin API. Produce one
self-contained script that implements every todo. Use async/await for font loads, RGB color
objects with channels in [0, 1], and documented API methods only. Respond with a single
fenced code block and nothing else.`

// buildPlannerMessages assembles the planning request.
func buildPlannerMessages(s *WorkflowState) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", s.UserPrompt)
	writeSnapshot(&b, s.Snapshot)
	writeBlueprint(&b, s.Blueprint)
	writeAnswers(&b, s.Collected.Answers)
	writeLearning(&b, s)

	msgs := historyMessages(s)
	msgs = append(msgs, llm.SystemMessage(plannerSystemPrompt), llm.UserMessage(b.String()))
	return msgs
}

// buildDesignerMessages assembles the figma-design request from the plan.
func buildDesignerMessages(s *WorkflowState) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\nTodos:\n", s.UserPrompt)
	for _, todo := range s.Plan.Todos {
		fmt.Fprintf(&b, "- %s (%s, type=%s, scenario=%s)\n", todo.ID, todo.Task, todo.Type, todo.ScenarioID)
	}
	writeNodeDetails(&b, s.Collected.NodeDetails)
	writeLearning(&b, s)

	return []llm.Message{llm.SystemMessage(designerSystemPrompt), llm.UserMessage(b.String())}
}

// buildGeneratorMessages assembles the code generation request from the plan
// and design set.
func buildGeneratorMessages(s *WorkflowState) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\nImplement these todos:\n", s.UserPrompt)
	for _, todo := range s.Plan.Todos {
		fmt.Fprintf(&b, "- [%s] %s (type=%s", todo.ID, todo.Task, todo.Type)
		if target := todo.Target(); target != "" {
			fmt.Fprintf(&b, ", target=%s", target)
		}
		b.WriteString(")\n")
		if d := s.Design.DesignFor(todo.ID); d != nil {
			writeDesign(&b, d)
		}
	}
	writeSnapshot(&b, s.Snapshot)
	writeNodeDetails(&b, s.Collected.NodeDetails)
	writeLearning(&b, s)

	if s.PartialRetry && s.Collected.ExecutionReport != nil {
		b.WriteString("\nA previous run already created some nodes; only produce code for todos not yet satisfied. Existing nodes:\n")
		for _, n := range s.Collected.ExecutionReport.CreatedNodes {
			fmt.Fprintf(&b, "- %s (%s, id=%s)\n", n.Name, n.Type, n.ID)
		}
	}

	return []llm.Message{llm.SystemMessage(generatorSystemPrompt), llm.UserMessage(b.String())}
}

func writeDesign(b *strings.Builder, d *plan.TodoDesign) {
	fmt.Fprintf(b, "  design: name=%q nodeType=%s", d.Name, d.NodeType)
	if d.Parent != nil {
		if d.Parent.NodeID != "" {
			fmt.Fprintf(b, " parentNode=%s", d.Parent.NodeID)
		} else if d.Parent.TodoID != "" {
			fmt.Fprintf(b, " parentTodo=%s", d.Parent.TodoID)
		}
	}
	for _, p := range d.VariantProps {
		fmt.Fprintf(b, " %s=%s", p.Name, p.Value)
	}
	b.WriteString("\n")
}

func writeSnapshot(b *strings.Builder, snap ContextSnapshot) {
	if snap.PageName == "" && len(snap.Selection) == 0 && len(snap.Nodes) == 0 {
		return
	}
	b.WriteString("\nCanvas:\n")
	if snap.PageName != "" {
		fmt.Fprintf(b, "  page: %s\n", snap.PageName)
	}
	for _, n := range snap.Selection {
		fmt.Fprintf(b, "  selected: %s (%s, id=%s)\n", n.Name, n.Type, n.ID)
	}
	for _, n := range snap.Nodes {
		fmt.Fprintf(b, "  node: %s (%s, id=%s)\n", n.Name, n.Type, n.ID)
	}
}

func writeBlueprint(b *strings.Builder, bp *plan.Blueprint) {
	if bp == nil || len(bp.Screens) == 0 {
		return
	}
	b.WriteString("\nScreens:\n")
	for _, sc := range bp.Screens {
		fmt.Fprintf(b, "  %s (%s)\n", sc.Name, sc.Kind)
	}
}

func writeNodeDetails(b *strings.Builder, details []NodeDetail) {
	if len(details) == 0 {
		return
	}
	b.WriteString("\nNode details:\n")
	for _, d := range details {
		fmt.Fprintf(b, "  %s (%s, id=%s)", d.Name, d.Type, d.ID)
		for _, p := range d.Props {
			fmt.Fprintf(b, " %s=%s", p.Name, p.Value)
		}
		b.WriteString("\n")
	}
}

func writeAnswers(b *strings.Builder, answers []string) {
	if len(answers) == 0 {
		return
	}
	b.WriteString("\nClarifications from the user:\n")
	for _, a := range answers {
		fmt.Fprintf(b, "  - %s\n", a)
	}
}

// writeLearning renders accumulated learning plus negative success patterns.
func writeLearning(b *strings.Builder, s *WorkflowState) {
	if s.Learning != "" {
		fmt.Fprintf(b, "\nLessons from previous attempts:\n%s\n", s.Learning)
	}
	for _, sp := range s.SuccessPatterns {
		if sp.Negative {
			fmt.Fprintf(b, "%s\n", sp.Pattern)
		}
	}
}

// historyMessages converts retained conversation turns for the planner call.
func historyMessages(s *WorkflowState) []llm.Message {
	msgs := make([]llm.Message, 0, len(s.ConversationHistory))
	msgs = append(msgs, s.ConversationHistory...)
	return msgs
}
