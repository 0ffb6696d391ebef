// ABOUTME: Tests for the validator pipeline, type/semantic checking, the ignore-list,
// ABOUTME: the fallback check, and learning-context rendering.
package lint

import (
	"strings"
	"testing"
)

func newTestValidator() *Validator {
	return NewValidator(nil, nil)
}

func TestEmptyScriptPassesWithNoIssuesLearning(t *testing.T) {
	v := newTestValidator()
	r := v.Validate("")

	if !r.OK() {
		t.Fatalf("expected success, got errors: %+v", r.Errors)
	}
	if !strings.Contains(r.Learning, "No issues") {
		t.Errorf("learning = %q, want a no-issues message", r.Learning)
	}
}

func TestNoOpScriptPasses(t *testing.T) {
	v := newTestValidator()
	r := v.Validate("// nothing to do\n")
	if !r.OK() {
		t.Fatalf("expected success, got errors: %+v", r.Errors)
	}
}

func TestUnknownFigmaMethodFlagged(t *testing.T) {
	v := newTestValidator()
	r := v.Validate(`figma.makeItPop();`)

	if r.OK() {
		t.Fatal("expected errors")
	}
	if r.Errors[0].Kind != KindFigmaAPI {
		t.Errorf("kind = %s, want FIGMA_API", r.Errors[0].Kind)
	}
	if !strings.Contains(r.Errors[0].Message, "makeItPop") {
		t.Errorf("message %q missing method name", r.Errors[0].Message)
	}
}

func TestAllowedFigmaMethodPasses(t *testing.T) {
	v := newTestValidator()
	r := v.Validate(`const f = figma.createFrame();` + "\n" + `figma.notify("done");`)
	if !r.OK() {
		t.Fatalf("unexpected errors: %+v", r.Errors)
	}
}

func TestNamespacePropertyAccessNotTreatedAsCall(t *testing.T) {
	v := newTestValidator()
	r := v.Validate(`figma.currentPage.appendChild(f); figma.notify("x");`)
	if !r.OK() {
		t.Fatalf("unexpected errors: %+v", r.Errors)
	}
}

func TestUnknownNodePropertyFlagged(t *testing.T) {
	v := newTestValidator()
	r := v.Validate(`node.glowIntensity = 3;`)

	if r.OK() {
		t.Fatal("expected errors")
	}
	if r.Errors[0].Kind != KindType {
		t.Errorf("kind = %s, want TYPE_ERROR", r.Errors[0].Kind)
	}
}

func TestBracketNotationAssignmentSuppressed(t *testing.T) {
	v := newTestValidator()
	r := v.Validate(`node["customField"] = 3;`)
	if !r.OK() {
		t.Fatalf("bracket notation should be ignorable, got: %+v", r.Errors)
	}
}

func TestAwaitOutsideAsyncIsSyntaxError(t *testing.T) {
	v := newTestValidator()
	r := v.Validate(`await figma.loadFontAsync(font);`)

	if r.OK() {
		t.Fatal("expected errors")
	}
	found := false
	for _, d := range r.Errors {
		if d.Kind == KindSyntax && d.Rule == "await-outside-async" {
			found = true
		}
	}
	if !found {
		t.Errorf("no await-outside-async defect in %+v", r.Errors)
	}
}

func TestAwaitInsideAsyncPasses(t *testing.T) {
	v := newTestValidator()
	script := "async function main() {\n  await figma.loadFontAsync(font);\n}\nmain();"
	r := v.Validate(script)
	if !r.OK() {
		t.Fatalf("unexpected errors: %+v", r.Errors)
	}
}

func TestUnbalancedBracesFlagged(t *testing.T) {
	v := newTestValidator()
	r := v.Validate(`function f() { figma.notify("x");`)
	if r.OK() {
		t.Fatal("expected errors")
	}
	if r.Errors[0].Rule != "balanced-delimiters" {
		t.Errorf("rule = %q", r.Errors[0].Rule)
	}
}

func TestBracesInsideStringsIgnored(t *testing.T) {
	v := newTestValidator()
	r := v.Validate(`figma.notify("unmatched { brace");`)
	if !r.OK() {
		t.Fatalf("unexpected errors: %+v", r.Errors)
	}
}

func TestDefectsAccumulateAcrossLayers(t *testing.T) {
	v := newTestValidator()
	script := strings.Join([]string{
		`figma.makeItPop();`,
		`rect.fills = [{color: {r:1,g:0,b:0,a:1}}];`,
	}, "\n")
	r := v.Validate(script)

	kinds := make(map[Kind]bool)
	for _, d := range r.Errors {
		kinds[d.Kind] = true
	}
	if !kinds[KindFigmaAPI] || !kinds[KindColorFormat] {
		t.Errorf("expected both FIGMA_API and COLOR_FORMAT, got %+v", r.Errors)
	}
}

func TestFallbackRequiresFigmaCall(t *testing.T) {
	v := newTestValidator()
	r := v.Fallback(`console.log("hello");`)
	if r.OK() {
		t.Fatal("expected fallback to flag missing figma call")
	}
	if r.Errors[0].Kind != KindValidation {
		t.Errorf("kind = %s, want VALIDATION_ERROR", r.Errors[0].Kind)
	}
}

func TestFallbackAcceptsMinimalScript(t *testing.T) {
	v := newTestValidator()
	r := v.Fallback(`figma.notify("hi");`)
	if !r.OK() {
		t.Fatalf("unexpected errors: %+v", r.Errors)
	}
}

func TestLearningIsNumberedAndOrdered(t *testing.T) {
	errs := []Defect{
		{Kind: KindFigmaAPI, Message: "first problem", Fix: "do this", Fragment: "figma.x()"},
		{Kind: KindColorFormat, Message: "second problem"},
	}
	doc := RenderLearning(errs, nil)

	first := strings.Index(doc, "1. [FIGMA_API] first problem")
	second := strings.Index(doc, "2. [COLOR_FORMAT] second problem")
	if first < 0 || second < 0 || second < first {
		t.Errorf("learning not numbered in order:\n%s", doc)
	}
	if !strings.Contains(doc, "Fix: do this") {
		t.Errorf("learning missing fix line:\n%s", doc)
	}
	if !strings.Contains(doc, "Code: figma.x()") {
		t.Errorf("learning missing code fragment:\n%s", doc)
	}
}

func TestDescribeSummarizesKinds(t *testing.T) {
	r := &Result{Errors: []Defect{
		{Kind: KindType}, {Kind: KindType}, {Kind: KindColorFormat},
	}}
	s := Describe(r)
	if !strings.Contains(s, "3 error(s)") || !strings.Contains(s, "TYPE_ERROR") || !strings.Contains(s, "COLOR_FORMAT") {
		t.Errorf("describe = %q", s)
	}
}
