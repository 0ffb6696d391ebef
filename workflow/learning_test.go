// ABOUTME: Tests for previous-error unwinding, including the nesting depth cap.
package workflow

import (
	"strings"
	"testing"
)

func TestUnwindPreviousErrorPlainString(t *testing.T) {
	if got := UnwindPreviousError("font load failed"); got != "font load failed" {
		t.Errorf("got %q", got)
	}
}

func TestUnwindPreviousErrorNestedPayload(t *testing.T) {
	raw := `{"message": "run aborted", "category": "execution", "learning": "guard node lookups",
		"previousError": "{\"message\": \"validation failed\", \"category\": \"validation\"}"}`

	got := UnwindPreviousError(raw)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "[execution] run aborted") || !strings.Contains(lines[0], "guard node lookups") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "[validation] validation failed") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestUnwindPreviousErrorDepthCap(t *testing.T) {
	// Four levels deep; only the first maxLearningUnwindDepth+1 payloads unwind.
	level4 := `{"message": "level4"}`
	level3 := `{"message": "level3", "previousError": ` + quoteJSON(level4) + `}`
	level2 := `{"message": "level2", "previousError": ` + quoteJSON(level3) + `}`
	level1 := `{"message": "level1", "previousError": ` + quoteJSON(level2) + `}`

	got := UnwindPreviousError(level1)
	if !strings.Contains(got, "level1") || !strings.Contains(got, "level3") {
		t.Errorf("missing shallow levels: %q", got)
	}
	if strings.Contains(got, "level4") {
		t.Errorf("depth cap ignored: %q", got)
	}
}

func TestUnwindPreviousErrorEmpty(t *testing.T) {
	if got := UnwindPreviousError(""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

// quoteJSON embeds a JSON document as a JSON string literal.
func quoteJSON(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + replacer.Replace(s) + `"`
}
