// ABOUTME: Unwinds nested previous-error payloads into flat learning lines so a new
// ABOUTME: run can start from the lessons of an earlier failed run.
package workflow

import (
	"encoding/json"
	"strings"
)

// maxLearningUnwindDepth bounds how many nested previous-error payloads are
// unwound. Payloads can embed the run that preceded them, which can embed the
// one before that; beyond two levels the signal is stale.
const maxLearningUnwindDepth = 2

// previousErrorPayload is the serialized failure a caller may pass when
// starting a fresh run after an aborted one.
type previousErrorPayload struct {
	Message       string `json:"message"`
	Category      string `json:"category,omitempty"`
	Learning      string `json:"learning,omitempty"`
	PreviousError string `json:"previousError,omitempty"`
}

// UnwindPreviousError flattens a possibly nested previous-error string into
// learning lines, newest first, capped at maxLearningUnwindDepth levels.
// Plain non-JSON strings come through as a single line.
func UnwindPreviousError(raw string) string {
	var lines []string
	current := raw
	for depth := 0; depth <= maxLearningUnwindDepth && strings.TrimSpace(current) != ""; depth++ {
		var payload previousErrorPayload
		if err := json.Unmarshal([]byte(current), &payload); err != nil {
			lines = append(lines, strings.TrimSpace(current))
			break
		}
		line := payload.Message
		if payload.Category != "" {
			line = "[" + payload.Category + "] " + line
		}
		if payload.Learning != "" {
			line += " (learned: " + payload.Learning + ")"
		}
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		current = payload.PreviousError
	}
	return strings.Join(lines, "\n")
}
