// ABOUTME: Request and response types for the completion-service client.
// ABOUTME: Messages are role-tagged and may carry inline images alongside text.
package llm

import "time"

// Role represents who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImageData holds inline image content as URL or raw bytes.
type ImageData struct {
	URL       string `json:"url,omitempty"`
	Data      []byte `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// Message is one role-tagged turn in a completion request.
type Message struct {
	Role   Role        `json:"role"`
	Text   string      `json:"text"`
	Images []ImageData `json:"images,omitempty"`
}

// SystemMessage creates a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}

// UserMessage creates a user-role message.
func UserMessage(text string, images ...ImageData) Message {
	return Message{Role: RoleUser, Text: text, Images: images}
}

// Request is an ordered list of role-tagged messages plus generation knobs.
type Request struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature *float64

	// Timeout bounds the provider call. Zero means the caller's context
	// deadline (if any) is the only bound.
	Timeout time.Duration
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the provider's free-text answer. Callers extract structured
// JSON from Text themselves (see ExtractJSON).
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
	Usage Usage  `json:"usage"`
}
