// Package llm provides the model gateway for chat completions and
// embeddings. It wraps the OpenAI-compatible API behind a small request and
// response surface, classifies provider failures into typed errors, and
// guards the upstream with retry, rate limiting, and a circuit breaker.
package llm

import "encoding/json"

// Message roles in a conversation transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in a conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued request to invoke a named tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDef describes a tool the model may call. Parameters is a JSON Schema
// object in the draft the provider expects.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// CompleteRequest is a single chat completion request.
type CompleteRequest struct {
	Messages    []Message
	Tools       []ToolDef
	Temperature float64
}

// Completion is the model's reply to a CompleteRequest. Exactly one of Text
// and ToolCalls is usually populated; both may be set when the model narrates
// alongside a tool request.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool-role message answering the given call.
func ToolMessage(content, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}
