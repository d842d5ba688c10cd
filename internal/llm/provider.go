// Package llm abstracts the chat completion provider behind a small
// tool-calling interface so the turn orchestrator can be tested without
// network access.
package llm

import "context"

// Role values for conversation messages.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one function invocation requested by the model. Arguments
// is the raw JSON string as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry of the conversation sent to the provider.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string     // set on tool-result messages
	ToolCalls  []ToolCall // set on assistant messages that requested tools
}

// ToolDef describes a callable tool: name, what it does, and a JSON
// schema for its arguments.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Result is one completion: either content, tool calls, or both.
type Result struct {
	Content   string
	ToolCalls []ToolCall
}

// Provider produces chat completions.
type Provider interface {
	ChatCompletion(ctx context.Context, messages []Message, tools []ToolDef) (Result, error)
}
