// Package wip holds the wire types of the widget interaction protocol:
// the request/response shapes exchanged with the backend and the manifest
// format widgets are described by.
package wip

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parameter is one ordered name/value pair as produced by the agent.
// Values are whatever JSON carried: string, number, bool, list or object.
type Parameter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ChatRequest is the body of POST /wip/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ContextInjectionRequest is the body of POST /wip/context-injection.
type ContextInjectionRequest struct {
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
}

// SessionResponse is the body of GET /wip/start-session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// Reply roles.
const (
	RoleTool      = "tool"
	RoleAssistant = "assistant"
)

// ReplyEntry is one element of the ordered /wip/chat response array.
// Role selects which of the remaining fields are meaningful: tool entries
// carry Tool/Arguments/Result, assistant entries carry Content.
type ReplyEntry struct {
	Role      string         `json:"role"`
	Tool      string         `json:"tool,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    string         `json:"result,omitempty"`
	Content   string         `json:"content,omitempty"`
}

// AssistantPayload is the structured form an assistant entry's Content
// decodes to. An empty URI means "text-only reply, no widget".
type AssistantPayload struct {
	URI        string      `json:"uri"`
	Parameters []Parameter `json:"parameters"`
	Text       string      `json:"text"`
}

// DecodeAssistantPayload parses an assistant Content string. Decode failure
// is an expected condition (the model replied with prose), not a fault.
func DecodeAssistantPayload(content string) (AssistantPayload, error) {
	var p AssistantPayload
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	if err := dec.Decode(&p); err != nil {
		return AssistantPayload{}, fmt.Errorf("decode assistant payload: %w", err)
	}
	return p, nil
}

// Manifest describes one widget to the agent. Mirrors the resource JSON
// served under the wip:// scheme.
type Manifest struct {
	URI                   string         `json:"uri"`
	InputParametersSchema map[string]any `json:"input_parameters_schema"`
	Capabilities          []string       `json:"capabilities,omitempty"`
	Name                  string         `json:"name"`
	Description           string         `json:"description"`
	UseCasesHints         string         `json:"use_cases_hints"`
	Version               string         `json:"version"`
}

// ManifestResponse is the body of GET /wip/manifest.
type ManifestResponse struct {
	Resources []string `json:"resources"`
}
