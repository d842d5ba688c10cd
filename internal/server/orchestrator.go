package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jask/wipchat/internal/llm"
	"github.com/jask/wipchat/internal/wip"
)

const (
	defaultMemoryWindow = 20
	defaultShortlistLen = 4
	maxToolRounds       = 6

	contextPrefix = "[Widget Context]: "
)

const systemPromptHeader = `You are a shopping and scheduling assistant that can open
interactive widgets on the user's screen. Always answer with a single JSON
object of the form {"uri": "...", "parameters": [{"name": "...", "value": ...}], "text": "..."}.
Set "uri" to one of the offered widget URIs to show that widget, or to ""
for a plain text answer. "parameters" is an ordered list of name/value
pairs matching the widget's schema. "text" is the message shown to the
user. Use the available tools to look up real data before answering.

Offered widgets:`

// Orchestrator runs one chat turn end to end: shortlist, prompt, model
// loop with tool execution, and response coercion.
type Orchestrator struct {
	provider  llm.Provider
	tools     *ToolSet
	memory    *LastKMemory
	manifests []wip.Manifest
}

func NewOrchestrator(provider llm.Provider, tools *ToolSet, manifests []wip.Manifest) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		tools:     tools,
		memory:    NewLastKMemory(defaultMemoryWindow),
		manifests: manifests,
	}
}

// InjectContext records widget-exported state as a prefixed user message
// so the model sees it ahead of the next turn.
func (o *Orchestrator) InjectContext(session, content string) {
	o.memory.Append(session, llm.Message{Role: llm.RoleUser, Content: contextPrefix + content})
}

// RunChatTurn executes the model loop for one user message. Tool rounds
// run until the model answers in prose or the round budget is spent; the
// returned entries preserve call order.
func (o *Orchestrator) RunChatTurn(ctx context.Context, session, userMessage string) ([]wip.ReplyEntry, error) {
	shortlist := Shortlist(o.manifests, userMessage, defaultShortlistLen)
	o.memory.ReinsertSystem(session, llm.Message{Role: llm.RoleSystem, Content: buildSystemPrompt(shortlist)})
	o.memory.Append(session, llm.Message{Role: llm.RoleUser, Content: userMessage})

	var entries []wip.ReplyEntry
	for round := 0; round < maxToolRounds; round++ {
		res, err := o.provider.ChatCompletion(ctx, o.memory.History(session), o.tools.Defs())
		if err != nil {
			return nil, fmt.Errorf("chat turn: %w", err)
		}

		if len(res.ToolCalls) == 0 {
			content := coerceAssistant(res.Content, shortlist)
			o.memory.Append(session, llm.Message{Role: llm.RoleAssistant, Content: content})
			return append(entries, wip.ReplyEntry{Role: wip.RoleAssistant, Content: content}), nil
		}

		o.memory.Append(session, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   res.Content,
			ToolCalls: res.ToolCalls,
		})
		for _, tc := range res.ToolCalls {
			result, err := o.tools.Call(ctx, tc.Name, tc.Arguments)
			if err != nil {
				log.Warn().Err(err).Str("tool", tc.Name).Msg("server: tool call failed")
				errPayload, _ := json.Marshal(map[string]string{"error": err.Error()})
				result = string(errPayload)
			}
			entries = append(entries, wip.ReplyEntry{
				Role:      wip.RoleTool,
				Tool:      tc.Name,
				Arguments: decodeArgs(tc.Arguments),
				Result:    result,
			})
			o.memory.Append(session, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	// round budget spent: close the turn with whatever context the tool
	// results left behind
	content := coerceAssistant("", shortlist)
	o.memory.Append(session, llm.Message{Role: llm.RoleAssistant, Content: content})
	return append(entries, wip.ReplyEntry{Role: wip.RoleAssistant, Content: content}), nil
}

func buildSystemPrompt(shortlist []wip.Manifest) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	for _, m := range shortlist {
		b.WriteString(fmt.Sprintf("\n- %s (%s): %s", m.Name, m.URI, m.Description))
		if m.UseCasesHints != "" {
			b.WriteString(" Use for: " + m.UseCasesHints + ".")
		}
		if schema, err := json.Marshal(m.InputParametersSchema); err == nil {
			b.WriteString(" Parameters schema: " + string(schema))
		}
	}
	return b.String()
}

// coerceAssistant normalizes whatever the model produced into a valid
// payload string. Prose becomes a text-only payload; object-shaped
// parameters are remapped to the ordered pair list; a URI outside the
// offered shortlist is cleared rather than passed through.
func coerceAssistant(content string, shortlist []wip.Manifest) string {
	payload := parsePayload(content)
	if payload.URI != "" && !offered(shortlist, payload.URI) {
		log.Warn().Str("uri", payload.URI).Msg("server: model picked a widget outside the shortlist")
		payload.URI = ""
		payload.Parameters = []wip.Parameter{}
	}
	if payload.Parameters == nil {
		payload.Parameters = []wip.Parameter{}
	}
	out, err := json.Marshal(payload)
	if err != nil {
		out, _ = json.Marshal(wip.AssistantPayload{Parameters: []wip.Parameter{}, Text: content})
	}
	return string(out)
}

func parsePayload(content string) wip.AssistantPayload {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var raw struct {
		URI        string          `json:"uri"`
		Parameters json.RawMessage `json:"parameters"`
		Text       string          `json:"text"`
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return wip.AssistantPayload{Parameters: []wip.Parameter{}, Text: content}
	}
	return wip.AssistantPayload{
		URI:        raw.URI,
		Parameters: coerceParameters(raw.Parameters),
		Text:       raw.Text,
	}
}

// coerceParameters accepts both the canonical pair list and the
// object-shaped mapping smaller models tend to produce.
func coerceParameters(raw json.RawMessage) []wip.Parameter {
	if len(raw) == 0 {
		return []wip.Parameter{}
	}
	var pairs []wip.Parameter
	if err := json.Unmarshal(raw, &pairs); err == nil {
		if pairs == nil {
			pairs = []wip.Parameter{}
		}
		return pairs
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		// stable order for a shape that has none
		sort.Strings(keys)
		out := make([]wip.Parameter, 0, len(obj))
		for _, k := range keys {
			out = append(out, wip.Parameter{Name: k, Value: obj[k]})
		}
		return out
	}
	return []wip.Parameter{}
}

func decodeArgs(argsJSON string) map[string]any {
	if argsJSON == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil
	}
	return args
}
