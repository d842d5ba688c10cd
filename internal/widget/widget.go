// Package widget defines the contract interactive widgets implement to be
// driven by the chat surface: a descriptor for listing, a render surface,
// and a set of optional lifecycle capabilities. It also hosts the registry
// and the renderer that bridges agent-sent parameters to live instances.
package widget

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/wipchat/internal/wip"
)

// VisualizationMode governs which framing controls the chat surface offers
// for a widget message.
type VisualizationMode string

const (
	// ModeSmall renders inline only.
	ModeSmall VisualizationMode = "small"
	// ModeBoth renders inline and permits shrink/full-screen toggles.
	ModeBoth VisualizationMode = "both"
	// ModeIndependent always renders in its own full-screen surface.
	ModeIndependent VisualizationMode = "independent"
)

// Params is the widget-native parameter mapping.
type Params map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the string value for key, or "" when absent or non-string.
func (p Params) String(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Bool returns the bool value for key, defaulting to false.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// NormalizeParams converts the agent's ordered pair list into the
// widget-native mapping. Duplicate names keep the last occurrence's value.
// A nil or empty list yields an empty, non-nil map, so converting is
// idempotent and never drops information beyond the documented
// last-wins policy.
func NormalizeParams(pairs []wip.Parameter) Params {
	out := make(Params, len(pairs))
	for _, p := range pairs {
		out[p.Name] = p.Value
	}
	return out
}

// ParamSetter lets a widget replace its own parameter mapping after user
// interaction. Safe to call from inside tea.Cmd goroutines; the update is
// routed back through the renderer's channel.
type ParamSetter func(Params)

// Descriptor is the immutable listing on record for a widget.
type Descriptor struct {
	URI         string
	Name        string
	Description string
	Mode        VisualizationMode
	// Icon produces a short glyph for picker rows. May be nil; a
	// panicking producer is tolerated by callers.
	Icon func() string
}

// Component is a renderable widget unit. Implementations hold their own
// interaction state; one Component value backs exactly one on-screen
// instance.
type Component interface {
	View(params Params, width, height int) string
	Update(msg tea.Msg) tea.Cmd
}

// Optional capabilities. Absence of an interface means no-op.

// Initializer runs first-show setup. It is invoked exactly once per
// identifier change, never again while the same widget stays open.
type Initializer interface {
	Init(params Params, set ParamSetter) tea.Cmd
}

// ContextExporter yields the user-driven state to hand back to the agent
// before the next turn. Return "" (or a value that marshals to nothing)
// to signal there is no context worth injecting.
type ContextExporter interface {
	ExportContext() any
}

// ContextImporter receives the parameter mapping a previous instance of
// the same widget was left with, before Init runs.
type ContextImporter interface {
	ImportContext(previous Params)
}

// ActionSuggester surfaces follow-up prompts under the open widget.
type ActionSuggester interface {
	SuggestActions() []string
}
