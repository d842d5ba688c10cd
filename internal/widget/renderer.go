package widget

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/jask/wipchat/internal/wip"
)

// ParamUpdate is emitted on the renderer's channel when a widget replaces
// its own parameters through the ParamSetter it was handed at init.
type ParamUpdate struct {
	URI    string
	Params Params
}

// Instance is a live rendered widget: the resolved component plus the
// current (possibly setter-updated) parameter mapping. An unresolved URI
// still yields an Instance so callers always have something to show.
type Instance struct {
	URI        string
	Descriptor Descriptor
	Component  Component
	Params     Params
	Unknown    bool
}

// View renders the instance at the given size. Unknown widgets render the
// documented fallback instead of failing.
func (in *Instance) View(width, height int) string {
	if in == nil {
		return ""
	}
	if in.Unknown {
		return unknownStyle.Render(fmt.Sprintf("unknown widget: %s", in.URI))
	}
	return in.Component.View(in.Params, width, height)
}

// Update forwards a message to the component, if any.
func (in *Instance) Update(msg tea.Msg) tea.Cmd {
	if in == nil || in.Unknown {
		return nil
	}
	return in.Component.Update(msg)
}

// ExportContext returns the component's exported context and whether it is
// worth injecting. Absent capability, nil, empty strings and empty maps all
// count as "nothing to inject".
func (in *Instance) ExportContext() (any, bool) {
	if in == nil || in.Unknown {
		return nil, false
	}
	exp, ok := in.Component.(ContextExporter)
	if !ok {
		return nil, false
	}
	ctx := exp.ExportContext()
	switch v := ctx.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	case map[string]any:
		return v, len(v) > 0
	default:
		return v, true
	}
}

// SuggestActions returns the component's follow-up suggestions, if any.
func (in *Instance) SuggestActions() []string {
	if in == nil || in.Unknown {
		return nil
	}
	if s, ok := in.Component.(ActionSuggester); ok {
		return s.SuggestActions()
	}
	return nil
}

var unknownStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Faint(true)

// Renderer resolves URIs against the registry, normalizes agent parameter
// lists and drives the widget lifecycle. It owns the channel parameters
// flow back on when a widget updates itself.
type Renderer struct {
	current    *Instance
	lastParams map[string]Params
	updates    chan ParamUpdate
}

func NewRenderer() *Renderer {
	return &Renderer{
		lastParams: map[string]Params{},
		updates:    make(chan ParamUpdate, 8),
	}
}

// Updates exposes the parameter-update channel for the event loop to
// listen on.
func (r *Renderer) Updates() <-chan ParamUpdate {
	return r.updates
}

// Render resolves uri and produces the live instance, running Init (and
// ImportContext) when the identifier differs from the one currently shown.
// Rendering the same identifier again only replaces the parameters; the
// init hook is suppressed so first-run setup does not re-trigger. The
// returned tea.Cmd carries any init work and must be scheduled by the
// caller.
func (r *Renderer) Render(uri string, pairs []wip.Parameter) (*Instance, tea.Cmd) {
	params := NormalizeParams(pairs)

	if r.current != nil && r.current.URI == uri {
		r.current.Params = params
		r.rememberParams(uri, params)
		return r.current, nil
	}

	reg, ok := Resolve(uri)
	if !ok {
		log.Warn().Str("uri", uri).Msg("widget: resolve miss, rendering fallback")
		r.current = &Instance{URI: uri, Params: params, Unknown: true}
		return r.current, nil
	}

	comp := reg.New()
	in := &Instance{
		URI:        uri,
		Descriptor: reg.Descriptor,
		Component:  comp,
		Params:     params,
	}

	if imp, ok := comp.(ContextImporter); ok {
		if prev, seen := r.lastParams[uri]; seen {
			imp.ImportContext(prev.Clone())
		}
	}

	var cmd tea.Cmd
	if init, ok := comp.(Initializer); ok {
		cmd = init.Init(params, r.setterFor(uri))
	}

	r.current = in
	r.rememberParams(uri, params)
	return in, cmd
}

// ApplyUpdate installs setter-delivered parameters on the current
// instance. Updates for a widget that is no longer current are dropped.
func (r *Renderer) ApplyUpdate(u ParamUpdate) {
	if r.current == nil || r.current.URI != u.URI {
		log.Debug().Str("uri", u.URI).Msg("widget: dropping stale param update")
		return
	}
	r.current.Params = u.Params
	r.rememberParams(u.URI, u.Params)
}

// Current returns the most recently rendered instance, or nil.
func (r *Renderer) Current() *Instance {
	return r.current
}

// Release forgets the current instance, e.g. after its message is removed
// from the log. Remembered parameters survive so a re-opened widget can
// import them.
func (r *Renderer) Release() {
	r.current = nil
}

func (r *Renderer) setterFor(uri string) ParamSetter {
	return func(p Params) {
		select {
		case r.updates <- ParamUpdate{URI: uri, Params: p.Clone()}:
		default:
			log.Warn().Str("uri", uri).Msg("widget: param update channel full, dropping")
		}
	}
}

func (r *Renderer) rememberParams(uri string, p Params) {
	r.lastParams[uri] = p.Clone()
}
