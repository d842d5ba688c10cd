// Package tui is the chat surface: a message log, an input line and the
// bridge that opens, updates and closes widgets as the conversation
// progresses. One App drives one backend session.
package tui

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jask/wipchat/internal/prefs"
	"github.com/jask/wipchat/internal/widget"
	"github.com/jask/wipchat/internal/wip"
)

// Backend is the slice of the HTTP client the chat surface needs.
type Backend interface {
	StartSession(ctx context.Context) string
	Chat(ctx context.Context, message, sessionID string) ([]wip.ReplyEntry, error)
	InjectContext(ctx context.Context, content, sessionID string) error
}

// Role tags a log message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleToolCall  Role = "tool"
	RoleWidget    Role = "widget"
	RoleError     Role = "error"
)

// Message is one entry of the append-only conversation log. Widget
// messages keep the URI and raw parameter list they were created with so
// a later restore can re-render them.
type Message struct {
	Role    Role
	Text    string
	Tool    string
	URI     string
	Pairs   []wip.Parameter
	Removed bool
}

type turnPhase string

const (
	phaseIdle          turnPhase = "idle"
	phaseInjecting     turnPhase = "injectingContext"
	phaseAwaitingReply turnPhase = "awaitingReply"
	phaseApplyingReply turnPhase = "applyingReply"
)

type focusArea string

const (
	focusInput focusArea = "input"
	focusLog   focusArea = "log"
)

// App is the bubbletea model for the whole chat surface.
type App struct {
	ctx       context.Context
	backend   Backend
	rend      *widget.Renderer
	favorites *prefs.Favorites

	session string
	pending string

	messages   []Message
	open       int // index of the widget message currently open, -1 none
	fullscreen bool

	phase  turnPhase
	focus  focusArea
	cursor int

	input textinput.Model
	spin  spinner.Model
	vp    viewport.Model

	pick      *picker
	status    string
	statusErr bool

	width  int
	height int
	ready  bool
}

func New(ctx context.Context, backend Backend, favorites *prefs.Favorites) *App {
	ti := textinput.New()
	ti.Placeholder = "Ask for a widget, or just chat"
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return &App{
		ctx:       ctx,
		backend:   backend,
		rend:      widget.NewRenderer(),
		favorites: favorites,
		open:      -1,
		phase:     phaseIdle,
		focus:     focusInput,
		input:     ti,
		spin:      sp,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.startSessionCmd(), a.waitForParamUpdate())
}

func (a *App) startSessionCmd() tea.Cmd {
	return func() tea.Msg {
		return sessionMsg{ID: a.backend.StartSession(a.ctx)}
	}
}

// waitForParamUpdate blocks on the renderer's channel and re-arms itself
// after every delivery, so widget-driven parameter changes surface as
// ordinary tea messages.
func (a *App) waitForParamUpdate() tea.Cmd {
	return func() tea.Msg {
		return paramUpdateMsg{Update: <-a.rend.Updates()}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		if !a.ready {
			a.vp = viewport.New(m.Width, max(1, m.Height-chromeHeight))
			a.ready = true
		} else {
			a.vp.Width = m.Width
			a.vp.Height = max(1, m.Height-chromeHeight)
		}
		a.syncViewport(true)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(m)

	case sessionMsg:
		a.session = m.ID
		return a, nil

	case contextInjectedMsg:
		if a.phase != phaseInjecting {
			return a, nil
		}
		if m.Err != nil {
			log.Warn().Err(m.Err).Msg("tui: context injection failed, continuing turn")
		}
		a.phase = phaseAwaitingReply
		return a, a.chatCmd(a.pending)

	case replyMsg:
		if a.phase != phaseAwaitingReply {
			return a, nil
		}
		if m.Err != nil {
			a.appendMessage(Message{Role: RoleError, Text: m.Err.Error()})
			return a, a.finishTurn()
		}
		a.phase = phaseApplyingReply
		cmd := a.applyReply(m.Entries)
		return a, tea.Batch(cmd, a.finishTurn())

	case paramUpdateMsg:
		a.rend.ApplyUpdate(m.Update)
		a.syncViewport(false)
		return a, a.waitForParamUpdate()

	case statusMsg:
		a.status, a.statusErr = m.Text, m.IsErr
		return a, nil

	case spinner.TickMsg:
		if a.phase == phaseIdle {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(m)
		return a, cmd

	default:
		if inst := a.rend.Current(); inst != nil {
			if cmd := inst.Update(msg); cmd != nil {
				a.syncViewport(false)
				return a, cmd
			}
			a.syncViewport(false)
		}
		return a, nil
	}
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.pick != nil {
		return a.handlePickerKey(m)
	}
	if a.fullscreen && a.open >= 0 {
		return a.handleFullscreenKey(m)
	}
	if a.focus == focusLog {
		return a.handleLogKey(m)
	}
	return a.handleInputKey(m)
}

func (a *App) handleInputKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := m.String()
	if a.phase != phaseIdle {
		// one turn in flight at a time: typing and submits are ignored
		// until the reply lands
		if key == "esc" {
			a.enterLogFocus()
		}
		return a, nil
	}
	switch key {
	case "enter":
		return a, a.submit()
	case "esc":
		a.enterLogFocus()
		return a, nil
	case "ctrl+p":
		a.openPicker()
		return a, nil
	default:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(m)
		return a, cmd
	}
}

func (a *App) handleLogKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc", "i":
		a.focus = focusInput
		return a, a.input.Focus()
	case "k", "up":
		a.moveCursor(-1)
		a.syncViewport(false)
	case "j", "down":
		a.moveCursor(1)
		a.syncViewport(false)
	case "x":
		return a, a.removeAt(a.cursor)
	case "f":
		a.setFullscreen(true)
	case "s":
		a.setFullscreen(false)
	case "ctrl+p":
		a.openPicker()
	default:
		if inst := a.rend.Current(); inst != nil && a.cursor == a.open {
			cmd := inst.Update(m)
			a.syncViewport(false)
			return a, cmd
		}
	}
	return a, nil
}

func (a *App) handleFullscreenKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		// an independent widget owns its surface for as long as it is
		// open: leaving it means dismissing the widget, not shrinking
		// it to an inline frame it never declared
		if inst := a.rend.Current(); inst != nil && inst.Descriptor.Mode == widget.ModeIndependent {
			return a, a.removeAt(a.open)
		}
		a.fullscreen = false
		a.syncViewport(false)
		return a, nil
	case "s":
		if inst := a.rend.Current(); inst != nil && inst.Descriptor.Mode == widget.ModeBoth {
			a.fullscreen = false
			a.syncViewport(false)
		}
		return a, nil
	default:
		if inst := a.rend.Current(); inst != nil {
			return a, inst.Update(m)
		}
		return a, nil
	}
}

func (a *App) handlePickerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	res := a.pick.HandleKey(m.String())
	switch res.Action {
	case pickerActionSelected:
		a.pick = nil
		return a, a.openWidgetByURI(res.Item.ID)
	case pickerActionCancelled:
		a.pick = nil
	case pickerActionToggled:
		if a.favorites != nil {
			a.favorites.Toggle(res.Item.ID)
			a.pick.SetItems(buildPickerItems(a.favorites.Contains))
			if err := a.favorites.Save(); err != nil {
				log.Warn().Err(err).Msg("tui: saving favorites failed")
				return a, statusCmd("favorites not saved: "+err.Error(), true)
			}
		}
	}
	return a, nil
}

func (a *App) enterLogFocus() {
	if len(a.messages) == 0 {
		return
	}
	a.focus = focusLog
	a.cursor = len(a.messages) - 1
	a.input.Blur()
	a.clampCursor()
	a.syncViewport(false)
}

func (a *App) openPicker() {
	var isFav func(string) bool
	if a.favorites != nil {
		isFav = a.favorites.Contains
	}
	a.pick = newPicker("Open widget", buildPickerItems(isFav))
}

// openWidgetByURI opens a widget from the picker, outside any chat turn.
// It enters the log as a widget message with no parameters.
func (a *App) openWidgetByURI(uri string) tea.Cmd {
	inst, cmd := a.rend.Render(uri, nil)
	a.appendMessage(Message{Role: RoleWidget, URI: uri})
	a.open = len(a.messages) - 1
	a.fullscreen = !inst.Unknown && inst.Descriptor.Mode == widget.ModeIndependent
	return cmd
}

// submit starts a chat turn. A second submit while one is in flight is a
// no-op; the idle check here and the phase guards on the intermediate
// messages keep exactly one turn running.
func (a *App) submit() tea.Cmd {
	if a.phase != phaseIdle {
		return nil
	}
	text := strings.TrimSpace(a.input.Value())
	if text == "" {
		return nil
	}
	a.input.Reset()
	a.input.Blur()
	a.pending = text
	a.appendMessage(Message{Role: RoleUser, Text: text})
	a.phase = phaseInjecting
	a.status = "thinking"
	a.statusErr = false
	return tea.Batch(a.spin.Tick, a.injectContextCmd())
}

// injectContextCmd ships the open widget's exported context ahead of the
// chat request. No open widget or nothing to export skips the HTTP round
// trip entirely; an injection failure is reported but never blocks the
// turn.
func (a *App) injectContextCmd() tea.Cmd {
	done := func() tea.Msg { return contextInjectedMsg{} }
	inst := a.rend.Current()
	if inst == nil {
		return done
	}
	exported, ok := inst.ExportContext()
	if !ok {
		return done
	}
	content := encodeContext(exported)
	if content == "" {
		return done
	}
	session := a.session
	return func() tea.Msg {
		return contextInjectedMsg{Err: a.backend.InjectContext(a.ctx, content, session)}
	}
}

func encodeContext(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Msg("tui: widget context not serializable, skipping injection")
		return ""
	}
	return string(data)
}

func (a *App) chatCmd(text string) tea.Cmd {
	session := a.session
	return func() tea.Msg {
		entries, err := a.backend.Chat(a.ctx, text, session)
		return replyMsg{Entries: entries, Err: err}
	}
}

// applyReply walks the backend's ordered entries and folds each into the
// log. Nothing here returns an error; malformed entries degrade to
// messages the user can see.
func (a *App) applyReply(entries []wip.ReplyEntry) tea.Cmd {
	var cmds []tea.Cmd
	for _, e := range entries {
		switch e.Role {
		case wip.RoleTool:
			a.appendMessage(Message{Role: RoleToolCall, Tool: e.Tool, Text: prettyJSON(e.Result)})
		case wip.RoleAssistant:
			if cmd := a.applyAssistant(e.Content); cmd != nil {
				cmds = append(cmds, cmd)
			}
		default:
			a.appendMessage(Message{Role: RoleError, Text: "unhandled reply role: " + e.Role})
		}
	}
	a.syncViewport(true)
	return tea.Batch(cmds...)
}

// applyAssistant decodes one assistant entry. Content that is not the
// structured payload is treated as prose and shown verbatim; prose and
// text-only payloads both close whatever widget was open.
func (a *App) applyAssistant(content string) tea.Cmd {
	payload, err := wip.DecodeAssistantPayload(content)
	if err != nil {
		a.closeWidget()
		a.appendMessage(Message{Role: RoleAssistant, Text: content})
		return nil
	}
	if payload.URI == "" {
		a.closeWidget()
		if payload.Text != "" {
			a.appendMessage(Message{Role: RoleAssistant, Text: payload.Text})
		}
		return nil
	}
	inst, cmd := a.rend.Render(payload.URI, payload.Parameters)
	a.appendMessage(Message{Role: RoleWidget, URI: payload.URI, Pairs: payload.Parameters})
	a.open = len(a.messages) - 1
	a.fullscreen = !inst.Unknown && inst.Descriptor.Mode == widget.ModeIndependent
	if payload.Text != "" {
		a.appendMessage(Message{Role: RoleAssistant, Text: payload.Text})
	}
	return cmd
}

// removeAt hides the widget message at idx. Removing the open widget
// restores the nearest earlier surviving widget message, re-rendering it
// with the parameters it was last sent with; with none left the pointer
// clears.
func (a *App) removeAt(idx int) tea.Cmd {
	if idx < 0 || idx >= len(a.messages) {
		return nil
	}
	m := &a.messages[idx]
	if m.Role != RoleWidget || m.Removed {
		return nil
	}
	m.Removed = true
	var cmd tea.Cmd
	if idx == a.open {
		a.closeWidget()
		for j := idx - 1; j >= 0; j-- {
			prev := a.messages[j]
			if prev.Role == RoleWidget && !prev.Removed {
				_, cmd = a.rend.Render(prev.URI, prev.Pairs)
				a.open = j
				break
			}
		}
	}
	a.clampCursor()
	a.syncViewport(false)
	return cmd
}

func (a *App) closeWidget() {
	a.open = -1
	a.fullscreen = false
	a.rend.Release()
}

func (a *App) finishTurn() tea.Cmd {
	a.phase = phaseIdle
	a.pending = ""
	a.status = ""
	a.statusErr = false
	if a.focus == focusInput {
		return a.input.Focus()
	}
	return nil
}

func (a *App) appendMessage(m Message) {
	a.messages = append(a.messages, m)
	a.syncViewport(true)
}

func (a *App) setFullscreen(on bool) {
	if a.open < 0 {
		return
	}
	inst := a.rend.Current()
	if inst == nil || inst.Descriptor.Mode != widget.ModeBoth {
		return
	}
	a.fullscreen = on
	a.syncViewport(false)
}

func (a *App) moveCursor(delta int) {
	if len(a.messages) == 0 {
		return
	}
	i := a.cursor + delta
	for i >= 0 && i < len(a.messages) && a.messages[i].Removed {
		i += sign(delta)
	}
	if i >= 0 && i < len(a.messages) && !a.messages[i].Removed {
		a.cursor = i
	}
}

// clampCursor moves the cursor off removed or out-of-range positions,
// preferring the nearest earlier message.
func (a *App) clampCursor() {
	if len(a.messages) == 0 {
		a.cursor = 0
		return
	}
	if a.cursor >= len(a.messages) {
		a.cursor = len(a.messages) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
	if !a.messages[a.cursor].Removed {
		return
	}
	for j := a.cursor - 1; j >= 0; j-- {
		if !a.messages[j].Removed {
			a.cursor = j
			return
		}
	}
	for j := a.cursor + 1; j < len(a.messages); j++ {
		if !a.messages[j].Removed {
			a.cursor = j
			return
		}
	}
}

func prettyJSON(raw string) string {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return raw
	}
	return string(data)
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
