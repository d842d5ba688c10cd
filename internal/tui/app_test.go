package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/wipchat/internal/prefs"
	"github.com/jask/wipchat/internal/widget"
	"github.com/jask/wipchat/internal/wip"
)

type fakeBackend struct {
	entries     []wip.ReplyEntry
	chatErr     error
	injectErr   error
	chatCalls   int
	injectCalls int
	lastMessage string
	lastContext string
}

func (f *fakeBackend) StartSession(ctx context.Context) string {
	return "s-test"
}

func (f *fakeBackend) Chat(ctx context.Context, message, sessionID string) ([]wip.ReplyEntry, error) {
	f.chatCalls++
	f.lastMessage = message
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return f.entries, nil
}

func (f *fakeBackend) InjectContext(ctx context.Context, content, sessionID string) error {
	f.injectCalls++
	f.lastContext = content
	return f.injectErr
}

type stubComponent struct {
	exported any
	inits    int
}

func (s *stubComponent) View(p widget.Params, w, h int) string { return "stub" }
func (s *stubComponent) Update(msg tea.Msg) tea.Cmd            { return nil }
func (s *stubComponent) ExportContext() any                    { return s.exported }
func (s *stubComponent) Init(p widget.Params, set widget.ParamSetter) tea.Cmd {
	s.inits++
	return nil
}

var stubSeq int

// registerStub registers a fresh stub widget under a unique URI. The
// registry is process-wide, so tests never share identifiers.
func registerStub(t *testing.T, mode widget.VisualizationMode) (string, *stubComponent) {
	t.Helper()
	stubSeq++
	uri := fmt.Sprintf("wip://test/stub-%d", stubSeq)
	comp := &stubComponent{}
	widget.Register(widget.Registration{
		Descriptor: widget.Descriptor{URI: uri, Name: "Stub", Mode: mode},
		New:        func() widget.Component { return comp },
	})
	return uri, comp
}

func newTestApp(backend Backend) *App {
	return New(context.Background(), backend, nil)
}

func widgetPayload(uri, text string, pairs ...wip.Parameter) string {
	p := wip.AssistantPayload{URI: uri, Parameters: pairs, Text: text}
	if p.Parameters == nil {
		p.Parameters = []wip.Parameter{}
	}
	out, _ := json.Marshal(p)
	return string(out)
}

func TestTurnFlowHappyPath(t *testing.T) {
	uri, comp := registerStub(t, widget.ModeBoth)
	backend := &fakeBackend{entries: []wip.ReplyEntry{
		{Role: "tool", Tool: "get_stock_for_sku", Result: `{"stock":4}`},
		{Role: "assistant", Content: widgetPayload(uri, "Here is the stock view.")},
	}}
	a := newTestApp(backend)

	a.input.SetValue("check stock")
	cmd := a.submit()
	require.NotNil(t, cmd)
	require.Equal(t, phaseInjecting, a.phase)
	require.Len(t, a.messages, 1)
	require.Equal(t, RoleUser, a.messages[0].Role)

	// no widget open yet, injection is skipped entirely
	msg := a.injectContextCmd()()
	require.Equal(t, contextInjectedMsg{}, msg)
	require.Zero(t, backend.injectCalls)

	_, chat := a.Update(msg)
	require.Equal(t, phaseAwaitingReply, a.phase)
	require.NotNil(t, chat)

	_, _ = a.Update(chat())
	require.Equal(t, phaseIdle, a.phase)
	require.Equal(t, 1, backend.chatCalls)
	require.Equal(t, "check stock", backend.lastMessage)

	require.Len(t, a.messages, 4)
	require.Equal(t, RoleToolCall, a.messages[1].Role)
	require.Contains(t, a.messages[1].Text, "\"stock\": 4")
	require.Equal(t, RoleWidget, a.messages[2].Role)
	require.Equal(t, uri, a.messages[2].URI)
	require.Equal(t, RoleAssistant, a.messages[3].Role)
	require.Equal(t, "Here is the stock view.", a.messages[3].Text)

	require.Equal(t, 2, a.open)
	require.Equal(t, 1, comp.inits)
	require.Equal(t, uri, a.rend.Current().URI)
}

func TestSubmitWhileTurnInFlightIsNoOp(t *testing.T) {
	a := newTestApp(&fakeBackend{})
	a.phase = phaseAwaitingReply
	a.input.SetValue("second message")
	require.Nil(t, a.submit())
	require.Empty(t, a.messages)
	// typing is ignored too while a turn is running
	_, cmd := a.handleInputKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	require.Nil(t, cmd)
}

func TestInjectionFailureDoesNotBlockTurn(t *testing.T) {
	uri, comp := registerStub(t, widget.ModeSmall)
	comp.exported = map[string]any{"selected": "SKU-1"}
	backend := &fakeBackend{injectErr: errors.New("backend down")}
	a := newTestApp(backend)

	cmd := a.openWidgetByURI(uri)
	_ = cmd
	a.input.SetValue("what about this one")
	a.submit()

	msg := a.injectContextCmd()()
	injected, ok := msg.(contextInjectedMsg)
	require.True(t, ok)
	require.Error(t, injected.Err)
	require.Equal(t, 1, backend.injectCalls)
	require.Contains(t, backend.lastContext, "SKU-1")

	_, chat := a.Update(msg)
	require.Equal(t, phaseAwaitingReply, a.phase)
	require.NotNil(t, chat)
}

func TestInjectionSkippedWhenNothingToExport(t *testing.T) {
	uri, comp := registerStub(t, widget.ModeSmall)
	comp.exported = map[string]any{}
	backend := &fakeBackend{}
	a := newTestApp(backend)
	a.openWidgetByURI(uri)

	msg := a.injectContextCmd()()
	require.Equal(t, contextInjectedMsg{}, msg)
	require.Zero(t, backend.injectCalls)
}

func TestChatErrorBecomesErrorMessage(t *testing.T) {
	backend := &fakeBackend{chatErr: errors.New("status 502")}
	a := newTestApp(backend)
	a.input.SetValue("hello")
	a.submit()
	_, chat := a.Update(contextInjectedMsg{})
	_, _ = a.Update(chat())

	require.Equal(t, phaseIdle, a.phase)
	require.Equal(t, RoleError, a.messages[len(a.messages)-1].Role)
	require.Contains(t, a.messages[len(a.messages)-1].Text, "502")
}

func TestApplyAssistantProseShownVerbatim(t *testing.T) {
	uri, _ := registerStub(t, widget.ModeSmall)
	a := newTestApp(&fakeBackend{})
	a.openWidgetByURI(uri)
	require.Equal(t, 0, a.open)

	a.applyReply([]wip.ReplyEntry{{Role: "assistant", Content: "plain prose, not a payload"}})

	last := a.messages[len(a.messages)-1]
	require.Equal(t, RoleAssistant, last.Role)
	require.Equal(t, "plain prose, not a payload", last.Text)
	require.Equal(t, -1, a.open)
	require.Nil(t, a.rend.Current())
}

func TestApplyAssistantTextOnlyClosesWidget(t *testing.T) {
	uri, _ := registerStub(t, widget.ModeSmall)
	a := newTestApp(&fakeBackend{})
	a.openWidgetByURI(uri)

	a.applyReply([]wip.ReplyEntry{{Role: "assistant", Content: `{"uri":"","parameters":[],"text":"all done"}`}})

	require.Equal(t, -1, a.open)
	last := a.messages[len(a.messages)-1]
	require.Equal(t, RoleAssistant, last.Role)
	require.Equal(t, "all done", last.Text)
}

func TestApplyAssistantUnknownWidgetRendersFallback(t *testing.T) {
	a := newTestApp(&fakeBackend{})
	a.applyReply([]wip.ReplyEntry{{Role: "assistant", Content: `{"uri":"wip://no-such","parameters":[],"text":""}`}})

	require.Equal(t, 0, a.open)
	inst := a.rend.Current()
	require.NotNil(t, inst)
	require.True(t, inst.Unknown)
	require.Contains(t, inst.View(40, 5), "unknown widget")
}

func TestUnhandledReplyRoleDegradesToError(t *testing.T) {
	a := newTestApp(&fakeBackend{})
	a.applyReply([]wip.ReplyEntry{{Role: "system", Content: "x"}})
	require.Equal(t, RoleError, a.messages[0].Role)
}

func TestRemoveOpenWidgetRestoresPrevious(t *testing.T) {
	uriA, _ := registerStub(t, widget.ModeSmall)
	uriB, _ := registerStub(t, widget.ModeSmall)
	a := newTestApp(&fakeBackend{})

	a.applyReply([]wip.ReplyEntry{{Role: "assistant", Content: widgetPayload(uriA, "")}})
	a.applyReply([]wip.ReplyEntry{{Role: "assistant", Content: widgetPayload(uriB, "")}})
	require.Equal(t, 1, a.open)
	require.Equal(t, uriB, a.rend.Current().URI)

	a.cursor = 1
	a.removeAt(1)

	require.True(t, a.messages[1].Removed)
	require.Equal(t, 0, a.open)
	require.Equal(t, uriA, a.rend.Current().URI)
}

func TestRemoveLastWidgetClearsPointer(t *testing.T) {
	uri, _ := registerStub(t, widget.ModeSmall)
	a := newTestApp(&fakeBackend{})
	a.applyReply([]wip.ReplyEntry{{Role: "assistant", Content: widgetPayload(uri, "")}})
	require.Equal(t, 0, a.open)

	a.removeAt(0)

	require.Equal(t, -1, a.open)
	require.Nil(t, a.rend.Current())
}

func TestRemoveSkipsNonWidgetMessages(t *testing.T) {
	a := newTestApp(&fakeBackend{})
	a.appendMessage(Message{Role: RoleUser, Text: "keep me"})
	a.removeAt(0)
	require.False(t, a.messages[0].Removed)
}

func TestFullscreenToggleGatedOnMode(t *testing.T) {
	small, _ := registerStub(t, widget.ModeSmall)
	both, _ := registerStub(t, widget.ModeBoth)
	a := newTestApp(&fakeBackend{})

	a.openWidgetByURI(small)
	a.setFullscreen(true)
	require.False(t, a.fullscreen)

	a.openWidgetByURI(both)
	a.setFullscreen(true)
	require.True(t, a.fullscreen)
	a.setFullscreen(false)
	require.False(t, a.fullscreen)
}

func TestIndependentWidgetOpensFullscreen(t *testing.T) {
	uri, _ := registerStub(t, widget.ModeIndependent)
	a := newTestApp(&fakeBackend{})
	a.applyReply([]wip.ReplyEntry{{Role: "assistant", Content: widgetPayload(uri, "")}})
	require.True(t, a.fullscreen)
}

func TestIndependentWidgetEscDismisses(t *testing.T) {
	both, _ := registerStub(t, widget.ModeBoth)
	indep, _ := registerStub(t, widget.ModeIndependent)
	a := newTestApp(&fakeBackend{})

	a.openWidgetByURI(both)
	a.openWidgetByURI(indep)
	require.True(t, a.fullscreen)

	// esc dismisses an independent widget instead of leaving it stranded
	// in an inline frame its mode never allows
	_, _ = a.handleFullscreenKey(tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, a.fullscreen)
	require.True(t, a.messages[1].Removed)
	require.Equal(t, 0, a.open)
}

func TestFavoriteSaveFailureSurfacesStatus(t *testing.T) {
	registerStub(t, widget.ModeSmall)
	fav, err := prefs.LoadFavoritesFrom(filepath.Join(t.TempDir(), "missing-dir", "favorites.json"))
	require.NoError(t, err)
	a := New(context.Background(), &fakeBackend{}, fav)

	a.openPicker()
	_, cmd := a.handlePickerKey(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)

	_, _ = a.Update(cmd())
	require.True(t, a.statusErr)
	require.Contains(t, a.status, "favorites not saved")
}

func TestToolResultPrettyPrintedWhenJSON(t *testing.T) {
	a := newTestApp(&fakeBackend{})
	a.applyReply([]wip.ReplyEntry{
		{Role: "tool", Tool: "t1", Result: `{"a":1}`},
		{Role: "tool", Tool: "t2", Result: "not json"},
	})
	require.Contains(t, a.messages[0].Text, "\"a\": 1")
	require.Equal(t, "not json", a.messages[1].Text)
}

func TestParamUpdateReachesRenderer(t *testing.T) {
	uri, _ := registerStub(t, widget.ModeSmall)
	a := newTestApp(&fakeBackend{})
	a.openWidgetByURI(uri)

	_, cmd := a.Update(paramUpdateMsg{Update: widget.ParamUpdate{URI: uri, Params: widget.Params{"page": 2}}})
	require.NotNil(t, cmd)
	require.Equal(t, 2, a.rend.Current().Params["page"])
}
