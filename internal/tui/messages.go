package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/wipchat/internal/widget"
	"github.com/jask/wipchat/internal/wip"
)

type sessionMsg struct {
	ID string
}

type contextInjectedMsg struct {
	Err error
}

type replyMsg struct {
	Entries []wip.ReplyEntry
	Err     error
}

type paramUpdateMsg struct {
	Update widget.ParamUpdate
}

type statusMsg struct {
	Text  string
	IsErr bool
}

func statusCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{Text: text, IsErr: isErr} }
}
