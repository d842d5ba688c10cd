package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/wipchat/internal/widget"
)

// rows taken by header, status, input and help around the transcript.
const chromeHeight = 4

const widgetInlineHeight = 12

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	userStyle      = lipgloss.NewStyle().Bold(true)
	toolStyle      = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Faint(true)
	statusErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
	closedStyle    = lipgloss.NewStyle().Faint(true)
	suggestStyle   = lipgloss.NewStyle().Italic(true).Faint(true)
	widgetTitle    = lipgloss.NewStyle().Bold(true)
	widgetFrame    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	pickerTitle    = lipgloss.NewStyle().Bold(true).Underline(true)
	sectionStyle   = lipgloss.NewStyle().Faint(true)
)

func (a *App) View() string {
	if !a.ready {
		return "starting..."
	}
	if a.fullscreen && a.open >= 0 {
		return a.renderFullscreen()
	}
	base := strings.Join([]string{
		a.renderHeader(),
		a.vp.View(),
		a.renderStatus(),
		a.input.View(),
		a.renderHelp(),
	}, "\n")
	if a.pick != nil {
		return renderPopup(base, a.renderPicker(), a.width, a.height)
	}
	return base
}

func (a *App) renderHeader() string {
	title := "wipchat"
	if a.session != "" {
		title += "  " + statusStyle.Render("session "+a.session)
	}
	return headerStyle.Render(title)
}

func (a *App) renderStatus() string {
	if a.status == "" {
		return ""
	}
	if a.phase != phaseIdle {
		return statusStyle.Render(a.spin.View() + a.status)
	}
	if a.statusErr {
		return statusErrStyle.Render(a.status)
	}
	return statusStyle.Render(a.status)
}

func (a *App) renderHelp() string {
	switch {
	case a.pick != nil:
		return helpStyle.Render("[enter] open  [ctrl+s] star  [esc] close")
	case a.focus == focusLog:
		return helpStyle.Render("[j/k] move  [x] remove widget  [f/s] grow/shrink  [ctrl+p] widgets  [esc] input")
	default:
		return helpStyle.Render("[enter] send  [ctrl+p] widgets  [esc] browse log  [ctrl+c] quit")
	}
}

func (a *App) renderFullscreen() string {
	inst := a.rend.Current()
	if inst == nil {
		return ""
	}
	title := widgetTitle.Render(displayName(inst.Descriptor))
	body := inst.View(a.width, max(1, a.height-2))
	help := helpStyle.Render("[esc] back")
	if inst.Descriptor.Mode == widget.ModeIndependent {
		help = helpStyle.Render("[esc] close")
	}
	return strings.Join([]string{title, body, help}, "\n")
}

// syncViewport rebuilds the transcript content. Called after anything that
// changes what the log shows.
func (a *App) syncViewport(toBottom bool) {
	if !a.ready {
		return
	}
	a.vp.SetContent(a.renderTranscript())
	if toBottom {
		a.vp.GotoBottom()
	}
}

func (a *App) renderTranscript() string {
	if len(a.messages) == 0 {
		return statusStyle.Render("no messages yet")
	}
	var parts []string
	for i := range a.messages {
		if a.messages[i].Removed {
			continue
		}
		parts = append(parts, a.renderMessage(i))
	}
	return strings.Join(parts, "\n")
}

func (a *App) renderMessage(i int) string {
	m := a.messages[i]
	marker := "  "
	if a.focus == focusLog && i == a.cursor {
		marker = cursorStyle.Render("▶ ")
	}
	switch m.Role {
	case RoleUser:
		return marker + userStyle.Render("you") + "  " + m.Text
	case RoleAssistant:
		return marker + "assistant\n" + indent(a.renderMarkdown(m.Text), "  ")
	case RoleToolCall:
		return marker + toolStyle.Render("tool "+m.Tool) + "\n" + indent(toolStyle.Render(m.Text), "  ")
	case RoleError:
		return marker + errorStyle.Render("error: "+m.Text)
	case RoleWidget:
		return marker + a.renderWidgetMessage(i)
	default:
		return marker + m.Text
	}
}

// renderWidgetMessage shows the live instance only at the open pointer;
// every other widget message is a collapsed line, so one instance backs
// at most one live rendering.
func (a *App) renderWidgetMessage(i int) string {
	m := a.messages[i]
	if i != a.open {
		return closedStyle.Render(neutralGlyph + " " + m.URI + " (closed)")
	}
	inst := a.rend.Current()
	if inst == nil {
		return closedStyle.Render(neutralGlyph + " " + m.URI)
	}
	innerWidth := max(20, a.width-6)
	body := inst.View(innerWidth, widgetInlineHeight)
	title := widgetTitle.Render(displayName(inst.Descriptor))
	out := widgetFrame.Width(innerWidth).Render(title + "\n" + body)
	if actions := inst.SuggestActions(); len(actions) > 0 {
		out += "\n" + suggestStyle.Render("try: "+strings.Join(actions, " · "))
	}
	return out
}

func (a *App) renderMarkdown(text string) string {
	width := max(20, a.width-8)
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderPicker() string {
	out := pickerTitle.Render(a.pick.Title()) + "\n"
	out += "filter: " + a.pick.Query() + "\n\n"
	items := a.pick.Items()
	if len(items) == 0 {
		out += statusStyle.Render("(no matching widgets)")
		return out
	}
	section := ""
	row := 0
	for _, item := range items {
		if item.Section != section {
			section = item.Section
			out += sectionStyle.Render(section) + "\n"
		}
		marker := "  "
		if row == a.pick.Cursor() {
			marker = cursorStyle.Render("▶ ")
		}
		line := fmt.Sprintf("%s%s %s", marker, item.Icon, item.Label)
		if item.Meta != "" {
			line += "  " + statusStyle.Render(item.Meta)
		}
		out += line + "\n"
		row++
	}
	return strings.TrimRight(out, "\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
