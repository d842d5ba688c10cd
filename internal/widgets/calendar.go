package widgets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/jask/wipchat/internal/widget"
)

const dateLayout = "2006-01-02"

// Calendar shows the appointments of one day and lets the user browse
// adjacent days. Day changes reload through the read_daily_calendar tool.
type Calendar struct {
	tools    ToolCaller
	set      widget.ParamSetter
	last     widget.Params
	prevDate string
	cursor   int
}

func registerCalendar(tools ToolCaller) {
	widget.Register(widget.Registration{
		Descriptor: widget.Descriptor{
			URI:         CalendarURI,
			Name:        "Calendar",
			Description: "Browse and review appointments day by day",
			Mode:        widget.ModeBoth,
			Icon:        func() string { return "📅" },
		},
		New: func() widget.Component { return &Calendar{tools: tools} },
	})
}

func (c *Calendar) Init(params widget.Params, set widget.ParamSetter) tea.Cmd {
	c.set = set
	c.last = params.Clone()
	date := params.String("date")
	if date == "" {
		date = c.prevDate
	}
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if _, ok := params["events"]; !ok && c.tools != nil {
		return c.loadCmd(date)
	}
	return nil
}

func (c *Calendar) ImportContext(previous widget.Params) {
	c.prevDate = previous.String("date")
}

func (c *Calendar) ExportContext() any {
	out := map[string]any{}
	if d := c.last.String("date"); d != "" {
		out["date"] = d
	}
	rows := calendarRows(c.last)
	if c.cursor >= 0 && c.cursor < len(rows) {
		out["selected_event"] = rows[c.cursor].Title
	}
	return out
}

func (c *Calendar) SuggestActions() []string {
	return []string{
		"book an appointment tomorrow at 9",
		"what does next week look like?",
	}
}

func (c *Calendar) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	rows := calendarRows(c.last)
	switch key.String() {
	case "k", "up":
		if c.cursor > 0 {
			c.cursor--
		}
	case "j", "down":
		if c.cursor < len(rows)-1 {
			c.cursor++
		}
	case "n", "right":
		return c.shiftDay(1)
	case "p", "left":
		return c.shiftDay(-1)
	}
	return nil
}

func (c *Calendar) shiftDay(days int) tea.Cmd {
	if c.tools == nil {
		return nil
	}
	cur, err := time.Parse(dateLayout, c.last.String("date"))
	if err != nil {
		cur = time.Now()
	}
	c.cursor = 0
	return c.loadCmd(cur.AddDate(0, 0, days).Format(dateLayout))
}

// loadCmd snapshots the current params and setter up front: the returned
// closure runs on a command goroutine while View keeps reassigning c.last
// on the UI goroutine, so it must only touch its own copy.
func (c *Calendar) loadCmd(date string) tea.Cmd {
	next := c.last.Clone()
	set := c.set
	tools := c.tools
	return func() tea.Msg {
		raw, err := tools.CallTool(context.Background(), "read_daily_calendar", map[string]any{"date": date})
		if err != nil {
			log.Warn().Err(err).Str("date", date).Msg("calendar: loading events failed")
			return nil
		}
		var out struct {
			Events []map[string]any `json:"events"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			log.Warn().Err(err).Msg("calendar: malformed events payload")
			return nil
		}
		next["date"] = date
		events := make([]any, 0, len(out.Events))
		for _, e := range out.Events {
			events = append(events, e)
		}
		next["events"] = events
		if set != nil {
			set(next)
		}
		return nil
	}
}

func (c *Calendar) View(params widget.Params, width, height int) string {
	c.last = params.Clone()
	date := params.String("date")
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	rows := calendarRows(params)
	if c.cursor >= len(rows) {
		c.cursor = max(0, len(rows)-1)
	}

	var b strings.Builder
	b.WriteString(calTitleStyle.Render(date) + "\n")
	if len(rows) == 0 {
		b.WriteString(calEmptyStyle.Render("no appointments") + "\n")
	}
	for i, row := range rows {
		marker := "  "
		if i == c.cursor {
			marker = "▶ "
		}
		b.WriteString(fmt.Sprintf("%s%s  %s\n", marker, row.Time, row.Title))
	}
	b.WriteString(calHintStyle.Render("[p/n] day  [j/k] event"))
	return strings.TrimRight(b.String(), "\n")
}

type calendarRow struct {
	Time  string
	Title string
}

func calendarRows(params widget.Params) []calendarRow {
	raw, ok := params["events"].([]any)
	if !ok {
		return nil
	}
	rows := make([]calendarRow, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		row := calendarRow{}
		if s, ok := m["time"].(string); ok {
			row.Time = s
		}
		if s, ok := m["title"].(string); ok {
			row.Title = s
		}
		if row.Time == "" && row.Title == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

var (
	calTitleStyle = lipgloss.NewStyle().Bold(true)
	calEmptyStyle = lipgloss.NewStyle().Faint(true)
	calHintStyle  = lipgloss.NewStyle().Faint(true)
)
