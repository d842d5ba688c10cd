package widgets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/jask/wipchat/internal/widget"
)

// StockInspector shows per-size stock for one SKU. When the agent sends a
// SKU without level data the widget fetches it through get_stock_for_sku.
type StockInspector struct {
	tools  ToolCaller
	set    widget.ParamSetter
	last   widget.Params
	cursor int
}

func registerStock(tools ToolCaller) {
	widget.Register(widget.Registration{
		Descriptor: widget.Descriptor{
			URI:         StockURI,
			Name:        "Stock Inspector",
			Description: "Per-size stock levels for a product",
			Mode:        widget.ModeSmall,
			Icon:        func() string { return "📦" },
		},
		New: func() widget.Component { return &StockInspector{tools: tools} },
	})
}

func (s *StockInspector) Init(params widget.Params, set widget.ParamSetter) tea.Cmd {
	s.set = set
	s.last = params.Clone()
	sku := params.String("sku")
	if _, ok := params["sizes"]; !ok && sku != "" && s.tools != nil {
		return s.loadCmd(sku)
	}
	return nil
}

// loadCmd snapshots the current params and setter up front; the closure
// runs on a command goroutine and must not read fields View reassigns.
func (s *StockInspector) loadCmd(sku string) tea.Cmd {
	next := s.last.Clone()
	set := s.set
	tools := s.tools
	return func() tea.Msg {
		raw, err := tools.CallTool(context.Background(), "get_stock_for_sku", map[string]any{"sku": sku})
		if err != nil {
			log.Warn().Err(err).Str("sku", sku).Msg("stock: lookup failed")
			return nil
		}
		var out struct {
			Sizes []map[string]any `json:"sizes"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			log.Warn().Err(err).Msg("stock: malformed lookup payload")
			return nil
		}
		next["sku"] = sku
		sizes := make([]any, 0, len(out.Sizes))
		for _, row := range out.Sizes {
			sizes = append(sizes, row)
		}
		next["sizes"] = sizes
		if set != nil {
			set(next)
		}
		return nil
	}
}

func (s *StockInspector) ExportContext() any {
	out := map[string]any{}
	if sku := s.last.String("sku"); sku != "" {
		out["sku"] = sku
	}
	rows := stockRows(s.last)
	if s.cursor >= 0 && s.cursor < len(rows) {
		out["selected_size"] = rows[s.cursor].Size
	}
	return out
}

func (s *StockInspector) SuggestActions() []string {
	return []string{"show me similar products", "is this in stock anywhere else?"}
}

func (s *StockInspector) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	rows := stockRows(s.last)
	switch key.String() {
	case "k", "up":
		if s.cursor > 0 {
			s.cursor--
		}
	case "j", "down":
		if s.cursor < len(rows)-1 {
			s.cursor++
		}
	}
	return nil
}

func (s *StockInspector) View(params widget.Params, width, height int) string {
	s.last = params.Clone()
	rows := stockRows(params)
	if s.cursor >= len(rows) {
		s.cursor = max(0, len(rows)-1)
	}

	var b strings.Builder
	sku := params.String("sku")
	if sku == "" {
		sku = "(no product)"
	}
	b.WriteString(stockTitleStyle.Render(sku) + "\n")
	if len(rows) == 0 {
		b.WriteString(stockEmptyStyle.Render("no stock data"))
		return b.String()
	}
	for i, row := range rows {
		marker := "  "
		if i == s.cursor {
			marker = "▶ "
		}
		level := fmt.Sprintf("%d", row.Stock)
		if row.Stock == 0 {
			level = stockOutStyle.Render("out")
		}
		b.WriteString(fmt.Sprintf("%s%-6s %s\n", marker, row.Size, level))
	}
	return strings.TrimRight(b.String(), "\n")
}

type stockRow struct {
	Size  string
	Stock int
}

func stockRows(params widget.Params) []stockRow {
	raw, ok := params["sizes"].([]any)
	if !ok {
		return nil
	}
	rows := make([]stockRow, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		row := stockRow{}
		if s, ok := m["size"].(string); ok {
			row.Size = s
		}
		switch v := m["stock"].(type) {
		case float64:
			row.Stock = int(v)
		case int:
			row.Stock = v
		}
		if row.Size == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

var (
	stockTitleStyle = lipgloss.NewStyle().Bold(true)
	stockEmptyStyle = lipgloss.NewStyle().Faint(true)
	stockOutStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)
