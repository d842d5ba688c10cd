package widgets

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/wipchat/internal/widget"
)

// Carousel pages through a list of images, shown as captioned cards. The
// terminal cannot draw the images themselves, so the card carries the
// caption and source URL.
type Carousel struct {
	set   widget.ParamSetter
	last  widget.Params
	index int
}

func registerCarousel() {
	widget.Register(widget.Registration{
		Descriptor: widget.Descriptor{
			URI:         CarouselURI,
			Name:        "Image Carousel",
			Description: "Flip through a set of product images",
			Mode:        widget.ModeBoth,
			Icon:        func() string { return "🖼" },
		},
		New: func() widget.Component { return &Carousel{} },
	})
}

func (c *Carousel) Init(params widget.Params, set widget.ParamSetter) tea.Cmd {
	c.set = set
	c.last = params.Clone()
	return nil
}

func (c *Carousel) ImportContext(previous widget.Params) {
	switch v := previous["index"].(type) {
	case int:
		c.index = v
	case float64:
		c.index = int(v)
	}
}

func (c *Carousel) ExportContext() any {
	items := carouselItems(c.last)
	if len(items) == 0 {
		return nil
	}
	i := c.clampIndex(len(items))
	return map[string]any{"visible_image": items[i].Caption, "index": i}
}

func (c *Carousel) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	n := len(carouselItems(c.last))
	if n == 0 {
		return nil
	}
	switch key.String() {
	case "l", "right":
		if c.index < n-1 {
			c.index++
			return c.pushIndex()
		}
	case "h", "left":
		if c.index > 0 {
			c.index--
			return c.pushIndex()
		}
	}
	return nil
}

// pushIndex hands the new position back through the param setter, so the
// renderer remembers it and a later re-open resumes at the same image.
func (c *Carousel) pushIndex() tea.Cmd {
	if c.set == nil {
		return nil
	}
	next := c.last.Clone()
	next["index"] = c.index
	set := c.set
	return func() tea.Msg {
		set(next)
		return nil
	}
}

func (c *Carousel) View(params widget.Params, width, height int) string {
	c.last = params.Clone()
	items := carouselItems(params)
	if len(items) == 0 {
		return carEmptyStyle.Render("no images")
	}
	i := c.clampIndex(len(items))
	c.index = i
	item := items[i]

	card := carCardStyle.Width(max(16, width-4)).Render(
		carCaptionStyle.Render(item.Caption) + "\n" + carURLStyle.Render(item.URL),
	)
	footer := fmt.Sprintf("%d of %d  ", i+1, len(items)) + carHintStyle.Render("[h/l] flip")
	return card + "\n" + footer
}

func (c *Carousel) clampIndex(n int) int {
	i := c.index
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

type carouselItem struct {
	Caption string
	URL     string
}

func carouselItems(params widget.Params) []carouselItem {
	raw, ok := params["images"].([]any)
	if !ok {
		return nil
	}
	items := make([]carouselItem, 0, len(raw))
	for _, e := range raw {
		switch v := e.(type) {
		case string:
			items = append(items, carouselItem{Caption: v, URL: v})
		case map[string]any:
			item := carouselItem{}
			if s, ok := v["caption"].(string); ok {
				item.Caption = s
			}
			if s, ok := v["url"].(string); ok {
				item.URL = s
			}
			if item.Caption == "" {
				item.Caption = item.URL
			}
			if item.Caption == "" {
				continue
			}
			items = append(items, item)
		}
	}
	return items
}

var (
	carCardStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1, 2).Align(lipgloss.Center)
	carCaptionStyle = lipgloss.NewStyle().Bold(true)
	carURLStyle     = lipgloss.NewStyle().Faint(true)
	carEmptyStyle   = lipgloss.NewStyle().Faint(true)
	carHintStyle    = lipgloss.NewStyle().Faint(true)
)
