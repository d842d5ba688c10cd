package tui

import (
	"sort"
	"strings"

	"github.com/jask/wipchat/internal/widget"
)

// neutralGlyph stands in for missing or misbehaving icon producers.
const neutralGlyph = "▢"

type pickerItem struct {
	ID      string
	Label   string
	Icon    string
	Section string
	Meta    string
	Search  string
}

type pickerAction int

const (
	pickerActionNone pickerAction = iota
	pickerActionMoved
	pickerActionSelected
	pickerActionCancelled
	pickerActionToggled
)

type pickerResult struct {
	Action pickerAction
	Item   pickerItem
}

// picker is the modal widget chooser: a fuzzy-filtered, sectioned list
// with favorites surfaced first.
type picker struct {
	title    string
	items    []pickerItem
	filtered []pickerItem
	query    string
	cursor   int
}

func newPicker(title string, items []pickerItem) *picker {
	p := &picker{title: strings.TrimSpace(title)}
	p.SetItems(items)
	return p
}

func (p *picker) Title() string {
	if p == nil {
		return ""
	}
	return p.title
}

func (p *picker) Query() string {
	if p == nil {
		return ""
	}
	return p.query
}

func (p *picker) Cursor() int {
	if p == nil {
		return 0
	}
	return p.cursor
}

func (p *picker) Items() []pickerItem {
	if p == nil {
		return nil
	}
	return append([]pickerItem(nil), p.filtered...)
}

func (p *picker) SetItems(items []pickerItem) {
	if p == nil {
		return
	}
	p.items = append([]pickerItem(nil), items...)
	p.rebuildFiltered()
}

func (p *picker) SetQuery(q string) {
	if p == nil {
		return
	}
	p.query = q
	p.rebuildFiltered()
}

func (p *picker) CursorUp() {
	if p == nil {
		return
	}
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *picker) CursorDown() {
	if p == nil {
		return
	}
	maxIdx := len(p.filtered) - 1
	if maxIdx < 0 {
		p.cursor = 0
		return
	}
	if p.cursor < maxIdx {
		p.cursor++
	}
}

func (p *picker) CurrentItem() (pickerItem, bool) {
	if p == nil || len(p.filtered) == 0 {
		return pickerItem{}, false
	}
	idx := p.cursor
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.filtered) {
		idx = len(p.filtered) - 1
	}
	return p.filtered[idx], true
}

func (p *picker) HandleKey(keyName string) pickerResult {
	if p == nil {
		return pickerResult{Action: pickerActionNone}
	}
	switch keyName {
	case "up", "ctrl+k":
		before := p.cursor
		p.CursorUp()
		if p.cursor != before {
			return pickerResult{Action: pickerActionMoved}
		}
		return pickerResult{Action: pickerActionNone}
	case "down", "ctrl+j":
		before := p.cursor
		p.CursorDown()
		if p.cursor != before {
			return pickerResult{Action: pickerActionMoved}
		}
		return pickerResult{Action: pickerActionNone}
	case "enter":
		item, ok := p.CurrentItem()
		if !ok {
			return pickerResult{Action: pickerActionNone}
		}
		return pickerResult{Action: pickerActionSelected, Item: item}
	case "esc":
		return pickerResult{Action: pickerActionCancelled}
	case "ctrl+s":
		item, ok := p.CurrentItem()
		if !ok {
			return pickerResult{Action: pickerActionNone}
		}
		return pickerResult{Action: pickerActionToggled, Item: item}
	case "backspace":
		if len(p.query) > 0 {
			p.SetQuery(p.query[:len(p.query)-1])
		}
		return pickerResult{Action: pickerActionNone}
	default:
		if isPrintableASCIIKey(keyName) {
			p.SetQuery(p.query + keyName)
		}
		return pickerResult{Action: pickerActionNone}
	}
}

func (p *picker) SectionOrder() []string {
	if p == nil {
		return nil
	}
	seen := make(map[string]bool, len(p.items))
	out := make([]string, 0, len(p.items))
	for _, item := range p.items {
		if seen[item.Section] {
			continue
		}
		seen[item.Section] = true
		out = append(out, item.Section)
	}
	return out
}

type scoredPickerItem struct {
	item  pickerItem
	score int
	index int
}

func (p *picker) rebuildFiltered() {
	if p == nil {
		return
	}
	q := strings.TrimSpace(p.query)
	bySection := make(map[string][]scoredPickerItem)
	orderedSections := p.SectionOrder()
	for idx, item := range p.items {
		search := strings.TrimSpace(item.Search)
		if search == "" {
			search = item.Label
		}
		matched, score := fuzzyMatchScore(search, q)
		if !matched {
			continue
		}
		bySection[item.Section] = append(bySection[item.Section], scoredPickerItem{
			item:  item,
			score: score,
			index: idx,
		})
	}

	out := make([]pickerItem, 0, len(p.items))
	for _, section := range orderedSections {
		scored := bySection[section]
		if len(scored) == 0 {
			continue
		}
		sort.Slice(scored, func(i, j int) bool {
			if scored[i].score != scored[j].score {
				return scored[i].score > scored[j].score
			}
			return scored[i].index < scored[j].index
		})
		for _, row := range scored {
			out = append(out, row.item)
		}
	}
	p.filtered = out

	maxIdx := len(p.filtered) - 1
	if maxIdx < 0 {
		p.cursor = 0
	} else if p.cursor > maxIdx {
		p.cursor = maxIdx
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func fuzzyMatchScore(label, query string) (bool, int) {
	if query == "" {
		return true, 0
	}
	labelLower := strings.ToLower(label)
	queryLower := strings.ToLower(query)

	matchIdx := make([]int, 0, len(queryLower))
	searchFrom := 0
	for i := 0; i < len(queryLower); i++ {
		ch := queryLower[i]
		found := false
		for j := searchFrom; j < len(labelLower); j++ {
			if labelLower[j] == ch {
				matchIdx = append(matchIdx, j)
				searchFrom = j + 1
				found = true
				break
			}
		}
		if !found {
			return false, 0
		}
	}

	score := len(queryLower)
	if len(matchIdx) > 0 && matchIdx[0] == 0 {
		score += 10
	}
	for i := 1; i < len(matchIdx); i++ {
		if matchIdx[i] == matchIdx[i-1]+1 {
			score += 3
		}
	}
	if strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(query)) {
		score += 20
	}
	return true, score
}

func isPrintableASCIIKey(keyName string) bool {
	return len(keyName) == 1 && keyName[0] >= 32 && keyName[0] < 127
}

// safeIcon resolves a descriptor's picker glyph. Missing producers, empty
// output and panicking producers all collapse to the neutral glyph so one
// bad widget cannot take the picker down.
func safeIcon(d widget.Descriptor) (icon string) {
	defer func() {
		if recover() != nil {
			icon = neutralGlyph
		}
	}()
	if d.Icon == nil {
		return neutralGlyph
	}
	icon = d.Icon()
	if icon == "" {
		icon = neutralGlyph
	}
	return icon
}

// displayName and displayDescription apply the listing precedence: what
// the widget declares wins, falling back to the identifier or nothing.
func displayName(d widget.Descriptor) string {
	if d.Name != "" {
		return d.Name
	}
	return d.URI
}

func displayDescription(d widget.Descriptor) string {
	return d.Description
}

// buildPickerItems lists every registered widget, favorites first. Within
// each section the registry's stable URI order is kept until the query
// re-scores it.
func buildPickerItems(isFavorite func(uri string) bool) []pickerItem {
	regs := widget.All()
	fav := make([]pickerItem, 0, len(regs))
	rest := make([]pickerItem, 0, len(regs))
	for _, r := range regs {
		item := pickerItem{
			ID:      r.Descriptor.URI,
			Label:   displayName(r.Descriptor),
			Icon:    safeIcon(r.Descriptor),
			Meta:    displayDescription(r.Descriptor),
			Search:  displayName(r.Descriptor) + " " + r.Descriptor.URI + " " + r.Descriptor.Description,
			Section: "Widgets",
		}
		if isFavorite != nil && isFavorite(r.Descriptor.URI) {
			item.Section = "Favorites"
			fav = append(fav, item)
			continue
		}
		rest = append(rest, item)
	}
	return append(fav, rest...)
}
