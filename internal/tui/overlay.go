package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var popupStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)

// renderPopup centers a bordered card over the base canvas. Only the
// cells the card covers are replaced; the base shows through everywhere
// else. Width and height are terminal cells, not bytes.
func renderPopup(base, popup string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	cardLines := strings.Split(popupStyle.Render(popup), "\n")
	cardWidth := 0
	for _, l := range cardLines {
		if w := ansi.StringWidth(l); w > cardWidth {
			cardWidth = w
		}
	}
	if cardWidth > width {
		cardWidth = width
	}
	top := max(0, (height-len(cardLines))/2)
	left := max(0, (width-cardWidth)/2)

	baseLines := splitToLines(base, height)
	out := make([]string, height)
	for i := range out {
		line := padRightANSI(baseLines[i], width)
		j := i - top
		if j < 0 || j >= len(cardLines) {
			out[i] = line
			continue
		}
		segment := padRightANSI(ansi.Truncate(cardLines[j], cardWidth, ""), cardWidth)
		spliced := ansi.Truncate(line, left, "") + segment + dropColumns(line, left+cardWidth)
		out[i] = padRightANSI(spliced, width)
	}
	return strings.Join(out, "\n")
}

// splitToLines cuts or pads s to exactly height lines.
func splitToLines(s string, height int) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}

// dropColumns removes the first cols display columns, ANSI-aware.
func dropColumns(s string, cols int) string {
	if cols <= 0 {
		return s
	}
	truncated := ansi.Truncate(s, cols, "")
	return strings.TrimPrefix(s, truncated)
}

func padRightANSI(s string, width int) string {
	s = ansi.Truncate(s, width, "")
	w := ansi.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
