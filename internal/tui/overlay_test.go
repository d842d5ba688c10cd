package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderPopupCentersCardOverBase(t *testing.T) {
	t.Parallel()
	width, height := 30, 11
	row := strings.Repeat("b", width)
	base := strings.TrimSuffix(strings.Repeat(row+"\n", height), "\n")

	out := renderPopup(base, "hello", width, height)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, height)

	// card is 5 rows tall (border + padding), so the top rows stay base
	require.Equal(t, row, lines[0])
	require.Equal(t, row, lines[height-1])

	require.Contains(t, out, "hello")
	// base shows through left and right of the card on the content row
	content := lines[height/2]
	require.True(t, strings.HasPrefix(content, "bbb"), content)
	require.True(t, strings.HasSuffix(content, "bbb"), content)
}

func TestRenderPopupShortBaseIsPadded(t *testing.T) {
	t.Parallel()
	out := renderPopup("x", "popup", 20, 9)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 9)
	for _, l := range lines {
		require.Len(t, []rune(l), 20)
	}
}

func TestRenderPopupZeroCanvas(t *testing.T) {
	t.Parallel()
	require.Empty(t, renderPopup("base", "popup", 0, 0))
}
