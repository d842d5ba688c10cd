package widgets

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/wipchat/internal/widget"
)

type fakeTools struct {
	lastTool string
	lastArgs map[string]any
	result   string
	err      error
	calls    int
}

func (f *fakeTools) CallTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	f.calls++
	f.lastTool = tool
	f.lastArgs = args
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.result), nil
}

func keyMsg(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func TestRegisterAllResolvesEveryURI(t *testing.T) {
	RegisterAll(nil)
	for _, uri := range []string{CalendarURI, StockURI, CarouselURI, QRScannerURI} {
		reg, ok := widget.Resolve(uri)
		require.True(t, ok, uri)
		require.NotNil(t, reg.New())
		require.NotEmpty(t, reg.Descriptor.Name)
	}
}

func TestCalendarInitLoadsEventsThroughTool(t *testing.T) {
	tools := &fakeTools{result: `{"events":[{"time":"09:00","title":"standup"},{"time":"13:00","title":"dentist"}]}`}
	cal := &Calendar{tools: tools}

	var got widget.Params
	cmd := cal.Init(widget.Params{"date": "2026-08-31"}, func(p widget.Params) { got = p })
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, "read_daily_calendar", tools.lastTool)
	require.Equal(t, "2026-08-31", tools.lastArgs["date"])
	require.Equal(t, "2026-08-31", got.String("date"))
	rows := calendarRows(got)
	require.Len(t, rows, 2)
	require.Equal(t, "standup", rows[0].Title)
}

func TestCalendarInitSkipsLoadWhenEventsProvided(t *testing.T) {
	tools := &fakeTools{}
	cal := &Calendar{tools: tools}
	cmd := cal.Init(widget.Params{"date": "2026-08-31", "events": []any{}}, func(widget.Params) {})
	require.Nil(t, cmd)
	require.Zero(t, tools.calls)
}

func TestCalendarDayNavigationReloads(t *testing.T) {
	tools := &fakeTools{result: `{"events":[]}`}
	cal := &Calendar{tools: tools}
	var got widget.Params
	cal.Init(widget.Params{"date": "2026-08-31", "events": []any{}}, func(p widget.Params) { got = p })
	cal.View(widget.Params{"date": "2026-08-31", "events": []any{}}, 40, 10)

	cmd := cal.Update(keyMsg("n"))
	require.NotNil(t, cmd)
	cmd()
	require.Equal(t, "2026-09-01", got.String("date"))

	cal.View(got, 40, 10)
	cmd = cal.Update(keyMsg("p"))
	require.NotNil(t, cmd)
	cmd()
	require.Equal(t, "2026-08-31", got.String("date"))
}

func TestCalendarLoadSafeDuringRedraw(t *testing.T) {
	tools := &fakeTools{result: `{"events":[]}`}
	cal := &Calendar{tools: tools}
	params := widget.Params{"date": "2026-08-31"}

	cmd := cal.Init(params, func(widget.Params) {})
	require.NotNil(t, cmd)

	// the load closure runs off the UI goroutine while View keeps
	// redrawing; both must be able to proceed independently
	done := make(chan struct{})
	go func() {
		cmd()
		close(done)
	}()
	for i := 0; i < 100; i++ {
		cal.View(params, 40, 10)
	}
	<-done
	require.Equal(t, 1, tools.calls)
}

func TestCalendarExportContext(t *testing.T) {
	cal := &Calendar{}
	cal.View(widget.Params{
		"date":   "2026-08-31",
		"events": []any{map[string]any{"time": "09:00", "title": "standup"}},
	}, 40, 10)

	out, ok := cal.ExportContext().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "2026-08-31", out["date"])
	require.Equal(t, "standup", out["selected_event"])
}

func TestCalendarLoadFailureKeepsQuiet(t *testing.T) {
	tools := &fakeTools{err: errors.New("backend down")}
	cal := &Calendar{tools: tools}
	called := false
	cmd := cal.Init(widget.Params{"date": "2026-08-31"}, func(widget.Params) { called = true })
	require.NotNil(t, cmd)
	require.Nil(t, cmd())
	require.False(t, called)
}

func TestStockInitLoadsSizes(t *testing.T) {
	tools := &fakeTools{result: `{"sizes":[{"size":"M","stock":4},{"size":"L","stock":0}]}`}
	s := &StockInspector{tools: tools}

	var got widget.Params
	cmd := s.Init(widget.Params{"sku": "SKU-1"}, func(p widget.Params) { got = p })
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, "get_stock_for_sku", tools.lastTool)
	rows := stockRows(got)
	require.Len(t, rows, 2)
	require.Equal(t, 0, rows[1].Stock)
}

func TestStockLoadSafeDuringRedraw(t *testing.T) {
	tools := &fakeTools{result: `{"sizes":[{"size":"M","stock":4}]}`}
	s := &StockInspector{tools: tools}
	params := widget.Params{"sku": "SKU-1"}

	cmd := s.Init(params, func(widget.Params) {})
	require.NotNil(t, cmd)

	done := make(chan struct{})
	go func() {
		cmd()
		close(done)
	}()
	for i := 0; i < 100; i++ {
		s.View(params, 40, 10)
	}
	<-done
	require.Equal(t, 1, tools.calls)
}

func TestStockSelectionExported(t *testing.T) {
	s := &StockInspector{}
	params := widget.Params{
		"sku":   "SKU-1",
		"sizes": []any{map[string]any{"size": "M", "stock": float64(4)}, map[string]any{"size": "L", "stock": float64(1)}},
	}
	s.View(params, 40, 10)
	s.Update(keyMsg("j"))

	out, ok := s.ExportContext().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "SKU-1", out["sku"])
	require.Equal(t, "L", out["selected_size"])
}

func TestCarouselNavigationAndContext(t *testing.T) {
	c := &Carousel{}
	params := widget.Params{"images": []any{"one.png", "two.png", "three.png"}}

	c.View(params, 40, 10)
	c.Update(keyMsg("l"))
	c.Update(keyMsg("l"))
	c.Update(keyMsg("l")) // clamped at the end
	c.View(params, 40, 10)

	out, ok := c.ExportContext().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "three.png", out["visible_image"])
	require.Equal(t, 2, out["index"])
}

func TestCarouselNavigationPushesIndexThroughSetter(t *testing.T) {
	c := &Carousel{}
	var got widget.Params
	c.Init(widget.Params{"images": []any{"a", "b", "c"}}, func(p widget.Params) { got = p })
	c.View(widget.Params{"images": []any{"a", "b", "c"}}, 40, 10)

	cmd := c.Update(keyMsg("l"))
	require.NotNil(t, cmd)
	cmd()
	require.Equal(t, 1, got["index"])

	// a fresh instance picks the position back up from those params
	next := &Carousel{}
	next.ImportContext(got)
	next.View(got, 40, 10)
	out := next.ExportContext().(map[string]any)
	require.Equal(t, 1, out["index"])
}

func TestCarouselImportRestoresIndex(t *testing.T) {
	c := &Carousel{}
	c.ImportContext(widget.Params{"index": float64(1)})
	c.View(widget.Params{"images": []any{"a", "b"}}, 40, 10)
	out := c.ExportContext().(map[string]any)
	require.Equal(t, 1, out["index"])
}

func TestCarouselEmpty(t *testing.T) {
	c := &Carousel{}
	require.Contains(t, c.View(widget.Params{}, 40, 10), "no images")
	require.Nil(t, c.ExportContext())
}

func TestQRScanFlowsBackAsParams(t *testing.T) {
	q := &QRScanner{}
	var got widget.Params
	q.Init(widget.Params{"payload": "https://example.test/ticket"}, func(p widget.Params) { got = p })
	q.View(widget.Params{"payload": "https://example.test/ticket"}, 40, 10)

	require.Nil(t, q.ExportContext())

	cmd := q.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, "scanned", got.String("status"))
	out := q.ExportContext().(map[string]any)
	require.Equal(t, "https://example.test/ticket", out["scanned"])
}
