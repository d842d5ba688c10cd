// Package widgets holds the built-in widget set: a calendar, a stock
// level inspector, an image carousel and a QR scanner. Each one is an
// ordinary widget.Component wired up through RegisterAll.
package widgets

import (
	"context"
	"encoding/json"
)

// Widget identifiers. These are what the agent addresses replies to.
const (
	CalendarURI  = "wip://calendar"
	StockURI     = "wip://stock-level-inspector"
	CarouselURI  = "wip://image-carousel"
	QRScannerURI = "wip://qr-code-scanner"
)

// ToolCaller lets a widget invoke backend tools on its own, outside a
// chat turn.
type ToolCaller interface {
	CallTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error)
}

// RegisterAll places the built-in set in the widget registry. tools may
// be nil; widgets then skip their self-loading behavior.
func RegisterAll(tools ToolCaller) {
	registerCalendar(tools)
	registerStock(tools)
	registerCarousel()
	registerQRScanner()
}
