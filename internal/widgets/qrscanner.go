package widgets

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/wipchat/internal/widget"
)

// QRScanner is a stand-in for a camera scanner. Enter "scans" the payload
// parameter the agent supplied, which then flows back as updated
// parameters for the next turn's context.
type QRScanner struct {
	set     widget.ParamSetter
	last    widget.Params
	scanned bool
}

func registerQRScanner() {
	widget.Register(widget.Registration{
		Descriptor: widget.Descriptor{
			URI:         QRScannerURI,
			Name:        "QR Scanner",
			Description: "Scan a code and hand its payload to the agent",
			Mode:        widget.ModeIndependent,
			Icon:        func() string { return "▣" },
		},
		New: func() widget.Component { return &QRScanner{} },
	})
}

func (q *QRScanner) Init(params widget.Params, set widget.ParamSetter) tea.Cmd {
	q.set = set
	q.last = params.Clone()
	return nil
}

func (q *QRScanner) ExportContext() any {
	if !q.scanned {
		return nil
	}
	return map[string]any{"scanned": q.last.String("payload")}
}

func (q *QRScanner) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if key.String() != "enter" || q.set == nil {
		return nil
	}
	q.scanned = true
	next := q.last.Clone()
	next["status"] = "scanned"
	set := q.set
	return func() tea.Msg {
		set(next)
		return nil
	}
}

func (q *QRScanner) View(params widget.Params, width, height int) string {
	q.last = params.Clone()
	payload := params.String("payload")
	if payload == "" {
		payload = "(nothing to scan)"
	}
	status := "point and press enter"
	if params.String("status") == "scanned" || q.scanned {
		status = "scanned"
	}
	frame := qrFrameStyle.Render("▞▚▞▚▞\n▚ ▞▚ ▞\n▞▚▞▚▞")
	return frame + "\n" + qrPayloadStyle.Render(payload) + "\n" + qrHintStyle.Render(status)
}

var (
	qrFrameStyle   = lipgloss.NewStyle().Bold(true)
	qrPayloadStyle = lipgloss.NewStyle().Underline(true)
	qrHintStyle    = lipgloss.NewStyle().Faint(true)
)
