package sink

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/afylking/streamid/pkg/format"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	matchStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	missStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// CLIRenderer prints identification events to a terminal stream, styled
// with lipgloss, one line per flow update.
type CLIRenderer struct {
	w io.Writer
}

// NewCLIRenderer constructs a CLIRenderer writing to w.
func NewCLIRenderer(w io.Writer) *CLIRenderer {
	return &CLIRenderer{w: w}
}

// Render writes a single formatted line for ev.
func (c *CLIRenderer) Render(ev Event) {
	flow := fmt.Sprintf("%s %s -> %s", labelStyle.Render("flow"), ev.Src, ev.Dst)
	seg := fmt.Sprintf("%s %s  %s %.2fs",
		labelStyle.Render("segment"), format.Bytes(ev.CapturedSize),
		labelStyle.Render("elapsed"), ev.Elapsed)

	if ev.Best == nil {
		fmt.Fprintf(c.w, "%s  %s  %s\n", flow, seg, missStyle.Render("no match"))
		return
	}

	pos := time.Duration(ev.Best.Position * float64(time.Second)).Round(time.Second)
	match := matchStyle.Render(fmt.Sprintf("%s (%s, @%s)", ev.Best.Title, format.Percentage(ev.Best.Probability*100, 0), pos))
	fmt.Fprintf(c.w, "%s  %s  %s\n", flow, seg, match)
}
