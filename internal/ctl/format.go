// Package ctl implements the client-side commands for trigctl. It talks to
// a running triggerd over HTTP and WebSocket and renders the results to the
// terminal.
package ctl

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	boldStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	blueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	plainStyle  = lipgloss.NewStyle()
)

// colorEnabled reports whether w is a terminal. When output is piped or
// redirected, styling is suppressed.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// printer writes styled lines.
type printer struct {
	out   io.Writer
	color bool
}

func (p printer) paint(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p printer) println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

// header prints a bold section title and a rule beneath it.
func (p printer) header(title string) {
	p.println()
	p.println(p.paint(boldStyle, "  "+title))
	p.println(p.paint(dimStyle, "  "+strings.Repeat("─", 38)))
}

// field prints one "Label: value" row.
func (p printer) field(label, value string) {
	p.printf("  %s %s\n", p.paint(dimStyle, padRight(label+":", 12)), value)
}

// stateStyle picks the style for a daemon state.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "IDLE":
		return greenStyle
	case "PROCESSING":
		return blueStyle
	case "PAUSED":
		return yellowStyle
	case "BOOTING":
		return dimStyle
	default:
		return plainStyle
	}
}

// statusStyle picks the style for a request status code: success green,
// dry run cyan, station vetoes yellow and geometry failures red.
func statusStyle(code int) lipgloss.Style {
	switch {
	case code == 0:
		return greenStyle
	case code == 1:
		return cyanStyle
	case code < 0:
		return yellowStyle
	default:
		return redStyle
	}
}

// availabilityStyle picks the style for a probe answer.
func availabilityStyle(a string) lipgloss.Style {
	switch a {
	case "ok":
		return greenStyle
	case "busy":
		return yellowStyle
	default:
		return redStyle
	}
}

// padRight pads s with spaces to reach the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration renders a duration as a compact human string like
// "2h 14m 8s" or "45s".
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatDegrees renders an angle with one decimal and a degree sign.
func formatDegrees(v float64) string {
	return fmt.Sprintf("%.1f°", v)
}

// indent prefixes every line of a multi-line message.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
