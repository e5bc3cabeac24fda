package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)

	title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	label = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	value = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)
	hint  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true)
	track = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	stateStyles = map[string]lipgloss.Style{
		"idle":    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		"driving": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88")),
		"turning": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		"stopped": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444")),
		"done":    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
	}

	sparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	sparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	sparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

func stateBadge(s string) string {
	st, ok := stateStyles[s]
	if !ok {
		return s
	}
	return st.Render(strings.ToUpper(s))
}

func field(name, v string) string {
	return label.Render(name+" ") + value.Render(v)
}

// sparkline renders the last width values, coloured by their distance from
// target relative to band.
func sparkline(values []float64, target, band float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		c := string(chars[idx])
		off := v - target
		if off < 0 {
			off = -off
		}
		switch {
		case off <= band:
			b.WriteString(sparkHigh.Render(c))
		case off <= 3*band:
			b.WriteString(sparkMid.Render(c))
		default:
			b.WriteString(sparkLow.Render(c))
		}
	}
	return b.String()
}
