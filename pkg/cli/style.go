package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/secondary text color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Label  lipgloss.Style
	Value  lipgloss.Style
	Dim    lipgloss.Style
	Filled lipgloss.Style
	Empty  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Value:  lipgloss.NewStyle().Bold(true),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
		Filled: lipgloss.NewStyle().Foreground(t.Primary),
		Empty:  lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// progressBarWidth is the character width of the bar between the brackets.
const progressBarWidth = 30

// ProgressLine renders a single-line progress display:
//
//	[██████████░░░░░░░░░░] 33% 3,300 / 10,000
//
// Percent can exceed 100 on a keyspace that grew after the total was
// snapshotted; the bar caps at full while the number reports the real value.
func (s Styles) ProgressLine(exported, total int64, percent int) string {
	fill := percent
	if fill > 100 {
		fill = 100
	}
	if fill < 0 {
		fill = 0
	}
	filled := progressBarWidth * fill / 100

	var bar strings.Builder
	bar.WriteString(s.Filled.Render(strings.Repeat("█", filled)))
	bar.WriteString(s.Empty.Render(strings.Repeat("░", progressBarWidth-filled)))

	counts := fmt.Sprintf("%s / %s", FormatCount(exported), FormatCount(total))
	return fmt.Sprintf("[%s] %s %s",
		bar.String(),
		s.Value.Render(fmt.Sprintf("%d%%", percent)),
		s.Dim.Render(counts))
}

// Table renders rows as an aligned two-space-separated table with a styled
// header. Columns size to their widest cell.
func (s Styles) Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range header {
		b.WriteString(s.Label.Render(pad(h, widths[i])))
		if i < len(header)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			b.WriteString(pad(cell, widths[i]))
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// pad right-pads s with spaces to the given display width.
func pad(s string, width int) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
