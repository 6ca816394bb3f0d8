package components

import (
	"fmt"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// MatchBar renders how many dataset rows a selection kept, as a bar with
// the "matched / total" counts beside it.
func MatchBar(matched, total, barWidth int) string {
	t := theme.Active

	pct := 0.0
	if total > 0 {
		pct = float64(matched) / float64(total)
	}
	pct = min(max(pct, 0), 1)

	bar := progress.New(
		progress.WithSolidFill(string(colorForShare(pct))),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	return bar.ViewAs(pct) +
		mutedStyle.Render(" ") +
		countStyle.Render(cli.FormatNumber(int64(matched))) +
		mutedStyle.Render(fmt.Sprintf(" / %s rows (%s)", cli.FormatNumber(int64(total)), cli.FormatPercent(pct)))
}

// colorForShare dims the bar as the selection narrows.
func colorForShare(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct == 0:
		return t.Red
	case pct < 0.05:
		return t.Orange
	case pct < 0.5:
		return t.Accent
	default:
		return t.AccentBright
	}
}
