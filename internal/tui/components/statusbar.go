package components

import (
	"strings"

	"github.com/sgdevreal/stimmo/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom status bar reports.
type StatusInfo struct {
	Hints    string // key hints on the left
	DataAge  string // e.g. "snapshot 2024-03-01 · 12 minutes ago"
	Busy     string // non-empty while a load is in flight
	Error    string // last error, shown instead of the data age
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	busyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)

	left := " " + info.Hints
	if info.Hints == "" {
		left = " [?]help  [q]uit"
	}

	var right string
	switch {
	case info.Error != "":
		right = errStyle.Render(info.Error + " ")
	case info.Busy != "":
		right = busyStyle.Render(info.Busy + " ")
	case info.DataAge != "":
		right = base.Render(info.DataAge + " ")
	}

	// Pad middle; truncate the hints first when space runs out.
	room := width - lipgloss.Width(right)
	if lipgloss.Width(left) > room {
		left = truncate(left, room)
	}
	padding := max(0, room-lipgloss.Width(left))

	return base.Render(left) + base.Render(strings.Repeat(" ", padding)) + right
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
