package tui

import (
	"fmt"
	"strings"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/tui/components"
	"github.com/sgdevreal/stimmo/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderTrendTab(cw int) string {
	t := theme.Active
	if a.trend == nil {
		return emptyState(cw, "Trend", a.trendErr)
	}
	v := a.trend

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Average price", Value: cli.FormatAverage(v.Average), Hint: "value / count"},
		{Label: "Listings", Value: cli.FormatCount(v.CountSum), Hint: "summed counts"},
		{Label: "Matched rows", Value: cli.FormatNumber(int64(v.Matched)),
			Hint: "of " + cli.FormatNumber(int64(v.Snapshot.Rows))},
		{Label: "Split by", Value: shortColumn(v.GroupBy), Hint: fmt.Sprintf("%d series", len(v.Series))},
	}, cw))
	b.WriteString("\n")

	if len(v.Series) == 0 {
		b.WriteString(components.ContentCard("Average price",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).
				Render("No rows match this selection. Press f to change the filters."), cw))
		return b.String()
	}

	series := lineSeries(v.Series)
	chartH := max(a.height-18, 6)
	chart := components.LineChart(series, chartDateLabels(v.Dates), components.CardInnerWidth(cw), chartH)
	b.WriteString(components.ContentCard(
		"Average price by "+shortColumn(v.GroupBy),
		components.Legend(series)+"\n\n"+chart, cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Latest", latestTable(v.Series, components.CardInnerWidth(cw)), cw))
	return b.String()
}

func lineSeries(in []model.Series) []components.LineSeries {
	out := make([]components.LineSeries, len(in))
	for i, s := range in {
		out[i] = components.LineSeries{Name: s.Name, Values: s.Values, Color: theme.Active.Series(i)}
	}
	return out
}

// latestTable lists each series' most recent defined average next to a
// sparkline of its history.
func latestTable(series []model.Series, width int) string {
	t := theme.Active
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sparkW := max(width-40, 8)

	var lines []string
	for i, s := range series {
		var last *float64
		for j := len(s.Values) - 1; j >= 0; j-- {
			if s.Values[j] != nil {
				last = s.Values[j]
				break
			}
		}
		values := s.Values
		if len(values) > sparkW {
			values = values[len(values)-sparkW:]
		}
		lines = append(lines,
			nameStyle.Render(fmt.Sprintf("%-14s", truncStr(s.Name, 14)))+
				valueStyle.Render(fmt.Sprintf("%14s  ", cli.FormatAverage(last)))+
				components.Sparkline(values, t.Series(i)))
	}
	return strings.Join(lines, "\n")
}

func emptyState(cw int, title string, err error) string {
	t := theme.Active
	msg := "Loading..."
	style := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if err != nil {
		msg = err.Error() + "\n\nPress R to retry."
		style = style.Foreground(t.Red)
	}
	return components.ContentCard(title, style.Render(msg), cw)
}
