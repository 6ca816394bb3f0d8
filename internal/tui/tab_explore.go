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

func (a App) renderExploreTab(cw int) string {
	t := theme.Active
	if a.explore == nil {
		return emptyState(cw, "Explore", a.exploreErr)
	}
	v := a.explore

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Average price", Value: cli.FormatAverage(v.Overall), Hint: "over the whole selection"},
		{Label: "Properties", Value: cli.FormatCount(v.CountSum)},
		{Label: "Extracts", Value: cli.FormatNumber(int64(len(v.Dates)))},
		{Label: "Ignored", Value: cli.FormatNumber(int64(len(v.Ignore))), Hint: "press i to change"},
	}, cw))
	b.WriteString("\n")

	inner := components.CardInnerWidth(cw)
	b.WriteString(components.ContentCard("Rows kept",
		components.MatchBar(v.Matched, v.Snapshot.Rows, min(40, inner/2)), cw))
	b.WriteString("\n")

	if len(v.Dates) == 0 {
		b.WriteString(components.ContentCard("Per extract",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).
				Render("No rows match this selection. Press f to change the filters."), cw))
		return b.String()
	}

	labels := chartDateLabels(v.Dates)
	chartH := max((a.height-24)/2, 4)

	half := components.LayoutRow(cw, 2)
	avg := components.LineChart([]components.LineSeries{
		{Name: v.Average.Name, Values: v.Average.Values, Color: t.AccentBright},
	}, labels, components.CardInnerWidth(half[0]), chartH)
	count := components.BarChart(v.Count.Values, labels, t.Blue, components.CardInnerWidth(half[1]), chartH)

	b.WriteString(components.CardRow([]string{
		components.ContentCard("Average price", avg, half[0]),
		components.ContentCard("Properties ("+v.Count.Name+")", count, half[1]),
	}))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Active filters", filterList(v.Selection), cw))
	return b.String()
}

func filterList(sel model.Selection) string {
	t := theme.Active
	colStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	if len(sel.Filters) == 0 {
		return colStyle.Render("none, every row counts")
	}
	var lines []string
	for _, f := range sel.Filters {
		var val string
		if f.Kind == model.FilterRange {
			val = fmt.Sprintf("%s to %s", model.FormatNumber(f.Min), model.FormatNumber(f.Max))
		} else {
			val = truncStr(strings.Join(f.Values, ", "), 80)
		}
		lines = append(lines, colStyle.Render(fmt.Sprintf("%-32s ", truncStr(f.Column, 32)))+valStyle.Render(val))
	}
	return strings.Join(lines, "\n")
}
