package tui

import (
	"fmt"
	"strings"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/tui/components"
	"github.com/sgdevreal/stimmo/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var listingColumns = []table.Column{
	{Title: "Extracted", Width: 10},
	{Title: "Type", Width: 12},
	{Title: "Beds", Width: 4},
	{Title: "m²", Width: 6},
	{Title: "Postal", Width: 6},
	{Title: "Price", Width: 12},
	{Title: "ID", Width: 12},
}

func newListingsTable() table.Model {
	t := theme.Active
	tbl := table.New(
		table.WithColumns(listingColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(t.TextMuted).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Bold(true)
	styles.Cell = styles.Cell.Foreground(t.TextPrimary)
	styles.Selected = styles.Selected.
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true)
	tbl.SetStyles(styles)
	return tbl
}

func listingRows(listings []model.Listing) []table.Row {
	rows := make([]table.Row, len(listings))
	for i, l := range listings {
		rows[i] = table.Row{
			cli.FormatDate(l.ExtractDate),
			l.PropertyType,
			cli.FormatOptional(l.Bedrooms, ""),
			cli.FormatOptional(l.Surface, ""),
			l.PostalCode,
			priceOrDash(l.Price),
			l.ID,
		}
	}
	return rows
}

func priceOrDash(p *float64) string {
	if p == nil {
		return "-"
	}
	return cli.FormatPrice(*p)
}

func (a App) renderListingsTab(cw int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if a.listings == nil {
		msg := "Press r to sample the newest listings for the trend selection."
		if a.listingsErr != nil {
			return emptyState(cw, "Listings", a.listingsErr)
		}
		if a.pending > 0 {
			msg = "Loading..."
		}
		return components.ContentCard("Listings", mutedStyle.Render(msg), cw)
	}
	v := a.listings

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Fetched", Value: cli.FormatNumber(int64(v.Fetched)), Hint: fmt.Sprintf("newest first, limit %d", a.cfg.Listings.FetchLimit)},
		{Label: "Shown", Value: cli.FormatNumber(int64(len(v.Listings)))},
	}, cw))
	b.WriteString("\n")

	if len(v.Listings) == 0 {
		b.WriteString(components.ContentCard("Listings", mutedStyle.Render("No listing matches the trend selection."), cw))
		return b.String()
	}

	body := a.listTable.View()
	if row := a.listTable.Cursor(); row >= 0 && row < len(v.Listings) {
		urlStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Underline(true)
		body += "\n\n" + mutedStyle.Render("URL  ") + urlStyle.Render(v.Listings[row].URL)
	}
	b.WriteString(components.ContentCard("Listings", body, cw))
	return b.String()
}
