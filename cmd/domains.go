package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/server"

	"github.com/spf13/cobra"
)

var flagDomainsIgnore []string

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Selectable values of every filter on both dashboards",
	RunE:  runDomains,
}

func init() {
	domainsCmd.Flags().StringSliceVarP(&flagDomainsIgnore, "ignore", "i", nil, "Extra explore columns to leave out")
	rootCmd.AddCommand(domainsCmd)
}

func runDomains(c *cobra.Command, _ []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	e, err := openEngine(progressf)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := c.Context()
	trend, err := e.TrendDomains(ctx)
	if err != nil {
		return err
	}
	defaults, err := e.DefaultTrendSelection(ctx)
	if err != nil {
		return err
	}
	explore, err := e.ExploreDomains(ctx, flagDomainsIgnore)
	if err != nil {
		return err
	}

	if format.Structured() {
		cfg := e.Config()
		return cli.WriteStructured(os.Stdout, format, server.DomainsResponse{
			Trend:            server.NewDomainResponses(trend),
			TrendDefaults:    defaults,
			Explore:          server.NewDomainResponses(explore),
			ExploreIgnored:   append(append([]string{}, cfg.Explore.Ignore...), flagDomainsIgnore...),
			CutoffTrend:      dateOrBlank(cfg.Trend.Cutoff),
			CutoffExplore:    dateOrBlank(cfg.Explore.Cutoff),
			ListingURLPrefix: cfg.Listings.URLPrefix,
		})
	}

	fmt.Println()
	for _, t := range []cli.Table{
		domainTable("Trend", trend, defaults),
		domainTable("Explore", explore, model.Selection{}),
	} {
		if format == cli.FormatCSV {
			if err := cli.WriteCSV(os.Stdout, t.Headers, t.Rows); err != nil {
				return err
			}
			continue
		}
		fmt.Print(cli.RenderTable(t))
		fmt.Println()
	}
	return nil
}

func domainTable(title string, domains []model.Domain, defaults model.Selection) cli.Table {
	t := cli.Table{Title: title, Headers: []string{"Column", "Kind", "Values", "Default"}}
	for _, d := range domains {
		values := ""
		if d.Widget() == model.WidgetRange {
			values = model.FormatNumber(d.Min) + " to " + model.FormatNumber(d.Max)
		} else {
			values = summarizeValues(d.Values, 8)
		}
		def := ""
		if f, ok := defaults.Lookup(d.Column); ok {
			def = summarizeValues(f.Values, 4)
		}
		t.Rows = append(t.Rows, []string{d.Column, d.Kind.String(), values, def})
	}
	return t
}

func summarizeValues(values []string, limit int) string {
	if len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return strings.Join(values[:limit], ", ") + fmt.Sprintf(" (+%d)", len(values)-limit)
}

func dateOrBlank(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
