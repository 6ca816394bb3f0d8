package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"
	"github.com/sgdevreal/stimmo/internal/server"

	"github.com/spf13/cobra"
)

var (
	flagExploreFilters []string
	flagExploreRanges  []string
	flagExploreIgnore  []string
	flagExploreCutoff  bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Per-day count and average price over every filterable column",
	Example: `  stimmo explore --filter property.type=HOUSE --range price=200000:400000
  stimmo explore --ignore property.location.postalCode -o json`,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().StringArrayVarP(&flagExploreFilters, "filter", "f", nil, "Categorical filter column=v1,v2 (repeatable)")
	exploreCmd.Flags().StringArrayVarP(&flagExploreRanges, "range", "r", nil, "Range filter column=min:max, either bound optional (repeatable)")
	exploreCmd.Flags().StringSliceVarP(&flagExploreIgnore, "ignore", "i", nil, "Columns to leave unfiltered and hidden")
	exploreCmd.Flags().BoolVar(&flagExploreCutoff, "cutoff", false, "Drop extracts before the configured cutoff date")
	rootCmd.AddCommand(exploreCmd)
}

// exploreSelection builds a selection from --filter and --range. Empty
// categorical filters are skipped, matching an untouched multi-select.
func exploreSelection(filters, ranges []string, domains []model.Domain, cutoff bool) (model.Selection, error) {
	sel := model.Selection{Cutoff: cutoff}
	for _, expr := range filters {
		f, err := pipeline.ParseCategorical(expr)
		if err != nil {
			return sel, err
		}
		if len(f.Values) == 0 {
			continue
		}
		sel = sel.With(f)
	}
	for _, expr := range ranges {
		var domain *model.Domain
		if col, _, ok := strings.Cut(expr, "="); ok {
			col = strings.TrimSpace(col)
			if i := slices.IndexFunc(domains, func(d model.Domain) bool { return d.Column == col }); i >= 0 {
				domain = &domains[i]
			}
		}
		f, err := pipeline.ParseRange(expr, domain)
		if err != nil {
			return sel, err
		}
		sel = sel.With(f)
	}
	return sel, nil
}

func runExplore(c *cobra.Command, _ []string) error {
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
	domains, err := e.ExploreDomains(ctx, flagExploreIgnore)
	if err != nil {
		return err
	}
	sel, err := exploreSelection(flagExploreFilters, flagExploreRanges, domains, flagExploreCutoff)
	if err != nil {
		return err
	}
	view, err := e.Explore(ctx, sel, flagExploreIgnore)
	if err != nil {
		return err
	}

	if format.Structured() {
		return cli.WriteStructured(os.Stdout, format, server.NewExploreResponse(view))
	}
	if format == cli.FormatCSV {
		return cli.WriteCSV(os.Stdout, pointHeaders(""), pointRows(view.Points, false))
	}

	cfg := e.Config().Explore
	fmt.Println()
	fmt.Println(cli.RenderTitle("EXPLORE  " + cfg.Table))
	fmt.Println()

	rows := [][]string{
		{"Snapshot", view.Snapshot.Partition + " (" + cli.FormatAge(view.Snapshot.FetchedAt) + ")"},
		{"Matched rows", cli.FormatNumber(int64(view.Matched)) + " of " + cli.FormatNumber(int64(view.Snapshot.Rows))},
		{"Cutoff", cutoffLabel(view.Selection.Cutoff, cfg.Cutoff)},
	}
	for _, f := range view.Selection.Filters {
		rows = append(rows, []string{f.Column, filterLabel(f)})
	}
	if len(view.Ignore) > 0 {
		rows = append(rows, []string{"Ignored", fmt.Sprintf("%d columns", len(view.Ignore))})
	}
	rows = append(rows,
		[]string{"---"},
		[]string{"Properties", cli.FormatCount(view.CountSum)},
		[]string{"Average price", cli.FormatAverage(view.Overall)},
	)
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Metric", "Value"}, Rows: rows}))

	if len(view.Points) == 0 {
		fmt.Println()
		fmt.Println(cli.Muted("  No rows match this selection."))
		return nil
	}

	fmt.Println()
	var daily [][]string
	maxCount := 0.0
	for _, p := range view.Points {
		maxCount = max(maxCount, p.CountSum)
	}
	for _, p := range view.Points {
		daily = append(daily, []string{cli.FormatDate(p.Date), cli.FormatCount(p.CountSum), cli.FormatAverage(p.Average)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Per extract",
		Headers: []string{"Date", cfg.CountColumn, "Average price"},
		Rows:    daily,
	}))

	fmt.Println()
	fmt.Println(cli.Muted("  Properties per extract"))
	for _, p := range view.Points {
		fmt.Println(cli.RenderHorizontalBar(cli.FormatDate(p.Date), p.CountSum, maxCount, 40))
	}
	fmt.Println()
	fmt.Printf("  %-12s %s\n", "average", cli.RenderSparkline(view.Average.Values))
	return nil
}

func filterLabel(f model.Filter) string {
	if f.Kind == model.FilterRange {
		return model.FormatNumber(f.Min) + " to " + model.FormatNumber(f.Max)
	}
	if len(f.Values) > 6 {
		return fmt.Sprintf("%d values", len(f.Values))
	}
	return strings.Join(f.Values, ", ")
}
