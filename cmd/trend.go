package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"
	"github.com/sgdevreal/stimmo/internal/server"

	"github.com/spf13/cobra"
)

var (
	flagPropertyType string
	flagBedrooms     string
	flagPostalCode   string
	flagNoCutoff     bool
)

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Average price per extract date, split by postal code, bedrooms or type",
	Long: "Average price per extract date for the selected property types, bedroom counts\n" +
		"and postal codes. Selecting more than one postal code splits the trend by postal\n" +
		"code; otherwise more than one bedroom count splits it by bedrooms; otherwise by\n" +
		"property type. Passing an empty list (--postal-code=\"\") selects nothing.",
	RunE: runTrend,
}

func init() {
	addTrendFlags(trendCmd)
	rootCmd.AddCommand(trendCmd)
}

func addTrendFlags(c *cobra.Command) {
	c.Flags().StringVarP(&flagPropertyType, "property-type", "t", "", "Comma separated property types (default: all)")
	c.Flags().StringVarP(&flagBedrooms, "bedrooms", "b", "", "Comma separated bedroom counts (default: from config)")
	c.Flags().StringVarP(&flagPostalCode, "postal-code", "p", "", "Comma separated postal codes (default: from config)")
	c.Flags().BoolVar(&flagNoCutoff, "no-cutoff", false, "Include extracts before the cutoff date")
}

// trendSelectionFromFlags overrides base with the flags the user set. An
// explicitly empty list is kept and selects nothing.
func trendSelectionFromFlags(c *cobra.Command, base model.Selection, cols pipeline.GroupingColumns) model.Selection {
	sel := base
	for _, o := range []struct {
		flag, col string
		value    *string
	}{
		{"property-type", cols.PropertyType, &flagPropertyType},
		{"bedrooms", cols.Bedrooms, &flagBedrooms},
		{"postal-code", cols.PostalCode, &flagPostalCode},
	} {
		if c.Flags().Changed(o.flag) {
			sel = sel.With(model.Categorical(o.col, pipeline.SplitValues(*o.value)...))
		}
	}
	if flagNoCutoff {
		sel.Cutoff = false
	}
	return sel
}

func runTrend(c *cobra.Command, _ []string) error {
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
	base, err := e.DefaultTrendSelection(ctx)
	if err != nil {
		return err
	}
	sel := trendSelectionFromFlags(c, base, e.Config().Trend.Columns)

	start := time.Now()
	view, err := e.Trend(ctx, sel)
	if err != nil {
		return err
	}
	progressf("Computed trend over %s rows in %s", cli.FormatNumber(int64(view.Snapshot.Rows)), time.Since(start).Round(time.Millisecond))

	if format.Structured() {
		return cli.WriteStructured(os.Stdout, format, server.NewTrendResponse(view))
	}
	if format == cli.FormatCSV {
		return cli.WriteCSV(os.Stdout, pointHeaders("group"), pointRows(view.Points, true))
	}

	cfg := e.Config().Trend
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PRICE TREND  by %s", view.GroupBy)))
	fmt.Println()

	summary := cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Snapshot", view.Snapshot.Partition + " (" + cli.FormatAge(view.Snapshot.FetchedAt) + ")"},
			{"Matched rows", cli.FormatNumber(int64(view.Matched)) + " of " + cli.FormatNumber(int64(view.Snapshot.Rows))},
			{"Cutoff", cutoffLabel(sel.Cutoff, cfg.Cutoff)},
			{"---"},
			{"Listings", cli.FormatCount(view.CountSum)},
			{"Average price", cli.FormatAverage(view.Average)},
		},
	}
	fmt.Print(cli.RenderTable(summary))

	if len(view.Series) == 0 {
		fmt.Println()
		fmt.Println(cli.Muted("  No rows match this selection."))
		return nil
	}

	fmt.Println()
	headers := []string{"Date"}
	for _, s := range view.Series {
		headers = append(headers, s.Name)
	}
	var rows [][]string
	for i, d := range view.Dates {
		row := []string{cli.FormatDate(d)}
		for _, s := range view.Series {
			row = append(row, cli.FormatAverage(s.Values[i]))
		}
		rows = append(rows, row)
	}
	fmt.Print(cli.RenderTable(cli.Table{Title: "Average price", Headers: headers, Rows: rows}))

	fmt.Println()
	for _, s := range view.Series {
		fmt.Printf("  %-12s %s\n", s.Name, cli.RenderSparkline(s.Values))
	}
	return nil
}

func cutoffLabel(on bool, cutoff time.Time) string {
	if !on || cutoff.IsZero() {
		return "off"
	}
	return "from " + cli.FormatDate(cutoff)
}

func pointHeaders(group string) []string {
	h := []string{"date"}
	if group != "" {
		h = append(h, group)
	}
	return append(h, "value_sum", "count_sum", "average")
}

func pointRows(points []model.TrendPoint, withGroup bool) [][]string {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		row := []string{cli.FormatDate(p.Date)}
		if withGroup {
			row = append(row, p.Group)
		}
		avg := ""
		if p.Average != nil {
			avg = model.FormatNumber(*p.Average)
		}
		row = append(row, model.FormatNumber(p.ValueSum), model.FormatNumber(p.CountSum), avg)
		rows = append(rows, row)
	}
	return rows
}
