package cmd

import (
	"fmt"
	"os"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/server"

	"github.com/spf13/cobra"
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Newest individual listings matching the trend selection",
	RunE:  runListings,
}

func init() {
	addTrendFlags(listingsCmd)
	rootCmd.AddCommand(listingsCmd)
}

func runListings(c *cobra.Command, _ []string) error {
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

	view, err := e.Listings(ctx, sel)
	if err != nil {
		return err
	}
	resp := server.NewListingsResponse(view)
	if format.Structured() {
		return cli.WriteStructured(os.Stdout, format, resp)
	}

	headers := []string{"Extracted", "Type", "Beds", "m²", "Postal", "Price", "URL"}
	rows := make([][]string, 0, len(view.Listings))
	for _, l := range view.Listings {
		rows = append(rows, []string{
			cli.FormatDate(l.ExtractDate),
			l.PropertyType,
			cli.FormatOptional(l.Bedrooms, ""),
			cli.FormatOptional(l.Surface, ""),
			l.PostalCode,
			priceOrDash(l.Price),
			l.URL,
		})
	}
	if format == cli.FormatCSV {
		return cli.WriteCSV(os.Stdout, headers, rows)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("LISTINGS"))
	fmt.Println()
	if len(rows) == 0 {
		fmt.Println(cli.Muted("  No listings match this selection."))
		return nil
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Showing %d of %d fetched", resp.Shown, resp.Fetched),
		Headers: headers,
		Rows:    rows,
	}))
	return nil
}

func priceOrDash(p *float64) string {
	if p == nil {
		return "-"
	}
	return cli.FormatPrice(*p)
}
