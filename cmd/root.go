package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/config"
	"github.com/sgdevreal/stimmo/internal/pipeline"
	"github.com/sgdevreal/stimmo/internal/source"
	"github.com/sgdevreal/stimmo/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagNoCache bool
	flagQuiet   bool
	flagFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "stimmo",
	Short: "Real estate price trends from aggregated listings",
	Long: "Explore average asking prices from a daily-aggregated listings table:\n" +
		"grouped trends, free-form filtering over every column, and the newest listings.",
	RunE:         runTrend,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the on-disk snapshot cache")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "o", "table", "Output format: table, json, yaml or csv")
	addTrendFlags(rootCmd)
}

// engine is a Service together with the resources it holds open.
type engine struct {
	*pipeline.Service
	cfg       config.Config
	warehouse *source.Warehouse
	cache     *store.Cache
}

func (e *engine) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
	_ = e.warehouse.Close()
}

// progressf writes a progress line to stderr unless --quiet is set.
func progressf(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
}

// openEngine is the shared setup path used by all data commands. A missing
// token is reported through logf and surfaces later as the datastore being
// unavailable, so cached snapshots stay usable offline.
func openEngine(logf func(format string, args ...any)) (*engine, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if err := config.LoadEnv(); err != nil {
		logf("%v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dsn, err := config.DSN(cfg)
	if err != nil {
		if !errors.Is(err, config.ErrMissingToken) {
			return nil, err
		}
		logf("%v", err)
	}

	svcCfg, err := serviceConfig(cfg)
	if err != nil {
		return nil, err
	}

	wh := source.New(source.Options{
		Driver:             cfg.Datastore.Driver,
		DSN:                dsn,
		CategoricalColumns: cfg.Datastore.CategoricalColumns,
		DateColumns:        cfg.Datastore.DateColumns,
		ConnectTimeout:     cfg.Datastore.ConnectTimeout(),
	})

	e := &engine{cfg: cfg, warehouse: wh}
	opts := pipeline.LoaderOptions{TTL: cfg.Cache.TTL(), Logf: logf}
	if !flagNoCache && !cfg.Cache.NoSnapshot {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			logf("Snapshot cache unavailable: %v", err)
		} else {
			e.cache = cache
			// Assigned only when open, so the loader never sees a typed nil.
			opts.Store = cache
		}
	}

	e.Service = pipeline.NewService(pipeline.NewLoader(wh, opts), wh, svcCfg)
	return e, nil
}

// serviceConfig maps the file configuration onto the dashboards.
func serviceConfig(cfg config.Config) (pipeline.ServiceConfig, error) {
	trendCutoff, err := optionalCutoff(cfg.Trend.Cutoff)
	if err != nil {
		return pipeline.ServiceConfig{}, fmt.Errorf("trend: %w", err)
	}
	exploreCutoff, err := optionalCutoff(cfg.Explore.Cutoff)
	if err != nil {
		return pipeline.ServiceConfig{}, fmt.Errorf("explore: %w", err)
	}

	return pipeline.ServiceConfig{
		Trend: pipeline.TrendConfig{
			Table:      cfg.Trend.Table,
			DateColumn: cfg.Trend.DateColumn,
			Columns: pipeline.GroupingColumns{
				PostalCode:   cfg.Trend.PostalCodeColumn,
				Bedrooms:     cfg.Trend.BedroomsColumn,
				PropertyType: cfg.Trend.PropertyTypeColumn,
			},
			ValueColumn:        cfg.Trend.ValueColumn,
			CountColumn:        cfg.Trend.CountColumn,
			Cutoff:             trendCutoff,
			DefaultPostalCodes: cfg.Trend.DefaultPostalCodes,
			DefaultBedrooms:    cfg.Trend.DefaultBedrooms,
		},
		Explore: pipeline.ExploreConfig{
			Table:       cfg.Explore.Table,
			DateColumn:  cfg.Explore.DateColumn,
			ValueColumn: cfg.Explore.ValueColumn,
			CountColumn: cfg.Explore.CountColumn,
			Cutoff:      exploreCutoff,
			Ignore:      cfg.Explore.Ignore,
		},
		Listings: pipeline.ListingsConfig{
			Table:        cfg.Listings.Table,
			Columns:      cfg.Listings.Columns,
			URLPrefix:    cfg.Listings.URLPrefix,
			FetchLimit:   cfg.Listings.FetchLimit,
			DisplayLimit: cfg.Listings.DisplayLimit,
			Cutoff:       trendCutoff,
		},
	}, nil
}

func optionalCutoff(s string) (t time.Time, err error) {
	if s == "" {
		return t, nil
	}
	return config.ParseCutoff(s)
}

func outputFormat() (cli.Format, error) {
	return cli.ParseFormat(flagFormat)
}
