package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/source"

	"github.com/mitchellh/hashstructure/v2"
)

// ErrUnknownColumn is returned when a selection names a column the dataset
// does not have.
var ErrUnknownColumn = errors.New("unknown column")

// TrendConfig describes the grouped trend dashboard.
type TrendConfig struct {
	Table       string
	DateColumn  string
	Columns     GroupingColumns
	ValueColumn string
	CountColumn string
	Cutoff      time.Time

	DefaultPostalCodes []string
	DefaultBedrooms    []string // empty picks the 2nd to 5th observed values
}

// ExploreConfig describes the free-form, every-column dashboard.
type ExploreConfig struct {
	Table       string
	DateColumn  string
	ValueColumn string
	CountColumn string
	Cutoff      time.Time
	Ignore      []string
}

// ListingsConfig describes the on-demand listing sample.
type ListingsConfig struct {
	Table        string
	Columns      source.ListingColumns
	URLPrefix    string
	FetchLimit   int
	DisplayLimit int
	Cutoff       time.Time
}

// ServiceConfig bundles the three dashboards.
type ServiceConfig struct {
	Trend    TrendConfig
	Explore  ExploreConfig
	Listings ListingsConfig
}

// ListingSampler runs bounded listing queries against the datastore.
type ListingSampler interface {
	SampleListings(ctx context.Context, q source.ListingQuery) ([]model.Listing, error)
}

// Snapshot identifies the dataset a view was computed from.
type Snapshot struct {
	ID        string
	Table     string
	Partition string
	FetchedAt time.Time
	Rows      int
}

func snapshotOf(ds *model.Dataset) Snapshot {
	return Snapshot{
		ID:        ds.ID,
		Table:     ds.Table,
		Partition: ds.Partition,
		FetchedAt: ds.FetchedAt,
		Rows:      len(ds.Records),
	}
}

// TrendView is the grouped trend dashboard for one selection.
type TrendView struct {
	Snapshot  Snapshot
	Selection model.Selection
	GroupBy   string
	Matched   int
	Points    []model.TrendPoint
	Dates     []time.Time
	Series    []model.Series
	ValueSum  float64
	CountSum  float64
	Average   *float64
}

// ExploreView is the per-day dashboard over every filterable column.
type ExploreView struct {
	Snapshot  Snapshot
	Selection model.Selection
	Ignore    []string
	Matched   int
	Points    []model.TrendPoint
	Dates     []time.Time
	Count     model.Series
	Average   model.Series
	ValueSum  float64
	CountSum  float64
	Overall   *float64
}

// ListingsView is a bounded, newest-first listing sample.
type ListingsView struct {
	Fetched  int
	Listings []model.Listing
}

// Service computes dashboard views from cached datasets.
type Service struct {
	loader  *Loader
	sampler ListingSampler
	cfg     ServiceConfig
}

// NewService wires a loader and a listing sampler to the dashboards in cfg.
func NewService(loader *Loader, sampler ListingSampler, cfg ServiceConfig) *Service {
	if cfg.Listings.FetchLimit <= 0 {
		cfg.Listings.FetchLimit = 100
	}
	if cfg.Listings.DisplayLimit <= 0 {
		cfg.Listings.DisplayLimit = 20
	}
	return &Service{loader: loader, sampler: sampler, cfg: cfg}
}

// Config returns the dashboard configuration.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// TrendDomains returns the multi-select options of the trend dashboard:
// property type, bedroom count and postal code, in that order.
func (s *Service) TrendDomains(ctx context.Context) ([]model.Domain, error) {
	ds, err := s.loader.Load(ctx, s.cfg.Trend.Table)
	if err != nil {
		return nil, err
	}
	cols := s.cfg.Trend.Columns
	return []model.Domain{
		LabelDomain(ds.Records, cols.PropertyType),
		LabelDomain(ds.Records, cols.Bedrooms),
		LabelDomain(ds.Records, cols.PostalCode),
	}, nil
}

// DefaultTrendSelection is the selection a fresh dashboard opens with:
// every property type, the configured bedroom counts and postal codes, and
// the cutoff enabled.
func (s *Service) DefaultTrendSelection(ctx context.Context) (model.Selection, error) {
	domains, err := s.TrendDomains(ctx)
	if err != nil {
		return model.Selection{}, err
	}
	cols := s.cfg.Trend.Columns

	bedrooms := s.cfg.Trend.DefaultBedrooms
	if len(bedrooms) == 0 {
		all := domains[1].Values
		lo, hi := min(1, len(all)), min(5, len(all))
		bedrooms = slices.Clone(all[lo:hi])
	}

	return model.Selection{
		Filters: []model.Filter{
			model.Categorical(cols.PropertyType, slices.Clone(domains[0].Values)...),
			model.Categorical(cols.Bedrooms, bedrooms...),
			model.Categorical(cols.PostalCode, slices.Clone(s.cfg.Trend.DefaultPostalCodes)...),
		},
		Cutoff: true,
	}, nil
}

// Trend filters the trend dataset with sel, picks the grouping column and
// aggregates per (extract date, group).
func (s *Service) Trend(ctx context.Context, sel model.Selection) (*TrendView, error) {
	cfg := s.cfg.Trend
	ds, err := s.loader.Load(ctx, cfg.Table)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(ds, sel, nil); err != nil {
		return nil, err
	}

	rows := ApplyFilters(ds.Records, sel, FilterOptions{DateColumn: cfg.DateColumn, Cutoff: cfg.Cutoff})
	groupBy := GroupingKey(sel, cfg.Columns)
	points := Aggregate(rows, AggregateSpec{
		DateColumn:  cfg.DateColumn,
		GroupColumn: groupBy,
		ValueColumn: cfg.ValueColumn,
		CountColumn: cfg.CountColumn,
	})
	dates, series := PivotSeries(points, MeasureAverage)
	value, count := Totals(points)

	return &TrendView{
		Snapshot:  snapshotOf(ds),
		Selection: sel,
		GroupBy:   groupBy,
		Matched:   len(rows),
		Points:    points,
		Dates:     dates,
		Series:    series,
		ValueSum:  value,
		CountSum:  count,
		Average:   Average(value, count),
	}, nil
}

// ExploreDomains returns a domain for every column of the explore dataset
// outside the configured and extra ignore lists.
func (s *Service) ExploreDomains(ctx context.Context, ignore []string) ([]model.Domain, error) {
	ds, err := s.loader.Load(ctx, s.cfg.Explore.Table)
	if err != nil {
		return nil, err
	}
	return DeriveDomains(ds, s.exploreIgnore(ignore)), nil
}

// Explore filters the explore dataset and aggregates it per extract date.
// Range filters spanning a column's whole domain are dropped, so they do
// not silently remove rows with missing values.
func (s *Service) Explore(ctx context.Context, sel model.Selection, ignore []string) (*ExploreView, error) {
	cfg := s.cfg.Explore
	ds, err := s.loader.Load(ctx, cfg.Table)
	if err != nil {
		return nil, err
	}
	ignore = s.exploreIgnore(ignore)
	if err := checkColumns(ds, sel, ignore); err != nil {
		return nil, err
	}
	sel = relaxFullRanges(ds.Records, sel)

	rows := ApplyFilters(ds.Records, sel, FilterOptions{
		DateColumn: cfg.DateColumn,
		Cutoff:     cfg.Cutoff,
		Ignore:     ignore,
	})
	points := Aggregate(rows, AggregateSpec{
		DateColumn:  cfg.DateColumn,
		ValueColumn: cfg.ValueColumn,
		CountColumn: cfg.CountColumn,
	})
	dates, counts := PivotSeries(points, MeasureCount)
	_, avgs := PivotSeries(points, MeasureAverage)
	value, count := Totals(points)

	view := &ExploreView{
		Snapshot:  snapshotOf(ds),
		Selection: sel,
		Ignore:    ignore,
		Matched:   len(rows),
		Points:    points,
		Dates:     dates,
		Count:     model.Series{Name: cfg.CountColumn},
		Average:   model.Series{Name: "average " + cfg.ValueColumn},
		ValueSum:  value,
		CountSum:  count,
		Overall:   Average(value, count),
	}
	if len(counts) > 0 {
		view.Count.Values = counts[0].Values
		view.Average.Values = avgs[0].Values
	}
	return view, nil
}

// Listings runs the listing sample query for sel directly against the
// datastore, bypassing the cached datasets.
func (s *Service) Listings(ctx context.Context, sel model.Selection) (*ListingsView, error) {
	if s.sampler == nil {
		return nil, fmt.Errorf("listing sample: no datastore configured")
	}
	cfg := s.cfg.Listings
	got, err := s.sampler.SampleListings(ctx, source.ListingQuery{
		Table:     cfg.Table,
		Columns:   cfg.Columns,
		Where:     source.Predicate(listingSelection(sel, s.cfg.Trend.Columns, cfg.Columns), cfg.Columns.ExtractDate, cfg.Cutoff, nil),
		Limit:     cfg.FetchLimit,
		URLPrefix: cfg.URLPrefix,
	})
	if err != nil {
		return nil, err
	}

	view := &ListingsView{Fetched: len(got), Listings: got}
	if len(got) > cfg.DisplayLimit {
		view.Listings = got[:cfg.DisplayLimit]
	}
	return view, nil
}

// listingSelection renames trend filter columns to their listing table
// counterparts. Filters on other columns keep their names.
func listingSelection(sel model.Selection, trend GroupingColumns, cols source.ListingColumns) model.Selection {
	rename := map[string]string{
		trend.PropertyType: cols.PropertyType,
		trend.Bedrooms:     cols.Bedrooms,
		trend.PostalCode:   cols.PostalCode,
	}
	out := model.Selection{Cutoff: sel.Cutoff, Filters: make([]model.Filter, 0, len(sel.Filters))}
	for _, f := range sel.Filters {
		if to := rename[f.Column]; to != "" {
			f.Column = to
		}
		out.Filters = append(out.Filters, f)
	}
	return out
}

// Snapshots loads both dashboard datasets, fetching them if the cache window
// has passed, and reports which snapshots are being served.
func (s *Service) Snapshots(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	for _, table := range []string{s.cfg.Trend.Table, s.cfg.Explore.Table} {
		ds, err := s.loader.Load(ctx, table)
		if err != nil {
			return out, err
		}
		out = append(out, snapshotOf(ds))
	}
	return out, nil
}

// Invalidate forces the next load of both dashboards to refetch.
func (s *Service) Invalidate() {
	s.loader.Invalidate(s.cfg.Trend.Table, s.cfg.Explore.Table)
}

func (s *Service) exploreIgnore(extra []string) []string {
	out := slices.Clone(s.cfg.Explore.Ignore)
	for _, c := range extra {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func checkColumns(ds *model.Dataset, sel model.Selection, ignore []string) error {
	for _, f := range sel.Filters {
		if slices.Contains(ignore, f.Column) {
			continue
		}
		col, ok := ds.Column(f.Column)
		if !ok {
			return fmt.Errorf("%w %q in %s", ErrUnknownColumn, f.Column, ds.Table)
		}
		if f.Kind == model.FilterRange && col.Kind != model.KindNumeric {
			return fmt.Errorf("%w: range on %s column %q", ErrBadFilter, col.Kind, f.Column)
		}
	}
	return nil
}

func relaxFullRanges(records []model.Record, sel model.Selection) model.Selection {
	for _, f := range sel.Filters {
		if f.Kind != model.FilterRange {
			continue
		}
		if d, ok := NumericDomain(records, f.Column); ok && d.Covers(f) {
			sel = sel.Without(f.Column)
		}
	}
	return sel
}

// ViewKey hashes a snapshot id with the inputs of a view, so identical
// requests against the same snapshot share a key.
func ViewKey(snapshotID string, sel model.Selection, extra ...string) (uint64, error) {
	return hashstructure.Hash(struct {
		Snapshot  string
		Selection model.Selection
		Extra     []string
	}{snapshotID, sel, extra}, hashstructure.FormatV2, nil)
}
