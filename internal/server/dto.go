package server

import (
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error" yaml:"error"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// SnapshotResponse identifies the dataset a view was computed from.
type SnapshotResponse struct {
	ID        string    `json:"id" yaml:"id"`
	Table     string    `json:"table" yaml:"table"`
	Partition string    `json:"partition" yaml:"partition"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
	Rows      int       `json:"rows" yaml:"rows"`
}

// PointResponse is one aggregated (date, group) cell. Average is null when
// the count is zero.
type PointResponse struct {
	Date     string   `json:"date" yaml:"date"`
	Group    string   `json:"group,omitempty" yaml:"group,omitempty"`
	ValueSum float64  `json:"value_sum" yaml:"value_sum"`
	CountSum float64  `json:"count_sum" yaml:"count_sum"`
	Average  *float64 `json:"average" yaml:"average"`
}

// SeriesResponse is one chart line on the shared date axis.
type SeriesResponse struct {
	Name   string     `json:"name" yaml:"name"`
	Values []*float64 `json:"values" yaml:"values"`
}

// TrendResponse is served at /v1/trend.
type TrendResponse struct {
	Snapshot  SnapshotResponse `json:"snapshot" yaml:"snapshot"`
	Selection model.Selection  `json:"selection" yaml:"selection"`
	GroupBy   string           `json:"group_by" yaml:"group_by"`
	Matched   int              `json:"matched_rows" yaml:"matched_rows"`
	Dates     []string         `json:"dates" yaml:"dates"`
	Series    []SeriesResponse `json:"series" yaml:"series"`
	Points    []PointResponse  `json:"points" yaml:"points"`
	ValueSum  float64          `json:"value_sum" yaml:"value_sum"`
	CountSum  float64          `json:"count_sum" yaml:"count_sum"`
	Average   *float64         `json:"average" yaml:"average"`
}

// ExploreResponse is served at /v1/explore.
type ExploreResponse struct {
	Snapshot  SnapshotResponse `json:"snapshot" yaml:"snapshot"`
	Selection model.Selection  `json:"selection" yaml:"selection"`
	Ignore    []string         `json:"ignore" yaml:"ignore"`
	Matched   int              `json:"matched_rows" yaml:"matched_rows"`
	Dates     []string         `json:"dates" yaml:"dates"`
	Count     SeriesResponse   `json:"count" yaml:"count"`
	Average   SeriesResponse   `json:"average" yaml:"average"`
	Points    []PointResponse  `json:"points" yaml:"points"`
	ValueSum  float64          `json:"value_sum" yaml:"value_sum"`
	CountSum  float64          `json:"count_sum" yaml:"count_sum"`
	Overall   *float64         `json:"overall_average" yaml:"overall_average"`
}

// ListingResponse is one sampled listing.
type ListingResponse struct {
	ID           string   `json:"id" yaml:"id"`
	PropertyType string   `json:"property_type,omitempty" yaml:"property_type,omitempty"`
	Bedrooms     *float64 `json:"bedrooms" yaml:"bedrooms"`
	Surface      *float64 `json:"surface" yaml:"surface"`
	PostalCode   string   `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	Price        *float64 `json:"price" yaml:"price"`
	ExtractDate  string   `json:"extract_date,omitempty" yaml:"extract_date,omitempty"`
	URL          string   `json:"url" yaml:"url"`
}

// ListingsResponse is served at /v1/listings.
type ListingsResponse struct {
	Fetched  int               `json:"fetched" yaml:"fetched"`
	Shown    int               `json:"shown" yaml:"shown"`
	Listings []ListingResponse `json:"listings" yaml:"listings"`
}

// DomainResponse describes the selectable values of one column.
type DomainResponse struct {
	Column string   `json:"column" yaml:"column"`
	Kind   string   `json:"kind" yaml:"kind"`
	Widget string   `json:"widget" yaml:"widget"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
	Min    *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max    *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// DomainsResponse is served at /v1/domains.
type DomainsResponse struct {
	Trend            []DomainResponse `json:"trend" yaml:"trend"`
	TrendDefaults    model.Selection  `json:"trend_defaults" yaml:"trend_defaults"`
	Explore          []DomainResponse `json:"explore" yaml:"explore"`
	ExploreIgnored   []string         `json:"explore_ignored" yaml:"explore_ignored"`
	CutoffTrend      string           `json:"cutoff_trend" yaml:"cutoff_trend"`
	CutoffExplore    string           `json:"cutoff_explore" yaml:"cutoff_explore"`
	ListingURLPrefix string           `json:"listing_url_prefix" yaml:"listing_url_prefix"`
}

// NewSnapshotResponse converts a pipeline snapshot.
func NewSnapshotResponse(s pipeline.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:        s.ID,
		Table:     s.Table,
		Partition: s.Partition,
		FetchedAt: s.FetchedAt,
		Rows:      s.Rows,
	}
}

// NewTrendResponse converts a trend view.
func NewTrendResponse(v *pipeline.TrendView) TrendResponse {
	resp := TrendResponse{
		Snapshot:  NewSnapshotResponse(v.Snapshot),
		Selection: v.Selection,
		GroupBy:   v.GroupBy,
		Matched:   v.Matched,
		Dates:     dateStrings(v.Dates),
		Series:    make([]SeriesResponse, 0, len(v.Series)),
		Points:    pointResponses(v.Points),
		ValueSum:  v.ValueSum,
		CountSum:  v.CountSum,
		Average:   v.Average,
	}
	for _, s := range v.Series {
		resp.Series = append(resp.Series, SeriesResponse{Name: s.Name, Values: s.Values})
	}
	return resp
}

// NewExploreResponse converts an explore view.
func NewExploreResponse(v *pipeline.ExploreView) ExploreResponse {
	ignore := v.Ignore
	if ignore == nil {
		ignore = []string{}
	}
	return ExploreResponse{
		Snapshot:  NewSnapshotResponse(v.Snapshot),
		Selection: v.Selection,
		Ignore:    ignore,
		Matched:   v.Matched,
		Dates:     dateStrings(v.Dates),
		Count:     SeriesResponse{Name: v.Count.Name, Values: orEmpty(v.Count.Values)},
		Average:   SeriesResponse{Name: v.Average.Name, Values: orEmpty(v.Average.Values)},
		Points:    pointResponses(v.Points),
		ValueSum:  v.ValueSum,
		CountSum:  v.CountSum,
		Overall:   v.Overall,
	}
}

// NewListingsResponse converts a listing sample.
func NewListingsResponse(v *pipeline.ListingsView) ListingsResponse {
	resp := ListingsResponse{
		Fetched:  v.Fetched,
		Shown:    len(v.Listings),
		Listings: make([]ListingResponse, 0, len(v.Listings)),
	}
	for _, l := range v.Listings {
		lr := ListingResponse{
			ID:           l.ID,
			PropertyType: l.PropertyType,
			Bedrooms:     l.Bedrooms,
			Surface:      l.Surface,
			PostalCode:   l.PostalCode,
			Price:        l.Price,
			URL:          l.URL,
		}
		if !l.ExtractDate.IsZero() {
			lr.ExtractDate = l.ExtractDate.Format(time.DateOnly)
		}
		resp.Listings = append(resp.Listings, lr)
	}
	return resp
}

// NewDomainResponses converts column domains.
func NewDomainResponses(domains []model.Domain) []DomainResponse {
	out := make([]DomainResponse, 0, len(domains))
	for _, d := range domains {
		dr := DomainResponse{
			Column: d.Column,
			Kind:   d.Kind.String(),
			Widget: widgetName(d.Widget()),
			Values: d.Values,
		}
		if d.Kind == model.KindNumeric {
			lo, hi := d.Min, d.Max
			dr.Min, dr.Max = &lo, &hi
		}
		out = append(out, dr)
	}
	return out
}

func widgetName(w model.Widget) string {
	switch w {
	case model.WidgetRange:
		return "range"
	case model.WidgetSingle:
		return "single"
	default:
		return "multiselect"
	}
}

func pointResponses(points []model.TrendPoint) []PointResponse {
	out := make([]PointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, PointResponse{
			Date:     p.Date.Format(time.DateOnly),
			Group:    p.Group,
			ValueSum: p.ValueSum,
			CountSum: p.CountSum,
			Average:  p.Average,
		})
	}
	return out
}

func dateStrings(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(time.DateOnly))
	}
	return out
}

func orEmpty(v []*float64) []*float64 {
	if v == nil {
		return []*float64{}
	}
	return v
}
