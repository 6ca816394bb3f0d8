package tui

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/sgdevreal/stimmo/internal/config"
	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"
	"github.com/sgdevreal/stimmo/internal/tui/components"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	colType   = "property.type"
	colBeds   = "property.bedroomCount"
	colPostal = "property.location.postalCode"
)

type fakeEngine struct {
	trendCalls  []model.Selection
	invalidated int
}

func (e *fakeEngine) Config() pipeline.ServiceConfig {
	return pipeline.ServiceConfig{
		Trend: pipeline.TrendConfig{
			Table: "aggregated_table",
			Columns: pipeline.GroupingColumns{
				PostalCode:   colPostal,
				Bedrooms:     colBeds,
				PropertyType: colType,
			},
		},
		Listings: pipeline.ListingsConfig{FetchLimit: 100, DisplayLimit: 20},
	}
}

func (e *fakeEngine) TrendDomains(context.Context) ([]model.Domain, error) {
	return []model.Domain{
		{Column: colType, Values: []string{"APARTMENT", "HOUSE"}},
		{Column: colBeds, Values: []string{"0", "1", "2", "3"}},
		{Column: colPostal, Values: []string{"1000", "1170"}},
	}, nil
}

func (e *fakeEngine) DefaultTrendSelection(context.Context) (model.Selection, error) {
	return model.Selection{
		Filters: []model.Filter{
			model.Categorical(colType, "APARTMENT", "HOUSE"),
			model.Categorical(colBeds, "1", "2", "3"),
			model.Categorical(colPostal, "1170"),
		},
		Cutoff: true,
	}, nil
}

func (e *fakeEngine) Trend(_ context.Context, sel model.Selection) (*pipeline.TrendView, error) {
	e.trendCalls = append(e.trendCalls, sel)
	return &pipeline.TrendView{Selection: sel, GroupBy: colBeds}, nil
}

func (e *fakeEngine) ExploreDomains(context.Context, []string) ([]model.Domain, error) {
	return []model.Domain{
		{Column: colPostal, Kind: model.KindCategorical, Values: []string{"1000", "1170"}},
		{Column: "price", Kind: model.KindNumeric, Min: 100000, Max: 900000},
	}, nil
}

func (e *fakeEngine) Explore(_ context.Context, sel model.Selection, ignore []string) (*pipeline.ExploreView, error) {
	return &pipeline.ExploreView{Selection: sel, Ignore: ignore}, nil
}

func (e *fakeEngine) Listings(context.Context, model.Selection) (*pipeline.ListingsView, error) {
	return &pipeline.ListingsView{Fetched: 1, Listings: []model.Listing{{ID: "42", URL: "https://example.test/42"}}}, nil
}

func (e *fakeEngine) Invalidate() { e.invalidated++ }

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loadedApp returns an app that has received its first trend result.
func loadedApp(t *testing.T, e *fakeEngine) App {
	t.Helper()
	a := NewApp(e)
	msg := loadTrendCmd(e, nil)()
	m, _ := a.Update(msg)
	return m.(App)
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	n := len(components.Tabs)
	for active := 0; active < n; active++ {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := len(tab.Name) + 2
			x := pos + w/2
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Errorf("x past the last tab = %d, want -1", got)
		}
	}
}

func TestInitialLoadUsesDefaultSelection(t *testing.T) {
	e := &fakeEngine{}
	a := loadedApp(t, e)

	if !a.loaded {
		t.Fatal("app should be loaded after the first trend result")
	}
	if got := a.trendSel.Count(colBeds); got != 3 {
		t.Errorf("bedrooms selected = %d, want 3", got)
	}
	if len(a.trendDomains) != 3 {
		t.Errorf("trend domains = %d, want 3", len(a.trendDomains))
	}
	if a.trend == nil || a.trend.GroupBy != colBeds {
		t.Errorf("trend view not stored: %+v", a.trend)
	}
}

func TestCutoffToggleReloadsTrend(t *testing.T) {
	e := &fakeEngine{}
	a := loadedApp(t, e)
	pending := a.pending

	m, cmd := a.Update(keyPress("c"))
	a = m.(App)
	if a.trendSel.Cutoff {
		t.Error("cutoff should be off after toggling")
	}
	if cmd == nil {
		t.Fatal("toggling the cutoff should schedule a reload")
	}
	if a.pending != pending+1 {
		t.Errorf("pending = %d, want %d", a.pending, pending+1)
	}

	// The reload runs with the toggled selection.
	sel := a.trendSel
	loadTrendCmd(e, &sel)()
	last := e.trendCalls[len(e.trendCalls)-1]
	if last.Cutoff {
		t.Error("reload still requested the cutoff")
	}
}

func TestExploreCutoffStartsOffAndToggles(t *testing.T) {
	e := &fakeEngine{}
	a := loadedApp(t, e)
	if a.exploreSel.Cutoff {
		t.Fatal("explore should start without the cutoff")
	}

	a.activeTab = tabExplore
	m, cmd := a.Update(keyPress("c"))
	a = m.(App)
	if !a.exploreSel.Cutoff {
		t.Error("cutoff should be on after toggling")
	}
	if cmd == nil {
		t.Fatal("toggling the cutoff should schedule a reload")
	}
	if !a.trendSel.Cutoff {
		t.Error("explore toggle changed the trend cutoff")
	}
}

func TestRefetchInvalidates(t *testing.T) {
	e := &fakeEngine{}
	a := loadedApp(t, e)

	m, cmd := a.Update(keyPress("R"))
	if cmd == nil {
		t.Fatal("R should schedule reloads")
	}
	if e.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", e.invalidated)
	}
	if got := m.(App).pending; got < 2 {
		t.Errorf("pending = %d, want both dashboards reloading", got)
	}
}

func TestTabKeys(t *testing.T) {
	a := loadedApp(t, &fakeEngine{})
	for _, tt := range []struct {
		key  string
		want int
	}{
		{"e", tabExplore},
		{"l", tabListings},
		{"t", tabTrend},
	} {
		m, _ := a.Update(keyPress(tt.key))
		a = m.(App)
		if a.activeTab != tt.want {
			t.Errorf("key %q -> tab %d, want %d", tt.key, a.activeTab, tt.want)
		}
	}
}

func TestListingsLoadedFillsTable(t *testing.T) {
	e := &fakeEngine{}
	a := loadedApp(t, e)
	m, _ := a.Update(sampleListingsCmd(e, a.trendSel)())
	a = m.(App)
	if a.listings == nil || a.listings.Fetched != 1 {
		t.Fatalf("listings not stored: %+v", a.listings)
	}
	if rows := a.listTable.Rows(); len(rows) != 1 || rows[0][6] != "42" {
		t.Errorf("table rows = %v", rows)
	}
}

func TestApplyTrendFormKeepsEmptyFilters(t *testing.T) {
	e := &fakeEngine{}
	base, _ := e.DefaultTrendSelection(context.Background())
	cols := e.Config().Trend.Columns

	got := applyTrendForm(base, cols, &trendFormValues{
		PropertyTypes: []string{"HOUSE"},
		Bedrooms:      nil,
		PostalCodes:   []string{"1000", "1170"},
		Cutoff:        false,
	})

	if got.Cutoff {
		t.Error("cutoff should follow the form")
	}
	f, ok := got.Lookup(colBeds)
	if !ok || len(f.Values) != 0 {
		t.Errorf("empty bedroom choice should stay as an empty filter, got %+v (present=%v)", f, ok)
	}
	if got.Count(colPostal) != 2 {
		t.Errorf("postal codes = %d, want 2", got.Count(colPostal))
	}
	if got.Filters[0].Column != colType {
		t.Errorf("filter order changed: %+v", got.Filters)
	}
}

func TestApplyExploreForm(t *testing.T) {
	postal := model.Domain{Column: colPostal, Kind: model.KindCategorical, Values: []string{"1000", "1170"}}
	price := model.Domain{Column: "price", Kind: model.KindNumeric, Min: 100000, Max: 900000}
	surface := model.Domain{Column: "surface", Kind: model.KindNumeric, Min: 80, Max: 80}

	tests := []struct {
		name   string
		fields []*exploreField
		want   []model.Filter
	}{
		{
			name: "empty picks and full range add nothing",
			fields: []*exploreField{
				{Domain: postal},
				{Domain: price},
				{Domain: surface},
			},
			want: []model.Filter{},
		},
		{
			name: "picked values and a narrowed range",
			fields: []*exploreField{
				{Domain: postal, Picked: []string{"1170"}},
				{Domain: price, Lo: "200000", Hi: ""},
			},
			want: []model.Filter{
				model.Categorical(colPostal, "1170"),
				model.Range("price", 200000, 900000),
			},
		},
		{
			name: "constant column picked",
			fields: []*exploreField{
				{Domain: surface, Picked: []string{"80"}},
			},
			want: []model.Filter{model.Categorical("surface", "80")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyExploreForm(model.Selection{}, &exploreFormValues{Fields: tt.fields, Cutoff: true})
			if err != nil {
				t.Fatalf("applyExploreForm: %v", err)
			}
			if !got.Cutoff {
				t.Error("cutoff should follow the form")
			}
			if !reflect.DeepEqual(got.Filters, tt.want) {
				t.Errorf("filters = %+v, want %+v", got.Filters, tt.want)
			}
		})
	}
}

func TestApplyExploreFormClearsPreviousFilter(t *testing.T) {
	postal := model.Domain{Column: colPostal, Kind: model.KindCategorical, Values: []string{"1000", "1170"}}
	prev := model.Selection{Filters: []model.Filter{model.Categorical(colPostal, "1000")}}

	got, err := applyExploreForm(prev, &exploreFormValues{Fields: []*exploreField{{Domain: postal}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Filters) != 0 {
		t.Errorf("clearing the multi-select should drop the filter, got %+v", got.Filters)
	}
}

func TestExploreFormValuesPrefill(t *testing.T) {
	price := model.Domain{Column: "price", Kind: model.KindNumeric, Min: 1, Max: 9}
	sel := model.Selection{Filters: []model.Filter{model.Range("price", 2, 5)}, Cutoff: true}
	vals := newExploreFormValues([]model.Domain{price}, sel)
	if vals.Fields[0].Lo != "2" || vals.Fields[0].Hi != "5" || !vals.Cutoff {
		t.Errorf("prefill = %+v cutoff=%v", vals.Fields[0], vals.Cutoff)
	}
}

func TestValidBound(t *testing.T) {
	for _, s := range []string{"", "  ", "12", "-3.5"} {
		if err := validBound(s); err != nil {
			t.Errorf("validBound(%q) = %v, want nil", s, err)
		}
	}
	if validBound("abc") == nil {
		t.Error("validBound(abc) should fail")
	}
}

func TestChartDateLabels(t *testing.T) {
	d := func(s string) time.Time {
		v, _ := time.Parse(time.DateOnly, s)
		return v
	}
	got := chartDateLabels([]time.Time{d("2023-06-29"), d("2023-06-30"), d("2023-07-01"), d("2023-07-02")})
	want := []string{"Jun", "30", "Jul", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("chartDateLabels = %v, want %v", got, want)
	}
}

func TestSelectionPills(t *testing.T) {
	sel := model.Selection{Filters: []model.Filter{
		model.Categorical(colPostal, "1170"),
		model.Categorical(colBeds),
		model.Categorical(colType, "A", "B", "C", "D"),
		model.Range("price", 1, 2),
	}}
	got := selectionPills(sel)
	want := []string{"postalCode 1170", "bedroomCount none", "type ×4", "price 1–2", "cutoff off"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("selectionPills = %q, want %q", got, want)
	}
}

func TestApplySetup(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Datastore.Token = "old"

	ApplySetup(&cfg, SetupValues{
		Driver:    "sqlite",
		DSN:       " /tmp/agg.db ",
		Token:     "",
		URLPrefix: "https://example.test/",
		Theme:     "terminal",
	})

	if cfg.Datastore.Driver != "sqlite" || cfg.Datastore.DSN != "/tmp/agg.db" {
		t.Errorf("datastore = %+v", cfg.Datastore)
	}
	if cfg.Datastore.Token != "old" {
		t.Errorf("blank token should keep the stored one, got %q", cfg.Datastore.Token)
	}
	if cfg.Listings.URLPrefix != "https://example.test/" || cfg.Appearance.Theme != "terminal" {
		t.Errorf("listings/appearance = %+v / %+v", cfg.Listings, cfg.Appearance)
	}
}
