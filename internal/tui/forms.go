package tui

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

type formKind int

const (
	formNone formKind = iota
	formTrend
	formExplore
	formIgnore
)

func (k formKind) title() string {
	switch k {
	case formTrend:
		return "◈ Trend filters"
	case formExplore:
		return "◈ Explore filters"
	case formIgnore:
		return "◈ Ignored columns"
	default:
		return ""
	}
}

// fieldsPerGroup bounds how many explore columns share one form page.
const fieldsPerGroup = 3

type trendFormValues struct {
	PropertyTypes []string
	Bedrooms      []string
	PostalCodes   []string
	Cutoff        bool
}

// exploreField binds one column's widget. Multi-select and single-value
// widgets use Picked; range widgets use Lo and Hi, where blank means the
// domain bound.
type exploreField struct {
	Domain model.Domain
	Picked []string
	Lo, Hi string
}

type exploreFormValues struct {
	Fields []*exploreField
	Cutoff bool
}

type ignoreFormValues struct {
	Columns []string
}

func formKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return km
}

func (a App) showForm(kind formKind, form *huh.Form) (tea.Model, tea.Cmd) {
	form = form.WithKeyMap(formKeyMap()).WithShowHelp(true)
	if a.width > 0 {
		form = form.WithWidth(a.contentWidth()).WithHeight(a.height - 2)
	}
	a.form = form
	a.formKind = kind
	return a, form.Init()
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		kind := a.formKind
		a.form, a.formKind = nil, formNone
		return a.applyForm(kind)
	case huh.StateAborted:
		a.form, a.formKind = nil, formNone
		return a, nil
	}
	return a, cmd
}

func (a App) applyForm(kind formKind) (tea.Model, tea.Cmd) {
	switch kind {
	case formTrend:
		a.trendSel = applyTrendForm(a.trendSel, a.cfg.Trend.Columns, a.trendVals)
		return a.reloadTrend()
	case formExplore:
		sel, err := applyExploreForm(a.exploreSel, a.exploreVals)
		if err != nil {
			a.exploreErr = err
			return a, nil
		}
		a.exploreSel = sel
		return a.reloadExplore()
	case formIgnore:
		a.exploreIgnore = slices.Clone(a.ignoreVals.Columns)
		return a.reloadExplore()
	}
	return a, nil
}

// ─── Trend ──────────────────────────────────────────────────────

func (a App) openTrendForm() (tea.Model, tea.Cmd) {
	if len(a.trendDomains) < 3 {
		return a, nil
	}
	cols := a.cfg.Trend.Columns
	vals := &trendFormValues{
		PropertyTypes: currentValues(a.trendSel, cols.PropertyType),
		Bedrooms:      currentValues(a.trendSel, cols.Bedrooms),
		PostalCodes:   currentValues(a.trendSel, cols.PostalCode),
		Cutoff:        a.trendSel.Cutoff,
	}
	a.trendVals = vals
	return a.showForm(formTrend, newTrendForm(a.trendDomains, vals, a.cfg.Trend.Cutoff.Format(time.DateOnly)))
}

// newTrendForm builds the trend filter form over domains ordered as
// property type, bedrooms, postal code.
func newTrendForm(domains []model.Domain, vals *trendFormValues, cutoff string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Property type").
				Options(huh.NewOptions(domains[0].Values...)...).
				Value(&vals.PropertyTypes),
			huh.NewMultiSelect[string]().
				Title("Bedrooms").
				Description("More than one splits the chart by bedrooms").
				Options(huh.NewOptions(domains[1].Values...)...).
				Height(8).
				Value(&vals.Bedrooms),
			huh.NewMultiSelect[string]().
				Title("Postal code").
				Description("More than one splits the chart by postal code").
				Options(huh.NewOptions(domains[2].Values...)...).
				Filterable(true).
				Height(10).
				Value(&vals.PostalCodes),
			huh.NewConfirm().
				Title("Only extracts from "+cutoff+" on").
				Affirmative("Yes").
				Negative("No").
				Value(&vals.Cutoff),
		),
	)
}

// applyTrendForm writes the form's choices into sel. An empty choice is kept
// as an empty filter and matches nothing.
func applyTrendForm(sel model.Selection, cols pipeline.GroupingColumns, vals *trendFormValues) model.Selection {
	sel = sel.With(model.Categorical(cols.PropertyType, vals.PropertyTypes...))
	sel = sel.With(model.Categorical(cols.Bedrooms, vals.Bedrooms...))
	sel = sel.With(model.Categorical(cols.PostalCode, vals.PostalCodes...))
	sel.Cutoff = vals.Cutoff
	return sel
}

// ─── Explore ────────────────────────────────────────────────────

func (a App) visibleExploreDomains() []model.Domain {
	var out []model.Domain
	for _, d := range a.exploreDomains {
		if !slices.Contains(a.exploreIgnore, d.Column) {
			out = append(out, d)
		}
	}
	return out
}

func (a App) openExploreForm() (tea.Model, tea.Cmd) {
	domains := a.visibleExploreDomains()
	if len(domains) == 0 {
		return a, nil
	}
	vals := newExploreFormValues(domains, a.exploreSel)
	a.exploreVals = vals
	return a.showForm(formExplore, newExploreForm(vals))
}

func newExploreFormValues(domains []model.Domain, sel model.Selection) *exploreFormValues {
	vals := &exploreFormValues{Cutoff: sel.Cutoff}
	for _, d := range domains {
		field := &exploreField{Domain: d}
		if f, ok := sel.Lookup(d.Column); ok {
			if f.Kind == model.FilterRange {
				field.Lo = model.FormatNumber(f.Min)
				field.Hi = model.FormatNumber(f.Max)
			} else {
				field.Picked = slices.Clone(f.Values)
			}
		}
		vals.Fields = append(vals.Fields, field)
	}
	return vals
}

func newExploreForm(vals *exploreFormValues) *huh.Form {
	var groups []*huh.Group
	var fields []huh.Field
	flush := func() {
		if len(fields) > 0 {
			groups = append(groups, huh.NewGroup(fields...))
			fields = nil
		}
	}

	for i, ef := range vals.Fields {
		if i > 0 && i%fieldsPerGroup == 0 {
			flush()
		}
		d := ef.Domain
		switch d.Widget() {
		case model.WidgetRange:
			fields = append(fields,
				huh.NewInput().
					Title(d.Column+" from").
					Placeholder(model.FormatNumber(d.Min)).
					Validate(validBound).
					Value(&ef.Lo),
				huh.NewInput().
					Title(d.Column+" to").
					Placeholder(model.FormatNumber(d.Max)).
					Validate(validBound).
					Value(&ef.Hi),
			)
		case model.WidgetSingle:
			fields = append(fields,
				huh.NewMultiSelect[string]().
					Title(d.Column).
					Description("Constant column").
					Options(huh.NewOption(model.FormatNumber(d.Min), model.FormatNumber(d.Min))).
					Value(&ef.Picked),
			)
		default:
			fields = append(fields,
				huh.NewMultiSelect[string]().
					Title(d.Column).
					Description("Leave empty for all values").
					Options(huh.NewOptions(d.Values...)...).
					Filterable(true).
					Height(min(len(d.Values)+2, 10)).
					Value(&ef.Picked),
			)
		}
	}
	fields = append(fields,
		huh.NewConfirm().
			Title("Apply the date cutoff").
			Affirmative("Yes").
			Negative("No").
			Value(&vals.Cutoff),
	)
	flush()

	return huh.NewForm(groups...)
}

func validBound(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("not a number")
	}
	return nil
}

// applyExploreForm writes the form's choices into sel. Empty multi-selects
// and ranges spanning the whole domain remove the column's filter.
func applyExploreForm(sel model.Selection, vals *exploreFormValues) (model.Selection, error) {
	for _, ef := range vals.Fields {
		d := ef.Domain
		if d.Widget() != model.WidgetRange {
			if len(ef.Picked) == 0 {
				sel = sel.Without(d.Column)
			} else {
				sel = sel.With(model.Categorical(d.Column, ef.Picked...))
			}
			continue
		}

		f, err := pipeline.ParseRange(d.Column+"="+strings.TrimSpace(ef.Lo)+":"+strings.TrimSpace(ef.Hi), &d)
		if err != nil {
			return sel, err
		}
		if d.Covers(f) {
			sel = sel.Without(d.Column)
		} else {
			sel = sel.With(f)
		}
	}
	sel.Cutoff = vals.Cutoff
	return sel, nil
}

// ─── Ignore ─────────────────────────────────────────────────────

func (a App) openIgnoreForm() (tea.Model, tea.Cmd) {
	if len(a.exploreDomains) == 0 {
		return a, nil
	}
	cols := make([]string, len(a.exploreDomains))
	for i, d := range a.exploreDomains {
		cols[i] = d.Column
	}
	vals := &ignoreFormValues{Columns: slices.Clone(a.exploreIgnore)}
	a.ignoreVals = vals
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Columns to ignore").
			Description("Ignored columns are neither shown nor filtered").
			Options(huh.NewOptions(cols...)...).
			Height(min(len(cols)+2, 14)).
			Value(&vals.Columns),
	))
	return a.showForm(formIgnore, form)
}

func currentValues(sel model.Selection, col string) []string {
	f, ok := sel.Lookup(col)
	if !ok {
		return nil
	}
	return slices.Clone(f.Values)
}
