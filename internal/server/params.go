package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"
)

// Trend query parameters. An absent parameter keeps the dashboard default;
// a present but empty one selects nothing.
const (
	paramPropertyType = "property_type"
	paramBedrooms     = "bedrooms"
	paramPostalCode   = "postal_code"
	paramCutoff       = "cutoff"
	paramFilter       = "filter"
	paramRange        = "range"
	paramIgnore       = "ignore"
)

func trendSelection(q url.Values, base model.Selection, cols pipeline.GroupingColumns) (model.Selection, error) {
	sel := base
	for param, col := range map[string]string{
		paramPropertyType: cols.PropertyType,
		paramBedrooms:     cols.Bedrooms,
		paramPostalCode:   cols.PostalCode,
	} {
		raw, ok := q[param]
		if !ok {
			continue
		}
		var values []string
		for _, r := range raw {
			values = append(values, pipeline.SplitValues(r)...)
		}
		sel = sel.With(model.Categorical(col, values...))
	}
	sel.Filters = orderFilters(sel.Filters, cols)

	cutoff, err := cutoffParam(q, base.Cutoff)
	if err != nil {
		return model.Selection{}, err
	}
	sel.Cutoff = cutoff
	return sel, nil
}

// orderFilters keeps trend filters in dashboard order, so equal requests
// produce equal selections regardless of map iteration.
func orderFilters(filters []model.Filter, cols pipeline.GroupingColumns) []model.Filter {
	rank := map[string]int{cols.PropertyType: 0, cols.Bedrooms: 1, cols.PostalCode: 2}
	out := make([]model.Filter, 0, len(filters))
	for want := 0; want < 3; want++ {
		for _, f := range filters {
			if r, ok := rank[f.Column]; ok && r == want {
				out = append(out, f)
			}
		}
	}
	for _, f := range filters {
		if _, ok := rank[f.Column]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// exploreSelection parses repeated filter=col=v1,v2 and range=col=lo:hi
// parameters. Empty multi-selects are omitted, matching the dashboard. The
// cutoff is opt-in here.
func exploreSelection(q url.Values, domains []model.Domain) (model.Selection, error) {
	sel := model.Selection{}
	for _, expr := range q[paramFilter] {
		f, err := pipeline.ParseCategorical(expr)
		if err != nil {
			return model.Selection{}, err
		}
		if len(f.Values) == 0 {
			continue
		}
		sel = sel.With(f)
	}
	for _, expr := range q[paramRange] {
		col, _, _ := strings.Cut(expr, "=")
		f, err := pipeline.ParseRange(expr, findDomain(domains, strings.TrimSpace(col)))
		if err != nil {
			return model.Selection{}, err
		}
		sel = sel.With(f)
	}

	cutoff, err := cutoffParam(q, false)
	if err != nil {
		return model.Selection{}, err
	}
	sel.Cutoff = cutoff
	return sel, nil
}

func ignoreParam(q url.Values) []string {
	var out []string
	for _, raw := range q[paramIgnore] {
		out = append(out, pipeline.SplitValues(raw)...)
	}
	return out
}

func cutoffParam(q url.Values, fallback bool) (bool, error) {
	raw := strings.TrimSpace(q.Get(paramCutoff))
	if raw == "" {
		return fallback, nil
	}
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: cutoff=%q (want true or false)", pipeline.ErrBadFilter, raw)
	}
	return v, nil
}

func findDomain(domains []model.Domain, col string) *model.Domain {
	for i := range domains {
		if domains[i].Column == col {
			return &domains[i]
		}
	}
	return nil
}
