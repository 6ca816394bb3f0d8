package model

// FilterKind tags the shape of a Filter.
type FilterKind int

const (
	FilterCategorical FilterKind = iota
	FilterRange
)

// Filter restricts one column, either to a set of labels or to an inclusive
// numeric range.
type Filter struct {
	Column string     `json:"column" yaml:"column"`
	Kind   FilterKind `json:"kind" yaml:"kind"`
	Values []string   `json:"values,omitempty" yaml:"values,omitempty"`
	Min    float64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64    `json:"max,omitempty" yaml:"max,omitempty"`
}

// Categorical builds a set-membership filter.
func Categorical(col string, values ...string) Filter {
	return Filter{Column: col, Kind: FilterCategorical, Values: values}
}

// Range builds an inclusive [min, max] filter.
func Range(col string, lo, hi float64) Filter {
	if lo > hi {
		lo, hi = hi, lo
	}
	return Filter{Column: col, Kind: FilterRange, Min: lo, Max: hi}
}

// Selection is the full set of user choices applied to a dataset.
type Selection struct {
	Filters []Filter `json:"filters" yaml:"filters"`
	Cutoff  bool     `json:"cutoff" yaml:"cutoff"`
}

// Lookup returns the filter registered for col.
func (s Selection) Lookup(col string) (Filter, bool) {
	for _, f := range s.Filters {
		if f.Column == col {
			return f, true
		}
	}
	return Filter{}, false
}

// Count returns how many values the categorical filter on col selects.
func (s Selection) Count(col string) int {
	f, ok := s.Lookup(col)
	if !ok || f.Kind != FilterCategorical {
		return 0
	}
	return len(f.Values)
}

// With returns a copy of s with f replacing any filter on the same column.
func (s Selection) With(f Filter) Selection {
	out := Selection{Cutoff: s.Cutoff, Filters: make([]Filter, 0, len(s.Filters)+1)}
	replaced := false
	for _, existing := range s.Filters {
		if existing.Column == f.Column {
			out.Filters = append(out.Filters, f)
			replaced = true
			continue
		}
		out.Filters = append(out.Filters, existing)
	}
	if !replaced {
		out.Filters = append(out.Filters, f)
	}
	return out
}

// Without returns a copy of s with any filter on col removed.
func (s Selection) Without(col string) Selection {
	out := Selection{Cutoff: s.Cutoff, Filters: make([]Filter, 0, len(s.Filters))}
	for _, f := range s.Filters {
		if f.Column != col {
			out.Filters = append(out.Filters, f)
		}
	}
	return out
}

// Widget is the input control a domain is presented with.
type Widget int

const (
	WidgetMultiSelect Widget = iota
	WidgetRange
	WidgetSingle
)

// Domain is the set of selectable values observed for one column.
type Domain struct {
	Column string     `json:"column" yaml:"column"`
	Kind   ColumnKind `json:"kind" yaml:"kind"`
	Values []string   `json:"values,omitempty" yaml:"values,omitempty"`
	Min    float64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64    `json:"max,omitempty" yaml:"max,omitempty"`
}

// Degenerate reports a numeric column holding a single constant value.
func (d Domain) Degenerate() bool {
	return d.Kind == KindNumeric && d.Min == d.Max
}

// Widget picks the control for d. A constant numeric column cannot back a
// range slider and falls back to a single-value selector.
func (d Domain) Widget() Widget {
	switch {
	case d.Kind != KindNumeric:
		return WidgetMultiSelect
	case d.Degenerate():
		return WidgetSingle
	default:
		return WidgetRange
	}
}

// Covers reports whether f selects the whole domain, in which case applying
// it would only drop rows with missing values.
func (d Domain) Covers(f Filter) bool {
	if f.Kind != FilterRange || d.Kind != KindNumeric {
		return false
	}
	return f.Min <= d.Min && f.Max >= d.Max
}
