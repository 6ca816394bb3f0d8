package pipeline

import (
	"slices"
	"sort"
	"strconv"

	"github.com/sgdevreal/stimmo/internal/model"
)

// DeriveDomains computes the selectable values of every column of ds that is
// not ignored. Numeric columns get their observed [min, max]; categorical and
// date columns get their distinct labels. Columns with no observed values
// are omitted.
func DeriveDomains(ds *model.Dataset, ignore []string) []model.Domain {
	var out []model.Domain
	for _, col := range ds.Columns {
		if slices.Contains(ignore, col.Name) {
			continue
		}
		if col.Kind == model.KindNumeric {
			if d, ok := NumericDomain(ds.Records, col.Name); ok {
				out = append(out, d)
			}
			continue
		}
		labels := DistinctLabels(ds.Records, col.Name)
		if len(labels) == 0 {
			continue
		}
		out = append(out, model.Domain{Column: col.Name, Kind: col.Kind, Values: labels})
	}
	return out
}

// LabelDomain builds a multi-select domain for col, whatever its stored
// kind. Bedroom counts are numeric but chosen from a list.
func LabelDomain(records []model.Record, col string) model.Domain {
	return model.Domain{
		Column: col,
		Kind:   model.KindCategorical,
		Values: DistinctLabels(records, col),
	}
}

// NumericDomain returns the observed [min, max] of col, skipping missing
// values. It reports false when no value was observed.
func NumericDomain(records []model.Record, col string) (model.Domain, bool) {
	d := model.Domain{Column: col, Kind: model.KindNumeric}
	seen := false
	for _, r := range records {
		v, ok := r.Number(col)
		if !ok {
			continue
		}
		if !seen || v < d.Min {
			d.Min = v
		}
		if !seen || v > d.Max {
			d.Max = v
		}
		seen = true
	}
	return d, seen
}

// DistinctLabels returns the distinct labels of col, sorted numerically when
// every label is a number and lexically otherwise.
func DistinctLabels(records []model.Record, col string) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		if label, ok := r.Label(col); ok {
			set[label] = struct{}{}
		}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sortLabels(labels)
	return labels
}

func sortLabels(labels []string) {
	nums := make(map[string]float64, len(labels))
	for _, l := range labels {
		f, err := strconv.ParseFloat(l, 64)
		if err != nil {
			sort.Strings(labels)
			return
		}
		nums[l] = f
	}
	sort.Slice(labels, func(i, j int) bool {
		return nums[labels[i]] < nums[labels[j]]
	})
}
