package pipeline

import (
	"slices"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
)

// FilterOptions control how a Selection is applied to records.
type FilterOptions struct {
	DateColumn string
	Cutoff     time.Time
	Ignore     []string // columns excluded from filtering
}

type predicate func(model.Record) bool

// ApplyFilters returns the records matching every filter in sel, plus the
// cutoff when sel.Cutoff is set. A categorical filter keeps rows whose label
// is in its value set (an empty set keeps nothing); a range filter keeps rows
// whose value lies in [Min, Max]. Rows missing a filtered column never match.
// Filters on ignored columns pass every row.
//
// The input slice is never modified. The returned records share their value
// maps with the input and must be treated as read-only.
func ApplyFilters(records []model.Record, sel model.Selection, opts FilterOptions) []model.Record {
	preds := compile(sel, opts)

	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if matchAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

func compile(sel model.Selection, opts FilterOptions) []predicate {
	var preds []predicate
	for _, f := range sel.Filters {
		if slices.Contains(opts.Ignore, f.Column) {
			continue
		}
		col := f.Column
		switch f.Kind {
		case model.FilterRange:
			lo, hi := f.Min, f.Max
			preds = append(preds, func(r model.Record) bool {
				v, ok := r.Number(col)
				return ok && v >= lo && v <= hi
			})
		default:
			set := make(map[string]struct{}, len(f.Values))
			for _, v := range f.Values {
				set[v] = struct{}{}
			}
			preds = append(preds, func(r model.Record) bool {
				label, ok := r.Label(col)
				if !ok {
					return false
				}
				_, in := set[label]
				return in
			})
		}
	}

	if sel.Cutoff && opts.DateColumn != "" && !slices.Contains(opts.Ignore, opts.DateColumn) {
		col := opts.DateColumn
		// Compared as calendar days so stored timestamps in any zone agree
		// with the configured cutoff date.
		cutoff := opts.Cutoff.Format(time.DateOnly)
		preds = append(preds, func(r model.Record) bool {
			d, ok := r.Date(col)
			return ok && d.Format(time.DateOnly) >= cutoff
		})
	}
	return preds
}

func matchAll(r model.Record, preds []predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}
